package languages

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/traceback-dev/traceback/internal/parser"
)

// PythonParser implements parsing for Python source files
type PythonParser struct {
	parser *sitter.Parser
}

// NewPythonParser creates a new Python parser
func NewPythonParser() *PythonParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: p}
}

func (p *PythonParser) Language() string {
	return "python"
}

func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyw"}
}

func (p *PythonParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileSymbols{
		Path:     filename,
		Language: "python",
		Symbols:  make([]parser.Symbol, 0),
	}

	p.extractSymbols(tree.RootNode(), content, result, "")

	return result, nil
}

func (p *PythonParser) extractSymbols(node *sitter.Node, content []byte, result *parser.FileSymbols, className string) {
	switch node.Type() {
	case "function_definition":
		sym := p.extractFunction(node, content, className)
		if sym != nil {
			result.Symbols = append(result.Symbols, *sym)
			// Recurse into the body so nested defs are visible to
			// line-range lookups.
			if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
				for i := 0; i < int(bodyNode.ChildCount()); i++ {
					p.extractSymbols(bodyNode.Child(i), content, result, className)
				}
			}
		}
		return

	case "class_definition":
		sym := p.extractClass(node, content)
		if sym != nil {
			result.Symbols = append(result.Symbols, *sym)
			if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
				for i := 0; i < int(bodyNode.ChildCount()); i++ {
					p.extractSymbols(bodyNode.Child(i), content, result, sym.Name)
				}
			}
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.extractSymbols(node.Child(i), content, result, className)
	}
}

func (p *PythonParser) extractFunction(node *sitter.Node, content []byte, className string) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	kind := parser.SymbolFunction
	if className != "" {
		kind = parser.SymbolMethod
	}

	bodyNode := node.ChildByFieldName("body")

	return &parser.Symbol{
		Name:      nameNode.Content(content),
		Kind:      kind,
		Signature: p.buildFunctionSignature(node, content),
		Line:      int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Doc:       firstDocstring(bodyNode, content),
		Calls:     p.extractCalls(bodyNode, content),
	}
}

func (p *PythonParser) extractClass(node *sitter.Node, content []byte) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	return &parser.Symbol{
		Name:      nameNode.Content(content),
		Kind:      parser.SymbolClass,
		Signature: p.buildClassSignature(node, content),
		Line:      int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Doc:       firstDocstring(node.ChildByFieldName("body"), content),
	}
}

func (p *PythonParser) buildFunctionSignature(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	paramsNode := node.ChildByFieldName("parameters")
	returnNode := node.ChildByFieldName("return_type")

	sig := "def"
	if nameNode != nil {
		sig += " " + nameNode.Content(content)
	}
	if paramsNode != nil {
		sig += paramsNode.Content(content)
	}
	if returnNode != nil {
		sig += " -> " + returnNode.Content(content)
	}

	return sig
}

func (p *PythonParser) buildClassSignature(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	superclassNode := node.ChildByFieldName("superclasses")

	sig := "class"
	if nameNode != nil {
		sig += " " + nameNode.Content(content)
	}
	if superclassNode != nil {
		sig += superclassNode.Content(content)
	}

	return sig
}

func (p *PythonParser) extractCalls(bodyNode *sitter.Node, content []byte) []parser.CallSite {
	if bodyNode == nil {
		return nil
	}

	calls := make([]parser.CallSite, 0)
	p.collectCalls(bodyNode, content, &calls)
	return calls
}

func (p *PythonParser) collectCalls(node *sitter.Node, content []byte, calls *[]parser.CallSite) {
	if node == nil {
		return
	}

	if node.Type() == "call" {
		callSite := p.extractCallSite(node, content)
		if callSite.Name != "" {
			*calls = append(*calls, callSite)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.collectCalls(node.Child(i), content, calls)
	}
}

func (p *PythonParser) extractCallSite(callNode *sitter.Node, content []byte) parser.CallSite {
	fnNode := callNode.ChildByFieldName("function")
	name, qualifier := p.extractCallName(fnNode, content)
	callSite := parser.CallSite{
		Name:      name,
		Qualifier: qualifier,
		Line:      int(callNode.StartPoint().Row) + 1,
		Arity:     countNamedChildren(callNode.ChildByFieldName("arguments")),
	}
	if fnNode != nil {
		callSite.Raw = strings.TrimSpace(fnNode.Content(content))
	}
	return callSite
}

func (p *PythonParser) extractCallName(node *sitter.Node, content []byte) (name, qualifier string) {
	if node == nil {
		return "", ""
	}

	switch node.Type() {
	case "identifier":
		return node.Content(content), ""
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if attr != nil {
			qualifierValue := ""
			if object != nil {
				qualifierValue = strings.TrimSpace(object.Content(content))
			}
			return attr.Content(content), qualifierValue
		}
		qualifierValue, nameValue := splitQualifiedName(node.Content(content))
		return nameValue, qualifierValue
	case "parenthesized_expression":
		return p.extractCallName(node.ChildByFieldName("expression"), content)
	case "subscript":
		return p.extractCallName(node.ChildByFieldName("value"), content)
	}

	qualifierValue, nameValue := splitQualifiedName(node.Content(content))
	if nameValue != "" {
		return nameValue, qualifierValue
	}
	return strings.TrimSpace(node.Content(content)), ""
}

func firstDocstring(bodyNode *sitter.Node, content []byte) string {
	if bodyNode == nil || bodyNode.ChildCount() == 0 {
		return ""
	}
	firstStmt := bodyNode.Child(0)
	if firstStmt.Type() != "expression_statement" || firstStmt.ChildCount() == 0 {
		return ""
	}
	expr := firstStmt.Child(0)
	if expr.Type() != "string" {
		return ""
	}
	return cleanDocstring(expr.Content(content))
}

func cleanDocstring(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"""`) && strings.HasSuffix(s, `"""`) && len(s) >= 6 {
		s = s[3 : len(s)-3]
	} else if strings.HasPrefix(s, `'''`) && strings.HasSuffix(s, `'''`) && len(s) >= 6 {
		s = s[3 : len(s)-3]
	}
	// First line only
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
