package languages

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/traceback-dev/traceback/internal/parser"
)

// GoParser implements parsing for Go source files
type GoParser struct {
	parser *sitter.Parser
}

// NewGoParser creates a new Go parser
func NewGoParser() *GoParser {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoParser{parser: p}
}

func (g *GoParser) Language() string {
	return "go"
}

func (g *GoParser) Extensions() []string {
	return []string{".go"}
}

func (g *GoParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	tree, err := g.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileSymbols{
		Path:     filename,
		Language: "go",
		Symbols:  make([]parser.Symbol, 0),
	}

	g.extractSymbols(tree.RootNode(), content, result)

	return result, nil
}

func (g *GoParser) extractSymbols(node *sitter.Node, content []byte, result *parser.FileSymbols) {
	switch node.Type() {
	case "function_declaration":
		if sym := g.extractFunction(node, content, parser.SymbolFunction); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}

	case "method_declaration":
		if sym := g.extractFunction(node, content, parser.SymbolMethod); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}

	case "type_declaration":
		result.Symbols = append(result.Symbols, g.extractTypeDecl(node, content)...)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		g.extractSymbols(node.Child(i), content, result)
	}
}

func (g *GoParser) extractFunction(node *sitter.Node, content []byte, kind parser.SymbolKind) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	sig := g.buildFunctionSignature(node, content)
	if kind == parser.SymbolMethod {
		if receiverNode := node.ChildByFieldName("receiver"); receiverNode != nil {
			sig = receiverNode.Content(content) + " " + sig
		}
	}

	return &parser.Symbol{
		Name:      nameNode.Content(content),
		Kind:      kind,
		Signature: sig,
		Line:      int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Calls:     g.extractCalls(node.ChildByFieldName("body"), content),
	}
}

func (g *GoParser) extractTypeDecl(node *sitter.Node, content []byte) []parser.Symbol {
	symbols := make([]parser.Symbol, 0)

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "type_spec" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		typeNode := child.ChildByFieldName("type")
		if nameNode == nil {
			continue
		}

		kind := parser.SymbolStruct
		if typeNode != nil && typeNode.Type() == "interface_type" {
			kind = parser.SymbolInterface
		}

		symbols = append(symbols, parser.Symbol{
			Name:      nameNode.Content(content),
			Kind:      kind,
			Signature: g.buildTypeSignature(child, content),
			Line:      int(child.StartPoint().Row) + 1,
			EndLine:   int(child.EndPoint().Row) + 1,
		})
	}

	return symbols
}

func (g *GoParser) buildFunctionSignature(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	paramsNode := node.ChildByFieldName("parameters")
	resultNode := node.ChildByFieldName("result")

	sig := "func"
	if nameNode != nil {
		sig += " " + nameNode.Content(content)
	}
	if paramsNode != nil {
		sig += paramsNode.Content(content)
	}
	if resultNode != nil {
		sig += " " + resultNode.Content(content)
	}

	return sig
}

func (g *GoParser) buildTypeSignature(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")

	if nameNode == nil {
		return ""
	}

	sig := "type " + nameNode.Content(content)
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			sig += " struct"
		case "interface_type":
			sig += " interface"
		default:
			sig += " " + typeNode.Content(content)
		}
	}

	return sig
}

func (g *GoParser) extractCalls(bodyNode *sitter.Node, content []byte) []parser.CallSite {
	if bodyNode == nil {
		return nil
	}

	calls := make([]parser.CallSite, 0)
	g.collectCalls(bodyNode, content, &calls)
	return calls
}

func (g *GoParser) collectCalls(node *sitter.Node, content []byte, calls *[]parser.CallSite) {
	if node == nil {
		return
	}

	if node.Type() == "call_expression" {
		callSite := g.extractCallSite(node, content)
		if callSite.Name != "" {
			*calls = append(*calls, callSite)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		g.collectCalls(node.Child(i), content, calls)
	}
}

func (g *GoParser) extractCallSite(callNode *sitter.Node, content []byte) parser.CallSite {
	fnNode := callNode.ChildByFieldName("function")
	name, qualifier := g.extractCallName(fnNode, content)
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

func (g *GoParser) extractCallName(node *sitter.Node, content []byte) (name, qualifier string) {
	if node == nil {
		return "", ""
	}

	switch node.Type() {
	case "identifier":
		return node.Content(content), ""
	case "selector_expression":
		operandNode := node.ChildByFieldName("operand")
		fieldNode := node.ChildByFieldName("field")
		if fieldNode != nil {
			qualifierValue := ""
			if operandNode != nil {
				qualifierValue = strings.TrimSpace(operandNode.Content(content))
			}
			return fieldNode.Content(content), qualifierValue
		}
		qualifierValue, nameValue := splitQualifiedName(node.Content(content))
		return nameValue, qualifierValue
	case "parenthesized_expression":
		return g.extractCallName(node.ChildByFieldName("expression"), content)
	case "index_expression", "type_instantiation_expression":
		return g.extractCallName(node.ChildByFieldName("operand"), content)
	}

	qualifierValue, nameValue := splitQualifiedName(node.Content(content))
	if nameValue != "" {
		return nameValue, qualifierValue
	}
	return strings.TrimSpace(node.Content(content)), ""
}

func countNamedChildren(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.NamedChildCount())
}
