package parser

// SymbolKind represents the type of code symbol
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolMethod
	SymbolClass
	SymbolStruct
	SymbolInterface
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "func"
	case SymbolMethod:
		return "method"
	case SymbolClass:
		return "class"
	case SymbolStruct:
		return "struct"
	case SymbolInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// CallSite captures a function/method invocation discovered inside a symbol body.
type CallSite struct {
	Name      string `json:"name"`
	Qualifier string `json:"qualifier,omitempty"`
	Arity     int    `json:"arity,omitempty"`
	Line      int    `json:"line,omitempty"`
	Raw       string `json:"raw,omitempty"`
}

// Symbol represents a code symbol (function, class, etc.)
type Symbol struct {
	ID        string
	Name      string
	Kind      SymbolKind
	Signature string // e.g., "func(ctx context.Context, id string) (*User, error)"
	File      string // relative file path
	Line      int    // first line of the definition
	EndLine   int    // last line of the definition body
	Doc       string // docstring/comment if available
	Calls     []CallSite
}

// Contains reports whether line falls inside the symbol's definition range.
func (s Symbol) Contains(line int) bool {
	if s.EndLine < s.Line {
		return line == s.Line
	}
	return line >= s.Line && line <= s.EndLine
}

// Span returns the number of lines the definition covers.
func (s Symbol) Span() int {
	if s.EndLine < s.Line {
		return 1
	}
	return s.EndLine - s.Line + 1
}

// FileSymbols holds all symbols extracted from a single file
type FileSymbols struct {
	Path     string
	Language string
	Symbols  []Symbol
}

// ParseIssue captures non-fatal parser warnings/errors encountered while scanning files.
type ParseIssue struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}

// ParseResult holds the complete parse result for a workspace tree.
type ParseResult struct {
	Files    []FileSymbols
	RootPath string
	Issues   []ParseIssue
}

// FileByPath returns the parsed file whose relative path matches exactly.
func (r *ParseResult) FileByPath(relPath string) *FileSymbols {
	for i := range r.Files {
		if r.Files[i].Path == relPath {
			return &r.Files[i]
		}
	}
	return nil
}
