package languages

import "github.com/traceback-dev/traceback/internal/parser"

// NewDefaultRegistry creates a registry with all supported language parsers
func NewDefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()

	r.Register(NewGoParser())
	r.Register(NewPythonParser())

	return r
}
