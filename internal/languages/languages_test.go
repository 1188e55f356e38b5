package languages

import (
	"testing"

	"github.com/traceback-dev/traceback/internal/parser"
)

func TestPythonParserExtractsFunctionsWithRanges(t *testing.T) {
	p := NewPythonParser()
	file, err := p.Parse("svc.py", []byte(`def handler(event):
    """Entry point for one event."""
    validate(event)
    return dispatch(event)


def dispatch(event):
    return event
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	handler := findSymbol(t, file, "handler")
	if handler.Kind != parser.SymbolFunction {
		t.Fatalf("expected function kind, got %s", handler.Kind)
	}
	if handler.Line != 1 || handler.EndLine != 4 {
		t.Fatalf("expected handler to span lines 1-4, got %d-%d", handler.Line, handler.EndLine)
	}
	if handler.Doc != "Entry point for one event." {
		t.Fatalf("unexpected docstring: %q", handler.Doc)
	}
	if len(handler.Calls) != 2 {
		t.Fatalf("expected 2 calls in handler, got %#v", handler.Calls)
	}
	if handler.Calls[0].Name != "validate" || handler.Calls[1].Name != "dispatch" {
		t.Fatalf("unexpected call names: %#v", handler.Calls)
	}
}

func TestPythonParserMarksClassMethods(t *testing.T) {
	p := NewPythonParser()
	file, err := p.Parse("store.py", []byte(`class Store:
    def get(self, key):
        return self.read(key)

    def read(self, key):
        return None
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	get := findSymbol(t, file, "get")
	if get.Kind != parser.SymbolMethod {
		t.Fatalf("expected method kind for get, got %s", get.Kind)
	}
	if len(get.Calls) != 1 || get.Calls[0].Name != "read" || get.Calls[0].Qualifier != "self" {
		t.Fatalf("unexpected calls for get: %#v", get.Calls)
	}

	store := findSymbol(t, file, "Store")
	if store.Kind != parser.SymbolClass {
		t.Fatalf("expected class kind for Store, got %s", store.Kind)
	}
}

func TestPythonParserFindsNestedFunctions(t *testing.T) {
	p := NewPythonParser()
	file, err := p.Parse("nested.py", []byte(`def outer():
    def inner():
        return 1
    return inner()
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	inner := findSymbol(t, file, "inner")
	if inner.Line != 2 || inner.EndLine != 3 {
		t.Fatalf("expected inner to span lines 2-3, got %d-%d", inner.Line, inner.EndLine)
	}
}

func TestGoParserExtractsFunctionsAndMethods(t *testing.T) {
	p := NewGoParser()
	file, err := p.Parse("svc.go", []byte(`package svc

func Run(name string) error {
	return step(name)
}

func step(name string) error {
	return nil
}

type Server struct{}

func (s *Server) Serve() {
	Run("serve")
}
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	run := findSymbol(t, file, "Run")
	if run.Kind != parser.SymbolFunction {
		t.Fatalf("expected function kind, got %s", run.Kind)
	}
	if run.Line != 3 || run.EndLine != 5 {
		t.Fatalf("expected Run to span lines 3-5, got %d-%d", run.Line, run.EndLine)
	}
	if len(run.Calls) != 1 || run.Calls[0].Name != "step" {
		t.Fatalf("unexpected calls for Run: %#v", run.Calls)
	}

	serve := findSymbol(t, file, "Serve")
	if serve.Kind != parser.SymbolMethod {
		t.Fatalf("expected method kind for Serve, got %s", serve.Kind)
	}
	if len(serve.Calls) != 1 || serve.Calls[0].Name != "Run" {
		t.Fatalf("unexpected calls for Serve: %#v", serve.Calls)
	}
}

func findSymbol(t *testing.T, file *parser.FileSymbols, name string) parser.Symbol {
	t.Helper()
	for _, sym := range file.Symbols {
		if sym.Name == name {
			return sym
		}
	}
	t.Fatalf("symbol %s not found in %s", name, file.Path)
	return parser.Symbol{}
}
