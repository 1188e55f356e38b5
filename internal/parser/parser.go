package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/traceback-dev/traceback/internal/ignore"
)

// LanguageParser defines the interface each language must implement
type LanguageParser interface {
	// Language returns the language name (e.g., "go", "python")
	Language() string

	// Extensions returns file extensions this parser handles
	Extensions() []string

	// Parse extracts symbols from source code
	Parse(filename string, content []byte) (*FileSymbols, error)
}

// Registry holds all registered language parsers
type Registry struct {
	parsers   map[string]LanguageParser // language name -> parser
	extToLang map[string]string         // extension -> language name
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// Register adds a language parser to the registry
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[ext] = lang
	}
}

// GetParserForFile returns the appropriate parser for a file
func (r *Registry) GetParserForFile(filename string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	parser, ok := r.parsers[lang]
	return parser, ok
}

// SupportedExtensions returns all supported file extensions
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ParseFile parses a single file and returns its symbols
func (r *Registry) ParseFile(path string) (*FileSymbols, error) {
	parser, ok := r.GetParserForFile(path)
	if !ok {
		return nil, nil // unsupported file type, skip silently
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	symbols, err := parser.Parse(path, content)
	if err != nil {
		return nil, err
	}

	for i := range symbols.Symbols {
		symbols.Symbols[i].Calls = normalizeCallSites(symbols.Symbols[i].Calls)
	}

	return symbols, nil
}

// ParseDirectory recursively parses all supported files in a directory.
// Unparseable files are recorded as issues, never returned as errors.
func (r *Registry) ParseDirectory(root string, ignoreRules []string) (*ParseResult, error) {
	ignoreMatcher := ignore.NewMatcher(ignoreRules)

	result := &ParseResult{
		RootPath: root,
		Files:    make([]FileSymbols, 0),
		Issues:   make([]ParseIssue, 0),
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			relPath := path
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				relPath = rel
			}
			result.Issues = append(result.Issues, ParseIssue{
				File:     relPath,
				Severity: "warning",
				Message:  fmt.Sprintf("walk error: %v", err),
			})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if ignoreMatcher.ShouldIgnore(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		symbols, err := r.ParseFile(path)
		if err != nil {
			lang := ""
			if langParser, ok := r.GetParserForFile(path); ok {
				lang = langParser.Language()
			}
			result.Issues = append(result.Issues, ParseIssue{
				File:     relPath,
				Language: lang,
				Severity: "error",
				Message:  err.Error(),
			})
			return nil
		}
		if symbols != nil {
			symbols.Path = filepath.ToSlash(relPath)
			for i := range symbols.Symbols {
				symbols.Symbols[i].File = symbols.Path
				symbols.Symbols[i].ID = StableSymbolID(symbols.Path, symbols.Symbols[i])
			}
			result.Files = append(result.Files, *symbols)
		}

		return nil
	})

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	sort.Slice(result.Issues, func(i, j int) bool {
		if result.Issues[i].File == result.Issues[j].File {
			return result.Issues[i].Message < result.Issues[j].Message
		}
		return result.Issues[i].File < result.Issues[j].File
	})

	return result, err
}

func normalizeCallSites(values []CallSite) []CallSite {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]CallSite, 0, len(values))
	for _, value := range values {
		value.Name = strings.TrimSpace(value.Name)
		value.Qualifier = strings.TrimSpace(value.Qualifier)
		value.Raw = strings.TrimSpace(value.Raw)
		if value.Name == "" {
			continue
		}

		key := fmt.Sprintf("%s|%s|%d|%d", value.Name, value.Qualifier, value.Arity, value.Line)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		if out[i].Qualifier != out[j].Qualifier {
			return out[i].Qualifier < out[j].Qualifier
		}
		return out[i].Name < out[j].Name
	})

	return out
}
