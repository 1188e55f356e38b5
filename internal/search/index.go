// Package search ranks workspace symbols against free-text queries with
// BM25, falling back to fuzzy name matching when nothing scores.
package search

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/traceback-dev/traceback/internal/parser"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

type Document struct {
	ID        string
	Name      string
	Kind      string
	Signature string
	File      string
	Line      int
	Doc       string
	length    int
	terms     map[string]int
}

type Index struct {
	documents    []Document
	docFreq      map[string]int
	avgDocLength float64
}

type Result struct {
	Document Document
	Score    float64
}

// Build indexes every symbol of a parsed workspace.
func Build(result *parser.ParseResult) *Index {
	index := &Index{docFreq: map[string]int{}}
	if result == nil {
		return index
	}

	totalLength := 0
	for _, file := range result.Files {
		for _, sym := range file.Symbols {
			terms := buildTerms(sym.Name, sym.Signature, file.Path, sym.Doc)
			length := 0
			for _, count := range terms {
				length += count
			}
			if length == 0 {
				continue
			}

			index.documents = append(index.documents, Document{
				ID:        sym.ID,
				Name:      sym.Name,
				Kind:      sym.Kind.String(),
				Signature: sym.Signature,
				File:      file.Path,
				Line:      sym.Line,
				Doc:       sym.Doc,
				length:    length,
				terms:     terms,
			})
			totalLength += length

			for term := range terms {
				index.docFreq[term]++
			}
		}
	}

	sort.Slice(index.documents, func(i, j int) bool {
		return index.documents[i].ID < index.documents[j].ID
	})
	if len(index.documents) > 0 {
		index.avgDocLength = float64(totalLength) / float64(len(index.documents))
	}
	return index
}

// Search scores every document against the query and returns the top
// results. When BM25 finds nothing, close name matches are returned
// instead.
func (index *Index) Search(query string, limit int) []Result {
	if index == nil || len(index.documents) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	seenTerms := make(map[string]bool, len(queryTerms))
	uniqueTerms := make([]string, 0, len(queryTerms))
	for _, term := range queryTerms {
		if seenTerms[term] {
			continue
		}
		seenTerms[term] = true
		uniqueTerms = append(uniqueTerms, term)
	}

	k1 := 1.2
	b := 0.75
	n := float64(len(index.documents))
	avgLen := index.avgDocLength
	if avgLen <= 0 {
		avgLen = 1
	}

	results := make([]Result, 0)
	for _, doc := range index.documents {
		score := 0.0
		docLen := float64(doc.length)
		for _, term := range uniqueTerms {
			tf := float64(doc.terms[term])
			if tf <= 0 {
				continue
			}
			df := float64(index.docFreq[term])
			if df <= 0 {
				continue
			}
			idf := math.Log(1.0 + ((n - df + 0.5) / (df + 0.5)))
			numerator := tf * (k1 + 1.0)
			denominator := tf + k1*(1.0-b+b*(docLen/avgLen))
			score += idf * (numerator / denominator)
		}
		if score > 0 {
			results = append(results, Result{Document: doc, Score: score})
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return index.fuzzyNameFallback(query, limit)
	}
	return results
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
}

func buildTerms(name, signature, filePath, doc string) map[string]int {
	terms := make(map[string]int)
	addWeighted(terms, name, 4)
	addWeighted(terms, signature, 2)
	addWeighted(terms, filePath, 2)
	addWeighted(terms, doc, 1)
	return terms
}

func addWeighted(terms map[string]int, value string, weight int) {
	if weight <= 0 {
		return
	}
	for _, token := range tokenize(value) {
		terms[token] += weight
	}
}

func tokenize(value string) []string {
	value = strings.ToLower(value)
	if value == "" {
		return nil
	}
	return tokenPattern.FindAllString(value, -1)
}

func (index *Index) fuzzyNameFallback(query string, limit int) []Result {
	needle := normalizeForFuzzy(query)
	if needle == "" {
		return nil
	}

	results := make([]Result, 0)
	for _, doc := range index.documents {
		candidate := normalizeForFuzzy(doc.Name)
		if candidate == "" {
			continue
		}
		distance := levenshteinDistance(needle, candidate)
		threshold := len(candidate) / 3
		if threshold < 2 {
			threshold = 2
		}
		if distance > threshold {
			continue
		}
		results = append(results, Result{Document: doc, Score: 1.0 / float64(1+distance)})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func normalizeForFuzzy(value string) string {
	tokens := tokenize(value)
	if len(tokens) == 0 {
		return ""
	}
	return strings.Join(tokens, "")
}

func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current := make([]int, len(b)+1)
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			ins := current[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			current[j] = min(ins, del, sub)
		}
		prev = current
	}

	return prev[len(b)]
}
