package analysis

import (
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultPageSize    = 50000
	DefaultOverlapSize = 5000
)

// Context owns the evidence accumulated during one debugging session:
// the paginated view of the primary input, the ordered findings, and
// iteration bookkeeping. It lives exactly as long as the session.
type Context struct {
	input       string
	pageSize    int
	overlapSize int
	totalPages  int
	pageIndex   int // 0-based
	analyzed    map[int]bool
	findings    []Finding
	iterations  int
}

// NewContext builds a session context over the full input. pageSize must
// exceed overlapSize and both must be positive.
func NewContext(input string, pageSize, overlapSize int) (*Context, error) {
	if overlapSize <= 0 || pageSize <= overlapSize {
		return nil, fmt.Errorf("invalid pagination: page_size=%d overlap_size=%d (need page_size > overlap_size > 0)", pageSize, overlapSize)
	}

	c := &Context{
		input:       input,
		pageSize:    pageSize,
		overlapSize: overlapSize,
		analyzed:    make(map[int]bool),
		findings:    make([]Finding, 0),
	}
	c.totalPages = pageCount(len(input), pageSize, overlapSize)
	return c, nil
}

// pageCount is 1 for inputs that fit one page, otherwise
// ceil((length - overlap) / (page - overlap)). The same formula is
// asserted by the pagination property tests; do not introduce a second
// variant.
func pageCount(length, pageSize, overlapSize int) int {
	if length <= pageSize {
		return 1
	}
	step := pageSize - overlapSize
	return (length - overlapSize + step - 1) / step
}

// CurrentPage returns the window for the current page index. Pages after
// the first start overlapSize characters early so an error spanning a
// boundary is always shown whole on at least one page. Calling it
// repeatedly has no side effects.
func (c *Context) CurrentPage() string {
	start := c.pageIndex * (c.pageSize - c.overlapSize)
	if c.pageIndex > 0 {
		start -= c.overlapSize
	}
	if start < 0 {
		start = 0
	}
	end := start + c.pageSize
	if end > len(c.input) {
		end = len(c.input)
	}
	return c.input[start:end]
}

// PageNumber returns the current page in 1-based form.
func (c *Context) PageNumber() int {
	return c.pageIndex + 1
}

// TotalPages returns the page count derived at construction.
func (c *Context) TotalPages() int {
	return c.totalPages
}

// AdvancePage moves to the next page. Returns false when already on the
// last page; never wraps around or decreases.
func (c *Context) AdvancePage() bool {
	if c.pageIndex+1 >= c.totalPages {
		return false
	}
	c.pageIndex++
	return true
}

// SetPage jumps to a 1-based page number. Returns false when out of range.
func (c *Context) SetPage(n int) bool {
	if n < 1 || n > c.totalPages {
		return false
	}
	c.pageIndex = n - 1
	return true
}

// MarkPageAnalyzed records a 1-based page as reviewed. The set only grows.
func (c *Context) MarkPageAnalyzed(n int) {
	c.analyzed[n] = true
}

// IsPageAnalyzed reports whether a 1-based page was already reviewed.
func (c *Context) IsPageAnalyzed(n int) bool {
	return c.analyzed[n]
}

// AnalyzedPages returns the reviewed pages in ascending order.
func (c *Context) AnalyzedPages() []int {
	pages := make([]int, 0, len(c.analyzed))
	for n := range c.analyzed {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages
}

// AppendFinding appends to the session evidence log.
func (c *Context) AppendFinding(f Finding) {
	c.findings = append(c.findings, f)
}

// Findings returns the evidence log in append order. Callers must not
// mutate the returned slice.
func (c *Context) Findings() []Finding {
	return c.findings
}

// LastFinding returns the most recent finding, if any.
func (c *Context) LastFinding() (Finding, bool) {
	if len(c.findings) == 0 {
		return Finding{}, false
	}
	return c.findings[len(c.findings)-1], true
}

// Iterations returns how many loop iterations have completed.
func (c *Context) Iterations() int {
	return c.iterations
}

// CountIteration advances the iteration counter.
func (c *Context) CountIteration() {
	c.iterations++
}

// AnalyzedPagesSummary describes the reviewed pages for the oracle. It is
// injected for a single call and retracted immediately; it never enters
// the durable findings log.
func (c *Context) AnalyzedPagesSummary() Finding {
	pages := c.AnalyzedPages()
	parts := make([]string, len(pages))
	for i, n := range pages {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return Finding{
		Type:    FindingAnalyzedPages,
		Context: fmt.Sprintf("%d of %d pages reviewed", len(pages), c.totalPages),
		Result:  strings.Join(parts, ", "),
	}
}
