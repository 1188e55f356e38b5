package analysis

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func makeInput(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	return b.String()
}

func TestNewContextRejectsBadPagination(t *testing.T) {
	cases := []struct {
		name     string
		pageSize int
		overlap  int
	}{
		{"zero overlap", 100, 0},
		{"negative overlap", 100, -1},
		{"overlap equals page", 100, 100},
		{"overlap exceeds page", 100, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewContext("input", tc.pageSize, tc.overlap); err == nil {
				t.Errorf("NewContext(page=%d, overlap=%d) succeeded, want error", tc.pageSize, tc.overlap)
			}
		})
	}
}

func TestContextSinglePage(t *testing.T) {
	input := makeInput(1000)
	c, err := NewContext(input, DefaultPageSize, DefaultOverlapSize)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if got := c.TotalPages(); got != 1 {
		t.Errorf("TotalPages() = %d, want 1", got)
	}
	if got := c.CurrentPage(); got != input {
		t.Errorf("CurrentPage() returned %d chars, want the full input", len(got))
	}
	if c.AdvancePage() {
		t.Error("AdvancePage() on the only page returned true")
	}
	if got := c.PageNumber(); got != 1 {
		t.Errorf("PageNumber() = %d after failed advance, want 1", got)
	}
}

func TestContextPagination(t *testing.T) {
	input := makeInput(120000)
	c, err := NewContext(input, 50000, 5000)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if got := c.TotalPages(); got != 3 {
		t.Fatalf("TotalPages() = %d, want 3", got)
	}

	// Pages after the first shift back by the overlap so boundary
	// content appears whole on at least one page.
	wantWindows := []struct{ start, end int }{
		{0, 50000},
		{40000, 90000},
		{85000, 120000},
	}
	for i, want := range wantWindows {
		if got := c.PageNumber(); got != i+1 {
			t.Fatalf("PageNumber() = %d, want %d", got, i+1)
		}
		page := c.CurrentPage()
		if page != input[want.start:want.end] {
			t.Errorf("page %d window mismatch: got %d chars, want input[%d:%d]", i+1, len(page), want.start, want.end)
		}
		// Re-reading must not move the cursor.
		if again := c.CurrentPage(); again != page {
			t.Errorf("page %d changed between reads", i+1)
		}
		if i < len(wantWindows)-1 {
			if !c.AdvancePage() {
				t.Fatalf("AdvancePage() from page %d returned false", i+1)
			}
		}
	}

	if c.AdvancePage() {
		t.Error("AdvancePage() past the last page returned true")
	}
	if got := c.PageNumber(); got != 3 {
		t.Errorf("PageNumber() = %d after failed advance, want 3", got)
	}
}

func TestContextSetPage(t *testing.T) {
	c, err := NewContext(makeInput(120000), 50000, 5000)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if !c.SetPage(3) {
		t.Fatal("SetPage(3) returned false")
	}
	if got := c.PageNumber(); got != 3 {
		t.Errorf("PageNumber() = %d, want 3", got)
	}
	for _, n := range []int{0, -1, 4} {
		if c.SetPage(n) {
			t.Errorf("SetPage(%d) returned true, want false", n)
		}
	}
	if got := c.PageNumber(); got != 3 {
		t.Errorf("PageNumber() = %d after rejected jumps, want 3", got)
	}
}

func TestContextAnalyzedPages(t *testing.T) {
	c, err := NewContext(makeInput(120000), 50000, 5000)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if c.IsPageAnalyzed(1) {
		t.Error("page 1 reported analyzed before any fetch")
	}
	c.MarkPageAnalyzed(3)
	c.MarkPageAnalyzed(1)
	c.MarkPageAnalyzed(3)
	if !c.IsPageAnalyzed(3) {
		t.Error("page 3 not reported analyzed after marking")
	}
	if diff := cmp.Diff([]int{1, 3}, c.AnalyzedPages()); diff != "" {
		t.Errorf("AnalyzedPages() mismatch (-want +got):\n%s", diff)
	}

	summary := c.AnalyzedPagesSummary()
	if summary.Type != FindingAnalyzedPages {
		t.Errorf("summary type = %q, want %q", summary.Type, FindingAnalyzedPages)
	}
	if summary.Context != "2 of 3 pages reviewed" {
		t.Errorf("summary context = %q", summary.Context)
	}
	if summary.Result != "1, 3" {
		t.Errorf("summary result = %q, want %q", summary.Result, "1, 3")
	}
	// The summary is transient: building it must not touch the log.
	if got := len(c.Findings()); got != 0 {
		t.Errorf("findings log has %d entries after summary, want 0", got)
	}
}

func TestContextFindingsLog(t *testing.T) {
	c, err := NewContext("short input", 100, 10)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if _, ok := c.LastFinding(); ok {
		t.Error("LastFinding() reported a finding on an empty log")
	}

	first := Finding{Type: FindingFetchFiles, Context: "timeout", Result: "2 files matched"}
	second := Finding{Type: FindingFetchCode, Context: "srv.go:10", Result: "code window"}
	c.AppendFinding(first)
	c.AppendFinding(second)

	last, ok := c.LastFinding()
	if !ok || !last.Equal(second) {
		t.Errorf("LastFinding() = %+v, want the second finding", last)
	}
	if diff := cmp.Diff([]Finding{first, second}, c.Findings()); diff != "" {
		t.Errorf("Findings() mismatch (-want +got):\n%s", diff)
	}
}

func TestFindingEqual(t *testing.T) {
	base := Finding{
		Type:    FindingFetchFiles,
		Context: "timeout",
		Result:  "2 files matched",
		Tool:    &ToolRef{Type: FindingFetchFiles, Context: "timeout"},
	}
	same := base
	same.Tool = &ToolRef{Type: FindingFetchFiles, Context: "timeout"}
	if !base.Equal(same) {
		t.Error("findings with equal tool refs at distinct addresses compared unequal")
	}

	differentResult := base
	differentResult.Result = "no files matched"
	if base.Equal(differentResult) {
		t.Error("findings with different results compared equal")
	}

	noTool := base
	noTool.Tool = nil
	if base.Equal(noTool) {
		t.Error("finding with tool ref compared equal to one without")
	}
}

func TestContextIterations(t *testing.T) {
	c, err := NewContext("x", 10, 2)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	for i := 0; i < 5; i++ {
		if got := c.Iterations(); got != i {
			t.Fatalf("Iterations() = %d, want %d", got, i)
		}
		c.CountIteration()
	}
}
