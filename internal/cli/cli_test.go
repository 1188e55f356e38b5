package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/traceback-dev/traceback/internal/callgraph"
)

func TestParseLocation(t *testing.T) {
	cases := []struct {
		query   string
		want    callgraph.Location
		wantErr bool
	}{
		{query: "srv/pool.go:42", want: callgraph.Location{File: "srv/pool.go", Line: 42}},
		{query: "C:/work/app/main.go:7", want: callgraph.Location{File: "C:/work/app/main.go", Line: 7}},
		{query: "srv/pool.go", wantErr: true},
		{query: "srv/pool.go:", wantErr: true},
		{query: ":42", wantErr: true},
		{query: "srv/pool.go:abc", wantErr: true},
		{query: "srv/pool.go:0", wantErr: true},
		{query: "srv/pool.go:-5", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			got, err := parseLocation(tc.query)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseLocation(%q) = %+v, want error", tc.query, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLocation(%q): %v", tc.query, err)
			}
			if got != tc.want {
				t.Errorf("parseLocation(%q) = %+v, want %+v", tc.query, got, tc.want)
			}
		})
	}
}

func TestCallersCommand(t *testing.T) {
	root := t.TempDir()
	source := "def leaf():\n    return 1\n\n\ndef middle():\n    return leaf()\n"
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte(source), 0o644); err != nil {
		t.Fatalf("write workspace file: %v", err)
	}

	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"callers", "a.py:2", "--workspace", root})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("callers command: %v", err)
	}
	if !strings.Contains(out.String(), "leaf") {
		t.Errorf("output did not name the enclosing function:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "middle") {
		t.Errorf("output did not list the caller:\n%s", out.String())
	}
}

func TestCodeCommand(t *testing.T) {
	root := t.TempDir()
	content := "line one\nline two\nline three\nline four\nline five\n"
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write workspace file: %v", err)
	}

	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"code", "notes.txt:3", "--workspace", root, "--context", "1"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("code command: %v", err)
	}
	if !strings.Contains(out.String(), "> ") || !strings.Contains(out.String(), "line three") {
		t.Errorf("window missing marked target line:\n%s", out.String())
	}
	if strings.Contains(out.String(), "line five") {
		t.Errorf("window wider than requested context:\n%s", out.String())
	}
}

func TestStackTraceCommandUnknownFile(t *testing.T) {
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"stacktrace", "missing.py:9", "--workspace", t.TempDir()})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("stacktrace command: %v", err)
	}
	if !strings.Contains(out.String(), "error building stack trace") {
		t.Errorf("unknown-file trace missing the error marker:\n%s", out.String())
	}
}
