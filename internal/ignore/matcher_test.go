package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatcher_DefaultAndUserOverrides(t *testing.T) {
	m := NewMatcher([]string{
		"vendor/**",
		"!vendor/keep/file.go",
		"*.tmp",
	})

	cases := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{path: ".git/config", isDir: false, ignored: true},
		{path: ".traceback/logs/session.log", isDir: false, ignored: true},
		{path: "node_modules/pkg/index.js", isDir: false, ignored: true},
		{path: "__pycache__/mod.cpython-312.pyc", isDir: false, ignored: true},
		{path: "vendor/lib/a.go", isDir: false, ignored: true},
		{path: "vendor/keep/file.go", isDir: false, ignored: false},
		{path: "nested/cache.tmp", isDir: false, ignored: true},
		{path: "src/main.go", isDir: false, ignored: false},
		{path: "app/handlers.py", isDir: false, ignored: false},
	}

	for _, tc := range cases {
		got := m.ShouldIgnore(tc.path, tc.isDir)
		if got != tc.ignored {
			t.Fatalf("path %s: expected ignored=%v, got %v", tc.path, tc.ignored, got)
		}
	}
}

func TestMatcher_NegatedDirectoryRule(t *testing.T) {
	m := NewMatcher([]string{
		"build/",
		"!build/include/",
	})

	if !m.ShouldIgnore("build/out/file.go", false) {
		t.Fatalf("expected build/out/file.go to be ignored")
	}
	if m.ShouldIgnore("build/include/file.go", false) {
		t.Fatalf("expected build/include/file.go to be included")
	}
}

func TestLoadWorkspaceRules(t *testing.T) {
	root := t.TempDir()

	gitignore := "# build output\nout/\n*.log\ncoverage/\n"
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0644); err != nil {
		t.Fatal(err)
	}
	own := "fixtures/\n!fixtures/golden/\n"
	if err := os.WriteFile(filepath.Join(root, ".tracebackignore"), []byte(own), 0644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadWorkspaceRules(root)
	if err != nil {
		t.Fatalf("LoadWorkspaceRules: %v", err)
	}

	want := []string{"out/", "coverage/", "fixtures/", "!fixtures/golden/"}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d: %v", len(want), len(rules), rules)
	}
	for i, rule := range want {
		if rules[i] != rule {
			t.Fatalf("rule %d: expected %q, got %q", i, rule, rules[i])
		}
	}

	m := NewMatcher(rules)
	if !m.ShouldIgnore("out/app.bin", false) {
		t.Fatalf("expected out/ contents to be ignored")
	}
	if m.ShouldIgnore("app.log", false) {
		t.Fatalf("non-directory gitignore patterns should not be imported")
	}
}

func TestLoadWorkspaceRules_MissingFiles(t *testing.T) {
	rules, err := LoadWorkspaceRules(t.TempDir())
	if err != nil {
		t.Fatalf("LoadWorkspaceRules: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected no rules, got %v", rules)
	}
}
