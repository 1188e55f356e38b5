package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("provider: openai\nmodel: gpt-4o\nmax_iterations: 25\nspacing: 500ms\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Provider = "openai"
	want.Model = "gpt-4o"
	want.MaxIterations = 25
	want.Spacing = 500 * time.Millisecond
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("provider: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load on malformed yaml returned nil error")
	}
}

func TestMergeIgnoresZeroValues(t *testing.T) {
	cfg := Default()
	cfg.merge(Config{PageSize: -1, MaxIterations: 0, Provider: ""})
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("zero values overwrote defaults (-want +got):\n%s", diff)
	}
}

func TestDefaultPaginationIsConsistent(t *testing.T) {
	cfg := Default()
	if cfg.PageSize <= cfg.OverlapSize {
		t.Errorf("page_size %d must exceed overlap_size %d", cfg.PageSize, cfg.OverlapSize)
	}
	if cfg.MaxIterations <= 0 {
		t.Errorf("max_iterations = %d, want positive", cfg.MaxIterations)
	}
}
