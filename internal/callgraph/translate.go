package callgraph

import (
	"path/filepath"
	"regexp"
	"strings"
)

// containerRoots are application roots commonly seen in paths reported
// by containerized services.
var containerRoots = []string{
	"/app/",
	"/usr/src/app/",
	"/workspace/",
	"/srv/",
}

// versionedDir matches dependency directories like "requests-2.31.0".
var versionedDir = regexp.MustCompile(`^(.+)-\d+(\.\d+)*$`)

// TranslatePath maps an externally-reported path (packaged dependency
// roots, container application roots) to an ordered list of plausible
// local equivalents. It is a pure heuristic: the caller tries each
// candidate in order and accepts the first that exists on disk. The
// untranslated path is always the final fallback.
func (r *Resolver) TranslatePath(reported string) []string {
	reported = strings.TrimSpace(reported)
	if reported == "" {
		return nil
	}
	normalized := filepath.ToSlash(reported)

	candidates := make([]string, 0, 6)
	add := func(path string) {
		if path == "" {
			return
		}
		for _, existing := range candidates {
			if existing == path {
				return
			}
		}
		candidates = append(candidates, path)
	}

	// Container application roots: /app/pkg/mod.py -> <root>/pkg/mod.py.
	for _, prefix := range containerRoots {
		if strings.HasPrefix(normalized, prefix) {
			add(filepath.Join(r.root, filepath.FromSlash(strings.TrimPrefix(normalized, prefix))))
		}
	}

	// Packaged dependency roots: keep what follows site-packages or
	// dist-packages.
	for _, marker := range []string{"site-packages/", "dist-packages/"} {
		if idx := strings.Index(normalized, marker); idx != -1 {
			add(filepath.Join(r.root, filepath.FromSlash(normalized[idx+len(marker):])))
		}
	}

	// Versioned dependency directories: lib/requests-2.31.0/api.py is
	// globbed as requests-*/api.py under the workspace.
	for _, globbed := range r.expandVersionedDirs(normalized) {
		add(globbed)
	}

	if !filepath.IsAbs(reported) {
		add(filepath.Join(r.root, filepath.FromSlash(normalized)))
	}
	add(filepath.Join(r.root, filepath.Base(normalized)))

	// Untranslated fallback, always last.
	if filepath.IsAbs(reported) {
		add(reported)
	} else {
		add(filepath.Join(r.root, filepath.FromSlash(normalized)))
	}

	return candidates
}

func (r *Resolver) expandVersionedDirs(normalized string) []string {
	segments := strings.Split(strings.TrimPrefix(normalized, "/"), "/")
	out := make([]string, 0)
	for i, segment := range segments {
		m := versionedDir.FindStringSubmatch(segment)
		if m == nil {
			continue
		}
		rest := strings.Join(segments[i+1:], "/")
		if rest == "" {
			continue
		}
		pattern := filepath.Join(r.root, m[1]+"-*", filepath.FromSlash(rest))
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		out = append(out, matches...)
		// Also try the unversioned package name directly.
		out = append(out, filepath.Join(r.root, m[1], filepath.FromSlash(rest)))
	}
	return out
}
