// Package fs maps site routes to generated files on disk and persists the
// search artifacts of a build.
package fs

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/docindex"
)

// Ensure Resolver implements docindex.Resolver at compile time.
var _ docindex.Resolver = (*Resolver)(nil)

// Resolver maps routes to the index.html files a static site build writes
// for them.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns one descriptor per indexable route, in route order.
//
// The not-found page is always skipped, and so is the site root unless
// opts.IndexBaseURL is set. A route is excluded when any pattern in
// opts.ExcludeRoutes matches it with or without the baseURL prefix.
func (r *Resolver) Resolve(routes []string, outDir, baseURL string, opts docindex.ResolveOptions) ([]docindex.FileDescriptor, docindex.ResolveMeta, error) {
	var meta docindex.ResolveMeta

	for _, pattern := range opts.ExcludeRoutes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, meta, docindex.Errorf(docindex.EINVALID, "invalid exclude pattern: %q", pattern)
		}
	}

	seen := make(map[string]bool)
	var files []docindex.FileDescriptor
	for _, route := range routes {
		if route == baseURL+"404.html" {
			continue
		}
		if route == baseURL && !opts.IndexBaseURL {
			continue
		}

		rel := strings.TrimPrefix(route, baseURL)
		if excluded(opts.ExcludeRoutes, rel, route) {
			meta.ExcludedCount++
			continue
		}

		path := sourcePath(outDir, rel)
		if !within(outDir, path) {
			return nil, meta, docindex.Errorf(docindex.EINVALID, "path traversal in route: %q", route)
		}
		if seen[path] {
			continue
		}
		seen[path] = true

		files = append(files, docindex.FileDescriptor{SourcePath: path, URL: route})
	}
	return files, meta, nil
}

// excluded reports whether any pattern matches one of the candidates.
// Patterns are validated up front so match errors cannot occur.
func excluded(patterns []string, candidates ...string) bool {
	for _, pattern := range patterns {
		for _, c := range candidates {
			if ok, _ := doublestar.Match(pattern, c); ok {
				return true
			}
		}
	}
	return false
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// sourcePath returns the file serving a route relative to the site root.
func sourcePath(outDir, rel string) string {
	rel = strings.Trim(rel, "/")
	if strings.HasSuffix(rel, ".html") {
		return filepath.Join(outDir, filepath.FromSlash(rel))
	}
	return filepath.Join(outDir, filepath.FromSlash(rel), "index.html")
}
