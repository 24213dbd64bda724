package fs

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/fwojciec/docindex"
)

// Ensure RouteWalker implements docindex.RouteSource at compile time.
var _ docindex.RouteSource = (*RouteWalker)(nil)

// RouteWalker discovers routes by walking a build directory for index.html
// files. The directory holding each file becomes a route.
type RouteWalker struct{}

// NewRouteWalker creates a new RouteWalker.
func NewRouteWalker() *RouteWalker {
	return &RouteWalker{}
}

// Routes returns baseURL joined with every directory under outDir that
// contains an index.html, in lexical order. The root directory maps to
// baseURL itself.
func (w *RouteWalker) Routes(ctx context.Context, outDir, baseURL string) ([]string, error) {
	var routes []string
	err := filepath.WalkDir(outDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "index.html" {
			return nil
		}
		rel, err := filepath.Rel(outDir, filepath.Dir(p))
		if err != nil {
			return err
		}
		if rel == "." {
			routes = append(routes, baseURL)
			return nil
		}
		routes = append(routes, baseURL+path.Clean(filepath.ToSlash(rel)))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "build directory not found: %s", outDir)
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(routes)
	return routes, nil
}
