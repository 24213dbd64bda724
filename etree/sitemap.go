// Package etree discovers site routes from the sitemap files of a build.
package etree

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docindex"
)

// SitemapFile is the name of the root sitemap in a build directory.
const SitemapFile = "sitemap.xml"

// Ensure SitemapSource implements docindex.RouteSource at compile time.
var _ docindex.RouteSource = (*SitemapSource)(nil)

// SitemapSource lists routes from outDir/sitemap.xml. Sitemap indexes are
// followed as long as the nested sitemaps live in the same build.
type SitemapSource struct{}

// NewSitemapSource creates a new SitemapSource.
func NewSitemapSource() *SitemapSource {
	return &SitemapSource{}
}

// Routes returns the routes of every <loc> entry whose path lies under the
// path of baseURL, in sitemap order without duplicates. Each route is
// baseURL followed by the loc path relative to it.
func (s *SitemapSource) Routes(ctx context.Context, outDir, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid base URL: %q", baseURL)
	}
	prefix := base.Path
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	w := &walk{
		outDir:  outDir,
		baseURL: baseURL,
		prefix:  prefix,
		seen:    make(map[string]bool),
		visited: make(map[string]bool),
	}
	if err := w.sitemap(ctx, filepath.Join(outDir, SitemapFile)); err != nil {
		return nil, err
	}
	return w.routes, nil
}

type walk struct {
	outDir  string
	baseURL string
	prefix  string
	routes  []string
	seen    map[string]bool
	visited map[string]bool
}

// sitemap processes one sitemap file, handling both urlset and sitemapindex.
func (w *walk) sitemap(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.visited[path] {
		return nil
	}
	w.visited[path] = true

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return docindex.Errorf(docindex.ENOTFOUND, "sitemap not found: %s", path)
		}
		return fmt.Errorf("parsing sitemap XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return fmt.Errorf("empty sitemap XML: %s", path)
	}

	if root.Tag == "sitemapindex" {
		for _, loc := range locs(root, "sitemap") {
			rel, ok := w.relative(loc)
			if !ok {
				continue
			}
			if err := w.sitemap(ctx, filepath.Join(w.outDir, filepath.FromSlash(rel))); err != nil {
				return err
			}
		}
		return nil
	}

	for _, loc := range locs(root, "url") {
		rel, ok := w.relative(loc)
		if !ok {
			continue
		}
		route := w.baseURL + rel
		if w.seen[route] {
			continue
		}
		w.seen[route] = true
		w.routes = append(w.routes, route)
	}
	return nil
}

// relative returns the path of loc relative to the base path. Locations
// outside the base path are rejected.
func (w *walk) relative(loc string) (string, bool) {
	u, err := url.Parse(loc)
	if err != nil {
		return "", false
	}
	p := u.Path
	if p+"/" == w.prefix {
		return "", true
	}
	if !strings.HasPrefix(p, w.prefix) {
		return "", false
	}
	return strings.TrimPrefix(p, w.prefix), true
}

// locs returns the trimmed, non-empty <loc> text of every child element
// named tag.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if u := strings.TrimSpace(loc.Text()); u != "" {
			out = append(out, u)
		}
	}
	return out
}
