package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.Resolver = (*Resolver)(nil)

// Resolver is a mock implementation of docindex.Resolver.
type Resolver struct {
	ResolveFn func(routes []string, outDir, baseURL string, opts docindex.ResolveOptions) ([]docindex.FileDescriptor, docindex.ResolveMeta, error)
}

func (r *Resolver) Resolve(routes []string, outDir, baseURL string, opts docindex.ResolveOptions) ([]docindex.FileDescriptor, docindex.ResolveMeta, error) {
	return r.ResolveFn(routes, outDir, baseURL, opts)
}

var _ docindex.RouteSource = (*RouteSource)(nil)

// RouteSource is a mock implementation of docindex.RouteSource.
type RouteSource struct {
	RoutesFn func(ctx context.Context, outDir, baseURL string) ([]string, error)
}

func (s *RouteSource) Routes(ctx context.Context, outDir, baseURL string) ([]string, error) {
	return s.RoutesFn(ctx, outDir, baseURL)
}
