package docindex

import "context"

// ResolveOptions configures which routes are turned into file descriptors.
type ResolveOptions struct {
	// ExcludeRoutes holds glob patterns; matching routes are skipped.
	ExcludeRoutes []string `json:"excludeRoutes"`

	// IndexBaseURL includes the site root page, which is skipped by default.
	IndexBaseURL bool `json:"indexBaseUrl"`
}

// ResolveMeta reports diagnostics about a resolution.
type ResolveMeta struct {
	ExcludedCount int
}

// Resolver maps site routes to the generated files that serve them.
type Resolver interface {
	Resolve(routes []string, outDir, baseURL string, opts ResolveOptions) ([]FileDescriptor, ResolveMeta, error)
}

// RouteSource lists the routes of a generated site.
type RouteSource interface {
	Routes(ctx context.Context, outDir, baseURL string) ([]string, error)
}
