// Package slog provides logging decorators for docindex services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure LoggingRouteSource implements docindex.RouteSource.
var _ docindex.RouteSource = (*LoggingRouteSource)(nil)

// LoggingRouteSource wraps a RouteSource with logging.
type LoggingRouteSource struct {
	next   docindex.RouteSource
	logger *slog.Logger
}

// NewLoggingRouteSource creates a new LoggingRouteSource.
func NewLoggingRouteSource(next docindex.RouteSource, logger *slog.Logger) *LoggingRouteSource {
	return &LoggingRouteSource{next: next, logger: logger}
}

// Routes delegates to the wrapped source and logs the operation.
func (s *LoggingRouteSource) Routes(ctx context.Context, outDir, baseURL string) (routes []string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("route discovery",
			"dir", outDir,
			"count", len(routes),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Routes(ctx, outDir, baseURL)
}

// Ensure LoggingResolver implements docindex.Resolver.
var _ docindex.Resolver = (*LoggingResolver)(nil)

// LoggingResolver wraps a Resolver with logging.
type LoggingResolver struct {
	next   docindex.Resolver
	logger *slog.Logger
}

// NewLoggingResolver creates a new LoggingResolver.
func NewLoggingResolver(next docindex.Resolver, logger *slog.Logger) *LoggingResolver {
	return &LoggingResolver{next: next, logger: logger}
}

// Resolve delegates to the wrapped resolver and logs the operation.
func (r *LoggingResolver) Resolve(routes []string, outDir, baseURL string, opts docindex.ResolveOptions) (files []docindex.FileDescriptor, meta docindex.ResolveMeta, err error) {
	defer func() {
		r.logger.Info("route resolution",
			"routes", len(routes),
			"files", len(files),
			"excluded", meta.ExcludedCount,
			"err", err,
		)
	}()
	return r.next.Resolve(routes, outDir, baseURL, opts)
}
