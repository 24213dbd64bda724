package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/prometheus"
	"github.com/fwojciec/docindex/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Routes    docindex.RouteSource
	Resolver  docindex.Resolver
	Extractor docindex.Extractor
	Metrics   *prometheus.Metrics
	Searcher  docindex.Searcher

	// DB is nil unless a database path was given.
	DB   *sqlite.DB
	Runs *sqlite.RecordService
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  kong.ConfigFlag `help:"Load flag defaults from a YAML file"`
	Verbose bool            `short:"v" help:"Enable debug logging"`
	DB      string          `name:"db" env:"DOCINDEX_DB" help:"SQLite database recording every build"`

	Build  BuildCmd  `cmd:"" help:"Build the search index of a generated site"`
	Search SearchCmd `cmd:"" help:"Query a built search index"`
	Runs   RunsCmd   `cmd:"" help:"List builds recorded in the database"`
}

// Route discovery modes.
const (
	RoutesWalk    = "walk"
	RoutesSitemap = "sitemap"
)

// BuildCmd is the "build" subcommand.
type BuildCmd struct {
	OutDir           string        `arg:"" name:"out-dir" help:"Directory of the generated site"`
	BaseURL          string        `name:"base-url" default:"/" help:"URL prefix the site is served under"`
	ExcludeRoutes    []string      `name:"exclude-routes" help:"Glob of routes to leave out (repeatable)"`
	IndexBaseURL     bool          `name:"index-base-url" help:"Index the site root page"`
	Routes           string        `enum:"walk,sitemap" default:"walk" help:"Route discovery: walk the build or read sitemap.xml"`
	Workers          int           `short:"w" default:"0" help:"Extraction workers (0 picks one per CPU, at least 4)"`
	FileTimeout      time.Duration `name:"file-timeout" default:"30s" help:"Time allowed to extract a single file"`
	AbandonOnFailure bool          `name:"abandon-on-failure" help:"Return on the first failure without waiting for busy workers"`
	Name             string        `default:"search" help:"Name of the artifact directory inside the build"`
	MetricsFile      string        `name:"metrics-file" help:"Write extraction metrics to this file"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	IndexDir string `arg:"" name:"index-dir" help:"Artifact directory written by build"`
	Query    string `arg:"" help:"Search terms"`
	Limit    int    `short:"n" default:"10" help:"Maximum number of results"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	ID    string `arg:"" optional:"" help:"Show the records of this run"`
	Limit int    `short:"n" default:"20" help:"Maximum number of runs"`
}
