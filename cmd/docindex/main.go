package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/bleve"
	"github.com/fwojciec/docindex/etree"
	"github.com/fwojciec/docindex/fs"
	"github.com/fwojciec/docindex/goquery"
	"github.com/fwojciec/docindex/prometheus"
	dislog "github.com/fwojciec/docindex/slog"
	"github.com/fwojciec/docindex/sqlite"
	"github.com/fwojciec/docindex/yaml"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database, opened when a database path is configured.
	DB *sqlite.DB

	closers []func() error
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docindex"),
		kong.Description("Build and query offline search indexes for generated documentation sites"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Configuration(yaml.Loader),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docindex --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	defer m.Close()

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
	}

	if cli.DB != "" {
		m.DB = sqlite.NewDB(cli.DB)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintln(stderr, "Hint: Set DOCINDEX_DB or --db to use a different database path")
			return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
		}
		m.closers = append(m.closers, m.DB.Close)
		deps.DB = m.DB
		deps.Runs = sqlite.NewRecordService(m.DB)
	}

	switch cmd := kongCtx.Command(); {
	case strings.HasPrefix(cmd, "build"):
		deps.Routes = dislog.NewLoggingRouteSource(routeSource(cli.Build.Routes), logger)
		deps.Resolver = dislog.NewLoggingResolver(fs.NewResolver(), logger)
		deps.Metrics = prometheus.NewMetrics()
		deps.Extractor = deps.Metrics.InstrumentExtractor(
			dislog.NewLoggingExtractor(goquery.NewExtractor(goquery.WithLogger(logger)), logger),
		)

	case strings.HasPrefix(cmd, "search"):
		searcher, err := bleve.OpenSearcher(filepath.Join(cli.Search.IndexDir, fs.IndexDir))
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Run 'docindex build' first")
			return fmt.Errorf("failed to open index in %q: %w", cli.Search.IndexDir, err)
		}
		m.closers = append(m.closers, searcher.Close)
		deps.Searcher = searcher
	}

	return kongCtx.Run(deps)
}

func routeSource(mode string) docindex.RouteSource {
	if mode == RoutesSitemap {
		return etree.NewSitemapSource()
	}
	return fs.NewRouteWalker()
}
