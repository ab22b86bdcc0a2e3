// Package cmd provides CLI command implementations for sgindex.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/Benny93/sgindex/internal/config"
	"github.com/Benny93/sgindex/internal/features"
	"github.com/Benny93/sgindex/internal/filter"
	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/ingestion"
	"github.com/Benny93/sgindex/internal/mining"
	"github.com/Benny93/sgindex/internal/parsers"
	"github.com/Benny93/sgindex/internal/pattern"
	"github.com/Benny93/sgindex/internal/storage"
	"github.com/Benny93/sgindex/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App carries the resolved configuration into every command.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

func (a *App) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(a.Out, format+"\n", args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

// workers returns the flag value when set and the configured count otherwise.
func (a *App) workers(flag int) int {
	if flag > 0 {
		return flag
	}
	return a.Config.Matching.Workers
}

// miningOptions applies flag overrides to the configured mining options.
func (a *App) miningOptions(topK, minSupport, workers int) mining.Options {
	opts := a.Config.MiningOptions()
	if topK > 0 {
		opts.TopK = topK
	}
	if minSupport > 0 {
		opts.MinSupport = minSupport
	}
	opts.Workers = a.workers(workers)
	return opts
}

// IdentifyCmd mines the discriminative feature set of a graph database.
type IdentifyCmd struct {
	Graphs     string `arg:"" type:"path" help:"Database graphs (file or directory)"`
	Features   string `arg:"" help:"Output feature file"`
	TopK       int    `name:"top-k" short:"k" help:"Number of features to select (default from config)"`
	MinSupport int    `name:"min-support" help:"Minimum support for a pattern (default from config)"`
	Workers    int    `short:"j" help:"Parallel workers (default from config)"`
	Scores     bool   `help:"Print the selected features with support and score"`
}

// Run executes the identify command.
func (c *IdentifyCmd) Run(app *App) error {
	ctx := context.Background()
	opts := app.miningOptions(c.TopK, c.MinSupport, c.Workers)

	parsed, _, err := ingestion.LoadDataset(ctx, c.Graphs)
	if err != nil {
		return err
	}
	graphs := graph.Dedup(parsed)

	result, err := mining.Mine(ctx, graphs, opts, app.Logger)
	if err != nil {
		return fmt.Errorf("mining: %w", err)
	}

	if err := pattern.SaveFeatureSet(c.Features, result.Features); err != nil {
		return fmt.Errorf("writing features: %w", err)
	}

	app.success("✓ Wrote %d features to %s", len(result.Features), c.Features)
	app.printf("  Graphs:         %d (%d parsed)\n", len(graphs), len(parsed))
	app.printf("  Patterns:       %d distinct, %d ranked\n", result.Distinct, len(result.Ranked))
	app.printf("  Duration:       %.2fs\n", result.Duration.Seconds())

	if c.Scores {
		app.printf("\n")
		for i, sp := range result.Ranked[:len(result.Features)] {
			app.printf("%4d. %-28s support=%d score=%.4f\n", i+1, sp.Pattern, sp.Support, sp.Score)
		}
	}

	return nil
}

// ConvertCmd builds the feature matrix of a graph set.
type ConvertCmd struct {
	Graphs   string `arg:"" type:"path" help:"Graphs to featurize (file or directory)"`
	Features string `arg:"" type:"existingfile" help:"Feature file"`
	Matrix   string `arg:"" help:"Output matrix file"`
	Text     bool   `help:"Write the whitespace-separated text format"`
	Workers  int    `short:"j" help:"Parallel workers (default from config)"`
}

// Run executes the convert command.
func (c *ConvertCmd) Run(app *App) error {
	ctx := context.Background()

	graphs, _, err := ingestion.LoadDataset(ctx, c.Graphs)
	if err != nil {
		return err
	}

	set, err := pattern.LoadFeatureSet(c.Features)
	if err != nil {
		return fmt.Errorf("reading features: %w", err)
	}

	m, err := features.Build(ctx, graphs, set, app.workers(c.Workers))
	if err != nil {
		return fmt.Errorf("building matrix: %w", err)
	}

	save := features.Save
	if c.Text {
		save = features.SaveText
	}
	if err := save(c.Matrix, m); err != nil {
		return fmt.Errorf("writing matrix: %w", err)
	}

	rows, cols := m.Dims()
	app.success("✓ Wrote %dx%d feature matrix to %s", rows, cols, c.Matrix)
	return nil
}

// CandidatesCmd filters query matrices against a database matrix.
type CandidatesCmd struct {
	Database string `arg:"" type:"existingfile" help:"Database feature matrix"`
	Queries  string `arg:"" type:"existingfile" help:"Query feature matrix"`
	Out      string `arg:"" help:"Output candidate file"`
	Workers  int    `short:"j" help:"Parallel workers (default from config)"`
}

// Run executes the candidates command.
func (c *CandidatesCmd) Run(app *App) error {
	ctx := context.Background()

	db, err := features.Load(c.Database)
	if err != nil {
		return fmt.Errorf("reading database matrix: %w", err)
	}
	queries, err := features.Load(c.Queries)
	if err != nil {
		return fmt.Errorf("reading query matrix: %w", err)
	}

	results, err := filter.Filter(ctx, db, queries, filter.Options{
		Workers: app.workers(c.Workers),
		Logger:  app.Logger,
	})
	if err != nil {
		return err
	}

	if err := filter.SaveCandidates(c.Out, results); err != nil {
		return fmt.Errorf("writing candidates: %w", err)
	}

	report := filter.Summarize(results, db.Rows(), 0)
	app.success("✓ Wrote candidates for %d queries to %s", len(results), c.Out)
	app.printf("  Mean candidates: %.2f of %d\n", report.Mean, db.Rows())
	if n := countFallback(results); n > 0 {
		app.printf("  Fallback:        %d queries kept the full database\n", n)
	}
	return nil
}

// DedupCmd removes repeated graphs from a dataset.
type DedupCmd struct {
	Graphs string `arg:"" type:"path" help:"Graphs (file or directory)"`
	Out    string `arg:"" help:"Output record file"`
}

// Run executes the dedup command.
func (c *DedupCmd) Run(app *App) error {
	parsed, _, err := ingestion.LoadDataset(context.Background(), c.Graphs)
	if err != nil {
		return err
	}

	graphs := graph.Dedup(parsed)
	if err := parsers.WriteRecordsFile(c.Out, graphs); err != nil {
		return fmt.Errorf("writing graphs: %w", err)
	}

	app.success("✓ Kept %d of %d graphs", len(graphs), len(parsed))
	return nil
}

// ReportCmd prints candidate set statistics.
type ReportCmd struct {
	Candidates string `arg:"" type:"existingfile" help:"Candidate file"`
	DBSize     int    `name:"db-size" help:"Database size, enables full-range and prune statistics"`
	Top        int    `default:"20" help:"Number of largest candidate sets to list"`
	JSON       bool   `help:"Output JSON"`
}

// Run executes the report command.
func (c *ReportCmd) Run(app *App) error {
	results, err := filter.LoadCandidates(c.Candidates)
	if err != nil {
		return err
	}

	report := filter.Summarize(results, c.DBSize, c.Top)
	if c.JSON {
		app.printf("%s\n", toJSON(report))
		return nil
	}

	if report.Queries == 0 {
		app.printf("No queries in %s\n", c.Candidates)
		return nil
	}

	app.printf("Candidate set sizes over %d queries\n", report.Queries)
	app.printf("  Min:            %.0f\n", report.Min)
	app.printf("  Max:            %.0f\n", report.Max)
	app.printf("  Mean:           %.2f\n", report.Mean)
	app.printf("  Median:         %.1f\n", report.Median)
	app.printf("  Empty:          %d\n", report.Zero)
	if c.DBSize > 0 {
		app.printf("  Full range:     %d\n", report.FullRange)
		app.printf("  Pruned:         %.1f%%\n", report.PruneRatio*100)
	}

	if len(report.Largest) > 0 {
		app.printf("\nLargest candidate sets:\n")
		for _, qs := range report.Largest {
			app.printf("  q %-6d %d\n", qs.QueryID, qs.Size)
		}
	}
	return nil
}

// IndexCmd builds the persistent index of a graph database.
type IndexCmd struct {
	Dataset    string `arg:"" type:"path" help:"Database graphs (file or directory)"`
	TopK       int    `name:"top-k" short:"k" help:"Number of features to select (default from config)"`
	MinSupport int    `name:"min-support" help:"Minimum support for a pattern (default from config)"`
	Workers    int    `short:"j" help:"Parallel workers (default from config)"`
}

// Run executes the index command.
func (c *IndexCmd) Run(app *App) error {
	ctx := context.Background()

	datasetPath, err := filepath.Abs(c.Dataset)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	store, err := openStorage(app.Config.Index.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	app.success("Indexing %s", datasetPath)

	progress := func(phase string, pct float64) {
		app.printf("\r\033[K%s (%.0f%%)", phase, pct*100)
	}

	_, result, err := ingestion.RunPipeline(ctx, datasetPath, store, ingestion.PipelineOptions{
		Mining:  app.miningOptions(c.TopK, c.MinSupport, c.Workers),
		Version: Version,
		Logger:  app.Logger,
	}, progress)
	if err != nil {
		app.printf("\n")
		return fmt.Errorf("running pipeline: %w", err)
	}

	app.printf("\n") // Newline after progress

	app.success("\n✓ Indexing complete")
	printPipelineResult(app, result)
	return nil
}

func printPipelineResult(app *App, result *ingestion.PipelineResult) {
	app.printf("  Files:          %d\n", result.Files)
	app.printf("  Graphs:         %d (%d parsed)\n", result.Graphs, result.Parsed)
	app.printf("  Patterns:       %d\n", result.Patterns)
	app.printf("  Features:       %d\n", result.Features)
	app.printf("  Duration:       %.2fs\n", result.DurationSecs)
}

// QueryCmd filters query graphs against the stored index.
type QueryCmd struct {
	Queries string `arg:"" type:"path" help:"Query graphs (file or directory)"`
	Out     string `short:"o" help:"Output candidate file (default stdout)"`
	Workers int    `short:"j" help:"Parallel workers (default from config)"`
}

// Run executes the query command.
func (c *QueryCmd) Run(app *App) error {
	ctx := context.Background()

	store, err := loadStorage(app.Config.Index.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	queries, _, err := ingestion.LoadDataset(ctx, c.Queries)
	if err != nil {
		return err
	}

	out, err := ingestion.RunQuery(ctx, store, queries, app.workers(c.Workers), app.Logger)
	if err != nil {
		return err
	}

	if c.Out == "" {
		return filter.WriteCandidates(app.Out, out.Results)
	}

	if err := filter.SaveCandidates(c.Out, out.Results); err != nil {
		return fmt.Errorf("writing candidates: %w", err)
	}

	app.success("✓ Wrote candidates for %d queries to %s", len(out.Results), c.Out)
	if n := countFallback(out.Results); n > 0 {
		app.printf("  Fallback:       %d\n", n)
	}
	if len(out.Exact) > 0 {
		app.printf("  Exact matches:  %d\n", len(out.Exact))
	}
	return nil
}

// WatchCmd rebuilds the index when the dataset changes.
type WatchCmd struct {
	Dataset string `arg:"" type:"path" help:"Database graphs (file or directory)"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(app *App) error {
	datasetPath, err := filepath.Abs(c.Dataset)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	store, err := openStorage(app.Config.Index.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts := ingestion.PipelineOptions{
		Mining:  app.Config.MiningOptions(),
		Version: Version,
		Logger:  app.Logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		<-osSignalChannel()
		app.printf("\nStopping watch mode...\n")
		cancel()
	}()

	if _, err := store.GetMeta(ctx); errors.Is(err, storage.ErrIndexNotFound) {
		app.printf("No index yet, building it first\n")
		_, result, err := ingestion.RunPipeline(ctx, datasetPath, store, opts, nil)
		if err != nil {
			return fmt.Errorf("running pipeline: %w", err)
		}
		printPipelineResult(app, result)
	}

	app.printf("## Watch Mode\n")
	app.printf("Watching %s for changes (Ctrl+C to stop)\n\n", datasetPath)

	err = ingestion.WatchDataset(ctx, datasetPath, store, ingestion.WatchOptions{
		Pipeline: opts,
		OnRebuild: func(result *ingestion.PipelineResult, err error) {
			if err != nil {
				color.New(color.FgRed).Fprintf(app.Out, "Rebuild failed: %v\n", err)
				return
			}
			app.success("✓ Rebuilt index at %s", time.Now().Format("15:04:05"))
			printPipelineResult(app, result)
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	app.printf("Watch mode stopped.\n")
	return nil
}

// MCPCmd starts the MCP server on stdio.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(app *App) error {
	store, err := loadStorage(app.Config.Index.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-osSignalChannel()
		cancel()
	}()

	mcp.Version = Version
	server := mcp.NewServer(store, app.Logger)

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	return server.RunStdio(ctx)
}

// StatusCmd shows the stored index metadata.
type StatusCmd struct {
	JSON bool `help:"Output JSON"`
}

// Run executes the status command.
func (c *StatusCmd) Run(app *App) error {
	store, err := loadStorage(app.Config.Index.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	meta, err := store.GetMeta(context.Background())
	if err != nil {
		return err
	}

	if c.JSON {
		app.printf("%s\n", toJSON(meta))
		return nil
	}

	app.printf("Index status for %s\n", app.Config.Index.Dir)
	app.printf("  Dataset:        %s\n", meta.Dataset)
	app.printf("  Run:            %s\n", meta.RunID)
	app.printf("  Version:        %s\n", meta.Version)
	app.printf("  Last indexed:   %s\n", meta.IndexedAt.Format(time.RFC3339))
	app.printf("  Graphs:         %d (%d parsed)\n", store.GraphCount(), meta.Parsed)
	app.printf("  Features:       %d of %d patterns\n", store.FeatureCount(), meta.Patterns)
	app.printf("  Top-k:          %d\n", meta.TopK)
	app.printf("  Min support:    %d\n", meta.MinSupport)
	return nil
}

// CleanCmd deletes the stored index.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(app *App) error {
	dir := app.Config.Index.Dir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s. Nothing to clean", dir)
	}

	if !c.Force {
		app.printf("Delete index at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			app.printf("Aborted\n")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}

	app.success("Deleted %s", dir)
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// openStorage opens the index for writing, creating it when missing.
func openStorage(indexDir string) (*storage.BadgerBackend, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", indexDir, err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(indexDir, "badger"), false); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// loadStorage opens an existing index read-only.
func loadStorage(indexDir string) (*storage.BadgerBackend, error) {
	dbPath := filepath.Join(indexDir, "badger")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s. Run 'sgindex index <dataset>' first", storage.ErrIndexNotFound, indexDir)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, true); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return store, nil
}

func countFallback(results []filter.Result) int {
	n := 0
	for _, r := range results {
		if r.Fallback {
			n++
		}
	}
	return n
}

func toJSON(v any) string {
	bytes, _ := json.MarshalIndent(v, "", "  ")
	return string(bytes)
}

// CLI is the root Kong command structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version information"`
	Config   string           `short:"c" type:"path" help:"Config file (default ./sgindex.toml when present)"`
	IndexDir string           `name:"index-dir" type:"path" help:"Index directory (default from config)"`
	Verbose  bool             `short:"v" help:"Enable verbose output"`
	Quiet    bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Identify   IdentifyCmd   `cmd:"" help:"Mine discriminative features from a graph database"`
	Convert    ConvertCmd    `cmd:"" help:"Build the feature matrix of a graph set"`
	Candidates CandidatesCmd `cmd:"" help:"Filter query matrices against a database matrix"`
	Dedup      DedupCmd      `cmd:"" help:"Remove repeated graphs from a dataset"`
	Report     ReportCmd     `cmd:"" help:"Show candidate set statistics"`
	Index      IndexCmd      `cmd:"" help:"Build the persistent index of a graph database"`
	Query      QueryCmd      `cmd:"" help:"Filter query graphs against the index"`
	Watch      WatchCmd      `cmd:"" help:"Watch mode with live re-indexing"`
	MCP        MCPCmd        `cmd:"" help:"Start MCP server (stdio transport)"`
	Status     StatusCmd     `cmd:"" help:"Show index status"`
	Clean      CleanCmd      `cmd:"" help:"Delete the index"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	return c.execute(args, os.Stdout)
}

func (c *CLI) execute(args []string, out io.Writer) error {
	parser, err := kong.New(c,
		kong.Name("sgindex"),
		kong.Description("Discriminative subgraph features for graph containment search"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	app, err := c.newApp(out)
	if err != nil {
		return err
	}

	return kongCtx.Run(app)
}

// newApp resolves configuration from the .env file, the config file, the
// environment and global flags, in that order.
func (c *CLI) newApp(out io.Writer) (*App, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, err
	}

	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.IndexDir != "" {
		cfg.Index.Dir = c.IndexDir
	}

	logger := cfg.CreateLogger(os.Stderr)
	switch {
	case c.Verbose:
		logger = logger.Level(zerolog.DebugLevel)
	case c.Quiet:
		logger = logger.Level(zerolog.WarnLevel)
	}

	return &App{Config: cfg, Logger: logger, Out: out}, nil
}
