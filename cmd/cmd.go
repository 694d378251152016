// Package cmd provides CLI command implementations for corrnet.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/corrnet-go/internal/config"
	"github.com/Benny93/corrnet-go/internal/graph"
	"github.com/Benny93/corrnet-go/internal/logging"
	"github.com/Benny93/corrnet-go/internal/metrics"
	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/pipeline"
	"github.com/Benny93/corrnet-go/internal/query"
	"github.com/Benny93/corrnet-go/internal/rank"
	"github.com/Benny93/corrnet-go/internal/storage"
	"github.com/Benny93/corrnet-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App carries what every command needs once flags and config are resolved.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Out     io.Writer
	Err     io.Writer
	Quiet   bool
	Verbose bool
}

func (a *App) common() pipeline.Common {
	c := pipeline.Common{
		Workers: a.Config.Workers,
		Logger:  a.Logger,
	}
	if a.Verbose && !a.Quiet {
		c.Progress = func(phase string, pct float64) {
			if pct == 0 {
				fmt.Fprintf(a.Err, "%s...\n", phase)
			}
		}
	}
	return c
}

// success prints a green headline unless quiet.
func (a *App) success(format string, args ...any) {
	if a.Quiet {
		return
	}
	color.New(color.FgGreen).Fprintf(a.Out, format+"\n", args...)
}

// detail prints a summary line unless quiet.
func (a *App) detail(format string, args ...any) {
	if a.Quiet {
		return
	}
	fmt.Fprintf(a.Out, format+"\n", args...)
}

func (a *App) warn(format string, args ...any) {
	if a.Quiet {
		return
	}
	color.New(color.FgYellow).Fprintf(a.Err, format+"\n", args...)
}

// CutoffFlags are the read-time edge filters shared by commands that read
// persisted networks.
type CutoffFlags struct {
	RankCutoff *float64 `name:"rank-cutoff" help:"Keep edges with rank <= this value"`
	PCCCutoff  *float64 `name:"pcc-cutoff" help:"Keep edges with corr >= this value"`
	AbsPCC     bool     `name:"abs-pcc" help:"Compare |corr| against --pcc-cutoff"`
}

// Filter returns the parsers.Filter for the flags. AbsPCC also follows the
// query.abs_pcc config value.
func (f CutoffFlags) Filter(cfg config.Config) parsers.Filter {
	return parsers.Filter{
		Rank:   f.RankCutoff,
		PCC:    f.PCCCutoff,
		AbsPCC: f.AbsPCC || cfg.Query.AbsPCC,
	}
}

// ConstructCmd builds a network from an expression matrix.
type ConstructCmd struct {
	Input       string   `arg:"" type:"existingfile" help:"Expression CSV: gene ids in the first column, one column per sample"`
	Output      string   `short:"o" help:"Output network CSV (default hrr_based_network.csv or mr_based_network.csv)"`
	Method      string   `short:"m" help:"Rank reconciliation (hrr|mr)"`
	RankPolicy  string   `name:"rank-policy" help:"Rank rows by |corr| or signed corr (abs|signed)"`
	Log2        bool     `negatable:"" help:"Transform values with log2(x + pseudocount) first; --no-log2 overrides the config file"`
	Pseudocount *float64 `help:"Pseudocount added before log2"`
	DDOF        *int     `name:"ddof" help:"Delta degrees of freedom for the variance filter (0 or 1)"`
	RankCutoff  *float64 `name:"rank-cutoff" help:"Keep edges with rank <= this value"`
	PCCCutoff   *float64 `name:"pcc-cutoff" help:"Keep edges with |corr| >= this value"`
}

// Run executes the construct command.
func (c *ConstructCmd) Run(app *App, kctx *kong.Context) error {
	cfg := app.Config.Construct

	method, err := graph.ParseMethod(pick(c.Method, cfg.Method))
	if err != nil {
		return err
	}
	policy, err := rank.ParsePolicy(pick(c.RankPolicy, cfg.RankPolicy))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := pipeline.Construct(ctx, pipeline.ConstructOptions{
		Common:      app.common(),
		Input:       c.Input,
		Output:      c.Output,
		Method:      method,
		Policy:      policy,
		Log2:        pickBool(flagSet(kctx, "log2"), c.Log2, cfg.Log2),
		Pseudocount: pickFloat(c.Pseudocount, cfg.Pseudocount),
		DDOF:        pickInt(c.DDOF, cfg.DDOF),
		RankCutoff:  pickPtr(c.RankCutoff, cfg.RankCutoff),
		PCCCutoff:   pickPtr(c.PCCCutoff, cfg.PCCCutoff),
	})
	if err != nil {
		return fmt.Errorf("construct: %w", err)
	}

	app.success("✓ %s network written to %s", method, res.Output)
	app.detail("  Genes:          %d", res.Genes)
	app.detail("  Samples:        %d", res.Samples)
	app.detail("  Dropped genes:  %d", len(res.Dropped))
	app.detail("  Edges:          %d", res.Stats.Edges)
	app.detail("  Skipped (pcc):  %d", res.Stats.SkippedPCC)
	app.detail("  Skipped (rank): %d", res.Stats.SkippedRank)
	app.detail("  Isolated genes: %d", res.Graph.Isolated)
	if res.Undefined > 0 {
		app.warn("%d correlations were undefined and treated as 0", res.Undefined)
	}
	return nil
}

// ExtractCmd filters a persisted network.
type ExtractCmd struct {
	Input    string `arg:"" type:"existingfile" help:"Network CSV (gene_1,gene_2,corr,rank)"`
	Output   string `short:"o" help:"Output network CSV (default extracted_network.csv)"`
	GeneList string `name:"genes" short:"g" type:"existingfile" help:"CSV whose first column lists the genes to keep"`
	Mode     string `enum:"both,any" default:"both" help:"Keep edges with both or any endpoint in the gene list"`

	CutoffFlags `embed:""`
}

// Run executes the extract command.
func (c *ExtractCmd) Run(app *App) error {
	mode, err := pipeline.ParseGeneFilterMode(c.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := pipeline.Extract(ctx, pipeline.ExtractOptions{
		Common:   app.common(),
		Input:    c.Input,
		Output:   c.Output,
		GeneList: c.GeneList,
		Mode:     mode,
		Filter:   c.Filter(app.Config),
	})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	app.success("✓ Extracted network written to %s", res.Output)
	app.detail("  Edges read:     %d", res.Read)
	app.detail("  Edges kept:     %d", res.Kept)
	if c.GeneList != "" {
		app.detail("  Listed genes:   %d", res.Genes)
	}
	return nil
}

// CodonUsageCmd scores a network against codon usage similarity.
type CodonUsageCmd struct {
	Network string   `arg:"" type:"existingfile" help:"Network CSV to score"`
	FASTA   string   `arg:"" name:"fasta" type:"existingfile" help:"FASTA of coding sequences, ids matching network genes"`
	Percent     *float64 `short:"p" help:"Share of the common gene count used as the cosmix prefix length k"`
	ExcludeSelf bool     `name:"exclude-self" help:"Leave each gene out of its own codon usage order"`

	CutoffFlags `embed:""`
}

// Help implements kong.HelpProvider.
func (c *CodonUsageCmd) Help() string {
	return "Genes with fewer than k network partners are skipped and counted " +
		"under 'Fewer than k'; the command only fails when no gene can be scored."
}

// Run executes the codon-usage command.
func (c *CodonUsageCmd) Run(app *App) error {
	policy, err := rank.ParsePolicy(app.Config.Construct.RankPolicy)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := pipeline.CodonScore(ctx, pipeline.CodonOptions{
		Common:      app.common(),
		Network:     c.Network,
		FASTA:       c.FASTA,
		Percent:     pickFloat(c.Percent, app.Config.Codon.Percent),
		Policy:      policy,
		Filter:      c.Filter(app.Config),
		ExcludeSelf: c.ExcludeSelf,
	})
	if err != nil {
		return fmt.Errorf("codon-usage: %w", err)
	}

	// The score line is the command's result and is printed even when quiet.
	fmt.Fprintf(app.Out, "Codon Score: %s\n", parsers.FormatCorr(res.Score))
	app.detail("  k:              %d", res.K)
	app.detail("  Genes scored:   %d", res.Scored)
	app.detail("  Not in network: %d", res.MissingInNet)
	app.detail("  Fewer than k:   %d", res.ShorterThanK)
	if res.UndefinedCorr > 0 {
		app.warn("%d codon correlations were undefined and treated as 0", res.UndefinedCorr)
	}
	return nil
}

// QueryCmd lists the edges around a gene.
type QueryCmd struct {
	Gene    string `arg:"" help:"Gene to start from"`
	Network string `arg:"" optional:"" type:"existingfile" help:"Network CSV; omit to read the index given by --store"`
	Store   string `short:"s" help:"Badger index directory built by 'corrnet index'"`
	Depth   *int   `short:"d" help:"Number of steps to follow (default 1)"`
	Mode    string `help:"walk may revisit genes; simple-path never re-enters a gene on the current path"`
	Unique  bool   `short:"u" help:"Report every gene pair once"`
	Output  string `short:"o" help:"Write records to this CSV instead of stdout"`

	CutoffFlags `embed:""`
}

// Run executes the query command.
func (c *QueryCmd) Run(app *App) error {
	mode, err := query.ParseMode(pick(c.Mode, app.Config.Query.Mode))
	if err != nil {
		return err
	}
	depth := pickInt(c.Depth, app.Config.Query.Depth)
	filter := c.Filter(app.Config)

	ctx, cancel := signalContext()
	defer cancel()

	// Cutoffs apply at read time for both sources, so a gene whose edges
	// all fail them yields no records rather than an unknown-gene error.
	var store storage.NetworkStore
	switch {
	case c.Network != "":
		mem := storage.NewMemoryBackend()
		if _, err := pipeline.Index(ctx, mem, c.Network, parsers.Filter{}, app.common()); err != nil {
			return err
		}
		store = mem
	case c.Store != "":
		var err error
		store, err = openStore(c.Store, app.Config.Store.CacheSize)
		if err != nil {
			return err
		}
	default:
		return errors.New("query needs a network CSV or --store")
	}
	defer func() { _ = store.Close() }()

	records, err := query.Search(ctx, query.Filtered(store, filter), c.Gene, depth, mode)
	if errors.Is(err, query.ErrUnknownGene) {
		metrics.Queries.WithLabelValues("unknown_gene").Inc()
		return err
	}
	if err != nil {
		metrics.Queries.WithLabelValues("error").Inc()
		return err
	}
	metrics.Queries.WithLabelValues("ok").Inc()

	if c.Unique {
		records = query.Unique(records)
	}
	app.Logger.Debug("query done", "gene", c.Gene, "depth", depth, "mode", mode, "records", len(records))

	if c.Output == "" {
		return writeRecords(app.Out, records)
	}

	out, err := parsers.Create(c.Output)
	if err != nil {
		return err
	}
	if err := writeRecords(out, records); err != nil {
		out.Abort()
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}
	app.success("✓ %d records written to %s", len(records), c.Output)
	return nil
}

func writeRecords(w io.Writer, records []parsers.Record) error {
	ew, err := parsers.NewEdgeWriter(w)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := ew.Write(r); err != nil {
			return err
		}
	}
	return ew.Flush()
}

// MergeCmd joins an HRR and an MR network on their common gene pairs.
type MergeCmd struct {
	HRR      string   `arg:"" name:"hrr" type:"existingfile" help:"HRR network CSV"`
	MR       string   `arg:"" name:"mr" type:"existingfile" help:"MR network CSV"`
	Output   string   `short:"o" help:"Output CSV (default merge_graph.csv.gz)"`
	Priority string   `help:"Network whose rank bound, corr and gene order win (hrr|mr)"`
	MaxRank  *float64 `name:"max-rank" help:"Keep priority edges with rank <= this value"`
}

// Run executes the merge command.
func (c *MergeCmd) Run(app *App) error {
	priority, err := graph.ParseMethod(pick(c.Priority, app.Config.Merge.Priority))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	maxRank := pickFloat(c.MaxRank, app.Config.Merge.MaxRank)
	res, err := pipeline.Merge(ctx, pipeline.MergeOptions{
		Common:   app.common(),
		HRR:      c.HRR,
		MR:       c.MR,
		Output:   c.Output,
		Priority: priority,
		MaxRank:  &maxRank,
	})
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	app.success("✓ Merged network written to %s", res.Output)
	app.detail("  Priority edges: %d", res.Priority)
	app.detail("  Other edges:    %d", res.Other)
	app.detail("  Merged edges:   %d", res.Merged)
	return nil
}

// IndexCmd loads a network into a badger index for repeated queries.
type IndexCmd struct {
	Network string `arg:"" type:"existingfile" help:"Network CSV to index"`
	Store   string `short:"s" help:"Index directory (default from config, .corrnet)"`

	CutoffFlags `embed:""`
}

// Run executes the index command.
func (c *IndexCmd) Run(app *App) error {
	dir := pick(c.Store, app.Config.Store.Path)

	ctx, cancel := signalContext()
	defer cancel()

	res, err := pipeline.IndexInto(ctx, dir, app.Config.Store.CacheSize, c.Network, c.Filter(app.Config), app.common())
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	app.success("✓ Indexed %s into %s", res.Source, dir)
	app.detail("  Genes:          %d", res.Nodes)
	app.detail("  Edges:          %d", res.Edges)
	return nil
}

// WatchCmd keeps one index per network in a directory up to date.
type WatchCmd struct {
	Dir   string        `arg:"" optional:"" default:"." type:"existingdir" help:"Directory of network CSVs"`
	Store string        `short:"s" help:"Root directory for the per-network indexes (default from config, .corrnet)"`
	Delay time.Duration `default:"2s" help:"How long changes must settle before re-indexing"`

	CutoffFlags `embed:""`
}

// Run executes the watch command.
func (c *WatchCmd) Run(app *App) error {
	root := pick(c.Store, app.Config.Store.Path)
	if !filepath.IsAbs(root) {
		root = filepath.Join(c.Dir, root)
	}

	app.success("Watching %s for network changes (Ctrl+C to stop)", c.Dir)

	ctx, cancel := signalContext()
	defer cancel()

	err := pipeline.Watch(ctx, pipeline.WatchOptions{
		Common:    app.common(),
		Dir:       c.Dir,
		StoreRoot: root,
		CacheSize: app.Config.Store.CacheSize,
		Filter:    c.Filter(app.Config),
		Delay:     c.Delay,
		OnIndexed: func(e pipeline.NetworkEntry, res *pipeline.IndexResult) {
			if res == nil {
				app.detail("- %s removed", e.RelPath)
				return
			}
			app.detail("✓ %s indexed (%d genes, %d edges)", e.RelPath, res.Nodes, res.Edges)
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	app.detail("Watch mode stopped.")
	return nil
}

// ServeCmd starts the MCP server over an index.
type ServeCmd struct {
	Store       string `short:"s" help:"Index directory (default from config, .corrnet)"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics at this address, e.g. :9090"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(app *App) error {
	dir := pick(c.Store, app.Config.Store.Path)
	store, err := openStore(dir, app.Config.Store.CacheSize)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	if addr := pick(c.MetricsAddr, app.Config.Serve.MetricsAddr); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, app.Logger); err != nil {
				app.Logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
	}

	// stdout carries JSON-RPC only; diagnostics go to the logger.
	app.Logger.Info("starting MCP server", "store", dir, "genes", store.NodeCount(), "edges", store.EdgeCount())

	err = mcp.NewServer(store, Version).Run(ctx, &sdkmcp.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StatusCmd describes an index, or every index under a watch root.
type StatusCmd struct {
	Store string `arg:"" optional:"" help:"Index directory or watch root (default from config, .corrnet)"`
}

// Run executes the status command.
func (c *StatusCmd) Run(app *App) error {
	dir := pick(c.Store, app.Config.Store.Path)

	if isStore(dir) {
		return printStatus(app, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no index found at %s. Run 'corrnet index' first", dir)
		}
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	found := 0
	for _, entry := range entries {
		sub := filepath.Join(dir, entry.Name())
		if !entry.IsDir() || !isStore(sub) {
			continue
		}
		if err := printStatus(app, sub); err != nil {
			return err
		}
		found++
	}
	if found == 0 {
		return fmt.Errorf("no index found at %s. Run 'corrnet index' first", dir)
	}
	return nil
}

func printStatus(app *App, dir string) error {
	store, err := openStore(dir, 0)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	meta, err := store.Meta(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Index status for %s\n", dir)
	if meta.Source != "" {
		fmt.Fprintf(app.Out, "  Source:         %s\n", meta.Source)
		fmt.Fprintf(app.Out, "  Last indexed:   %s\n", meta.LoadedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(app.Out, "  Genes:          %d\n", store.NodeCount())
	fmt.Fprintf(app.Out, "  Edges:          %d\n", store.EdgeCount())
	return nil
}

// SetupCmd prints or writes the MCP client configuration for corrnet serve.
type SetupCmd struct {
	Store  string `short:"s" help:"Index directory passed to corrnet serve"`
	Claude bool   `help:"Write .claude/mcp.json in the current directory"`
	Cursor bool   `help:"Write .cursor/mcp.json in the current directory"`
	Dir    string `default:"." help:"Directory to write client configuration under"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(app *App) error {
	cfg := mcpClientConfig(pick(c.Store, app.Config.Store.Path))

	if !c.Claude && !c.Cursor {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Out, string(data))
		return nil
	}

	clients := []struct {
		dir     string
		enabled bool
	}{
		{".claude", c.Claude},
		{".cursor", c.Cursor},
	}
	for _, client := range clients {
		if !client.enabled {
			continue
		}
		path := filepath.Join(c.Dir, client.dir, "mcp.json")
		if err := writeConfig(path, cfg); err != nil {
			return err
		}
		app.success("✓ Created MCP config at %s", path)
	}
	return nil
}

func mcpClientConfig(store string) map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"corrnet": map[string]any{
				"command": "corrnet",
				"args":    []string{"serve", "--store", store},
			},
		},
	}
}

func writeConfig(configPath string, cfg map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	content = append(content, '\n')

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Helper functions

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// isStore reports whether dir holds a badger database.
func isStore(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "MANIFEST"))
	return err == nil
}

func openStore(dir string, cacheSize int) (*storage.BadgerBackend, error) {
	if !isStore(dir) {
		return nil, fmt.Errorf("no index found at %s. Run 'corrnet index' first", dir)
	}

	store := storage.NewBadgerBackend(cacheSize)
	if err := store.Initialize(dir, true); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func pick(flag, cfg string) string {
	if flag != "" {
		return flag
	}
	return cfg
}

func pickBool(set, flag, cfg bool) bool {
	if set {
		return flag
	}
	return cfg
}

// flagSet reports whether the named flag, or its negation, was given on
// the command line.
func flagSet(kctx *kong.Context, name string) bool {
	if kctx == nil {
		return false
	}
	for _, p := range kctx.Path {
		if p.Flag != nil && p.Flag.Name == name {
			return true
		}
	}
	return false
}

func pickInt(flag *int, cfg int) int {
	if flag != nil {
		return *flag
	}
	return cfg
}

func pickFloat(flag *float64, cfg float64) float64 {
	if flag != nil {
		return *flag
	}
	return cfg
}

func pickPtr(flag, cfg *float64) *float64 {
	if flag != nil {
		return flag
	}
	return cfg
}

// CLI is the root Kong command structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version information"`
	Config   string           `short:"c" type:"path" help:"Config file (default ./corrnet.yaml when present)"`
	LogLevel string           `name:"log-level" help:"Log level (debug|info|warn|error)"`
	Workers  *int             `help:"Parallel workers (default GOMAXPROCS)"`
	Verbose  bool             `short:"v" help:"Enable verbose output"`
	Quiet    bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Construct  ConstructCmd  `cmd:"" help:"Build an HRR or MR network from an expression matrix"`
	Extract    ExtractCmd    `cmd:"" help:"Filter a network by gene list and cutoffs"`
	CodonUsage CodonUsageCmd `cmd:"" name:"codon-usage" help:"Score a network against codon usage similarity"`
	Query      QueryCmd      `cmd:"" help:"List the edges around a gene"`
	Merge      MergeCmd      `cmd:"" help:"Join an HRR and an MR network on their common gene pairs"`
	Index      IndexCmd      `cmd:"" help:"Index a network for repeated queries"`
	Watch      WatchCmd      `cmd:"" help:"Watch a directory and keep its network indexes current"`
	Serve      ServeCmd      `cmd:"" help:"Start MCP server (stdio transport) over an index"`
	Status     StatusCmd     `cmd:"" help:"Show index status"`
	Setup      SetupCmd      `cmd:"" help:"Configure MCP clients to use corrnet serve"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("corrnet"),
		kong.Description("Gene co-expression network construction, scoring and queries"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
		kong.Writers(c.Stdout, c.Stderr),
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	app, err := c.newApp()
	if err != nil {
		return err
	}

	return kongCtx.Run(app)
}

// newApp resolves config and logging from the global flags.
func (c *CLI) newApp() (*App, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.Verbose {
		cfg.LogLevel = "debug"
	}
	if c.Quiet {
		cfg.LogLevel = "error"
	}
	if c.Workers != nil {
		cfg.Workers = *c.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, c.Stderr)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Out:     c.Stdout,
		Err:     c.Stderr,
		Quiet:   c.Quiet,
		Verbose: c.Verbose,
	}, nil
}
