package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dusk-indust/reconcile/internal/config"
	"github.com/dusk-indust/reconcile/internal/evolution"
	"github.com/dusk-indust/reconcile/internal/mcptools"
	"github.com/dusk-indust/reconcile/internal/merge"
	"github.com/dusk-indust/reconcile/internal/resolver"
	"github.com/dusk-indust/reconcile/internal/semantic"
	"github.com/dusk-indust/reconcile/internal/vcs"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ProjectRoot  string
	MainBranch   string
	Workers      int
	TimeoutSecs  int
	DryRun       bool
	Resolver     string
	Branch       string
	BranchPrefix string
	Verbose      bool
	ServeMCP     bool
	MCPAddr      string
	Version      bool
}

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage: reconcile [flags] <command> [args]

commands:
  track   <task-id> <file>...   capture baselines before a task edits files
  record  <task-id> <file>...   record a task's edits to tracked files
  preview <task-id>...          show the merge plan without writing anything
  merge   <task-id>...          merge the tasks' edits into the working tree
  status                        show tracked files and pending tasks

run 'reconcile -serve-mcp' to expose the same operations as MCP tools.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.StringVar(&flags.ProjectRoot, "project-root", ".", "path to the target project")
	fs.StringVar(&flags.MainBranch, "main-branch", "", "merge target branch (default: main)")
	fs.IntVar(&flags.Workers, "workers", 0, "max concurrent file merges")
	fs.IntVar(&flags.TimeoutSecs, "timeout", 0, "merge batch timeout in seconds")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "compute merges without writing files")
	fs.StringVar(&flags.Resolver, "resolver", "", "command invoked to resolve conflicting files")
	fs.StringVar(&flags.Branch, "branch", "", "task branch for a single-task merge")
	fs.StringVar(&flags.BranchPrefix, "branch-prefix", "task/", "prefix mapping task IDs to branches")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server for agent integration")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "serve MCP over HTTP on this address instead of stdio")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.ProjectRoot)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyConfig(&flags, cfg)

	app, err := newApp(flags, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.ServeMCP {
		return serveMCP(ctx, app)
	}

	switch cmd := fs.Arg(0); cmd {
	case "track":
		return runTrack(ctx, app, fs.Args()[1:])
	case "record":
		return runRecord(ctx, app, fs.Args()[1:])
	case "preview":
		return runPreview(ctx, app, fs.Args()[1:])
	case "merge":
		return runMerge(ctx, app, fs.Args()[1:])
	case "status":
		return runStatus(ctx, app)
	case "":
		fs.Usage()
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// applyConfig fills in flag values the command line left unset from the
// project config, then falls back to defaults.
func applyConfig(flags *cliFlags, cfg *config.ProjectConfig) {
	if flags.MainBranch == "" {
		flags.MainBranch = cfg.MainBranch
	}
	if flags.MainBranch == "" {
		flags.MainBranch = "main"
	}
	if flags.Workers == 0 {
		flags.Workers = cfg.Workers
	}
	if flags.TimeoutSecs == 0 {
		flags.TimeoutSecs = cfg.TimeoutSeconds
	}
	if flags.Resolver == "" {
		flags.Resolver = cfg.ResolverCommand
	}
	if !flags.DryRun {
		flags.DryRun = cfg.DryRun
	}
	if !flags.Verbose {
		flags.Verbose = cfg.Verbose
	}
}

// app bundles the wired collaborators the subcommands share.
type app struct {
	flags     cliFlags
	store     evolution.Store
	tracker   *evolution.Tracker
	orch      *merge.Orchestrator
	reportDir string
}

func newApp(flags cliFlags, cfg *config.ProjectConfig) (*app, error) {
	storePath := cfg.StorePath
	if storePath == "" {
		storePath = filepath.Join(flags.ProjectRoot, ".reconcile", "evolution")
	}
	store, err := openStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("open evolution store: %w", err)
	}
	if err := store.InitSchema(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("init evolution store: %w", err)
	}

	tracker := evolution.NewTracker(store, newAnalyzer(cfg.Languages))

	timeout := time.Duration(flags.TimeoutSecs) * time.Second
	var res merge.Resolver
	if r := resolver.NewCommandResolver(flags.Resolver, timeout); r != nil {
		if !r.Available() {
			fmt.Fprintf(os.Stderr, "warning: resolver command %q not found in PATH\n", r.Command)
		}
		res = r
	}
	merger := merge.NewAutoMerger(res)

	// The git collaborator is optional. Inline-content merges through the
	// MCP tools work without a repository.
	var gitVCS merge.VCS
	if g, err := vcs.NewGit(flags.ProjectRoot, flags.MainBranch); err == nil {
		gitVCS = g
	} else if flags.Verbose {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	// Progress lines go through a buffered reporter so a slow terminal
	// never stalls merge workers.
	var onProgress func(merge.ProgressEvent)
	if flags.Verbose {
		reporter := merge.NewProgressReporter()
		go func() {
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(os.Stderr, merge.FormatProgress(ev))
			}
		}()
		onProgress = reporter.Emit
	}

	orch := merge.NewOrchestrator(merge.Config{
		Workers:   flags.Workers,
		Timeout:   timeout,
		DryRun:    flags.DryRun,
		WriteRoot: flags.ProjectRoot,
		EmitDiffs: flags.Verbose,
	}, tracker, merger, gitVCS, onProgress)

	reportDir := cfg.ReportDir
	if reportDir == "" {
		reportDir = filepath.Join(flags.ProjectRoot, ".reconcile", "reports")
	}

	return &app{
		flags:     flags,
		store:     store,
		tracker:   tracker,
		orch:      orch,
		reportDir: reportDir,
	}, nil
}

// newAnalyzer restricts grammar registration to the languages named in the
// project config. An empty list means all supported languages.
func newAnalyzer(names []string) *semantic.TreeSitterAnalyzer {
	if len(names) == 0 {
		return semantic.NewTreeSitterAnalyzer()
	}
	langs := make([]semantic.Language, 0, len(names))
	for _, name := range names {
		langs = append(langs, semantic.Language(strings.ToLower(name)))
	}
	return semantic.NewTreeSitterAnalyzerFor(langs...)
}

func (a *app) Close() error {
	return a.store.Close()
}

func serveMCP(ctx context.Context, a *app) error {
	svc := mcptools.NewMergeService(a.tracker, a.orch)
	svc.SetReportDir(a.reportDir)

	if a.flags.MCPAddr != "" {
		return mcptools.RunMCPServer(ctx, svc, a.flags.MCPAddr)
	}
	return mcptools.RunMCPServerStdio(ctx, mcptools.NewMergeMCPServer(svc))
}
