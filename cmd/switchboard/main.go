package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kordite/switchboard/internal/classify"
	"github.com/kordite/switchboard/internal/config"
	"github.com/kordite/switchboard/internal/mcp"
	"github.com/kordite/switchboard/internal/route"
	"github.com/kordite/switchboard/internal/store"
	"github.com/kordite/switchboard/internal/taxonomy"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"classify": true, "resolve": true, "expansions": true,
	"archetypes": true, "history": true, "transitions": true,
	"cache": true, "stats": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _____          _ __      __    __                         __
  / ___/_      __(_) /_____/ /_  / /_  ____  ____ __________/ /
  \__ \| | /| / / / __/ ___/ __ \/ __ \/ __ \/ __ '/ ___/ __  /
 ___/ /| |/ |/ / / /_/ /__/ / / / /_/ / /_/ / /_/ / /  / /_/ /
/____/ |__/|__/_/\__/\___/_/ /_/_.___/\____/\__,_/_/   \__,_/

  Query classifier and constraint resolver

  Usage: switchboard <command> [options]
         switchboard --help

  MCP server mode requires piped input.`)
}

// newLogger builds the process logger. Everything goes to stderr: stdout
// belongs to the MCP stdio transport and to CLI JSON output.
func newLogger() *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// buildTaxonomy loads the built-in taxonomy and merges any configured
// markdown overlays. A bad overlay is a warning, not a startup failure.
func buildTaxonomy(cfg *config.Config, logger *zap.Logger) *taxonomy.Taxonomy {
	tax := taxonomy.Builtin()
	for _, path := range cfg.TaxonomyPaths {
		src, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("taxonomy overlay unreadable", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := tax.MergeOverlay(src); err != nil {
			logger.Warn("taxonomy overlay rejected", zap.String("path", path), zap.Error(err))
		}
	}
	return tax
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any state init
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".switchboard")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = homeDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger()
	defer logger.Sync()

	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		logger.Warn("unknown tool in disabled_tools", zap.String("tool", name))
	}
	for _, name := range mcp.ValidateDisabledTypes(cfg.DisabledTypes) {
		logger.Warn("unknown type in disabled_types", zap.String("type", name))
	}

	st, err := store.Open(cfg.StoreBackend, baseDir, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	tax := buildTaxonomy(cfg, logger)
	classifier := classify.New(tax, cfg.InclusionThreshold,
		classify.Policy{FastPath: cfg.FastPathThreshold, Fallback: cfg.FallbackThreshold})
	router := route.New(classifier, st, cfg, logger)

	deps := &appDeps{
		router:     router,
		classifier: classifier,
		tax:        tax,
		cfg:        cfg,
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(deps)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'switchboard --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	h := mcp.NewHandlers(router, classifier, tax, cfg)
	if err := mcp.Run(h, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
