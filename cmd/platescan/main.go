package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/platescan/platescan/internal/analyze"
	"github.com/platescan/platescan/internal/config"
	"github.com/platescan/platescan/internal/db"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"analyze": true, "normalize": true, "swap": true,
	"signup": true, "signin": true, "serve": true,
	"onboard": true, "profile": true, "account": true,
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
	// Global flags before the subcommand
	if len(arg) > 1 && arg[0] == '-' {
		for _, a := range os.Args[2:] {
			if cliCommands[a] {
				return true
			}
		}
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
        _       _
  _ __ | | __ _| |_ ___  ___  ___ __ _ _ __
 | '_ \| |/ _' | __/ _ \/ __|/ __/ _' | '_ \
 | |_) | | (_| | ||  __/\__ \ (_| (_| | | | |
 | .__/|_|\__,_|\__\___||___/\___\__,_|_| |_|
 |_|

  Meal photo analysis

  Usage: platescan <command> [options]
         platescan --help

  MCP server mode requires piped input.`)
}

// warnUnknownDisabled reports disabled_tools/disabled_types entries that match nothing.
func warnUnknownDisabled(cfg *config.Config) {
	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		fmt.Fprintf(os.Stderr, "warning: unknown tool in disabled_tools: %q\n", name)
	}
	for _, name := range mcp.ValidateDisabledTypes(cfg.DisabledTypes) {
		fmt.Fprintf(os.Stderr, "warning: unknown type in disabled_types: %q\n", name)
	}
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, config.DefaultConfig())
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

	baseDir := filepath.Join(homeDir, ".platescan")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		// The account database is only needed by CLI commands (accounts, profiles, serve).
		database, err := db.Init(baseDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		db.ConfigurePool(database, cfg)

		app := newCLIApp(database, cfg)
		err = app.Run(os.Args)
		database.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'platescan --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	warnUnknownDisabled(cfg)
	client := analyze.New(cfg.AnalyzeURL, cfg.AnalyzeTimeout())
	if err := mcp.Run(client, history.New(), cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
