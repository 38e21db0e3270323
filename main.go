package main

import (
	"flag"
	"fmt"
	"os"

	"roleflow/internal/cli"
	"roleflow/internal/errors"
	"roleflow/internal/service"
	"roleflow/internal/ui"
)

var version = "0.1.0"

func printHelp() {
	fmt.Printf(`roleflow - Role template management and runner invocation

USAGE:
    roleflow [OPTIONS] [COMMAND]

OPTIONS:
    --help          Show this help information
    --version       Print version information
    --init          Initialize a new template library
    --root <path>   Library root directory (default: current directory)

COMMANDS:
    (no command)       Start interactive picker
    run <name> <task>  Compile a template and invoke its runner
    ai <text>          Generate or update a template with a runner
    list, ls           List all templates
    show, get <name>   Show a specific template
    search <query>     Fuzzy search templates
    create, new <name> Create a new template
    edit <name>        Edit an existing template
    rename, mv         Rename a template
    copy, cp           Copy a template
    delete, rm <name>  Delete a template
    path <name>        Print a template's file path
    format <name>      Convert a template between json and yaml
    profile            Runner profile management (add, remove, default, list)
    pick               Start interactive picker
    help               Show CLI command help

EXAMPLES:
    roleflow --init                                  # Initialize new library
    roleflow run triage "Investigate timeout"        # Run a template
    roleflow run triage --profile codex-fast --dry-run
    roleflow list --format table                     # List templates in table format
    roleflow create triage --description "Bug triage"
    roleflow profile add codex --command codex --prompt-mode stdin
    roleflow ai "review Go code for race conditions" # Generate a template

STORAGE:
    Default directory: ./.roleflow
    Override with: --root <path> or ROLEFLOW_DIR=<path>
`)
}

func main() {
	var showVersion bool
	var initLib bool
	var showHelp bool
	var rootPath string

	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.BoolVar(&initLib, "init", false, "Initialize a new template library")
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.StringVar(&rootPath, "root", "", "Library root directory")
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("roleflow version %s\n", version)
		os.Exit(0)
	}

	svc, err := service.NewService(rootPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.ExitCode(err))
	}

	if initLib {
		if err := svc.InitLibrary(); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing library: %v\n", err)
			os.Exit(errors.ExitCode(err))
		}
		fmt.Println("Initialized roleflow library")
		return
	}

	args := flag.Args()
	if len(args) > 0 {
		cliHandler := cli.NewCLI(svc)
		if err := cliHandler.ExecuteCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(errors.ExitCode(err))
		}
		return
	}

	if err := ui.RunPicker(svc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.ExitCode(err))
	}
}
