// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for ragdesk.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdFiles
	CmdUpload
	CmdDelete
	CmdIngestURL
	CmdAsk
	CmdTheme
	CmdWatch
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdChat:      "chat",
	CmdFiles:     "files",
	CmdUpload:    "upload",
	CmdDelete:    "delete",
	CmdIngestURL: "ingest-url",
	CmdAsk:       "ask",
	CmdTheme:     "theme",
	CmdWatch:     "watch",
	CmdHistory:   "history",
	CmdConfig:    "config",
	CmdVersion:   "version",
	CmdHelp:      "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Server     string
	ConfigPath string
	Verbose    bool
	Quiet      bool
	JSON       bool

	// Command-specific
	Subcommand string
	Positional []string
	Parallel   int
	Yes        bool
	Format     string
	Output     string
}

const usageText = `ragdesk - chat with your documents from the terminal

Usage:
  ragdesk [global flags] <command> [args]

Commands:
  chat                          Interactive chat (default)
  files                         List documents known to the server
  upload <path>... [--parallel N]
                                Upload documents for Q&A
  delete <filename> [--yes]     Delete a document from the server
  ingest-url <url>              Ingest a repository or document link
  ask "question"                Ask a single question
  theme [system|light|dark]     Show or set the color theme
  watch [dir]                   Upload files dropped into a folder
  history [id | rm <id>]        List, show or delete saved conversations
  history export <id> [--format md|json] [--output path]
                                Write a saved conversation to a file
  config [show|path|get|set]    Configuration
  version                       Show version
  help                          Show this help

Global flags:
  --server URL      Backend base URL (overrides config)
  --config PATH     Config file to load
  -v, --verbose     Debug logging to stderr
  -q, --quiet       Minimal output
  --json            Machine-readable output

Chat commands:
  /files            List documents
  /upload <path>... Upload documents
  /delete <name>    Delete a document (asks; --yes skips)
  /url <link>       Ingest a link
  /theme [value]    Show or set the theme
  /status           Show the last operation's status log
  /clear            Start a new conversation
  /history          List saved conversations
  /resume <id>      Continue a saved conversation
  /help             Show chat commands
  /quit             Exit

Examples:
  ragdesk upload handbook.pdf notes.md --parallel 2
  ragdesk ask "What is the refund policy?"
  ragdesk --server http://rag.internal:8000 chat
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "ragdesk %s\n", Version)
	fmt.Fprintf(w, "  Commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:      %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// VersionData is the --json form of "version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses a command line without the program name.
func ParseArgs(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if len(remaining) == 0 {
		return CmdChat, args, nil
	}

	cmd, rest := remaining[0], remaining[1:]
	switch cmd {
	case "chat":
		return CmdChat, args, nil

	case "files", "ls":
		return CmdFiles, args, nil

	case "upload", "up":
		p := NewArgParser(rest)
		args.Positional = p.PositionalFrom(0)
		if p.HasFlag("parallel") || p.HasFlag("p") {
			n, err := ParseIntWithValidation(p.FlagOrDefault("parallel", p.Flag("p")), "--parallel")
			if err != nil {
				return CmdUpload, args, &UsageError{Command: "upload", Reason: err.Error()}
			}
			args.Parallel = n
		}
		if len(args.Positional) == 0 {
			return CmdUpload, args, &UsageError{Command: "upload", Reason: "at least one file is required"}
		}
		return CmdUpload, args, nil

	case "delete", "rm":
		p := NewArgParser(rest, "yes", "y")
		args.Yes = p.BoolFlag("yes") || p.BoolFlag("y")
		args.Positional = p.PositionalFrom(0)
		if len(args.Positional) != 1 {
			return CmdDelete, args, &UsageError{Command: "delete", Reason: "exactly one filename is required"}
		}
		return CmdDelete, args, nil

	case "ingest-url", "url":
		args.Positional = rest
		if len(rest) != 1 {
			return CmdIngestURL, args, &UsageError{Command: "ingest-url", Reason: "exactly one link is required"}
		}
		return CmdIngestURL, args, nil

	case "ask":
		args.Positional = []string{strings.Join(rest, " ")}
		if strings.TrimSpace(args.Positional[0]) == "" {
			return CmdAsk, args, &UsageError{Command: "ask", Reason: "a question is required"}
		}
		return CmdAsk, args, nil

	case "theme":
		if len(rest) > 1 {
			return CmdTheme, args, &UsageError{Command: "theme", Reason: "expected at most one value"}
		}
		if len(rest) == 1 {
			args.Subcommand = rest[0]
		}
		return CmdTheme, args, nil

	case "watch":
		args.Positional = rest
		return CmdWatch, args, nil

	case "history":
		if len(rest) > 0 {
			args.Subcommand = rest[0]
			args.Positional = rest[1:]
		}
		switch args.Subcommand {
		case "rm":
			if len(args.Positional) != 1 {
				return CmdHistory, args, &UsageError{Command: "history rm", Reason: "exactly one id is required"}
			}
		case "export":
			p := NewArgParser(args.Positional)
			args.Format = p.FlagOrDefault("format", p.Flag("f"))
			args.Output = p.FlagOrDefault("output", p.Flag("o"))
			args.Positional = p.PositionalFrom(0)
			if len(args.Positional) != 1 {
				return CmdHistory, args, &UsageError{Command: "history export", Reason: "exactly one id is required"}
			}
		}
		return CmdHistory, args, nil

	case "config":
		args.Subcommand = "show"
		if len(rest) > 0 {
			args.Subcommand = rest[0]
			args.Positional = rest[1:]
		}
		return CmdConfig, args, nil

	case "version", "--version":
		return CmdVersion, args, nil

	case "help", "-h", "--help":
		return CmdHelp, args, nil

	default:
		return CmdHelp, args, &UsageError{Reason: fmt.Sprintf("unknown command %q", cmd)}
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
// Global flags may appear anywhere on the command line.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--server", "--config":
			if i+1 >= len(argv) {
				return nil, args, &UsageError{Reason: arg + " requires a value"}
			}
			i++
			if arg == "--server" {
				args.Server = argv[i]
			} else {
				args.ConfigPath = argv[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--server="):
				args.Server = strings.TrimPrefix(arg, "--server=")
			case strings.HasPrefix(arg, "--config="):
				args.ConfigPath = strings.TrimPrefix(arg, "--config=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}
	return remaining, args, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd against app.
func Run(ctx context.Context, cmd Command, app *App) error {
	switch cmd {
	case CmdChat:
		return HandleChat(ctx, app)
	case CmdFiles:
		return HandleFiles(ctx, app)
	case CmdUpload:
		return HandleUpload(ctx, app)
	case CmdDelete:
		return HandleDelete(ctx, app)
	case CmdIngestURL:
		return HandleIngestURL(ctx, app)
	case CmdAsk:
		return HandleAsk(ctx, app)
	case CmdTheme:
		return HandleTheme(app)
	case CmdWatch:
		return HandleWatch(ctx, app)
	case CmdHistory:
		return HandleHistory(ctx, app)
	case CmdConfig:
		return HandleConfig(app)
	case CmdVersion:
		return HandleVersion(app)
	default:
		PrintUsage(app.Out)
		return nil
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(app *App) error {
	if app.Args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(app.Out)
	}
	PrintVersion(app.Out)
	return nil
}
