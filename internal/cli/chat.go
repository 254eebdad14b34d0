// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat (the default command).
//
// Questions are sent one at a time; documents are managed with slash
// commands without leaving the conversation. Asking is disabled until the
// server has at least one document or a link was ingested.
//
// Interactive commands:
//   /files              List documents
//   /upload <path>...   Upload documents
//   /delete <name>      Delete a document (asks first; --yes skips)
//   /url <link>         Ingest a link
//   /theme [value]      Show or set the theme
//   /status             Show the last operation's status log
//   /clear              Start a new conversation
//   /history            List saved conversations
//   /resume <id>        Continue a saved conversation
//   /help               Show commands
//   /quit               Exit
//   Ctrl+C, Ctrl+D      Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/prefs"
	"github.com/jeranaias/ragdesk/internal/upload"
)

const chatHelp = `Commands:
  /files              List documents
  /upload <path>...   Upload documents (quote paths with spaces)
  /delete <name>      Delete a document (--yes skips the question)
  /url <link>         Ingest a repository or document link
  /theme [value]      Show or set the theme (system, light, dark)
  /status             Show the last operation's status log
  /clear              Start a new conversation
  /history            List saved conversations
  /resume <id>        Continue a saved conversation
  /help               Show this help
  /quit               Exit`

const disabledHint = "Upload a document or ingest a link before asking questions (see /upload and /url)."

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader provides line editing and persistent input history.
type LineReader struct {
	line        *liner.State
	historyFile string
}

// NewLineReader creates a reader and loads saved input history.
func NewLineReader() *LineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.PathIn("chat_history")
	if err != nil {
		historyFile = ""
	}
	r := &LineReader{line: line, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

// ReadLine reads one line. Non-empty input is added to history.
func (r *LineReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Confirm asks a y/N question without recording the answer in history.
// Anything but a yes, including Ctrl+C, is a no.
func (r *LineReader) Confirm(question string) bool {
	answer, err := r.line.Prompt(question + " [y/N]: ")
	if err != nil {
		return false
	}
	ok, err := ParseBoolString(answer)
	return err == nil && ok
}

// Close saves history and restores the terminal.
func (r *LineReader) Close() {
	if r.historyFile != "" && config.EnsureConfigDir() == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPL executes chat input lines against an App.
type REPL struct {
	app     *App
	session *chat.Session

	// confirm asks a yes/no question. When nil, /delete needs --yes.
	confirm func(question string) bool
}

// NewREPL creates a REPL with a fresh session, disabled until documents
// are known.
func NewREPL(app *App) *REPL {
	session := app.NewSession(true)
	session.SetEnabled(false)
	return &REPL{app: app, session: session}
}

// Session returns the current chat session.
func (r *REPL) Session() *chat.Session {
	return r.session
}

// Start reconciles the document list and prints the opening transcript.
func (r *REPL) Start(ctx context.Context) {
	app := r.app
	if err := app.Queue.Reconcile(ctx); err != nil {
		fmt.Fprintf(app.Out, "%s\n", app.Theme().Warning.Render(
			"Could not reach the server at "+app.Client.BaseURL()+"."))
	}
	r.syncEnabled()

	if !app.Args.Quiet {
		fmt.Fprintln(app.Out, app.Theme().Title.Render("ragdesk")+" "+app.Theme().Muted.Render(app.Client.BaseURL()))
		r.printTranscript()
		if !r.session.Enabled() {
			fmt.Fprintln(app.Out, app.Theme().Muted.Render(disabledHint))
		}
		fmt.Fprintln(app.Out, app.Theme().Muted.Render("Type /help for commands."))
	}
}

// HandleLine executes one line of input. It returns true when the user
// asked to quit.
func (r *REPL) HandleLine(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true
	}
	if strings.HasPrefix(input, "/") {
		return r.command(ctx, input)
	}
	r.ask(ctx, input)
	return false
}

func (r *REPL) ask(ctx context.Context, question string) {
	app := r.app


	var reply chat.Message
	var err error
	app.spin("Thinking...", func() {
		reply, err = r.session.Send(ctx, question)
	})

	switch {
	case errors.Is(err, chat.ErrDisabled):
		fmt.Fprintln(app.Out, app.Theme().Warning.Render(disabledHint))
		return
	case errors.Is(err, chat.ErrEmptyInput):
		return
	case err != nil:
		fmt.Fprintln(app.Out, app.Theme().Error.Render(err.Error()))
		return
	}

	fmt.Fprintln(app.Out)
	fmt.Fprintln(app.Out, app.Renderer().Message(reply))
	fmt.Fprintln(app.Out)
	app.saveTranscript(ctx, r.session)
}

func (r *REPL) command(ctx context.Context, input string) bool {
	app := r.app
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	theme := app.Theme()

	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h", "/?":
		fmt.Fprintln(app.Out, chatHelp)

	case "/files", "/ls":
		if err := app.Queue.Reconcile(ctx); err != nil {
			fmt.Fprintln(app.Out, theme.Warning.Render("Could not refresh the document list."))
		}
		r.syncEnabled()
		fmt.Fprintln(app.Out, app.Renderer().FileTable(app.Queue.Files()))

	case "/upload", "/u":
		paths, err := splitArgs(rest)
		if err != nil {
			fmt.Fprintln(app.Out, theme.Error.Render(err.Error()))
			break
		}
		if len(paths) == 0 {
			fmt.Fprintln(app.Out, "Usage: /upload <path>...")
			break
		}
		stop := app.followStatus()
		_, err = app.Queue.EnqueueAndUpload(ctx, upload.PathSources(paths...))
		stop()
		if err != nil {
			fmt.Fprintln(app.Out, theme.Error.Render(err.Error()))
		}
		r.syncEnabled()

	case "/delete", "/rm":
		name, yes, err := deleteArgs(rest)
		if err != nil {
			fmt.Fprintln(app.Out, theme.Error.Render(err.Error()))
			break
		}
		if name == "" {
			fmt.Fprintln(app.Out, "Usage: /delete <name> [--yes]")
			break
		}
		if !yes {
			if r.confirm == nil {
				fmt.Fprintf(app.Out, "Add --yes to delete %s.\n", name)
				break
			}
			if !r.confirm(fmt.Sprintf("Delete %s from the server?", name)) {
				fmt.Fprintln(app.Out, theme.Muted.Render("Not deleted."))
				break
			}
		}
		stop := app.followStatus()
		err = app.Queue.DeleteFile(ctx, name)
		stop()
		r.reportValidation(err)
		r.syncEnabled()

	case "/url":
		stop := app.followStatus()
		err := app.Queue.IngestURL(ctx, rest)
		stop()
		r.reportValidation(err)
		r.syncEnabled()

	case "/theme":
		if rest != "" {
			if err := r.setTheme(rest); err != nil {
				fmt.Fprintln(app.Out, app.Theme().Error.Render(err.Error()))
				break
			}
		}
		printTheme(app)

	case "/status":
		fmt.Fprintln(app.Out, app.Renderer().Events(app.Reporter.Events()))

	case "/clear":
		if err := r.session.Clear(); err != nil {
			fmt.Fprintln(app.Out, theme.Error.Render(err.Error()))
			break
		}
		fmt.Fprintln(app.Out, theme.Muted.Render("Started a new conversation."))
		r.printTranscript()

	case "/history":
		store, err := app.History()
		if err != nil {
			fmt.Fprintln(app.Out, theme.Error.Render(err.Error()))
			break
		}
		list, err := store.List(ctx, historyListLimit)
		if err != nil {
			fmt.Fprintln(app.Out, theme.Error.Render(err.Error()))
			break
		}
		fmt.Fprintln(app.Out, app.Renderer().Summaries(list))

	case "/resume":
		if err := r.resume(ctx, rest); err != nil {
			fmt.Fprintln(app.Out, theme.Error.Render(err.Error()))
		}

	default:
		fmt.Fprintf(app.Out, "Unknown command %s. Type /help for commands.\n", name)
	}
	return false
}

func (r *REPL) setTheme(value string) error {
	theme, ok := prefs.ParseTheme(value)
	if !ok {
		return fmt.Errorf("unknown theme %q (expected system, light or dark)", value)
	}
	return r.app.Prefs.Set(theme)
}

func (r *REPL) resume(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("usage: /resume <id>")
	}
	store, err := r.app.History()
	if err != nil {
		return err
	}
	t, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := r.session.Restore(t.ID, t.Messages); err != nil {
		return err
	}
	fmt.Fprintln(r.app.Out, r.app.Theme().Muted.Render("Resumed: "+t.Title))
	r.printTranscript()
	return nil
}

// reportValidation prints errors the status log does not already show.
func (r *REPL) reportValidation(err error) {
	var fileErr *upload.FileError
	if err != nil && !errors.As(err, &fileErr) {
		fmt.Fprintln(r.app.Out, r.app.Theme().Error.Render(err.Error()))
	}
}

func (r *REPL) syncEnabled() {
	r.session.SetEnabled(r.app.Queue.HasDocuments())
}

func (r *REPL) printTranscript() {
	for _, m := range r.session.Messages() {
		fmt.Fprintln(r.app.Out)
		fmt.Fprintln(r.app.Out, r.app.Renderer().Message(m))
	}
	fmt.Fprintln(r.app.Out)
}

// =============================================================================
// COMMAND HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(ctx context.Context, app *App) error {
	repl := NewREPL(app)
	repl.Start(ctx)

	reader := NewLineReader()
	defer reader.Close()
	repl.confirm = reader.Confirm

	for {
		input, err := reader.ReadLine(app.Theme().Prompt.Render("ragdesk> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				app.Log.Debug("input closed", "err", err)
			}
			fmt.Fprintln(app.Out)
			return nil
		}
		if repl.HandleLine(ctx, input) {
			return nil
		}
	}
}

// splitArgs splits a command line on spaces, honoring single and double
// quotes.
func splitArgs(s string) ([]string, error) {
	var args []string
	var cur strings.Builder
	var quote rune
	inArg := false

	for _, c := range s {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inArg = true
		case c == ' ' || c == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(c)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}

// deleteArgs splits "/delete" arguments into a file name and the --yes
// flag. Unquoted names may contain spaces.
func deleteArgs(rest string) (name string, yes bool, err error) {
	words, err := splitArgs(rest)
	if err != nil {
		return "", false, err
	}
	kept := words[:0]
	for _, w := range words {
		if w == "--yes" || w == "-y" {
			yes = true
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " "), yes, nil
}
