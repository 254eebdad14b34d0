// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - theme, history, config and watch commands.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/dropwatch"
	"github.com/jeranaias/ragdesk/internal/export"
	"github.com/jeranaias/ragdesk/internal/prefs"
	"github.com/jeranaias/ragdesk/internal/storage"
	"github.com/jeranaias/ragdesk/internal/upload"
)

// historyListLimit caps "history" output.
const historyListLimit = 20

// =============================================================================
// THEME
// =============================================================================

// HandleTheme handles the "theme" command.
func HandleTheme(app *App) error {
	if value := app.Args.Subcommand; value != "" {
		theme, ok := prefs.ParseTheme(value)
		if !ok {
			return &UsageError{Command: "theme", Reason: fmt.Sprintf("unknown theme %q (expected system, light or dark)", value)}
		}
		if err := app.Prefs.Set(theme); err != nil {
			return err
		}
	}
	return printTheme(app)
}

func printTheme(app *App) error {
	pref := app.Prefs.Theme()
	resolved := app.Prefs.Resolve()
	if app.Args.JSON {
		return NewJSONResponse("theme", ThemeData{Preference: pref.String(), Resolved: string(resolved)}).Print(app.Out)
	}
	if pref == prefs.ThemeSystem {
		fmt.Fprintf(app.Out, "Theme: system (currently %s)\n", resolved)
	} else {
		fmt.Fprintf(app.Out, "Theme: %s\n", pref)
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

// HandleHistory handles the "history" command.
func HandleHistory(ctx context.Context, app *App) error {
	store, err := app.History()
	if err != nil {
		return err
	}

	switch sub := app.Args.Subcommand; sub {
	case "", "list":
		list, err := store.List(ctx, historyListLimit)
		if err != nil {
			return err
		}
		if app.Args.JSON {
			return NewJSONResponse("history", list).Print(app.Out)
		}
		fmt.Fprintln(app.Out, app.Renderer().Summaries(list))
		return nil

	case "rm":
		t, err := store.Load(ctx, app.Args.Positional[0])
		if err != nil {
			return err
		}
		if err := store.Delete(ctx, t.ID); err != nil {
			return err
		}
		if !app.Args.Quiet {
			fmt.Fprintf(app.Out, "Deleted conversation %s.\n", t.ID)
		}
		return nil

	case "export":
		return exportTranscript(ctx, app, store)

	default:
		t, err := store.Load(ctx, sub)
		if err != nil {
			return err
		}
		if app.Args.JSON {
			return NewJSONResponse("history", t).Print(app.Out)
		}
		r := app.Renderer()
		fmt.Fprintln(app.Out, app.Theme().Title.Render(t.Title))
		for _, m := range t.Messages {
			fmt.Fprintln(app.Out)
			fmt.Fprintln(app.Out, r.Message(m))
		}
		return nil
	}
}

func exportTranscript(ctx context.Context, app *App, store *storage.TranscriptStore) error {
	exp, err := export.ForFormat(app.Args.Format, nil)
	if err != nil {
		return &UsageError{Command: "history export", Reason: err.Error()}
	}
	t, err := store.Load(ctx, app.Args.Positional[0])
	if err != nil {
		return err
	}

	path := app.Args.Output
	if path == "" {
		path, err = export.ToFile(t, exp, ".")
	} else {
		err = export.WriteFile(t, exp, path)
	}
	if err != nil {
		return err
	}

	if app.Args.JSON {
		return NewJSONResponse("history export", ExportData{ID: t.ID, Path: path}).Print(app.Out)
	}
	if !app.Args.Quiet {
		fmt.Fprintf(app.Out, "Exported %q to %s\n", t.Title, path)
	}
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfig handles the "config" command.
func HandleConfig(app *App) error {
	switch app.Args.Subcommand {
	case "show":
		if app.Args.JSON {
			return NewJSONResponse("config", app.Config).Print(app.Out)
		}
		fmt.Fprintln(app.Out, app.Config.String())
		return nil

	case "path":
		path, err := configPath(app)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Out, path)
		return nil

	case "get":
		if len(app.Args.Positional) != 1 {
			return &UsageError{Command: "config get", Reason: "expected a key, one of: " + strings.Join(config.AllKeys(), ", ")}
		}
		v, err := app.Config.Get(app.Args.Positional[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Out, v)
		return nil

	case "set":
		if len(app.Args.Positional) != 2 {
			return &UsageError{Command: "config set", Reason: "expected a key and a value"}
		}
		// Edit a fresh copy of the file so env overrides and --server are
		// not written back.
		path, err := configPath(app)
		if err != nil {
			return err
		}
		cfg := config.Default()
		if _, statErr := os.Stat(path); statErr == nil {
			if err := config.LoadTOML(cfg, path); err != nil {
				return err
			}
		}
		key, value := app.Args.Positional[0], app.Args.Positional[1]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveTOML(cfg, path); err != nil {
			return err
		}
		if !app.Args.Quiet {
			fmt.Fprintf(app.Out, "Set %s = %s in %s\n", key, value, path)
		}
		return nil

	default:
		return &UsageError{Command: "config", Reason: fmt.Sprintf("unknown subcommand %q (expected show, path, get or set)", app.Args.Subcommand)}
	}
}

func configPath(app *App) (string, error) {
	if app.Args.ConfigPath != "" {
		return app.Args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

// =============================================================================
// WATCH
// =============================================================================

// HandleWatch handles the "watch" command. It runs until interrupted.
func HandleWatch(ctx context.Context, app *App) error {
	dir := app.Config.Watch.Dir
	if len(app.Args.Positional) > 0 {
		dir = app.Args.Positional[0]
	}
	if dir == "" {
		return &UsageError{Command: "watch", Reason: "a folder is required (argument or watch.dir)"}
	}

	if err := app.Queue.Reconcile(ctx); err != nil {
		fmt.Fprintf(app.Err, "Warning: could not reach the server at %s\n", app.Client.BaseURL())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopStatus := app.followStatus()
	defer stopStatus()

	w, err := dropwatch.New(dir, app.Queue,
		dropwatch.WithDebounce(app.Config.Debounce()),
		dropwatch.WithLogger(app.Log),
		dropwatch.WithBatchHook(func(_ []string, res upload.BatchResult) {
			if app.Args.JSON {
				NewJSONResponse("watch", app.uploadData(res)).Print(app.Out)
			}
		}),
	)
	if err != nil {
		return err
	}

	if !app.Args.Quiet && !app.Args.JSON {
		fmt.Fprintf(app.Out, "Watching %s for new documents. Press Ctrl+C to stop.\n", w.Dir())
	}
	return w.Run(ctx)
}
