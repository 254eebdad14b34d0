// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of config, logging, API client and components.

package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jeranaias/ragdesk/internal/api"
	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/logging"
	"github.com/jeranaias/ragdesk/internal/prefs"
	"github.com/jeranaias/ragdesk/internal/status"
	"github.com/jeranaias/ragdesk/internal/storage"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
	"github.com/jeranaias/ragdesk/internal/upload"
)

// Env is the process environment an App runs in.
type Env struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Prefs defaults to prefs.Global().
	Prefs *prefs.Store

	// HistoryPath defaults to ~/.ragdesk/history.db.
	HistoryPath string
}

// DefaultEnv uses the standard streams.
func DefaultEnv() Env {
	return Env{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// App holds everything a command needs.
type App struct {
	Args     Args
	Config   *config.Config
	Log      *slog.Logger
	Client   *api.Client
	Reporter *status.Reporter
	Queue    *upload.Queue
	Prefs    *prefs.Store

	In  io.Reader
	Out io.Writer
	Err io.Writer

	mu       sync.Mutex
	theme    *styles.Theme
	renderer *Renderer

	historyPath string
	history     *storage.TranscriptStore
	closers     []io.Closer
}

// LoadConfig loads the file named by --config, or the default config files,
// and applies --server.
func LoadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
	}

	if args.Server != "" {
		cfg.Server.BaseURL = args.Server
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewApp builds the client and components from cfg.
func NewApp(args Args, cfg *config.Config, env Env) (*App, error) {
	if env.In == nil {
		env.In = os.Stdin
	}
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Err == nil {
		env.Err = os.Stderr
	}

	app := &App{
		Args:        args,
		Config:      cfg,
		In:          env.In,
		Out:         env.Out,
		Err:         env.Err,
		historyPath: env.HistoryPath,
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	logger, closer, err := logging.New(logging.Options{Level: level, File: cfg.Log.File, Output: env.Err})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	app.Log = logger
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	app.Client = api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Server.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Logger:            logger,
	})

	policy, err := upload.ParsePolicy(cfg.Upload.Policy, cfg.Upload.Parallelism)
	if err != nil {
		return nil, err
	}
	if args.Parallel > 0 {
		policy = upload.Parallel(args.Parallel)
	}
	app.Reporter = status.NewReporter()
	app.Queue = upload.NewQueue(app.Client, app.Reporter,
		upload.WithPolicy(policy),
		upload.WithAllowedExtensions(cfg.Upload.AllowedExtensions),
		upload.WithLogger(logger),
	)

	app.Prefs = env.Prefs
	if app.Prefs == nil {
		app.Prefs = prefs.Global()
	}
	app.refreshTheme()
	cancel := app.Prefs.Subscribe(func(prefs.Theme) { app.refreshTheme() })
	app.closers = append(app.closers, closerFunc(func() error { cancel(); return nil }))

	return app, nil
}

// Close releases log files and the history database.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	if a.history != nil {
		closers = append(closers, a.history)
		a.history = nil
	}
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Theme returns the current styles.
func (a *App) Theme() *styles.Theme {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.theme
}

// Renderer returns the current output renderer.
func (a *App) Renderer() *Renderer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renderer
}

// refreshTheme rebuilds styles after a preference change.
func (a *App) refreshTheme() {
	theme := styles.NoColorTheme()
	if !a.Args.JSON && ColorsEnabled(a.Out) {
		theme = styles.NewTheme(a.Prefs.Resolve())
	}
	width := a.Config.UI.WordWrap
	if width <= 0 {
		width = TerminalWidth(a.Out)
	}
	r := NewRenderer(theme, width, a.Log)

	a.mu.Lock()
	a.theme = theme
	a.renderer = r
	a.mu.Unlock()
}

// History opens the transcript store on first use.
func (a *App) History() (*storage.TranscriptStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.history != nil {
		return a.history, nil
	}

	path := a.historyPath
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	a.history = store
	return store, nil
}

// NewSession starts a chat session configured from the config file.
func (a *App) NewSession(welcome bool) *chat.Session {
	opts := []chat.Option{
		chat.WithTenant(a.Config.Chat.TenantID),
		chat.WithRefinement(a.Config.Chat.Refinement),
		chat.WithLogger(a.Log),
	}
	if welcome && a.Config.Chat.Welcome {
		opts = append(opts, chat.WithWelcome(chat.DefaultWelcome))
	}
	return chat.NewSession(a.Client, opts...)
}

// followStatus prints status events as they are appended, unless output is
// JSON or quiet. The returned func stops printing.
func (a *App) followStatus() (cancel func()) {
	if a.Args.JSON || a.Args.Quiet {
		return func() {}
	}
	return a.Reporter.Subscribe(func(e status.Event) {
		fmt.Fprintln(a.Out, a.Renderer().Event(e))
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
