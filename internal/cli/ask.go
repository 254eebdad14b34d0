// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question.
//
// Examples:
//   ragdesk ask "What does the handbook say about travel?"
//   ragdesk --json ask "Summarize the onboarding guide"

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
)

// errNoAnswer marks a question that got one of the fallback replies.
var errNoAnswer = errors.New("no answer from the server")

// HandleAsk handles the "ask" command.
func HandleAsk(ctx context.Context, app *App) error {
	question := app.Args.Positional[0]
	session := app.NewSession(false)

	var reply chat.Message
	var err error
	app.spin("Thinking...", func() {
		reply, err = session.Send(ctx, question)
	})
	if err != nil {
		return err
	}
	app.saveTranscript(ctx, session)

	var failure error
	if reply.Synthetic {
		failure = &reportedError{errNoAnswer}
	}

	if app.Args.JSON {
		if perr := NewJSONResponse("ask", AnswerData{
			Question:  question,
			Answer:    reply.Content,
			Synthetic: reply.Synthetic,
		}).Print(app.Out); perr != nil {
			return perr
		}
		return failure
	}

	r := app.Renderer()
	if reply.Synthetic {
		fmt.Fprintln(app.Out, app.Theme().Synthetic.Render(reply.Content))
	} else {
		fmt.Fprintln(app.Out, r.Markdown(reply.Content))
	}
	return failure
}

// spin runs fn while drawing a spinner on stderr. Nothing is drawn when
// stderr is not a terminal, in JSON mode or when quiet.
func (a *App) spin(label string, fn func()) {
	if a.Args.JSON || a.Args.Quiet || !IsTerminal(a.Err) {
		fn()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	drawSpinner(a.Err, styles.NewWaitSpinner(a.Theme().Muted), label, done)
}

// drawSpinner redraws s on one line until done is closed, then blanks the
// line. Frames advance on the spinner's own tick commands.
func drawSpinner(w io.Writer, s spinner.Model, label string, done <-chan struct{}) {
	ticks := make(chan tea.Msg, 1)
	schedule := func(cmd tea.Cmd) {
		if cmd != nil {
			go func() { ticks <- cmd() }()
		}
	}

	fmt.Fprint(w, "\r"+s.View()+" "+label)
	schedule(s.Tick)
	for {
		select {
		case <-done:
			fmt.Fprint(w, "\r"+strings.Repeat(" ", len(label)+2)+"\r")
			return
		case msg := <-ticks:
			var cmd tea.Cmd
			s, cmd = s.Update(msg)
			fmt.Fprint(w, "\r"+s.View()+" "+label)
			schedule(cmd)
		}
	}
}

// saveTranscript stores the session when history is enabled. Failures are
// logged; the conversation itself is unaffected.
func (a *App) saveTranscript(ctx context.Context, session *chat.Session) {
	if !a.Config.Chat.PersistHistory {
		return
	}
	store, err := a.History()
	if err != nil {
		a.Log.Warn("history unavailable", "err", err)
		return
	}
	if err := store.SaveSession(ctx, session); err != nil {
		a.Log.Warn("failed to save transcript", "id", session.ID(), "err", err)
	}
}
