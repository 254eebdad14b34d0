// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the question/answer transcript and enforces one
// outstanding question at a time.
//
// Send appends the user's message immediately, then exactly one assistant
// reply: the server's answer, or a fixed apology when the answer is empty
// or the request failed. Transport errors are logged, never shown.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ragdesk/internal/api"
	"github.com/jeranaias/ragdesk/internal/logging"
	"github.com/jeranaias/ragdesk/internal/notify"
)

// Replies used when the server gives nothing usable.
const (
	FallbackNoAnswer = "Sorry, I couldn't get an answer."
	FallbackFailure  = "Sorry, something went wrong. Please try again."
)

// DefaultWelcome is the greeting shown at the top of a new transcript.
const DefaultWelcome = "Hello! I'm your AI assistant. Upload your documents and ask me anything about them. " +
	"I'll help you explore insights and find information across all your uploaded files."

// Send rejections. The transcript is unchanged when one is returned.
var (
	ErrEmptyInput = errors.New("message is empty")
	ErrDisabled   = errors.New("chat is disabled until a document has been ingested")
	ErrBusy       = errors.New("a question is already awaiting an answer")
)

// State is the request state of a session.
type State int

const (
	StateIdle State = iota
	StateAwaitingAnswer
)

func (s State) String() string {
	if s == StateAwaitingAnswer {
		return "awaiting_answer"
	}
	return "idle"
}

// Asker is the subset of the API client a session needs.
type Asker interface {
	Ask(ctx context.Context, req api.AskRequest) (*api.AskResponse, error)
}

// Option configures a Session.
type Option func(*Session)

// WithDisabled starts the session disabled (or enabled).
func WithDisabled(disabled bool) Option {
	return func(s *Session) { s.disabled = disabled }
}

// WithWelcome seeds the transcript with an assistant greeting.
func WithWelcome(text string) Option {
	return func(s *Session) { s.welcome = strings.TrimSpace(text) }
}

// WithTenant sends tenant_id with every question.
func WithTenant(id string) Option {
	return func(s *Session) { s.tenant = strings.TrimSpace(id) }
}

// WithRefinement sends the last server answer as prev_answer so follow-ups
// like "in 50 words" can refine it.
func WithRefinement(on bool) Option {
	return func(s *Session) { s.refine = on }
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = logging.OrDiscard(l) }
}

// Session is safe for concurrent use.
type Session struct {
	asker   Asker
	log     *slog.Logger
	tenant  string
	refine  bool
	welcome string
	nowFunc func() time.Time

	mu         sync.Mutex
	id         string
	messages   []Message
	state      State
	disabled   bool
	lastAnswer string

	hub notify.Hub[Message]
}

// NewSession creates an idle session.
func NewSession(asker Asker, opts ...Option) *Session {
	s := &Session{
		asker:   asker,
		log:     logging.Discard(),
		nowFunc: time.Now,
		id:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = s.initialMessages()
	return s
}

func (s *Session) initialMessages() []Message {
	if s.welcome == "" {
		return nil
	}
	m := newMessage(RoleAssistant, s.welcome, s.nowFunc())
	m.Synthetic = true
	return []Message{m}
}

// ID identifies the transcript; it changes on Clear.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Messages returns a copy of the transcript in order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current request state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enabled reports whether Send is currently accepted.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled
}

// SetEnabled gates Send from outside, typically once a document exists.
func (s *Session) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.disabled = !enabled
	s.mu.Unlock()
}

// Subscribe registers fn for every message appended to the transcript.
func (s *Session) Subscribe(fn func(Message)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

// Send asks one question. It returns the assistant reply that was
// appended; a failed request still yields a reply and a nil error.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return Message{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return Message{}, ErrDisabled
	}
	if s.state == StateAwaitingAnswer {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	userMsg := newMessage(RoleUser, question, s.nowFunc())
	s.messages = append(s.messages, userMsg)
	s.state = StateAwaitingAnswer
	req := api.AskRequest{Question: question, TenantID: s.tenant}
	if s.refine {
		req.PrevAnswer = s.lastAnswer
	}
	s.mu.Unlock()
	s.hub.Publish(userMsg)

	content, answered := s.ask(ctx, req)

	reply := newMessage(RoleAssistant, content, s.nowFunc())
	reply.Synthetic = !answered

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.state = StateIdle
	if answered {
		s.lastAnswer = content
	}
	s.mu.Unlock()
	s.hub.Publish(reply)

	return reply, nil
}

func (s *Session) ask(ctx context.Context, req api.AskRequest) (string, bool) {
	resp, err := s.asker.Ask(ctx, req)
	if err != nil {
		attrs := []any{"op", api.OpAsk, "err", err}
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			attrs = append(attrs, "status", apiErr.Status, "kind", apiErr.Kind.String())
		}
		s.log.Error("ask request failed", attrs...)
		return FallbackFailure, false
	}
	if resp == nil || strings.TrimSpace(resp.Answer) == "" {
		return FallbackNoAnswer, false
	}
	return resp.Answer, true
}

// Clear resets the transcript to its initial state and starts a new ID.
// It is refused while a question is outstanding.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAwaitingAnswer {
		return ErrBusy
	}
	s.messages = s.initialMessages()
	s.lastAnswer = ""
	s.id = uuid.NewString()
	return nil
}

// Restore replaces the transcript with previously stored messages and
// adopts their transcript ID. The last non-synthetic assistant message
// becomes the refinement context.
func (s *Session) Restore(id string, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAwaitingAnswer {
		return ErrBusy
	}
	s.messages = append([]Message(nil), msgs...)
	s.lastAnswer = ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleAssistant && !msgs[i].Synthetic {
			s.lastAnswer = msgs[i].Content
			break
		}
	}
	if id != "" {
		s.id = id
	}
	return nil
}
