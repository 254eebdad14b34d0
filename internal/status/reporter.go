// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package status keeps the ordered log of progress messages for the
// current ingestion operation.
//
// Starting an operation clears the previous log and hands out an
// *Operation. Only the most recent handle may append; events from an
// older handle are dropped so a late callback cannot pollute a newer log.
// Sequence numbers keep increasing across operations for the life of the
// Reporter.
package status

import (
	"sync"
	"time"

	"github.com/jeranaias/ragdesk/internal/notify"
)

// Kind classifies a status event.
type Kind int

const (
	Info Kind = iota
	Success
	Error
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// OperationKind names what an operation is doing.
type OperationKind string

const (
	OpUpload    OperationKind = "upload"
	OpIngestURL OperationKind = "ingest_url"
	OpDelete    OperationKind = "delete"
)

// Event is one line of the status log.
type Event struct {
	Seq     uint64
	Kind    Kind
	Message string
	// Unit is the file or URL the event is about, empty for summaries.
	Unit string
	Time time.Time
}

// Reporter is safe for concurrent use.
type Reporter struct {
	mu      sync.Mutex
	seq     uint64
	opID    uint64
	opKind  OperationKind
	units   []string
	events  []Event
	hub     notify.Hub[Event]
	nowFunc func() time.Time
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{nowFunc: time.Now}
}

// StartOperation clears the log and returns the handle that owns it.
func (r *Reporter) StartOperation(kind OperationKind, units ...string) *Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.opID++
	r.opKind = kind
	r.units = append([]string(nil), units...)
	r.events = nil
	return &Operation{r: r, id: r.opID, kind: kind}
}

// Events returns a copy of the current log in append order.
func (r *Reporter) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Current reports the kind and units of the operation that owns the log.
func (r *Reporter) Current() (OperationKind, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opKind, append([]string(nil), r.units...)
}

// Last returns the most recent event, if any.
func (r *Reporter) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Subscribe registers fn for every appended event.
func (r *Reporter) Subscribe(fn func(Event)) (cancel func()) {
	return r.hub.Subscribe(fn)
}

func (r *Reporter) append(opID uint64, unit, message string, kind Kind) (Event, bool) {
	r.mu.Lock()
	if opID != r.opID {
		r.mu.Unlock()
		return Event{}, false
	}
	r.seq++
	ev := Event{
		Seq:     r.seq,
		Kind:    kind,
		Message: message,
		Unit:    unit,
		Time:    r.nowFunc(),
	}
	r.events = append(r.events, ev)
	r.mu.Unlock()

	r.hub.Publish(ev)
	return ev, true
}

// Operation is a handle on one run of the status log.
type Operation struct {
	r    *Reporter
	id   uint64
	kind OperationKind
}

// Kind returns what the operation is doing.
func (o *Operation) Kind() OperationKind {
	return o.kind
}

// Active reports whether this handle still owns the log.
func (o *Operation) Active() bool {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	return o.r.opID == o.id
}

// Append adds an event with the next sequence number. When the operation
// has been replaced the event is dropped and the zero Event (Seq 0) is
// returned.
func (o *Operation) Append(message string, kind Kind) Event {
	ev, _ := o.r.append(o.id, "", message, kind)
	return ev
}

// AppendFor is Append with the event attributed to unit.
func (o *Operation) AppendFor(unit, message string, kind Kind) Event {
	ev, _ := o.r.append(o.id, unit, message, kind)
	return ev
}

func (o *Operation) Info(message string) Event    { return o.Append(message, Info) }
func (o *Operation) Success(message string) Event { return o.Append(message, Success) }
func (o *Operation) Error(message string) Event   { return o.Append(message, Error) }
