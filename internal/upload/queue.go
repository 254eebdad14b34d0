// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/ragdesk/internal/api"
	"github.com/jeranaias/ragdesk/internal/logging"
	"github.com/jeranaias/ragdesk/internal/notify"
	"github.com/jeranaias/ragdesk/internal/status"
)

// Validation errors, returned before any state changes.
var (
	ErrEmptySelection  = errors.New("no files selected")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrAlreadyPending  = errors.New("file is already being uploaded")
	ErrEmptyURL        = errors.New("no URL given")
	ErrInvalidURL      = errors.New("URL must be an absolute http or https link")
)

// Backend is the subset of the API client the queue needs.
// *api.Client satisfies it.
type Backend interface {
	ListFiles(ctx context.Context) ([]api.FileInfo, error)
	UploadFile(ctx context.Context, filename string, r io.Reader) (*api.IngestResponse, error)
	DeleteFile(ctx context.Context, filename string) (*api.DeleteResponse, error)
	IngestURL(ctx context.Context, link string) (*api.IngestResponse, error)
}

// FileError reports a failed upload, delete or URL ingestion. Error returns
// the message meant for the user, which is the server's own explanation
// when it gave one.
type FileError struct {
	Filename string
	Message  string
	Err      error
}

func (e *FileError) Error() string { return e.Message }
func (e *FileError) Unwrap() error { return e.Err }

// FileResult is the outcome for one selected file.
type FileResult struct {
	Filename string
	Chunks   int
	Err      error
}

// BatchResult is the outcome of EnqueueAndUpload, in selection order.
type BatchResult struct {
	Results []FileResult
	// ReconcileErr is set when the closing Reconcile failed.
	ReconcileErr error
}

// AllSucceeded is true only if every selected file reached Uploaded.
func (b BatchResult) AllSucceeded() bool {
	if len(b.Results) == 0 {
		return false
	}
	for _, r := range b.Results {
		if r.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the names of files that did not upload.
func (b BatchResult) Failed() []string {
	var names []string
	for _, r := range b.Results {
		if r.Err != nil {
			names = append(names, r.Filename)
		}
	}
	return names
}

// Option configures a Queue.
type Option func(*Queue)

// WithPolicy sets the batch upload policy (default Sequential).
func WithPolicy(p Policy) Option {
	return func(q *Queue) { q.policy = p }
}

// WithAllowedExtensions restricts uploads to the given extensions.
// An empty list accepts every file.
func WithAllowedExtensions(exts []string) Option {
	return func(q *Queue) { q.allowed = normalizeExtensions(exts) }
}

// WithLogger sets the logger used for reconcile warnings.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = logging.OrDiscard(l) }
}

// Queue is safe for concurrent use.
type Queue struct {
	backend  Backend
	reporter *status.Reporter
	log      *slog.Logger
	policy   Policy
	allowed  map[string]bool

	mu        sync.Mutex
	pubMu     sync.Mutex // orders snapshots; held across Publish
	confirmed []File
	local     []File
	urls      []string

	hub notify.Hub[[]File]
}

// NewQueue creates an empty queue. Call Reconcile to load the server's list.
func NewQueue(backend Backend, reporter *status.Reporter, opts ...Option) *Queue {
	q := &Queue{
		backend:  backend,
		reporter: reporter,
		log:      logging.Discard(),
		policy:   Sequential(),
		allowed:  normalizeExtensions(DefaultAllowedExtensions),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.reporter == nil {
		q.reporter = status.NewReporter()
	}
	return q
}

// Reporter returns the status log the queue narrates into.
func (q *Queue) Reporter() *status.Reporter {
	return q.reporter
}

// Policy returns the batch upload policy.
func (q *Queue) Policy() Policy {
	return q.policy
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Files returns a snapshot of the list: confirmed entries in server order,
// then local entries not yet confirmed. A local entry replaces a confirmed
// entry with the same key in place.
func (q *Queue) Files() []File {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filesLocked()
}

func (q *Queue) filesLocked() []File {
	localIdx := make(map[string]int, len(q.local))
	for i, f := range q.local {
		localIdx[f.Key()] = i
	}

	out := make([]File, 0, len(q.confirmed)+len(q.local))
	used := make(map[int]bool, len(q.local))
	for _, f := range q.confirmed {
		if i, ok := localIdx[f.Key()]; ok {
			if !used[i] {
				out = append(out, q.local[i])
				used[i] = true
			}
			continue
		}
		out = append(out, f)
	}
	for i, f := range q.local {
		if !used[i] {
			out = append(out, f)
		}
	}
	return out
}

// HasDocuments reports whether the backend has anything to answer from:
// a listed document, a finished upload or a successfully ingested URL.
func (q *Queue) HasDocuments() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.confirmed) > 0 || len(q.urls) > 0 {
		return true
	}
	for _, f := range q.local {
		if f.State == StateUploaded {
			return true
		}
	}
	return false
}

// IngestedURLs returns the links ingested during this session.
func (q *Queue) IngestedURLs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.urls...)
}

// Subscribe registers fn to receive a snapshot after every list change.
// Snapshots arrive in the order the changes were made. fn must not change
// the list itself.
func (q *Queue) Subscribe(fn func([]File)) (cancel func()) {
	return q.hub.Subscribe(fn)
}

func (q *Queue) publish() {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	q.mu.Lock()
	snapshot := q.filesLocked()
	q.mu.Unlock()
	q.hub.Publish(snapshot)
}

// =============================================================================
// RECONCILE
// =============================================================================

// Reconcile replaces the confirmed entries with the server's list. Files
// still in flight are kept after them. On failure nothing changes, a
// warning is logged and the error is returned.
func (q *Queue) Reconcile(ctx context.Context) error {
	infos, err := q.backend.ListFiles(ctx)
	if err != nil {
		q.log.Warn("failed to reconcile file list", "op", api.OpListFiles, "err", err)
		return fmt.Errorf("reconcile file list: %w", err)
	}

	confirmed := make([]File, 0, len(infos))
	for _, info := range infos {
		confirmed = append(confirmed, File{
			Filename:   info.Filename,
			SizeBytes:  info.Size(),
			UploadedAt: info.UploadedAt(),
			State:      StateUploaded,
		})
	}

	q.mu.Lock()
	q.confirmed = confirmed
	kept := q.local[:0]
	for _, f := range q.local {
		if f.State.InFlight() {
			kept = append(kept, f)
		}
	}
	q.local = kept
	q.mu.Unlock()

	q.publish()
	return nil
}

// =============================================================================
// UPLOAD
// =============================================================================

// admission is the pre-flight verdict for one selected file.
type admission struct {
	src  Source
	name string
	key  string
	err  error
}

// EnqueueAndUpload uploads the selected files under the queue's policy.
// A failed file does not stop the batch. When the batch is non-empty,
// Reconcile runs exactly once after the last upload; its error is
// reported in the result, not returned.
func (q *Queue) EnqueueAndUpload(ctx context.Context, sources []Source) (BatchResult, error) {
	if len(sources) == 0 {
		return BatchResult{}, ErrEmptySelection
	}

	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}
	op := q.reporter.StartOperation(status.OpUpload, names...)

	admitted := q.admit(sources)
	q.publish()

	results := make([]FileResult, len(admitted))
	if q.policy.IsSequential() {
		for i, a := range admitted {
			results[i] = q.uploadOne(ctx, a, i, len(admitted), op.AppendFor)
		}
	} else {
		results = q.uploadParallel(ctx, admitted, op)
	}

	batch := BatchResult{Results: results}
	q.summarize(op, batch)

	if err := q.Reconcile(ctx); err != nil {
		batch.ReconcileErr = err
	}
	return batch, nil
}

// admit validates every source and adds a Pending entry for each accepted
// one, all under one lock so two batches cannot claim the same name.
func (q *Queue) admit(sources []Source) []admission {
	q.mu.Lock()
	defer q.mu.Unlock()

	inFlight := make(map[string]bool, len(q.local))
	for _, f := range q.local {
		if f.State.InFlight() {
			inFlight[f.Key()] = true
		}
	}

	out := make([]admission, len(sources))
	for i, src := range sources {
		a := admission{src: src, name: src.Name(), key: Key(src.Name())}
		switch {
		case !extensionAllowed(q.allowed, a.name):
			a.err = ErrUnsupportedType
		case inFlight[a.key]:
			a.err = ErrAlreadyPending
		default:
			inFlight[a.key] = true
			q.local = removeKey(q.local, a.key, true)
			q.local = append(q.local, File{
				Filename:  a.name,
				SizeBytes: src.Size(),
				State:     StatePending,
			})
		}
		out[i] = a
	}
	return out
}

type emitFunc func(unit, message string, kind status.Kind) status.Event

func (q *Queue) uploadOne(ctx context.Context, a admission, idx, total int, emit emitFunc) FileResult {
	res := FileResult{Filename: a.name}

	if a.err != nil {
		res.Err = &FileError{Filename: a.name, Message: rejectMessage(a), Err: a.err}
		emit(a.name, res.Err.Error(), status.Error)
		return res
	}

	if err := q.transition(a.key, StateUploading); err != nil {
		res.Err = err
		emit(a.name, fmt.Sprintf("Failed to upload %s: %v", a.name, err), status.Error)
		return res
	}
	emit(a.name, uploadingMessage(a.name, idx, total), status.Info)

	chunks, err := q.send(ctx, a)
	if err != nil {
		msg := failureMessage(err, "Upload failed")
		res.Err = &FileError{Filename: a.name, Message: msg, Err: err}
		q.transition(a.key, StateFailed)
		emit(a.name, fmt.Sprintf("Failed to upload %s: %s", a.name, msg), status.Error)
		return res
	}

	res.Chunks = chunks
	q.transition(a.key, StateUploaded)
	emit(a.name, uploadedMessage(a.name, chunks), status.Info)
	return res
}

func (q *Queue) send(ctx context.Context, a admission) (int, error) {
	rc, err := a.src.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	resp, err := q.backend.UploadFile(ctx, a.name, rc)
	if err != nil {
		return 0, err
	}
	return resp.Chunks, nil
}

// failureMessage prefers the server's reason for an API failure. Local
// errors, such as a file that cannot be opened, are shown as they are.
func failureMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage(fallback)
	}
	return err.Error()
}

// uploadParallel runs admitted uploads with bounded concurrency. Events are
// buffered per file and appended in selection order once all are done.
func (q *Queue) uploadParallel(ctx context.Context, admitted []admission, op *status.Operation) []FileResult {
	type buffered struct {
		unit, message string
		kind          status.Kind
	}

	results := make([]FileResult, len(admitted))
	buffers := make([][]buffered, len(admitted))

	var g errgroup.Group
	g.SetLimit(q.policy.Parallelism)
	for i, a := range admitted {
		g.Go(func() error {
			emit := func(unit, message string, kind status.Kind) status.Event {
				buffers[i] = append(buffers[i], buffered{unit, message, kind})
				return status.Event{}
			}
			results[i] = q.uploadOne(ctx, a, i, len(admitted), emit)
			return nil
		})
	}
	_ = g.Wait()

	for _, buf := range buffers {
		for _, ev := range buf {
			op.AppendFor(ev.unit, ev.message, ev.kind)
		}
	}
	return results
}

func (q *Queue) summarize(op *status.Operation, batch BatchResult) {
	if batch.AllSucceeded() {
		if len(batch.Results) == 1 {
			op.Success(successMessage)
		} else {
			op.Success(fmt.Sprintf("Success! %d documents are ready for Q&A.", len(batch.Results)))
		}
		return
	}
	failed := batch.Failed()
	op.Error(fmt.Sprintf("%d of %d uploads failed: %s", len(failed), len(batch.Results), strings.Join(failed, ", ")))
}

// transition moves the local entry for key to state. Failed entries are
// removed from the list.
func (q *Queue) transition(key string, to State) error {
	q.mu.Lock()
	idx := -1
	for i, f := range q.local {
		if f.Key() == key && f.State.InFlight() {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("no pending entry for %s", key)
	}
	from := q.local[idx].State
	if !isValidTransition(from, to) {
		q.mu.Unlock()
		return fmt.Errorf("invalid state transition from %s to %s", from, to)
	}
	if to == StateFailed {
		q.local = append(q.local[:idx], q.local[idx+1:]...)
	} else {
		q.local[idx].State = to
	}
	q.mu.Unlock()

	q.publish()
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteFile asks the server to delete filename. On success the entry is
// removed and the list reconciled once; on failure the entry stays and the
// returned *FileError carries the server's message verbatim.
func (q *Queue) DeleteFile(ctx context.Context, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ErrEmptySelection
	}

	op := q.reporter.StartOperation(status.OpDelete, filename)
	op.AppendFor(filename, fmt.Sprintf("Deleting %s...", filename), status.Info)

	if _, err := q.backend.DeleteFile(ctx, filename); err != nil {
		msg := api.UserMessage(err, "Delete failed")
		op.AppendFor(filename, fmt.Sprintf("Failed to delete %s: %s", filename, msg), status.Error)
		return &FileError{Filename: filename, Message: msg, Err: err}
	}

	key := Key(filename)
	q.mu.Lock()
	q.confirmed = removeKey(q.confirmed, key, false)
	q.local = removeKey(q.local, key, true)
	q.mu.Unlock()
	q.publish()

	op.AppendFor(filename, fmt.Sprintf("Deleted %s.", filename), status.Success)

	// Failures are logged by Reconcile; the delete itself succeeded.
	_ = q.Reconcile(ctx)
	return nil
}

func removeKey(files []File, key string, keepInFlight bool) []File {
	out := files[:0]
	for _, f := range files {
		if f.Key() == key && !(keepInFlight && f.State.InFlight()) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// =============================================================================
// URL INGESTION
// =============================================================================

// IngestURL asks the server to download and ingest a document link. It
// is narrated as its own operation and does not touch the file list.
func (q *Queue) IngestURL(ctx context.Context, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return ErrEmptyURL
	}
	u, err := url.ParseRequestURI(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	op := q.reporter.StartOperation(status.OpIngestURL, link)
	op.AppendFor(link, "Downloading and ingesting...", status.Info)

	resp, err := q.backend.IngestURL(ctx, link)
	if err != nil {
		msg := api.UserMessage(err, "Ingestion failed")
		op.AppendFor(link, fmt.Sprintf("Failed to ingest %s: %s", link, msg), status.Error)
		return &FileError{Filename: link, Message: msg, Err: err}
	}

	op.AppendFor(link, chunkedMessage(resp.Chunks), status.Info)
	op.Success(successMessage)

	q.mu.Lock()
	q.urls = append(q.urls, link)
	q.mu.Unlock()
	return nil
}
