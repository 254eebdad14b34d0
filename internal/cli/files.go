// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// files.go - Document commands: files, upload, delete, ingest-url.
//
// Examples:
//   ragdesk files
//   ragdesk upload handbook.pdf faq.md --parallel 2
//   ragdesk delete handbook.pdf --yes
//   ragdesk ingest-url https://github.com/org/repo

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/ragdesk/internal/status"
	"github.com/jeranaias/ragdesk/internal/upload"
)

// reportedError has already been written to the output; main only uses it
// for the exit code.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// HandleFiles handles the "files" command.
func HandleFiles(ctx context.Context, app *App) error {
	if err := app.Queue.Reconcile(ctx); err != nil {
		return &CommandError{Command: "files", Reason: "could not reach the server at " + app.Client.BaseURL(), Err: err}
	}
	files := app.Queue.Files()

	if app.Args.JSON {
		return NewJSONResponse("files", fileData(files)).Print(app.Out)
	}
	fmt.Fprintln(app.Out, app.Renderer().FileTable(files))
	return nil
}

// HandleUpload handles the "upload" command.
func HandleUpload(ctx context.Context, app *App) error {
	stop := app.followStatus()
	res, err := app.Queue.EnqueueAndUpload(ctx, upload.PathSources(app.Args.Positional...))
	stop()
	if err != nil {
		return err
	}

	var failure error
	if !res.AllSucceeded() {
		failure = &reportedError{fmt.Errorf("%d of %d uploads failed", len(res.Failed()), len(res.Results))}
	}

	if app.Args.JSON {
		data := app.uploadData(res)
		if err := NewJSONResponse("upload", data).Print(app.Out); err != nil {
			return err
		}
		return failure
	}

	if app.Args.Quiet && failure != nil {
		// Only the summary line when quiet.
		if last, ok := app.Reporter.Last(); ok {
			fmt.Fprintln(app.Err, app.Renderer().Event(last))
		}
	}
	return failure
}

func (a *App) uploadData(res upload.BatchResult) UploadData {
	data := UploadData{
		Policy: a.Queue.Policy().String(),
		Events: eventData(a.Reporter.Events()),
	}
	for _, r := range res.Results {
		item := UploadResultData{Filename: r.Filename, Chunks: r.Chunks}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		data.Results = append(data.Results, item)
	}
	return data
}

// HandleDelete handles the "delete" command.
func HandleDelete(ctx context.Context, app *App) error {
	name := app.Args.Positional[0]
	ok, err := Confirm(app.In, app.Err, fmt.Sprintf("Delete %s from the server?", name), ConfirmationOptions{
		Yes:      app.Args.Yes,
		JSONMode: app.Args.JSON,
	})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(app.Err, "Cancelled.")
		return nil
	}

	return app.runOperation(ctx, "delete", name, func(ctx context.Context) error {
		return app.Queue.DeleteFile(ctx, name)
	})
}

// HandleIngestURL handles the "ingest-url" command.
func HandleIngestURL(ctx context.Context, app *App) error {
	link := app.Args.Positional[0]
	return app.runOperation(ctx, "ingest-url", link, func(ctx context.Context) error {
		return app.Queue.IngestURL(ctx, link)
	})
}

// runOperation runs a single-target queue operation, printing its status
// log as it goes. Validation errors are returned unreported; failures are
// already in the log.
func (a *App) runOperation(ctx context.Context, command, target string, fn func(context.Context) error) error {
	stop := a.followStatus()
	err := fn(ctx)
	stop()

	var fileErr *upload.FileError
	reported := err != nil && errors.As(err, &fileErr)
	if err != nil && !reported {
		return err
	}

	if a.Args.JSON {
		resp := NewJSONResponse(command, OperationData{Target: target, Events: eventData(a.Reporter.Events())})
		if err != nil {
			resp = NewJSONErrorResponse(command, err)
			resp.Data = OperationData{Target: target, Events: eventData(a.Reporter.Events())}
		}
		if perr := resp.Print(a.Out); perr != nil {
			return perr
		}
	} else if a.Args.Quiet && err != nil {
		if last, ok := a.Reporter.Last(); ok && last.Kind == status.Error {
			fmt.Fprintln(a.Err, a.Renderer().Event(last))
		}
	}

	if err != nil {
		return &reportedError{err}
	}
	return nil
}
