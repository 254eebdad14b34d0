// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error display and exit codes.
//
// Handlers always return errors; main decides how to show them and which
// exit code to use.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ragdesk/internal/api"
	"github.com/jeranaias/ragdesk/internal/chat"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/storage"
	"github.com/jeranaias/ragdesk/internal/upload"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a malformed command line.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return e.Command + ": " + e.Reason
}

// CommandError is a command that ran and failed.
type CommandError struct {
	Command string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil && e.Reason == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Command, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// errConfirmationRequired is returned when a destructive command cannot prompt.
var errConfirmationRequired = errors.New("confirmation required: pass --yes")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON response when jsonMode is set.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Print(w)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(w, "Run 'ragdesk help' for usage.")
	}
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	if errors.Is(err, upload.ErrEmptySelection) ||
		errors.Is(err, upload.ErrEmptyURL) ||
		errors.Is(err, upload.ErrInvalidURL) ||
		errors.Is(err, chat.ErrEmptyInput) ||
		errors.Is(err, errConfirmationRequired) {
		return ExitUsageError
	}

	var verrs config.ValidateErrors
	var verr config.ValidationError
	if errors.As(err, &verrs) || errors.As(err, &verr) {
		return ExitConfigError
	}

	if errors.Is(err, storage.ErrNotFound) {
		return ExitNotFoundError
	}
	if errors.Is(err, api.ErrTimeout) {
		return ExitTimeoutError
	}
	if errors.Is(err, api.ErrUnavailable) {
		return ExitNetworkError
	}
	return ExitGeneralError
}
