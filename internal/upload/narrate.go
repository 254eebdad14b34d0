// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"errors"
	"fmt"
)

const successMessage = "Success! Document is ready for Q&A."

func uploadingMessage(name string, idx, total int) string {
	if total <= 1 {
		return fmt.Sprintf("Uploading %s...", name)
	}
	return fmt.Sprintf("Uploading %s (%d/%d)...", name, idx+1, total)
}

func chunkedMessage(chunks int) string {
	if chunks == 1 {
		return "Chunked into 1 piece."
	}
	return fmt.Sprintf("Chunked into %d pieces.", chunks)
}

func uploadedMessage(name string, chunks int) string {
	return fmt.Sprintf("Uploaded %s. %s", name, chunkedMessage(chunks))
}

func rejectMessage(a admission) string {
	switch {
	case errors.Is(a.err, ErrUnsupportedType):
		return fmt.Sprintf("Skipped %s: unsupported file type", a.name)
	case errors.Is(a.err, ErrAlreadyPending):
		return fmt.Sprintf("Skipped %s: already uploading", a.name)
	default:
		return fmt.Sprintf("Skipped %s: %v", a.name, a.err)
	}
}
