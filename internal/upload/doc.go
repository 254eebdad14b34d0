// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload tracks the documents known to the backend and the files
// currently being sent to it.
//
// The Queue holds two kinds of entries: confirmed entries, replaced wholesale
// by every successful Reconcile with the server's list, and local entries for
// files the user selected that are still Pending or Uploading. Every
// successful mutation (a finished upload batch or a delete) is followed by
// exactly one Reconcile. A failed Reconcile leaves the list as it was.
//
// Progress for each operation is narrated through a *status.Reporter.
package upload
