// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the typed HTTP client for the RAG backend.
//
// Each method maps to one endpoint and performs exactly one request.
// There is no retry or backoff; callers decide what a failure means.
//
//	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: "http://127.0.0.1:8000"})
//	files, err := client.ListFiles(ctx)
//	if err != nil {
//	    return err
//	}
//
// Failures are returned as *Error, which records the operation, the HTTP
// status and the server's own explanation when the body carried one.
package api
