// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the ragdesk command line and runs its commands.
//
// With no command, ragdesk starts an interactive chat. The other commands
// run once and exit:
//
//	ragdesk files                   list documents on the server
//	ragdesk upload <path>...        upload documents
//	ragdesk delete <name> --yes     delete a document
//	ragdesk url <link>              ingest a repository or document link
//	ragdesk ask <question>          ask one question
//	ragdesk theme [system|light|dark]
//	ragdesk watch [dir]             upload files dropped into a directory
//	ragdesk history [id|rm <id>]    saved conversations
//	ragdesk history export <id>     write one as Markdown or JSON
//	ragdesk config [show|path|get|set]
//
// Every one-shot command accepts --json and prints a JSONResponse envelope.
// Exit codes are listed in errors.go.
package cli
