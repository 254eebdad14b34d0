// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the terminal styling for ragdesk.

Two fixed palettes exist, one per color scheme. The scheme comes from the
saved theme preference (see package prefs): "light" and "dark" pick a palette
directly and "system" follows the terminal background.

# Palettes (palette.go)

	Accent    - Brand color, prompts, headings
	User      - The user's chat messages
	Assistant - Answers from the backend
	Muted     - Hints, timestamps, synthetic replies
	Success   - Finished operations
	Warning   - Skipped files and retries
	Error     - Failed operations

# Theme (theme.go)

	theme := styles.NewTheme(store.Resolve())
	fmt.Println(theme.Success.Render("Uploaded report.pdf."))

Theme.Markdown is the glamour style used to render answers.

# Indicators (indicators.go)

Status lines carry a short prefix so they stay readable without color:

	[OK]  success
	[ERR] error
	[..]  info
*/
package styles
