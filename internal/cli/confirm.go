// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
//  1. --yes proceeds without prompting
//  2. --json requires --yes
//  3. a non-terminal stdin requires --yes
//  4. otherwise the user is asked
package cli

import (
	"bufio"
	"fmt"
	"io"
)

// ConfirmationOptions carries the flags that affect confirmation.
type ConfirmationOptions struct {
	// Yes is set by --yes
	Yes bool
	// JSONMode is set by --json
	JSONMode bool
}

// Confirm asks a yes/no question on out and reads the answer from in.
// The default answer is no.
func Confirm(in io.Reader, out io.Writer, question string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode || !CanPrompt() {
		return false, errConfirmationRequired
	}

	fmt.Fprintf(out, "%s [y/N]: ", question)
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false, nil
	}
	yes, err := ParseBoolString(answer)
	return err == nil && yes, nil
}
