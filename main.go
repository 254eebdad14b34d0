// ragdesk - a terminal client for a document question-answering server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"

	"github.com/jeranaias/ragdesk/internal/cli"
	"github.com/jeranaias/ragdesk/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse()
	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		return cli.GetExitCode(err)
	}

	// Help and version work without a readable config.
	if cmd == cli.CmdHelp {
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	}

	cfg, err := cli.LoadConfig(args)
	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		return cli.GetExitCode(err)
	}
	config.SetGlobal(cfg)

	app, err := cli.NewApp(args, cfg, cli.DefaultEnv())
	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		return cli.GetExitCode(err)
	}
	defer app.Close()

	if err := cli.Run(context.Background(), cmd, app); err != nil {
		if !cli.IsReported(err) {
			cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		}
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
