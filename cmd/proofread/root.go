// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianProofread/pkg/logging"
	"github.com/AleutianAI/AleutianProofread/pkg/ux"
	"github.com/AleutianAI/AleutianProofread/services/proofread"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	jsonLogs   bool
	output     string // auto, rich, plain
}

// cli carries state resolved in PersistentPreRunE.
type cli struct {
	flags  globalFlags
	cfg    config.Config
	logger *logging.Logger
}

// newRootCmd builds the command tree. Each call returns an independent tree
// so tests can execute commands in isolation.
func newRootCmd() *cobra.Command {
	app := &cli{}

	root := &cobra.Command{
		Use:   "proofread",
		Short: "Proofread text with an LLM and annotate every change",
		Long: `proofread corrects grammar, spelling and punctuation through a
configurable chat-completion backend (OpenAI, Anthropic, Ollama or an offline
mock) and explains each change as a categorized, word-level annotation.

Run it as an HTTP service with "proofread serve", or directly on files and
stdin with "proofread check".`,
		Version:       proofread.Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.logger != nil {
				return app.logger.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "YAML config file (default $"+config.EnvConfigPath+")")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.BoolVar(&app.flags.jsonLogs, "json-logs", false, "Write logs as JSON")
	pf.StringVar(&app.flags.output, "output", "auto", "Output style: auto, rich, plain")

	root.AddCommand(
		newServeCmd(app),
		newCheckCmd(app),
		newDiffCmd(app),
		newRecordsCmd(app),
		newConfigCmd(app),
	)
	return root
}

// init loads configuration and installs the logger. Commands that do not
// need configuration still get a logger.
func (a *cli) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.jsonLogs {
		cfg.Logging.JSON = true
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Only serve writes log files; one-shot commands log to stderr.
	logDir := ""
	if cmd.Name() == "serve" {
		logDir = cfg.Logging.LogDir
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: proofread.ServiceName,
		JSON:    cfg.Logging.JSON,
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger.Slog())
	return nil
}

// printer returns a ux.Printer for w honoring --output.
func (a *cli) printer(w io.Writer) (*ux.Printer, error) {
	f, _ := w.(*os.File)
	mode, err := ux.ParseMode(a.flags.output, f)
	if err != nil {
		return nil, err
	}
	return ux.NewPrinter(w, mode), nil
}
