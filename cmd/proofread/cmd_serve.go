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
	"github.com/AleutianAI/AleutianProofread/services/proofread"
	"github.com/spf13/cobra"
)

func newServeCmd(app *cli) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proofread HTTP service",
		Long: `Runs the HTTP API until SIGINT or SIGTERM, then drains in-flight
requests for at most server.shutdown_timeout.

Endpoints:
  POST   /api/proofread     correct text and annotate the changes
  POST   /api/analyze       annotate the differences between two texts
  GET    /api/records       list stored results, newest first
  GET    /api/records/:id   fetch one stored result
  DELETE /api/records/:id   delete one stored result
  GET    /health            liveness and active backends
  GET    /metrics           Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			svc, err := proofread.New(cmd.Context(), cfg, proofread.WithLogger(app.logger))
			if err != nil {
				return err
			}
			defer svc.Close()
			return svc.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	return cmd
}
