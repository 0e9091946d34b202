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
	"errors"

	"github.com/AleutianAI/AleutianProofread/pkg/ux"
	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/datatypes"
	"github.com/spf13/cobra"
)

// newDiffCmd builds "proofread diff", which annotates two given texts
// without calling any provider.
func newDiffCmd(app *cli) *cobra.Command {
	var (
		original   string
		corrected  string
		alignment  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Annotate the differences between an original and a corrected text",
		Example: `  proofread diff --original "teh cat" --corrected "The cat"
  proofread diff --original "a b c" --corrected "a c" --alignment sequence --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if original == "" {
				return errors.New("--original is required")
			}
			if alignment == "" {
				alignment = app.cfg.Analysis.Alignment
			}
			parsed, err := analyzer.ParseAlignment(alignment)
			if err != nil {
				return err
			}
			analysis := analyzer.New(parsed).Analyze(original, corrected)

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), datatypes.AnalyzeResponse{
					Analysis: analysis,
					Summary:  analyzer.Summarize(analysis),
				})
			}

			printer, err := app.printer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			printer.Result(ux.Result{
				Source:    "diff",
				Original:  original,
				Corrected: corrected,
				Changes:   toChanges(analysis),
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&original, "original", "", "Original text (required)")
	cmd.Flags().StringVar(&corrected, "corrected", "", "Corrected text")
	cmd.Flags().StringVar(&alignment, "alignment", "", "Alignment: positional or sequence (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the analysis as JSON")
	return cmd
}
