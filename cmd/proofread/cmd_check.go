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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianProofread/pkg/ux"
	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/datatypes"
	"github.com/AleutianAI/AleutianProofread/services/proofread/provider"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

type checkFlags struct {
	text        string
	mock        bool
	jsonOutput  bool
	alignment   string
	concurrency int
}

// checkInput is one text to proofread.
type checkInput struct {
	source string
	text   string
}

// checkResult is the JSON shape of one proofread input.
type checkResult struct {
	Source    string                `json:"source"`
	Original  string                `json:"original,omitempty"`
	Corrected string                `json:"corrected,omitempty"`
	Provider  string                `json:"provider,omitempty"`
	Analysis  []analyzer.Annotation `json:"analysis"`
	Error     string                `json:"error,omitempty"`

	err error
}

// MarshalJSON always emits "analysis" for successful results, as the HTTP
// API does, and leaves it out of failed ones.
func (r checkResult) MarshalJSON() ([]byte, error) {
	type plain checkResult
	if r.Error != "" {
		return json.Marshal(struct {
			plain
			Analysis []analyzer.Annotation `json:"analysis,omitempty"`
		}{plain: plain(r)})
	}
	if r.Analysis == nil {
		r.Analysis = []analyzer.Annotation{}
	}
	return json.Marshal(plain(r))
}

var errNoInput = errors.New("no input: pass --text, one or more files, or pipe text on stdin")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// newCheckCmd builds "proofread check".
//
// # Description
//
// Proofreads text from --text, from each file argument, or from stdin, and
// prints the corrected text with its annotations. Files are processed
// concurrently, bounded by --concurrency; output keeps argument order.
//
// # Examples
//
//	proofread check --text "i dont know"
//	proofread check --mock notes.txt draft.md
//	cat essay.txt | proofread check --json
//
// # Limitations
//
//   - Each input is subject to server.max_text_chars.
//   - The command exits non-zero when any input fails; the others are
//     still printed.
func newCheckCmd(app *cli) *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Proofread text, files or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, app, flags, args)
		},
	}
	cmd.Flags().StringVarP(&flags.text, "text", "t", "", "Text to proofread")
	cmd.Flags().BoolVar(&flags.mock, "mock", false, "Use the offline mock corrector")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print results as a JSON array")
	cmd.Flags().StringVar(&flags.alignment, "alignment", "", "Alignment: positional or sequence (default from config)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "c", 4, "Maximum inputs proofread at once")
	return cmd
}

func runCheck(cmd *cobra.Command, app *cli, flags checkFlags, args []string) error {
	if flags.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	inputs, err := collectInputs(cmd.InOrStdin(), flags.text, args)
	if err != nil {
		return err
	}

	alignment := app.cfg.Analysis.Alignment
	if flags.alignment != "" {
		alignment = flags.alignment
	}
	parsed, err := analyzer.ParseAlignment(alignment)
	if err != nil {
		return err
	}
	an := analyzer.New(parsed)

	var corrector provider.Corrector
	if flags.mock {
		corrector = provider.NewMockCorrector()
	} else {
		corrector, err = provider.New(app.cfg.Provider)
		if err != nil {
			return err
		}
	}

	var printer *ux.Printer
	if !flags.jsonOutput {
		printer, err = app.printer(cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	spinner := ux.NewSpinner(cmd.ErrOrStderr(), spinnerMode(cmd.ErrOrStderr(), flags.jsonOutput), "Proofreading")
	spinner.Start()
	results, err := proofreadAll(cmd.Context(), corrector, an, datatypes.NewValidator(app.cfg.Server.MaxTextChars),
		inputs, flags.concurrency, func(done int) { spinner.Progress("Proofreading", done, len(inputs)) })
	spinner.Stop()
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		}
	}

	if flags.jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		shown := make([]ux.Result, 0, len(results))
		for _, r := range results {
			res := toUXResult(r)
			printer.Result(res)
			shown = append(shown, res)
		}
		if len(results) > 1 {
			printer.Summary(shown)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}

// collectInputs resolves the inputs in priority order: --text, files, stdin.
// Reading from an interactive terminal is refused so the command never
// blocks waiting for input nobody is typing.
func collectInputs(stdin io.Reader, text string, files []string) ([]checkInput, error) {
	if text != "" {
		if len(files) > 0 {
			return nil, errors.New("--text cannot be combined with file arguments")
		}
		return []checkInput{{source: "text", text: text}}, nil
	}
	if len(files) > 0 {
		inputs := make([]checkInput, 0, len(files))
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			inputs = append(inputs, checkInput{source: path, text: string(data)})
		}
		return inputs, nil
	}
	if f, ok := stdin.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil, errNoInput
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, errNoInput
	}
	return []checkInput{{source: "stdin", text: string(data)}}, nil
}

// proofreadAll corrects every input with at most limit in flight. Per-input
// failures are stored on the result; only cancellation of ctx is returned.
// Results are in input order.
func proofreadAll(ctx context.Context, corrector provider.Corrector, an analyzer.Analyzer,
	validator *datatypes.Validator, inputs []checkInput, limit int, progress func(done int)) ([]checkResult, error) {

	results := make([]checkResult, len(inputs))
	done := make(chan struct{}, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			defer func() { done <- struct{}{} }()
			results[i] = proofreadOne(gctx, corrector, an, validator, in)
			return gctx.Err()
		})
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- g.Wait() }()

	completed := 0
	for completed < len(inputs) {
		<-done
		completed++
		if progress != nil {
			progress(completed)
		}
	}
	if err := <-waitErr; err != nil {
		return nil, err
	}
	return results, nil
}

func proofreadOne(ctx context.Context, corrector provider.Corrector, an analyzer.Analyzer,
	validator *datatypes.Validator, in checkInput) checkResult {

	res := checkResult{Source: in.source}
	if err := validator.Struct(&datatypes.ProofreadRequest{Text: in.text}); err != nil {
		res.err = err
		res.Error = err.Error()
		return res
	}

	corrected, source, err := provider.CorrectWithSource(ctx, corrector, in.text)
	if err != nil {
		slog.Debug("Proofreading failed", "source", in.source, "error", err)
		res.err = err
		res.Error = describeProviderError(err)
		return res
	}

	res.Original = in.text
	res.Corrected = corrected
	res.Provider = source
	res.Analysis = an.Analyze(in.text, corrected)
	return res
}

// describeProviderError turns provider errors into the same wording the
// HTTP API uses, followed by the cause.
func describeProviderError(err error) string {
	switch {
	case provider.IsUnavailable(err):
		return "correction provider unavailable: " + err.Error()
	case provider.IsUpstream(err):
		return "correction provider error: " + err.Error()
	default:
		return err.Error()
	}
}

func toUXResult(r checkResult) ux.Result {
	res := ux.Result{
		Source:    r.Source,
		Original:  r.Original,
		Corrected: r.Corrected,
		Provider:  r.Provider,
	}
	if r.err != nil {
		res.Err = errors.New(r.Error)
		return res
	}
	res.Changes = toChanges(r.Analysis)
	return res
}

func toChanges(annotations []analyzer.Annotation) []ux.Change {
	changes := make([]ux.Change, 0, len(annotations))
	for _, a := range annotations {
		changes = append(changes, ux.Change{
			Position:   a.Position,
			Original:   a.Original,
			Corrected:  a.Corrected,
			Kind:       string(a.Type),
			Suggestion: a.Suggestion,
		})
	}
	return changes
}

// spinnerMode animates only on an interactive stderr and never alongside
// JSON output.
func spinnerMode(w io.Writer, jsonOutput bool) ux.Mode {
	if jsonOutput {
		return ux.ModePlain
	}
	f, _ := w.(*os.File)
	return ux.DetectMode(f)
}
