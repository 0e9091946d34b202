// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/AleutianAI/AleutianProofread/services/proofread/datatypes"
	"github.com/AleutianAI/AleutianProofread/services/proofread/middleware"
	"github.com/AleutianAI/AleutianProofread/services/proofread/observability"
	"github.com/AleutianAI/AleutianProofread/services/proofread/provider"
	"github.com/AleutianAI/AleutianProofread/services/proofread/records"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HandleProofread corrects the submitted text and annotates every change.
//
// # Description
//
// POST /api/proofread with {"text": "...", "alignment": "positional|sequence"}.
// The provider corrects the text, the analyzer compares original and
// corrected, and the result is stored when a record backend is configured.
// A failed record write is logged and does not fail the request.
//
// # Outputs
//
//   - 200: datatypes.ProofreadResponse; "id" only when the record was stored.
//   - 400: Missing, blank, non-string or over-long text.
//   - 502: The provider failed.
//   - 503: No provider is configured.
//   - 500: Anything else.
func HandleProofread(d *Deps) gin.HandlerFunc {
	const endpoint = observability.EndpointProofread

	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleProofread")
		defer span.End()
		log := middleware.Logger(c)

		var req datatypes.ProofreadRequest
		if err := d.bindJSON(c, &req); err != nil {
			span.SetStatus(codes.Error, "validation")
			log.Warn("Rejected proofread request", "error", err)
			d.fail(c, endpoint, http.StatusBadRequest, observability.ErrorCodeValidation, err.Error())
			return
		}

		chars := utf8.RuneCountInString(req.Text)
		span.SetAttributes(attribute.Int("text_chars", chars))
		if d.Metrics != nil {
			d.Metrics.RecordTextLength(chars)
		}

		start := time.Now()
		corrected, source, err := provider.CorrectWithSource(ctx, d.Corrector, req.Text)
		if d.Metrics != nil {
			d.Metrics.RecordProvider(d.Corrector.Name(), time.Since(start), err)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			switch {
			case provider.IsUnavailable(err):
				log.Error("Correction provider unavailable", "provider", d.Corrector.Name(), "error", err)
				d.fail(c, endpoint, http.StatusServiceUnavailable, observability.ErrorCodeProviderUnavailable,
					"correction provider unavailable")
			case provider.IsUpstream(err):
				log.Error("Correction provider failed", "provider", d.Corrector.Name(), "error", err)
				d.fail(c, endpoint, http.StatusBadGateway, observability.ErrorCodeProviderError,
					"correction provider error")
			default:
				log.Error("Proofreading failed", "error", err)
				d.fail(c, endpoint, http.StatusInternalServerError, observability.ErrorCodeInternal,
					"internal server error")
			}
			return
		}

		analysis := d.analyzerFor(req.Alignment).Analyze(req.Text, corrected)
		if d.Metrics != nil {
			d.Metrics.RecordAnnotations(analysis)
		}
		span.SetAttributes(
			attribute.String("provider", source),
			attribute.Int("annotations", len(analysis)),
		)

		resp := datatypes.ProofreadResponse{
			Original:  req.Text,
			Corrected: corrected,
			Analysis:  analysis,
			Provider:  source,
		}

		if d.Store != nil && d.Store.Backend() != config.RecordsNone {
			rec := records.NewRecord(req.Text, corrected, analysis, source)
			if err := d.Store.Save(ctx, rec); err != nil {
				log.Warn("Failed to store proofreading record", "error", err)
			} else {
				resp.ID = rec.ID
			}
		}

		log.Info("Proofread completed", "provider", source, "annotations", len(analysis), "chars", chars)
		d.succeed(c, endpoint, resp)
	}
}

// HandleAnalyze compares two texts without calling the provider.
//
// POST /api/analyze with {"original": "...", "corrected": "...", "alignment": "..."}.
func HandleAnalyze(d *Deps) gin.HandlerFunc {
	const endpoint = observability.EndpointAnalyze

	return func(c *gin.Context) {
		var req datatypes.AnalyzeRequest
		if err := d.bindJSON(c, &req); err != nil {
			d.fail(c, endpoint, http.StatusBadRequest, observability.ErrorCodeValidation, err.Error())
			return
		}

		analysis := d.analyzerFor(req.Alignment).Analyze(req.Original, req.Corrected)
		if d.Metrics != nil {
			d.Metrics.RecordAnnotations(analysis)
		}
		d.succeed(c, endpoint, datatypes.AnalyzeResponse{
			Analysis: analysis,
			Summary:  analyzer.Summarize(analysis),
		})
	}
}
