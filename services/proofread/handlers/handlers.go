// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints of the proofread service.
//
// Handlers are the only place errors are turned into status codes:
//
//	validation failure          -> 400
//	provider.ErrUnavailable     -> 503
//	*provider.UpstreamError     -> 502
//	records.ErrNotFound         -> 404
//	anything else               -> 500
//
// Every error body has the shape {"error": "..."}.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/datatypes"
	"github.com/AleutianAI/AleutianProofread/services/proofread/observability"
	"github.com/AleutianAI/AleutianProofread/services/proofread/provider"
	"github.com/AleutianAI/AleutianProofread/services/proofread/records"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

var handlerTracer = otel.Tracer("aleutian.proofread.handlers")

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Corrector provider.Corrector
	Analyzer  analyzer.Analyzer
	Store     records.Store
	Validator *datatypes.Validator
	Metrics   *observability.Metrics
}

// fail writes the error body, counts the failure and stops the chain.
func (d *Deps) fail(c *gin.Context, endpoint observability.Endpoint, status int, code observability.ErrorCode, msg string) {
	if d.Metrics != nil {
		d.Metrics.RecordError(endpoint, code)
	}
	c.AbortWithStatusJSON(status, datatypes.ErrorResponse{Error: msg})
}

func (d *Deps) succeed(c *gin.Context, endpoint observability.Endpoint, body any) {
	if d.Metrics != nil {
		d.Metrics.RecordSuccess(endpoint)
	}
	c.JSON(http.StatusOK, body)
}

// bindJSON decodes the body into dst and validates it. The returned error
// message is safe to show to the client.
func (d *Deps) bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return fmt.Errorf("%s must be a string", typeErr.Field)
		case errors.As(err, &typeErr):
			return errors.New("request body must be a JSON object")
		case errors.Is(err, io.EOF):
			return errors.New("request body is required")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("request body is not valid JSON")
		default:
			return errors.New("invalid request body")
		}
	}
	return d.Validator.Struct(dst)
}

// analyzerFor returns the per-request analyzer; alignment was validated
// by the datatypes validator.
func (d *Deps) analyzerFor(alignment string) analyzer.Analyzer {
	if alignment == "" {
		return d.Analyzer
	}
	parsed, err := analyzer.ParseAlignment(alignment)
	if err != nil {
		return d.Analyzer
	}
	return analyzer.New(parsed)
}

// HealthCheck reports liveness along with the active backends.
func HealthCheck(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:   "ok",
			Provider: d.Corrector.Name(),
			Records:  d.Store.Backend(),
		})
	}
}
