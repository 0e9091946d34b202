// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the JSON request and response bodies of the
// proofread HTTP API and their validation.
package datatypes

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/records"
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Validator
// =============================================================================

// Validator checks request bodies. The maxchars tag compares the rune count
// of a string against the limit the Validator was built with.
type Validator struct {
	validate *validator.Validate
	maxChars int
}

// NewValidator builds a Validator enforcing maxChars on text fields.
func NewValidator(maxChars int) *Validator {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("maxchars", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= maxChars
	})
	return &Validator{validate: v, maxChars: maxChars}
}

// MaxChars returns the configured text limit.
func (v *Validator) MaxChars() int { return v.maxChars }

// Struct validates s and translates the first failure into a message fit
// for the API's {"error": ...} body.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := jsonFieldName(fe)
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Errorf("%s is required", field)
	case "maxchars":
		return fmt.Errorf("%s exceeds maximum length of %d characters", field, v.maxChars)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// jsonFieldName lower-cases the struct field name; every validated field's
// JSON name is its lower-cased Go name.
func jsonFieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

// =============================================================================
// Proofread
// =============================================================================

// ProofreadRequest is the body of POST /api/proofread.
type ProofreadRequest struct {
	Text      string `json:"text" validate:"required,notblank,maxchars"`
	Alignment string `json:"alignment,omitempty" validate:"omitempty,oneof=positional sequence"`
}

// ProofreadResponse is the 200 body of POST /api/proofread.
type ProofreadResponse struct {
	Original  string                `json:"original"`
	Corrected string                `json:"corrected"`
	Analysis  []analyzer.Annotation `json:"analysis"`
	Provider  string                `json:"provider"`
	ID        string                `json:"id,omitempty"`
}

// =============================================================================
// Analyze
// =============================================================================

// AnalyzeRequest is the body of POST /api/analyze. Corrected may be empty
// (every original word is then reported as extra).
type AnalyzeRequest struct {
	Original  string `json:"original" validate:"required,notblank,maxchars"`
	Corrected string `json:"corrected" validate:"maxchars"`
	Alignment string `json:"alignment,omitempty" validate:"omitempty,oneof=positional sequence"`
}

// AnalyzeResponse is the 200 body of POST /api/analyze.
type AnalyzeResponse struct {
	Analysis []analyzer.Annotation     `json:"analysis"`
	Summary  map[analyzer.Category]int `json:"summary"`
}

// =============================================================================
// Records and health
// =============================================================================

// RecordListResponse is the 200 body of GET /api/records.
type RecordListResponse struct {
	Records []records.Record `json:"records"`
	Count   int              `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Records  string `json:"records"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
