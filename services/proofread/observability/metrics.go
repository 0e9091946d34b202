// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the proofread service.
//
// # Description
//
// Metrics cover request outcomes, provider latency and fallbacks, and the
// distribution of annotation categories. They are exposed on /metrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const (
	metricsNamespace = "aleutian"
	metricsSubsystem = "proofread"
)

// Metrics holds all Prometheus metrics for the proofread service.
//
// # Fields
//
//   - RequestsTotal: Requests by endpoint and status (success, error).
//   - ErrorsTotal: Failed requests by endpoint and error_code.
//   - AnnotationsTotal: Annotations produced, by category.
//   - ProviderDurationSeconds: Correction latency by provider and outcome.
//   - ProviderFallbacksTotal: Answers served by the mock for a failed provider.
//   - TextLengthChars: Submitted text length in characters.
type Metrics struct {
	RequestsTotal           *prometheus.CounterVec
	ErrorsTotal             *prometheus.CounterVec
	AnnotationsTotal        *prometheus.CounterVec
	ProviderDurationSeconds *prometheus.HistogramVec
	ProviderFallbacksTotal  *prometheus.CounterVec
	TextLengthChars         prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
//
// # Description
//
// Each service instance passes its own registry so several instances (as in
// tests) can coexist without duplicate registration panics.
//
// # Inputs
//
//   - reg: Registerer to attach to. Nil means prometheus.DefaultRegisterer.
//
// # Limitations
//
//   - Panics if the same metrics are registered twice with one registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "requests_total",
				Help:      "Total number of proofread API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "errors_total",
				Help:      "Total failed requests by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		AnnotationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "annotations_total",
				Help:      "Total annotations produced by category",
			},
			[]string{"type"},
		),

		ProviderDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "provider_duration_seconds",
				Help:      "Correction provider latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "outcome"},
		),

		ProviderFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "provider_fallbacks_total",
				Help:      "Total corrections served by the fallback provider",
			},
			[]string{"provider"},
		),

		TextLengthChars: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "text_length_chars",
				Help:      "Length of submitted text in characters",
				Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
	}
}

// =============================================================================
// Labels
// =============================================================================

// ErrorCode categorizes a failed request.
type ErrorCode string

const (
	ErrorCodeValidation          ErrorCode = "validation"
	ErrorCodeProviderUnavailable ErrorCode = "provider_unavailable"
	ErrorCodeProviderError       ErrorCode = "provider_error"
	ErrorCodeInternal            ErrorCode = "internal"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
)

// Endpoint labels the API operation.
type Endpoint string

const (
	EndpointProofread    Endpoint = "proofread"
	EndpointAnalyze      Endpoint = "analyze"
	EndpointRecordsList  Endpoint = "records_list"
	EndpointRecordGet    Endpoint = "record_get"
	EndpointRecordDelete Endpoint = "record_delete"

	// EndpointOther labels requests outside the API, such as unknown paths.
	EndpointOther Endpoint = "other"
)

// EndpointFor maps an HTTP method and gin route pattern to its label.
func EndpointFor(method, route string) Endpoint {
	switch route {
	case "/api/proofread":
		return EndpointProofread
	case "/api/analyze":
		return EndpointAnalyze
	case "/api/records":
		return EndpointRecordsList
	case "/api/records/:id":
		if method == "DELETE" {
			return EndpointRecordDelete
		}
		return EndpointRecordGet
	default:
		return EndpointOther
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordSuccess counts a request that completed with 2xx.
func (m *Metrics) RecordSuccess(endpoint Endpoint) {
	m.RequestsTotal.WithLabelValues(string(endpoint), "success").Inc()
}

// RecordError counts a failed request under both requests_total and errors_total.
func (m *Metrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.RequestsTotal.WithLabelValues(string(endpoint), "error").Inc()
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordAnnotations adds one count per annotation to its category.
func (m *Metrics) RecordAnnotations(annotations []analyzer.Annotation) {
	for category, n := range analyzer.Summarize(annotations) {
		m.AnnotationsTotal.WithLabelValues(string(category)).Add(float64(n))
	}
}

// RecordProvider observes one correction call.
func (m *Metrics) RecordProvider(provider string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ProviderDurationSeconds.WithLabelValues(provider, outcome).Observe(elapsed.Seconds())
}

// RecordFallback counts an answer served by the fallback for provider.
func (m *Metrics) RecordFallback(provider string, _ error) {
	m.ProviderFallbacksTotal.WithLabelValues(provider).Inc()
}

// RecordTextLength observes the character count of submitted text.
func (m *Metrics) RecordTextLength(chars int) {
	m.TextLengthChars.Observe(float64(chars))
}
