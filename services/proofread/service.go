// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package proofread assembles the proofreading HTTP service.
//
// The service exposes endpoints for:
//   - Correcting text through the configured provider (/api/proofread)
//   - Annotating the differences between two texts (/api/analyze)
//   - Browsing stored proofreading records (/api/records)
//   - Liveness and Prometheus metrics (/health, /metrics)
package proofread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianProofread/pkg/logging"
	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/AleutianAI/AleutianProofread/services/proofread/datatypes"
	"github.com/AleutianAI/AleutianProofread/services/proofread/handlers"
	"github.com/AleutianAI/AleutianProofread/services/proofread/middleware"
	"github.com/AleutianAI/AleutianProofread/services/proofread/observability"
	"github.com/AleutianAI/AleutianProofread/services/proofread/provider"
	"github.com/AleutianAI/AleutianProofread/services/proofread/records"
	"github.com/AleutianAI/AleutianProofread/services/proofread/routes"
	"github.com/AleutianAI/AleutianProofread/services/proofread/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ServiceName identifies the service in logs, traces and log file names.
const ServiceName = "proofread"

const (
	readHeaderTimeout     = 10 * time.Second
	telemetryFlushTimeout = 5 * time.Second
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// =============================================================================
// Options
// =============================================================================

type options struct {
	corrector provider.Corrector
	store     records.Store
	logger    *logging.Logger
}

// Option customizes New.
type Option func(*options)

// WithCorrector replaces the provider built from the configuration.
func WithCorrector(c provider.Corrector) Option {
	return func(o *options) { o.corrector = c }
}

// WithStore replaces the record store opened from the configuration. The
// service takes ownership and closes it.
func WithStore(s records.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger replaces the logger built from the logging configuration.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// =============================================================================
// Service
// =============================================================================

// Service is the proofread HTTP service.
//
// Thread Safety: Router may be served concurrently. Run and Close are
// meant to be called once each.
type Service struct {
	cfg       config.Config
	logger    *logging.Logger
	ownLogger bool
	router    *gin.Engine
	deps      *handlers.Deps
	registry  *prometheus.Registry
	telemetry telemetry.Shutdown

	closeOnce sync.Once
	closeErr  error
}

// New wires the service from cfg.
//
// # Description
//
// Builds, in order: the logger, telemetry, metrics, the correction
// provider, the record store, the request validator and the analyzer, then
// the gin router with its middleware chain:
//
//	Recovery -> otelgin -> RequestID -> AccessLog -> CORS -> RateLimit
//
// # Inputs
//
//   - ctx: Used for telemetry exporter setup only.
//   - cfg: Validated with cfg.Validate before anything is built.
//   - opts: Replace individual collaborators, mainly for tests.
//
// # Outputs
//
//   - *Service: Ready to Run. Callers must Close it.
//   - error: Invalid configuration or a collaborator failed to start.
//     Anything already built is released.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	alignment, err := analyzer.ParseAlignment(cfg.Analysis.Alignment)
	if err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{cfg: cfg, logger: o.logger}
	if s.logger == nil {
		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		s.logger = logging.New(logging.Config{
			Level:   level,
			LogDir:  cfg.Logging.LogDir,
			Service: ServiceName,
			JSON:    cfg.Logging.JSON,
		})
		s.ownLogger = true
	}
	slog.SetDefault(s.logger.Slog())

	ok := false
	defer func() {
		if !ok {
			_ = s.Close()
		}
	}()

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		Registerer:     s.registry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetry = shutdown

	metrics := observability.NewMetrics(s.registry)

	corrector := o.corrector
	if corrector == nil {
		corrector, err = provider.New(cfg.Provider, provider.WithFallbackHook(metrics.RecordFallback))
		if err != nil {
			return nil, err
		}
	}

	store := o.store
	if store == nil {
		store, err = records.Open(cfg.Records, s.logger.Slog())
		if err != nil {
			return nil, err
		}
	}

	s.deps = &handlers.Deps{
		Corrector: corrector,
		Analyzer:  analyzer.New(alignment),
		Store:     store,
		Validator: datatypes.NewValidator(cfg.Server.MaxTextChars),
		Metrics:   metrics,
	}
	s.router = s.buildRouter()

	s.logger.Info("Proofread service configured",
		"provider", corrector.Name(),
		"model", cfg.Provider.Model,
		"records", store.Backend(),
		"alignment", string(alignment),
		"max_text_chars", cfg.Server.MaxTextChars,
		"rate_limit_rps", cfg.RateLimit.RequestsPerSecond,
	)
	ok = true
	return s, nil
}

func (s *Service) buildRouter() *gin.Engine {
	if s.cfg.Server.GinMode != "" {
		gin.SetMode(s.cfg.Server.GinMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog())
	if mw := middleware.CORS(s.cfg.CORS.AllowedOrigins); mw != nil {
		router.Use(mw)
	}
	if s.cfg.RateLimit.RequestsPerSecond > 0 {
		metrics := s.deps.Metrics
		router.Use(middleware.RateLimit(s.cfg.RateLimit.RequestsPerSecond, s.cfg.RateLimit.Burst,
			func(c *gin.Context) {
				metrics.RecordError(observability.EndpointFor(c.Request.Method, c.FullPath()), observability.ErrorCodeRateLimited)
			}))
	}

	var gatherer prometheus.Gatherer
	if s.cfg.Telemetry.EnableMetrics {
		gatherer = s.registry
	}
	routes.SetupRoutes(router, s.deps, gatherer)
	return router
}

// Router returns the configured gin engine.
func (s *Service) Router() *gin.Engine { return s.router }

// Registry returns the Prometheus registry backing /metrics.
func (s *Service) Registry() *prometheus.Registry { return s.registry }

// Run serves HTTP on the configured port until ctx is cancelled, then
// drains in-flight requests for at most Server.ShutdownTimeout.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Server.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on a caller-supplied listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting proofread server", "addr", ln.Addr().String(), "version", Version)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down proofread server", "timeout", s.cfg.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the record store, flushes telemetry and closes the log
// file. Idempotent.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.deps != nil && s.deps.Store != nil {
			errs = append(errs, s.deps.Store.Close())
		}
		if s.telemetry != nil {
			ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
			errs = append(errs, s.telemetry(ctx))
			cancel()
		}
		if s.ownLogger && s.logger != nil {
			errs = append(errs, s.logger.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
