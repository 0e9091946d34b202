// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/AleutianAI/AleutianProofread/services/proofread/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the proofread API on router. gatherer backs
// /metrics; nil skips the metrics endpoint.
func SetupRoutes(router *gin.Engine, deps *handlers.Deps, gatherer prometheus.Gatherer) {
	router.GET("/health", handlers.HealthCheck(deps))
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.POST("/proofread", handlers.HandleProofread(deps))
		api.POST("/analyze", handlers.HandleAnalyze(deps))

		records := api.Group("/records")
		{
			records.GET("", handlers.ListRecords(deps))
			records.GET("/:id", handlers.GetRecord(deps))
			records.DELETE("/:id", handlers.DeleteRecord(deps))
		}
	}
}
