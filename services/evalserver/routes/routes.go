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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jangel97/text-to-mongo/pkg/extensions"
	"github.com/jangel97/text-to-mongo/services/evalserver/handlers"
	"github.com/jangel97/text-to-mongo/services/evalserver/middleware"
)

// RateLimit configures the shared request limiter.
type RateLimit struct {
	RPS   float64
	Burst int
}

// DefaultRateLimit is generous for a local service; it exists to stop
// accidental client loops, not to police tenants.
func DefaultRateLimit() RateLimit {
	return RateLimit{RPS: 50, Burst: 100}
}

// SetupRoutes wires the full route table. Health and metrics stay outside
// the authenticated group so probes and scrapers need no token.
func SetupRoutes(router *gin.Engine, deps handlers.Deps, opts extensions.ServiceOptions, limit RateLimit) {
	router.GET("/health", handlers.HealthCheck(deps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.AuthProvider, deps.Metrics))
	v1.Use(middleware.RateLimitMiddleware(limit.RPS, limit.Burst))
	{
		v1.POST("/evaluations", handlers.HandleEvaluate(deps))
		v1.GET("/evaluations/ws", handlers.HandleEvalWebSocket(deps))
		v1.POST("/validate", handlers.HandleValidate(deps))

		runs := v1.Group("/runs")
		{
			runs.GET("", handlers.ListRuns(deps))
			runs.GET("/:id", handlers.GetRun(deps))
			runs.DELETE("/:id", handlers.DeleteRun(deps))
		}
	}
}
