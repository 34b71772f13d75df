// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/bridge-registry/internal/diagnostic"
)

// newAdminServer wires a gin engine exposing catalogue introspection (§6)
// and diagnostic report export (§4.5), instrumented the way the teacher
// instruments its own HTTP surface (services/orchestrator/main.go).
func newAdminServer(rt *runtime) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("registryd"))

	router.GET("/commands", func(c *gin.Context) {
		c.JSON(http.StatusOK, rt.reg.ListAvailableCommands())
	})

	router.GET("/commands/:name", func(c *gin.Context) {
		name := c.Param("name")
		status, ok := rt.reg.GetCommandStatusDetailed(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "command not found"})
			return
		}
		c.JSON(http.StatusOK, status)
	})

	router.POST("/commands/:name/calls", func(c *gin.Context) {
		rt.reg.RecordCommandCall(c.Param("name"))
		c.Status(http.StatusNoContent)
	})

	router.GET("/alerts", func(c *gin.Context) {
		c.JSON(http.StatusOK, rt.alert.GetActiveAlerts())
	})

	router.POST("/alerts/:id/resolve", func(c *gin.Context) {
		if !rt.alert.ResolveAlert(c.Param("id")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found or already resolved"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	router.GET("/health", func(c *gin.Context) {
		report := rt.init.ComprehensiveHealthCheck(c.Request.Context())
		c.JSON(http.StatusOK, report)
	})

	router.GET("/diagnostic", func(c *gin.Context) {
		_, report := diagnostic.GenerateReportTraced(c.Request.Context(), snapshotCommands(rt), snapshotModules(rt), time.Now())
		switch c.Query("format") {
		case "markdown":
			c.String(http.StatusOK, diagnostic.ExportMarkdown(report))
		case "html":
			c.Header("Content-Type", "text/html")
			c.String(http.StatusOK, diagnostic.ExportHTML(report))
		default:
			c.JSON(http.StatusOK, report)
		}
	})

	return router
}

func snapshotCommands(rt *runtime) []diagnostic.CommandSnapshot {
	all := rt.reg.GetAllCommands()
	out := make([]diagnostic.CommandSnapshot, 0, len(all))
	for _, info := range all {
		out = append(out, diagnostic.CommandSnapshot{Name: info.Name, Status: info.Status.Kind.String(), Reason: info.Status.Reason})
	}
	return out
}

func snapshotModules(rt *runtime) []diagnostic.ModuleSnapshot {
	states := rt.init.GetAllStates()
	out := make([]diagnostic.ModuleSnapshot, 0, len(states))
	for name, st := range states {
		out = append(out, diagnostic.ModuleSnapshot{Name: name, State: st.String()})
	}
	return out
}
