// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package initializer implements the Module Initializer (§4.3): it holds
// module descriptors with dependency edges, computes an initialization
// order by topological sort, drives initialization with per-module recovery
// strategies, and produces a comprehensive health report.
package initializer

import (
	"context"
	"time"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
)

// InitState is the lifecycle state of a module.
type InitState int

const (
	Pending InitState = iota
	Initializing
	Ready
	InitFailed
)

func (s InitState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Initializing:
		return "Initializing"
	case Ready:
		return "Ready"
	case InitFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// EdgeKind is whether a dependency edge constrains initialization order.
// Only Hard edges do (§3); Soft edges only inform health reporting; Circular
// marks an edge detected to be part of a cycle.
type EdgeKind int

const (
	Hard EdgeKind = iota
	Soft
	Circular
)

// Module is the capability interface every service component implements
// (§6). Implementations must be safe for concurrent use (Send + Sync in the
// spec's terms) since the initializer and periodic health checks may call
// them from different goroutines.
type Module interface {
	Name() string
	Dependencies() []string
	Initialize(ctx context.Context) *envelope.ModuleError
	HealthCheck(ctx context.Context) *envelope.ModuleError
	Shutdown(ctx context.Context) *envelope.ModuleError
}

// HealthStatus classifies a single module's health check result.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Degraded
	Critical
)

func (s HealthStatus) String() string {
	switch s {
	case Healthy:
		return "Healthy"
	case Degraded:
		return "Degraded"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ModuleHealth is one module's entry in a HealthReport.
type ModuleHealth struct {
	Name         string
	Status       HealthStatus
	Message      string
	ResponseTime time.Duration
}

// DependencyIssue records that a module's dependency is unhealthy.
type DependencyIssue struct {
	Module     string
	Dependency string
	Issue      string
}

// OverallStatus is the system-wide health rollup.
type OverallStatus int

const (
	OverallHealthy OverallStatus = iota
	OverallDegraded
	OverallCritical
	OverallFailed
)

func (s OverallStatus) String() string {
	switch s {
	case OverallHealthy:
		return "Healthy"
	case OverallDegraded:
		return "Degraded"
	case OverallCritical:
		return "Critical"
	case OverallFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// HealthReport is the output of ComprehensiveHealthCheck.
type HealthReport struct {
	Timestamp        time.Time
	Modules          map[string]ModuleHealth
	DependencyIssues []DependencyIssue
	OverallStatus    OverallStatus
}
