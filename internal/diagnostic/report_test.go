// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostic

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReport_HealthyWhenEverythingUp(t *testing.T) {
	commands := []CommandSnapshot{{Name: "a", Status: "Registered"}, {Name: "b", Status: "Registered"}}
	modules := []ModuleSnapshot{{Name: "core", State: "Ready"}}
	r := GenerateReport(commands, modules, time.Now())

	assert.Equal(t, Healthy, r.Summary.OverallHealth)
	assert.Equal(t, 100, r.Analysis.HealthScore)
	assert.Empty(t, r.FailedCommands)
}

func TestGenerateReport_CriticalWhenAnyFailure(t *testing.T) {
	commands := []CommandSnapshot{{Name: "a", Status: "Registered"}, {Name: "b", Status: "Failed", Reason: "boom"}}
	modules := []ModuleSnapshot{{Name: "core", State: "Ready"}}
	r := GenerateReport(commands, modules, time.Now())

	assert.Equal(t, Critical, r.Summary.OverallHealth)
	assert.Contains(t, r.FailedCommands, "b")
	assert.Less(t, r.Analysis.HealthScore, 100)
	assert.Equal(t, "High", r.Analysis.RiskAssessment)
}

func TestGenerateReport_WarningWhenPartiallyReady(t *testing.T) {
	commands := []CommandSnapshot{{Name: "a", Status: "Registered"}, {Name: "b", Status: "Unverified"}}
	modules := []ModuleSnapshot{{Name: "core", State: "Ready"}}
	r := GenerateReport(commands, modules, time.Now())

	assert.Equal(t, Warning, r.Summary.OverallHealth)
}

func TestGenerateReport_HealthScoreClampedAtZero(t *testing.T) {
	var commands []CommandSnapshot
	var modules []ModuleSnapshot
	for i := 0; i < 10; i++ {
		commands = append(commands, CommandSnapshot{Name: "cmd", Status: "Failed", Reason: "x"})
		modules = append(modules, ModuleSnapshot{Name: "mod", State: "Failed"})
	}
	r := GenerateReport(commands, modules, time.Now())
	assert.Equal(t, 0, r.Analysis.HealthScore)
}

func TestGenerateReport_RecommendationsDeduplicated(t *testing.T) {
	commands := []CommandSnapshot{{Name: "a", Status: "Failed", Reason: "x"}, {Name: "a", Status: "Failed", Reason: "x"}}
	r := GenerateReport(commands, nil, time.Now())

	seen := make(map[string]bool)
	for _, rec := range r.Recommendations {
		require.False(t, seen[rec], "duplicate recommendation: %s", rec)
		seen[rec] = true
	}
}

func TestExportJSON_RoundTrips(t *testing.T) {
	r := GenerateReport([]CommandSnapshot{{Name: "a", Status: "Registered"}}, nil, time.Now())
	data, err := ExportJSON(r)
	require.NoError(t, err)

	var decoded DiagnosticReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.Summary.OverallHealth, decoded.Summary.OverallHealth)
}

func TestExportMarkdown_ContainsKeySections(t *testing.T) {
	r := GenerateReport([]CommandSnapshot{{Name: "a", Status: "Registered"}}, nil, time.Now())
	md := ExportMarkdown(r)
	assert.True(t, strings.Contains(md, "# Diagnostic Report"))
	assert.True(t, strings.Contains(md, "Overall health"))
}

func TestExportHTML_WellFormedStructure(t *testing.T) {
	r := GenerateReport([]CommandSnapshot{{Name: "a", Status: "Registered"}}, nil, time.Now())
	html := ExportHTML(r)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.True(t, strings.Contains(html, "</html>"))
}

func TestGenerateReportTraced_ReturnsSameShapeAsUntraced(t *testing.T) {
	ctx, r := GenerateReportTraced(context.Background(), []CommandSnapshot{{Name: "a", Status: "Registered"}}, nil, time.Now())
	require.NotNil(t, ctx)
	assert.Equal(t, Healthy, r.Summary.OverallHealth)
}
