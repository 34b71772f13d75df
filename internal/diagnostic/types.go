// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package diagnostic implements the Diagnostic Tool half of §4.5: it
// derives a DiagnosticReport from catalogue and initializer snapshots,
// computes a 0-100 health score, and exports the report as JSON, Markdown,
// or HTML.
package diagnostic

import "time"

// OverallHealth is the closed tri-state rollup (§4.5).
type OverallHealth string

const (
	Healthy  OverallHealth = "Healthy"
	Warning  OverallHealth = "Warning"
	Critical OverallHealth = "Critical"
)

// IssueSeverity classifies an entry in the automated analysis (§4.5 health
// score deductions: 25/10/2 per Critical/Warning/Info issue).
type IssueSeverity int

const (
	IssueInfo IssueSeverity = iota
	IssueWarning
	IssueCritical
)

func (s IssueSeverity) deduction() int {
	switch s {
	case IssueCritical:
		return 25
	case IssueWarning:
		return 10
	default:
		return 2
	}
}

// Issue is one entry in the automated analysis.
type Issue struct {
	Severity IssueSeverity
	Message  string
}

// CommandSummary is the command half of DiagnosticReport.Summary.
type CommandSummary struct {
	Total      int
	Active     int
	Failed     int
}

// ModuleSummary is the module half of DiagnosticReport.Summary.
type ModuleSummary struct {
	Total  int
	Ready  int
	Failed int
}

// Summary aggregates command and module counts plus the overall rollup.
type Summary struct {
	Commands     CommandSummary
	Modules      ModuleSummary
	OverallHealth OverallHealth
}

// AutomatedAnalysis is the §4.5 "additional outputs" block: issues,
// suggestions, a trend placeholder (the spec names this as a placeholder,
// not a populated time series), a coarse risk label, and the 0-100 health
// score.
type AutomatedAnalysis struct {
	Issues            []Issue
	Suggestions       []string
	Trend             string
	RiskAssessment    string
	HealthScore       int
}

// DiagnosticReport is the full export payload (§4.5).
type DiagnosticReport struct {
	Timestamp          time.Time                `json:"timestamp"`
	RegisteredCommands []string                  `json:"registeredCommands"`
	FailedCommands     []string                  `json:"failedCommands"`
	ModuleStates       map[string]string         `json:"moduleStates"`
	Summary            Summary                   `json:"summary"`
	Recommendations    []string                  `json:"recommendations"`
	SuggestedFixes     map[string][]string       `json:"suggestedFixes"`
	Analysis           AutomatedAnalysis         `json:"analysis"`
}
