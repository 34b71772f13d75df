// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostic

import (
	"fmt"
	"sort"
	"time"
)

// CommandSnapshot is the slice of catalog.CommandInfo the diagnostic tool
// reads, kept narrow so this package never needs a hard dependency on the
// catalogue's concrete types (§3: "shared, read-only snapshot capability").
type CommandSnapshot struct {
	Name   string
	Status string // "Registered", "Failed", "Unverified", "Disabled"
	Reason string // populated when Status == "Failed"
}

// ModuleSnapshot is the slice of initializer.InitState the diagnostic tool
// reads.
type ModuleSnapshot struct {
	Name  string
	State string // "Ready", "Failed", "Pending", "Initializing"
}

// GenerateReport derives a DiagnosticReport from read-only snapshots of the
// catalogue and the initializer (§4.5).
func GenerateReport(commands []CommandSnapshot, modules []ModuleSnapshot, now time.Time) *DiagnosticReport {
	sortedCommands := append([]CommandSnapshot(nil), commands...)
	sort.Slice(sortedCommands, func(i, j int) bool { return sortedCommands[i].Name < sortedCommands[j].Name })
	sortedModules := append([]ModuleSnapshot(nil), modules...)
	sort.Slice(sortedModules, func(i, j int) bool { return sortedModules[i].Name < sortedModules[j].Name })

	var registered, failedCommands []string
	for _, c := range sortedCommands {
		switch c.Status {
		case "Registered":
			registered = append(registered, c.Name)
		case "Failed":
			failedCommands = append(failedCommands, c.Name)
		}
	}

	moduleStates := make(map[string]string, len(sortedModules))
	readyModules, failedModules := 0, 0
	for _, m := range sortedModules {
		moduleStates[m.Name] = m.State
		switch m.State {
		case "Ready":
			readyModules++
		case "Failed":
			failedModules++
		}
	}

	summary := Summary{
		Commands: CommandSummary{Total: len(sortedCommands), Active: len(registered), Failed: len(failedCommands)},
		Modules:  ModuleSummary{Total: len(sortedModules), Ready: readyModules, Failed: failedModules},
	}
	summary.OverallHealth = deriveOverallHealth(summary)

	analysis := buildAnalysis(sortedCommands, sortedModules, summary)
	recommendations := dedupRecommendations(analysis, summary)
	fixes := suggestedFixes(sortedCommands, sortedModules)

	return &DiagnosticReport{
		Timestamp:           now,
		RegisteredCommands:  registered,
		FailedCommands:      failedCommands,
		ModuleStates:        moduleStates,
		Summary:             summary,
		Recommendations:     recommendations,
		SuggestedFixes:      fixes,
		Analysis:            analysis,
	}
}

func deriveOverallHealth(s Summary) OverallHealth {
	if s.Commands.Failed > 0 || s.Modules.Failed > 0 {
		return Critical
	}
	if s.Commands.Active < s.Commands.Total || s.Modules.Ready < s.Modules.Total {
		return Warning
	}
	return Healthy
}

func buildAnalysis(commands []CommandSnapshot, modules []ModuleSnapshot, summary Summary) AutomatedAnalysis {
	var issues []Issue
	var suggestions []string

	for _, c := range commands {
		switch c.Status {
		case "Failed":
			issues = append(issues, Issue{Severity: IssueCritical, Message: fmt.Sprintf("command '%s' is in Failed state: %s", c.Name, c.Reason)})
			suggestions = append(suggestions, fmt.Sprintf("Investigate and re-register command '%s'", c.Name))
		case "Unverified":
			issues = append(issues, Issue{Severity: IssueWarning, Message: fmt.Sprintf("command '%s' has not been verified since registration", c.Name)})
			suggestions = append(suggestions, fmt.Sprintf("Run validate_command('%s') to promote it out of Unverified", c.Name))
		case "Disabled":
			issues = append(issues, Issue{Severity: IssueInfo, Message: fmt.Sprintf("command '%s' is administratively disabled", c.Name)})
		}
	}

	for _, m := range modules {
		switch m.State {
		case "Failed":
			issues = append(issues, Issue{Severity: IssueCritical, Message: fmt.Sprintf("module '%s' failed to initialize", m.Name)})
			suggestions = append(suggestions, fmt.Sprintf("Inspect module '%s' logs and retry initialize_all", m.Name))
		case "Pending", "Initializing":
			issues = append(issues, Issue{Severity: IssueWarning, Message: fmt.Sprintf("module '%s' never reached Ready", m.Name)})
		}
	}

	score := 100
	for _, issue := range issues {
		score -= issue.Severity.deduction()
	}
	score -= 5 * summary.Commands.Failed
	score -= 10 * summary.Modules.Failed
	if score < 0 {
		score = 0
	}

	risk := "Low"
	switch {
	case summary.OverallHealth == Critical:
		risk = "High"
	case summary.OverallHealth == Warning:
		risk = "Medium"
	}

	return AutomatedAnalysis{
		Issues:         issues,
		Suggestions:    suggestions,
		Trend:          "insufficient history to compute a trend",
		RiskAssessment: risk,
		HealthScore:    score,
	}
}

// dedupRecommendations builds the report-level Recommendations list: it
// starts from the analysis suggestions (already specific) and adds
// summary-level advice, de-duplicating while preserving first-seen order.
func dedupRecommendations(analysis AutomatedAnalysis, summary Summary) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, s := range analysis.Suggestions {
		add(s)
	}
	if summary.OverallHealth == Critical {
		add("Resolve failed commands and modules before accepting further traffic")
	}
	if summary.OverallHealth == Warning {
		add("Review unverified commands and modules not yet Ready")
	}
	if summary.OverallHealth == Healthy {
		add("No action required; catalogue and modules are fully healthy")
	}
	return out
}

func suggestedFixes(commands []CommandSnapshot, modules []ModuleSnapshot) map[string][]string {
	fixes := make(map[string][]string)
	for _, c := range commands {
		if c.Status == "Failed" {
			fixes["failed_commands"] = append(fixes["failed_commands"], fmt.Sprintf("%s: %s", c.Name, c.Reason))
		}
		if c.Status == "Unverified" {
			fixes["unverified_commands"] = append(fixes["unverified_commands"], c.Name)
		}
	}
	for _, m := range modules {
		if m.State == "Failed" {
			fixes["failed_modules"] = append(fixes["failed_modules"], m.Name)
		}
	}
	return fixes
}
