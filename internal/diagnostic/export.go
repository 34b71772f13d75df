// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportJSON serializes the report directly (§6: "JSON is the canonical
// serialization of DiagnosticReport").
func ExportJSON(r *DiagnosticReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ExportMarkdown renders a human-readable derivative of the report: overall
// health, command and module counts, health score and risk, recommendations,
// and issues. The per-command and per-module lists, suggested fixes,
// analysis suggestions, and trend appear only in the JSON export.
func ExportMarkdown(r *DiagnosticReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Diagnostic Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "**Overall health:** %s\n\n", r.Summary.OverallHealth)

	fmt.Fprintf(&b, "## Commands\n\n")
	fmt.Fprintf(&b, "- Total: %d\n- Active: %d\n- Failed: %d\n\n", r.Summary.Commands.Total, r.Summary.Commands.Active, r.Summary.Commands.Failed)

	fmt.Fprintf(&b, "## Modules\n\n")
	fmt.Fprintf(&b, "- Total: %d\n- Ready: %d\n- Failed: %d\n\n", r.Summary.Modules.Total, r.Summary.Modules.Ready, r.Summary.Modules.Failed)

	fmt.Fprintf(&b, "## Health score\n\n%d / 100 (risk: %s)\n\n", r.Analysis.HealthScore, r.Analysis.RiskAssessment)

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(&b, "## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	if len(r.Analysis.Issues) > 0 {
		fmt.Fprintf(&b, "## Issues\n\n")
		for _, issue := range r.Analysis.Issues {
			fmt.Fprintf(&b, "- [%s] %s\n", severityLabel(issue.Severity), issue.Message)
		}
	}

	return b.String()
}

// ExportHTML renders a minimal structural HTML derivative. Exact templating
// is not normative (§4.5); this produces a well-formed document with the
// overall health, command and module counts, health score and risk, and
// recommendations. The issues list is not rendered here (it appears in the
// Markdown and JSON exports), nor is anything the Markdown export omits.
func ExportHTML(r *DiagnosticReport) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>Diagnostic Report</title></head><body>\n")
	fmt.Fprintf(&b, "<h1>Diagnostic Report</h1>\n<p>Generated: %s</p>\n", r.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "<p>Overall health: <strong>%s</strong></p>\n", r.Summary.OverallHealth)

	b.WriteString("<h2>Commands</h2>\n<ul>\n")
	fmt.Fprintf(&b, "<li>Total: %d</li><li>Active: %d</li><li>Failed: %d</li>\n", r.Summary.Commands.Total, r.Summary.Commands.Active, r.Summary.Commands.Failed)
	b.WriteString("</ul>\n")

	b.WriteString("<h2>Modules</h2>\n<ul>\n")
	fmt.Fprintf(&b, "<li>Total: %d</li><li>Ready: %d</li><li>Failed: %d</li>\n", r.Summary.Modules.Total, r.Summary.Modules.Ready, r.Summary.Modules.Failed)
	b.WriteString("</ul>\n")

	fmt.Fprintf(&b, "<h2>Health score</h2>\n<p>%d / 100 (risk: %s)</p>\n", r.Analysis.HealthScore, r.Analysis.RiskAssessment)

	if len(r.Recommendations) > 0 {
		b.WriteString("<h2>Recommendations</h2>\n<ul>\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "<li>%s</li>\n", htmlEscape(rec))
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString("</body></html>\n")
	return b.String()
}

func severityLabel(s IssueSeverity) string {
	switch s {
	case IssueCritical:
		return "CRITICAL"
	case IssueWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}
