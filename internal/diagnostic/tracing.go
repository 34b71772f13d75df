// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostic

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/AleutianAI/bridge-registry/internal/diagnostic")

// GenerateReportTraced wraps GenerateReport in a "diagnostic.generate_report"
// span, following the teacher's "every operation emits a span" principle
// (cmd/aleutian/diagnostics_interfaces.go).
func GenerateReportTraced(ctx context.Context, commands []CommandSnapshot, modules []ModuleSnapshot, now time.Time) (context.Context, *DiagnosticReport) {
	ctx, span := tracer.Start(ctx, "diagnostic.generate_report", trace.WithAttributes(
		attribute.Int("command_count", len(commands)),
		attribute.Int("module_count", len(modules)),
	))
	defer span.End()

	report := GenerateReport(commands, modules, now)
	span.SetAttributes(
		attribute.String("overall_health", string(report.Summary.OverallHealth)),
		attribute.Int("health_score", report.Analysis.HealthScore),
	)
	return ctx, report
}

// ExportTraced wraps one of the Export* functions in a
// "diagnostic.export_report" span tagged with the chosen format.
func ExportTraced(ctx context.Context, format string, fn func() (string, error)) (context.Context, string, error) {
	ctx, span := tracer.Start(ctx, "diagnostic.export_report", trace.WithAttributes(attribute.String("format", format)))
	defer span.End()

	out, err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return ctx, out, err
}
