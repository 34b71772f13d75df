// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "registry"
	alertsSubsystem  = "alerts"
)

// PrometheusMetrics mirrors the alert manager's counters for scraping.
// Construct once via NewPrometheusMetrics and pass to WithPrometheusSink to
// have every minted alert update it.
type PrometheusMetrics struct {
	AlertsTotal    *prometheus.CounterVec
	ActiveAlerts   *prometheus.GaugeVec
	ResolvedTotal  *prometheus.CounterVec
}

// NewPrometheusMetrics registers the alert counters against reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: alertsSubsystem,
				Name:      "emitted_total",
				Help:      "Total alerts emitted by type and severity",
			},
			[]string{"alert_type", "severity"},
		),
		ActiveAlerts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: alertsSubsystem,
				Name:      "active",
				Help:      "Currently active (unresolved) alerts by severity",
			},
			[]string{"severity"},
		),
		ResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: alertsSubsystem,
				Name:      "resolved_total",
				Help:      "Total alerts resolved",
			},
			[]string{"severity"},
		),
	}
}

// prometheusSink is a NotificationSink that feeds PrometheusMetrics; it
// never fails, so it never interferes with fan-out to other sinks.
type prometheusSink struct {
	metrics *PrometheusMetrics
}

// WithPrometheusSink wires PrometheusMetrics into a Manager as a sink, so
// every minted alert increments AlertsTotal/ActiveAlerts.
func WithPrometheusSink(metrics *PrometheusMetrics) Option {
	return func(m *Manager) {
		m.sinks = append(m.sinks, &prometheusSink{metrics: metrics})
	}
}

func (s *prometheusSink) HandlerName() string { return "prometheus" }

func (s *prometheusSink) SendAlert(alert Alert) error {
	s.metrics.AlertsTotal.WithLabelValues(string(alert.AlertType), alert.Severity.String()).Inc()
	s.metrics.ActiveAlerts.WithLabelValues(alert.Severity.String()).Inc()
	return nil
}
