// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

var ruleValidator = validator.New()

// Manager evaluates AlertRules against per-command metrics snapshots, mints
// deduplicated alerts, and fans them out to registered sinks. Safe for
// concurrent use.
type Manager struct {
	mu           sync.Mutex
	rules        []AlertRule
	alerts       map[string]*Alert   // id -> alert
	history      map[string][]*Alert // command -> alerts, most recent last
	lastEmitted  map[string]time.Time // "(command, type)" -> last emission time
	metrics      map[string]*CommandMetrics
	sinks        []NotificationSink
	tick         uint64
	log          *logging.Logger
	nowFn        func() time.Time
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.nowFn = now }
}

// WithRules replaces the default rule set installed at construction.
func WithRules(rules []AlertRule) Option {
	return func(m *Manager) { m.rules = rules }
}

// New constructs a Manager with the default rule set already installed
// (§4.4 "must be installed at construction").
func New(opts ...Option) *Manager {
	m := &Manager{
		rules:       defaultRules(),
		alerts:      make(map[string]*Alert),
		history:     make(map[string][]*Alert),
		lastEmitted: make(map[string]time.Time),
		metrics:     make(map[string]*CommandMetrics),
		log:         logging.Default(),
		nowFn:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddRule validates and appends a rule to the evaluated set. Rejects a rule
// missing a name or type, or carrying a negative cooldown.
func (m *Manager) AddRule(rule AlertRule) error {
	if err := ruleValidator.Struct(rule); err != nil {
		return fmt.Errorf("invalid alert rule %q: %w", rule.Name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
	return nil
}

// RegisterSink adds a notification sink to the fan-out set.
func (m *Manager) RegisterSink(sink NotificationSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

func (m *Manager) metricsLocked(name string) *CommandMetrics {
	cm, ok := m.metrics[name]
	if !ok {
		cm = &CommandMetrics{CommandName: name}
		m.metrics[name] = cm
	}
	return cm
}

// RecordCall updates rolling metrics for a successful call.
func (m *Manager) RecordCall(name string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm := m.metricsLocked(name)
	cm.CallCount++
	cm.ConsecutiveFailures = 0
	cm.LastCalled = &at
	cm.RecentCallTimes = trimWindow(append(cm.RecentCallTimes, at), at, 24*time.Hour)
}

// RecordFailure updates rolling metrics for a failed call.
func (m *Manager) RecordFailure(name string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm := m.metricsLocked(name)
	cm.CallCount++
	cm.FailureCount++
	cm.ConsecutiveFailures++
	cm.LastCalled = &at
	cm.RecentCallTimes = trimWindow(append(cm.RecentCallTimes, at), at, 24*time.Hour)
	cm.RecentFailureTimes = trimWindow(append(cm.RecentFailureTimes, at), at, 24*time.Hour)
}

func trimWindow(times []time.Time, now time.Time, keep time.Duration) []time.Time {
	out := times[:0:0]
	for _, t := range times {
		if now.Sub(t) <= keep {
			out = append(out, t)
		}
	}
	return out
}

// MonitorCommandStatus evaluates every enabled rule against snap and the
// command's rolling metrics, minting (and fanning out) any new alerts after
// cooldown dedup (§4.4, I8, P9).
func (m *Manager) MonitorCommandStatus(snap StatusSnapshot) []Alert {
	m.mu.Lock()

	if snap.Now.IsZero() {
		snap.Now = m.nowFn()
	}
	cm := m.metricsLocked(snap.CommandName)
	if snap.StatusFrom != "" || snap.StatusTo != "" {
		cm.LastStatusChange = &snap.Now
	}
	metricsCopy := cm.Clone()

	var minted []Alert
	var sinksToNotify []NotificationSink
	for _, rule := range m.rules {
		if !rule.Enabled {
			continue
		}
		fired, message := evaluate(rule, snap, metricsCopy)
		if !fired {
			continue
		}
		key := dedupKey(snap.CommandName, rule.Type)
		if last, ok := m.lastEmitted[key]; ok && snap.Now.Sub(last) < rule.CooldownDuration {
			continue // I8 / P9: suppressed within cooldown window
		}
		m.tick++
		alert := &Alert{
			ID:          fmt.Sprintf("ALERT_%d", m.tick),
			AlertType:   rule.Type,
			Severity:    rule.Severity,
			CommandName: snap.CommandName,
			Message:     message,
			Details:     map[string]string{"rule": rule.Name},
			Timestamp:   snap.Now,
		}
		m.alerts[alert.ID] = alert
		m.history[snap.CommandName] = append(m.history[snap.CommandName], alert)
		m.lastEmitted[key] = snap.Now
		minted = append(minted, *alert)
	}
	sinksToNotify = append(sinksToNotify, m.sinks...)
	m.mu.Unlock()

	for _, alert := range minted {
		for _, sink := range sinksToNotify {
			if err := sink.SendAlert(alert); err != nil {
				m.log.Warn("notification sink failed", "sink", sink.HandlerName(), "alert", alert.ID, "error", err)
			}
		}
	}
	return minted
}

func dedupKey(command string, t AlertType) string {
	return command + "\x00" + string(t)
}

// ResolveAlert marks an alert resolved (§4.4 Resolution). Returns false if
// the id is unknown or already resolved.
func (m *Manager) ResolveAlert(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[id]
	if !ok || alert.Resolved {
		return false
	}
	now := m.nowFn()
	alert.Resolved = true
	alert.ResolutionTime = &now
	for _, sink := range m.sinks {
		if ps, ok := sink.(*prometheusSink); ok {
			ps.metrics.ActiveAlerts.WithLabelValues(alert.Severity.String()).Dec()
			ps.metrics.ResolvedTotal.WithLabelValues(alert.Severity.String()).Inc()
		}
	}
	return true
}

// GetActiveAlerts returns all unresolved alerts, most recent first.
func (m *Manager) GetActiveAlerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Alert
	for _, a := range m.alerts {
		if !a.Resolved {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// GetCommandHistory returns every alert ever minted for a command.
func (m *Manager) GetCommandHistory(name string) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.history[name]
	out := make([]Alert, len(entries))
	for i, a := range entries {
		out[i] = *a
	}
	return out
}

// Stats computes the total/active/resolved + per-severity histogram
// (§4.4 Resolution, invariant Total = Active + Resolved).
func (m *Manager) Stats() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Statistics{BySeverity: make(map[Severity]int)}
	for _, a := range m.alerts {
		stats.Total++
		if a.Resolved {
			stats.Resolved++
		} else {
			stats.Active++
		}
		stats.BySeverity[a.Severity]++
	}
	return stats
}

// GetMetrics returns a snapshot copy of a command's rolling metrics.
func (m *Manager) GetMetrics(name string) (CommandMetrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm, ok := m.metrics[name]
	if !ok {
		return CommandMetrics{}, false
	}
	return cm.Clone(), true
}
