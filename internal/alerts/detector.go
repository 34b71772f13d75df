// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package alerts

import (
	"fmt"
	"time"
)

// AnomalyConditionKind is the closed set of conditions the anomaly detector
// evaluates across the catalogue (§4.4).
type AnomalyConditionKind int

const (
	HighFailureRate AnomalyConditionKind = iota
	UnusualInactivity
	RapidStatusChanges
	ConsecutiveFailuresAnomaly
)

// anomalyThresholds holds the detector's fixed trigger points. These are
// intentionally conservative defaults distinct from AlertRule conditions:
// the detector runs independently of the rule engine, sweeping every known
// command's metrics rather than reacting to one status transition at a
// time.
type anomalyThresholds struct {
	failureRate         float64
	failureRateWindow   time.Duration
	inactivityThreshold time.Duration
	statusChurnWindow   time.Duration
	statusChurnCount    int
	consecutiveFailures int
}

func defaultAnomalyThresholds() anomalyThresholds {
	return anomalyThresholds{
		failureRate:         0.5,
		failureRateWindow:   10 * time.Minute,
		inactivityThreshold: 2 * time.Hour,
		statusChurnWindow:   time.Minute,
		statusChurnCount:    3,
		consecutiveFailures: 5,
	}
}

// DetectAnomalies sweeps every command with recorded metrics and evaluates
// the fixed AnomalyConditionKind set, minting (cooldown-deduplicated)
// alerts for whichever conditions fire.
func (m *Manager) DetectAnomalies(now time.Time) []Alert {
	th := defaultAnomalyThresholds()

	m.mu.Lock()
	if now.IsZero() {
		now = m.nowFn()
	}
	type candidate struct {
		name    string
		aType   AlertType
		message string
	}
	var candidates []candidate
	for name, cm := range m.metrics {
		calls := countCallsInWindow(*cm, now, th.failureRateWindow)
		failures := countFailuresInWindow(*cm, now, th.failureRateWindow)
		denom := calls
		if denom < 1 {
			denom = 1
		}
		if float64(failures)/float64(denom) > th.failureRate {
			candidates = append(candidates, candidate{name, HighErrorRate, "anomaly detector observed a high failure rate"})
		}

		if cm.LastCalled != nil && now.Sub(*cm.LastCalled) >= th.inactivityThreshold {
			candidates = append(candidates, candidate{name, UnusualCallPattern, "anomaly detector observed prolonged inactivity"})
		}

		if cm.LastStatusChange != nil && now.Sub(*cm.LastStatusChange) <= th.statusChurnWindow {
			candidates = append(candidates, candidate{name, UnusualCallPattern, "anomaly detector observed rapid status churn"})
		}

		if cm.ConsecutiveFailures >= uint64(th.consecutiveFailures) {
			candidates = append(candidates, candidate{name, CommandFailure, "anomaly detector observed consecutive failures"})
		}
	}
	m.mu.Unlock()

	var minted []Alert
	for _, c := range candidates {
		minted = append(minted, m.mintIfNotCoolingDown(c.name, c.aType, Warning, c.message, now)...)
	}
	return minted
}

// mintIfNotCoolingDown applies the same cooldown/dedup rule as
// MonitorCommandStatus (I8) but for detector-originated alerts, which are
// not tied to a single AlertRule.
func (m *Manager) mintIfNotCoolingDown(command string, t AlertType, severity Severity, message string, now time.Time) []Alert {
	const detectorCooldown = time.Minute

	m.mu.Lock()
	key := dedupKey(command, t)
	if last, ok := m.lastEmitted[key]; ok && now.Sub(last) < detectorCooldown {
		m.mu.Unlock()
		return nil
	}
	m.tick++
	alert := &Alert{
		ID:          fmt.Sprintf("ALERT_%d", m.tick),
		AlertType:   t,
		Severity:    severity,
		CommandName: command,
		Message:     message,
		Timestamp:   now,
	}
	m.alerts[alert.ID] = alert
	m.history[command] = append(m.history[command], alert)
	m.lastEmitted[key] = now
	sinks := append([]NotificationSink(nil), m.sinks...)
	m.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.SendAlert(*alert); err != nil {
			m.log.Warn("notification sink failed", "sink", sink.HandlerName(), "alert", alert.ID, "error", err)
		}
	}
	return []Alert{*alert}
}
