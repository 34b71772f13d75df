// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog implements the Command Registry — the catalogue core that
// maps command name to CommandInfo, tracks per-command status, dependency
// list, verification time, call count, and an append-only event history.
package catalog

import "time"

// StatusKind is the tagged variant a command can be in: Registered,
// Failed(reason), Unverified, or Disabled.
type StatusKind int

const (
	Registered StatusKind = iota
	Failed
	Unverified
	Disabled
)

func (k StatusKind) String() string {
	switch k {
	case Registered:
		return "Registered"
	case Failed:
		return "Failed"
	case Unverified:
		return "Unverified"
	case Disabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Status carries the tagged variant plus, for Failed, the reason.
type Status struct {
	Kind   StatusKind
	Reason string
}

func NewRegisteredStatus() Status  { return Status{Kind: Registered} }
func NewUnverifiedStatus() Status  { return Status{Kind: Unverified} }
func NewDisabledStatus() Status    { return Status{Kind: Disabled} }
func NewFailedStatus(reason string) Status {
	return Status{Kind: Failed, Reason: reason}
}

func (s Status) String() string {
	if s.Kind == Failed {
		return "Failed(" + s.Reason + ")"
	}
	return s.Kind.String()
}

// Metadata is optional descriptive information attached to a command.
type Metadata struct {
	Description string   `json:"description" validate:"omitempty,max=500"`
	Parameters  []string `json:"parameters,omitempty"`
	ReturnType  string   `json:"return_type,omitempty"`
	Version     string   `json:"version,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty"`
}

// CommandInfo is the per-command record the catalogue owns.
type CommandInfo struct {
	Name         string
	Dependencies []string
	Status       Status
	LastVerified time.Time
	LastCalled   *time.Time
	CallCount    uint64
	Metadata     *Metadata
}

// Clone returns a deep-enough copy safe to hand to read-only snapshot
// consumers (validator, diagnostic tool) without sharing mutable slices.
func (c CommandInfo) Clone() CommandInfo {
	deps := make([]string, len(c.Dependencies))
	copy(deps, c.Dependencies)
	var lastCalled *time.Time
	if c.LastCalled != nil {
		t := *c.LastCalled
		lastCalled = &t
	}
	var meta *Metadata
	if c.Metadata != nil {
		m := *c.Metadata
		meta = &m
	}
	return CommandInfo{
		Name:         c.Name,
		Dependencies: deps,
		Status:       c.Status,
		LastVerified: c.LastVerified,
		LastCalled:   lastCalled,
		CallCount:    c.CallCount,
		Metadata:     meta,
	}
}

// EventKind is the closed set of history event types (§3).
type EventKind string

const (
	EventRegistered          EventKind = "Registered"
	EventCalled               EventKind = "Called"
	EventFailed                EventKind = "Failed"
	EventStatusChanged         EventKind = "StatusChanged"
	EventDependencyResolved    EventKind = "DependencyResolved"
	EventValidationPassed      EventKind = "ValidationPassed"
	EventValidationFailed      EventKind = "ValidationFailed"
)

// HistoryEntry is one append-only record in a command's event history.
type HistoryEntry struct {
	Timestamp time.Time
	Event     EventKind
	Details   string
}

// StatusInfo is the detailed status view returned by
// GetCommandStatusDetailed, embedding dependency state for callers that need
// it without a second lookup.
type StatusInfo struct {
	Name             string
	Status           Status
	LastVerified     time.Time
	LastCalled       *time.Time
	CallCount        uint64
	Dependencies     []string
	DependencyStatus map[string]Status
}

// verificationFreshnessWindow is the policy threshold (§3 I-invariant,
// §9 open question (a)): an Unverified command older than this is reported
// stale by verify_command/verify_all_commands. Overridden with the
// WithFreshnessWindow option for callers that need a different policy.
const verificationFreshnessWindow = 3600 * time.Second
