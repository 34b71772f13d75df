// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/AleutianAI/bridge-registry/pkg/logging"
	"github.com/AleutianAI/bridge-registry/pkg/validation"
)

var metadataValidator = validator.New()

// Registry is the catalogue core (§4.2). It owns CommandInfo and history,
// and is safe for concurrent use: all mutation and traversal acquires mu;
// readers share it and writers hold it exclusively (§5).
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]*CommandInfo
	history          map[string][]HistoryEntry
	failed           []*envelope.CommandError
	initOrder        []string
	freshnessWindow  time.Duration
	log              *logging.Logger
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithFreshnessWindow overrides the default 3600s Unverified-staleness
// policy (§9 open question (a)).
func WithFreshnessWindow(d time.Duration) Option {
	return func(r *Registry) { r.freshnessWindow = d }
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New constructs an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		commands:        make(map[string]*CommandInfo),
		history:         make(map[string][]HistoryEntry),
		freshnessWindow: verificationFreshnessWindow,
		log:             logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterCommand admits info into the catalogue (§4.2). Names are
// normalized and checked against validation.ValidateCommandName (I1);
// duplicates are rejected. Missing dependency targets are tolerated at
// registration time: the status is left as provided and a
// DependencyResolved history entry records the gap, deferring the hard
// check to verification.
func (r *Registry) RegisterCommand(info CommandInfo) *envelope.CommandError {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := validation.NormalizeCommandName(info.Name)
	if err := validation.ValidateCommandName(name); err != nil {
		return envelope.NewCommandError(err.Error(), envelope.ErrValidationFailed)
	}
	if _, exists := r.commands[name]; exists {
		return envelope.NewCommandError(fmt.Sprintf("command '%s' is already registered", name), envelope.ErrRegistrationFailed)
	}
	if info.Metadata != nil {
		if err := metadataValidator.Struct(info.Metadata); err != nil {
			return envelope.NewCommandError(fmt.Sprintf("command '%s' metadata invalid: %s", name, err), envelope.ErrValidationFailed)
		}
	}

	info.Name = name
	if info.LastVerified.IsZero() {
		info.LastVerified = time.Now()
	}
	stored := info.Clone()
	r.commands[name] = &stored
	r.initOrder = append(r.initOrder, name)

	for _, dep := range info.Dependencies {
		if _, ok := r.commands[dep]; !ok {
			r.appendHistory(name, EventDependencyResolved, fmt.Sprintf("dependency '%s' not yet available during registration", dep))
		}
	}
	r.appendHistory(name, EventRegistered, "command registered")
	r.log.Info("command registered", "command", name, "dependencies", info.Dependencies)
	return nil
}

// VerifyAllCommands enumerates verification errors across every command
// without mutating any state (§4.2).
func (r *Registry) VerifyAllCommands() []*envelope.CommandError {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []*envelope.CommandError
	for name := range r.commands {
		errs = append(errs, r.verifyLocked(name)...)
	}
	return errs
}

// VerifyCommand enumerates verification errors for a single command without
// mutating state.
func (r *Registry) VerifyCommand(name string) []*envelope.CommandError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.commands[name]; !ok {
		return []*envelope.CommandError{envelope.NewCommandError(fmt.Sprintf("command '%s' not found", name), envelope.ErrCommandNotFound)}
	}
	return r.verifyLocked(name)
}

// verifyLocked must be called with r.mu held (read or write).
func (r *Registry) verifyLocked(name string) []*envelope.CommandError {
	info, ok := r.commands[name]
	if !ok {
		return nil
	}

	var errs []*envelope.CommandError
	for _, dep := range info.Dependencies {
		depInfo, depExists := r.commands[dep]
		if !depExists {
			errs = append(errs, envelope.NewCommandError(
				fmt.Sprintf("command '%s' depends on '%s' which is not registered", name, dep),
				envelope.ErrDependencyMissing,
			))
			continue
		}
		if depInfo.Status.Kind == Failed || depInfo.Status.Kind == Disabled {
			errs = append(errs, envelope.NewCommandError(
				fmt.Sprintf("command '%s' depends on '%s' which is in invalid state: %s", name, dep, depInfo.Status),
				envelope.ErrDependencyMissing,
			))
		}
	}

	if info.Status.Kind == Failed {
		errs = append(errs, envelope.NewCommandError(
			fmt.Sprintf("command '%s' is in failed state: %s", name, info.Status.Reason),
			envelope.ErrValidationFailed,
		))
	}

	if info.Status.Kind == Unverified && time.Since(info.LastVerified) > r.freshnessWindow {
		errs = append(errs, envelope.NewCommandError(
			fmt.Sprintf("command '%s' has not been verified recently", name),
			envelope.ErrValidationFailed,
		))
	}

	return errs
}

// ValidateCommand checks the command's dependencies and its own Failed
// status as VerifyCommand does, but mutates state on success: LastVerified
// is updated and Unverified is promoted to Registered;
// ValidationPassed/ValidationFailed history entries are appended either way.
// The Unverified staleness check is not applied, since success refreshes
// LastVerified; the first failing check is the one returned.
func (r *Registry) ValidateCommand(name string) *envelope.CommandError {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.commands[name]
	if !ok {
		return envelope.NewCommandError(fmt.Sprintf("command '%s' not found", name), envelope.ErrCommandNotFound)
	}

	for _, dep := range info.Dependencies {
		depInfo, depExists := r.commands[dep]
		if !depExists {
			r.appendHistory(name, EventValidationFailed, fmt.Sprintf("missing dependency: %s", dep))
			return envelope.NewCommandError(fmt.Sprintf("command '%s' depends on '%s' which is not registered", name, dep), envelope.ErrDependencyMissing)
		}
		if depInfo.Status.Kind == Failed || depInfo.Status.Kind == Disabled {
			r.appendHistory(name, EventValidationFailed, fmt.Sprintf("dependency '%s' in invalid state", dep))
			return envelope.NewCommandError(fmt.Sprintf("dependency '%s' is not available (status: %s)", dep, depInfo.Status), envelope.ErrDependencyMissing)
		}
	}

	if info.Status.Kind == Failed {
		r.appendHistory(name, EventValidationFailed, fmt.Sprintf("command in failed state: %s", info.Status.Reason))
		return envelope.NewCommandError(fmt.Sprintf("command '%s' is in failed state: %s", name, info.Status.Reason), envelope.ErrValidationFailed)
	}

	info.LastVerified = time.Now()
	if info.Status.Kind == Unverified {
		info.Status = NewRegisteredStatus()
	}
	r.appendHistory(name, EventValidationPassed, "command validation successful")
	return nil
}

// RecordCommandCall records a dispatch attempt (§6 invocation sidecar).
// Idempotent on an unknown name: it never panics and never mutates state in
// that case.
func (r *Registry) RecordCommandCall(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.commands[name]
	if !ok {
		return
	}
	info.CallCount++
	now := time.Now()
	info.LastCalled = &now
	r.appendHistory(name, EventCalled, fmt.Sprintf("call #%d", info.CallCount))
}

// MarkCommandFailed transitions a command to Failed(reason) and records it
// in the failed list and history.
func (r *Registry) MarkCommandFailed(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.commands[name]
	if !ok {
		return
	}
	info.Status = NewFailedStatus(reason)
	r.failed = append(r.failed, envelope.NewCommandError(fmt.Sprintf("command '%s' failed: %s", name, reason), envelope.ErrRuntimeError))
	r.appendHistory(name, EventFailed, reason)
	r.log.Warn("command marked failed", "command", name, "reason", reason)
}

// UpdateCommandStatus replaces a command's status and appends a
// StatusChanged history entry summarizing old→new.
func (r *Registry) UpdateCommandStatus(name string, status Status) *envelope.CommandError {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.commands[name]
	if !ok {
		return envelope.NewCommandError(fmt.Sprintf("command '%s' not found", name), envelope.ErrCommandNotFound)
	}
	old := info.Status
	info.Status = status
	r.appendHistory(name, EventStatusChanged, fmt.Sprintf("%s -> %s", old, status))
	return nil
}

// UnregisterCommand removes a command from the catalogue and
// initialization order, appending a final history entry.
func (r *Registry) UnregisterCommand(name string) (*CommandInfo, *envelope.CommandError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.commands[name]
	if !ok {
		return nil, envelope.NewCommandError(fmt.Sprintf("command '%s' not found", name), envelope.ErrCommandNotFound)
	}
	clone := info.Clone()
	delete(r.commands, name)
	for i, n := range r.initOrder {
		if n == name {
			r.initOrder = append(r.initOrder[:i], r.initOrder[i+1:]...)
			break
		}
	}
	r.appendHistory(name, EventStatusChanged, "command unregistered")
	return &clone, nil
}

// ListAvailableCommands returns commands with status exactly Registered
// (I4), in no defined order.
func (r *Registry) ListAvailableCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, info := range r.commands {
		if info.Status.Kind == Registered {
			out = append(out, name)
		}
	}
	return out
}

// GetAnomalousCommands returns commands with status in
// {Failed, Disabled, Unverified}.
func (r *Registry) GetAnomalousCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, info := range r.commands {
		switch info.Status.Kind {
		case Failed, Disabled, Unverified:
			out = append(out, name)
		}
	}
	return out
}

// HasCommand reports whether name is registered.
func (r *Registry) HasCommand(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[name]
	return ok
}

// GetCommandStatus returns the status of a registered command.
func (r *Registry) GetCommandStatus(name string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.commands[name]
	if !ok {
		return Status{}, false
	}
	return info.Status, true
}

// GetCommandStatusDetailed returns the full StatusInfo view, embedding each
// dependency's own status.
func (r *Registry) GetCommandStatusDetailed(name string) (*StatusInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.commands[name]
	if !ok {
		return nil, false
	}
	depStatus := make(map[string]Status, len(info.Dependencies))
	for _, dep := range info.Dependencies {
		if depInfo, exists := r.commands[dep]; exists {
			depStatus[dep] = depInfo.Status
		}
	}
	return &StatusInfo{
		Name:             info.Name,
		Status:           info.Status,
		LastVerified:     info.LastVerified,
		LastCalled:       info.LastCalled,
		CallCount:        info.CallCount,
		Dependencies:     append([]string(nil), info.Dependencies...),
		DependencyStatus: depStatus,
	}, true
}

// GetCommandInfo returns a defensive copy of a command's full record.
func (r *Registry) GetCommandInfo(name string) (*CommandInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.commands[name]
	if !ok {
		return nil, false
	}
	clone := info.Clone()
	return &clone, true
}

// GetAllCommands returns a snapshot copy of every registered command,
// keyed by name. Used by the validator/diagnostic tool's read-only
// traversal.
func (r *Registry) GetAllCommands() map[string]CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]CommandInfo, len(r.commands))
	for name, info := range r.commands {
		out[name] = info.Clone()
	}
	return out
}

// GetFailedCommands returns the accumulated failure log.
func (r *Registry) GetFailedCommands() []*envelope.CommandError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*envelope.CommandError, len(r.failed))
	copy(out, r.failed)
	return out
}

// GetInitializationOrder returns the order commands were registered in.
func (r *Registry) GetInitializationOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.initOrder))
	copy(out, r.initOrder)
	return out
}

// CommandCount returns the total number of registered commands (any status).
func (r *Registry) CommandCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// ActiveCommandCount returns the number of commands with status Registered.
func (r *Registry) ActiveCommandCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, info := range r.commands {
		if info.Status.Kind == Registered {
			n++
		}
	}
	return n
}

// GetCommandHistory returns a copy of a command's append-only event log.
func (r *Registry) GetCommandHistory(name string) ([]HistoryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries, ok := r.history[name]
	if !ok {
		return nil, false
	}
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out, true
}

// appendHistory must be called with r.mu held for writing (I3: every
// state-affecting operation appends exactly one entry).
func (r *Registry) appendHistory(name string, event EventKind, details string) {
	r.history[name] = append(r.history[name], HistoryEntry{
		Timestamp: time.Now(),
		Event:     event,
		Details:   details,
	})
}
