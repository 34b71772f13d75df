// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package initializer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

// failureKind is the closed set of ways a module operation can fail,
// matching the columns of the §4.3 recovery matrix.
type failureKind int

const (
	initializationFailed failureKind = iota
	healthCheckFailed
	dependencyMissing
	shutdownFailed
)

// recoveryAction is the row-by-column decision from §4.3.
type recoveryAction int

const (
	actionRetry recoveryAction = iota
	actionFallback
	actionSkip
	actionAbort
)

// defaultCriticalModules is the reserved set (§4.3); configurable via
// WithCriticalModules.
var defaultCriticalModules = map[string]bool{"database": true, "core": true, "security": true}

// Initializer brings a set of modules to Ready in dependency order, with
// recovery applied per the §4.3 matrix. Safe for concurrent use: all state
// is protected by mu.
type Initializer struct {
	mu              sync.RWMutex
	modules         map[string]Module
	hardDeps        map[string][]string
	softDeps        map[string][]string
	state           map[string]InitState
	stateReason     map[string]string
	criticalModules map[string]bool
	log             *logging.Logger
}

// Option configures an Initializer at construction.
type Option func(*Initializer)

// WithCriticalModules overrides the default {database, core, security}
// reserved set.
func WithCriticalModules(names ...string) Option {
	return func(i *Initializer) {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		i.criticalModules = set
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(i *Initializer) { i.log = l }
}

// New constructs an empty Initializer.
func New(opts ...Option) *Initializer {
	init := &Initializer{
		modules:         make(map[string]Module),
		hardDeps:        make(map[string][]string),
		softDeps:        make(map[string][]string),
		state:           make(map[string]InitState),
		stateReason:     make(map[string]string),
		criticalModules: defaultCriticalModules,
		log:             logging.Default(),
	}
	for _, opt := range opts {
		opt(init)
	}
	return init
}

// RegisterModule admits a module. Dependencies declared by the module are
// treated as Hard edges; RegisterSoftDependency does not remove them.
func (i *Initializer) RegisterModule(m Module) *envelope.ModuleError {
	i.mu.Lock()
	defer i.mu.Unlock()
	name := m.Name()
	if _, exists := i.modules[name]; exists {
		return envelope.NewModuleError(name, fmt.Sprintf("module '%s' is already registered", name), envelope.ErrInitializationFailed)
	}
	i.modules[name] = m
	i.hardDeps[name] = append([]string(nil), m.Dependencies()...)
	i.state[name] = Pending
	return nil
}

// RegisterSoftDependency records a Soft edge. Soft edges never constrain
// initialization order, and ComprehensiveHealthCheck does not consult them.
func (i *Initializer) RegisterSoftDependency(from, to string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.softDeps[from] = append(i.softDeps[from], to)
}

func (i *Initializer) isCritical(name string) bool {
	return i.criticalModules[name]
}

func (i *Initializer) buildGraphLocked() *dependencyGraph {
	g := newDependencyGraph()
	for name := range i.modules {
		g.addNode(name)
	}
	for name, deps := range i.hardDeps {
		for _, dep := range deps {
			g.addEdge(dep, name) // dep must come before name
		}
	}
	return g
}

// GetInitializationOrder computes the Kahn-style topological order over
// Hard edges. A cycle yields one DependencyMissing error per cyclic node
// (P8) instead of an order.
func (i *Initializer) GetInitializationOrder() ([]string, []*envelope.ModuleError) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	g := i.buildGraphLocked()
	order, cyclic := g.topologicalSort()
	if len(cyclic) > 0 {
		return nil, cycleErrors(cyclic)
	}
	return order, nil
}

func (i *Initializer) recoveryDecision(critical bool, kind failureKind) recoveryAction {
	if critical {
		switch kind {
		case initializationFailed:
			return actionFallback
		case healthCheckFailed:
			return actionRetry
		case dependencyMissing:
			return actionAbort
		default: // shutdownFailed
			return actionSkip
		}
	}
	switch kind {
	case initializationFailed:
		return actionRetry
	case healthCheckFailed, dependencyMissing, shutdownFailed:
		return actionSkip
	}
	return actionSkip
}

// InitializeAll brings every module to Ready in dependency order (§4.3).
// Only an Abort decision for a critical module causes an overall failure;
// every other module still ends in a well-defined terminal state — never
// Initializing (I6).
func (i *Initializer) InitializeAll(ctx context.Context) []*envelope.ModuleError {
	order, cycleErrs := i.GetInitializationOrder()
	if cycleErrs != nil {
		return cycleErrs
	}

	var errs []*envelope.ModuleError
	retryQueue := make([]string, 0)

	for _, name := range order {
		if aborted := i.initializeOne(ctx, name, &errs, &retryQueue); aborted {
			return errs
		}
	}

	for _, name := range retryQueue {
		i.mu.Lock()
		i.state[name] = Pending
		i.mu.Unlock()
		if aborted := i.initializeOne(ctx, name, &errs, nil); aborted {
			return errs
		}
	}

	i.mu.Lock()
	for name, st := range i.state {
		if st == Initializing {
			i.state[name] = InitFailed
			i.stateReason[name] = "left initializing at end of pass"
		}
	}
	i.mu.Unlock()

	return errs
}

// initializeOne initializes a single module and applies recovery on
// failure. It returns true iff a critical Abort decision should stop the
// whole InitializeAll run.
func (i *Initializer) initializeOne(ctx context.Context, name string, errs *[]*envelope.ModuleError, retryQueue *[]string) bool {
	i.mu.Lock()
	if depMissing := i.hardDependencyUnmetLocked(name); depMissing != "" {
		i.mu.Unlock()
		critical := i.isCritical(name)
		action := i.recoveryDecision(critical, dependencyMissing)
		modErr := envelope.NewModuleError(name, fmt.Sprintf("hard dependency '%s' is not Ready", depMissing), envelope.ErrModDependencyMissing)
		return i.applyFailure(name, modErr, action, errs, retryQueue)
	}
	module := i.modules[name]
	i.state[name] = Initializing
	i.mu.Unlock()

	i.log.Debug("initializing module", "module", name)
	modErr := safeInitialize(module, ctx)

	i.mu.Lock()
	if modErr == nil {
		i.state[name] = Ready
		i.mu.Unlock()
		i.log.Info("module ready", "module", name)
		return false
	}
	i.mu.Unlock()

	critical := i.isCritical(name)
	action := i.recoveryDecision(critical, initializationFailed)
	return i.applyFailure(name, modErr, action, errs, retryQueue)
}

// applyFailure records the failure per the recovery decision and reports
// whether the whole run should Abort.
func (i *Initializer) applyFailure(name string, modErr *envelope.ModuleError, action recoveryAction, errs *[]*envelope.ModuleError, retryQueue *[]string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch action {
	case actionRetry:
		if retryQueue != nil {
			i.state[name] = Pending
			*retryQueue = append(*retryQueue, name)
			i.log.Warn("module scheduled for retry", "module", name, "error", modErr.Message)
			return false
		}
		// second pass: no more retries available, terminal failure.
		i.state[name] = InitFailed
		i.stateReason[name] = modErr.Message
		*errs = append(*errs, modErr)
		return false
	case actionFallback:
		i.state[name] = InitFailed
		i.stateReason[name] = "Running in fallback mode"
		i.log.Warn("module running in fallback mode", "module", name, "error", modErr.Message)
		return false
	case actionSkip:
		i.state[name] = InitFailed
		i.stateReason[name] = "Skipped due to non-critical failure"
		i.log.Warn("module skipped", "module", name, "error", modErr.Message)
		return false
	case actionAbort:
		i.state[name] = InitFailed
		i.stateReason[name] = modErr.Message
		*errs = append(*errs, modErr)
		i.log.Error("critical module aborted initialization", "module", name, "error", modErr.Message)
		return true
	}
	return false
}

// hardDependencyUnmetLocked must be called with i.mu held. It returns the
// first hard dependency name that is not Ready, or "" if all are satisfied.
func (i *Initializer) hardDependencyUnmetLocked(name string) string {
	for _, dep := range i.hardDeps[name] {
		if _, exists := i.modules[dep]; !exists {
			return dep
		}
		if i.state[dep] != Ready {
			return dep
		}
	}
	return ""
}

// safeInitialize calls module.Initialize, converting a panic into a
// ModuleError instead of letting it propagate and poison shared state (§9
// "Panics inside module handlers must be treated as initialization
// failures").
func safeInitialize(m Module, ctx context.Context) (modErr *envelope.ModuleError) {
	defer func() {
		if r := recover(); r != nil {
			modErr = envelope.NewModuleError(m.Name(), fmt.Sprintf("panic during initialize: %v", r), envelope.ErrInitializationFailed)
		}
	}()
	return m.Initialize(ctx)
}

func safeHealthCheck(m Module, ctx context.Context) (modErr *envelope.ModuleError) {
	defer func() {
		if r := recover(); r != nil {
			modErr = envelope.NewModuleError(m.Name(), fmt.Sprintf("panic during health check: %v", r), envelope.ErrHealthCheckFailed)
		}
	}()
	return m.HealthCheck(ctx)
}

func safeShutdown(m Module, ctx context.Context) (modErr *envelope.ModuleError) {
	defer func() {
		if r := recover(); r != nil {
			modErr = envelope.NewModuleError(m.Name(), fmt.Sprintf("panic during shutdown: %v", r), envelope.ErrShutdownFailed)
		}
	}()
	return m.Shutdown(ctx)
}

// GetModuleState returns a module's current InitState.
func (i *Initializer) GetModuleState(name string) (InitState, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	s, ok := i.state[name]
	return s, ok
}

// GetAllStates returns a snapshot copy of every module's InitState.
func (i *Initializer) GetAllStates() map[string]InitState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]InitState, len(i.state))
	for k, v := range i.state {
		out[k] = v
	}
	return out
}

// ComprehensiveHealthCheck calls every module's health check, measures
// elapsed time, and classifies it Healthy / Critical / Degraded, escalating
// overall status when a dependency is itself Critical/Failed (§4.3). This
// is a read-only report: it never mutates InitState.
func (i *Initializer) ComprehensiveHealthCheck(ctx context.Context) *HealthReport {
	i.mu.RLock()
	names := make([]string, 0, len(i.modules))
	for n := range i.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	modules := make(map[string]Module, len(names))
	hardDeps := make(map[string][]string, len(names))
	for _, n := range names {
		modules[n] = i.modules[n]
		hardDeps[n] = append([]string(nil), i.hardDeps[n]...)
	}
	i.mu.RUnlock()

	report := &HealthReport{
		Timestamp: time.Now(),
		Modules:   make(map[string]ModuleHealth, len(names)),
	}

	for _, name := range names {
		start := time.Now()
		modErr := safeHealthCheck(modules[name], ctx)
		elapsed := time.Since(start)

		var status HealthStatus
		var message string
		if modErr == nil {
			status = Healthy
		} else {
			message = modErr.Message
			if i.isCritical(name) {
				status = Critical
			} else {
				status = Degraded
			}
		}
		report.Modules[name] = ModuleHealth{Name: name, Status: status, Message: message, ResponseTime: elapsed}
	}

	worstOverall := OverallHealthy
	for _, name := range names {
		for _, dep := range hardDeps[name] {
			depHealth, ok := report.Modules[dep]
			if !ok {
				continue
			}
			if depHealth.Status == Critical {
				report.DependencyIssues = append(report.DependencyIssues, DependencyIssue{Module: name, Dependency: dep, Issue: "dependency unhealthy"})
				if worstOverall < OverallDegraded {
					worstOverall = OverallDegraded
				}
			}
		}
	}

	for _, mh := range report.Modules {
		switch mh.Status {
		case Critical:
			if worstOverall < OverallCritical {
				worstOverall = OverallCritical
			}
		case Degraded:
			if worstOverall < OverallDegraded {
				worstOverall = OverallDegraded
			}
		}
	}
	report.OverallStatus = worstOverall
	return report
}

// ShutdownAll shuts modules down in reverse initialization order. Failures
// are recorded but never stop the remaining shutdowns (§4.3).
func (i *Initializer) ShutdownAll(ctx context.Context) []*envelope.ModuleError {
	order, cycleErrs := i.GetInitializationOrder()
	if cycleErrs != nil {
		order, _ = i.partialOrderForShutdown()
	}

	var errs []*envelope.ModuleError
	for idx := len(order) - 1; idx >= 0; idx-- {
		name := order[idx]
		i.mu.RLock()
		module, ok := i.modules[name]
		i.mu.RUnlock()
		if !ok {
			continue
		}
		if modErr := safeShutdown(module, ctx); modErr != nil {
			errs = append(errs, modErr)
			i.log.Warn("module shutdown failed, continuing", "module", name, "error", modErr.Message)
		}
		i.mu.Lock()
		i.state[name] = Pending
		i.mu.Unlock()
	}
	return errs
}

// partialOrderForShutdown falls back to lexicographic name order when the
// dependency graph contains a cycle, so shutdown can still proceed over
// every registered module.
func (i *Initializer) partialOrderForShutdown() ([]string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := make([]string, 0, len(i.modules))
	for n := range i.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, true
}
