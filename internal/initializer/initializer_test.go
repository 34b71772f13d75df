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
	"testing"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModule is a scriptable Module used across the suite.
type fakeModule struct {
	name         string
	deps         []string
	initErr      *envelope.ModuleError
	healthErr    *envelope.ModuleError
	shutdownErr  *envelope.ModuleError
	initCalls    int
	shutdownSeen *[]string
}

func (f *fakeModule) Name() string           { return f.name }
func (f *fakeModule) Dependencies() []string { return f.deps }

func (f *fakeModule) Initialize(ctx context.Context) *envelope.ModuleError {
	f.initCalls++
	return f.initErr
}

func (f *fakeModule) HealthCheck(ctx context.Context) *envelope.ModuleError {
	return f.healthErr
}

func (f *fakeModule) Shutdown(ctx context.Context) *envelope.ModuleError {
	if f.shutdownSeen != nil {
		*f.shutdownSeen = append(*f.shutdownSeen, f.name)
	}
	return f.shutdownErr
}

func TestGetInitializationOrder_RespectsHardDependencies(t *testing.T) {
	// scenario S4: module B depends on module A.
	i := New()
	require.Nil(t, i.RegisterModule(&fakeModule{name: "a"}))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "b", deps: []string{"a"}}))

	order, errs := i.GetInitializationOrder()
	require.Nil(t, errs)

	posA, posB := indexOf(order, "a"), indexOf(order, "b")
	assert.True(t, posA < posB, "expected a before b, got %v", order)
}

func TestGetInitializationOrder_Deterministic(t *testing.T) {
	// P7: repeated calls over an unchanged graph produce the same order.
	i := New()
	for _, n := range []string{"zeta", "alpha", "mu", "beta"} {
		require.Nil(t, i.RegisterModule(&fakeModule{name: n}))
	}
	first, errs := i.GetInitializationOrder()
	require.Nil(t, errs)
	for n := 0; n < 5; n++ {
		again, errs := i.GetInitializationOrder()
		require.Nil(t, errs)
		assert.Equal(t, first, again)
	}
}

func TestGetInitializationOrder_CycleReportsPerNode(t *testing.T) {
	// P8: a dependency cycle yields one error per participating module.
	i := New()
	require.Nil(t, i.RegisterModule(&fakeModule{name: "x", deps: []string{"y"}}))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "y", deps: []string{"x"}}))

	order, errs := i.GetInitializationOrder()
	assert.Nil(t, order)
	require.Len(t, errs, 2)
	names := map[string]bool{}
	for _, e := range errs {
		names[e.ModuleName] = true
		assert.Equal(t, envelope.ErrModDependencyMissing, e.ErrorType)
	}
	assert.True(t, names["x"] && names["y"])
}

func TestInitializeAll_TwoModuleChainSucceeds(t *testing.T) {
	// scenario S4: initialize_all() succeeds for a simple two-module chain.
	i := New()
	require.Nil(t, i.RegisterModule(&fakeModule{name: "a"}))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "b", deps: []string{"a"}}))

	errs := i.InitializeAll(context.Background())
	assert.Empty(t, errs)

	stA, _ := i.GetModuleState("a")
	stB, _ := i.GetModuleState("b")
	assert.Equal(t, Ready, stA)
	assert.Equal(t, Ready, stB)
}

func TestInitializeAll_NoModuleLeftInitializing(t *testing.T) {
	// I6: no module remains Initializing after initialize_all returns, even
	// when a non-critical module fails outright.
	i := New()
	require.Nil(t, i.RegisterModule(&fakeModule{name: "flaky", initErr: envelope.NewModuleError("flaky", "boom", envelope.ErrInitializationFailed)}))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "ok"}))

	i.InitializeAll(context.Background())

	for name, st := range i.GetAllStates() {
		assert.NotEqual(t, Initializing, st, "module %s left Initializing", name)
	}
}

func TestInitializeAll_NonCriticalRetryThenFail(t *testing.T) {
	i := New()
	flaky := &fakeModule{name: "flaky", initErr: envelope.NewModuleError("flaky", "still broken", envelope.ErrInitializationFailed)}
	require.Nil(t, i.RegisterModule(flaky))

	errs := i.InitializeAll(context.Background())
	require.Len(t, errs, 1)
	assert.Equal(t, "flaky", errs[0].ModuleName)
	assert.Equal(t, 2, flaky.initCalls, "expected one retry pass")

	st, _ := i.GetModuleState("flaky")
	assert.Equal(t, InitFailed, st)
}

func TestInitializeAll_CriticalFallbackMarksFailedButContinues(t *testing.T) {
	i := New(WithCriticalModules("database"))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "database", initErr: envelope.NewModuleError("database", "connect refused", envelope.ErrInitializationFailed)}))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "reports", deps: []string{"database"}}))

	errs := i.InitializeAll(context.Background())
	assert.Empty(t, errs, "fallback returns success to the initializer")

	stDB, _ := i.GetModuleState("database")
	assert.Equal(t, InitFailed, stDB)
}

func TestInitializeAll_CriticalDependencyMissingAborts(t *testing.T) {
	i := New(WithCriticalModules("database"))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "database", deps: []string{"missing_dep"}}))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "database_client"}))
	// force a hard dependency that never registers, by hand-wiring the edge.
	i.hardDeps["database"] = []string{"missing_dep"}

	errs := i.InitializeAll(context.Background())
	require.NotEmpty(t, errs)

	for name, st := range i.GetAllStates() {
		assert.NotEqual(t, Initializing, st, "module %s left Initializing", name)
	}
}

func TestComprehensiveHealthCheck_EscalatesOnCriticalDependency(t *testing.T) {
	i := New(WithCriticalModules("database"))
	db := &fakeModule{name: "database", healthErr: envelope.NewModuleError("database", "down", envelope.ErrHealthCheckFailed)}
	consumer := &fakeModule{name: "reports", deps: []string{"database"}}
	require.Nil(t, i.RegisterModule(db))
	require.Nil(t, i.RegisterModule(consumer))
	require.Nil(t, i.InitializeAll(context.Background()))

	report := i.ComprehensiveHealthCheck(context.Background())
	assert.Equal(t, Critical, report.Modules["database"].Status)
	assert.NotEmpty(t, report.DependencyIssues)
	assert.True(t, report.OverallStatus >= OverallDegraded)
}

func TestShutdownAll_ReverseOrderAndContinuesOnFailure(t *testing.T) {
	i := New()
	var seen []string
	require.Nil(t, i.RegisterModule(&fakeModule{name: "a", shutdownSeen: &seen}))
	require.Nil(t, i.RegisterModule(&fakeModule{name: "b", deps: []string{"a"}, shutdownErr: envelope.NewModuleError("b", "cleanup failed", envelope.ErrShutdownFailed), shutdownSeen: &seen}))
	require.Nil(t, i.InitializeAll(context.Background()))

	errs := i.ShutdownAll(context.Background())
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"b", "a"}, seen)
}

func indexOf(ss []string, target string) int {
	for idx, s := range ss {
		if s == target {
			return idx
		}
	}
	return -1
}

func TestRegisterModule_DuplicateRejected(t *testing.T) {
	i := New()
	require.Nil(t, i.RegisterModule(&fakeModule{name: "a"}))
	err := i.RegisterModule(&fakeModule{name: "a"})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("'%s'", "a"))
}
