// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registrytest exercises the catalogue, initializer, alert manager,
// validator, and diagnostic tool together end-to-end, the way a front-end
// dispatcher would drive the whole runtime across one session.
package registrytest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/bridge-registry/internal/alerts"
	"github.com/AleutianAI/bridge-registry/internal/catalog"
	"github.com/AleutianAI/bridge-registry/internal/diagnostic"
	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/AleutianAI/bridge-registry/internal/initializer"
	"github.com/AleutianAI/bridge-registry/internal/validator"
)

// fakeModule is a minimal initializer.Module used to drive the
// module-initialization half of the end-to-end flow without any real
// service backend.
type fakeModule struct {
	name string
	deps []string
}

func (m fakeModule) Name() string           { return m.name }
func (m fakeModule) Dependencies() []string { return m.deps }

func (m fakeModule) Initialize(ctx context.Context) *envelope.ModuleError  { return nil }
func (m fakeModule) HealthCheck(ctx context.Context) *envelope.ModuleError { return nil }
func (m fakeModule) Shutdown(ctx context.Context) *envelope.ModuleError    { return nil }

// TestCompleteCommandRegistrationFlow mirrors the Rust
// test_complete_command_registration_flow integration test: register a
// handful of commands with dependency chains, then check count, status,
// verification, and the available-commands listing all agree.
func TestCompleteCommandRegistrationFlow(t *testing.T) {
	reg := catalog.New()

	commands := []struct {
		name string
		deps []string
	}{
		{"cmd_get_providers", nil},
		{"cmd_save_provider", []string{"cmd_get_providers"}},
		{"cmd_delete_provider", []string{"cmd_get_providers"}},
		{"scan_sessions", nil},
		{"parse_session_tree", []string{"scan_sessions"}},
	}

	for _, c := range commands {
		err := reg.RegisterCommand(catalog.CommandInfo{Name: c.name, Dependencies: c.deps, Status: catalog.NewRegisteredStatus()})
		require.Nil(t, err, "failed to register %s", c.name)
	}

	assert.Equal(t, 5, reg.CommandCount())
	assert.True(t, reg.HasCommand("cmd_get_providers"))
	assert.True(t, reg.HasCommand("scan_sessions"))

	for _, c := range commands {
		status, ok := reg.GetCommandStatus(c.name)
		require.True(t, ok)
		assert.Equal(t, catalog.Registered, status.Kind, "command %s should be registered", c.name)
	}

	assert.Empty(t, reg.VerifyAllCommands())

	available := reg.ListAvailableCommands()
	assert.Len(t, available, 5)
	assert.Contains(t, available, "cmd_get_providers")
}

// TestModuleInitializationThenCommandRegistration mirrors the Rust
// test_module_initialization_with_command_registration test: bring a
// module up, then register a command that depends on it.
func TestModuleInitializationThenCommandRegistration(t *testing.T) {
	init := initializer.New()
	reg := catalog.New()

	require.Nil(t, init.RegisterModule(fakeModule{name: "database"}))
	errs := init.InitializeAll(context.Background())
	require.Empty(t, errs)

	st, ok := init.GetModuleState("database")
	require.True(t, ok)
	assert.Equal(t, initializer.Ready, st)

	require.Nil(t, reg.RegisterCommand(catalog.CommandInfo{Name: "get_accounts", Dependencies: []string{"database"}, Status: catalog.NewRegisteredStatus()}))
	assert.Empty(t, reg.VerifyAllCommands())
}

// TestAlertsFireFromRegistryFailures exercises the path the spec describes
// as "Catalogue + metrics -> Detector -> AlertManager -> sinks": a command
// fails repeatedly through the registry, and the alert manager, fed from
// call-site instrumentation, raises a CommandFailure alert.
func TestAlertsFireFromRegistryFailures(t *testing.T) {
	reg := catalog.New()
	mgr := alerts.New()

	require.Nil(t, reg.RegisterCommand(catalog.CommandInfo{Name: "flaky_import", Status: catalog.NewRegisteredStatus()}))

	base := time.Now()
	var fired []alerts.Alert
	for i := 0; i < 3; i++ {
		reg.MarkCommandFailed("flaky_import", "boom")
		ts := base.Add(time.Duration(i) * time.Second)
		mgr.RecordFailure("flaky_import", ts)
		fired = mgr.MonitorCommandStatus(alerts.StatusSnapshot{CommandName: "flaky_import", Failed: true, Now: ts})
	}

	require.Len(t, fired, 1)
	assert.Equal(t, alerts.CommandFailure, fired[0].AlertType)

	anomalous := reg.GetAnomalousCommands()
	assert.Contains(t, anomalous, "flaky_import")
}

// TestValidatorAndDiagnosticSeeTheSameCatalogue exercises the
// shared-read-only-snapshot ownership rule (§3): both the validator and
// the diagnostic tool derive their view from the same registry without
// mutating it.
func TestValidatorAndDiagnosticSeeTheSameCatalogue(t *testing.T) {
	reg := catalog.New()
	require.Nil(t, reg.RegisterCommand(catalog.CommandInfo{Name: "list_sessions", Status: catalog.NewRegisteredStatus()}))
	require.Nil(t, reg.RegisterCommand(catalog.CommandInfo{Name: "delete_session", Dependencies: []string{"list_sessions"}, Status: catalog.NewRegisteredStatus()}))
	reg.MarkCommandFailed("delete_session", "permission denied")

	descriptors := make([]validator.CommandDescriptor, 0)
	for _, name := range reg.ListAvailableCommands() {
		info, _ := reg.GetCommandInfo(name)
		descriptors = append(descriptors, validator.CommandDescriptor{Name: info.Name, Dependencies: info.Dependencies})
	}
	cases := validator.GenerateTestCases(descriptors, validator.DefaultAutoTestConfig())
	coverage := validator.Coverage(reg.CommandCount(), cases)
	assert.Less(t, coverage.Percentage, 100.0, "the failed command is excluded from list_available_commands and thus untested")

	var snapshots []diagnostic.CommandSnapshot
	for _, info := range reg.GetAllCommands() {
		snapshots = append(snapshots, diagnostic.CommandSnapshot{Name: info.Name, Status: info.Status.Kind.String(), Reason: info.Status.Reason})
	}
	report := diagnostic.GenerateReport(snapshots, nil, time.Now())
	assert.Equal(t, diagnostic.Critical, report.Summary.OverallHealth)
	assert.Contains(t, report.FailedCommands, "delete_session")
}
