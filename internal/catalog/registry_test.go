// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(name string, deps ...string) CommandInfo {
	return CommandInfo{Name: name, Dependencies: deps, Status: NewRegisteredStatus()}
}

func TestRegisterCommand_Completeness(t *testing.T) {
	r := New()
	names := []string{"cmd_get_providers", "cmd_list_sessions", "cmd_scan_docs"}
	for _, n := range names {
		require.Nil(t, r.RegisterCommand(newCommand(n)))
	}

	got := r.ListAvailableCommands()
	sort.Strings(got)
	sort.Strings(names)
	assert.Equal(t, names, got)
	assert.Equal(t, len(names), r.CommandCount())
}

func TestRegisterCommand_EmptyNameRejected(t *testing.T) {
	r := New()
	err := r.RegisterCommand(newCommand("   "))
	require.NotNil(t, err)
	assert.Equal(t, 0, r.CommandCount())
}

func TestRegisterCommand_DuplicateRejected(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("scan_sessions")))
	err := r.RegisterCommand(newCommand("scan_sessions"))
	require.NotNil(t, err)
	assert.Equal(t, 1, r.CommandCount())
}

func TestRegisterCommand_MissingDependencyTolerated(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("parse_session_tree", "parser")))

	history, ok := r.GetCommandHistory("parse_session_tree")
	require.True(t, ok)
	found := false
	for _, h := range history {
		if h.Event == EventDependencyResolved {
			found = true
		}
	}
	assert.True(t, found, "expected a DependencyResolved entry for the unregistered dependency")

	errs := r.VerifyAllCommands()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "parser")
}

func TestRecordCommandCall_Monotonic(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("scan_sessions")))

	for i := 0; i < 5; i++ {
		r.RecordCommandCall("scan_sessions")
	}

	detail, ok := r.GetCommandStatusDetailed("scan_sessions")
	require.True(t, ok)
	assert.EqualValues(t, 5, detail.CallCount)
	require.NotNil(t, detail.LastCalled)
	assert.True(t, detail.LastCalled.Before(time.Now().Add(time.Second)))
}

func TestRecordCommandCall_UnknownIsNoop(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.RecordCommandCall("does_not_exist") })
}

func TestGetCommandStatus_Consistency(t *testing.T) {
	r := New()
	info := newCommand("scan_sessions")
	info.Status = NewUnverifiedStatus()
	require.Nil(t, r.RegisterCommand(info))

	status, ok := r.GetCommandStatus("scan_sessions")
	require.True(t, ok)
	assert.Equal(t, Unverified, status.Kind)

	detailed, ok := r.GetCommandStatusDetailed("scan_sessions")
	require.True(t, ok)
	assert.Equal(t, Unverified, detailed.Status.Kind)
}

func TestVerifyAllCommands_DependencyStateDetail(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("parser")))
	require.Nil(t, r.RegisterCommand(newCommand("parse_session_tree", "parser")))
	r.MarkCommandFailed("parser", "boom")

	errs := r.VerifyAllCommands()
	var found bool
	for _, e := range errs {
		if e.ErrorType == "DependencyMissing" {
			found = true
			assert.Contains(t, e.Error(), "parser")
			assert.Contains(t, e.Error(), "Failed(boom)")
		}
	}
	assert.True(t, found)
}

func TestValidateCommand_PromotesUnverified(t *testing.T) {
	r := New()
	info := newCommand("scan_sessions")
	info.Status = NewUnverifiedStatus()
	require.Nil(t, r.RegisterCommand(info))

	err := r.ValidateCommand("scan_sessions")
	require.Nil(t, err)

	status, _ := r.GetCommandStatus("scan_sessions")
	assert.Equal(t, Registered, status.Kind)
}

func TestUpdateCommandStatus_AppendsHistory(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("scan_sessions")))
	require.Nil(t, r.UpdateCommandStatus("scan_sessions", NewDisabledStatus()))

	status, _ := r.GetCommandStatus("scan_sessions")
	assert.Equal(t, Disabled, status.Kind)

	history, _ := r.GetCommandHistory("scan_sessions")
	last := history[len(history)-1]
	assert.Equal(t, EventStatusChanged, last.Event)
}

func TestUnregisterCommand_RemovesFromOrderAndList(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("a")))
	require.Nil(t, r.RegisterCommand(newCommand("b")))

	_, err := r.UnregisterCommand("a")
	require.Nil(t, err)

	assert.False(t, r.HasCommand("a"))
	assert.NotContains(t, r.GetInitializationOrder(), "a")
}

func TestGetAnomalousCommands(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("ok")))
	unverified := newCommand("pending")
	unverified.Status = NewUnverifiedStatus()
	require.Nil(t, r.RegisterCommand(unverified))
	r.MarkCommandFailed("ok", "whoops")

	anomalous := r.GetAnomalousCommands()
	sort.Strings(anomalous)
	assert.Equal(t, []string{"ok", "pending"}, anomalous)
}

func TestListAvailableCommands_ExcludesNonRegistered(t *testing.T) {
	r := New()
	require.Nil(t, r.RegisterCommand(newCommand("a")))
	disabled := newCommand("b")
	require.Nil(t, r.RegisterCommand(disabled))
	require.Nil(t, r.UpdateCommandStatus("b", NewDisabledStatus()))

	assert.Equal(t, []string{"a"}, r.ListAvailableCommands())
}
