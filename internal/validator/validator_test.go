// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	unavailable map[string]string
}

func (p *fakeProbe) CheckAvailability(name string) (bool, string) {
	if errText, ok := p.unavailable[name]; ok {
		return false, errText
	}
	return true, ""
}

func TestGenerateTestCases_OrderAndCap(t *testing.T) {
	cfg := DefaultAutoTestConfig()
	cfg.PerCommandCap = 2
	cases := GenerateTestCases([]CommandDescriptor{{Name: "scan_sessions", Dependencies: []string{"parser"}}}, cfg)

	require.Len(t, cases, 2, "cap of 2 truncates the generated 4 cases")
	assert.Equal(t, Availability, cases[0].Kind)
	assert.Equal(t, EmptyParams, cases[1].Kind)
}

func TestGenerateTestCases_DependenciesOnlyWhenDeclared(t *testing.T) {
	cfg := DefaultAutoTestConfig()
	cfg.PerCommandCap = 0
	cases := GenerateTestCases([]CommandDescriptor{{Name: "no_deps"}}, cfg)
	for _, tc := range cases {
		assert.NotEqual(t, Dependencies, tc.Kind)
	}
}

func TestGenerateTestCases_DeterministicOrder(t *testing.T) {
	cfg := DefaultAutoTestConfig()
	cmds := []CommandDescriptor{{Name: "zeta"}, {Name: "alpha"}, {Name: "mu"}}
	first := GenerateTestCases(cmds, cfg)
	again := GenerateTestCases(cmds, cfg)
	require.Equal(t, len(first), len(again))
	for i := range first {
		assert.Equal(t, first[i].Name, again[i].Name)
	}
	assert.Equal(t, "alpha_availability", first[0].Name)
}

func TestRun_SuccessExpectationPassesWhenAvailable(t *testing.T) {
	cases := GenerateTestCases([]CommandDescriptor{{Name: "scan_sessions"}}, DefaultAutoTestConfig())
	probe := &fakeProbe{}
	results := Run(cases, probe)
	for _, r := range results {
		if r.TestCase.Kind != InvalidParams {
			assert.True(t, r.Passed, r.TestCase.Name)
		}
	}
}

func TestRun_ErrorExpectationRequiresSubstringMatch(t *testing.T) {
	cases := GenerateTestCases([]CommandDescriptor{{Name: "scan_sessions"}}, DefaultAutoTestConfig())
	probe := &fakeProbe{unavailable: map[string]string{"scan_sessions": "rejected: Invalid parameter supplied"}}
	results := Run(cases, probe)

	var invalidParamResult *TestResult
	for i := range results {
		if results[i].TestCase.Kind == InvalidParams {
			invalidParamResult = &results[i]
		}
	}
	require.NotNil(t, invalidParamResult)
	assert.True(t, invalidParamResult.Passed)
}

func TestRun_TimeoutExpectation(t *testing.T) {
	tc := TestCase{Name: "slow_timeout", CommandName: "slow", Kind: Availability, Expectation: ExpectTimeout, Timeout: time.Nanosecond}
	results := Run([]TestCase{tc}, &fakeProbe{})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed, "any measurable elapsed time exceeds a nanosecond timeout")
}

func TestCoverage_100PercentWhenEveryCommandTested(t *testing.T) {
	cmds := []CommandDescriptor{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	cases := GenerateTestCases(cmds, DefaultAutoTestConfig())
	report := Coverage(len(cmds), cases)
	assert.Equal(t, 100.0, report.Percentage)
}

func TestCoverage_ZeroCommandsClampsDenominator(t *testing.T) {
	report := Coverage(0, nil)
	assert.Equal(t, 0.0, report.Percentage)
}

func TestSuite_ClearAndRegeneratePreservesHandAuthored(t *testing.T) {
	s := NewSuite(DefaultAutoTestConfig())
	s.AddCase(TestCase{Name: "manual_probe", CommandName: "scan_sessions", Expectation: ExpectSuccess})
	s.Regenerate([]CommandDescriptor{{Name: "scan_sessions"}})

	var manualFound, autoFound bool
	for _, tc := range s.Cases() {
		if tc.Name == "manual_probe" {
			manualFound = true
		}
		if tc.AutoGenerated {
			autoFound = true
		}
	}
	assert.True(t, manualFound)
	assert.True(t, autoFound)

	s.ClearAutoGenerated()
	for _, tc := range s.Cases() {
		assert.False(t, tc.AutoGenerated)
	}
}
