// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validator implements the auto-generating test harness half of the
// Validator & Diagnostic Tool (§4.5): given a read-only catalogue snapshot
// it produces a bounded set of TestCases per command, executes them against
// a CommandProbe, and reports coverage.
package validator

import "time"

// TestCaseKind is the closed set of auto-generated test shapes (§4.5).
type TestCaseKind int

const (
	Availability TestCaseKind = iota
	EmptyParams
	InvalidParams
	Dependencies
)

func (k TestCaseKind) suffix() string {
	switch k {
	case Availability:
		return "availability"
	case EmptyParams:
		return "empty_params"
	case InvalidParams:
		return "invalid_params"
	case Dependencies:
		return "dependencies"
	default:
		return "unknown"
	}
}

// Expectation is what a TestCase's outcome must satisfy to pass.
type Expectation int

const (
	ExpectSuccess Expectation = iota
	ExpectError
	ExpectTimeout
)

// TestCase is one generated (or hand-authored) validation probe.
type TestCase struct {
	Name                   string
	CommandName            string
	Kind                   TestCaseKind
	Expectation            Expectation
	ExpectedErrorSubstring string
	Timeout                time.Duration
	AutoGenerated          bool
}

// AutoTestConfig controls auto_generate_test_cases (§4.5).
type AutoTestConfig struct {
	Availability    bool
	ParamValidation bool
	DependencyTests bool
	PerCommandCap   int
	TestTimeout     time.Duration
}

// DefaultAutoTestConfig mirrors the teacher's pattern of a zero-value-safe
// constructor for config structs.
func DefaultAutoTestConfig() AutoTestConfig {
	return AutoTestConfig{
		Availability:    true,
		ParamValidation: true,
		DependencyTests: true,
		PerCommandCap:   4,
		TestTimeout:     5 * time.Second,
	}
}

// TestResult is the outcome of running one TestCase. RunID groups every
// result produced by the same Run call, so a caller can tell two
// back-to-back suite runs apart in stored history.
type TestResult struct {
	RunID          string
	TestCase       TestCase
	Passed         bool
	ActualDuration time.Duration
	ActualError    string
}

// CoverageReport summarizes how much of the catalogue has at least one
// test case (I10).
type CoverageReport struct {
	TotalCommands  int
	TestedCommands int
	Percentage     float64
}
