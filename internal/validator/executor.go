// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validator

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CommandProbe is the narrow interface the executor drives a command
// through. Callers typically back it with the catalog.Registry's
// validation methods; it is kept independent of that package so the
// validator never needs a hard import-time dependency on the catalogue's
// concrete types.
type CommandProbe interface {
	// CheckAvailability reports whether the command is currently callable
	// and, when it is not, the observed error text.
	CheckAvailability(name string) (ok bool, errText string)
}

// Run executes every TestCase against probe, measuring wall time, and
// reports pass/fail per the §4.5 execution semantics. Every result in the
// returned slice carries the same RunID, minted fresh for this call.
func Run(cases []TestCase, probe CommandProbe) []TestResult {
	runID := uuid.New().String()
	results := make([]TestResult, 0, len(cases))
	for _, tc := range cases {
		result := runOne(tc, probe)
		result.RunID = runID
		results = append(results, result)
	}
	return results
}

func runOne(tc TestCase, probe CommandProbe) TestResult {
	start := time.Now()
	ok, errText := probe.CheckAvailability(tc.CommandName)
	elapsed := time.Since(start)

	var passed bool
	switch tc.Expectation {
	case ExpectSuccess:
		passed = ok
	case ExpectError:
		passed = !ok && strings.Contains(errText, tc.ExpectedErrorSubstring)
	case ExpectTimeout:
		passed = elapsed >= tc.Timeout
	}

	return TestResult{
		TestCase:       tc,
		Passed:         passed,
		ActualDuration: elapsed,
		ActualError:    errText,
	}
}

// Coverage computes I10: percentage of total commands with at least one
// test case, clamped to [0, 100].
func Coverage(totalCommands int, cases []TestCase) CoverageReport {
	tested := make(map[string]bool)
	for _, tc := range cases {
		tested[tc.CommandName] = true
	}

	denom := totalCommands
	if denom < 1 {
		denom = 1
	}
	pct := float64(len(tested)) / float64(denom) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return CoverageReport{
		TotalCommands:  totalCommands,
		TestedCommands: len(tested),
		Percentage:     pct,
	}
}

// Suite holds a mutable generated test set alongside the config used to
// build it, supporting the clear-then-regenerate workflow (§4.5
// "Dependency changes").
type Suite struct {
	cfg   AutoTestConfig
	cases []TestCase
}

// NewSuite constructs an empty Suite with cfg as its generation config.
func NewSuite(cfg AutoTestConfig) *Suite {
	return &Suite{cfg: cfg}
}

// Regenerate clears any previously auto-generated cases and rebuilds them
// from the given command snapshot, preserving any hand-authored
// (non-auto-generated) cases already present.
func (s *Suite) Regenerate(commands []CommandDescriptor) {
	s.ClearAutoGenerated()
	s.cases = append(s.cases, GenerateTestCases(commands, s.cfg)...)
}

// ClearAutoGenerated drops every auto-generated case, keeping hand-authored
// ones intact.
func (s *Suite) ClearAutoGenerated() {
	kept := s.cases[:0]
	for _, tc := range s.cases {
		if !tc.AutoGenerated {
			kept = append(kept, tc)
		}
	}
	s.cases = kept
}

// AddCase appends a hand-authored TestCase.
func (s *Suite) AddCase(tc TestCase) {
	s.cases = append(s.cases, tc)
}

// Cases returns the current test set.
func (s *Suite) Cases() []TestCase {
	return append([]TestCase(nil), s.cases...)
}

// Run executes every case in the suite against probe.
func (s *Suite) Run(probe CommandProbe) []TestResult {
	return Run(s.cases, probe)
}

// Coverage computes coverage for the suite's current cases against
// totalCommands.
func (s *Suite) Coverage(totalCommands int) CoverageReport {
	return Coverage(totalCommands, s.cases)
}
