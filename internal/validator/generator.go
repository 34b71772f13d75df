// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validator

import (
	"fmt"
	"sort"
)

// CommandDescriptor is the slice of catalog.CommandInfo the generator
// actually needs, kept narrow to avoid coupling the validator to the
// catalogue package's full type.
type CommandDescriptor struct {
	Name         string
	Dependencies []string
}

// GenerateTestCases builds the auto-generated suite for every available
// command, in order, subject to cfg.PerCommandCap (§4.5, I9).
//
// Commands are iterated in lexicographic order so that, like the
// initializer's topological sort, repeated generation over an unchanged
// catalogue snapshot always yields the same suite.
func GenerateTestCases(commands []CommandDescriptor, cfg AutoTestConfig) []TestCase {
	sorted := append([]CommandDescriptor(nil), commands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var out []TestCase
	for _, cmd := range sorted {
		var cases []TestCase
		if cfg.Availability {
			cases = append(cases, TestCase{
				Name:          fmt.Sprintf("%s_%s", cmd.Name, Availability.suffix()),
				CommandName:   cmd.Name,
				Kind:          Availability,
				Expectation:   ExpectSuccess,
				Timeout:       cfg.TestTimeout,
				AutoGenerated: true,
			})
		}
		if cfg.ParamValidation {
			cases = append(cases, TestCase{
				Name:          fmt.Sprintf("%s_%s", cmd.Name, EmptyParams.suffix()),
				CommandName:   cmd.Name,
				Kind:          EmptyParams,
				Expectation:   ExpectSuccess,
				Timeout:       cfg.TestTimeout,
				AutoGenerated: true,
			})
			cases = append(cases, TestCase{
				Name:                   fmt.Sprintf("%s_%s", cmd.Name, InvalidParams.suffix()),
				CommandName:            cmd.Name,
				Kind:                   InvalidParams,
				Expectation:            ExpectError,
				ExpectedErrorSubstring: "Invalid parameter",
				Timeout:                cfg.TestTimeout,
				AutoGenerated:          true,
			})
		}
		if cfg.DependencyTests && len(cmd.Dependencies) > 0 {
			cases = append(cases, TestCase{
				Name:          fmt.Sprintf("%s_%s", cmd.Name, Dependencies.suffix()),
				CommandName:   cmd.Name,
				Kind:          Dependencies,
				Expectation:   ExpectSuccess,
				Timeout:       cfg.TestTimeout,
				AutoGenerated: true,
			})
		}

		if cfg.PerCommandCap > 0 && len(cases) > cfg.PerCommandCap {
			cases = cases[:cfg.PerCommandCap]
		}
		out = append(out, cases...)
	}
	return out
}
