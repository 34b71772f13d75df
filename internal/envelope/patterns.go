// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package envelope

import (
	"regexp"
	"strings"
)

// Pattern matches free-form error text to a Category with an associated
// severity, auto-retry hint, and ordered recovery hints. Patterns are tried
// in order; the first match wins — this is what makes categorize
// deterministic (P12) and lets us resolve ambiguous input (e.g. a "504
// gateway timeout" matching both a generic timeout matcher and a specific
// server-error-code matcher) by listing the more specific matcher first.
type Pattern struct {
	Name            string
	Matcher         *regexp.Regexp
	Category        Category
	AutoRetry       bool
	RecoveryHints   []string
}

// defaultPatterns is the ordered rule set categorize walks. Precedence is
// significant: server-status-code matchers precede generic network/timeout
// matchers so "504 gateway timeout" is classified deterministically rather
// than depending on map iteration order.
func defaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:     "command_not_found",
			Matcher:  regexp.MustCompile(`(?i)command\s+'[^']+'\s+not found|command not found`),
			Category: CommandNotFound,
			RecoveryHints: []string{
				"Check if the command name is spelled correctly",
				"Verify that the command is properly registered",
				"Use the diagnostic tool to list available commands",
			},
		},
		{
			Name:     "module_initialization_failed",
			Matcher:  regexp.MustCompile(`(?i)module initialization failed|failed to initialize module`),
			Category: ModuleInitializationFailed,
			AutoRetry: true,
			RecoveryHints: []string{
				"Check module dependencies are available",
				"Verify configuration files are correct",
				"Restart the application to retry initialization",
				"Check system resources and permissions",
			},
		},
		{
			Name:     "dependency_missing",
			Matcher:  regexp.MustCompile(`(?i)missing dependency|dependency[^.]*not found|dependency[^.]*unavailable`),
			Category: DependencyMissing,
			RecoveryHints: []string{
				"Install the missing dependency",
				"Check the dependency configuration",
				"Verify the dependency version compatibility",
			},
		},
		{
			Name:     "permission_error",
			Matcher:  regexp.MustCompile(`(?i)permission denied|access denied|unauthorized|forbidden`),
			Category: PermissionError,
			RecoveryHints: []string{
				"Check file and directory permissions",
				"Run with appropriate privileges if needed",
				"Verify user has necessary access rights",
			},
		},
		{
			Name:     "resource_exhausted",
			Matcher:  regexp.MustCompile(`(?i)out of memory|resource exhausted|too many open files|quota exceeded|disk full`),
			Category: ResourceExhausted,
			AutoRetry: true,
			RecoveryHints: []string{
				"Free up system resources and retry",
				"Increase the configured resource limit",
				"Reduce concurrent load on the system",
			},
		},
		{
			// Server status-code matcher precedes the generic network/timeout
			// matcher below: a "50x"/"gateway timeout" response is a server
			// problem that happens to mention "timeout", not a client-side
			// network outage, so it must win the race against the broader
			// timeout pattern that follows.
			Name:     "server_status_code",
			Matcher:  regexp.MustCompile(`(?i)\b50[0-9]\b.*(gateway|server)|bad gateway|gateway timeout|service unavailable`),
			Category: NetworkError,
			AutoRetry: true,
			RecoveryHints: []string{
				"Retry the request after a short delay",
				"Check upstream service health",
				"Verify the network path to the service",
			},
		},
		{
			Name:     "network_error",
			Matcher:  regexp.MustCompile(`(?i)connection refused|connection reset|network error|timeout|timed out|dns|no route to host`),
			Category: NetworkError,
			AutoRetry: true,
			RecoveryHints: []string{
				"Check your network connection",
				"Verify the remote endpoint is reachable",
				"Retry the request after a short delay",
			},
		},
		{
			Name:     "configuration_error",
			Matcher:  regexp.MustCompile(`(?i)configuration.*error|config.*invalid|settings.*missing`),
			Category: ConfigurationError,
			RecoveryHints: []string{
				"Check the configuration file syntax",
				"Verify all required settings are present",
				"Reset to default configuration if needed",
			},
		},
		{
			Name:     "validation_error",
			Matcher:  regexp.MustCompile(`(?i)validation failed|invalid.*parameter|parameter.*invalid`),
			Category: ValidationError,
			RecoveryHints: []string{
				"Check the parameter format and values",
				"Refer to the API documentation for correct usage",
				"Validate input data before sending",
			},
		},
		{
			Name:     "runtime_error",
			Matcher:  regexp.MustCompile(`(?i)runtime error|execution failed|panic`),
			Category: RuntimeError,
			RecoveryHints: []string{
				"Check the input parameters for validity",
				"Verify system resources are available",
				"Review the error logs for more details",
				"Contact support if the issue persists",
			},
		},
	}
}

var genericUnknownHints = []string{"Contact support for assistance"}

// forbiddenTokens must never leak into a human_message (P10).
var forbiddenTokens = []string{"null", "undefined", "panic", "stack trace", "internal error"}

func containsForbiddenToken(s string) bool {
	lower := strings.ToLower(s)
	for _, tok := range forbiddenTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
