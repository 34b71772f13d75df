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
	"time"

	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

// ErrorEnvelope is the externally-visible shape of a reported error (§6):
// category, human message, optional technical details, optional available
// commands, recovery hints, a stable code, severity, and an optional retry
// delay.
//
// JSON field names follow the published external contract verbatim
// (lower-camel, per §6): errorType, message, details, availableCommands,
// recoverySuggestions, errorCode, timestamp, severity, retryAfter.
type ErrorEnvelope struct {
	ErrorType           Category  `json:"errorType"`
	Message             string    `json:"message"`
	Details             string    `json:"details,omitempty"`
	AvailableCommands   []string  `json:"availableCommands,omitempty"`
	RecoverySuggestions []string  `json:"recoverySuggestions"`
	ErrorCode           string    `json:"errorCode"`
	Timestamp           time.Time `json:"timestamp"`
	Severity            string    `json:"severity"`
	RetryAfter          *int      `json:"retryAfter,omitempty"`
}

// AvailableCommandsLister is consulted by Builder to populate
// ErrorEnvelope.AvailableCommands when the category is CommandNotFound.
// The registry's ListAvailableCommands satisfies this signature directly.
type AvailableCommandsLister func() []string

// Builder classifies raw failure text into a Category and renders
// ErrorEnvelope values (§4.1). Builder never fails; the worst case is an
// Unknown-category envelope.
type Builder struct {
	patterns  []Pattern
	lister    AvailableCommandsLister
	log       *logging.Logger
	retryDelaySeconds int
}

// Option configures a Builder at construction.
type Option func(*Builder)

// WithAvailableCommandsLister wires a source of truth for
// ErrorEnvelope.AvailableCommands on CommandNotFound envelopes.
func WithAvailableCommandsLister(f AvailableCommandsLister) Option {
	return func(b *Builder) { b.lister = f }
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithPatterns replaces the default rule set. Intended for tests; production
// callers should use NewBuilder's defaults.
func WithPatterns(patterns []Pattern) Option {
	return func(b *Builder) { b.patterns = patterns }
}

// NewBuilder constructs a Builder with the default pattern set (§4.1).
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		patterns:          defaultPatterns(),
		log:               logging.Default(),
		retryDelaySeconds: 5,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Categorize classifies raw error text into a Category. It is pure and
// deterministic (P12): the same input always yields the same category, and
// Categorize never mutates Builder state.
func (b *Builder) Categorize(text string) Category {
	for _, p := range b.patterns {
		if p.Matcher.MatchString(text) {
			return p.Category
		}
	}
	return Unknown
}

func (b *Builder) matchedPattern(text string) (Pattern, bool) {
	for _, p := range b.patterns {
		if p.Matcher.MatchString(text) {
			return p, true
		}
	}
	return Pattern{}, false
}

// HandleCommandError categorizes a CommandError and renders the envelope
// (§4.1). available_commands is populated only for CommandNotFound.
func (b *Builder) HandleCommandError(err *CommandError) *ErrorEnvelope {
	category := b.Categorize(err.Message)
	env := b.build(category, err.Message, err.Context)
	b.log.Error("command error", "category", string(category), "message", err.Message)
	return env
}

// HandleModuleError categorizes a ModuleError and renders the envelope,
// with technical_details carrying "Module: <name>" (§4.1).
func (b *Builder) HandleModuleError(err *ModuleError) *ErrorEnvelope {
	category := b.Categorize(err.Message)
	env := b.build(category, err.Message, "Module: "+err.ModuleName)
	b.log.Error("module error", "module", err.ModuleName, "category", string(category), "message", err.Message)
	return env
}

func (b *Builder) build(category Category, original, details string) *ErrorEnvelope {
	pattern, matched := b.matchedPattern(original)

	hints := genericUnknownHints
	autoRetry := false
	if matched {
		hints = pattern.RecoveryHints
		autoRetry = pattern.AutoRetry
	}

	message := category.friendlyMessage(original)
	if containsForbiddenToken(message) {
		message = "An unexpected error occurred. Please try again or contact support for assistance."
	}
	if len(message) < 15 {
		message = "An unexpected error occurred. Please try again or contact support for assistance."
	}

	env := &ErrorEnvelope{
		ErrorType:           category,
		Message:             message,
		Details:             details,
		RecoverySuggestions: hints,
		ErrorCode:           category.code(),
		Timestamp:           time.Now(),
		Severity:            category.severity().String(),
	}

	if category == CommandNotFound && b.lister != nil {
		env.AvailableCommands = b.lister()
	}

	if autoRetry {
		delay := b.retryDelaySeconds
		env.RetryAfter = &delay
	}

	return env
}

// commandNamePrefix matches the literal prefix "Command '<name>'" that the
// registry's own error text uses, per spec.md §9(b)/§4 supplement.
var commandNamePrefix = regexp.MustCompile(`[Cc]ommand '([^']+)'`)

// ExtractCommandName pulls a command name out of raw error text formatted
// with the literal prefix "Command '<name>'". It returns ("", false) when no
// such prefix is present; callers should treat that as "no command context
// available" rather than an error.
func ExtractCommandName(text string) (string, bool) {
	m := commandNamePrefix.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return "", false
	}
	return name, true
}
