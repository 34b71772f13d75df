// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package modules

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

// LLMFleetModule wraps a pool of OpenAI-compatible clients, one per
// configured model, giving the registry a collaborator that can answer
// "which command handles X" style queries over long documentation. It
// chunks oversized context with langchaingo's recursive splitter before
// handing it to a client (grounded on the teacher's document-ingestion
// handler, which uses the same splitter ahead of embedding).
type LLMFleetModule struct {
	apiKey  string
	models  []string
	clients map[string]*openai.Client
	splitter textsplitter.RecursiveCharacter
	log     *logging.Logger
}

// NewLLMFleetModule constructs an LLMFleetModule for the given models;
// clients are created during Initialize.
func NewLLMFleetModule(apiKey string, models []string, log *logging.Logger) *LLMFleetModule {
	if log == nil {
		log = logging.Default()
	}
	return &LLMFleetModule{
		apiKey:   apiKey,
		models:   models,
		splitter: textsplitter.NewRecursiveCharacter(),
		log:      log,
	}
}

func (m *LLMFleetModule) Name() string           { return "llm_fleet" }
func (m *LLMFleetModule) Dependencies() []string { return nil }

func (m *LLMFleetModule) Initialize(ctx context.Context) *envelope.ModuleError {
	if m.apiKey == "" {
		return envelope.NewModuleError(m.Name(), "no API key configured for the LLM fleet", envelope.ErrInitializationFailed)
	}
	m.clients = make(map[string]*openai.Client, len(m.models))
	for _, model := range m.models {
		m.clients[model] = openai.NewClient(m.apiKey)
	}
	m.log.Info("llm fleet initialized", "module", m.Name(), "models", m.models)
	return nil
}

func (m *LLMFleetModule) HealthCheck(ctx context.Context) *envelope.ModuleError {
	if len(m.clients) == 0 {
		return envelope.NewModuleError(m.Name(), "no clients initialized", envelope.ErrHealthCheckFailed)
	}
	return nil
}

func (m *LLMFleetModule) Shutdown(ctx context.Context) *envelope.ModuleError {
	m.clients = nil
	return nil
}

// SplitContext chunks oversized documentation/context text before it is
// handed to a fleet client, mirroring the teacher's ingestion pipeline.
func (m *LLMFleetModule) SplitContext(text string) ([]string, error) {
	chunks, err := m.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split context: %w", err)
	}
	return chunks, nil
}

// ClientFor returns the client bound to model, or false if the fleet
// doesn't carry that model.
func (m *LLMFleetModule) ClientFor(model string) (*openai.Client, bool) {
	c, ok := m.clients[model]
	return c, ok
}
