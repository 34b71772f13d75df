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

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

// VectorIndexModule wraps a Weaviate client for similarity search over
// command documentation and historical error envelopes. It declares a hard
// dependency on the key-value module so the initializer brings up storage
// before search (matches §5's dependency-ordered bring-up requirement).
type VectorIndexModule struct {
	scheme string
	host   string
	client *weaviate.Client
	log    *logging.Logger
}

// NewVectorIndexModule constructs an unconnected VectorIndexModule.
func NewVectorIndexModule(scheme, host string, log *logging.Logger) *VectorIndexModule {
	if log == nil {
		log = logging.Default()
	}
	return &VectorIndexModule{scheme: scheme, host: host, log: log}
}

func (m *VectorIndexModule) Name() string           { return "vector_index" }
func (m *VectorIndexModule) Dependencies() []string { return []string{"database"} }

func (m *VectorIndexModule) Initialize(ctx context.Context) *envelope.ModuleError {
	cfg := weaviate.Config{Scheme: m.scheme, Host: m.host}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("failed to construct weaviate client: %v", err), envelope.ErrInitializationFailed)
	}
	m.client = client
	live, err := client.Misc().LiveChecker().Do(ctx)
	if err != nil || !live {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("weaviate liveness check failed: %v", err), envelope.ErrInitializationFailed)
	}
	m.log.Info("vector index connected", "module", m.Name(), "host", m.host)
	return nil
}

func (m *VectorIndexModule) HealthCheck(ctx context.Context) *envelope.ModuleError {
	if m.client == nil {
		return envelope.NewModuleError(m.Name(), "client not initialized", envelope.ErrHealthCheckFailed)
	}
	ready, err := m.client.Misc().ReadyChecker().Do(ctx)
	if err != nil || !ready {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("weaviate readiness check failed: %v", err), envelope.ErrHealthCheckFailed)
	}
	return nil
}

func (m *VectorIndexModule) Shutdown(ctx context.Context) *envelope.ModuleError {
	// the weaviate-go-client holds no persistent connection to close.
	m.client = nil
	return nil
}
