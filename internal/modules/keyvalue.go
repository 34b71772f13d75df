// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package modules holds concrete initializer.Module implementations that
// back the registry's commands with real service backends (vector search,
// embedded key-value storage, file watching, an LLM client fleet).
package modules

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

// KeyValueModule wraps an embedded Badger store. It is the runtime's
// canonical example of a Critical module (named "database" to match the
// reserved critical-module set in internal/initializer).
type KeyValueModule struct {
	dir string
	db  *badger.DB
	log *logging.Logger
}

// NewKeyValueModule constructs an unopened KeyValueModule; Initialize opens
// the store on disk at dir.
func NewKeyValueModule(dir string, log *logging.Logger) *KeyValueModule {
	if log == nil {
		log = logging.Default()
	}
	return &KeyValueModule{dir: dir, log: log}
}

func (m *KeyValueModule) Name() string           { return "database" }
func (m *KeyValueModule) Dependencies() []string { return nil }

func (m *KeyValueModule) Initialize(ctx context.Context) *envelope.ModuleError {
	opts := badger.DefaultOptions(m.dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("failed to open badger store at %s: %v", m.dir, err), envelope.ErrInitializationFailed)
	}
	m.db = db
	m.log.Info("key-value store opened", "module", m.Name(), "dir", m.dir)
	return nil
}

func (m *KeyValueModule) HealthCheck(ctx context.Context) *envelope.ModuleError {
	if m.db == nil {
		return envelope.NewModuleError(m.Name(), "store not open", envelope.ErrHealthCheckFailed)
	}
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("__health__"))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("health probe failed: %v", err), envelope.ErrHealthCheckFailed)
	}
	return nil
}

func (m *KeyValueModule) Shutdown(ctx context.Context) *envelope.ModuleError {
	if m.db == nil {
		return nil
	}
	if err := m.db.Close(); err != nil {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("failed to close badger store: %v", err), envelope.ErrShutdownFailed)
	}
	return nil
}

// Put and Get expose the minimal surface commands need; they are the
// "business commands" that sit above the registry core per §1's scope note.
func (m *KeyValueModule) Put(key, value []byte) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (m *KeyValueModule) Get(key []byte) ([]byte, error) {
	var out []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	return out, err
}
