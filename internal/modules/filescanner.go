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
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
	"github.com/AleutianAI/bridge-registry/pkg/logging"
)

// FileScannerModule watches a directory tree for changes relevant to
// command discovery (e.g. hot-reloading command manifests). It is
// non-critical: a watcher failure degrades discovery but should never
// abort the whole runtime.
type FileScannerModule struct {
	dir     string
	watcher *fsnotify.Watcher
	log     *logging.Logger

	mu     sync.Mutex
	events []fsnotify.Event
	done   chan struct{}
}

// NewFileScannerModule constructs a FileScannerModule watching dir once
// Initialize runs.
func NewFileScannerModule(dir string, log *logging.Logger) *FileScannerModule {
	if log == nil {
		log = logging.Default()
	}
	return &FileScannerModule{dir: dir, log: log}
}

func (m *FileScannerModule) Name() string           { return "file_scanner" }
func (m *FileScannerModule) Dependencies() []string { return nil }

func (m *FileScannerModule) Initialize(ctx context.Context) *envelope.ModuleError {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("failed to create fsnotify watcher: %v", err), envelope.ErrInitializationFailed)
	}
	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("failed to watch %s: %v", m.dir, err), envelope.ErrInitializationFailed)
	}
	m.watcher = watcher
	m.done = make(chan struct{})
	go m.loop()
	m.log.Info("file scanner watching directory", "module", m.Name(), "dir", m.dir)
	return nil
}

func (m *FileScannerModule) loop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.mu.Lock()
			m.events = append(m.events, event)
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("file scanner watch error", "module", m.Name(), "error", err)
		case <-m.done:
			return
		}
	}
}

func (m *FileScannerModule) HealthCheck(ctx context.Context) *envelope.ModuleError {
	if m.watcher == nil {
		return envelope.NewModuleError(m.Name(), "watcher not initialized", envelope.ErrHealthCheckFailed)
	}
	return nil
}

func (m *FileScannerModule) Shutdown(ctx context.Context) *envelope.ModuleError {
	if m.watcher == nil {
		return nil
	}
	close(m.done)
	if err := m.watcher.Close(); err != nil {
		return envelope.NewModuleError(m.Name(), fmt.Sprintf("failed to close watcher: %v", err), envelope.ErrShutdownFailed)
	}
	return nil
}

// RecentEvents returns a snapshot of observed filesystem events.
func (m *FileScannerModule) RecentEvents() []fsnotify.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fsnotify.Event(nil), m.events...)
}
