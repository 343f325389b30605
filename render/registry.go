// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoDevice is returned when no registered backend can produce a
// device.
var ErrNoDevice = errors.New("render: no device backend available")

// Factory creates a device for a registered backend.
type Factory func() (Device, error)

type backendEntry struct {
	name      string
	priority  int
	available func() bool
	factory   Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]backendEntry)
)

// Register registers a device backend under the given name.
// Higher priority wins in NewDefaultDevice; available may be nil,
// meaning always available. This is typically called from init()
// functions in backend packages. Registering an existing name replaces
// the earlier entry.
func Register(name string, priority int, available func() bool, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = backendEntry{
		name:      name,
		priority:  priority,
		available: available,
		factory:   factory,
	}
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Available returns the names of registered backends that report
// themselves available, highest priority first.
func Available() []string {
	names := make([]string, 0)
	for _, e := range sortedEntries() {
		if e.available != nil && !e.available() {
			continue
		}
		names = append(names, e.name)
	}
	return names
}

// NewDevice creates a device from the named backend.
func NewDevice(name string) (Device, error) {
	registryMu.RLock()
	e, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrNoDevice, name)
	}
	return e.factory()
}

// NewDefaultDevice creates a device from the best available backend.
// Backends are tried in descending priority order; one that reports
// unavailable or fails to construct is skipped.
func NewDefaultDevice() (Device, error) {
	for _, e := range sortedEntries() {
		if e.available != nil && !e.available() {
			continue
		}
		dev, err := e.factory()
		if err != nil {
			slogger().Debug("device backend failed, trying next",
				"backend", e.name, "error", err)
			continue
		}
		slogger().Info("device backend selected", "backend", e.name)
		return dev, nil
	}
	return nil, ErrNoDevice
}

// sortedEntries snapshots the registry ordered by descending priority,
// ties broken by name for determinism.
func sortedEntries() []backendEntry {
	registryMu.RLock()
	defer registryMu.RUnlock()

	entries := make([]backendEntry, 0, len(registry))
	for _, e := range registry {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})
	return entries
}
