// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package workerpool implements the server-side Manager abstraction
// that shields the per-connection request loop from simulation cost:
// a SimpleManager advances synchronously, a MultiManager fans out
// across N worker goroutines while preserving reply ordering.
package workerpool

import "github.com/nishisan-dev/uamp/internal/protocol"

// Manager produces one Update per requested agent ID, in request
// order, regardless of how (or how concurrently) those updates are
// computed.
type Manager interface {
	// RequestUpdates advances the simulation for each id in ids (in
	// order, with repeats) and returns one Update per id, in the exact
	// same order.
	RequestUpdates(ids []uint32) ([]protocol.Update, error)

	// Close shuts down the manager and any worker goroutines it owns.
	// It is safe to call Close while a RequestUpdates call is blocked;
	// that call returns early with an error.
	Close()
}

// New constructs the appropriate Manager for the configured worker
// count: a SimpleManager when workers <= 1 or numAgents <= 1,
// otherwise a MultiManager.
func New(workers int, numAgents uint32, sim Simulator) Manager {
	if workers <= 1 || numAgents <= 1 {
		return NewSimpleManager(numAgents, sim)
	}
	return NewMultiManager(workers, numAgents, sim)
}

// SimpleManager advances the simulation synchronously on the calling
// goroutine; used when there is no concurrency to exploit (a single
// worker thread, or at most one live agent).
type SimpleManager struct {
	sim     Simulator
	initial map[uint32]protocol.Update
}

// NewSimpleManager pre-populates every agent's time=0 update, per the
// initial-location handling shared by both manager strategies.
func NewSimpleManager(numAgents uint32, sim Simulator) *SimpleManager {
	initial := make(map[uint32]protocol.Update, numAgents)
	for a := uint32(0); a < numAgents; a++ {
		initial[a] = sim.InitialUpdate(a)
	}
	return &SimpleManager{sim: sim, initial: initial}
}

func (m *SimpleManager) RequestUpdates(ids []uint32) ([]protocol.Update, error) {
	out := make([]protocol.Update, len(ids))
	for i, id := range ids {
		if u, ok := m.initial[id]; ok {
			out[i] = u
			delete(m.initial, id)
			continue
		}
		out[i] = m.sim.Advance(id)
	}
	return out, nil
}

func (m *SimpleManager) Close() {}
