// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package workerpool

import (
	"sync"
	"sync/atomic"

	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
)

// MultiManager fans the per-connection request loop's demand out
// across N worker goroutines. One calling goroutine assembles the
// per-request order and per-agent numRequired counts; workers advance
// agents independently; the calling goroutine blocks on totalWork
// reaching zero, then drains results in the exact order it queued
// them, regardless of worker completion order.
//
// Lock ordering: mu guards workToDo/numRequired/resultQueues and
// is always acquired before twMu, which guards only totalWork and its
// completion condition. killed is a separate atomic flag precisely so
// that a goroutine blocked on totalWorkZero never needs to acquire mu.
type MultiManager struct {
	sim Simulator

	initialMu sync.Mutex
	initial   map[uint32]protocol.Update

	mu          sync.Mutex
	workToDo    []uint32
	numRequired map[uint32]int
	resultQueues map[uint32][]protocol.Update
	workAvail   sync.Cond

	twMu          sync.Mutex
	totalWork     int
	totalWorkZero sync.Cond

	killed atomic.Bool
	wg     sync.WaitGroup
}

// NewMultiManager starts `workers` worker goroutines and pre-populates
// every agent's time=0 update.
func NewMultiManager(workers int, numAgents uint32, sim Simulator) *MultiManager {
	m := &MultiManager{
		sim:          sim,
		initial:      make(map[uint32]protocol.Update, numAgents),
		numRequired:  make(map[uint32]int),
		resultQueues: make(map[uint32][]protocol.Update),
	}
	m.workAvail.L = &m.mu
	m.totalWorkZero.L = &m.twMu

	for a := uint32(0); a < numAgents; a++ {
		m.initial[a] = sim.InitialUpdate(a)
	}

	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.workerLoop()
	}
	return m
}

func (m *MultiManager) workerLoop() {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		for len(m.workToDo) == 0 && !m.killed.Load() {
			m.workAvail.Wait()
		}
		if m.killed.Load() {
			m.mu.Unlock()
			return
		}
		agent := m.workToDo[0]
		m.workToDo = m.workToDo[1:]
		m.mu.Unlock()

		for {
			if m.killed.Load() {
				return
			}
			m.mu.Lock()
			if m.numRequired[agent] <= 0 {
				m.mu.Unlock()
				break
			}
			m.mu.Unlock()

			u := m.sim.Advance(agent)

			m.mu.Lock()
			m.resultQueues[agent] = append(m.resultQueues[agent], u)
			m.numRequired[agent]--
			m.mu.Unlock()

			m.twMu.Lock()
			m.totalWork--
			if m.totalWork == 0 {
				m.totalWorkZero.Broadcast()
			}
			m.twMu.Unlock()
		}
	}
}

// RequestUpdates implements Manager.
func (m *MultiManager) RequestUpdates(ids []uint32) ([]protocol.Update, error) {
	out := make([]protocol.Update, len(ids))

	m.initialMu.Lock()
	var dispatched []uint32
	var dispatchedIdx []int
	for i, id := range ids {
		if u, ok := m.initial[id]; ok {
			out[i] = u
			delete(m.initial, id)
			continue
		}
		dispatched = append(dispatched, id)
		dispatchedIdx = append(dispatchedIdx, i)
	}
	m.initialMu.Unlock()

	if len(dispatched) == 0 {
		return out, nil
	}

	m.mu.Lock()
	for _, id := range dispatched {
		m.numRequired[id]++
		if m.numRequired[id] == 1 {
			m.workToDo = append(m.workToDo, id)
		}
	}
	m.mu.Unlock()

	m.twMu.Lock()
	m.totalWork += len(dispatched)
	m.twMu.Unlock()
	m.workAvail.Broadcast()

	m.twMu.Lock()
	for m.totalWork > 0 && !m.killed.Load() {
		m.totalWorkZero.Wait()
	}
	m.twMu.Unlock()

	if m.killed.Load() {
		return nil, protoerr.New(protoerr.SocketDry)
	}

	m.mu.Lock()
	for j, id := range dispatched {
		q := m.resultQueues[id]
		out[dispatchedIdx[j]] = q[0]
		if len(q) == 1 {
			delete(m.resultQueues, id)
		} else {
			m.resultQueues[id] = q[1:]
		}
	}
	m.mu.Unlock()

	return out, nil
}

// Close sets the kill flag and wakes every waiter; workers observe it
// at their next wait and exit.
func (m *MultiManager) Close() {
	m.killed.Store(true)
	m.mu.Lock()
	m.workAvail.Broadcast()
	m.mu.Unlock()
	m.twMu.Lock()
	m.totalWorkZero.Broadcast()
	m.twMu.Unlock()
	m.wg.Wait()
}
