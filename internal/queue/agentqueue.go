// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package queue implements the client-side per-agent update queue: a
// sliding window of received-but-not-yet-consumed updates with the
// receive-validation state machine and demand accounting described by
// the update request/reply engine.
package queue

import (
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
)

// AgentQueue tracks one agent's received-but-not-yet-evicted updates.
// It models the externally observable circular-buffer invariants
// (aliveInQueue, strict monotonic receive time, terminal idempotency)
// as a trimmed slice rather than a literal fixed-size ring: the wire
// behaviour (the demand formula in Demand) is identical either way,
// and a slice is simpler to reason about and test.
type AgentQueue struct {
	size     int
	duration uint32

	received []protocol.Update // [idx-1] is previous, [idx] is current, anything after is buffered-ahead
	idx      int

	aliveInQueue  int
	receivedFinal bool
	firstFill     bool
}

// New creates an AgentQueue of the given size (must be >= 2) for a
// simulation of the given duration in milliseconds.
func New(size int, durationMS uint32) *AgentQueue {
	if size < 2 {
		panic("queue: size must be >= 2")
	}
	return &AgentQueue{size: size, duration: durationMS, firstFill: true}
}

// Demand reports how many updates this agent should be requested for
// in the next LOCATION_REQUEST, per the first-fill/steady-state
// formula. The steady-state formula is clamped at zero: a burst of
// receives can transiently push aliveInQueue past size.
func (q *AgentQueue) Demand() uint32 {
	if q.receivedFinal {
		return 0
	}
	if q.firstFill {
		return uint32(q.size) + 1
	}
	d := q.size - q.aliveInQueue
	if d < 0 {
		return 0
	}
	return uint32(d)
}

// Receive validates and installs one newly arrived update, per the
// per-agent queue receive-validation rules.
func (q *AgentQueue) Receive(u protocol.Update) error {
	if len(q.received) == 0 {
		if u.TimeMS != 0 {
			return protoerr.New(protoerr.FirstUpdateTime)
		}
		q.received = []protocol.Update{u}
		q.idx = 0
		q.aliveInQueue = 1
		q.firstFill = false
		if u.TimeMS == q.duration {
			q.receivedFinal = true
		}
		return nil
	}

	last := q.received[len(q.received)-1]

	if q.receivedFinal {
		if !u.Equal(last) {
			return protoerr.New(protoerr.NonEqualFinalUpdates)
		}
		// Idempotent terminal repeats are accepted but not buffered;
		// there is nothing further to advance to.
		return nil
	}

	if u.TimeMS <= last.TimeMS {
		return protoerr.New(protoerr.TimestampNotIncremented)
	}
	if u.TimeMS > q.duration {
		return protoerr.New(protoerr.TimestampTooLarge)
	}

	q.received = append(q.received, u)
	q.aliveInQueue++
	if u.TimeMS == q.duration {
		q.receivedFinal = true
	}
	q.trim()
	return nil
}

// trim drops fully-consumed history, keeping only the previous entry
// (idx-1) and everything from idx onward.
func (q *AgentQueue) trim() {
	if q.idx <= 1 {
		return
	}
	drop := q.idx - 1
	q.received = q.received[drop:]
	q.idx -= drop
}

// Current returns the most recently advanced-to update.
func (q *AgentQueue) Current() protocol.Update {
	return q.received[q.idx]
}

// Previous returns the update immediately preceding Current. Before
// the first Advance, Previous equals Current (the initial update).
func (q *AgentQueue) Previous() protocol.Update {
	if q.idx == 0 {
		return q.received[0]
	}
	return q.received[q.idx-1]
}

// AliveInQueue reports the number of currently buffered entries at or
// ahead of Current (1 before the first Advance, growing as further
// updates are received, shrinking as Advance consumes them).
func (q *AgentQueue) AliveInQueue() int {
	return q.aliveInQueue
}

// ReceivedFinal reports whether an update with time = duration has
// been received for this agent.
func (q *AgentQueue) ReceivedFinal() bool {
	return q.receivedFinal
}

// Advance rotates the window forward one slot if a further received
// update is buffered ahead of Current. It reports whether it
// advanced.
func (q *AgentQueue) Advance() bool {
	if q.aliveInQueue <= 1 {
		return false
	}
	q.idx++
	q.aliveInQueue--
	q.trim()
	return true
}
