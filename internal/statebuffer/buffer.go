// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package statebuffer implements the client-side MVISP state-change
// pipeline: a bounded, auto-flushing FIFO of (agentID, time, newState)
// tuples.
package statebuffer

import (
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
)

// Flusher writes a full CHANGE_STATE frame to the wire. It is
// satisfied by a function wrapping protocol.WriteChangeStateFrame
// bound to the connection's wire.Buffer.
type Flusher func(changes []protocol.StateChange) error

// Buffer accumulates StateChanges up to a fixed capacity, flushing
// automatically when full.
type Buffer struct {
	capacity int
	numAgents uint32
	numStates uint32
	durationMS uint32

	pending []protocol.StateChange
	flush   Flusher
}

// New creates a Buffer holding up to capacity entries (the reference
// capacity is protocol.StateChangeBufferSize, 128) for a simulation
// with the given agent count, state count and duration, flushing full
// batches via flush.
func New(capacity int, numAgents, numStates, durationMS uint32, flush Flusher) *Buffer {
	return &Buffer{capacity: capacity, numAgents: numAgents, numStates: numStates, durationMS: durationMS, flush: flush}
}

// ChangeState validates and appends one state change, auto-flushing
// once the buffer reaches capacity.
func (b *Buffer) ChangeState(agentID uint32, timeSeconds float64, newState uint32) error {
	if agentID >= b.numAgents {
		return protoerr.New(protoerr.InvalidChangeState)
	}
	if newState >= b.numStates {
		return protoerr.New(protoerr.InvalidChangeState)
	}

	timeMS := uint32(timeSeconds*1000 + 0.5) // round(time * 1000)
	if timeSeconds < 0 || timeMS > b.durationMS {
		return protoerr.New(protoerr.InvalidChangeTime)
	}

	b.pending = append(b.pending, protocol.StateChange{AgentID: agentID, TimeMS: timeMS, NewState: newState})
	if len(b.pending) >= b.capacity {
		return b.Flush()
	}
	return nil
}

// Flush writes any buffered entries as one CHANGE_STATE frame. An
// empty buffer is a no-op: no frame is sent.
func (b *Buffer) Flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	changes := b.pending
	b.pending = nil
	return b.flush(changes)
}

// Len reports the number of currently buffered, unflushed entries.
func (b *Buffer) Len() int { return len(b.pending) }
