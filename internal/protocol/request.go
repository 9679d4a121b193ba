// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/wire"
)

// ReadOpcode reads the single command byte that begins every message
// of the request-loop phase (LOCATION_REQUEST, CHANGE_STATE or the
// first byte of TERMINATE).
func ReadOpcode(buf *wire.Buffer) (byte, error) {
	buf.BeginRead(1)
	return buf.Read8()
}

// WriteLocationRequest writes a full LOCATION_REQUEST frame: opcode,
// count, then the requested agent IDs in order.
func WriteLocationRequest(buf *wire.Buffer, agentIDs []uint32) error {
	buf.BeginWrite(1 + 4 + 4*len(agentIDs))
	if err := buf.Write8(OpLocationRequest); err != nil {
		return err
	}
	if err := buf.Write32(uint32(len(agentIDs))); err != nil {
		return err
	}
	for _, id := range agentIDs {
		if err := buf.Write32(id); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// ReadLocationRequestBody reads the count and agent-ID list of a
// LOCATION_REQUEST, assuming the opcode byte has already been
// consumed by ReadOpcode.
func ReadLocationRequestBody(buf *wire.Buffer) ([]uint32, error) {
	buf.BeginRead(4)
	count, err := buf.Read32()
	if err != nil {
		return nil, err
	}

	buf.BeginRead(4 * int(count))
	ids := make([]uint32, count)
	for i := range ids {
		id, err := buf.Read32()
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// updateWireSize returns the per-update byte size for the negotiated
// feature set.
func updateWireSize(f Features) int {
	size := 4 + 4 + 4 // time, x, y
	if f.ThreeD {
		size += 4
	}
	if f.AppearDisappear {
		size++
	}
	return size
}

// WriteUpdates writes the reply body of a LOCATION_REQUEST: one
// update per requested agent ID, in request order.
func WriteUpdates(buf *wire.Buffer, updates []Update, f Features) error {
	buf.BeginWrite(updateWireSize(f) * len(updates))
	for _, u := range updates {
		if err := buf.Write32(u.TimeMS); err != nil {
			return err
		}
		if err := buf.Write32(u.XMM); err != nil {
			return err
		}
		if err := buf.Write32(u.YMM); err != nil {
			return err
		}
		if f.ThreeD {
			if err := buf.Write32(u.ZMM); err != nil {
				return err
			}
		}
		if f.AppearDisappear {
			v := byte(0)
			if u.Present {
				v = 1
			}
			if err := buf.Write8(v); err != nil {
				return err
			}
		}
	}
	return buf.Flush()
}

// ReadUpdates reads count updates from a LOCATION_REQUEST reply,
// decoding the optional z/present fields according to the negotiated
// features.
func ReadUpdates(buf *wire.Buffer, count int, f Features) ([]Update, error) {
	buf.BeginRead(updateWireSize(f) * count)
	updates := make([]Update, count)
	for i := range updates {
		t, err := buf.Read32()
		if err != nil {
			return nil, err
		}
		x, err := buf.Read32()
		if err != nil {
			return nil, err
		}
		y, err := buf.Read32()
		if err != nil {
			return nil, err
		}
		u := Update{TimeMS: t, XMM: x, YMM: y, Present: true}
		if f.ThreeD {
			z, err := buf.Read32()
			if err != nil {
				return nil, err
			}
			u.ZMM = z
		}
		if f.AppearDisappear {
			p, err := buf.Read8()
			if err != nil {
				return nil, err
			}
			if p != 0 && p != 1 {
				return nil, protoerr.New(protoerr.InvalidPresentFlag)
			}
			u.Present = p == 1
		}
		updates[i] = u
	}
	return updates, nil
}

// ChunkRequests partitions a flat, ordered list of (agentID, count)
// demand pairs into a sequence of LOCATION_REQUEST ID lists, each
// carrying at most 2^32-1 IDs. A single agent's demand is split across
// two adjacent requests when the running total would otherwise
// overflow a U32 count field.
func ChunkRequests(demand []AgentDemand) [][]uint32 {
	const maxPerRequest = ^uint32(0)

	var chunks [][]uint32
	var current []uint32
	var currentLen uint64

	for _, d := range demand {
		remaining := d.Count
		for remaining > 0 {
			room := uint64(maxPerRequest) - currentLen
			if room == 0 {
				chunks = append(chunks, current)
				current = nil
				currentLen = 0
				room = uint64(maxPerRequest)
			}
			take := remaining
			if uint64(take) > room {
				take = uint32(room)
			}
			for i := uint32(0); i < take; i++ {
				current = append(current, d.AgentID)
			}
			currentLen += uint64(take)
			remaining -= take
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// AgentDemand is one agent's outstanding update count, the input to
// ChunkRequests.
type AgentDemand struct {
	AgentID uint32
	Count   uint32
}
