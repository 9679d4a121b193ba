// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package simulation provides a reference mobility generator that
// satisfies workerpool.Simulator. It is the out-of-scope collaborator
// the protocol core treats as an opaque producer of updates; this
// implementation is a deterministic random walk suitable for demos and
// tests, not a map-aware pathfinding simulation.
package simulation

import (
	"math/rand"

	"github.com/nishisan-dev/uamp/internal/protocol"
)

// RandomWalk produces bounded random-walk positions for numAgents
// agents, stepping forward in fixed time increments until duration is
// reached, then repeating the terminal update forever (matching the
// per-agent queue's terminal-idempotency expectation).
type RandomWalk struct {
	numAgents  uint32
	durationMS uint32
	stepMS     uint32
	boundMM    uint32
	features   protocol.Features

	rngs         []*rand.Rand
	times        []uint32
	pos          []position
	present      []bool
	finalReached []bool
}

type position struct{ x, y, z uint32 }

// NewRandomWalk builds a RandomWalk generator seeded deterministically
// per agent from seed, so that a given (seed, agent) pair always
// produces the same stream.
func NewRandomWalk(numAgents uint32, durationMS, stepMS, boundMM uint32, seed uint32, features protocol.Features) *RandomWalk {
	rw := &RandomWalk{
		numAgents:    numAgents,
		durationMS:   durationMS,
		stepMS:       stepMS,
		boundMM:      boundMM,
		features:     features,
		rngs:         make([]*rand.Rand, numAgents),
		times:        make([]uint32, numAgents),
		pos:          make([]position, numAgents),
		present:      make([]bool, numAgents),
		finalReached: make([]bool, numAgents),
	}
	for a := uint32(0); a < numAgents; a++ {
		rw.rngs[a] = rand.New(rand.NewSource(int64(seed)*1_000_003 + int64(a)))
		rw.pos[a] = position{
			x: uint32(rw.rngs[a].Intn(int(boundMM) + 1)),
			y: uint32(rw.rngs[a].Intn(int(boundMM) + 1)),
		}
		if features.ThreeD {
			rw.pos[a].z = uint32(rw.rngs[a].Intn(int(boundMM) + 1))
		}
		rw.present[a] = true
	}
	return rw
}

// InitialUpdate implements workerpool.Simulator.
func (rw *RandomWalk) InitialUpdate(agent uint32) protocol.Update {
	p := rw.pos[agent]
	return protocol.Update{TimeMS: 0, XMM: p.x, YMM: p.y, ZMM: p.z, Present: true}
}

// Advance implements workerpool.Simulator: steps the agent forward by
// stepMS (clamped to durationMS) and performs a bounded random walk in
// each negotiated coordinate.
func (rw *RandomWalk) Advance(agent uint32) protocol.Update {
	if rw.finalReached[agent] {
		p := rw.pos[agent]
		return protocol.Update{TimeMS: rw.durationMS, XMM: p.x, YMM: p.y, ZMM: p.z, Present: rw.present[agent]}
	}

	t := rw.times[agent] + rw.stepMS
	if t >= rw.durationMS {
		t = rw.durationMS
		rw.finalReached[agent] = true
	}
	rw.times[agent] = t

	rw.pos[agent] = rw.step(agent)
	present := true
	if rw.features.AppearDisappear {
		present = rw.rngs[agent].Intn(20) != 0 // rare disappearance
	}
	rw.present[agent] = present

	p := rw.pos[agent]
	return protocol.Update{TimeMS: t, XMM: p.x, YMM: p.y, ZMM: p.z, Present: present}
}

func (rw *RandomWalk) step(agent uint32) position {
	p := rw.pos[agent]
	r := rw.rngs[agent]
	p.x = clampStep(p.x, rw.boundMM, r)
	p.y = clampStep(p.y, rw.boundMM, r)
	if rw.features.ThreeD {
		p.z = clampStep(p.z, rw.boundMM, r)
	}
	return p
}

func clampStep(v, bound uint32, r *rand.Rand) uint32 {
	delta := r.Intn(2001) - 1000 // [-1000, 1000] mm
	nv := int64(v) + int64(delta)
	if nv < 0 {
		nv = 0
	}
	if nv > int64(bound) {
		nv = int64(bound)
	}
	return uint32(nv)
}
