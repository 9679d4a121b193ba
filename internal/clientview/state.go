// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package clientview implements the client-side time-synchronised
// view: the per-agent current/previous command conversion and the
// intersectCommand/advanceOldest pair that interpolates every agent
// onto a common, globally-synchronous time window.
package clientview

import (
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
	"github.com/nishisan-dev/uamp/internal/queue"
)

// msToSeconds converts a wire millisecond value to the client-facing
// seconds unit.
func msToSeconds(ms uint32) float64 { return float64(ms) / 1000.0 }

// mmToMetres converts a wire millimetre value to the client-facing
// metres unit.
func mmToMetres(mm uint32) float64 { return float64(mm) / 1000.0 }

// State holds every agent's queue plus the cross-agent time
// watermarks needed for the intersection view.
type State struct {
	agents      []*queue.AgentQueue
	durationMS  uint32
	features    protocol.Features

	smallestCurrentTime uint32
	largestLastTime     uint32
}

// New creates a State for numAgents agents, each with a queue of the
// given size, for a simulation of the given duration.
func New(numAgents int, queueSize int, durationMS uint32, features protocol.Features) *State {
	agents := make([]*queue.AgentQueue, numAgents)
	for i := range agents {
		agents[i] = queue.New(queueSize, durationMS)
	}
	return &State{agents: agents, durationMS: durationMS, features: features}
}

// NumAgents returns the number of agents tracked.
func (s *State) NumAgents() int { return len(s.agents) }

// Queue exposes the underlying AgentQueue for direct Receive calls
// from the request/reply engine.
func (s *State) Queue(agent uint32) *queue.AgentQueue { return s.agents[agent] }

// SmallestCurrentTime is the minimum, over all agents, of their
// current update's time.
func (s *State) SmallestCurrentTime() uint32 { return s.smallestCurrentTime }

// LargestLastTime is the maximum, over all agents, of their previous
// update's time.
func (s *State) LargestLastTime() uint32 { return s.largestLastTime }

// recomputeSmallestCurrentTime does a full rescan across all agents.
func (s *State) recomputeSmallestCurrentTime() {
	min := s.agents[0].Current().TimeMS
	for _, a := range s.agents[1:] {
		if t := a.Current().TimeMS; t < min {
			min = t
		}
	}
	s.smallestCurrentTime = min
}

// Init must be called once every agent has received its initial
// (time=0) update, to establish the watermarks.
func (s *State) Init() {
	s.largestLastTime = 0
	s.recomputeSmallestCurrentTime()
}

// CurrentCommand returns the Command spanning the agent's previous
// update (or the initial one) to its current update, in SI units.
func (s *State) CurrentCommand(agent uint32) protocol.Command {
	q := s.agents[agent]
	prev, cur := q.Previous(), q.Current()
	return protocol.Command{
		AgentID:  agent,
		FromX:    mmToMetres(prev.XMM),
		FromY:    mmToMetres(prev.YMM),
		FromZ:    mmToMetres(prev.ZMM),
		FromTime: msToSeconds(prev.TimeMS),
		ToX:      mmToMetres(cur.XMM),
		ToY:      mmToMetres(cur.YMM),
		ToZ:      mmToMetres(cur.ZMM),
		ToTime:   msToSeconds(cur.TimeMS),
		Present:  cur.Present,
	}
}

// Advance rotates one agent's queue forward, updating the global time
// watermarks. It reports whether the agent actually advanced (false
// if nothing was buffered ahead of its current update).
func (s *State) Advance(agent uint32) bool {
	q := s.agents[agent]
	wasAtMin := q.Current().TimeMS == s.smallestCurrentTime

	if !q.Advance() {
		return false
	}

	if t := q.Previous().TimeMS; t > s.largestLastTime {
		s.largestLastTime = t
	}

	if wasAtMin {
		s.recomputeSmallestCurrentTime()
	}
	return true
}

// AdvanceOldest advances every agent whose current update's time
// equals SmallestCurrentTime, guaranteeing global progress whenever
// SmallestCurrentTime < duration.
func (s *State) AdvanceOldest() {
	target := s.smallestCurrentTime
	for i, q := range s.agents {
		if q.Current().TimeMS == target {
			s.Advance(uint32(i))
		}
	}
}

// IntersectCommand interpolates agent's position onto the
// intersection window [largestLastTime, smallestCurrentTime].
func (s *State) IntersectCommand(agent uint32) (protocol.Command, error) {
	if s.largestLastTime > s.smallestCurrentTime {
		return protocol.Command{}, protoerr.New(protoerr.NoIntersection)
	}

	q := s.agents[agent]
	cur := q.Current()
	if cur.TimeMS == 0 {
		return protocol.Command{
			AgentID:  agent,
			FromX:    mmToMetres(cur.XMM),
			FromY:    mmToMetres(cur.YMM),
			FromZ:    mmToMetres(cur.ZMM),
			ToX:      mmToMetres(cur.XMM),
			ToY:      mmToMetres(cur.YMM),
			ToZ:      mmToMetres(cur.ZMM),
			Present:  cur.Present,
		}, nil
	}

	prev := q.Previous()
	interp := func(atMS uint32) (x, y, z float64) {
		frac := float64(atMS-prev.TimeMS) / float64(cur.TimeMS-prev.TimeMS)
		x = mmToMetres(prev.XMM) + frac*(mmToMetres(cur.XMM)-mmToMetres(prev.XMM))
		y = mmToMetres(prev.YMM) + frac*(mmToMetres(cur.YMM)-mmToMetres(prev.YMM))
		z = mmToMetres(prev.ZMM) + frac*(mmToMetres(cur.ZMM)-mmToMetres(prev.ZMM))
		return
	}

	fx, fy, fz := interp(s.largestLastTime)
	tx, ty, tz := interp(s.smallestCurrentTime)

	return protocol.Command{
		AgentID:  agent,
		FromX:    fx, FromY: fy, FromZ: fz,
		FromTime: msToSeconds(s.largestLastTime),
		ToX:      tx, ToY: ty, ToZ: tz,
		ToTime:  msToSeconds(s.smallestCurrentTime),
		Present: prev.Present,
	}, nil
}
