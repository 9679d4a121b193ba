// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package clientview

import (
	"testing"

	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
)

func receiveInitial(t *testing.T, s *State) {
	t.Helper()
	for i := 0; i < s.NumAgents(); i++ {
		if err := s.Queue(uint32(i)).Receive(protocol.Update{TimeMS: 0, Present: true}); err != nil {
			t.Fatalf("initial receive agent %d: %v", i, err)
		}
	}
	s.Init()
}

func TestWatermarksAfterInit(t *testing.T) {
	s := New(2, 6, 2000, protocol.Features{})
	receiveInitial(t, s)

	if s.SmallestCurrentTime() != 0 || s.LargestLastTime() != 0 {
		t.Fatalf("watermarks after init = (%d, %d), want (0, 0)", s.LargestLastTime(), s.SmallestCurrentTime())
	}
}

func TestSmallestCurrentTimeIsGlobalMinimum(t *testing.T) {
	s := New(2, 6, 2000, protocol.Features{})
	receiveInitial(t, s)

	must(t, s.Queue(0).Receive(protocol.Update{TimeMS: 500, Present: true}))
	must(t, s.Queue(1).Receive(protocol.Update{TimeMS: 300, Present: true}))
	s.Advance(0)
	s.Advance(1)

	if s.SmallestCurrentTime() != 300 {
		t.Fatalf("SmallestCurrentTime() = %d, want 300", s.SmallestCurrentTime())
	}
}

func TestIntersectCommandConsistency(t *testing.T) {
	s := New(2, 6, 2000, protocol.Features{})
	receiveInitial(t, s)

	must(t, s.Queue(0).Receive(protocol.Update{TimeMS: 500, XMM: 1000, Present: true}))
	must(t, s.Queue(1).Receive(protocol.Update{TimeMS: 300, XMM: 2000, Present: true}))
	s.Advance(0)
	s.Advance(1)

	for agent := uint32(0); agent < 2; agent++ {
		cmd, err := s.IntersectCommand(agent)
		if err != nil {
			t.Fatalf("IntersectCommand(%d): %v", agent, err)
		}
		if cmd.FromTime != float64(s.LargestLastTime())/1000 {
			t.Errorf("agent %d FromTime = %v, want %v", agent, cmd.FromTime, float64(s.LargestLastTime())/1000)
		}
		if cmd.ToTime != float64(s.SmallestCurrentTime())/1000 {
			t.Errorf("agent %d ToTime = %v, want %v", agent, cmd.ToTime, float64(s.SmallestCurrentTime())/1000)
		}
	}
}

func TestIntersectCommandNoIntersection(t *testing.T) {
	s := New(1, 6, 2000, protocol.Features{})
	receiveInitial(t, s)
	// Force an inconsistent state to exercise the guard directly.
	s.largestLastTime = 1000
	s.smallestCurrentTime = 500

	_, err := s.IntersectCommand(0)
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.NoIntersection {
		t.Fatalf("kind = %v, want NoIntersection", k)
	}
}

func TestAdvanceOldestMakesProgress(t *testing.T) {
	s := New(2, 6, 2000, protocol.Features{})
	receiveInitial(t, s)

	must(t, s.Queue(0).Receive(protocol.Update{TimeMS: 500, Present: true}))
	must(t, s.Queue(1).Receive(protocol.Update{TimeMS: 500, Present: true}))

	before := s.SmallestCurrentTime()
	s.AdvanceOldest()
	if s.SmallestCurrentTime() <= before {
		t.Fatalf("AdvanceOldest did not make progress: before=%d after=%d", before, s.SmallestCurrentTime())
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
