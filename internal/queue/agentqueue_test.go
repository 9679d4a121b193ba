// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package queue

import (
	"testing"

	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
)

func TestFirstUpdateMustBeTimeZero(t *testing.T) {
	q := New(6, 2000)
	err := q.Receive(protocol.Update{TimeMS: 10, Present: true})
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.FirstUpdateTime {
		t.Fatalf("kind = %v, want FirstUpdateTime", k)
	}
}

func TestFirstFillDemandIsQueueSizePlusOne(t *testing.T) {
	q := New(6, 2000)
	if got := q.Demand(); got != 7 {
		t.Fatalf("Demand() before any receive = %d, want 7", got)
	}
	if err := q.Receive(protocol.Update{TimeMS: 0, Present: true}); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got := q.Demand(); got != 5 {
		t.Fatalf("Demand() after first receive (steady state) = %d, want 5 (size - aliveInQueue=1)", got)
	}
}

func TestScenario1TwoAgentDurationTwoSeconds(t *testing.T) {
	q := New(6, 2000)
	must(t, q.Receive(protocol.Update{TimeMS: 0, XMM: 0, YMM: 0, Present: true}))

	cmd0 := q.Current()
	if cmd0.TimeMS != 0 {
		t.Fatalf("initial current.TimeMS = %d, want 0", cmd0.TimeMS)
	}
	prev0 := q.Previous()
	if prev0 != cmd0 {
		t.Fatalf("before any advance, previous must equal current")
	}

	must(t, q.Receive(protocol.Update{TimeMS: 500, XMM: 10, YMM: 10, Present: true}))
	if !q.Advance() {
		t.Fatal("expected Advance to succeed with a buffered update available")
	}
	if q.Current().TimeMS != 500 {
		t.Fatalf("current.TimeMS after advance = %d, want 500", q.Current().TimeMS)
	}

	must(t, q.Receive(protocol.Update{TimeMS: 1200, XMM: 20, YMM: 20, Present: true}))
	must(t, q.Receive(protocol.Update{TimeMS: 2000, XMM: 30, YMM: 30, Present: true}))
	if !q.ReceivedFinal() {
		t.Fatal("expected receivedFinal once time = duration arrives")
	}

	final := protocol.Update{TimeMS: 2000, XMM: 30, YMM: 30, Present: true}
	for i := 0; i < 3; i++ {
		if err := q.Receive(final); err != nil {
			t.Fatalf("duplicate terminal %d: %v", i, err)
		}
	}
}

func TestTerminalIdempotencyRejectsNonEqual(t *testing.T) {
	q := New(2, 1000)
	must(t, q.Receive(protocol.Update{TimeMS: 0, Present: true}))
	must(t, q.Receive(protocol.Update{TimeMS: 1000, XMM: 5, Present: true}))
	if !q.ReceivedFinal() {
		t.Fatal("expected receivedFinal")
	}
	err := q.Receive(protocol.Update{TimeMS: 1000, XMM: 6, Present: true})
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.NonEqualFinalUpdates {
		t.Fatalf("kind = %v, want NonEqualFinalUpdates", k)
	}
}

func TestTimestampNotIncrementedRejected(t *testing.T) {
	q := New(2, 1000)
	must(t, q.Receive(protocol.Update{TimeMS: 0, Present: true}))
	must(t, q.Receive(protocol.Update{TimeMS: 100, Present: true}))
	err := q.Receive(protocol.Update{TimeMS: 100, Present: true})
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.TimestampNotIncremented {
		t.Fatalf("kind = %v, want TimestampNotIncremented", k)
	}
}

func TestTimestampTooLargeRejected(t *testing.T) {
	q := New(2, 1000)
	must(t, q.Receive(protocol.Update{TimeMS: 0, Present: true}))
	err := q.Receive(protocol.Update{TimeMS: 1001, Present: true})
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.TimestampTooLarge {
		t.Fatalf("kind = %v, want TimestampTooLarge", k)
	}
}

func TestReceivedFinalAtDurationZero(t *testing.T) {
	// Open question resolution: receivedFinal is set immediately when
	// the sole update at time = duration = 0 arrives.
	q := New(2, 0)
	must(t, q.Receive(protocol.Update{TimeMS: 0, Present: true}))
	if !q.ReceivedFinal() {
		t.Fatal("expected receivedFinal to be set immediately for a zero-duration stream")
	}
	if q.Demand() != 0 {
		t.Fatalf("Demand() after receivedFinal = %d, want 0", q.Demand())
	}
}

func TestAdvanceFailsWithoutBufferedUpdate(t *testing.T) {
	q := New(2, 1000)
	must(t, q.Receive(protocol.Update{TimeMS: 0, Present: true}))
	if q.Advance() {
		t.Fatal("Advance should fail with nothing buffered ahead of current")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
