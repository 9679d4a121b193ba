// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/wire"
)

func TestUAMPSpecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	b := wire.New(&buf)

	req := SimSpec{NumAgents: 2, TimeLimitMS: 2000, Seed: 1}
	if err := WriteUAMPSpecRequest(b, req); err != nil {
		t.Fatalf("WriteUAMPSpecRequest: %v", err)
	}
	got, err := ReadUAMPSpecRequest(b)
	if err != nil || !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, %v; want %+v", got, err, req)
	}
	if err := ValidateUAMPSpec(got); err != nil {
		t.Fatalf("ValidateUAMPSpec: %v", err)
	}
}

func TestUAMPSpecInvalidNumAgents(t *testing.T) {
	if err := ValidateUAMPSpec(SimSpec{NumAgents: 0}); err == nil {
		t.Fatal("expected error for numAgents = 0")
	} else if k, _ := protoerr.KindOf(err); k != protoerr.InvalidNumAgents {
		t.Fatalf("kind = %v, want InvalidNumAgents", k)
	}
	if err := ValidateUAMPSpec(SimSpec{NumAgents: MaxAgents + 1}); err == nil {
		t.Fatal("expected error for numAgents beyond MaxAgents")
	}
}

func TestMVISPAcceptRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	b := wire.New(&buf)

	states := []string{"idle", "busy"}
	if err := WriteMVISPSpecAccept(b, states); err != nil {
		t.Fatalf("WriteMVISPSpecAccept: %v", err)
	}
	accepted, got, err := ReadMVISPSpecReply(b)
	if err != nil {
		t.Fatalf("ReadMVISPSpecReply: %v", err)
	}
	if !accepted {
		t.Fatal("expected acceptance")
	}
	if len(got) != 2 || got[0] != "idle" || got[1] != "busy" {
		t.Fatalf("got %v, want %v", got, states)
	}
}

func TestMVISPRejectRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	b := wire.New(&buf)

	if err := WriteMVISPSpecReject(b); err != nil {
		t.Fatalf("WriteMVISPSpecReject: %v", err)
	}
	accepted, states, err := ReadMVISPSpecReply(b)
	if err != nil {
		t.Fatalf("ReadMVISPSpecReply: %v", err)
	}
	if accepted || states != nil {
		t.Fatalf("expected denial, got accepted=%v states=%v", accepted, states)
	}
}

func TestValidateStateNamesRejectsDuplicates(t *testing.T) {
	err := ValidateStateNames([]string{"idle", "idle"})
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.DuplicateState {
		t.Fatalf("kind = %v, want DuplicateState", k)
	}
}

func TestValidateStateNamesRejectsEmpty(t *testing.T) {
	err := ValidateStateNames([]string{""})
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.ZeroStateLength {
		t.Fatalf("kind = %v, want ZeroStateLength", k)
	}
}

func TestValidateStateNamesRejectsTooLong(t *testing.T) {
	long := make([]byte, MaxStateNameLength+1)
	err := ValidateStateNames([]string{string(long)})
	if k, ok := protoerr.KindOf(err); !ok || k != protoerr.StateLengthLong {
		t.Fatalf("kind = %v, want StateLengthLong", k)
	}
}

func TestMVISPSpecOfferRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	b := wire.New(&buf)

	offer := SimSpec{NumAgents: 3, TimeLimitMS: 10000}
	if err := WriteMVISPSpecOffer(b, offer); err != nil {
		t.Fatalf("WriteMVISPSpecOffer: %v", err)
	}
	got, err := ReadMVISPSpecOffer(b)
	if err != nil || !reflect.DeepEqual(got, offer) {
		t.Fatalf("got %+v, %v; want %+v", got, err, offer)
	}
}

func TestMVISPNoAgentsIsNotAFramingError(t *testing.T) {
	var buf bytes.Buffer
	b := wire.New(&buf)

	if err := WriteMVISPSpecOffer(b, SimSpec{NumAgents: 0, TimeLimitMS: 5000}); err != nil {
		t.Fatalf("WriteMVISPSpecOffer: %v", err)
	}
	got, err := ReadMVISPSpecOffer(b)
	if err != nil {
		t.Fatalf("ReadMVISPSpecOffer should not itself error on zero agents: %v", err)
	}
	if got.NumAgents != 0 {
		t.Fatalf("NumAgents = %d, want 0", got.NumAgents)
	}
	// The MVISP-no-agents check is the caller's responsibility, exercised
	// at the uampclient orchestration layer.
}
