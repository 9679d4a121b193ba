// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/wire"
)

// WriteUAMPSpecRequest writes the client's proposed simulation spec:
// numAgents, timeLimit_ms, seed.
func WriteUAMPSpecRequest(buf *wire.Buffer, spec SimSpec) error {
	buf.BeginWrite(12)
	if err := buf.Write32(spec.NumAgents); err != nil {
		return err
	}
	if err := buf.Write32(spec.TimeLimitMS); err != nil {
		return err
	}
	if err := buf.Write32(spec.Seed); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadUAMPSpecRequest reads the client's proposed simulation spec.
func ReadUAMPSpecRequest(buf *wire.Buffer) (SimSpec, error) {
	buf.BeginRead(12)
	numAgents, err := buf.Read32()
	if err != nil {
		return SimSpec{}, err
	}
	timeLimit, err := buf.Read32()
	if err != nil {
		return SimSpec{}, err
	}
	seed, err := buf.Read32()
	if err != nil {
		return SimSpec{}, err
	}
	return SimSpec{NumAgents: numAgents, TimeLimitMS: timeLimit, Seed: seed}, nil
}

// ValidateUAMPSpec enforces 1 <= numAgents <= MaxAgents. timeLimit_ms
// is a U32 and therefore always within [0, 2^32-1], so it is not
// checked here.
func ValidateUAMPSpec(spec SimSpec) error {
	if spec.NumAgents < 1 || spec.NumAgents > MaxAgents {
		return protoerr.New(protoerr.InvalidNumAgents)
	}
	return nil
}

// WriteUAMPSpecReply writes the server's one-byte accept/reject
// decision.
func WriteUAMPSpecReply(buf *wire.Buffer, accept bool) error {
	buf.BeginWrite(1)
	v := SpecReject
	if accept {
		v = SpecAccept
	}
	if err := buf.Write8(v); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadUAMPSpecReply reads the server's accept/reject byte. Any byte
// other than SpecAccept/SpecReject is a protocol error.
func ReadUAMPSpecReply(buf *wire.Buffer) (bool, error) {
	buf.BeginRead(1)
	v, err := buf.Read8()
	if err != nil {
		return false, err
	}
	switch v {
	case SpecAccept:
		return true, nil
	case SpecReject:
		return false, nil
	default:
		return false, protoerr.New(protoerr.SimulationResponseBad)
	}
}

// WriteMVISPSpecOffer writes the server's published simulation:
// numAgents, timeLimit_ms.
func WriteMVISPSpecOffer(buf *wire.Buffer, spec SimSpec) error {
	buf.BeginWrite(8)
	if err := buf.Write32(spec.NumAgents); err != nil {
		return err
	}
	if err := buf.Write32(spec.TimeLimitMS); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadMVISPSpecOffer reads the server's published simulation spec. A
// zero numAgents is not itself a framing error: callers must check for
// it per the MVISP-no-agents scenario before proceeding.
func ReadMVISPSpecOffer(buf *wire.Buffer) (SimSpec, error) {
	buf.BeginRead(8)
	numAgents, err := buf.Read32()
	if err != nil {
		return SimSpec{}, err
	}
	timeLimit, err := buf.Read32()
	if err != nil {
		return SimSpec{}, err
	}
	return SimSpec{NumAgents: numAgents, TimeLimitMS: timeLimit}, nil
}

// ValidateStateNames enforces the MVISP state-table invariants:
// non-empty, <= MaxStateNameLength bytes, and pairwise distinct.
func ValidateStateNames(states []string) error {
	seen := make(map[string]struct{}, len(states))
	for _, s := range states {
		if len(s) == 0 {
			return protoerr.New(protoerr.ZeroStateLength)
		}
		if len(s) > MaxStateNameLength {
			return protoerr.New(protoerr.StateLengthLong)
		}
		if _, ok := seen[s]; ok {
			return protoerr.New(protoerr.DuplicateState)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// WriteMVISPSpecAccept writes the client's acceptance: numStates,
// then each state's length, then the concatenated ASCII name bytes.
func WriteMVISPSpecAccept(buf *wire.Buffer, states []string) error {
	if err := ValidateStateNames(states); err != nil {
		return err
	}

	total := 4
	for _, s := range states {
		total += 4 + len(s)
	}
	buf.BeginWrite(total)

	if err := buf.Write32(uint32(len(states))); err != nil {
		return err
	}
	for _, s := range states {
		if err := buf.Write32(uint32(len(s))); err != nil {
			return err
		}
	}
	for _, s := range states {
		if err := buf.WriteRaw([]byte(s)); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// WriteMVISPSpecReject writes the client's denial: a single zero U32.
func WriteMVISPSpecReject(buf *wire.Buffer) error {
	buf.BeginWrite(4)
	if err := buf.Write32(0); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadMVISPSpecReply reads the client's acceptance/denial. numStates =
// 0 is a denial: accepted is false and states is nil.
func ReadMVISPSpecReply(buf *wire.Buffer) (accepted bool, states []string, err error) {
	buf.BeginRead(4)
	numStates, err := buf.Read32()
	if err != nil {
		return false, nil, err
	}
	if numStates == 0 {
		return false, nil, nil
	}
	if numStates > MaxStates {
		return false, nil, protoerr.New(protoerr.InvalidNumStates)
	}

	buf.BeginRead(4 * int(numStates))
	lengths := make([]uint32, numStates)
	for i := range lengths {
		l, err := buf.Read32()
		if err != nil {
			return false, nil, err
		}
		lengths[i] = l
	}

	total := 0
	for _, l := range lengths {
		total += int(l)
	}
	buf.BeginRead(total)
	states = make([]string, numStates)
	for i, l := range lengths {
		raw, err := buf.ReadRaw(int(l))
		if err != nil {
			return false, nil, err
		}
		states[i] = string(raw)
	}

	if err := ValidateStateNames(states); err != nil {
		return false, nil, err
	}
	return true, states, nil
}
