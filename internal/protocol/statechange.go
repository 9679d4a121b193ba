// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import "github.com/nishisan-dev/uamp/internal/wire"

// WriteChangeStateFrame writes a CHANGE_STATE frame: opcode, count,
// then count repetitions of (agentID, time, newState). Callers must
// not call this with an empty slice — flushing an empty buffer is a
// no-op that sends nothing, per the state-change pipeline's contract.
func WriteChangeStateFrame(buf *wire.Buffer, changes []StateChange) error {
	buf.BeginWrite(1 + 4 + 12*len(changes))
	if err := buf.Write8(OpChangeState); err != nil {
		return err
	}
	if err := buf.Write32(uint32(len(changes))); err != nil {
		return err
	}
	for _, c := range changes {
		if err := buf.Write32(c.AgentID); err != nil {
			return err
		}
		if err := buf.Write32(c.TimeMS); err != nil {
			return err
		}
		if err := buf.Write32(c.NewState); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// ReadChangeStateBody reads the count and entries of a CHANGE_STATE
// frame, assuming the opcode byte has already been consumed by
// ReadOpcode.
func ReadChangeStateBody(buf *wire.Buffer) ([]StateChange, error) {
	buf.BeginRead(4)
	count, err := buf.Read32()
	if err != nil {
		return nil, err
	}

	buf.BeginRead(12 * int(count))
	changes := make([]StateChange, count)
	for i := range changes {
		agentID, err := buf.Read32()
		if err != nil {
			return nil, err
		}
		t, err := buf.Read32()
		if err != nil {
			return nil, err
		}
		state, err := buf.Read32()
		if err != nil {
			return nil, err
		}
		changes[i] = StateChange{AgentID: agentID, TimeMS: t, NewState: state}
	}
	return changes, nil
}
