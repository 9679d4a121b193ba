// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import "github.com/nishisan-dev/uamp/internal/wire"

// WriteTerminate writes the TERMINATE_SIMULATION command: opcode 0x00
// followed by a 32-bit zero.
func WriteTerminate(buf *wire.Buffer) error {
	buf.BeginWrite(1 + 4)
	if err := buf.Write8(OpTerminate); err != nil {
		return err
	}
	if err := buf.Write32(0); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadTerminateBody consumes the 32-bit zero that follows the
// TERMINATE opcode, assuming the opcode byte has already been read by
// ReadOpcode.
func ReadTerminateBody(buf *wire.Buffer) error {
	buf.BeginRead(4)
	_, err := buf.Read32()
	return err
}
