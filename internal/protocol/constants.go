// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package protocol implements the UAMP/MVISP wire format: the
// handshake, simulation-spec exchange, location request/reply framing,
// state-change framing and termination, all built on top of the
// internal/wire framing buffer.
package protocol

// VersionBit is the only defined protocol version: bit 7 of the
// version bitmap byte exchanged during the handshake.
const VersionBit byte = 0x80

// Feature bits, set in the 32-bit feature bitmap of the handshake.
const (
	Feature3D             uint32 = 0x80000000
	FeatureAppearDisappear uint32 = 0x40000000
)

// Tag is the 4-byte ASCII protocol family identifier sent at the start
// of the handshake.
type Tag [4]byte

var (
	TagUAMP  = Tag{'U', 'A', 'M', 'P'}
	TagMVISP = Tag{'M', 'V', 'I', 'S'}
)

func (t Tag) String() string { return string(t[:]) }

// Opcodes for the request-loop phase.
const (
	OpLocationRequest byte = 0x01
	OpChangeState     byte = 0x02
	OpTerminate       byte = 0x00
)

// VersionChoiceReject is sent in place of a version bitmap to reject
// the handshake outright.
const VersionChoiceReject byte = 0x00

// SpecAccept/SpecReject are the UAMP server's one-byte reply to the
// client's simulation-spec proposal.
const (
	SpecAccept byte = 0x00
	SpecReject byte = 0x01
)

// MaxAgents is the reference cap on the UAMP numAgents field.
const MaxAgents = 1_000_000

// MaxStateNameLength is the reference cap on one MVISP state name.
const MaxStateNameLength = 1024

// StateChangeBufferSize is the reference capacity of the client's
// MVISP state-change buffer before it auto-flushes.
const StateChangeBufferSize = 128

// MaxStates bounds the MVISP state table's numStates field; chosen
// generously since the spec leaves the practical limit unstated but
// the error taxonomy's invalid-num-states kind implies one exists.
const MaxStates = 65536

// QueueSize is the reference per-agent queue depth (the spec requires
// >= 2; the reference implementation, and the default here, is 6).
const QueueSize = 6
