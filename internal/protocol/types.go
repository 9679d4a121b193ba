// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

// Features is the negotiated feature bitmap surviving the handshake,
// decoded into named booleans for convenient use by the rest of the
// core.
type Features struct {
	ThreeD          bool
	AppearDisappear bool
}

// FromBitmap decodes a raw feature bitmap into Features.
func FromBitmap(bitmap uint32) Features {
	return Features{
		ThreeD:          bitmap&Feature3D != 0,
		AppearDisappear: bitmap&FeatureAppearDisappear != 0,
	}
}

// Bitmap re-encodes Features into the wire bitmap.
func (f Features) Bitmap() uint32 {
	var v uint32
	if f.ThreeD {
		v |= Feature3D
	}
	if f.AppearDisappear {
		v |= FeatureAppearDisappear
	}
	return v
}

// Handshake is one side's 9-byte handshake payload.
type Handshake struct {
	Tag           Tag
	VersionBitmap byte
	FeatureBitmap uint32
}

// Update is one discrete observation of an agent, in wire units
// (milliseconds, millimetres).
type Update struct {
	TimeMS  uint32
	XMM     uint32
	YMM     uint32
	ZMM     uint32
	Present bool
}

// Equal reports whether two updates are byte-identical in all five
// fields, the comparison required by the terminal-idempotency
// invariant.
func (u Update) Equal(o Update) bool {
	return u.TimeMS == o.TimeMS && u.XMM == o.XMM && u.YMM == o.YMM && u.ZMM == o.ZMM && u.Present == o.Present
}

// Command is the client-facing derived interval view spanning two
// successive updates of one agent, in SI units (seconds, metres).
type Command struct {
	AgentID  uint32
	FromX, FromY, FromZ float64
	FromTime            float64
	ToX, ToY, ToZ       float64
	ToTime              float64
	Present             bool
}

// StateChange is one buffered MVISP client-to-server message.
type StateChange struct {
	AgentID  uint32
	TimeMS   uint32
	NewState uint32
}

// SimSpec is the negotiated simulation specification: UAMP's
// client-proposed (numAgents, timeLimit, seed), or MVISP's
// server-published (numAgents, timeLimit) plus the client's accepted
// state table.
type SimSpec struct {
	NumAgents   uint32
	TimeLimitMS uint32
	Seed        uint32   // UAMP only
	States      []string // MVISP only, populated on accept
}
