// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package protoerr implements the closed set of protocol error kinds
// shared by both the UAMP/MVISP client and server roles. Every kind has
// a stable, hyphenated string representation suitable for
// logging and for the client-facing Error() text.
package protoerr

import (
	"errors"
	"fmt"
)

// Kind identifies one member of the closed protocol error taxonomy.
// The set is intentionally exhaustive and closed: new error conditions
// are a spec change, not a call site's choice of string.
type Kind int

const (
	InvalidPort Kind = iota
	HostnameResolution
	SocketCreate
	SocketConnect
	SocketDry
	SocketRead
	SocketWrite
	OutOfMemory
	InvalidNumStates
	ZeroStateLength
	StateLengthLong
	DuplicateState
	InvalidNumAgents
	InvalidTimeLimit
	UAMPClientMVISPServer
	MVISPClientUAMPServer
	ServerUnknownHandshake
	NoSharedVersion
	ThreeDClientMismatch
	AddRemoveUnsupported
	InvalidFeatures
	ServerRejectedHandshake
	ServerClientVersionDisagree
	SimulationDenied
	SimulationResponseBad
	MVISPNoAgents
	NoMoreData
	NoIntersection
	InvalidChangeTime
	InvalidChangeState
	FirstUpdateTime
	NonEqualFinalUpdates
	TimestampTooLarge
	TimestampNotIncremented
	InvalidPresentFlag
)

var kindNames = map[Kind]string{
	InvalidPort:                 "invalid-port",
	HostnameResolution:          "hostname-resolution",
	SocketCreate:                "socket-create",
	SocketConnect:               "socket-connect",
	SocketDry:                   "socket-dry",
	SocketRead:                  "socket-read",
	SocketWrite:                 "socket-write",
	OutOfMemory:                 "out-of-memory",
	InvalidNumStates:            "invalid-num-states",
	ZeroStateLength:             "zero-state-length",
	StateLengthLong:             "state-length-long",
	DuplicateState:              "duplicate-state",
	InvalidNumAgents:            "invalid-num-agents",
	InvalidTimeLimit:            "invalid-time-limit",
	UAMPClientMVISPServer:       "UAMP-client-MVISP-server",
	MVISPClientUAMPServer:       "MVISP-client-UAMP-server",
	ServerUnknownHandshake:      "server-unknown-handshake",
	NoSharedVersion:             "no-shared-version",
	ThreeDClientMismatch:        "3D-client-mismatch",
	AddRemoveUnsupported:        "add-remove-unsupported",
	InvalidFeatures:             "invalid-features",
	ServerRejectedHandshake:     "server-rejected-handshake",
	ServerClientVersionDisagree: "server-client-version-disagree",
	SimulationDenied:            "simulation-denied",
	SimulationResponseBad:       "simulation-response-bad",
	MVISPNoAgents:               "MVISP-no-agents",
	NoMoreData:                  "no-more-data",
	NoIntersection:              "no-intersection",
	InvalidChangeTime:           "invalid-change-time",
	InvalidChangeState:          "invalid-change-state",
	FirstUpdateTime:             "first-update-time",
	NonEqualFinalUpdates:        "non-equal-final-updates",
	TimestampTooLarge:           "timestamp-too-large",
	TimestampNotIncremented:     "timestamp-not-incremented",
	InvalidPresentFlag:          "invalid-present-flag",
}

// String returns the stable hyphenated name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown-kind(%d)", int(k))
}

// Error is a fatal protocol or network condition tagged with its Kind.
// All such errors are, per the protocol's error handling design,
// connection-fatal: the caller closes the connection after this error
// is returned, emitting a rejection signal appropriate to the current
// phase when the wire still permits one.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no wrapped cause.
func New(k Kind) *Error {
	return &Error{Kind: k}
}

// Wrap tags an underlying error (typically from the transport) with a
// protocol Kind.
func Wrap(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

// Is reports whether err is a protoerr.Error of kind k, unwrapping as
// needed. It lets call sites use errors.Is(err, protoerr.New(protoerr.NoMoreData))-style
// checks, but a plain KindOf is usually more direct.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) a protoerr.Error.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if !errors.As(err, &pe) {
		return 0, false
	}
	return pe.Kind, true
}
