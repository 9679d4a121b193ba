// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package diagnostics pulls kernel-level TCP connection stats for
// logging and troubleshooting: round-trip time and congestion window.
// The server samples each connection once, when it is opened.
package diagnostics

import (
	"net"

	"github.com/simeonmiteff/go-tcpinfo/pkg/tcpinfo"
)

// Supported reports whether the running platform exposes tcp_info.
func Supported() bool {
	return tcpinfo.Supported()
}

// Snapshot is the subset of tcp_info fields worth logging per
// connection; the rest of Info is platform-specific noise.
type Snapshot struct {
	State        string
	RTTMicros    uint64
	RTTVarMicros uint64
	SendCwnd     uint64
}

// Sample reads tcp_info for conn via its raw file descriptor. It
// returns (nil, nil) on non-TCP connections or unsupported platforms
// rather than an error, since diagnostics are best-effort and must
// never fail a request in progress.
func Sample(conn net.Conn) (*Snapshot, error) {
	if !tcpinfo.Supported() {
		return nil, nil
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, nil
	}
	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return nil, err
	}

	var sysInfo *tcpinfo.SysInfo
	var infoErr error
	if ctrlErr := rawConn.Control(func(fd uintptr) {
		sysInfo, infoErr = tcpinfo.GetTCPInfo(fd)
	}); ctrlErr != nil {
		return nil, ctrlErr
	}
	if infoErr != nil {
		return nil, infoErr
	}
	if sysInfo == nil {
		return nil, nil
	}

	info := sysInfo.ToInfo()
	snap := &Snapshot{
		State:        info.State,
		RTTMicros:    uint64(info.RTT.Microseconds()),
		RTTVarMicros: uint64(info.RTTVar.Microseconds()),
		SendCwnd:     info.SenderWindowBytes,
	}
	if snap.SendCwnd == 0 {
		snap.SendCwnd = info.SenderWindowSegs
	}
	return snap, nil
}
