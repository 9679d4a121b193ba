// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package ratelimit

import (
	"context"
	"net"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Gate wraps a net.Conn so that only the bytes written while
// "gated" consume rate-limiter tokens. Handshake, spec-exchange and
// termination bytes flow through at full speed; a server toggles the
// gate on only around LOCATION_REQUEST reply writes.
type Gate struct {
	net.Conn
	ctx     context.Context
	limiter *rate.Limiter // nil when throttling is disabled entirely
	gated   atomic.Bool
}

// NewGate returns a Gate with throttling disabled when bytesPerSec <=
// 0 (Write always passes straight through in that case).
func NewGate(ctx context.Context, conn net.Conn, bytesPerSec int64) *Gate {
	g := &Gate{Conn: conn, ctx: ctx}
	if bytesPerSec > 0 {
		burst := int(bytesPerSec)
		if burst > maxBurstSize {
			burst = maxBurstSize
		}
		g.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
	}
	return g
}

// SetGated enables or disables throttling for subsequent writes.
func (g *Gate) SetGated(on bool) {
	g.gated.Store(on)
}

func (g *Gate) Write(p []byte) (int, error) {
	if g.limiter == nil || !g.gated.Load() {
		return g.Conn.Write(p)
	}

	totalWritten := 0
	for len(p) > 0 {
		chunk := len(p)
		if chunk > g.limiter.Burst() {
			chunk = g.limiter.Burst()
		}
		if err := g.limiter.WaitN(g.ctx, chunk); err != nil {
			return totalWritten, err
		}
		n, err := g.Conn.Write(p[:chunk])
		totalWritten += n
		if err != nil {
			return totalWritten, err
		}
		p = p[n:]
	}
	return totalWritten, nil
}
