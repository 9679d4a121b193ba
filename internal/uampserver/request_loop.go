// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package uampserver

import (
	"context"
	"log/slog"

	"github.com/nishisan-dev/uamp/internal/archive"
	"github.com/nishisan-dev/uamp/internal/protocol"
	"github.com/nishisan-dev/uamp/internal/ratelimit"
	"github.com/nishisan-dev/uamp/internal/wire"
	"github.com/nishisan-dev/uamp/internal/workerpool"
)

// runRequestLoop reads opcodes off buf until TERMINATE or a fatal
// error, dispatching LOCATION_REQUEST to mgr and counting the entries
// of CHANGE_STATE batches from the client in metrics and the trace.
func (s *Server) runRequestLoop(ctx context.Context, buf *wire.Buffer, gate *ratelimit.Gate, mgr workerpool.Manager, spec protocol.SimSpec, features protocol.Features, trace *archive.Trace, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		op, err := protocol.ReadOpcode(buf)
		if err != nil {
			logger.Debug("request loop ended", "error", err)
			return
		}

		switch op {
		case protocol.OpLocationRequest:
			if err := s.serveLocationRequest(buf, gate, mgr, features, trace); err != nil {
				logger.Info("serving location request failed", "error", err)
				return
			}
		case protocol.OpChangeState:
			changes, err := protocol.ReadChangeStateBody(buf)
			if err != nil {
				logger.Info("reading change-state frame failed", "error", err)
				return
			}
			s.metrics.StateChangesTotal.Add(float64(len(changes)))
			if trace != nil {
				trace.Record("change-state", len(changes))
			}
		case protocol.OpTerminate:
			if err := protocol.ReadTerminateBody(buf); err != nil {
				logger.Info("reading terminate body failed", "error", err)
			}
			if trace != nil {
				trace.Record("terminate", nil)
			}
			return
		default:
			logger.Info("unknown opcode in request loop, closing connection", "opcode", op)
			return
		}
	}
}

func (s *Server) serveLocationRequest(buf *wire.Buffer, gate *ratelimit.Gate, mgr workerpool.Manager, features protocol.Features, trace *archive.Trace) error {
	ids, err := protocol.ReadLocationRequestBody(buf)
	if err != nil {
		return err
	}

	updates, err := mgr.RequestUpdates(ids)
	if err != nil {
		return err
	}

	s.metrics.LocationRequestsTotal.Inc()
	s.metrics.RepliesTotal.Add(float64(len(updates)))
	if trace != nil {
		trace.Record("location-request", len(ids))
	}

	gate.SetGated(true)
	defer gate.SetGated(false)
	return protocol.WriteUpdates(buf, updates, features)
}
