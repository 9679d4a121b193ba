// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package uampserver

import (
	"context"
	"log/slog"
	"net"

	"github.com/rs/xid"

	"github.com/nishisan-dev/uamp/internal/archive"
	"github.com/nishisan-dev/uamp/internal/diagnostics"
	"github.com/nishisan-dev/uamp/internal/protocol"
	"github.com/nishisan-dev/uamp/internal/ratelimit"
	"github.com/nishisan-dev/uamp/internal/simulation"
	"github.com/nishisan-dev/uamp/internal/wire"
	"github.com/nishisan-dev/uamp/internal/workerpool"
)

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, workers int) {
	sessionID := xid.New().String()
	logger := s.logger.With("session", sessionID, "remote", conn.RemoteAddr().String())

	s.metrics.ActiveConnections.Inc()
	defer s.metrics.ActiveConnections.Dec()

	gate := ratelimit.NewGate(ctx, conn, int64(s.cfg.ReplyRateBytesPerSec))
	defer gate.Close()

	var trace *archive.Trace
	if s.cfg.Archive.Enabled {
		var err error
		trace, err = archive.NewTrace(s.cfg.Archive.Directory, sessionID)
		if err != nil {
			logger.Warn("archive trace disabled for this connection", "error", err)
			trace = nil
		}
	}

	if snap, err := diagnostics.Sample(conn); err == nil && snap != nil {
		logger.Debug("tcp diagnostics at open", "rtt_us", snap.RTTMicros, "state", snap.State)
	}

	buf := wire.New(gate)

	tag := protocol.TagUAMP
	if s.cfg.Protocol == "mvisp" {
		tag = protocol.TagMVISP
	}

	negotiated, err := protocol.NegotiateServer(buf, tag, protocol.Features{ThreeD: true, AppearDisappear: true})
	if err != nil {
		logger.Info("handshake failed", "error", err)
		if trace != nil {
			trace.Record("handshake-failed", err.Error())
			s.finishTrace(trace, sessionID, logger)
		}
		return
	}
	logger.Debug("handshake negotiated", "three_d", negotiated.ThreeD, "appear_disappear", negotiated.AppearDisappear)

	spec, states, ok := s.exchangeSpec(buf, tag, logger)
	if !ok {
		if trace != nil {
			s.finishTrace(trace, sessionID, logger)
		}
		return
	}
	spec.States = states

	sim := simulation.NewRandomWalk(spec.NumAgents, spec.TimeLimitMS, s.cfg.Simulation.StepMS, s.cfg.Simulation.BoundMM, spec.Seed, negotiated)
	mgr := workerpool.New(workers, spec.NumAgents, sim)
	defer mgr.Close()

	s.runRequestLoop(ctx, buf, gate, mgr, spec, negotiated, trace, logger)

	if trace != nil {
		s.finishTrace(trace, sessionID, logger)
	}
}

// exchangeSpec runs the UAMP or MVISP simulation-spec phase and
// reports whether the connection should proceed to the request loop.
func (s *Server) exchangeSpec(buf *wire.Buffer, tag protocol.Tag, logger *slog.Logger) (protocol.SimSpec, []string, bool) {
	if tag == protocol.TagUAMP {
		spec, err := protocol.ReadUAMPSpecRequest(buf)
		if err != nil {
			logger.Info("reading UAMP spec request failed", "error", err)
			return protocol.SimSpec{}, nil, false
		}
		if valErr := protocol.ValidateUAMPSpec(spec); valErr != nil {
			logger.Info("UAMP spec rejected", "error", valErr)
			_ = protocol.WriteUAMPSpecReply(buf, false)
			return protocol.SimSpec{}, nil, false
		}
		if spec.NumAgents > s.cfg.MaxAgents && s.cfg.MaxAgents > 0 {
			logger.Info("UAMP spec rejected: exceeds configured max_agents", "requested", spec.NumAgents)
			_ = protocol.WriteUAMPSpecReply(buf, false)
			return protocol.SimSpec{}, nil, false
		}
		if err := protocol.WriteUAMPSpecReply(buf, true); err != nil {
			logger.Info("writing UAMP spec reply failed", "error", err)
			return protocol.SimSpec{}, nil, false
		}
		return spec, nil, true
	}

	offer := protocol.SimSpec{NumAgents: s.cfg.Simulation.NumAgents, TimeLimitMS: s.cfg.Simulation.DurationOrDefault()}
	if err := protocol.WriteMVISPSpecOffer(buf, offer); err != nil {
		logger.Info("writing MVISP spec offer failed", "error", err)
		return protocol.SimSpec{}, nil, false
	}
	accepted, states, err := protocol.ReadMVISPSpecReply(buf)
	if err != nil {
		logger.Info("reading MVISP spec reply failed", "error", err)
		return protocol.SimSpec{}, nil, false
	}
	if !accepted {
		logger.Info("client declined MVISP simulation")
		return protocol.SimSpec{}, nil, false
	}
	return offer, states, true
}

func (s *Server) finishTrace(trace *archive.Trace, sessionID string, logger *slog.Logger) {
	path, err := trace.Close()
	if err != nil {
		logger.Warn("closing session trace", "error", err)
		return
	}
	if s.uploader != nil {
		if err := s.uploader.Upload(context.Background(), path); err != nil {
			logger.Warn("uploading session trace", "error", err, "path", path)
		}
	}
}
