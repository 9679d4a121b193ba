// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package integration exercises the UAMP/MVISP core end to end, over
// a real TCP loopback connection between internal/uampserver and
// internal/uampclient, matching the literal scenarios described by the
// specification's testable-properties section.
package integration

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/nishisan-dev/uamp/internal/config"
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
	"github.com/nishisan-dev/uamp/internal/uampclient"
	"github.com/nishisan-dev/uamp/internal/uampserver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, cfg *config.ServerConfig) (addr string, shutdown func()) {
	t.Helper()
	cfg.Listen = "127.0.0.1:0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config.Validate: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := uampserver.New(ctx, cfg, discardLogger())
	if err != nil {
		cancel()
		t.Fatalf("uampserver.New: %v", err)
	}
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		cancel()
		t.Fatalf("net.Listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx, ln)
	}()

	return ln.Addr().String(), func() {
		cancel()
		ln.Close()
		<-done
	}
}

// Scenario 1: UAMP, 2 agents, duration 2s, seed 1.
func TestEndToEndUAMPTwoAgents(t *testing.T) {
	cfg := &config.ServerConfig{Protocol: "uamp", Workers: 2}
	addr, shutdown := startServer(t, cfg)
	defer shutdown()

	client, err := uampclient.Dial(addr, uampclient.Options{
		Tag:       protocol.TagUAMP,
		Spec:      protocol.SimSpec{NumAgents: 2, TimeLimitMS: 2000, Seed: 1},
		QueueSize: 6,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Terminate()

	if client.NumAgents() != 2 {
		t.Fatalf("NumAgents = %d, want 2", client.NumAgents())
	}

	cmd := client.CurrentCommand(0)
	if cmd.FromTime != 0 || cmd.ToTime != 0 {
		t.Fatalf("initial command not degenerate at time 0: %+v", cmd)
	}
	if cmd.FromX != cmd.ToX || cmd.FromY != cmd.ToY {
		t.Fatalf("initial command from/to coordinates should match: %+v", cmd)
	}

	if ok, err := client.Advance(0); err != nil {
		t.Fatalf("Advance: %v", err)
	} else if !ok {
		t.Fatal("expected Advance to succeed")
	}
	after := client.CurrentCommand(0)
	if after.ToTime <= 0 {
		t.Fatalf("expected ToTime to progress past 0, got %v", after.ToTime)
	}

	// Drive every agent to the simulation's terminal update.
	for a := 0; a < client.NumAgents(); a++ {
		for {
			cmd := client.CurrentCommand(uint32(a))
			if cmd.ToTime*1000 >= float64(client.Duration()) {
				break
			}
			if _, err := client.Advance(uint32(a)); err != nil {
				t.Fatalf("Advance(%d): %v", a, err)
			}
		}
	}
}

// Scenario 2: MVISP, server offers 3 agents/10s, client accepts with 2
// states, emits exactly one auto-flushed CHANGE_STATE frame at 128
// buffered entries, and terminate flushes any remainder.
func TestEndToEndMVISPStateChanges(t *testing.T) {
	cfg := &config.ServerConfig{
		Protocol: "mvisp",
		Workers:  1,
		Simulation: config.SimulationConfig{
			DurationMS: 10_000, BoundMM: 1000, StepMS: 100, NumAgents: 3,
		},
	}
	addr, shutdown := startServer(t, cfg)
	defer shutdown()

	client, err := uampclient.Dial(addr, uampclient.Options{
		Tag:       protocol.TagMVISP,
		States:    []string{"idle", "busy"},
		Accept:    uampclient.AcceptAll,
		QueueSize: 6,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Terminate()

	if client.NumAgents() != 3 {
		t.Fatalf("NumAgents = %d, want 3", client.NumAgents())
	}

	for i := 0; i < 128; i++ {
		if err := client.ChangeState(1, 3.0, 1); err != nil {
			t.Fatalf("ChangeState #%d: %v", i, err)
		}
	}

	if err := client.ChangeState(1, 3.0, 1); err != nil {
		t.Fatalf("partial ChangeState after auto-flush: %v", err)
	}
	if err := client.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
}

// Scenario 3: MVISP denial when the server offers zero agents.
func TestEndToEndMVISPNoAgentsIsDenial(t *testing.T) {
	cfg := &config.ServerConfig{Protocol: "mvisp", Workers: 1, MaxAgents: 0}
	addr, shutdown := startServer(t, cfg)
	defer shutdown()

	_, err := uampclient.Dial(addr, uampclient.Options{
		Tag:       protocol.TagMVISP,
		States:    []string{"idle"},
		QueueSize: 6,
		Logger:    discardLogger(),
	})
	if err == nil {
		t.Fatal("expected an error dialing a zero-agent MVISP offer")
	}
	k, ok := protoerr.KindOf(err)
	if !ok || k != protoerr.MVISPNoAgents {
		t.Fatalf("error kind = %v, want MVISPNoAgents", k)
	}
}

// Scenario 4: a UAMP client opening to an MVISP server fails the
// handshake with the tag-mismatch kind the client side observes.
func TestEndToEndProtocolMismatch(t *testing.T) {
	cfg := &config.ServerConfig{Protocol: "mvisp", Workers: 1}
	addr, shutdown := startServer(t, cfg)
	defer shutdown()

	_, err := uampclient.Dial(addr, uampclient.Options{
		Tag:       protocol.TagUAMP,
		Spec:      protocol.SimSpec{NumAgents: 1, TimeLimitMS: 1000, Seed: 0},
		QueueSize: 6,
		Logger:    discardLogger(),
	})
	if err == nil {
		t.Fatal("expected a protocol mismatch error")
	}
	k, ok := protoerr.KindOf(err)
	if !ok || k != protoerr.UAMPClientMVISPServer {
		t.Fatalf("error kind = %v, want UAMPClientMVISPServer", k)
	}
}

// Scenario 5: a 3D-advertising server and a 2D-only client fail the
// handshake with the client-only asymmetric feature rule.
func TestEndToEndFeatureConflictRejectedByClient(t *testing.T) {
	// The reference server always advertises both optional features; a
	// client that advertises neither observes the handshake's
	// client-only feature-mismatch rule.
	cfg := &config.ServerConfig{Protocol: "uamp", Workers: 1}
	addr, shutdown := startServer(t, cfg)
	defer shutdown()

	_, err := uampclient.Dial(addr, uampclient.Options{
		Tag:       protocol.TagUAMP,
		Features:  protocol.Features{},
		Spec:      protocol.SimSpec{NumAgents: 1, TimeLimitMS: 1000, Seed: 0},
		QueueSize: 6,
		Logger:    discardLogger(),
	})
	if err == nil {
		t.Fatal("expected a feature-mismatch error")
	}
	k, ok := protoerr.KindOf(err)
	if !ok || k != protoerr.ThreeDClientMismatch {
		t.Fatalf("error kind = %v, want ThreeDClientMismatch", k)
	}
}

// TestEndToEndUAMPSpecRejectedOverMaxAgents exercises the server-side
// numAgents cap independent of the handshake.
func TestEndToEndUAMPSpecRejectedOverMaxAgents(t *testing.T) {
	cfg := &config.ServerConfig{Protocol: "uamp", Workers: 1, MaxAgents: 1}
	addr, shutdown := startServer(t, cfg)
	defer shutdown()

	_, err := uampclient.Dial(addr, uampclient.Options{
		Tag:       protocol.TagUAMP,
		Spec:      protocol.SimSpec{NumAgents: 2, TimeLimitMS: 1000, Seed: 0},
		QueueSize: 6,
		Logger:    discardLogger(),
	})
	if err == nil {
		t.Fatal("expected simulation-denied error")
	}
	k, ok := protoerr.KindOf(err)
	if !ok || k != protoerr.SimulationDenied {
		t.Fatalf("error kind = %v, want SimulationDenied", k)
	}
}
