// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package uampclient assembles the client-role connection lifecycle:
// handshake, simulation-spec exchange (UAMP propose/accept or MVISP
// offer/accept), the refill-driven request loop backed by the
// per-agent queue and time-synchronised view, the MVISP state-change
// pipeline, and termination.
package uampclient

import (
	"log/slog"
	"net"

	"github.com/nishisan-dev/uamp/internal/clientview"
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/protocol"
	"github.com/nishisan-dev/uamp/internal/statebuffer"
	"github.com/nishisan-dev/uamp/internal/wire"
)

// AcceptFunc decides whether to accept a simulation spec the MVISP
// server has offered. True accepts; per this implementation's
// resolution of the spec's accept-callback Open Question, true always
// means accept, matching the numStates > 0 on-the-wire convention
// directly.
type AcceptFunc func(spec protocol.SimSpec) bool

// AcceptAll is the default MVISP acceptance policy: accept whatever
// the server offers.
func AcceptAll(protocol.SimSpec) bool { return true }

// Options configures a Client.
type Options struct {
	Tag       protocol.Tag
	Features  protocol.Features
	QueueSize int

	// UAMP only.
	Spec protocol.SimSpec

	// MVISP only.
	States []string
	Accept AcceptFunc

	Logger *slog.Logger
}

// Client drives one connection's worth of the UAMP or MVISP protocol
// from the client role.
type Client struct {
	conn   net.Conn
	buf    *wire.Buffer
	logger *slog.Logger

	tag       protocol.Tag
	features  protocol.Features
	queueSize int
	spec      protocol.SimSpec

	view    *clientview.State
	changes *statebuffer.Buffer
}

// Dial connects to addr and runs the handshake and simulation-spec
// exchange, returning a Client ready to drive the request loop.
func Dial(addr string, opts Options) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.SocketConnect, err)
	}
	c, err := newClient(conn, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(conn net.Conn, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.QueueSize < 2 {
		opts.QueueSize = protocol.QueueSize
	}
	if opts.Accept == nil {
		opts.Accept = AcceptAll
	}

	c := &Client{
		conn:      conn,
		buf:       wire.New(conn),
		logger:    logger,
		tag:       opts.Tag,
		queueSize: opts.QueueSize,
	}

	negotiated, err := protocol.NegotiateClient(c.buf, opts.Tag, opts.Features)
	if err != nil {
		return nil, err
	}
	c.features = negotiated
	c.logger.Debug("handshake negotiated", "three_d", negotiated.ThreeD, "appear_disappear", negotiated.AppearDisappear)

	if opts.Tag == protocol.TagUAMP {
		if err := c.exchangeUAMPSpec(opts.Spec); err != nil {
			return nil, err
		}
	} else {
		if err := c.exchangeMVISPSpec(opts.States, opts.Accept); err != nil {
			return nil, err
		}
	}

	c.view = clientview.New(int(c.spec.NumAgents), c.queueSize, c.spec.TimeLimitMS, c.features)
	if c.tag == protocol.TagMVISP {
		c.changes = statebuffer.New(protocol.StateChangeBufferSize, c.spec.NumAgents, uint32(len(c.spec.States)), c.spec.TimeLimitMS, c.flushChanges)
	}

	if err := c.fillInitial(); err != nil {
		return nil, err
	}
	c.view.Init()

	return c, nil
}

func (c *Client) exchangeUAMPSpec(spec protocol.SimSpec) error {
	if err := protocol.ValidateUAMPSpec(spec); err != nil {
		return err
	}
	if err := protocol.WriteUAMPSpecRequest(c.buf, spec); err != nil {
		return err
	}
	accepted, err := protocol.ReadUAMPSpecReply(c.buf)
	if err != nil {
		return err
	}
	if !accepted {
		return protoerr.New(protoerr.SimulationDenied)
	}
	c.spec = spec
	return nil
}

func (c *Client) exchangeMVISPSpec(states []string, accept AcceptFunc) error {
	offer, err := protocol.ReadMVISPSpecOffer(c.buf)
	if err != nil {
		return err
	}
	if offer.NumAgents == 0 {
		return protoerr.New(protoerr.MVISPNoAgents)
	}

	if !accept(offer) {
		if err := protocol.WriteMVISPSpecReject(c.buf); err != nil {
			return err
		}
		return protoerr.New(protoerr.SimulationDenied)
	}

	if err := protocol.WriteMVISPSpecAccept(c.buf, states); err != nil {
		return err
	}
	offer.States = states
	c.spec = offer
	return nil
}

// NumAgents reports the number of agents in the negotiated simulation.
func (c *Client) NumAgents() int { return c.view.NumAgents() }

// Features reports the negotiated feature set.
func (c *Client) Features() protocol.Features { return c.features }

// Spec reports the negotiated simulation specification.
func (c *Client) Spec() protocol.SimSpec { return c.spec }

// CurrentCommand returns the Command spanning agent's previous and
// current update.
func (c *Client) CurrentCommand(agent uint32) protocol.Command {
	return c.view.CurrentCommand(agent)
}

// IntersectCommand returns agent's position interpolated onto the
// global intersection window.
func (c *Client) IntersectCommand(agent uint32) (protocol.Command, error) {
	return c.view.IntersectCommand(agent)
}

// Advance rotates one agent's queue forward, refilling from the
// server first if nothing is buffered ahead of its current update.
func (c *Client) Advance(agent uint32) (bool, error) {
	if !c.view.Advance(agent) {
		if err := c.refillAgents([]uint32{agent}); err != nil {
			return false, err
		}
		return c.view.Advance(agent), nil
	}
	return true, nil
}

// AdvanceOldest advances every agent at the current global minimum,
// refilling any that have nothing buffered ahead first.
func (c *Client) AdvanceOldest() error {
	target := c.view.SmallestCurrentTime()
	var needRefill []uint32
	for a := 0; a < c.view.NumAgents(); a++ {
		agent := uint32(a)
		if c.view.Queue(agent).Current().TimeMS == target && c.view.Queue(agent).AliveInQueue() <= 1 {
			needRefill = append(needRefill, agent)
		}
	}
	if len(needRefill) > 0 {
		if err := c.refillAgents(needRefill); err != nil {
			return err
		}
	}
	c.view.AdvanceOldest()
	return nil
}

// Duration reports the negotiated simulation duration in milliseconds.
func (c *Client) Duration() uint32 { return c.spec.TimeLimitMS }

// ChangeState buffers a state-change notification (MVISP only),
// auto-flushing the buffer once it reaches capacity.
func (c *Client) ChangeState(agent uint32, timeSeconds float64, newState uint32) error {
	if c.changes == nil {
		return protoerr.New(protoerr.InvalidChangeState)
	}
	return c.changes.ChangeState(agent, timeSeconds, newState)
}

func (c *Client) flushChanges(changes []protocol.StateChange) error {
	return protocol.WriteChangeStateFrame(c.buf, changes)
}

// Terminate flushes any pending MVISP state changes, sends
// TERMINATE_SIMULATION, and closes the connection.
func (c *Client) Terminate() error {
	var flushErr error
	if c.changes != nil {
		flushErr = c.changes.Flush()
	}
	writeErr := protocol.WriteTerminate(c.buf)
	closeErr := c.conn.Close()
	if flushErr != nil {
		return flushErr
	}
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}
