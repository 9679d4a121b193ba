// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package uampclient

import (
	"github.com/nishisan-dev/uamp/internal/protocol"
)

// demandFor builds the chunking input for the given agents, skipping
// any with zero outstanding demand.
func (c *Client) demandFor(agents []uint32) []protocol.AgentDemand {
	demand := make([]protocol.AgentDemand, 0, len(agents))
	for _, a := range agents {
		n := c.view.Queue(a).Demand()
		if n == 0 {
			continue
		}
		demand = append(demand, protocol.AgentDemand{AgentID: a, Count: n})
	}
	return demand
}

// sendAndReceive issues one or more LOCATION_REQUESTs for demand,
// chunked per protocol.ChunkRequests, and feeds each reply back into
// the requesting agent's queue in request order.
func (c *Client) sendAndReceive(demand []protocol.AgentDemand) error {
	for _, ids := range protocol.ChunkRequests(demand) {
		if err := protocol.WriteLocationRequest(c.buf, ids); err != nil {
			return err
		}
		updates, err := protocol.ReadUpdates(c.buf, len(ids), c.features)
		if err != nil {
			return err
		}
		for i, id := range ids {
			if err := c.view.Queue(id).Receive(updates[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillInitial issues the first-fill LOCATION_REQUEST(s) for every
// agent (demand QUEUE_SIZE+1 per the wire-compatibility rule) before
// the global time watermarks are established.
func (c *Client) fillInitial() error {
	agents := make([]uint32, c.view.NumAgents())
	for i := range agents {
		agents[i] = uint32(i)
	}
	return c.sendAndReceive(c.demandFor(agents))
}

// refillAgents issues LOCATION_REQUEST(s) covering the current
// outstanding demand of exactly the given agents.
func (c *Client) refillAgents(agents []uint32) error {
	demand := c.demandFor(agents)
	if len(demand) == 0 {
		return nil
	}
	return c.sendAndReceive(demand)
}

// RefillAll issues LOCATION_REQUEST(s) covering the current
// outstanding demand of every agent, a convenience for drivers that
// prefer to batch refills across agents rather than refill
// individually inside Advance/AdvanceOldest.
func (c *Client) RefillAll() error {
	agents := make([]uint32, c.view.NumAgents())
	for i := range agents {
		agents[i] = uint32(i)
	}
	return c.refillAgents(agents)
}
