// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package workerpool

import "github.com/nishisan-dev/uamp/internal/protocol"

// Simulator is the external mobility-simulation collaborator: the
// worker pool treats it purely as a producer of updates for one agent
// at a time and never inspects its internals.
type Simulator interface {
	// InitialUpdate returns agent's time=0 update. Called once per
	// agent at Manager construction, never through Advance.
	InitialUpdate(agent uint32) protocol.Update

	// Advance computes and returns the next update for agent, strictly
	// after the last one returned for that agent (by either
	// InitialUpdate or a prior Advance).
	Advance(agent uint32) protocol.Update
}
