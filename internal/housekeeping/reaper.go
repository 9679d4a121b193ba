// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package housekeeping runs the server's periodic maintenance job: a
// single cron entry that invokes a caller-supplied sweep. The server
// supplies archive rotation (keep only the newest N traces); no
// connection state is touched.
package housekeeping

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// RotateFunc performs trace-file rotation for one archive directory.
type RotateFunc func() error

// Reaper runs a single cron entry that invokes a caller-supplied
// sweep on a schedule, logging failures without stopping the
// schedule — a missed rotation cycle is not fatal.
type Reaper struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New builds a Reaper that calls rotate according to the given
// 5-field cron expression (default "*/5 * * * *" if empty).
func New(schedule string, logger *slog.Logger, rotate RotateFunc) (*Reaper, error) {
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if _, err := c.AddFunc(schedule, func() {
		if err := rotate(); err != nil {
			logger.Error("housekeeping sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("housekeeping: registering cron entry %q: %w", schedule, err)
	}

	return &Reaper{cron: c, logger: logger}, nil
}

// Start begins running the schedule in the background.
func (r *Reaper) Start() {
	r.logger.Info("housekeeping reaper started")
	r.cron.Start()
}

// Stop halts the schedule and waits for any in-flight sweep to
// finish.
func (r *Reaper) Stop() {
	r.logger.Info("housekeeping reaper stopping")
	<-r.cron.Stop().Done()
}
