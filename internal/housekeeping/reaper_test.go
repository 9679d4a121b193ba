// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package housekeeping

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&discard{}, nil))
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func TestReaperDoesNotSweepBeforeFirstScheduledMinute(t *testing.T) {
	var calls int32
	r, err := New("* * * * *", discardLogger(), func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Start()
	defer r.Stop()

	// The standard 5-field cron expression has a 1-minute minimum
	// granularity; verify registration succeeded and Stop drains
	// cleanly rather than waiting out a real minute.
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("sweep ran before its first scheduled minute")
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New("not-a-schedule", discardLogger(), func() error { return nil })
	if err == nil {
		t.Fatal("expected error for malformed cron expression")
	}
}

func TestNewDefaultsScheduleWhenEmpty(t *testing.T) {
	r, err := New("", discardLogger(), func() error { return errors.New("boom") })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Start()
	r.Stop()
}
