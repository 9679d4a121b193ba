// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package archive persists a per-connection SessionTrace to disk as
// gzip-compressed newline-delimited JSON, with an optional upload to
// S3. Archiving is best-effort: a failure here must never fail the
// connection it is recording.
package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
)

// Event is one line of a SessionTrace: a timestamped record of a
// protocol-level occurrence worth keeping for post-hoc inspection.
type Event struct {
	Time string `json:"time"`
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

// smallTraceThreshold is the event count below which the single-core
// compress/gzip writer is used instead of pgzip's parallel blocks;
// below this size pgzip's block overhead isn't worth paying.
const smallTraceThreshold = 256

// Trace accumulates Events for one connection and flushes them to a
// gzip file on Close.
type Trace struct {
	path   string
	events []Event
}

// NewTrace creates a Trace that will be written to
// dir/<sessionID>.jsonl.gz on Close.
func NewTrace(dir, sessionID string) (*Trace, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("archive: creating directory: %w", err)
	}
	return &Trace{
		path: filepath.Join(dir, sessionID+".jsonl.gz"),
	}, nil
}

// Record appends an event with the current time.
func (t *Trace) Record(kind string, data any) {
	t.events = append(t.events, Event{
		Time: time.Now().UTC().Format(time.RFC3339Nano),
		Kind: kind,
		Data: data,
	})
}

// Len reports the number of recorded events.
func (t *Trace) Len() int {
	return len(t.events)
}

// Close writes every recorded event to the trace file, compressed,
// and returns the path written. Called exactly once per connection,
// on teardown.
func (t *Trace) Close() (string, error) {
	f, err := os.Create(t.path)
	if err != nil {
		return "", fmt.Errorf("archive: creating trace file: %w", err)
	}
	defer f.Close()

	bufDest := bufio.NewWriterSize(f, 64*1024)

	var gz io.WriteCloser
	if len(t.events) < smallTraceThreshold {
		gz, err = gzip.NewWriterLevel(bufDest, gzip.BestSpeed)
	} else {
		gz, err = pgzip.NewWriterLevel(bufDest, pgzip.BestSpeed)
	}
	if err != nil {
		return "", fmt.Errorf("archive: creating gzip writer: %w", err)
	}

	enc := json.NewEncoder(gz)
	for _, e := range t.events {
		if err := enc.Encode(e); err != nil {
			gz.Close()
			return "", fmt.Errorf("archive: encoding event: %w", err)
		}
	}

	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("archive: closing gzip writer: %w", err)
	}
	if err := bufDest.Flush(); err != nil {
		return "", fmt.Errorf("archive: flushing trace file: %w", err)
	}
	return t.path, nil
}
