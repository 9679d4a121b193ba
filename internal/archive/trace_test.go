// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package archive

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTraceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	trace, err := NewTrace(dir, "session-1")
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	trace.Record("handshake", map[string]string{"tag": "UAMP"})
	trace.Record("terminate", nil)
	if trace.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", trace.Len())
	}

	path, err := trace.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path = %s, want dir %s", path, dir)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	var got []Event
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("decoded %d events, want 2", len(got))
	}
	if got[0].Kind != "handshake" || got[1].Kind != "terminate" {
		t.Errorf("events out of order or wrong kind: %+v", got)
	}
	if _, err := time.Parse(time.RFC3339Nano, got[0].Time); err != nil {
		t.Errorf("Time not RFC3339Nano: %v", err)
	}
}

func TestTraceLargeBatchUsesParallelGzip(t *testing.T) {
	dir := t.TempDir()
	trace, err := NewTrace(dir, "session-big")
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	for i := 0; i < smallTraceThreshold+10; i++ {
		trace.Record("update", i)
	}
	path, err := trace.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("trace file missing: %v", err)
	}
}
