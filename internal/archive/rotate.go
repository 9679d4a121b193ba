// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Rotate removes trace files in dir beyond the newest keep, relying
// on file names sorting chronologically (the server names traces after
// xid session IDs, whose leading timestamp sorts by creation time).
func Rotate(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("archive: reading trace directory: %w", err)
	}

	var traces []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl.gz") {
			traces = append(traces, e.Name())
		}
	}
	sort.Strings(traces)

	if len(traces) <= keep {
		return nil
	}
	for _, name := range traces[:len(traces)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("archive: removing old trace %s: %w", name, err)
		}
	}
	return nil
}
