// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/nishisan-dev/uamp/internal/protoerr"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	b := New(&buf)

	b.BeginWrite(1 + 4 + 3)
	if err := b.Write8(0x01); err != nil {
		t.Fatalf("Write8: %v", err)
	}
	if err := b.Write32(42); err != nil {
		t.Fatalf("Write32: %v", err)
	}
	if err := b.WriteRaw([]byte{'a', 'b', 'c'}); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	b.BeginRead(1 + 4 + 3)
	tag, err := b.Read8()
	if err != nil || tag != 0x01 {
		t.Fatalf("Read8 = (%v, %v), want (0x01, nil)", tag, err)
	}
	n, err := b.Read32()
	if err != nil || n != 42 {
		t.Fatalf("Read32 = (%v, %v), want (42, nil)", n, err)
	}
	raw, err := b.ReadRaw(3)
	if err != nil || !bytes.Equal(raw, []byte{'a', 'b', 'c'}) {
		t.Fatalf("ReadRaw = (%v, %v)", raw, err)
	}
}

func TestReadPastDeclaredTotalPanics(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 2, 3, 4, 5})
	b := New(&buf)
	b.BeginRead(4)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic reading past the declared total")
		}
	}()
	_, _ = b.Read32()
	_, _ = b.Read8() // exceeds the declared 4 bytes
}

func TestWritePastDeclaredTotalPanics(t *testing.T) {
	var buf bytes.Buffer
	b := New(&buf)
	b.BeginWrite(2)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic writing past the declared total")
		}
	}()
	_ = b.Write32(1) // declared only 2 bytes
}

func TestReadOutsideTransactionPanics(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1})
	b := New(&buf)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic reading without BeginRead")
		}
	}()
	_, _ = b.Read8()
}

func TestShortReadIsSocketDry(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 2})
	b := New(&buf)
	b.BeginRead(4)

	_, err := b.Read32()
	if err == nil {
		t.Fatal("expected error on truncated stream")
	}
	k, ok := protoerr.KindOf(err)
	if !ok || k != protoerr.SocketDry {
		t.Fatalf("KindOf = (%v, %v), want (SocketDry, true)", k, ok)
	}
}

func TestBeginReadReentryWithoutFullConsumptionPanics(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	b := New(&buf)
	b.BeginRead(8)
	_, _ = b.Read32()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic starting a new BeginRead with bytes left undeclared")
		}
	}()
	b.BeginRead(4)
}
