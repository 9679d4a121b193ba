// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package wire implements the fixed-size framing buffer that every
// UAMP/MVISP message is read from or written to. A caller declares the
// exact number of bytes a message transaction will consume with
// BeginRead/BeginWrite and then issues typed Read*/Write* calls; the
// buffer amortises syscalls against the underlying stream the same way
// bufio would, but additionally enforces that the declared total is
// never exceeded.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nishisan-dev/uamp/internal/protoerr"
)

// DefaultSize is the reference buffer size backing the bufio reader/writer.
const DefaultSize = 2048

// Buffer wraps a byte-stream connection with the begin/read/write
// transaction contract described by the protocol's I/O framing
// component.
type Buffer struct {
	r io.Reader
	w io.Writer
	br *bufio.Reader
	bw *bufio.Writer

	readRemaining  int
	readActive     bool
	writeRemaining int
	writeActive    bool
}

// New creates a Buffer with the reference 2048-byte buffer size.
func New(rw io.ReadWriter) *Buffer {
	return NewSize(rw, DefaultSize)
}

// NewSize creates a Buffer with an explicit buffer size, split into
// independent reader and writer halves (conn is typically a net.Conn
// which is full-duplex).
func NewSize(rw io.ReadWriter, size int) *Buffer {
	return &Buffer{
		r:  rw,
		w:  rw,
		br: bufio.NewReaderSize(rw, size),
		bw: bufio.NewWriterSize(rw, size),
	}
}

// BeginRead declares that the next sequence of Read* calls will
// consume exactly total bytes before the following BeginRead.
func (b *Buffer) BeginRead(total int) {
	if b.readActive && b.readRemaining != 0 {
		panic(fmt.Sprintf("wire: BeginRead(%d) called with %d bytes still undeclared from previous transaction", total, b.readRemaining))
	}
	b.readRemaining = total
	b.readActive = true
}

// BeginWrite declares that the next sequence of Write* calls will
// produce exactly total bytes before the following BeginWrite/Flush.
func (b *Buffer) BeginWrite(total int) {
	if b.writeActive && b.writeRemaining != 0 {
		panic(fmt.Sprintf("wire: BeginWrite(%d) called with %d bytes still undeclared from previous transaction", total, b.writeRemaining))
	}
	b.writeRemaining = total
	b.writeActive = true
}

func (b *Buffer) consumeRead(n int) {
	if !b.readActive {
		panic("wire: read operation outside of a BeginRead transaction")
	}
	if n > b.readRemaining {
		panic(fmt.Sprintf("wire: read of %d bytes exceeds %d bytes declared by BeginRead", n, b.readRemaining))
	}
	b.readRemaining -= n
}

func (b *Buffer) consumeWrite(n int) {
	if !b.writeActive {
		panic("wire: write operation outside of a BeginWrite transaction")
	}
	if n > b.writeRemaining {
		panic(fmt.Sprintf("wire: write of %d bytes exceeds %d bytes declared by BeginWrite", n, b.writeRemaining))
	}
	b.writeRemaining -= n
}

// Read8 reads a single byte.
func (b *Buffer) Read8() (byte, error) {
	b.consumeRead(1)
	c, err := b.br.ReadByte()
	if err != nil {
		return 0, translateReadErr(err)
	}
	return c, nil
}

// Read32 reads a big-endian Unsigned32.
func (b *Buffer) Read32() (uint32, error) {
	b.consumeRead(4)
	var buf [4]byte
	if _, err := io.ReadFull(b.br, buf[:]); err != nil {
		return 0, translateReadErr(err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadRaw reads exactly n raw bytes.
func (b *Buffer) ReadRaw(n int) ([]byte, error) {
	b.consumeRead(n)
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.br, buf); err != nil {
		return nil, translateReadErr(err)
	}
	return buf, nil
}

// Write8 writes a single byte.
func (b *Buffer) Write8(v byte) error {
	b.consumeWrite(1)
	if err := b.bw.WriteByte(v); err != nil {
		return protoerr.Wrap(protoerr.SocketWrite, err)
	}
	return nil
}

// Write32 writes a big-endian Unsigned32.
func (b *Buffer) Write32(v uint32) error {
	b.consumeWrite(4)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	if _, err := b.bw.Write(buf[:]); err != nil {
		return protoerr.Wrap(protoerr.SocketWrite, err)
	}
	return nil
}

// WriteRaw writes raw bytes verbatim.
func (b *Buffer) WriteRaw(p []byte) error {
	b.consumeWrite(len(p))
	if _, err := b.bw.Write(p); err != nil {
		return protoerr.Wrap(protoerr.SocketWrite, err)
	}
	return nil
}

// Flush pushes any buffered writes out to the underlying stream. It
// must be called once the declared BeginWrite total has been fully
// produced.
func (b *Buffer) Flush() error {
	if err := b.bw.Flush(); err != nil {
		return protoerr.Wrap(protoerr.SocketWrite, err)
	}
	return nil
}

func translateReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return protoerr.Wrap(protoerr.SocketDry, err)
	}
	return protoerr.Wrap(protoerr.SocketRead, err)
}
