// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"bytes"
	"time"
)

// Decoder implements the stream decoder for framed protocol messages.
// Bytes read from the transport are appended with Feed; Next extracts
// complete frames. A frame is either fully decodable, explicitly
// incomplete (wait for more I/O), or invalid. On an invalid header the
// decoder resynchronizes by discarding bytes up to the next plausible
// frame start instead of abandoning the stream.
type Decoder struct {
	buf     []byte
	resyncs int // invalid-header recoveries since the last Reset
}

// NewDecoder creates a new stream decoder
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, MaxFrameSize*2)}
}

// Reset discards all buffered bytes and clears the resync counter
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.resyncs = 0
}

// Resyncs returns the number of invalid-header recoveries performed
func (d *Decoder) Resyncs() int {
	return d.resyncs
}

// Buffered returns the number of undecoded bytes held
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Feed appends raw transport bytes to the receive buffer
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next extracts the next complete frame from the buffer.
// Returns (nil, nil) when fewer bytes than a full frame are available.
// Returns an error wrapping ErrProtocol when the buffered bytes cannot
// form a valid frame; the offending bytes are discarded up to the next
// plausible header so that subsequent calls can make progress.
func (d *Decoder) Next() (*Packet, error) {
	if len(d.buf) == 0 {
		return nil, nil
	}

	// The stream must start at a frame boundary.
	if !validClass(d.buf[0]) {
		b := d.buf[0]
		n := d.resync(1)
		return nil, invalidFrame("unexpected byte 0x%02X, discarded %d bytes", b, n)
	}

	end := bytes.IndexByte(d.buf, EndByte)
	if end < 0 {
		if len(d.buf) > MaxFrameSize {
			// Unterminated garbage; drop the bogus frame start.
			n := d.resync(1)
			return nil, invalidFrame("frame exceeds %d bytes without end byte, discarded %d bytes", MaxFrameSize, n)
		}
		return nil, nil // incomplete
	}

	line := d.buf[:end]

	if len(line) < minFrameSize {
		n := d.resync(end + 1)
		return nil, invalidFrame("short frame (%d bytes), discarded %d bytes", len(line), n)
	}
	if !bytes.Equal(line[1:headLength], UnitID) {
		n := d.resync(1)
		return nil, invalidFrame("unit ID mismatch % X, discarded %d bytes", line[1:headLength], n)
	}

	p := &Packet{
		Class:     line[0],
		Code:      string(line[headLength : headLength+codeLength]),
		Data:      append([]byte(nil), line[headLength+codeLength:]...),
		Timestamp: time.Now(),
	}
	d.buf = d.buf[end+1:]
	return p, nil
}

// resync drops at least min bytes, then skips forward to the next byte
// that could start a frame. Returns the number of bytes discarded.
func (d *Decoder) resync(min int) int {
	d.resyncs++
	n := min
	for n < len(d.buf) && !validClass(d.buf[n]) {
		n++
	}
	d.buf = d.buf[n:]
	return n
}
