// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Encoder Tests
// ============================================================

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		name  string
		class byte
		code  string
		want  []byte
	}{
		{
			name:  "power on operation",
			class: ClassOperation,
			code:  "PW1",
			want:  []byte{'!', 0x89, 0x01, 'P', 'W', '1', '\n'},
		},
		{
			name:  "power reference",
			class: ClassReference,
			code:  "PW",
			want:  []byte{'?', 0x89, 0x01, 'P', 'W', '\n'},
		},
		{
			name:  "four character reference",
			class: ClassReference,
			code:  "IFLT",
			want:  []byte{'?', 0x89, 0x01, 'I', 'F', 'L', 'T', '\n'},
		},
		{
			name:  "remote code operation",
			class: ClassOperation,
			code:  "RC7306",
			want:  []byte{'!', 0x89, 0x01, 'R', 'C', '7', '3', '0', '6', '\n'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeRequest(tt.class, tt.code)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeRequest() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEncodeHandshake(t *testing.T) {
	if got := encodeHandshake(""); !bytes.Equal(got, []byte("PJREQ")) {
		t.Errorf("bare request = %q, want PJREQ", got)
	}
	cred := HashPassword("MyPassword")
	want := []byte("PJREQ_" + cred)
	if got := encodeHandshake(cred); !bytes.Equal(got, want) {
		t.Errorf("authenticated request = %q, want %q", got, want)
	}
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_AckFrame(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{0x06, 0x89, 0x01, 'P', 'W', '\n'})

	p, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if p == nil {
		t.Fatal("Next() returned no frame")
	}
	if !p.IsAck() {
		t.Errorf("expected ack frame, got class 0x%02X", p.Class)
	}
	if p.Code != "PW" {
		t.Errorf("Code = %q, want PW", p.Code)
	}
	if len(p.Data) != 0 {
		t.Errorf("ack carried data % X", p.Data)
	}
}

func TestDecoder_ResponseWithData(t *testing.T) {
	d := NewDecoder()
	// Light-time response: code echo "IF", data "LT0064".
	d.Feed([]byte("@\x89\x01IFLT0064\n"))

	p, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !p.IsResponse() {
		t.Errorf("expected response frame, got class 0x%02X", p.Class)
	}
	if p.Code != "IF" {
		t.Errorf("Code = %q, want IF", p.Code)
	}
	if string(p.Data) != "LT0064" {
		t.Errorf("Data = %q, want LT0064", p.Data)
	}
}

func TestDecoder_Incomplete(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("@\x89\x01PW"))

	p, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error on partial frame: %v", err)
	}
	if p != nil {
		t.Fatalf("Next() returned frame from partial input: %v", p)
	}
	if d.Buffered() != 5 {
		t.Errorf("Buffered() = %d, want 5", d.Buffered())
	}
}

func TestDecoder_SplitFeed(t *testing.T) {
	d := NewDecoder()
	wire := []byte("@\x89\x01PW1\n")
	for _, b := range wire[:len(wire)-1] {
		d.Feed([]byte{b})
		if p, err := d.Next(); err != nil || p != nil {
			t.Fatalf("unexpected result mid-frame: p=%v err=%v", p, err)
		}
	}
	d.Feed(wire[len(wire)-1:])
	p, err := d.Next()
	if err != nil || p == nil {
		t.Fatalf("Next() after final byte: p=%v err=%v", p, err)
	}
	if p.Code != "PW" || string(p.Data) != "1" {
		t.Errorf("decoded %q/%q, want PW/1", p.Code, p.Data)
	}
}

func TestDecoder_BackToBackFrames(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("\x06\x89\x01PW\n@\x89\x01PW1\n"))

	first, err := d.Next()
	if err != nil || first == nil {
		t.Fatalf("first frame: p=%v err=%v", first, err)
	}
	if !first.IsAck() {
		t.Error("first frame should be the ack")
	}
	second, err := d.Next()
	if err != nil || second == nil {
		t.Fatalf("second frame: p=%v err=%v", second, err)
	}
	if !second.IsResponse() || string(second.Data) != "1" {
		t.Errorf("second frame = %v", second)
	}
}

func TestDecoder_ResyncOnGarbage(t *testing.T) {
	d := NewDecoder()
	// Noise bytes, then a valid ack frame.
	d.Feed([]byte{0x00, 0xFF, 0x7E})
	d.Feed([]byte("\x06\x89\x01PW\n"))

	_, err := d.Next()
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol for garbage, got %v", err)
	}
	if d.Resyncs() != 1 {
		t.Errorf("Resyncs() = %d, want 1", d.Resyncs())
	}

	p, err := d.Next()
	if err != nil || p == nil {
		t.Fatalf("frame after resync: p=%v err=%v", p, err)
	}
	if !p.IsAck() || p.Code != "PW" {
		t.Errorf("recovered frame = %v", p)
	}
}

func TestDecoder_UnitIDMismatch(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("@\x88\x02PW1\n@\x89\x01PW1\n"))

	if _, err := d.Next(); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol for unit ID mismatch, got %v", err)
	}
	// The decoder must still reach the valid frame that follows.
	for i := 0; i < 16; i++ {
		p, err := d.Next()
		if p != nil {
			if p.Code != "PW" || string(p.Data) != "1" {
				t.Fatalf("recovered wrong frame: %v", p)
			}
			return
		}
		if err == nil {
			t.Fatal("decoder stalled without error or frame")
		}
	}
	t.Fatal("decoder never recovered the valid frame")
}

func TestDecoder_ShortFrame(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("@\x89\x01\n"))
	if _, err := d.Next(); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol for short frame, got %v", err)
	}
}

func TestDecoder_OversizeWithoutTerminator(t *testing.T) {
	d := NewDecoder()
	junk := make([]byte, MaxFrameSize+2)
	junk[0] = ClassResponse
	for i := 1; i < len(junk); i++ {
		junk[i] = 'A'
	}
	d.Feed(junk)
	if _, err := d.Next(); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol for unterminated oversize frame, got %v", err)
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{0x00})
	d.Next()
	d.Feed([]byte("partial"))
	d.Reset()
	if d.Buffered() != 0 || d.Resyncs() != 0 {
		t.Errorf("Reset left buffered=%d resyncs=%d", d.Buffered(), d.Resyncs())
	}
}

func TestEncodePacket_RoundTrip(t *testing.T) {
	in := &Packet{Class: ClassResponse, Code: "PW", Data: []byte("1")}
	d := NewDecoder()
	d.Feed(EncodePacket(in))
	out, err := d.Next()
	if err != nil || out == nil {
		t.Fatalf("round trip: p=%v err=%v", out, err)
	}
	if out.Class != in.Class || out.Code != in.Code || !bytes.Equal(out.Data, in.Data) {
		t.Errorf("round trip mismatch: %v != %v", out, in)
	}
}
