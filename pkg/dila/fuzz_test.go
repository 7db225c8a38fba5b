// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomFrame builds a valid wire frame with a random class, code, and payload.
func randomFrame(rng *rand.Rand) ([]byte, byte, string) {
	classes := []byte{ClassResponse, ClassAck}
	class := classes[rng.Intn(len(classes))]
	code := string([]byte{
		byte('A' + rng.Intn(26)),
		byte('A' + rng.Intn(26)),
	})
	dataLen := rng.Intn(16)
	data := make([]byte, 0, dataLen)
	for i := 0; i < dataLen; i++ {
		data = append(data, byte('0'+rng.Intn(10)))
	}
	return EncodePacket(&Packet{Class: class, Code: code, Data: data}), class, code
}

func TestFuzz_DecoderGarbage(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		chunk := make([]byte, rng.Intn(64))
		for j := range chunk {
			chunk[j] = byte(rng.Intn(256))
		}
		d.Feed(chunk)
		// Drain until the decoder wants more input; it must never panic
		// or loop without consuming.
		for j := 0; j < 256; j++ {
			p, err := d.Next()
			if p == nil && err == nil {
				break
			}
		}
		if d.Buffered() > MaxFrameSize*4 {
			d.Reset()
		}
	}
}

func TestFuzz_DecoderRecoversAfterGarbage(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		// Leading garbage that never contains the end byte.
		garbage := make([]byte, rng.Intn(20))
		for j := range garbage {
			b := byte(rng.Intn(256))
			for b == EndByte || validClass(b) {
				b = byte(rng.Intn(256))
			}
			garbage[j] = b
		}
		frame, class, code := randomFrame(rng)

		d.Feed(garbage)
		d.Feed(frame)

		var got *Packet
		for j := 0; j < 64 && got == nil; j++ {
			p, err := d.Next()
			if p != nil {
				got = p
				break
			}
			if err == nil {
				t.Fatalf("round %d: decoder stalled with %d bytes buffered", i, d.Buffered())
			}
		}
		if got == nil {
			t.Fatalf("round %d: frame never recovered after %d garbage bytes", i, len(garbage))
		}
		if got.Class != class || got.Code != code {
			t.Fatalf("round %d: recovered %q/%q, want %q/%q", i, got.Class, got.Code, class, code)
		}
	}
}

func TestFuzz_EncodeDecodeRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		frame, class, code := randomFrame(rng)
		d.Feed(frame)
		p, err := d.Next()
		if err != nil || p == nil {
			t.Fatalf("round %d: decode of encoded frame failed: p=%v err=%v", i, p, err)
		}
		if p.Class != class || p.Code != code {
			t.Fatalf("round %d: round trip %q/%q, want %q/%q", i, p.Class, p.Code, class, code)
		}
	}
}
