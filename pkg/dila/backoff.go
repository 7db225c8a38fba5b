// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"context"
	"math/rand"
	"time"
)

// backoff implements exponential reconnect delay with jitter.
type backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if max < base {
		max = DefaultBackoffMax
	}
	return &backoff{base: base, max: max, current: base}
}

// Sleep waits the current delay with ±20% jitter, then doubles it up to
// the ceiling. Returns false if ctx expired during the wait.
func (b *backoff) Sleep(ctx context.Context) bool {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	delay := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Reset restores the initial delay after a successful connection.
func (b *backoff) Reset() {
	b.current = b.base
}
