// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"sync"
	"sync/atomic"
	"time"
)

// DeviceState is an immutable point-in-time snapshot of the projector.
// The poller replaces it wholesale; readers always see a consistent
// view and must never mutate it.
type DeviceState struct {
	Power       string
	Input       string
	Source      string
	Resolution  string
	ContentType string
	Colorimetry string
	PictureMode string
	LaserPower  string
	LightTime   string // light source hours, decimal
	Model       string
	Mac         string

	UpdatedAt time.Time
	Stale     bool
}

// Change records one field transition between two snapshots.
type Change struct {
	Field string
	From  string
	To    string
}

// fields enumerates the comparable snapshot fields for diffing.
func (s *DeviceState) fields() map[string]string {
	return map[string]string{
		"power":        s.Power,
		"input":        s.Input,
		"source":       s.Source,
		"resolution":   s.Resolution,
		"content_type": s.ContentType,
		"colorimetry":  s.Colorimetry,
		"picture_mode": s.PictureMode,
		"laser_power":  s.LaserPower,
		"light_time":   s.LightTime,
		"model":        s.Model,
		"mac":          s.Mac,
	}
}

// Diff returns the field changes from prev to s. A nil prev reports
// every populated field as newly set.
func (s *DeviceState) Diff(prev *DeviceState) []Change {
	cur := s.fields()
	var old map[string]string
	if prev != nil {
		old = prev.fields()
	}

	var changes []Change
	for _, field := range stateFieldOrder {
		from := old[field]
		to := cur[field]
		if from != to {
			changes = append(changes, Change{Field: field, From: from, To: to})
		}
	}
	if prev != nil && prev.Stale != s.Stale {
		from, to := "fresh", "stale"
		if prev.Stale {
			from, to = "stale", "fresh"
		}
		changes = append(changes, Change{Field: "freshness", From: from, To: to})
	}
	return changes
}

// stateFieldOrder keeps diff output deterministic.
var stateFieldOrder = []string{
	"power", "input", "source", "resolution", "content_type",
	"colorimetry", "picture_mode", "laser_power", "light_time",
	"model", "mac",
}

// StateFunc receives the new snapshot whenever the published state
// changes.
type StateFunc func(*DeviceState)

// statePublisher owns the published snapshot. Writers serialize on the
// mutex; readers load the pointer without locking.
type statePublisher struct {
	cur atomic.Pointer[DeviceState]

	mu     sync.Mutex
	nextID int
	subs   map[int]StateFunc
}

func newStatePublisher() *statePublisher {
	p := &statePublisher{subs: make(map[int]StateFunc)}
	p.cur.Store(&DeviceState{})
	return p
}

// Current returns the latest snapshot. Never nil.
func (p *statePublisher) Current() *DeviceState {
	return p.cur.Load()
}

// Publish replaces the snapshot and notifies subscribers when anything
// changed. Publishing an identical snapshot is a no-op: readers keep
// the same reference and no notification fires.
func (p *statePublisher) Publish(next *DeviceState) []Change {
	p.mu.Lock()
	prev := p.cur.Load()
	changes := next.Diff(prev)
	if len(changes) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.cur.Store(next)
	subs := make([]StateFunc, 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return changes
}

// Update derives and publishes a new snapshot from the current one in
// one atomic step. fn mutates a copy of the latest snapshot; concurrent
// updates to different fields both survive, because the read and the
// store happen under the same lock.
func (p *statePublisher) Update(fn func(next *DeviceState)) []Change {
	p.mu.Lock()
	prev := p.cur.Load()
	next := *prev
	fn(&next)
	changes := next.Diff(prev)
	if len(changes) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.cur.Store(&next)
	subs := make([]StateFunc, 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(&next)
	}
	return changes
}

// Subscribe registers fn for change notifications and returns an
// unsubscribe function.
func (p *statePublisher) Subscribe(fn StateFunc) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}
