// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestDeviceState_Diff(t *testing.T) {
	prev := &DeviceState{Power: PowerStandby, Model: "DLA-NZ8"}
	next := &DeviceState{Power: PowerOn, Input: "hdmi1", Model: "DLA-NZ8"}

	changes := next.Diff(prev)
	if len(changes) != 2 {
		t.Fatalf("Diff() = %v, want 2 changes", changes)
	}
	// Deterministic field order: power before input.
	if changes[0].Field != "power" || changes[0].From != PowerStandby || changes[0].To != PowerOn {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[1].Field != "input" || changes[1].From != "" || changes[1].To != "hdmi1" {
		t.Errorf("second change = %+v", changes[1])
	}
}

func TestDeviceState_DiffStaleness(t *testing.T) {
	prev := &DeviceState{Power: PowerOn}
	next := &DeviceState{Power: PowerOn, Stale: true}
	changes := next.Diff(prev)
	if len(changes) != 1 || changes[0].Field != "freshness" || changes[0].To != "stale" {
		t.Errorf("Diff() = %v, want a single freshness change", changes)
	}
}

func TestStatePublisher_IdempotentPublish(t *testing.T) {
	pub := newStatePublisher()
	first := &DeviceState{Power: PowerOn, UpdatedAt: time.Now()}
	if changes := pub.Publish(first); len(changes) == 0 {
		t.Fatal("first publish reported no changes")
	}

	before := pub.Current()
	// Same values in a fresh snapshot: no notification, same reference.
	dup := *first
	dup.UpdatedAt = time.Now().Add(time.Minute)
	if changes := pub.Publish(&dup); changes != nil {
		t.Errorf("identical publish reported changes: %v", changes)
	}
	if pub.Current() != before {
		t.Error("identical publish replaced the snapshot reference")
	}
}

func TestStatePublisher_Subscribe(t *testing.T) {
	pub := newStatePublisher()

	got := make(chan *DeviceState, 2)
	unsub := pub.Subscribe(func(s *DeviceState) { got <- s })

	pub.Publish(&DeviceState{Power: PowerOn})
	select {
	case s := <-got:
		if s.Power != PowerOn {
			t.Errorf("notified snapshot power = %q", s.Power)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never notified")
	}

	unsub()
	pub.Publish(&DeviceState{Power: PowerStandby})
	select {
	case <-got:
		t.Error("unsubscribed callback still notified")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatePublisher_ConcurrentUpdates(t *testing.T) {
	pub := newStatePublisher()
	pub.Publish(&DeviceState{Power: PowerOn})

	// Two writers touching different fields: neither update may clobber
	// the other's, whatever the interleaving.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pub.Update(func(next *DeviceState) { next.Input = "hdmi1" })
	}()
	go func() {
		defer wg.Done()
		pub.Update(func(next *DeviceState) { next.Source = "signal" })
	}()
	wg.Wait()

	s := pub.Current()
	if s.Input != "hdmi1" || s.Source != "signal" {
		t.Errorf("snapshot = %+v, one concurrent update was lost", s)
	}
	if s.Power != PowerOn {
		t.Errorf("power = %q, untouched field changed", s.Power)
	}
}

func TestStatePublisher_UpdateNoChange(t *testing.T) {
	pub := newStatePublisher()
	pub.Publish(&DeviceState{Power: PowerOn})
	before := pub.Current()

	if changes := pub.Update(func(next *DeviceState) { next.Power = PowerOn }); changes != nil {
		t.Errorf("no-op update reported changes: %v", changes)
	}
	if pub.Current() != before {
		t.Error("no-op update replaced the snapshot reference")
	}
}

func TestBackoff_DoublesToCeiling(t *testing.T) {
	b := newBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if !b.Sleep(ctx) {
			t.Fatal("Sleep returned false without cancellation")
		}
	}
	if b.current != 4*time.Millisecond {
		t.Errorf("current = %v, want ceiling 4ms", b.current)
	}
	b.Reset()
	if b.current != time.Millisecond {
		t.Errorf("current after Reset = %v, want 1ms", b.current)
	}
}

func TestBackoff_CancelledContext(t *testing.T) {
	b := newBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if b.Sleep(ctx) {
		t.Error("Sleep returned true on a cancelled context")
	}
}
