// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"context"
	"errors"
	"time"
)

// poller periodically issues the read-only status references through
// the command queue and republishes the device-state snapshot. It never
// touches the socket: transport trouble is reported to the connection
// manager, which owns reconnection.
type poller struct {
	c         *Client
	interval  time.Duration
	freshness time.Duration
	lastGood  time.Time
	pollNow   chan struct{}
}

func newPoller(c *Client, interval, freshness time.Duration) *poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &poller{
		c:         c,
		interval:  interval,
		freshness: freshness,
		pollNow:   make(chan struct{}, 1),
	}
}

// kick schedules an immediate poll cycle out of band.
func (pl *poller) kick() {
	select {
	case pl.pollNow <- struct{}{}:
	default:
	}
}

// run drives the poll loop until ctx is cancelled. All cycles run on
// this goroutine; lastGood is never touched elsewhere.
func (pl *poller) run(ctx context.Context) {
	ticker := time.NewTicker(pl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pl.pollOnce(ctx)
		case <-pl.pollNow:
			pl.pollOnce(ctx)
		}
	}
}

// extendedRefs are only meaningful while the projector is on; polling
// them in standby wastes the queue and times out on some firmware.
var extendedRefs = []struct {
	name string
	set  func(*DeviceState, string)
}{
	{CmdInput, func(s *DeviceState, v string) { s.Input = v }},
	{CmdSource, func(s *DeviceState, v string) { s.Source = v }},
	{CmdResolution, func(s *DeviceState, v string) { s.Resolution = v }},
	{CmdContentType, func(s *DeviceState, v string) { s.ContentType = v }},
	{CmdColorimetry, func(s *DeviceState, v string) { s.Colorimetry = v }},
	{CmdPictureMode, func(s *DeviceState, v string) { s.PictureMode = v }},
	{CmdLaserPower, func(s *DeviceState, v string) { s.LaserPower = v }},
	{CmdLightTime, func(s *DeviceState, v string) { s.LightTime = v }},
}

// pollOnce runs one cycle. A failed cycle never raises to State()
// callers: the last-known snapshot stays published, marked stale past
// the freshness threshold.
func (pl *poller) pollOnce(ctx context.Context) {
	// Bound the whole cycle. During a reconnect window enqueued
	// commands are held, not failed; without the bound the cycle would
	// block on them and staleness would never be evaluated.
	cycleCtx, cancel := context.WithTimeout(ctx, pl.interval)
	defer cancel()

	power, err := pl.c.Reference(cycleCtx, CmdPower)
	if err != nil {
		pl.handleFailure(err)
		return
	}

	values := make(map[string]string, len(extendedRefs))
	if power == PowerOn {
		for _, ref := range extendedRefs {
			v, err := pl.c.Reference(cycleCtx, ref.name)
			if err != nil {
				if errors.Is(err, ErrCommand) {
					continue // not in this model's table
				}
				pl.c.log.Debug().Err(err).Str("ref", ref.name).Msg("status reference failed")
				continue
			}
			values[ref.name] = v
		}
	}

	now := time.Now()
	pl.lastGood = now
	pl.publish(func(next *DeviceState) {
		next.Power = power
		next.Stale = false
		for _, ref := range extendedRefs {
			if v, ok := values[ref.name]; ok {
				ref.set(next, v)
			}
		}
		next.UpdatedAt = now
	})
}

// handleFailure keeps the last snapshot in place, flags staleness past
// the threshold, and nudges the connection manager only when the
// transport itself appears down.
func (pl *poller) handleFailure(err error) {
	pl.c.log.Debug().Err(err).Msg("poll cycle failed")

	if !pl.lastGood.IsZero() && time.Since(pl.lastGood) > pl.freshness {
		pl.publish(func(next *DeviceState) { next.Stale = true })
	}

	// A timeout while the manager believes the session is ready means
	// the transport is half-open; force a teardown and reconnect.
	if errors.Is(err, ErrTimeout) && pl.c.mgr.IsConnected() {
		pl.c.log.Warn().Msg("poll timed out on a live session, requesting reconnect")
		pl.c.mgr.kickReconnect()
	}
}

func (pl *poller) publish(fn func(*DeviceState)) {
	changes := pl.c.pub.Update(fn)
	for _, ch := range changes {
		pl.c.log.Debug().
			Str("field", ch.Field).
			Str("from", ch.From).
			Str("to", ch.To).
			Msg("state changed")
	}
}
