// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ConnState is the connection manager's externally visible state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateReady
	StateReconnecting
	StateUnavailable
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Session represents one live authenticated connection. Created after a
// successful handshake, destroyed on any transport failure or explicit
// disconnect.
type Session struct {
	ConnectedAt   time.Time
	LastActivity  time.Time
	Authenticated bool
}

// managerConfig carries the knobs the client facade resolves from its
// options.
type managerConfig struct {
	dial             DialFunc
	credential       string
	handshake        bool
	handshakeTimeout time.Duration
	commandTimeout   time.Duration
	backoffBase      time.Duration
	backoffMax       time.Duration
	maxRetries       int
	log              zerolog.Logger
	onReady          func()
}

// manager owns the single transport and the Session, and runs the
// dispatch/correlate loop. No other component touches the socket.
type manager struct {
	cfg managerConfig
	q   *commandQueue

	state atomic.Int32

	mu      sync.Mutex
	session *Session
	waiters []chan error

	kick chan struct{} // force-drop the current transport
	wake chan struct{} // leave Unavailable and retry
}

func newManager(cfg managerConfig, q *commandQueue) *manager {
	if cfg.commandTimeout <= 0 {
		cfg.commandTimeout = DefaultCommandTimeout
	}
	if cfg.maxRetries <= 0 {
		cfg.maxRetries = DefaultMaxRetries
	}
	return &manager{
		cfg:  cfg,
		q:    q,
		kick: make(chan struct{}, 1),
		wake: make(chan struct{}, 1),
	}
}

// ConnState returns the current connection state.
func (m *manager) ConnState() ConnState {
	return ConnState(m.state.Load())
}

// IsConnected reports whether a session is ready for command traffic.
func (m *manager) IsConnected() bool {
	return m.ConnState() == StateReady
}

// Session returns a copy of the live session, if any.
func (m *manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// waitReady blocks until the next Ready transition (nil) or terminal
// failure (the error that sent the manager to Unavailable). The waiter
// registers before checking the state so a transition landing between
// the two cannot strand it until the following transition.
func (m *manager) waitReady(ctx context.Context) error {
	ch := make(chan error, 1)
	m.mu.Lock()
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	if m.IsConnected() {
		m.removeWaiter(ch)
		return nil
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		m.removeWaiter(ch)
		return ctx.Err()
	}
}

func (m *manager) removeWaiter(ch chan error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiters {
		if w == ch {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

func (m *manager) notifyWaiters(err error) {
	m.mu.Lock()
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
}

// touch records session activity under the same lock Session reads with.
func (m *manager) touch(sess *Session, t time.Time) {
	m.mu.Lock()
	sess.LastActivity = t
	m.mu.Unlock()
}

// kickReconnect drops the current transport so the run loop tears the
// session down and reconnects. Used by the poller when the transport
// looks half-open.
func (m *manager) kickReconnect() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// wakeReconnect leaves the terminal Unavailable state and starts a
// fresh connection cycle with a reset retry budget.
func (m *manager) wakeReconnect() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// run is the connection lifecycle loop: dial, handshake, serve, tear
// down, back off, repeat. It exits only when ctx is cancelled.
func (m *manager) run(ctx context.Context) {
	defer m.state.Store(int32(StateDisconnected))

	bo := newBackoff(m.cfg.backoffBase, m.cfg.backoffMax)
	attempts := 0

	for ctx.Err() == nil {
		if attempts == 0 {
			m.state.Store(int32(StateConnecting))
		} else {
			m.state.Store(int32(StateReconnecting))
		}

		t, err := m.cfg.dial(ctx)
		if err == nil && m.cfg.handshake {
			neg := NewNegotiator(m.cfg.credential, m.cfg.handshakeTimeout)
			if herr := neg.Run(t); herr != nil {
				t.Close()
				err = herr
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrAuth) {
				// Wrong credential never fixes itself; stop retrying
				// until the caller reconfigures and reconnects.
				m.enterUnavailable(ctx, err)
				attempts = 0
				bo.Reset()
				continue
			}
			attempts++
			m.cfg.log.Warn().Err(err).Int("attempt", attempts).Msg("connect failed")
			if attempts > m.cfg.maxRetries {
				m.enterUnavailable(ctx, fmt.Errorf("%w: %v", ErrUnavailable, err))
				attempts = 0
				bo.Reset()
				continue
			}
			if !bo.Sleep(ctx) {
				return
			}
			continue
		}

		attempts = 0
		bo.Reset()

		sess := &Session{
			ConnectedAt:   time.Now(),
			LastActivity:  time.Now(),
			Authenticated: m.cfg.credential != "",
		}
		m.mu.Lock()
		m.session = sess
		m.mu.Unlock()
		m.state.Store(int32(StateReady))
		m.cfg.log.Info().Msg("session ready")
		m.notifyWaiters(nil)
		if m.cfg.onReady != nil {
			m.cfg.onReady()
		}

		err = m.serve(ctx, t, sess)
		t.Close()
		m.mu.Lock()
		m.session = nil
		m.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		m.cfg.log.Warn().Err(err).Msg("session lost")
	}
}

// enterUnavailable fails everything queued, rejects new enqueues, and
// parks until the caller explicitly asks for a reconnect.
func (m *manager) enterUnavailable(ctx context.Context, cause error) {
	m.state.Store(int32(StateUnavailable))
	m.cfg.log.Error().Err(cause).Msg("entering unavailable state")

	rejection := cause
	if !errors.Is(rejection, ErrUnavailable) {
		rejection = fmt.Errorf("%w: %v", ErrUnavailable, cause)
	}
	m.q.reject(rejection)
	m.q.failAll(cause)
	m.notifyWaiters(cause)

	select {
	case <-m.wake:
		m.q.accept()
	case <-ctx.Done():
	}
}

// serve pumps the session: a reader goroutine feeds decoded frames,
// while this loop dispatches queued commands one at a time and
// correlates replies. Returns the error that ended the session.
func (m *manager) serve(ctx context.Context, t Transport, sess *Session) error {
	// Handshake reads set a deadline; framed traffic blocks freely and
	// is bounded per command instead.
	t.SetDeadline(time.Time{})

	frames := make(chan *Packet, 8)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go m.readLoop(t, frames, readErr, done)

	for {
		// Drain dispatchable commands first; the wait channel only
		// signals fresh enqueues.
		if p, ok := m.q.tryNext(); ok {
			if err := m.execute(ctx, t, sess, p, frames, readErr); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-m.kick:
			return fmt.Errorf("%w: reconnect requested", ErrTransport)
		case f := <-frames:
			// Nothing in flight; an arriving frame can only be late or
			// unsolicited.
			m.cfg.log.Warn().Stringer("frame", f).Msg("discarding unexpected frame")
		case <-m.q.wait():
		}
	}
}

// execute writes one command and waits for its ack (and, for
// references, the response frame). A timeout resolves only this
// request; the queue advances immediately afterward.
func (m *manager) execute(ctx context.Context, t Transport, sess *Session, p *PendingRequest, frames chan *Packet, readErr chan error) error {
	class := byte(ClassOperation)
	if p.req.kind == kindReference {
		class = ClassReference
	}

	p.issuedAt = time.Now()
	if _, err := t.Write(EncodeRequest(class, p.req.code)); err != nil {
		werr := fmt.Errorf("%w: write %s: %v", ErrTransport, p.req.name, err)
		p.resolve("", werr)
		return werr
	}
	m.touch(sess, p.issuedAt)

	timer := time.NewTimer(m.cfg.commandTimeout)
	defer timer.Stop()

	echo := p.req.echo()
	// The response echoes the full command code; only the first two
	// characters are in the frame code field, the rest prefix the data.
	rest := ""
	if p.req.kind == kindReference {
		rest = p.req.code[codeLength:]
	}

	for {
		select {
		case <-ctx.Done():
			p.resolve("", fmt.Errorf("%w: client closed", ErrUnavailable))
			return ctx.Err()
		case err := <-readErr:
			p.resolve("", err)
			return err
		case <-m.kick:
			err := fmt.Errorf("%w: reconnect requested", ErrTransport)
			p.resolve("", err)
			return err
		case <-timer.C:
			p.resolve("", fmt.Errorf("%w: no reply to %s within %s", ErrTimeout, p.req.name, m.cfg.commandTimeout))
			return nil
		case f := <-frames:
			m.touch(sess, f.Timestamp)
			if f.Code != echo {
				m.cfg.log.Warn().Stringer("frame", f).Str("expect", echo).Msg("response does not match in-flight command")
				continue
			}
			switch {
			case f.IsAck():
				if p.req.kind == kindOperation {
					p.resolve("", nil)
					return nil
				}
				// Reference: keep waiting for the response frame.
			case f.IsResponse() && p.req.kind == kindReference:
				data := string(f.Data)
				if !strings.HasPrefix(data, rest) {
					m.cfg.log.Warn().Stringer("frame", f).Msg("response payload does not echo command code")
					continue
				}
				p.resolve(data[len(rest):], nil)
				return nil
			default:
				m.cfg.log.Warn().Stringer("frame", f).Msg("unexpected frame class for in-flight command")
			}
		}
	}
}

// readLoop reads transport bytes into the decoder and forwards frames.
// Decode faults are logged and survived via resynchronization; repeated
// corruption beyond the threshold tears the session down.
func (m *manager) readLoop(t Transport, frames chan<- *Packet, readErr chan<- error, done <-chan struct{}) {
	dec := NewDecoder()
	buf := make([]byte, 256)
	corrupt := 0

	for {
		n, err := t.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				p, derr := dec.Next()
				if derr != nil {
					corrupt++
					m.cfg.log.Warn().Err(derr).Int("count", corrupt).Msg("frame decode failed")
					if corrupt >= corruptionThreshold {
						select {
						case readErr <- fmt.Errorf("%w: repeated stream corruption", ErrProtocol):
						case <-done:
						}
						return
					}
					continue
				}
				if p == nil {
					break
				}
				corrupt = 0
				select {
				case frames <- p:
				case <-done:
					return
				}
			}
		}
		if err != nil {
			select {
			case readErr <- fmt.Errorf("%w: read: %v", ErrTransport, err):
			case <-done:
			}
			return
		}
	}
}
