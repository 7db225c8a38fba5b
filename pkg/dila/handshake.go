// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Handshake states.
type HandshakeState int

const (
	HandshakeDisconnected HandshakeState = iota
	HandshakeGreetingWait
	HandshakeRequestSent
	HandshakeReady
	HandshakeFailed
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeDisconnected:
		return "disconnected"
	case HandshakeGreetingWait:
		return "greeting-wait"
	case HandshakeRequestSent:
		return "request-sent"
	case HandshakeReady:
		return "ready"
	case HandshakeFailed:
		return "failed"
	}
	return "unknown"
}

// HashPassword computes the credential sent during an authenticated
// handshake: the hex MD5 digest of the network password with the fixed
// protocol suffix appended.
func HashPassword(password string) string {
	sum := md5.Sum([]byte(password + AuthSalt))
	return hex.EncodeToString(sum[:])
}

// Negotiator drives the session handshake: wait for the projector's
// greeting, send the session request (with the hashed credential when a
// password is configured), and wait for the accept/reject token. Ready
// is the only outcome from which command traffic may flow.
type Negotiator struct {
	credential string
	timeout    time.Duration
	state      HandshakeState
}

// NewNegotiator creates a handshake negotiator. credential is the
// pre-hashed password (from HashPassword), or empty when the projector
// has no network password configured.
func NewNegotiator(credential string, timeout time.Duration) *Negotiator {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	return &Negotiator{credential: credential, timeout: timeout}
}

// State returns the negotiator's last observed state.
func (n *Negotiator) State() HandshakeState {
	return n.state
}

// Run performs the handshake on a freshly connected transport. Each step
// is bounded by the configured timeout; a missing reply fails the
// handshake with ErrTimeout, a rejection with ErrAuth.
func (n *Negotiator) Run(t Transport) error {
	n.state = HandshakeGreetingWait

	greeting := make([]byte, tokenLength)
	if err := n.readToken(t, greeting); err != nil {
		n.state = HandshakeFailed
		return fmt.Errorf("handshake greeting: %w", err)
	}

	switch {
	case bytes.Equal(greeting, GreetingOK):
	case bytes.Equal(greeting, GreetingNG):
		n.state = HandshakeFailed
		return fmt.Errorf("%w: projector busy (PJ_NG)", ErrTransport)
	default:
		n.state = HandshakeFailed
		return invalidFrame("unexpected greeting %q", greeting)
	}

	t.SetDeadline(time.Now().Add(n.timeout))
	if _, err := t.Write(encodeHandshake(n.credential)); err != nil {
		n.state = HandshakeFailed
		return fmt.Errorf("%w: handshake request: %v", ErrTransport, err)
	}
	n.state = HandshakeRequestSent

	result := make([]byte, tokenLength)
	if err := n.readToken(t, result); err != nil {
		n.state = HandshakeFailed
		return fmt.Errorf("handshake result: %w", err)
	}

	switch {
	case bytes.Equal(result, Ack):
		n.state = HandshakeReady
		return nil
	case bytes.Equal(result, Nak):
		n.state = HandshakeFailed
		return ErrAuth
	default:
		n.state = HandshakeFailed
		return invalidFrame("unexpected handshake result %q", result)
	}
}

// readToken reads exactly one handshake token under the step deadline.
func (n *Negotiator) readToken(t Transport, buf []byte) error {
	t.SetDeadline(time.Now().Add(n.timeout))
	if _, err := io.ReadFull(t, buf); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: no reply within %s", ErrTimeout, n.timeout)
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// isTimeout reports whether err is a deadline expiry from the transport.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
