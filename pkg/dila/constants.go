// SPDX-License-Identifier: Apache-2.0

// Package dila implements the JVC D-ILA projector external command
// protocol over TCP (LAN control port) or RS-232.
//
// The package provides the full protocol engine: wire encoding/decoding,
// the PJ_OK/PJREQ/PJACK handshake with optional password authentication,
// a connection manager with reconnect/backoff, a strictly ordered
// single-in-flight command queue, and a periodic state poller publishing
// immutable device-state snapshots.
package dila

import "time"

// Handshake tokens exchanged before any framed traffic.
var (
	GreetingOK  = []byte("PJ_OK") // projector ready for a session
	GreetingNG  = []byte("PJ_NG") // projector busy, try again later
	Request     = []byte("PJREQ") // client session request
	RequestSep  = []byte("_")     // separates PJREQ from the credential
	Ack         = []byte("PJACK") // session accepted
	Nak         = []byte("PJNAK") // credential rejected
	tokenLength = len(GreetingOK)
)

// AuthSalt is appended to the network password before hashing.
const AuthSalt = "JVCKWPJ"

// Frame header bytes. Every framed message is a packet-class byte,
// the two-byte unit identifier, a two-byte command code, an optional
// payload, and the end byte.
const (
	ClassOperation = '!'  // host -> projector, state-changing command
	ClassReference = '?'  // host -> projector, read request
	ClassResponse  = '@'  // projector -> host, reference reply
	ClassAck       = 0x06 // projector -> host, command acknowledgment

	EndByte = '\n'
)

// UnitID addresses the projector itself; fixed across the D-ILA family.
var UnitID = []byte{0x89, 0x01}

const (
	headLength   = 3 // class byte + unit ID
	codeLength   = 2 // echoed command code
	minFrameSize = headLength + codeLength
	// MaxFrameSize bounds resynchronization when the stream carries
	// garbage without an end byte. The longest defined response
	// (model name) is well under this.
	MaxFrameSize = 64
)

// Network defaults.
const (
	DefaultPort       = 20554
	DefaultSerialBaud = 19200
)

// Protocol timing defaults.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultCommandTimeout   = 5 * time.Second
	DefaultPollInterval     = 10 * time.Second
	DefaultFreshness        = 30 * time.Second

	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffMax  = 30 * time.Second
	DefaultMaxRetries  = 8

	// Consecutive decode failures tolerated before the connection is
	// considered corrupt and torn down for a full reconnect.
	corruptionThreshold = 5
)
