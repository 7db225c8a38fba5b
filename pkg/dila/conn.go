// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.bug.st/serial"
)

// Transport provides a common interface for reading/writing bytes to
// the projector over TCP or RS-232. Deadlines bound blocking reads so
// the I/O loop can observe shutdown and per-step timeouts.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
	SetDeadline(t time.Time) error
}

// DialFunc opens a fresh Transport. The connection manager owns the
// returned transport exclusively and closes it on any failure.
type DialFunc func(ctx context.Context) (Transport, error)

// TCPDialer returns a DialFunc for the projector's LAN control port.
func TCPDialer(host string, port int, timeout time.Duration) DialFunc {
	if port <= 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return func(ctx context.Context) (Transport, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, addr, err)
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		return conn, nil
	}
}

// serialTransport wraps a serial port behind the Transport interface.
// Write deadlines are not supported by the port; only read timeouts map.
type serialTransport struct {
	port serial.Port
}

func (s *serialTransport) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *serialTransport) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *serialTransport) Close() error                { return s.port.Close() }

func (s *serialTransport) SetDeadline(t time.Time) error {
	if t.IsZero() {
		return s.port.SetReadTimeout(serial.NoTimeout)
	}
	d := time.Until(t)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return s.port.SetReadTimeout(d)
}

// SerialDialer returns a DialFunc for the projector's RS-232 control
// port. The serial path speaks the same command protocol but skips the
// LAN session handshake; pair it with WithSerial on the client.
func SerialDialer(device string, baud int) DialFunc {
	if baud <= 0 {
		baud = DefaultSerialBaud
	}
	return func(ctx context.Context) (Transport, error) {
		mode := &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(device, mode)
		if err != nil {
			return nil, fmt.Errorf("%w: open serial port %s: %v", ErrTransport, device, err)
		}
		return &serialTransport{port: port}, nil
	}
}
