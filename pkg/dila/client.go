// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client is the public facade for one projector. It composes the
// connection manager, the command queue, and the state poller behind a
// small API; the presentation layer only ever talks to this type.
//
// A Client is safe for concurrent use. Disconnect is terminal: create a
// new Client to talk to the projector again after an explicit
// disconnect. Recovering from the Unavailable state, by contrast, is
// just another Connect call on the same Client.
type Client struct {
	host       string
	port       int
	credential string
	dial       DialFunc
	handshake  bool

	connectTimeout   time.Duration
	handshakeTimeout time.Duration
	commandTimeout   time.Duration
	pollInterval     time.Duration
	freshness        time.Duration
	backoffBase      time.Duration
	backoffMax       time.Duration
	maxRetries       int

	log zerolog.Logger

	q   *commandQueue
	pub *statePublisher
	mgr *manager
	pol *poller

	tableMu sync.RWMutex
	table   CommandTable
	model   string

	mu      sync.Mutex
	started bool
	closed  bool
	runCtx  context.Context
	cancel  context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithPort sets the TCP control port (default 20554).
func WithPort(port int) Option {
	return func(c *Client) { c.port = port }
}

// WithPassword sets the projector's network password. The credential
// actually sent is the salted MD5 digest; the plaintext is not kept.
func WithPassword(password string) Option {
	return func(c *Client) {
		if password != "" {
			c.credential = HashPassword(password)
		}
	}
}

// WithCredential sets a pre-hashed credential (see HashPassword).
func WithCredential(credential string) Option {
	return func(c *Client) { c.credential = credential }
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithConnectTimeout bounds each dial attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

// WithHandshakeTimeout bounds each handshake step.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) { c.handshakeTimeout = d }
}

// WithCommandTimeout bounds each dispatched command.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Client) { c.commandTimeout = d }
}

// WithPollInterval sets the status poll period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithFreshness sets how old the last good poll may get before the
// published snapshot is flagged stale.
func WithFreshness(d time.Duration) Option {
	return func(c *Client) { c.freshness = d }
}

// WithBackoff sets the reconnect backoff base delay and ceiling.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) { c.backoffBase, c.backoffMax = base, max }
}

// WithMaxRetries sets how many consecutive reconnect attempts are made
// before the client parks in the Unavailable state.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithDialer replaces the transport dialer. The session handshake still
// runs on the new transport.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// WithSerial switches the client to the RS-232 control port, which
// speaks the same command set without the LAN session handshake.
func WithSerial(device string, baud int) Option {
	return func(c *Client) {
		c.dial = SerialDialer(device, baud)
		c.handshake = false
	}
}

// New creates a client for the projector at host. No I/O happens until
// Connect.
func New(host string, opts ...Option) *Client {
	c := &Client{
		host:      host,
		port:      DefaultPort,
		handshake: true,
		log:       zerolog.Nop(),
		q:         newCommandQueue(),
		pub:       newStatePublisher(),
		table:     TableForModel(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = TCPDialer(c.host, c.port, c.connectTimeout)
	}
	return c
}

// Connect establishes the session, blocking until the handshake
// completes or fails. After the retry budget sends the client to
// Unavailable, calling Connect again starts a fresh cycle.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: client closed", ErrUnavailable)
	}
	if !c.started {
		c.runCtx, c.cancel = context.WithCancel(context.Background())
		c.mgr = newManager(managerConfig{
			dial:             c.dial,
			credential:       c.credential,
			handshake:        c.handshake,
			handshakeTimeout: c.handshakeTimeout,
			commandTimeout:   c.commandTimeout,
			backoffBase:      c.backoffBase,
			backoffMax:       c.backoffMax,
			maxRetries:       c.maxRetries,
			log:              c.log,
			onReady:          c.onSessionReady,
		}, c.q)
		c.pol = newPoller(c, c.pollInterval, c.freshness)
		go c.mgr.run(c.runCtx)
		go c.pol.run(c.runCtx)
		c.started = true
	} else if c.mgr.ConnState() == StateUnavailable {
		c.mgr.wakeReconnect()
	}
	mgr := c.mgr
	c.mu.Unlock()

	return mgr.waitReady(ctx)
}

// Disconnect tears the session down and releases all resources.
// Outstanding and future commands fail with ErrUnavailable.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.q.close(fmt.Errorf("%w: client closed", ErrUnavailable))
	c.log.Info().Msg("disconnected")
}

// IsConnected reports whether a session is ready for traffic.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	return mgr != nil && mgr.IsConnected()
}

// ConnState returns the connection manager's state.
func (c *Client) ConnState() ConnState {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr == nil {
		return StateDisconnected
	}
	return mgr.ConnState()
}

// Session returns a copy of the live session, if any.
func (c *Client) Session() (Session, bool) {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr == nil {
		return Session{}, false
	}
	return mgr.Session()
}

// Model returns the model name reported by the projector, or empty
// before identification.
func (c *Client) Model() string {
	c.tableMu.RLock()
	defer c.tableMu.RUnlock()
	return c.model
}

// Commands returns the names in the active command table.
func (c *Client) Commands() []string {
	c.tableMu.RLock()
	defer c.tableMu.RUnlock()
	return c.table.Names()
}

// Operation enqueues a named state-changing command. It returns once
// the projector acknowledges, or with a typed failure.
func (c *Client) Operation(ctx context.Context, name, arg string) error {
	c.tableMu.RLock()
	code, err := c.table.Operation(name, arg)
	c.tableMu.RUnlock()
	if err != nil {
		return err
	}
	p := c.q.enqueue(request{kind: kindOperation, name: name, code: code})
	_, err = p.Wait(ctx)
	return err
}

// Reference enqueues a named read command and returns the formatted
// value.
func (c *Client) Reference(ctx context.Context, name string) (string, error) {
	c.tableMu.RLock()
	code, err := c.table.Reference(name)
	c.tableMu.RUnlock()
	if err != nil {
		return "", err
	}
	p := c.q.enqueue(request{kind: kindReference, name: name, code: code})
	raw, err := p.Wait(ctx)
	if err != nil {
		return "", err
	}
	return FormatValue(code, raw), nil
}

// SendCommand sends a named command: with an empty arg it reads the
// value (when the command is readable), otherwise it performs the
// operation. This is the generic entry point for presentation layers.
func (c *Client) SendCommand(ctx context.Context, name, arg string) (string, error) {
	c.tableMu.RLock()
	cmd, ok := c.table[name]
	c.tableMu.RUnlock()
	if !ok {
		return "", &CommandError{Name: name, Reason: "not in command table for this model"}
	}
	if arg == "" && cmd.Ref != "" {
		return c.Reference(ctx, name)
	}
	return "", c.Operation(ctx, name, arg)
}

// RemoteCode sends an IR pass-through code for a named remote button.
func (c *Client) RemoteCode(ctx context.Context, button string) error {
	code, ok := RemoteButtons[button]
	if !ok {
		return &CommandError{Name: CmdRemote, Reason: "unknown button " + button}
	}
	return c.Operation(ctx, CmdRemote, code)
}

// PowerOn turns the projector on.
func (c *Client) PowerOn(ctx context.Context) error {
	return c.Operation(ctx, CmdPower, "on")
}

// PowerOff puts the projector into standby.
func (c *Client) PowerOff(ctx context.Context) error {
	return c.Operation(ctx, CmdPower, "off")
}

// State returns the latest published snapshot; never nil, possibly
// flagged stale. The snapshot is immutable: callers must not modify it.
func (c *Client) State() *DeviceState {
	return c.pub.Current()
}

// Subscribe registers fn for state-change notifications and returns an
// unsubscribe function.
func (c *Client) Subscribe(fn StateFunc) func() {
	return c.pub.Subscribe(fn)
}

// onSessionReady runs after every successful handshake: identify the
// model, select its command table, then schedule an immediate poll.
func (c *Client) onSessionReady() {
	go func() {
		ctx, cancel := context.WithTimeout(c.runCtx, 30*time.Second)
		defer cancel()

		model, err := c.Reference(ctx, CmdModel)
		if err != nil {
			c.log.Warn().Err(err).Msg("model identification failed")
		} else {
			c.tableMu.Lock()
			c.model = model
			c.table = TableForModel(model)
			c.tableMu.Unlock()
			c.log.Info().Str("model", model).Msg("projector identified")
		}

		mac, macErr := c.Reference(ctx, CmdMac)

		c.pub.Update(func(next *DeviceState) {
			if err == nil {
				next.Model = model
			}
			if macErr == nil {
				next.Mac = mac
			}
			next.UpdatedAt = time.Now()
		})

		c.pol.kick()
	}()
}
