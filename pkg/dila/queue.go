// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// requestKind distinguishes state-changing operations (ack only) from
// references (ack plus a response frame carrying a value).
type requestKind int

const (
	kindOperation requestKind = iota
	kindReference
)

// request is one resolved command ready for the wire.
type request struct {
	kind requestKind
	name string // table name, for error reporting
	code string // full wire code including argument characters
}

// echo returns the two-character code the projector echoes back in ack
// and response frames; correlation matches on it.
func (r request) echo() string {
	return r.code[:codeLength]
}

// PendingRequest is the completion handle for one enqueued command.
// It resolves exactly once, with a value or a typed failure.
type PendingRequest struct {
	req       request
	queuedAt  time.Time
	issuedAt  time.Time
	value     string
	err       error
	done      chan struct{}
	once      sync.Once
	cancelled atomic.Bool
}

func newPending(req request) *PendingRequest {
	return &PendingRequest{
		req:      req,
		queuedAt: time.Now(),
		done:     make(chan struct{}),
	}
}

// Wait blocks until the request resolves or ctx is done. A context
// cancellation withdraws the caller's interest only: a request already
// on the wire still runs to completion or timeout internally.
func (p *PendingRequest) Wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		p.Cancel()
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Cancel withdraws interest in the result. If the request has not been
// dispatched yet it is never sent; once dispatched the protocol offers
// no cancel primitive, so only the caller's interest is discarded.
func (p *PendingRequest) Cancel() {
	p.cancelled.Store(true)
}

// Done returns a channel closed when the request resolves.
func (p *PendingRequest) Done() <-chan struct{} {
	return p.done
}

// resolve completes the request. Safe to call more than once; only the
// first outcome sticks.
func (p *PendingRequest) resolve(value string, err error) {
	p.once.Do(func() {
		p.value = value
		p.err = err
		close(p.done)
	})
}

// commandQueue serializes outbound commands. Dispatch order is exactly
// enqueue order; the dispatcher takes one request at a time, so at most
// one command is ever in flight.
type commandQueue struct {
	mu        sync.Mutex
	items     []*PendingRequest
	notify    chan struct{}
	closed    bool
	rejectErr error
}

func newCommandQueue() *commandQueue {
	return &commandQueue{notify: make(chan struct{}, 1)}
}

// enqueue appends a request and returns its completion handle. After
// close every enqueue resolves immediately with ErrUnavailable, and
// while the queue is rejecting (connection parked in Unavailable) every
// enqueue resolves immediately with the rejection error rather than
// being held for a session that is not coming back on its own.
func (q *commandQueue) enqueue(req request) *PendingRequest {
	p := newPending(req)
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		p.resolve("", fmt.Errorf("%w: client closed", ErrUnavailable))
		return p
	}
	if q.rejectErr != nil {
		err := q.rejectErr
		q.mu.Unlock()
		p.resolve("", err)
		return p
	}
	q.items = append(q.items, p)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return p
}

// tryNext pops the next dispatchable request, if any. Requests
// cancelled before dispatch are resolved with ErrCancelled and skipped.
func (q *commandQueue) tryNext() (*PendingRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) > 0 {
		p := q.items[0]
		q.items = q.items[1:]
		if p.cancelled.Load() {
			p.resolve("", ErrCancelled)
			continue
		}
		return p, true
	}
	return nil, false
}

// wait returns the channel signalled on enqueue.
func (q *commandQueue) wait() <-chan struct{} {
	return q.notify
}

// reject makes subsequent enqueues fail immediately with err, until
// accept restores normal holding.
func (q *commandQueue) reject(err error) {
	q.mu.Lock()
	q.rejectErr = err
	q.mu.Unlock()
}

// accept clears a prior reject; enqueues are held again.
func (q *commandQueue) accept() {
	q.mu.Lock()
	q.rejectErr = nil
	q.mu.Unlock()
}

// failAll resolves every queued request with err. Used when the retry
// budget is exhausted or the client shuts down.
func (q *commandQueue) failAll(err error) {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	for _, p := range items {
		p.resolve("", err)
	}
}

// close marks the queue closed and fails everything still waiting.
func (q *commandQueue) close(err error) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.failAll(err)
}

// depth returns the number of requests waiting for dispatch.
func (q *commandQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
