// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by this package wraps exactly one
// of these sentinels, so callers can classify with errors.Is.
var (
	ErrTransport   = errors.New("dila: transport error")
	ErrProtocol    = errors.New("dila: protocol error")
	ErrAuth        = errors.New("dila: authentication rejected")
	ErrTimeout     = errors.New("dila: timeout")
	ErrCommand     = errors.New("dila: command rejected")
	ErrUnavailable = errors.New("dila: projector unavailable")
	ErrCancelled   = errors.New("dila: request cancelled")
)

// CommandError reports a semantic failure for a single command: the
// projector (or the active command table) rejected it without the
// session itself failing.
type CommandError struct {
	Name   string // command name as enqueued
	Reason string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("dila: command %q rejected: %s", e.Name, e.Reason)
}

// Is makes CommandError match ErrCommand.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommand
}

// invalidFrame wraps a framing fault as a protocol error.
func invalidFrame(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
