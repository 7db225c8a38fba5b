// SPDX-License-Identifier: Apache-2.0

package dila

import (
	"fmt"
	"time"
)

// Packet represents one decoded protocol frame
type Packet struct {
	Class     byte
	Code      string // two-character echoed command code
	Data      []byte // payload between the code and the end byte
	Timestamp time.Time
}

// IsAck returns true if the packet acknowledges a command
func (p *Packet) IsAck() bool {
	return p.Class == ClassAck
}

// IsResponse returns true if the packet carries a reference reply
func (p *Packet) IsResponse() bool {
	return p.Class == ClassResponse
}

// String renders the packet for logs and diagnostics.
func (p *Packet) String() string {
	class := "?"
	switch p.Class {
	case ClassOperation:
		class = "OP"
	case ClassReference:
		class = "REF"
	case ClassResponse:
		class = "RES"
	case ClassAck:
		class = "ACK"
	}
	if len(p.Data) == 0 {
		return fmt.Sprintf("%s %s", class, p.Code)
	}
	return fmt.Sprintf("%s %s %q", class, p.Code, p.Data)
}

// validClass reports whether b can start a frame.
func validClass(b byte) bool {
	switch b {
	case ClassOperation, ClassReference, ClassResponse, ClassAck:
		return true
	}
	return false
}
