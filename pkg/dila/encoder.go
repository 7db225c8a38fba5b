// SPDX-License-Identifier: Apache-2.0

package dila

// EncodeRequest builds the wire bytes for an outbound frame: the packet
// class, the unit identifier, the full command code (including any
// argument characters), and the end byte. Encoding is deterministic and
// never fails for a well-formed command template.
func EncodeRequest(class byte, code string) []byte {
	out := make([]byte, 0, headLength+len(code)+1)
	out = append(out, class)
	out = append(out, UnitID...)
	out = append(out, code...)
	out = append(out, EndByte)
	return out
}

// EncodePacket re-encodes a decoded packet back to wire format.
// Round-trips with the decoder for any valid frame.
func EncodePacket(p *Packet) []byte {
	out := make([]byte, 0, headLength+len(p.Code)+len(p.Data)+1)
	out = append(out, p.Class)
	out = append(out, UnitID...)
	out = append(out, p.Code...)
	out = append(out, p.Data...)
	out = append(out, EndByte)
	return out
}

// encodeHandshake builds the PJREQ token, appending the hashed
// credential when a password is configured.
func encodeHandshake(credential string) []byte {
	if credential == "" {
		return Request
	}
	out := make([]byte, 0, len(Request)+1+len(credential))
	out = append(out, Request...)
	out = append(out, RequestSep...)
	out = append(out, credential...)
	return out
}
