// Package udp provides the UDP datagram codec.
package udp

import (
	"encoding/binary"
	"fmt"
)

// UDP header length in bytes.
const HeaderLength = 8

// Header represents a UDP header.
type Header struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16 // header plus payload
	Checksum uint16
}

// ParseHeader parses a UDP header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("UDP header too short: %d bytes", len(data))
	}

	h := &Header{
		SrcPort:  binary.BigEndian.Uint16(data[0:2]),
		DstPort:  binary.BigEndian.Uint16(data[2:4]),
		Length:   binary.BigEndian.Uint16(data[4:6]),
		Checksum: binary.BigEndian.Uint16(data[6:8]),
	}
	if int(h.Length) < HeaderLength || int(h.Length) > len(data) {
		return nil, fmt.Errorf("invalid UDP length: %d", h.Length)
	}

	return h, nil
}

// Payload returns the datagram payload of data, which must be the buffer the
// header was parsed from.
func (h *Header) Payload(data []byte) []byte {
	return data[HeaderLength:h.Length]
}

// Build serializes a UDP datagram carrying payload. The checksum is left
// zero, which UDP over IPv4 defines as "not computed".
func Build(srcPort, dstPort uint16, payload []byte) []byte {
	buf := make([]byte, HeaderLength+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], srcPort)
	binary.BigEndian.PutUint16(buf[2:4], dstPort)
	binary.BigEndian.PutUint16(buf[4:6], uint16(HeaderLength+len(payload)))
	copy(buf[HeaderLength:], payload)
	return buf
}
