// Package tcp provides the TCP segment codec. The connection state machine
// lives in pkg/netstack/stack; this package only encodes and decodes headers.
package tcp

import (
	"encoding/binary"
	"fmt"

	"pondos/pkg/netstack"
)

// TCP header length in bytes (the stack never emits options).
const HeaderLength = 20

// TCP control flags.
const (
	FlagFIN uint8 = 0x01
	FlagSYN uint8 = 0x02
	FlagRST uint8 = 0x04
	FlagPSH uint8 = 0x08
	FlagACK uint8 = 0x10
)

// DefaultWindow is the receive window advertised on every segment.
const DefaultWindow = 8192

// MSS is the largest payload carried in a single outgoing segment.
const MSS = 1400

// Header represents a TCP header.
type Header struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8 // header length in 32-bit words
	Flags      uint8
	Window     uint16
	Checksum   uint16
	Urgent     uint16
}

// ParseHeader parses a TCP header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("TCP header too short: %d bytes", len(data))
	}

	h := &Header{
		SrcPort:    binary.BigEndian.Uint16(data[0:2]),
		DstPort:    binary.BigEndian.Uint16(data[2:4]),
		Seq:        binary.BigEndian.Uint32(data[4:8]),
		Ack:        binary.BigEndian.Uint32(data[8:12]),
		DataOffset: data[12] >> 4,
		Flags:      data[13],
		Window:     binary.BigEndian.Uint16(data[14:16]),
		Checksum:   binary.BigEndian.Uint16(data[16:18]),
		Urgent:     binary.BigEndian.Uint16(data[18:20]),
	}
	if h.HeaderLen() < HeaderLength || h.HeaderLen() > len(data) {
		return nil, fmt.Errorf("invalid TCP data offset: %d", h.DataOffset)
	}

	return h, nil
}

// HeaderLen returns the header length in bytes, options included.
func (h *Header) HeaderLen() int {
	return int(h.DataOffset) * 4
}

// Payload returns the segment payload of data, which must be the buffer the
// header was parsed from.
func (h *Header) Payload(data []byte) []byte {
	return data[h.HeaderLen():]
}

// Serialize serializes the header to bytes with a zero checksum field; the
// checksum is filled in by BuildSegment once the payload is known.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderLength)
	binary.BigEndian.PutUint16(buf[0:2], h.SrcPort)
	binary.BigEndian.PutUint16(buf[2:4], h.DstPort)
	binary.BigEndian.PutUint32(buf[4:8], h.Seq)
	binary.BigEndian.PutUint32(buf[8:12], h.Ack)
	buf[12] = h.DataOffset << 4
	buf[13] = h.Flags
	binary.BigEndian.PutUint16(buf[14:16], h.Window)
	binary.BigEndian.PutUint16(buf[18:20], h.Urgent)
	return buf
}

// BuildSegment serializes a complete segment with the pseudo-header checksum
// computed over src and dst.
func BuildSegment(h *Header, src, dst netstack.Addr, payload []byte) []byte {
	buf := append(h.Serialize(), payload...)
	h.Checksum = netstack.PseudoHeaderChecksum(src, dst, netstack.ProtocolTCP, buf)
	binary.BigEndian.PutUint16(buf[16:18], h.Checksum)
	return buf
}

// NewHeader creates a header for an outgoing segment.
func NewHeader(srcPort, dstPort uint16, seq, ack uint32, flags uint8) *Header {
	return &Header{
		SrcPort:    srcPort,
		DstPort:    dstPort,
		Seq:        seq,
		Ack:        ack,
		DataOffset: 5,
		Flags:      flags,
		Window:     DefaultWindow,
	}
}
