// Package ipv4 provides the IPv4 header codec.
package ipv4

import (
	"encoding/binary"
	"fmt"

	"pondos/pkg/netstack"
)

// IPv4 header length in bytes (the stack never emits options).
const HeaderLength = 20

// DefaultTTL is the time-to-live on every outgoing packet.
const DefaultTTL = 64

// Header represents an IPv4 header.
type Header struct {
	Version  uint8
	IHL      uint8 // header length in 32-bit words
	TOS      uint8
	Length   uint16 // total datagram length
	ID       uint16
	TTL      uint8
	Protocol netstack.Protocol
	Checksum uint16
	Src      netstack.Addr
	Dst      netstack.Addr
}

// ParseHeader parses an IPv4 header from raw bytes. It rejects headers whose
// length fields point outside the buffer, so a payload slice taken at
// HeaderLen is always in bounds.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("IPv4 header too short: %d bytes", len(data))
	}

	h := &Header{
		Version:  data[0] >> 4,
		IHL:      data[0] & 0x0F,
		TOS:      data[1],
		Length:   binary.BigEndian.Uint16(data[2:4]),
		ID:       binary.BigEndian.Uint16(data[4:6]),
		TTL:      data[8],
		Protocol: netstack.Protocol(data[9]),
		Checksum: binary.BigEndian.Uint16(data[10:12]),
	}
	copy(h.Src[:], data[12:16])
	copy(h.Dst[:], data[16:20])

	if h.Version != 4 {
		return nil, fmt.Errorf("not an IPv4 packet: version %d", h.Version)
	}
	if h.HeaderLen() < HeaderLength || h.HeaderLen() > len(data) {
		return nil, fmt.Errorf("invalid IPv4 header length: %d", h.HeaderLen())
	}
	if int(h.Length) < h.HeaderLen() || int(h.Length) > len(data) {
		return nil, fmt.Errorf("invalid IPv4 total length: %d", h.Length)
	}

	return h, nil
}

// HeaderLen returns the header length in bytes.
func (h *Header) HeaderLen() int {
	return int(h.IHL) * 4
}

// Payload returns the datagram payload of data, which must be the buffer the
// header was parsed from.
func (h *Header) Payload(data []byte) []byte {
	return data[h.HeaderLen():h.Length]
}

// Serialize serializes the header to bytes with the checksum field filled in.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderLength)

	buf[0] = (h.Version << 4) | (h.IHL & 0x0F)
	buf[1] = h.TOS
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint16(buf[4:6], h.ID)
	// flags/fragment offset stay zero: the stack never fragments
	buf[8] = h.TTL
	buf[9] = uint8(h.Protocol)
	copy(buf[12:16], h.Src[:])
	copy(buf[16:20], h.Dst[:])

	h.Checksum = netstack.Checksum(buf)
	binary.BigEndian.PutUint16(buf[10:12], h.Checksum)

	return buf
}

// NewHeader creates a header for an outgoing datagram carrying payloadLen
// bytes of the given protocol.
func NewHeader(src, dst netstack.Addr, proto netstack.Protocol, id uint16, payloadLen int) *Header {
	return &Header{
		Version:  4,
		IHL:      5,
		Length:   uint16(HeaderLength + payloadLen),
		ID:       id,
		TTL:      DefaultTTL,
		Protocol: proto,
		Src:      src,
		Dst:      dst,
	}
}
