// Package ethernet provides Ethernet frame and ARP packet codecs plus the
// fixed-size ARP cache used by the stack engine.
package ethernet

import (
	"encoding/binary"
	"fmt"

	"pondos/pkg/netstack"
)

// Ethernet header length in bytes.
const HeaderLength = 14

// MinFrameLength is the minimum Ethernet frame length (before FCS); shorter
// frames are zero-padded on the wire.
const MinFrameLength = 60

// Frame represents an Ethernet frame.
type Frame struct {
	Dst     netstack.MAC
	Src     netstack.MAC
	Type    netstack.EtherType
	Payload []byte
}

// ParseFrame parses an Ethernet frame from raw bytes.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}

	f := &Frame{
		Type:    netstack.EtherType(binary.BigEndian.Uint16(data[12:14])),
		Payload: data[14:],
	}
	copy(f.Dst[:], data[0:6])
	copy(f.Src[:], data[6:12])

	return f, nil
}

// Serialize serializes the frame to bytes, zero-padding to the Ethernet
// minimum frame length.
func (f *Frame) Serialize() []byte {
	n := HeaderLength + len(f.Payload)
	if n < MinFrameLength {
		n = MinFrameLength
	}

	buf := make([]byte, n)
	copy(buf[0:6], f.Dst[:])
	copy(buf[6:12], f.Src[:])
	binary.BigEndian.PutUint16(buf[12:14], uint16(f.Type))
	copy(buf[14:], f.Payload)

	return buf
}

// NewFrame creates a new Ethernet frame.
func NewFrame(dst, src netstack.MAC, etherType netstack.EtherType, payload []byte) *Frame {
	return &Frame{
		Dst:     dst,
		Src:     src,
		Type:    etherType,
		Payload: payload,
	}
}
