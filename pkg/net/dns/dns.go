// Package dns provides the DNS wire codec for the stack's resolver: query
// encoding and response parsing for A records. The transport (UDP send plus
// the poll loop) lives in pkg/netstack/stack; this package never does I/O.
package dns

import (
	"errors"
	"fmt"

	"pondos/pkg/netstack"
)

// Port is the standard DNS server port.
const Port = 53

// Header flags for a standard recursive query.
const flagsQueryRD = 0x0100

// Record and class constants used by the resolver.
const (
	TypeA   = 1
	ClassIN = 1
)

// HeaderLength is the fixed DNS message header size.
const HeaderLength = 12

var (
	// ErrInvalidMessage indicates a response too short or malformed to walk.
	ErrInvalidMessage = errors.New("dns: invalid message")
	// ErrIDMismatch indicates a response for a different transaction.
	ErrIDMismatch = errors.New("dns: transaction id mismatch")
	// ErrNoAnswer indicates the response held no usable A record.
	ErrNoAnswer = errors.New("dns: no A record in response")
)

// EncodeQuery builds a standard recursive query for the host's A record:
// header, the name as length-prefixed labels, QTYPE=A, QCLASS=IN.
func EncodeQuery(id uint16, host string) ([]byte, error) {
	if len(host) == 0 || len(host) > 253 {
		return nil, fmt.Errorf("dns: bad hostname length %d", len(host))
	}

	buf := make([]byte, 0, HeaderLength+len(host)+6)
	buf = append(buf,
		byte(id>>8), byte(id),
		flagsQueryRD>>8, flagsQueryRD&0xFF,
		0, 1, // QDCOUNT
		0, 0, // ANCOUNT
		0, 0, // NSCOUNT
		0, 0, // ARCOUNT
	)

	start := 0
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			label := host[start:i]
			if len(label) == 0 || len(label) > 63 {
				return nil, fmt.Errorf("dns: bad label %q", label)
			}
			buf = append(buf, byte(len(label)))
			buf = append(buf, label...)
			start = i + 1
		}
	}
	buf = append(buf, 0) // root label

	buf = append(buf, 0, TypeA, 0, ClassIN)
	return buf, nil
}

// ParseResponse extracts the first A record from a response to transaction
// id. Question and answer names may use compression; both forms are skipped
// without being decoded.
func ParseResponse(msg []byte, id uint16) (netstack.Addr, error) {
	if len(msg) < HeaderLength {
		return netstack.ZeroAddr, ErrInvalidMessage
	}
	if uint16(msg[0])<<8|uint16(msg[1]) != id {
		return netstack.ZeroAddr, ErrIDMismatch
	}

	qdcount := int(msg[4])<<8 | int(msg[5])
	ancount := int(msg[6])<<8 | int(msg[7])
	if ancount == 0 {
		return netstack.ZeroAddr, ErrNoAnswer
	}

	pos := HeaderLength
	for i := 0; i < qdcount; i++ {
		var ok bool
		pos, ok = skipName(msg, pos)
		if !ok || pos+4 > len(msg) {
			return netstack.ZeroAddr, ErrInvalidMessage
		}
		pos += 4 // QTYPE, QCLASS
	}

	for i := 0; i < ancount; i++ {
		var ok bool
		pos, ok = skipName(msg, pos)
		if !ok || pos+10 > len(msg) {
			return netstack.ZeroAddr, ErrInvalidMessage
		}

		rtype := int(msg[pos])<<8 | int(msg[pos+1])
		rdlength := int(msg[pos+8])<<8 | int(msg[pos+9])
		pos += 10

		if pos+rdlength > len(msg) {
			return netstack.ZeroAddr, ErrInvalidMessage
		}
		if rtype == TypeA && rdlength == 4 {
			var a netstack.Addr
			copy(a[:], msg[pos:pos+4])
			return a, nil
		}
		pos += rdlength
	}

	return netstack.ZeroAddr, ErrNoAnswer
}

// skipName advances past a possibly compressed domain name. A compression
// pointer (top two bits set) ends the name in two bytes; literal labels run
// until the zero length byte.
func skipName(msg []byte, pos int) (int, bool) {
	for pos < len(msg) {
		l := int(msg[pos])
		switch {
		case l == 0:
			return pos + 1, true
		case l&0xC0 == 0xC0:
			if pos+2 > len(msg) {
				return 0, false
			}
			return pos + 2, true
		default:
			pos += 1 + l
		}
	}
	return 0, false
}
