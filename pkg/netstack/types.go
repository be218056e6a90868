package netstack

import "fmt"

// Protocol identifies the upper-layer protocol of an IPv4 packet.
type Protocol uint8

// IPv4 protocol numbers.
const (
	ProtocolTCP Protocol = 6
	ProtocolUDP Protocol = 17
)

// EtherType identifies the Ethernet frame payload type.
type EtherType uint16

// EtherType values handled by the stack.
const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// Addr is an IPv4 address in network byte order.
type Addr [4]byte

// ZeroAddr is the unspecified IPv4 address.
var ZeroAddr = Addr{}

// String returns the dotted-quad form of the address.
func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// IsZero reports whether the address is unspecified.
func (a Addr) IsZero() bool {
	return a == ZeroAddr
}

// ParseAddr parses a dotted-quad IPv4 address. It reports false for anything
// that is not exactly four decimal octets.
func ParseAddr(s string) (Addr, bool) {
	var a Addr
	octet := 0
	digits := 0
	val := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			val = val*10 + int(c-'0')
			digits++
			if digits > 3 || val > 255 {
				return ZeroAddr, false
			}
		case c == '.':
			if digits == 0 || octet == 3 {
				return ZeroAddr, false
			}
			a[octet] = byte(val)
			octet++
			val = 0
			digits = 0
		default:
			return ZeroAddr, false
		}
	}
	if digits == 0 || octet != 3 {
		return ZeroAddr, false
	}
	a[3] = byte(val)
	return a, true
}

// InSubnet reports whether a and b share the network prefix given by mask.
func (a Addr) InSubnet(b, mask Addr) bool {
	for i := 0; i < 4; i++ {
		if a[i]&mask[i] != b[i]&mask[i] {
			return false
		}
	}
	return true
}

// MAC is a 48-bit Ethernet hardware address.
type MAC [6]byte

// BroadcastMAC is the Ethernet broadcast address.
var BroadcastMAC = MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// String returns the colon-separated hex form of the address.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast reports whether the address is the broadcast address.
func (m MAC) IsBroadcast() bool {
	return m == BroadcastMAC
}
