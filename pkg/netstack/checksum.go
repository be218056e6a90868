package netstack

// Checksum computes the 16-bit Internet checksum (RFC 1071) over data.
// A buffer whose checksum field is already correctly set sums to 0xFFFF,
// so Checksum over it returns zero.
func Checksum(data []byte) uint16 {
	return ^uint16(foldChecksum(sumWords(0, data)))
}

// PseudoHeaderChecksum computes the TCP/UDP checksum over the IPv4
// pseudo-header (src, dst, protocol, segment length) followed by the
// segment bytes themselves.
func PseudoHeaderChecksum(src, dst Addr, proto Protocol, segment []byte) uint16 {
	sum := uint32(src[0])<<8 | uint32(src[1])
	sum += uint32(src[2])<<8 | uint32(src[3])
	sum += uint32(dst[0])<<8 | uint32(dst[1])
	sum += uint32(dst[2])<<8 | uint32(dst[3])
	sum += uint32(proto)
	sum += uint32(len(segment))
	return ^uint16(foldChecksum(sumWords(sum, segment)))
}

func sumWords(sum uint32, data []byte) uint32 {
	for i := 0; i+1 < len(data); i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	return sum
}

func foldChecksum(sum uint32) uint32 {
	for sum > 0xFFFF {
		sum = (sum >> 16) + (sum & 0xFFFF)
	}
	return sum
}
