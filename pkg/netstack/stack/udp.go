package stack

import (
	"pondos/pkg/netstack"
	"pondos/pkg/netstack/udp"
)

func (s *Stack) sendUDP(dst netstack.Addr, srcPort, dstPort uint16, payload []byte) error {
	return s.sendIPv4(dst, netstack.ProtocolUDP, udp.Build(srcPort, dstPort, payload))
}

// handleUDP delivers a datagram to the resolver transaction when the
// destination port matches; everything else is dropped. The resolver is the
// stack's only UDP consumer.
func (s *Stack) handleUDP(data []byte) {
	h, err := udp.ParseHeader(data)
	if err != nil {
		return
	}
	if !s.dns.active || h.DstPort != s.dns.port {
		return
	}

	payload := h.Payload(data)
	s.dns.msg = append(s.dns.msg[:0], payload...)
	s.dns.ready = true
}
