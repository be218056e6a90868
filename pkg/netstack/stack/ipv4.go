package stack

import (
	"pondos/pkg/netstack"
	ipv4 "pondos/pkg/netstack/ip"
)

// sendIPv4 wraps payload in an IPv4 datagram to dst and transmits it to the
// next hop. Datagrams are never fragmented; payloads are sized by the
// callers to fit a single frame.
func (s *Stack) sendIPv4(dst netstack.Addr, proto netstack.Protocol, payload []byte) error {
	mac, err := s.resolveMAC(dst)
	if err != nil {
		return err
	}

	s.ipID++
	h := ipv4.NewHeader(s.cfg.IP, dst, proto, s.ipID, len(payload))
	pkt := append(h.Serialize(), payload...)
	return s.sendFrame(mac, netstack.EtherTypeIPv4, pkt)
}

func (s *Stack) handleIPv4(payload []byte) {
	h, err := ipv4.ParseHeader(payload)
	if err != nil {
		s.log.Debugf("dropping IPv4 packet: %v", err)
		return
	}
	if h.Dst != s.cfg.IP {
		return
	}

	data := h.Payload(payload)
	switch h.Protocol {
	case netstack.ProtocolUDP:
		s.handleUDP(data)
	case netstack.ProtocolTCP:
		s.handleTCP(h.Src, data)
	}
}
