package stack

import (
	"pondos/pkg/netstack"
	"pondos/pkg/netstack/ethernet"
)

const (
	arpRetries   = 3
	arpTimeoutMS = 500
)

// handleARP learns the sender's mapping from every valid ARP packet and
// answers requests for our own address.
func (s *Stack) handleARP(payload []byte) {
	pkt, err := ethernet.ParseARPPacket(payload)
	if err != nil || !pkt.IsValid() {
		return
	}

	s.arp.Insert(pkt.SenderIP, pkt.SenderMAC)

	if pkt.Operation == ethernet.ARPOperationRequest && pkt.TargetIP == s.cfg.IP {
		reply := ethernet.NewARPReply(s.dev.HardwareAddr(), s.cfg.IP, pkt.SenderMAC, pkt.SenderIP)
		if err := s.sendFrame(pkt.SenderMAC, netstack.EtherTypeARP, reply.Serialize()); err != nil {
			s.log.Warnf("arp reply to %s: %v", pkt.SenderIP, err)
		}
	}
}

// resolveMAC returns the next-hop MAC for ip: the host itself when it is on
// our subnet, the gateway otherwise. A cache miss triggers up to arpRetries
// broadcast requests, each waiting arpTimeoutMS for the reply.
func (s *Stack) resolveMAC(ip netstack.Addr) (netstack.MAC, error) {
	target := ip
	if !ip.InSubnet(s.cfg.IP, s.cfg.Netmask) {
		target = s.cfg.Gateway
	}

	if mac, ok := s.arp.Lookup(target); ok {
		return mac, nil
	}

	for attempt := 0; attempt < arpRetries; attempt++ {
		req := ethernet.NewARPRequest(s.dev.HardwareAddr(), s.cfg.IP, target)
		if err := s.sendFrame(netstack.BroadcastMAC, netstack.EtherTypeARP, req.Serialize()); err != nil {
			return netstack.MAC{}, err
		}

		found := s.pollUntil(arpTimeoutMS, func() bool {
			_, ok := s.arp.Lookup(target)
			return ok
		})
		if found {
			mac, _ := s.arp.Lookup(target)
			return mac, nil
		}
	}

	s.log.Warnf("arp: %s did not answer after %d requests", target, arpRetries)
	return netstack.MAC{}, ErrARPTimeout
}
