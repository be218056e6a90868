package main

import (
	"encoding/binary"

	"pondos/pkg/netstack"
	"pondos/pkg/netstack/ethernet"
	ipv4 "pondos/pkg/netstack/ip"
	"pondos/pkg/netstack/stack"
	"pondos/pkg/netstack/tcp"
	"pondos/pkg/netstack/udp"
)

// simulatedPeer answers the stack from the far end of the wire: it speaks
// just enough ARP, DNS, and TCP to serve one HTTP response. Every hostname
// resolves to the same address and every request gets the configured body.
type simulatedPeer struct {
	cfg      stack.Config
	stackMAC netstack.MAC
	body     string

	seq uint32
	ack uint32
}

var (
	peerMAC  = netstack.MAC{0x52, 0x54, 0x00, 0xFE, 0xED, 0x01}
	peerAddr = netstack.Addr{203, 0, 113, 80}
)

func (p *simulatedPeer) respond(raw []byte) [][]byte {
	f, err := ethernet.ParseFrame(raw)
	if err != nil {
		return nil
	}

	switch f.Type {
	case netstack.EtherTypeARP:
		return p.handleARP(f.Payload)
	case netstack.EtherTypeIPv4:
		return p.handleIPv4(f.Payload)
	}
	return nil
}

func (p *simulatedPeer) handleARP(payload []byte) [][]byte {
	pkt, err := ethernet.ParseARPPacket(payload)
	if err != nil || !pkt.IsValid() || pkt.Operation != ethernet.ARPOperationRequest {
		return nil
	}

	reply := ethernet.NewARPReply(peerMAC, pkt.TargetIP, pkt.SenderMAC, pkt.SenderIP)
	f := ethernet.NewFrame(pkt.SenderMAC, peerMAC, netstack.EtherTypeARP, reply.Serialize())
	return [][]byte{f.Serialize()}
}

func (p *simulatedPeer) handleIPv4(payload []byte) [][]byte {
	h, err := ipv4.ParseHeader(payload)
	if err != nil {
		return nil
	}
	data := h.Payload(payload)

	switch h.Protocol {
	case netstack.ProtocolUDP:
		return p.handleDNS(data)
	case netstack.ProtocolTCP:
		return p.handleTCP(h, data)
	}
	return nil
}

// handleDNS turns the query into a response in place: flip the QR bit,
// claim one answer, and append an A record pointing at the peer.
func (p *simulatedPeer) handleDNS(data []byte) [][]byte {
	uh, err := udp.ParseHeader(data)
	if err != nil || uh.DstPort != 53 {
		return nil
	}
	query := uh.Payload(data)
	if len(query) < 12 {
		return nil
	}

	resp := append([]byte{}, query...)
	resp[2] = 0x81 // QR, RD
	resp[3] = 0x80 // RA
	resp[6], resp[7] = 0, 1
	resp = append(resp,
		0xC0, 0x0C, // name: pointer to the question
		0, 1, 0, 1, // TYPE A, CLASS IN
		0, 0, 0, 60, // TTL
		0, 4,
	)
	resp = append(resp, peerAddr[:]...)

	return [][]byte{p.frame(p.cfg.DNS, netstack.ProtocolUDP, udp.Build(53, uh.SrcPort, resp))}
}

func (p *simulatedPeer) handleTCP(ih *ipv4.Header, data []byte) [][]byte {
	th, err := tcp.ParseHeader(data)
	if err != nil {
		return nil
	}
	payload := th.Payload(data)

	switch {
	case th.Flags&tcp.FlagSYN != 0:
		p.seq = 0x1000
		p.ack = th.Seq + 1
		reply := p.segment(th, tcp.FlagSYN|tcp.FlagACK, nil)
		p.seq++
		return [][]byte{reply}

	case len(payload) > 0:
		p.ack = th.Seq + uint32(len(payload))
		body := "HTTP/1.1 200 OK\r\nConnection: close\r\n\r\n" + p.body
		reply := p.segment(th, tcp.FlagPSH|tcp.FlagACK|tcp.FlagFIN, []byte(body))
		p.seq += uint32(len(body)) + 1
		return [][]byte{reply}
	}
	return nil
}

func (p *simulatedPeer) segment(got *tcp.Header, flags uint8, payload []byte) []byte {
	h := tcp.NewHeader(got.DstPort, got.SrcPort, p.seq, p.ack, flags)
	seg := tcp.BuildSegment(h, peerAddr, p.cfg.IP, payload)
	return p.frame(peerAddr, netstack.ProtocolTCP, seg)
}

func (p *simulatedPeer) frame(src netstack.Addr, proto netstack.Protocol, payload []byte) []byte {
	id := binary.BigEndian.Uint16(src[2:]) // arbitrary but stable
	h := ipv4.NewHeader(src, p.cfg.IP, proto, id, len(payload))
	pkt := append(h.Serialize(), payload...)
	return ethernet.NewFrame(p.stackMAC, peerMAC, netstack.EtherTypeIPv4, pkt).Serialize()
}
