package stack_test

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	mdns "github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"pondos/pkg/log"
	"pondos/pkg/netstack"
	"pondos/pkg/netstack/ethernet"
	ipv4 "pondos/pkg/netstack/ip"
	"pondos/pkg/netstack/link"
	"pondos/pkg/netstack/stack"
	"pondos/pkg/netstack/tcp"
	"pondos/pkg/netstack/udp"
)

var (
	stackMAC = netstack.MAC{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}
	peerMAC  = netstack.MAC{0x52, 0x54, 0x00, 0xAB, 0xCD, 0xEF}
	webAddr  = netstack.Addr{93, 184, 216, 34}
)

// peer plays the far side of the wire: it decodes frames the stack sends
// with gopacket and synthesizes replies with the stack's own codecs. It
// answers ARP for every local address and runs a one-connection TCP server.
type peer struct {
	t   *testing.T
	cfg stack.Config

	mute     bool // ignore TCP and DNS entirely
	rst      bool // refuse connections
	tlsAlert bool // answer the first data segment with a fatal TLS alert
	httpBody string

	seq        uint32
	ack        uint32
	gotRequest []byte
}

func (p *peer) respond(frame []byte) [][]byte {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)

	if l := pkt.Layer(layers.LayerTypeARP); l != nil {
		return p.handleARP(l.(*layers.ARP))
	}
	if p.mute {
		return nil
	}
	if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
		return p.handleTCP(l.(*layers.TCP))
	}
	if l := pkt.Layer(layers.LayerTypeUDP); l != nil {
		return p.handleDNS(l.(*layers.UDP))
	}
	return nil
}

func (p *peer) handleARP(a *layers.ARP) [][]byte {
	if a.Operation != layers.ARPRequest {
		return nil
	}
	var target, sender netstack.Addr
	copy(target[:], a.DstProtAddress)
	copy(sender[:], a.SourceProtAddress)

	reply := ethernet.NewARPReply(peerMAC, target, stackMAC, sender)
	f := ethernet.NewFrame(stackMAC, peerMAC, netstack.EtherTypeARP, reply.Serialize())
	return [][]byte{f.Serialize()}
}

func (p *peer) handleDNS(u *layers.UDP) [][]byte {
	if u.DstPort != 53 {
		return nil
	}

	var q mdns.Msg
	require.NoError(p.t, q.Unpack(u.Payload))
	require.Len(p.t, q.Question, 1)

	r := new(mdns.Msg)
	r.SetReply(&q)
	r.Answer = []mdns.RR{&mdns.A{
		Hdr: mdns.RR_Header{Name: q.Question[0].Name, Rrtype: mdns.TypeA, Class: mdns.ClassINET, Ttl: 60},
		A:   net.IP(webAddr[:]),
	}}
	out, err := r.Pack()
	require.NoError(p.t, err)

	return [][]byte{p.frame(p.cfg.DNS, netstack.ProtocolUDP,
		udp.Build(53, uint16(u.SrcPort), out))}
}

func (p *peer) handleTCP(t *layers.TCP) [][]byte {
	switch {
	case t.SYN:
		if p.rst {
			return [][]byte{p.tcpFrame(t, tcp.FlagRST|tcp.FlagACK, nil)}
		}
		p.seq = 1000
		p.ack = t.Seq + 1
		reply := p.tcpFrame(t, tcp.FlagSYN|tcp.FlagACK, nil)
		p.seq++
		return [][]byte{reply}

	case len(t.Payload) > 0:
		p.ack = t.Seq + uint32(len(t.Payload))
		p.gotRequest = append(p.gotRequest, t.Payload...)

		if p.tlsAlert {
			// handshake_failure, fatal.
			alert := []byte{21, 3, 3, 0, 2, 2, 40}
			reply := p.tcpFrame(t, tcp.FlagPSH|tcp.FlagACK, alert)
			p.seq += uint32(len(alert))
			return [][]byte{reply}
		}

		body := []byte("HTTP/1.1 200 OK\r\nConnection: close\r\n\r\n" + p.httpBody)
		reply := p.tcpFrame(t, tcp.FlagPSH|tcp.FlagACK|tcp.FlagFIN, body)
		p.seq += uint32(len(body)) + 1
		return [][]byte{reply}
	}
	return nil
}

// tcpFrame builds a segment from the peer back to the stack, answering the
// segment the stack just sent.
func (p *peer) tcpFrame(got *layers.TCP, flags uint8, payload []byte) []byte {
	h := tcp.NewHeader(uint16(got.DstPort), uint16(got.SrcPort), p.seq, p.ack, flags)
	seg := tcp.BuildSegment(h, webAddr, p.cfg.IP, payload)
	return p.frame(webAddr, netstack.ProtocolTCP, seg)
}

func (p *peer) frame(src netstack.Addr, proto netstack.Protocol, payload []byte) []byte {
	h := ipv4.NewHeader(src, p.cfg.IP, proto, 7, len(payload))
	pkt := append(h.Serialize(), payload...)
	return ethernet.NewFrame(stackMAC, peerMAC, netstack.EtherTypeIPv4, pkt).Serialize()
}

func newTestStack(t *testing.T, p *peer) (*stack.Stack, *link.ScriptedDevice) {
	t.Helper()

	cfg := stack.DefaultConfig()
	cfg.Log = log.Discard()
	cfg.RandSeed = 7

	dev := link.NewScriptedDevice(stackMAC)
	if p != nil {
		p.t = t
		p.cfg = cfg
		dev.Responder = p.respond
	}
	clock := &link.ManualClock{Step: 1}
	return stack.New(dev, clock, cfg), dev
}

func TestARPRequestGetsReply(t *testing.T) {
	s, dev := newTestStack(t, nil)
	cfg := s.Config()

	req := ethernet.NewARPRequest(peerMAC, netstack.Addr{10, 0, 2, 9}, cfg.IP)
	f := ethernet.NewFrame(netstack.BroadcastMAC, peerMAC, netstack.EtherTypeARP, req.Serialize())
	dev.Inject(f.Serialize())

	s.Process()

	require.Len(t, dev.Sent, 1)
	pkt := gopacket.NewPacket(dev.Sent[0], layers.LayerTypeEthernet, gopacket.Default)
	arpL := pkt.Layer(layers.LayerTypeARP)
	require.NotNil(t, arpL, "reply frame must decode as ARP")

	reply := arpL.(*layers.ARP)
	require.Equal(t, uint16(layers.ARPReply), reply.Operation)
	require.Equal(t, cfg.IP[:], []byte(reply.SourceProtAddress))
	require.Equal(t, stackMAC[:], []byte(reply.SourceHwAddress))
	require.Equal(t, peerMAC[:], []byte(reply.DstHwAddress))
}

func TestSetConfigMovesIdentity(t *testing.T) {
	s, dev := newTestStack(t, nil)

	cfg := s.Config()
	cfg.IP = netstack.Addr{10, 0, 2, 99}
	s.SetConfig(cfg)

	// A request for the old address goes unanswered.
	req := ethernet.NewARPRequest(peerMAC, netstack.Addr{10, 0, 2, 9}, stack.DefaultConfig().IP)
	f := ethernet.NewFrame(netstack.BroadcastMAC, peerMAC, netstack.EtherTypeARP, req.Serialize())
	dev.Inject(f.Serialize())
	s.Process()
	require.Empty(t, dev.Sent)

	// The new address is answered.
	req = ethernet.NewARPRequest(peerMAC, netstack.Addr{10, 0, 2, 9}, cfg.IP)
	f = ethernet.NewFrame(netstack.BroadcastMAC, peerMAC, netstack.EtherTypeARP, req.Serialize())
	dev.Inject(f.Serialize())
	s.Process()
	require.Len(t, dev.Sent, 1)
}

func TestLinkDown(t *testing.T) {
	s, dev := newTestStack(t, nil)
	dev.Down = true

	_, err := s.Connect(webAddr, 80)
	require.ErrorIs(t, err, stack.ErrLinkDown)
	require.Empty(t, dev.Sent)
}

func TestResolveLiteralAddress(t *testing.T) {
	s, dev := newTestStack(t, nil)

	addr, err := s.Resolve("192.168.4.20")
	require.NoError(t, err)
	require.Equal(t, netstack.Addr{192, 168, 4, 20}, addr)
	require.Empty(t, dev.Sent, "literal addresses must not touch the wire")
}

func TestResolveQueriesServer(t *testing.T) {
	s, dev := newTestStack(t, &peer{})

	addr, err := s.Resolve("example.com")
	require.NoError(t, err)
	require.Equal(t, webAddr, addr)

	// Frame 0 is the ARP request for the DNS server, frame 1 the query.
	require.Len(t, dev.Sent, 2)
	pkt := gopacket.NewPacket(dev.Sent[1], layers.LayerTypeEthernet, gopacket.Default)
	udpL := pkt.Layer(layers.LayerTypeUDP)
	require.NotNil(t, udpL)
	require.Equal(t, layers.UDPPort(53), udpL.(*layers.UDP).DstPort)
}

func TestResolveTimeout(t *testing.T) {
	s, _ := newTestStack(t, &peer{mute: true})

	_, err := s.Resolve("example.com")
	require.ErrorIs(t, err, stack.ErrDNSTimeout)
}

func TestResolveARPTimeout(t *testing.T) {
	s, dev := newTestStack(t, nil)

	_, err := s.Resolve("example.com")
	require.ErrorIs(t, err, stack.ErrARPTimeout)
	require.Len(t, dev.Sent, 3, "three broadcast requests before giving up")
}

func TestConnectTimeout(t *testing.T) {
	s, _ := newTestStack(t, &peer{mute: true})

	_, err := s.Connect(webAddr, 80)
	require.ErrorIs(t, err, stack.ErrConnectTimeout)
}

func TestConnectRefused(t *testing.T) {
	s, _ := newTestStack(t, &peer{rst: true})

	_, err := s.Connect(webAddr, 80)
	require.ErrorIs(t, err, stack.ErrConnectionReset)
}

func TestConnectHandshake(t *testing.T) {
	s, dev := newTestStack(t, &peer{})

	conn, err := s.Connect(webAddr, 80)
	require.NoError(t, err)
	require.True(t, conn.Established())

	// ARP request, SYN, handshake ACK.
	require.Len(t, dev.Sent, 3)
	pkt := gopacket.NewPacket(dev.Sent[1], layers.LayerTypeEthernet, gopacket.Default)
	tcpL := pkt.Layer(layers.LayerTypeTCP)
	require.NotNil(t, tcpL)
	syn := tcpL.(*layers.TCP)
	require.True(t, syn.SYN)
	require.False(t, syn.ACK)
	require.Equal(t, layers.TCPPort(80), syn.DstPort)

	ipL := pkt.Layer(layers.LayerTypeIPv4)
	require.NotNil(t, ipL)
	require.Equal(t, webAddr[:], []byte(ipL.(*layers.IPv4).DstIP.To4()))
}

func TestOutOfOrderSegmentDropped(t *testing.T) {
	p := &peer{}
	s, dev := newTestStack(t, p)

	conn, err := s.Connect(webAddr, 80)
	require.NoError(t, err)

	// A segment 100 bytes ahead of the expected sequence must vanish.
	ahead := tcp.NewHeader(80, localPort(t, dev), p.seq+100, p.ack, tcp.FlagPSH|tcp.FlagACK)
	seg := tcp.BuildSegment(ahead, webAddr, p.cfg.IP, []byte("stale"))
	dev.Inject(p.frame(webAddr, netstack.ProtocolTCP, seg))

	buf := make([]byte, 32)
	n, err := conn.Receive(buf, 50)
	require.NoError(t, err)
	require.Zero(t, n)

	// The in-order segment is delivered.
	inOrder := tcp.NewHeader(80, localPort(t, dev), p.seq, p.ack, tcp.FlagPSH|tcp.FlagACK)
	seg = tcp.BuildSegment(inOrder, webAddr, p.cfg.IP, []byte("fresh"))
	dev.Inject(p.frame(webAddr, netstack.ProtocolTCP, seg))

	n, err = conn.Receive(buf, 50)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(buf[:n]))
}

// localPort recovers the stack's ephemeral port from the SYN it sent.
func localPort(t *testing.T, dev *link.ScriptedDevice) uint16 {
	t.Helper()
	for _, raw := range dev.Sent {
		pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.Default)
		if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
			return uint16(l.(*layers.TCP).SrcPort)
		}
	}
	t.Fatal("no TCP frame sent")
	return 0
}

func TestHTTPGet(t *testing.T) {
	p := &peer{httpBody: "hello from the far side"}
	s, _ := newTestStack(t, p)

	body, err := s.HTTPGet("example.com", "/hello", 2000)
	require.NoError(t, err)
	require.Equal(t, "hello from the far side", string(body))

	require.True(t, bytes.HasPrefix(p.gotRequest, []byte("GET /hello HTTP/1.1\r\n")))
	require.Contains(t, string(p.gotRequest), "Host: example.com\r\n")
	require.Contains(t, string(p.gotRequest), "Connection: close\r\n")
}

func TestHTTPSGetHandshakeFailurePage(t *testing.T) {
	p := &peer{tlsAlert: true}
	s, _ := newTestStack(t, p)

	body, err := s.HTTPSGet("example.com", "/", 2000)
	require.NoError(t, err, "a failed handshake is a page, not an error")
	require.Contains(t, string(body), "HTTPS Encryption Failed")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	data := "ip: 192.168.7.2\nnetmask: 255.255.255.0\ngateway: 192.168.7.1\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := stack.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, netstack.Addr{192, 168, 7, 2}, cfg.IP)
	require.Equal(t, netstack.Addr{192, 168, 7, 1}, cfg.Gateway)
	// Unset fields keep their defaults.
	require.Equal(t, stack.DefaultConfig().DNS, cfg.DNS)
}

func TestLoadConfigBadAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ip: not-an-address\n"), 0o644))

	_, err := stack.LoadConfig(path)
	require.Error(t, err)
}
