package stack

import (
	"pondos/pkg/netstack"
	"pondos/pkg/netstack/tcp"
)

const (
	connectTimeoutMS = 5000
	closeTimeoutMS   = 1000

	// coalesceGraceMS bounds how long Receive keeps waiting for more data
	// once it has delivered the first bytes.
	coalesceGraceMS = 500
)

// recvBufferSize is the connection's receive capacity. Data arriving with
// the buffer full is dropped; the peer's retransmission is its only
// recovery, and this stack never shrinks its advertised window to match.
const recvBufferSize = 32 * 1024

type connState uint8

const (
	stateClosed connState = iota
	stateSynSent
	stateEstablished
	stateFinWait
)

// Conn is the stack's single TCP connection. There is no retransmission and
// no reordering: segments that are not the next expected one are dropped and
// the peer must resend them in order.
type Conn struct {
	s *Stack

	state      connState
	remoteAddr netstack.Addr
	localPort  uint16
	remotePort uint16

	sndNext uint32 // next sequence number to send
	rcvNext uint32 // next sequence number expected

	buf ring
}

// Connect opens a TCP connection to addr:port via the three-way handshake.
// Only one connection can be live at a time.
func (s *Stack) Connect(addr netstack.Addr, port uint16) (*Conn, error) {
	if s.conn != nil && s.conn.state != stateClosed {
		return nil, ErrConnBusy
	}

	c := &Conn{
		s:          s,
		state:      stateSynSent,
		remoteAddr: addr,
		localPort:  s.ephemeralPort(),
		remotePort: port,
		sndNext:    s.rng.Uint32(),
	}
	s.conn = c

	if err := c.sendSegment(tcp.FlagSYN, nil); err != nil {
		c.state = stateClosed
		return nil, err
	}
	c.sndNext++ // SYN occupies one sequence number

	if !s.pollUntil(connectTimeoutMS, func() bool { return c.state != stateSynSent }) {
		c.state = stateClosed
		return nil, ErrConnectTimeout
	}
	if c.state != stateEstablished {
		return nil, ErrConnectionReset
	}

	s.log.Debugf("tcp: connected to %s:%d from port %d", addr, port, c.localPort)
	return c, nil
}

func (c *Conn) sendSegment(flags uint8, payload []byte) error {
	h := tcp.NewHeader(c.localPort, c.remotePort, c.sndNext, c.rcvNext, flags)
	seg := tcp.BuildSegment(h, c.s.cfg.IP, c.remoteAddr, payload)
	return c.s.sendIPv4(c.remoteAddr, netstack.ProtocolTCP, seg)
}

// handleTCP runs the connection state machine on one inbound segment.
func (s *Stack) handleTCP(src netstack.Addr, data []byte) {
	c := s.conn
	if c == nil || c.state == stateClosed {
		return
	}

	h, err := tcp.ParseHeader(data)
	if err != nil {
		return
	}
	if src != c.remoteAddr || h.SrcPort != c.remotePort || h.DstPort != c.localPort {
		return
	}

	if h.Flags&tcp.FlagRST != 0 {
		s.log.Debugf("tcp: reset from %s:%d", src, h.SrcPort)
		c.state = stateClosed
		return
	}

	payload := h.Payload(data)

	switch c.state {
	case stateSynSent:
		synack := tcp.FlagSYN | tcp.FlagACK
		if h.Flags&synack != synack || h.Ack != c.sndNext {
			return
		}
		c.rcvNext = h.Seq + 1
		c.state = stateEstablished
		if err := c.sendSegment(tcp.FlagACK, nil); err != nil {
			s.log.Warnf("tcp: handshake ack: %v", err)
		}

	case stateEstablished:
		if h.Seq != c.rcvNext {
			// Out of order or retransmitted. Dropped; the peer resends.
			return
		}
		if len(payload) > 0 {
			c.buf.write(payload)
			c.rcvNext += uint32(len(payload))
		}
		if h.Flags&tcp.FlagFIN != 0 {
			c.rcvNext++ // FIN occupies one sequence number
			if err := c.sendSegment(tcp.FlagFIN|tcp.FlagACK, nil); err != nil {
				s.log.Warnf("tcp: fin ack: %v", err)
			}
			c.sndNext++
			c.state = stateClosed
		} else if len(payload) > 0 {
			if err := c.sendSegment(tcp.FlagACK, nil); err != nil {
				s.log.Warnf("tcp: ack: %v", err)
			}
		}

	case stateFinWait:
		if h.Seq == c.rcvNext && len(payload) > 0 {
			c.buf.write(payload)
			c.rcvNext += uint32(len(payload))
		}
		if h.Flags&tcp.FlagFIN != 0 {
			c.rcvNext++
			if err := c.sendSegment(tcp.FlagACK, nil); err != nil {
				s.log.Warnf("tcp: fin ack: %v", err)
			}
			c.state = stateClosed
		} else if h.Flags&tcp.FlagACK != 0 && h.Ack == c.sndNext {
			c.state = stateClosed
		}
	}
}

// Send transmits data in MSS-sized segments, pumping the stack between
// segments so inbound traffic keeps flowing.
func (c *Conn) Send(data []byte) error {
	if c.state != stateEstablished {
		return ErrNotConnected
	}

	for off := 0; off < len(data); {
		n := len(data) - off
		if n > tcp.MSS {
			n = tcp.MSS
		}
		if err := c.sendSegment(tcp.FlagPSH|tcp.FlagACK, data[off:off+n]); err != nil {
			return err
		}
		c.sndNext += uint32(n)
		off += n
		c.s.Process()
	}
	return nil
}

// Receive fills buf with inbound data, polling until the buffer is full,
// the connection ends, or timeoutMS elapses. Once the first bytes arrive
// the remaining wait shrinks to coalesceGraceMS so a response that has
// stopped flowing is returned promptly.
func (c *Conn) Receive(buf []byte, timeoutMS uint32) (int, error) {
	deadline := c.s.clock.Now() + uint64(timeoutMS)
	graceSet := false
	total := 0

	for total < len(buf) {
		c.s.Process()
		total += c.buf.read(buf[total:])
		if total == len(buf) {
			break
		}
		if c.state == stateClosed && c.buf.len() == 0 {
			break
		}

		now := c.s.clock.Now()
		if total > 0 && !graceSet {
			graceSet = true
			if g := now + coalesceGraceMS; g < deadline {
				deadline = g
			}
		}
		if now >= deadline {
			break
		}
	}
	return total, nil
}

// Close sends our FIN and waits briefly for the peer to finish the
// teardown. The connection is closed either way.
func (c *Conn) Close() error {
	if c.state != stateEstablished {
		c.state = stateClosed
		return nil
	}

	if err := c.sendSegment(tcp.FlagFIN|tcp.FlagACK, nil); err != nil {
		c.state = stateClosed
		return err
	}
	c.sndNext++
	c.state = stateFinWait

	c.s.pollUntil(closeTimeoutMS, func() bool { return c.state == stateClosed })
	c.state = stateClosed
	return nil
}

// Established reports whether the connection is open for data.
func (c *Conn) Established() bool {
	return c.state == stateEstablished
}

// ring is the connection's receive buffer. Writes beyond capacity drop the
// excess bytes.
type ring struct {
	data [recvBufferSize]byte
	r    int
	w    int
	n    int
}

func (b *ring) len() int {
	return b.n
}

func (b *ring) write(p []byte) {
	for _, c := range p {
		if b.n == len(b.data) {
			return
		}
		b.data[b.w] = c
		b.w = (b.w + 1) % len(b.data)
		b.n++
	}
}

func (b *ring) read(p []byte) int {
	total := 0
	for total < len(p) && b.n > 0 {
		p[total] = b.data[b.r]
		b.r = (b.r + 1) % len(b.data)
		b.n--
		total++
	}
	return total
}
