package stack

import (
	"pondos/pkg/net/dns"
	"pondos/pkg/netstack"
)

const dnsTimeoutMS = 3000

// dnsTransaction is the resolver's single in-flight query. Starting a new
// query overwrites the previous transaction; there is no concurrency to
// protect against.
type dnsTransaction struct {
	id     uint16
	port   uint16
	msg    []byte
	active bool
	ready  bool
}

// Resolve returns the IPv4 address for host. A dotted-quad host short
// circuits without network traffic; otherwise one A query goes to the
// configured server and the first A record of the answer wins.
func (s *Stack) Resolve(host string) (netstack.Addr, error) {
	if a, ok := netstack.ParseAddr(host); ok {
		return a, nil
	}

	id := uint16(s.rng.Uint32())
	query, err := dns.EncodeQuery(id, host)
	if err != nil {
		return netstack.ZeroAddr, err
	}

	s.dns = dnsTransaction{id: id, port: s.ephemeralPort(), active: true}
	if err := s.sendUDP(s.cfg.DNS, s.dns.port, dns.Port, query); err != nil {
		s.dns = dnsTransaction{}
		return netstack.ZeroAddr, err
	}

	if !s.pollUntil(dnsTimeoutMS, func() bool { return s.dns.ready }) {
		s.dns = dnsTransaction{}
		s.log.Warnf("dns: no response for %q", host)
		return netstack.ZeroAddr, ErrDNSTimeout
	}

	msg := s.dns.msg
	s.dns = dnsTransaction{}

	addr, err := dns.ParseResponse(msg, id)
	if err != nil {
		return netstack.ZeroAddr, err
	}
	s.log.Debugf("dns: %s is %s", host, addr)
	return addr, nil
}
