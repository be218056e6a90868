// Package stack is the network stack engine: one aggregate owning the ARP
// cache, the IP datagram identifier, the DNS resolver transaction, and the
// single TCP connection, driven entirely by cooperative polling against a
// Device and a Clock. Nothing here blocks; every wait is a poll loop with a
// millisecond deadline.
package stack

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pondos/pkg/crypto/prng"
	"pondos/pkg/log"
	"pondos/pkg/netstack"
	"pondos/pkg/netstack/ethernet"
)

// frameBufferSize holds the largest frame the stack will accept.
const frameBufferSize = 2048

// Sentinel errors surfaced by the engine.
var (
	ErrLinkDown        = errors.New("stack: link is down")
	ErrARPTimeout      = errors.New("stack: no ARP reply")
	ErrDNSTimeout      = errors.New("stack: DNS query timed out")
	ErrConnectTimeout  = errors.New("stack: TCP connect timed out")
	ErrConnectionReset = errors.New("stack: connection reset by peer")
	ErrConnBusy        = errors.New("stack: a connection is already active")
	ErrNotConnected    = errors.New("stack: connection not established")
	ErrEmptyResponse   = errors.New("stack: empty HTTP response")
)

// Config is the stack's network identity.
type Config struct {
	IP      netstack.Addr
	Netmask netstack.Addr
	Gateway netstack.Addr
	DNS     netstack.Addr

	// Log receives stack diagnostics. Defaults to the warning-level logger.
	Log log.Logger
	// RandSeed seeds the stack's PRNG; zero seeds from the clock.
	RandSeed uint64
}

// DefaultConfig is the identity of a NAT'd VM guest.
func DefaultConfig() Config {
	return Config{
		IP:      netstack.Addr{10, 0, 2, 15},
		Netmask: netstack.Addr{255, 255, 255, 0},
		Gateway: netstack.Addr{10, 0, 2, 2},
		DNS:     netstack.Addr{10, 0, 2, 3},
	}
}

type fileConfig struct {
	IP      string `yaml:"ip"`
	Netmask string `yaml:"netmask"`
	Gateway string `yaml:"gateway"`
	DNS     string `yaml:"dns"`
}

// LoadConfig reads a YAML network config. Fields left empty keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("stack: reading config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("stack: parsing config: %w", err)
	}

	cfg := DefaultConfig()
	for _, f := range []struct {
		name string
		val  string
		dst  *netstack.Addr
	}{
		{"ip", fc.IP, &cfg.IP},
		{"netmask", fc.Netmask, &cfg.Netmask},
		{"gateway", fc.Gateway, &cfg.Gateway},
		{"dns", fc.DNS, &cfg.DNS},
	} {
		if f.val == "" {
			continue
		}
		a, ok := netstack.ParseAddr(f.val)
		if !ok {
			return Config{}, fmt.Errorf("stack: config field %s: bad address %q", f.name, f.val)
		}
		*f.dst = a
	}
	return cfg, nil
}

// Stack owns all protocol state. It is single-threaded: callers drive it by
// invoking its operations, which poll the device as needed.
type Stack struct {
	dev   netstack.Device
	clock netstack.Clock
	cfg   Config
	log   log.Logger
	rng   *prng.PRNG

	arp  ethernet.Cache
	ipID uint16

	conn     *Conn
	dns      dnsTransaction
	nextPort uint16
}

// New creates a stack on top of the given device and clock.
func New(dev netstack.Device, clock netstack.Clock, cfg Config) *Stack {
	if cfg.Log == nil {
		cfg.Log = log.Default()
	}
	seed := cfg.RandSeed
	if seed == 0 {
		seed = clock.Now() ^ 0x706F6E646F73 // "pondos"
	}
	return &Stack{
		dev:      dev,
		clock:    clock,
		cfg:      cfg,
		log:      cfg.Log.WithField("ip", cfg.IP.String()),
		rng:      prng.New(seed),
		nextPort: 49151,
	}
}

// Config returns the stack's network identity.
func (s *Stack) Config() Config {
	return s.cfg
}

// SetConfig replaces the stack's network identity, for DHCP-style
// reconfiguration. Addressing state tied to the old identity (the ARP cache)
// is flushed; an open connection keeps its addresses and will simply die
// with them.
func (s *Stack) SetConfig(cfg Config) {
	if cfg.Log == nil {
		cfg.Log = s.cfg.Log
	}
	s.cfg = cfg
	s.log = cfg.Log.WithField("ip", cfg.IP.String())
	s.arp = ethernet.Cache{}
}

// Process drains every pending frame from the device and dispatches each to
// the matching protocol handler. Malformed or unaddressed frames are dropped
// silently; Process never fails.
func (s *Stack) Process() {
	var buf [frameBufferSize]byte
	for {
		n, err := s.dev.Receive(buf[:])
		if err != nil {
			s.log.Warnf("device receive: %v", err)
			return
		}
		if n == 0 {
			return
		}
		s.handleFrame(buf[:n])
	}
}

func (s *Stack) handleFrame(raw []byte) {
	f, err := ethernet.ParseFrame(raw)
	if err != nil {
		return
	}
	if f.Dst != s.dev.HardwareAddr() && !f.Dst.IsBroadcast() {
		return
	}

	switch f.Type {
	case netstack.EtherTypeARP:
		s.handleARP(f.Payload)
	case netstack.EtherTypeIPv4:
		s.handleIPv4(f.Payload)
	}
}

// pollUntil pumps the device until done reports true or timeoutMS elapses.
func (s *Stack) pollUntil(timeoutMS uint32, done func() bool) bool {
	deadline := s.clock.Now() + uint64(timeoutMS)
	for {
		s.Process()
		if done() {
			return true
		}
		if s.clock.Now() >= deadline {
			return false
		}
	}
}

func (s *Stack) sendFrame(dst netstack.MAC, typ netstack.EtherType, payload []byte) error {
	if !s.dev.Available() {
		return ErrLinkDown
	}
	f := ethernet.NewFrame(dst, s.dev.HardwareAddr(), typ, payload)
	return s.dev.Send(f.Serialize())
}

// ephemeralPort hands out source ports from the dynamic range. The counter
// wraps back to the range start; with one connection and one resolver
// transaction alive at a time, collisions cannot matter.
func (s *Stack) ephemeralPort() uint16 {
	s.nextPort++
	if s.nextPort < 49152 {
		s.nextPort = 49152
	}
	return s.nextPort
}
