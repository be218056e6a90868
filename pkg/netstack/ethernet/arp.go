package ethernet

import (
	"encoding/binary"
	"fmt"

	"pondos/pkg/netstack"
)

// ARP operation types.
const (
	ARPOperationRequest uint16 = 1
	ARPOperationReply   uint16 = 2
)

// ARPPacketSize is the size of an ARP packet in bytes.
const ARPPacketSize = 28

// ARPPacket represents an ARP packet for Ethernet/IPv4 networks.
type ARPPacket struct {
	HardwareType uint16
	ProtocolType uint16
	HardwareSize uint8
	ProtocolSize uint8
	Operation    uint16
	SenderMAC    netstack.MAC
	SenderIP     netstack.Addr
	TargetMAC    netstack.MAC
	TargetIP     netstack.Addr
}

// ParseARPPacket parses an ARP packet from raw bytes.
func ParseARPPacket(data []byte) (*ARPPacket, error) {
	if len(data) < ARPPacketSize {
		return nil, fmt.Errorf("ARP packet too short: %d bytes", len(data))
	}

	p := &ARPPacket{
		HardwareType: binary.BigEndian.Uint16(data[0:2]),
		ProtocolType: binary.BigEndian.Uint16(data[2:4]),
		HardwareSize: data[4],
		ProtocolSize: data[5],
		Operation:    binary.BigEndian.Uint16(data[6:8]),
	}
	copy(p.SenderMAC[:], data[8:14])
	copy(p.SenderIP[:], data[14:18])
	copy(p.TargetMAC[:], data[18:24])
	copy(p.TargetIP[:], data[24:28])

	return p, nil
}

// Serialize converts the ARP packet to raw bytes.
func (p *ARPPacket) Serialize() []byte {
	buf := make([]byte, ARPPacketSize)
	binary.BigEndian.PutUint16(buf[0:2], p.HardwareType)
	binary.BigEndian.PutUint16(buf[2:4], p.ProtocolType)
	buf[4] = p.HardwareSize
	buf[5] = p.ProtocolSize
	binary.BigEndian.PutUint16(buf[6:8], p.Operation)
	copy(buf[8:14], p.SenderMAC[:])
	copy(buf[14:18], p.SenderIP[:])
	copy(buf[18:24], p.TargetMAC[:])
	copy(buf[24:28], p.TargetIP[:])
	return buf
}

// IsValid reports whether the packet describes an Ethernet/IPv4 mapping.
func (p *ARPPacket) IsValid() bool {
	return p.HardwareType == 1 &&
		p.ProtocolType == uint16(netstack.EtherTypeIPv4) &&
		p.HardwareSize == 6 &&
		p.ProtocolSize == 4
}

// NewARPRequest creates an ARP request packet.
func NewARPRequest(senderMAC netstack.MAC, senderIP, targetIP netstack.Addr) *ARPPacket {
	return &ARPPacket{
		HardwareType: 1,
		ProtocolType: uint16(netstack.EtherTypeIPv4),
		HardwareSize: 6,
		ProtocolSize: 4,
		Operation:    ARPOperationRequest,
		SenderMAC:    senderMAC,
		SenderIP:     senderIP,
		TargetIP:     targetIP,
	}
}

// NewARPReply creates an ARP reply packet.
func NewARPReply(senderMAC netstack.MAC, senderIP netstack.Addr, targetMAC netstack.MAC, targetIP netstack.Addr) *ARPPacket {
	return &ARPPacket{
		HardwareType: 1,
		ProtocolType: uint16(netstack.EtherTypeIPv4),
		HardwareSize: 6,
		ProtocolSize: 4,
		Operation:    ARPOperationReply,
		SenderMAC:    senderMAC,
		SenderIP:     senderIP,
		TargetMAC:    targetMAC,
		TargetIP:     targetIP,
	}
}

// CacheSize is the number of slots in the ARP cache.
const CacheSize = 16

type cacheEntry struct {
	ip    netstack.Addr
	mac   netstack.MAC
	valid bool
}

// Cache is a fixed-size IP-to-MAC mapping table. An entry for an already
// cached IP is updated in place, so the table never holds two entries for
// the same address. When every slot is taken a new entry overwrites slot 0;
// there is no LRU.
type Cache struct {
	entries [CacheSize]cacheEntry
}

// Lookup returns the cached MAC address for ip.
func (c *Cache) Lookup(ip netstack.Addr) (netstack.MAC, bool) {
	for i := range c.entries {
		if c.entries[i].valid && c.entries[i].ip == ip {
			return c.entries[i].mac, true
		}
	}
	return netstack.MAC{}, false
}

// Insert adds or updates the mapping for ip.
func (c *Cache) Insert(ip netstack.Addr, mac netstack.MAC) {
	for i := range c.entries {
		if c.entries[i].valid && c.entries[i].ip == ip {
			c.entries[i].mac = mac
			return
		}
	}
	for i := range c.entries {
		if !c.entries[i].valid {
			c.entries[i] = cacheEntry{ip: ip, mac: mac, valid: true}
			return
		}
	}
	c.entries[0] = cacheEntry{ip: ip, mac: mac, valid: true}
}
