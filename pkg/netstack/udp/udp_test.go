package udp_test

import (
	"bytes"
	"testing"

	"pondos/pkg/netstack/udp"
)

func TestParseHeader(t *testing.T) {
	data := []byte{
		0x1a, 0x2b, // src port 6699
		0x00, 0x35, // dst port 53
		0x00, 0x0d, // length 13
		0x00, 0x00, // checksum
		'h', 'e', 'l', 'l', 'o',
	}

	h, err := udp.ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	if h.SrcPort != 6699 {
		t.Errorf("SrcPort = %d, want 6699", h.SrcPort)
	}
	if h.DstPort != 53 {
		t.Errorf("DstPort = %d, want 53", h.DstPort)
	}
	if h.Length != 13 {
		t.Errorf("Length = %d, want 13", h.Length)
	}
	if !bytes.Equal(h.Payload(data), []byte("hello")) {
		t.Errorf("Payload = %q, want %q", h.Payload(data), "hello")
	}
}

func TestParseHeaderRejectsMalformed(t *testing.T) {
	if _, err := udp.ParseHeader(make([]byte, 7)); err == nil {
		t.Error("expected error for truncated header")
	}

	// Length field claiming more bytes than the buffer holds.
	over := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0xFF, 0x00, 0x00}
	if _, err := udp.ParseHeader(over); err == nil {
		t.Error("expected error for over-length datagram")
	}

	// Length field smaller than the header itself.
	under := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x04, 0x00, 0x00}
	if _, err := udp.ParseHeader(under); err == nil {
		t.Error("expected error for under-length datagram")
	}
}

func TestBuildRoundTrip(t *testing.T) {
	payload := []byte("dns query bytes")
	data := udp.Build(49152, 53, payload)

	if len(data) != udp.HeaderLength+len(payload) {
		t.Fatalf("datagram length = %d, want %d", len(data), udp.HeaderLength+len(payload))
	}

	h, err := udp.ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if h.SrcPort != 49152 || h.DstPort != 53 {
		t.Errorf("ports = %d -> %d, want 49152 -> 53", h.SrcPort, h.DstPort)
	}
	if h.Checksum != 0 {
		t.Errorf("Checksum = %#04x, want 0", h.Checksum)
	}
	if !bytes.Equal(h.Payload(data), payload) {
		t.Error("payload mismatch after round trip")
	}
}
