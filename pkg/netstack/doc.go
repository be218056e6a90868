// Package netstack provides the shared types for the freestanding TCP/IP
// network stack: IPv4 and hardware addresses, protocol identifiers, the
// link-layer device and tick-clock interfaces, and the Internet checksum.
//
// The stack has no OS sockets and no preemptive concurrency. Everything that
// "blocks" is a cooperative poll loop over the receive pump in
// pkg/netstack/stack, bounded by a deadline taken from the Clock.
//
// Layer structure:
//   - Layer 2 (Link): Ethernet frames, ARP (pkg/netstack/ethernet)
//   - Layer 3 (Network): IPv4 (pkg/netstack/ip)
//   - Layer 4 (Transport): TCP, UDP (pkg/netstack/tcp, pkg/netstack/udp)
//   - Engine: pkg/netstack/stack ties the codecs to a Device
package netstack
