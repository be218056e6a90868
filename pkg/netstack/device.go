package netstack

// Device is the link-layer NIC driver the stack runs on top of. The driver
// itself (hardware access, DMA rings) lives outside this repository; the
// stack only ever sends and receives whole Ethernet frames through it.
type Device interface {
	// Available reports whether the link is up and frames can be sent.
	Available() bool

	// HardwareAddr returns the device's MAC address.
	HardwareAddr() MAC

	// Send transmits one Ethernet frame.
	Send(frame []byte) error

	// Receive copies the next pending frame into buf and returns its
	// length. It returns 0 with a nil error when no frame is pending.
	Receive(buf []byte) (int, error)
}

// Clock is the platform's monotonic millisecond tick source. Every timeout
// in the stack is a deadline against Now; there is no other notion of time.
type Clock interface {
	Now() uint64
}
