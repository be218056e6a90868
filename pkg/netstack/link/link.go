// Package link provides Device and Clock implementations that do not need
// real hardware: a scripted device fed canned frames, and clocks for tests
// and for wall-time operation.
package link

import (
	"fmt"
	"time"

	"pondos/pkg/netstack"
)

// ScriptedDevice is an in-memory Device. Frames sent by the stack are
// captured in Sent; frames for the stack to receive are queued with Inject
// or produced by the Responder hook.
type ScriptedDevice struct {
	mac netstack.MAC
	rx  [][]byte

	// Sent records every frame the stack transmitted, in order.
	Sent [][]byte

	// Responder, when set, is invoked with each sent frame and may return
	// frames to queue as replies. It models the far side of the wire.
	Responder func(frame []byte) [][]byte

	// Down simulates a dead link.
	Down bool
}

// NewScriptedDevice returns a device with the given hardware address.
func NewScriptedDevice(mac netstack.MAC) *ScriptedDevice {
	return &ScriptedDevice{mac: mac}
}

// Inject queues a frame for the stack to receive.
func (d *ScriptedDevice) Inject(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	d.rx = append(d.rx, cp)
}

// Available reports whether the link is up.
func (d *ScriptedDevice) Available() bool {
	return !d.Down
}

// HardwareAddr returns the device MAC.
func (d *ScriptedDevice) HardwareAddr() netstack.MAC {
	return d.mac
}

// Send captures the frame and runs the Responder hook.
func (d *ScriptedDevice) Send(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	d.Sent = append(d.Sent, cp)

	if d.Responder != nil {
		for _, reply := range d.Responder(cp) {
			d.Inject(reply)
		}
	}
	return nil
}

// Receive pops the oldest queued frame into buf. With nothing queued it
// returns 0, nil.
func (d *ScriptedDevice) Receive(buf []byte) (int, error) {
	if len(d.rx) == 0 {
		return 0, nil
	}
	frame := d.rx[0]
	d.rx = d.rx[1:]
	if len(buf) < len(frame) {
		return 0, fmt.Errorf("link: frame of %d bytes exceeds buffer of %d", len(frame), len(buf))
	}
	return copy(buf, frame), nil
}

// ManualClock is a Clock advanced explicitly, or automatically by Step
// milliseconds per Now call so polling loops make progress in tests.
type ManualClock struct {
	MS   uint64
	Step uint64
}

// Now returns the current tick and applies Step.
func (c *ManualClock) Now() uint64 {
	now := c.MS
	c.MS += c.Step
	return now
}

// Advance moves the clock forward by ms milliseconds.
func (c *ManualClock) Advance(ms uint64) {
	c.MS += ms
}

// SystemClock reports wall time in milliseconds since it was created.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns elapsed milliseconds.
func (c *SystemClock) Now() uint64 {
	return uint64(time.Since(c.start) / time.Millisecond)
}
