// Package prng provides the stack's pseudo-random number generator. It is
// seeded from the platform tick counter and is NOT cryptographically secure;
// the TLS client uses it for nonces, IVs and padding exactly as the rest of
// the system does, which is part of this stack's documented threat model.
package prng

// PRNG is an xorshift64* generator.
type PRNG struct {
	state uint64
}

// New creates a generator seeded from the given value, typically the
// millisecond tick counter. A zero seed is remapped, since xorshift has a
// fixed point at zero.
func New(seed uint64) *PRNG {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &PRNG{state: seed}
}

// Uint64 returns the next 64-bit value.
func (p *PRNG) Uint64() uint64 {
	x := p.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	p.state = x
	return x * 0x2545F4914F6CDD1D
}

// Uint32 returns the next 32-bit value.
func (p *PRNG) Uint32() uint32 {
	return uint32(p.Uint64() >> 32)
}

// Fill fills b with pseudo-random bytes.
func (p *PRNG) Fill(b []byte) {
	for i := 0; i < len(b); i += 8 {
		v := p.Uint64()
		for j := i; j < i+8 && j < len(b); j++ {
			b[j] = byte(v)
			v >>= 8
		}
	}
}
