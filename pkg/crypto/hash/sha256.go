// Package hash implements the SHA-256 and SHA-1 digests and their HMAC
// constructions from scratch. The TLS client depends on these; nothing here
// touches the standard library crypto packages.
package hash

import "encoding/binary"

// SHA256Size is the size of a SHA-256 digest in bytes.
const SHA256Size = 32

// BlockSize is the compression block size shared by SHA-256 and SHA-1.
const BlockSize = 64

var sha256Init = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

var sha256K = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5,
	0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3,
	0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc,
	0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7,
	0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13,
	0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3,
	0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5,
	0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208,
	0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// SHA256 is a streaming SHA-256 digest (FIPS 180-4).
type SHA256 struct {
	h   [8]uint32
	buf [BlockSize]byte
	n   int
	len uint64
}

// NewSHA256 returns a fresh SHA-256 digest.
func NewSHA256() *SHA256 {
	d := &SHA256{}
	d.Reset()
	return d
}

// Reset returns the digest to its initial state.
func (d *SHA256) Reset() {
	d.h = sha256Init
	d.n = 0
	d.len = 0
}

// Update absorbs p into the digest.
func (d *SHA256) Update(p []byte) {
	d.len += uint64(len(p))
	if d.n > 0 {
		n := copy(d.buf[d.n:], p)
		d.n += n
		p = p[n:]
		if d.n == BlockSize {
			d.block(d.buf[:])
			d.n = 0
		}
	}
	for len(p) >= BlockSize {
		d.block(p[:BlockSize])
		p = p[BlockSize:]
	}
	d.n = copy(d.buf[:], p)
}

// Sum finalizes a copy of the digest and returns it; the receiver can keep
// absorbing data afterwards. The TLS handshake transcript relies on this to
// hash the same stream at two points.
func (d *SHA256) Sum() [SHA256Size]byte {
	f := *d
	f.pad()

	var out [SHA256Size]byte
	for i, v := range f.h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func (d *SHA256) pad() {
	bits := d.len * 8
	d.Update([]byte{0x80})
	for d.n != 56 {
		d.Update([]byte{0x00})
	}
	var footer [8]byte
	binary.BigEndian.PutUint64(footer[:], bits)
	d.Update(footer[:])
}

func (d *SHA256) block(p []byte) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	for i := 16; i < 64; i++ {
		s0 := rotr32(w[i-15], 7) ^ rotr32(w[i-15], 18) ^ (w[i-15] >> 3)
		s1 := rotr32(w[i-2], 17) ^ rotr32(w[i-2], 19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, dd, e, f, g, h := d.h[0], d.h[1], d.h[2], d.h[3], d.h[4], d.h[5], d.h[6], d.h[7]

	for i := 0; i < 64; i++ {
		s1 := rotr32(e, 6) ^ rotr32(e, 11) ^ rotr32(e, 25)
		ch := (e & f) ^ (^e & g)
		t1 := h + s1 + ch + sha256K[i] + w[i]
		s0 := rotr32(a, 2) ^ rotr32(a, 13) ^ rotr32(a, 22)
		maj := (a & b) ^ (a & c) ^ (b & c)
		t2 := s0 + maj

		h = g
		g = f
		f = e
		e = dd + t1
		dd = c
		c = b
		b = a
		a = t1 + t2
	}

	d.h[0] += a
	d.h[1] += b
	d.h[2] += c
	d.h[3] += dd
	d.h[4] += e
	d.h[5] += f
	d.h[6] += g
	d.h[7] += h
}

// SumSHA256 returns the SHA-256 digest of data.
func SumSHA256(data []byte) [SHA256Size]byte {
	d := NewSHA256()
	d.Update(data)
	return d.Sum()
}

func rotr32(x uint32, n uint) uint32 {
	return x>>n | x<<(32-n)
}
