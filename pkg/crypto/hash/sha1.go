package hash

import "encoding/binary"

// SHA1Size is the size of a SHA-1 digest in bytes.
const SHA1Size = 20

var sha1Init = [5]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476, 0xC3D2E1F0}

// SHA1 is a streaming SHA-1 digest (FIPS 180-4). It exists for the
// AES_128_CBC_SHA cipher suite's record MAC; everything else uses SHA-256.
type SHA1 struct {
	h   [5]uint32
	buf [BlockSize]byte
	n   int
	len uint64
}

// NewSHA1 returns a fresh SHA-1 digest.
func NewSHA1() *SHA1 {
	d := &SHA1{}
	d.Reset()
	return d
}

// Reset returns the digest to its initial state.
func (d *SHA1) Reset() {
	d.h = sha1Init
	d.n = 0
	d.len = 0
}

// Update absorbs p into the digest.
func (d *SHA1) Update(p []byte) {
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

// Sum finalizes a copy of the digest and returns it.
func (d *SHA1) Sum() [SHA1Size]byte {
	f := *d
	bits := f.len * 8
	f.Update([]byte{0x80})
	for f.n != 56 {
		f.Update([]byte{0x00})
	}
	var footer [8]byte
	binary.BigEndian.PutUint64(footer[:], bits)
	f.Update(footer[:])

	var out [SHA1Size]byte
	for i, v := range f.h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func (d *SHA1) block(p []byte) {
	var w [80]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	for i := 16; i < 80; i++ {
		w[i] = rotl32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1)
	}

	a, b, c, dd, e := d.h[0], d.h[1], d.h[2], d.h[3], d.h[4]

	for i := 0; i < 80; i++ {
		var f, k uint32
		switch {
		case i < 20:
			f = (b & c) | (^b & dd)
			k = 0x5A827999
		case i < 40:
			f = b ^ c ^ dd
			k = 0x6ED9EBA1
		case i < 60:
			f = (b & c) | (b & dd) | (c & dd)
			k = 0x8F1BBCDC
		default:
			f = b ^ c ^ dd
			k = 0xCA62C1D6
		}

		t := rotl32(a, 5) + f + e + k + w[i]
		e = dd
		dd = c
		c = rotl32(b, 30)
		b = a
		a = t
	}

	d.h[0] += a
	d.h[1] += b
	d.h[2] += c
	d.h[3] += dd
	d.h[4] += e
}

// SumSHA1 returns the SHA-1 digest of data.
func SumSHA1(data []byte) [SHA1Size]byte {
	d := NewSHA1()
	d.Update(data)
	return d.Sum()
}

func rotl32(x uint32, n uint) uint32 {
	return x<<n | x>>(32-n)
}
