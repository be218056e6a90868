package bigint_test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pondos/pkg/crypto/bigint"
)

func randBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}

func TestBytesRoundTrip(t *testing.T) {
	in := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	x := bigint.FromBytes(in)
	assert.Equal(t, in, x.Bytes())

	// Leading zeros are dropped.
	x = bigint.FromBytes([]byte{0x00, 0x00, 0xFF})
	assert.Equal(t, []byte{0xFF}, x.Bytes())

	assert.Nil(t, bigint.Zero().Bytes())
}

func TestBitLenAndBit(t *testing.T) {
	x := bigint.FromBytes([]byte{0x01, 0x00}) // 256
	assert.Equal(t, 9, x.BitLen())
	assert.Equal(t, uint(1), x.Bit(8))
	assert.Equal(t, uint(0), x.Bit(0))
	assert.Equal(t, uint(0), x.Bit(1000))
	assert.Equal(t, 0, bigint.Zero().BitLen())
}

func TestCmp(t *testing.T) {
	a := bigint.FromBytes([]byte{0x10, 0x00})
	b := bigint.FromBytes([]byte{0x0F, 0xFF})
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(bigint.FromBytes([]byte{0x10, 0x00})))
}

func TestAddSubAgainstMathBig(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		ab := randBytes(r, 1+r.Intn(64))
		bb := randBytes(r, 1+r.Intn(64))

		a, b := bigint.FromBytes(ab), bigint.FromBytes(bb)
		ra, rb := new(big.Int).SetBytes(ab), new(big.Int).SetBytes(bb)

		sum := a.Add(b)
		require.Equal(t, new(big.Int).Add(ra, rb).Bytes(), normBytes(sum.Bytes()), "add trial %d", trial)

		hi, lo := a, b
		rhi, rlo := ra, rb
		if a.Cmp(b) < 0 {
			hi, lo = b, a
			rhi, rlo = rb, ra
		}
		diff := hi.Sub(lo)
		require.Equal(t, new(big.Int).Sub(rhi, rlo).Bytes(), normBytes(diff.Bytes()), "sub trial %d", trial)
	}
}

func TestShl(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for trial := 0; trial < 100; trial++ {
		ab := randBytes(r, 1+r.Intn(32))
		n := uint(r.Intn(100))

		got := bigint.FromBytes(ab).Shl(n)
		want := new(big.Int).Lsh(new(big.Int).SetBytes(ab), n)
		require.Equal(t, want.Bytes(), normBytes(got.Bytes()), "shl trial %d", trial)
	}
}

func TestModMulModExpModAgainstMathBig(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		ab := randBytes(r, 1+r.Intn(48))
		bb := randBytes(r, 1+r.Intn(48))
		mb := randBytes(r, 1+r.Intn(32))
		mb[0] |= 1 // keep the modulus nonzero

		a, b, m := bigint.FromBytes(ab), bigint.FromBytes(bb), bigint.FromBytes(mb)
		ra, rb, rm := new(big.Int).SetBytes(ab), new(big.Int).SetBytes(bb), new(big.Int).SetBytes(mb)

		mod := bigint.Mod(a, m)
		require.Equal(t, new(big.Int).Mod(ra, rm).Bytes(), normBytes(mod.Bytes()), "mod trial %d", trial)

		mul := bigint.MulMod(a, b, m)
		wantMul := new(big.Int).Mul(ra, rb)
		wantMul.Mod(wantMul, rm)
		require.Equal(t, wantMul.Bytes(), normBytes(mul.Bytes()), "mulmod trial %d", trial)
	}

	// Exponentiation with small exponents against math/big.
	for trial := 0; trial < 10; trial++ {
		bb := randBytes(r, 1+r.Intn(24))
		mb := randBytes(r, 1+r.Intn(24))
		mb[0] |= 1
		eb := []byte{byte(1 + r.Intn(255))}

		base, e, m := bigint.FromBytes(bb), bigint.FromBytes(eb), bigint.FromBytes(mb)
		want := new(big.Int).Exp(new(big.Int).SetBytes(bb), new(big.Int).SetBytes(eb), new(big.Int).SetBytes(mb))

		got := bigint.ExpMod(base, e, m)
		require.Equal(t, want.Bytes(), normBytes(got.Bytes()), "expmod trial %d", trial)
	}
}

// RSA-shaped operation: x^65537 mod a 512-bit modulus.
func TestExpModPublicExponent(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	mb := randBytes(r, 64)
	mb[0] |= 0x80
	mb[63] |= 1
	xb := randBytes(r, 48)

	e := bigint.FromBytes([]byte{0x01, 0x00, 0x01})
	got := bigint.ExpMod(bigint.FromBytes(xb), e, bigint.FromBytes(mb))

	want := new(big.Int).Exp(new(big.Int).SetBytes(xb), big.NewInt(65537), new(big.Int).SetBytes(mb))
	assert.Equal(t, want.Bytes(), normBytes(got.Bytes()))
}

func TestSubUnderflowPanics(t *testing.T) {
	assert.Panics(t, func() {
		bigint.FromUint(1).Sub(bigint.FromUint(2))
	})
}

// normBytes maps nil and empty to the same representation math/big uses.
func normBytes(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	return b
}
