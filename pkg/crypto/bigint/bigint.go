// Package bigint implements the arbitrary-precision unsigned integer
// arithmetic the RSA key exchange needs: comparison, addition, subtraction,
// shifts, and modular multiplication/exponentiation. Multiplication-mod is
// schoolbook shift-and-add with reduction by subtraction; it is not constant
// time, which is acceptable because the stack only ever exponentiates with
// public RSA exponents.
package bigint

// Int is an unsigned integer stored as little-endian 32-bit limbs with no
// trailing zero limbs. Values are immutable; operations return new Ints.
type Int struct {
	w []uint32
}

// Zero returns the integer 0.
func Zero() *Int {
	return &Int{}
}

// One returns the integer 1.
func One() *Int {
	return &Int{w: []uint32{1}}
}

// FromUint creates an Int from a uint32.
func FromUint(v uint32) *Int {
	if v == 0 {
		return Zero()
	}
	return &Int{w: []uint32{v}}
}

// FromBytes creates an Int from big-endian bytes.
func FromBytes(b []byte) *Int {
	x := &Int{w: make([]uint32, (len(b)+3)/4)}
	for i := 0; i < len(b); i++ {
		// byte i from the end goes into limb i/4, shifted by 8*(i%4)
		j := len(b) - 1 - i
		x.w[i/4] |= uint32(b[j]) << (8 * uint(i%4))
	}
	return x.norm()
}

// Bytes returns the big-endian byte form with no leading zeros; the zero
// value yields an empty slice.
func (x *Int) Bytes() []byte {
	n := x.BitLen()
	if n == 0 {
		return nil
	}
	out := make([]byte, (n+7)/8)
	for i := range out {
		j := len(out) - 1 - i
		out[j] = byte(x.w[i/4] >> (8 * uint(i%4)))
	}
	return out
}

// IsZero reports whether x is zero.
func (x *Int) IsZero() bool {
	return len(x.w) == 0
}

// BitLen returns the length of x in bits.
func (x *Int) BitLen() int {
	if len(x.w) == 0 {
		return 0
	}
	top := x.w[len(x.w)-1]
	n := (len(x.w) - 1) * 32
	for top != 0 {
		top >>= 1
		n++
	}
	return n
}

// Bit returns bit i of x (0 or 1).
func (x *Int) Bit(i int) uint {
	limb := i / 32
	if limb >= len(x.w) {
		return 0
	}
	return uint(x.w[limb]>>(uint(i)%32)) & 1
}

// Cmp compares x and y, returning -1, 0, or +1.
func (x *Int) Cmp(y *Int) int {
	if len(x.w) != len(y.w) {
		if len(x.w) < len(y.w) {
			return -1
		}
		return 1
	}
	for i := len(x.w) - 1; i >= 0; i-- {
		if x.w[i] != y.w[i] {
			if x.w[i] < y.w[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Add returns x + y.
func (x *Int) Add(y *Int) *Int {
	a, b := x.w, y.w
	if len(a) < len(b) {
		a, b = b, a
	}

	out := make([]uint32, len(a)+1)
	var carry uint64
	for i := 0; i < len(a); i++ {
		sum := uint64(a[i]) + carry
		if i < len(b) {
			sum += uint64(b[i])
		}
		out[i] = uint32(sum)
		carry = sum >> 32
	}
	out[len(a)] = uint32(carry)

	return (&Int{w: out}).norm()
}

// Sub returns x - y. It panics if y > x; all callers subtract a reduced
// value from a larger one.
func (x *Int) Sub(y *Int) *Int {
	if x.Cmp(y) < 0 {
		panic("bigint: subtraction underflow")
	}

	out := make([]uint32, len(x.w))
	var borrow uint64
	for i := 0; i < len(x.w); i++ {
		var yi uint64
		if i < len(y.w) {
			yi = uint64(y.w[i])
		}
		diff := uint64(x.w[i]) - yi - borrow
		out[i] = uint32(diff)
		borrow = (diff >> 32) & 1
	}

	return (&Int{w: out}).norm()
}

// Shl returns x << n.
func (x *Int) Shl(n uint) *Int {
	if x.IsZero() {
		return Zero()
	}

	limbs := int(n / 32)
	bits := n % 32
	out := make([]uint32, len(x.w)+limbs+1)
	for i, v := range x.w {
		out[i+limbs] |= v << bits
		if bits != 0 {
			out[i+limbs+1] |= v >> (32 - bits)
		}
	}

	return (&Int{w: out}).norm()
}

// shr1 returns x >> 1.
func (x *Int) shr1() *Int {
	if x.IsZero() {
		return Zero()
	}
	out := make([]uint32, len(x.w))
	for i := range x.w {
		out[i] = x.w[i] >> 1
		if i+1 < len(x.w) {
			out[i] |= x.w[i+1] << 31
		}
	}
	return (&Int{w: out}).norm()
}

func (x *Int) norm() *Int {
	n := len(x.w)
	for n > 0 && x.w[n-1] == 0 {
		n--
	}
	x.w = x.w[:n]
	return x
}

// Mod returns x mod m. It panics on a zero modulus.
func Mod(x, m *Int) *Int {
	if m.IsZero() {
		panic("bigint: division by zero")
	}
	r := &Int{w: append([]uint32(nil), x.w...)}
	if r.Cmp(m) < 0 {
		return r
	}

	shift := uint(r.BitLen() - m.BitLen())
	t := m.Shl(shift)
	for {
		if r.Cmp(t) >= 0 {
			r = r.Sub(t)
		}
		if shift == 0 {
			break
		}
		shift--
		t = t.shr1()
	}
	return r
}

// MulMod returns (a * b) mod m, using shift-and-add with a reduction after
// every step so intermediates never exceed 2m.
func MulMod(a, b, m *Int) *Int {
	a = Mod(a, m)
	result := Zero()

	for i := b.BitLen() - 1; i >= 0; i-- {
		result = result.Shl(1)
		if result.Cmp(m) >= 0 {
			result = result.Sub(m)
		}
		if b.Bit(i) == 1 {
			result = result.Add(a)
			if result.Cmp(m) >= 0 {
				result = result.Sub(m)
			}
		}
	}
	return result
}

// ExpMod returns base^exp mod m by binary square-and-multiply over the
// exponent's bits, most significant first.
func ExpMod(base, exp, m *Int) *Int {
	if m.IsZero() {
		panic("bigint: division by zero")
	}
	base = Mod(base, m)
	result := Mod(One(), m)

	for i := exp.BitLen() - 1; i >= 0; i-- {
		result = MulMod(result, result, m)
		if exp.Bit(i) == 1 {
			result = MulMod(result, base, m)
		}
	}
	return result
}
