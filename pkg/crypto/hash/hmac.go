package hash

// HMAC per RFC 2104: keys longer than the block size are hashed first,
// shorter keys are zero-padded; inner pad 0x36, outer pad 0x5c.

// HMACSHA256 computes HMAC-SHA-256 of msg under key.
func HMACSHA256(key, msg []byte) [SHA256Size]byte {
	ipad, opad := hmacPads(key, func(k []byte) []byte {
		sum := SumSHA256(k)
		return sum[:]
	})

	inner := NewSHA256()
	inner.Update(ipad)
	inner.Update(msg)
	innerSum := inner.Sum()

	outer := NewSHA256()
	outer.Update(opad)
	outer.Update(innerSum[:])
	return outer.Sum()
}

// HMACSHA1 computes HMAC-SHA-1 of msg under key.
func HMACSHA1(key, msg []byte) [SHA1Size]byte {
	ipad, opad := hmacPads(key, func(k []byte) []byte {
		sum := SumSHA1(k)
		return sum[:]
	})

	inner := NewSHA1()
	inner.Update(ipad)
	inner.Update(msg)
	innerSum := inner.Sum()

	outer := NewSHA1()
	outer.Update(opad)
	outer.Update(innerSum[:])
	return outer.Sum()
}

func hmacPads(key []byte, sum func([]byte) []byte) (ipad, opad []byte) {
	if len(key) > BlockSize {
		key = sum(key)
	}

	ipad = make([]byte, BlockSize)
	opad = make([]byte, BlockSize)
	copy(ipad, key)
	copy(opad, key)
	for i := 0; i < BlockSize; i++ {
		ipad[i] ^= 0x36
		opad[i] ^= 0x5c
	}
	return ipad, opad
}
