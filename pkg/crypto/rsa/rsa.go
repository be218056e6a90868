// Package rsa implements RSA PKCS#1 v1.5 encryption with the public key
// extracted from a DER-encoded X.509 certificate. Only the encryption
// direction exists: the TLS client never holds a private key.
//
// No certificate chain, signature, or hostname validation is performed;
// the key is taken from whatever certificate the peer presents. This is a
// known, documented limitation inherited from the system's design - HTTPS
// here protects against passive eavesdropping only, not active MITM.
package rsa

import (
	"errors"
	"fmt"

	"pondos/pkg/crypto/bigint"
	"pondos/pkg/crypto/prng"
)

// ErrMessageTooLong is returned when the plaintext does not fit the modulus.
var ErrMessageTooLong = errors.New("rsa: message too long for modulus")

// PublicKey is an RSA public key.
type PublicKey struct {
	N *bigint.Int // modulus
	E uint32      // public exponent
}

// Size returns the modulus length in bytes, which is also the ciphertext
// length.
func (pub *PublicKey) Size() int {
	return (pub.N.BitLen() + 7) / 8
}

// EncryptPKCS1v15 encrypts msg with PKCS#1 v1.5 type-2 padding:
// 0x00 0x02 || nonzero random padding || 0x00 || msg.
func EncryptPKCS1v15(rng *prng.PRNG, pub *PublicKey, msg []byte) ([]byte, error) {
	k := pub.Size()
	if len(msg) > k-11 {
		return nil, ErrMessageTooLong
	}

	em := make([]byte, k)
	em[1] = 0x02
	ps := em[2 : k-len(msg)-1]
	for i := range ps {
		for ps[i] == 0 {
			ps[i] = byte(rng.Uint32())
		}
	}
	copy(em[k-len(msg):], msg)

	c := bigint.ExpMod(bigint.FromBytes(em), bigint.FromUint(pub.E), pub.N)

	out := make([]byte, k)
	cb := c.Bytes()
	copy(out[k-len(cb):], cb)
	return out, nil
}

// ExtractPublicKey pulls the RSA public key out of a DER-encoded X.509
// certificate. It walks the certificate structure looking for the BIT STRING
// that holds the SubjectPublicKeyInfo key data and parses the nested
// SEQUENCE of two INTEGERs (modulus, exponent). It deliberately ignores
// every other certificate field.
func ExtractPublicKey(cert []byte) (*PublicKey, error) {
	key := findRSAKeyBitString(cert)
	if key == nil {
		return nil, errors.New("rsa: no RSA public key found in certificate")
	}
	return key, nil
}

// findRSAKeyBitString scans DER elements depth-first for a BIT STRING whose
// contents parse as SEQUENCE { INTEGER, INTEGER }.
func findRSAKeyBitString(data []byte) *PublicKey {
	for len(data) > 0 {
		tag, content, rest, err := readTLV(data)
		if err != nil {
			return nil
		}

		if tag == tagBitString && len(content) >= 1 {
			// first content byte counts unused bits; the key data follows
			if key, err := parseRSAKey(content[1:]); err == nil {
				return key
			}
		}
		if tag&0x20 != 0 { // constructed: descend
			if key := findRSAKeyBitString(content); key != nil {
				return key
			}
		}
		data = rest
	}
	return nil
}

// parseRSAKey parses RSAPublicKey ::= SEQUENCE { modulus INTEGER,
// publicExponent INTEGER }.
func parseRSAKey(data []byte) (*PublicKey, error) {
	tag, content, _, err := readTLV(data)
	if err != nil || tag != tagSequence {
		return nil, errors.New("rsa: not an RSAPublicKey sequence")
	}

	tag, modBytes, rest, err := readTLV(content)
	if err != nil || tag != tagInteger {
		return nil, errors.New("rsa: missing modulus")
	}
	tag, expBytes, _, err := readTLV(rest)
	if err != nil || tag != tagInteger {
		return nil, errors.New("rsa: missing exponent")
	}

	// INTEGER values may carry a leading zero to stay positive.
	for len(modBytes) > 1 && modBytes[0] == 0 {
		modBytes = modBytes[1:]
	}
	for len(expBytes) > 1 && expBytes[0] == 0 {
		expBytes = expBytes[1:]
	}
	if len(expBytes) == 0 || len(expBytes) > 4 {
		return nil, fmt.Errorf("rsa: unsupported exponent length %d", len(expBytes))
	}
	if len(modBytes) < 16 {
		return nil, fmt.Errorf("rsa: modulus too small: %d bytes", len(modBytes))
	}

	var e uint32
	for _, b := range expBytes {
		e = e<<8 | uint32(b)
	}
	if e == 0 {
		return nil, errors.New("rsa: zero exponent")
	}

	return &PublicKey{N: bigint.FromBytes(modBytes), E: e}, nil
}

// DER tags used above.
const (
	tagInteger   = 0x02
	tagBitString = 0x03
	tagSequence  = 0x30
)

// readTLV reads one DER tag-length-value element, returning the tag, the
// content bytes, and the remainder of the buffer. Every length is checked
// against the buffer before use.
func readTLV(data []byte) (tag byte, content, rest []byte, err error) {
	if len(data) < 2 {
		return 0, nil, nil, errors.New("der: truncated element")
	}

	tag = data[0]
	length := 0
	pos := 2

	if data[1] < 0x80 {
		length = int(data[1])
	} else {
		n := int(data[1] & 0x7F)
		if n == 0 || n > 4 || len(data) < 2+n {
			return 0, nil, nil, errors.New("der: bad long-form length")
		}
		for i := 0; i < n; i++ {
			length = length<<8 | int(data[2+i])
		}
		if length < 0 {
			return 0, nil, nil, errors.New("der: length overflow")
		}
		pos = 2 + n
	}

	if len(data) < pos+length {
		return 0, nil, nil, errors.New("der: element exceeds buffer")
	}
	return tag, data[pos : pos+length], data[pos+length:], nil
}
