package tls

import "pondos/pkg/crypto/hash"

// PRF is the TLS 1.2 pseudo-random function (RFC 5246 section 5):
// P_SHA256(secret, label || seed) iterated until n bytes are produced.
// Both offered cipher suites use the SHA-256 PRF.
func PRF(secret []byte, label string, seed []byte, n int) []byte {
	ls := make([]byte, 0, len(label)+len(seed))
	ls = append(ls, label...)
	ls = append(ls, seed...)

	out := make([]byte, 0, n+hash.SHA256Size)
	a := hash.HMACSHA256(secret, ls) // A(1)

	for len(out) < n {
		msg := make([]byte, 0, hash.SHA256Size+len(ls))
		msg = append(msg, a[:]...)
		msg = append(msg, ls...)

		block := hash.HMACSHA256(secret, msg)
		out = append(out, block[:]...)

		a = hash.HMACSHA256(secret, a[:]) // A(i+1)
	}
	return out[:n]
}
