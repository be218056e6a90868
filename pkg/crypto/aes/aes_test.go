package aes_test

import (
	stdaes "crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pondos/pkg/crypto/aes"
)

// FIPS-197 appendix C.1 vector.
func TestEncryptBlockFIPS197(t *testing.T) {
	var key [16]byte
	var plaintext [16]byte
	for i := 0; i < 16; i++ {
		key[i] = byte(i)              // 000102...0f
		plaintext[i] = byte(i) * 0x11 // 001122...ff
	}

	c := aes.NewCipher(key)
	out := make([]byte, 16)
	c.EncryptBlock(out, plaintext[:])

	assert.Equal(t, "69c4e0d86a7b0430d8cdb78070b4c55a", hex.EncodeToString(out))

	back := make([]byte, 16)
	c.DecryptBlock(back, out)
	assert.Equal(t, plaintext[:], back)
}

func TestBlockRoundTripAgainstStdlib(t *testing.T) {
	key := [16]byte{0x2b, 0x7e, 0x15, 0x16, 0x28, 0xae, 0xd2, 0xa6, 0xab, 0xf7, 0x15, 0x88, 0x09, 0xcf, 0x4f, 0x3c}
	c := aes.NewCipher(key)

	std, err := stdaes.NewCipher(key[:])
	require.NoError(t, err)

	block := make([]byte, 16)
	for trial := 0; trial < 64; trial++ {
		for i := range block {
			block[i] = byte(trial*31 + i*7)
		}

		got := make([]byte, 16)
		want := make([]byte, 16)
		c.EncryptBlock(got, block)
		std.Encrypt(want, block)
		require.Equal(t, want, got, "encrypt trial %d", trial)

		c.DecryptBlock(got, want)
		require.Equal(t, block, got, "decrypt trial %d", trial)
	}
}

func TestCBCRoundTrip(t *testing.T) {
	key := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	iv := [16]byte{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7, 0xA8, 0xA9, 0xAA, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF}

	plaintext := make([]byte, 96)
	for i := range plaintext {
		plaintext[i] = byte(i * 3)
	}

	c := aes.NewCipher(key)
	ct, err := aes.EncryptCBC(c, iv, plaintext)
	require.NoError(t, err)
	require.Len(t, ct, len(plaintext))

	// Cross-check against the standard library CBC mode.
	std, err := stdaes.NewCipher(key[:])
	require.NoError(t, err)
	want := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(std, iv[:]).CryptBlocks(want, plaintext)
	assert.Equal(t, want, ct)

	back, err := aes.DecryptCBC(c, iv, ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, back)
}

func TestCBCRejectsPartialBlocks(t *testing.T) {
	key := [16]byte{}
	c := aes.NewCipher(key)

	if _, err := aes.EncryptCBC(c, [16]byte{}, make([]byte, 15)); err == nil {
		t.Error("expected error for partial-block plaintext")
	}
	if _, err := aes.DecryptCBC(c, [16]byte{}, make([]byte, 17)); err == nil {
		t.Error("expected error for partial-block ciphertext")
	}
	if _, err := aes.DecryptCBC(c, [16]byte{}, nil); err == nil {
		t.Error("expected error for empty ciphertext")
	}
}
