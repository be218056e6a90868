package aes

import "fmt"

// EncryptCBC encrypts plaintext (length a multiple of BlockSize) in CBC mode.
// The caller supplies the IV; TLS prepends it to the record unencrypted.
func EncryptCBC(c *Cipher, iv [BlockSize]byte, plaintext []byte) ([]byte, error) {
	if len(plaintext)%BlockSize != 0 {
		return nil, fmt.Errorf("CBC plaintext length %d not a multiple of %d", len(plaintext), BlockSize)
	}

	out := make([]byte, len(plaintext))
	prev := iv
	for i := 0; i < len(plaintext); i += BlockSize {
		var block [BlockSize]byte
		for j := 0; j < BlockSize; j++ {
			block[j] = plaintext[i+j] ^ prev[j]
		}
		c.EncryptBlock(out[i:i+BlockSize], block[:])
		copy(prev[:], out[i:i+BlockSize])
	}
	return out, nil
}

// DecryptCBC decrypts ciphertext (length a multiple of BlockSize) in CBC mode.
func DecryptCBC(c *Cipher, iv [BlockSize]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%BlockSize != 0 || len(ciphertext) == 0 {
		return nil, fmt.Errorf("CBC ciphertext length %d not a positive multiple of %d", len(ciphertext), BlockSize)
	}

	out := make([]byte, len(ciphertext))
	prev := iv
	for i := 0; i < len(ciphertext); i += BlockSize {
		c.DecryptBlock(out[i:i+BlockSize], ciphertext[i:i+BlockSize])
		for j := 0; j < BlockSize; j++ {
			out[i+j] ^= prev[j]
		}
		copy(prev[:], ciphertext[i:i+BlockSize])
	}
	return out, nil
}
