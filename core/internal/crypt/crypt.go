// Package crypt implements the counter-mode stream cipher applied to
// sensitive archive payloads.
//
// The keystream is XTEA in CTR mode with a zero initial counter, so the
// same operation both encrypts and decrypts.
package crypt

import (
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/xtea"
)

// KeySize is the required key length in bytes.
const KeySize = 16

// Cipher applies the keystream for a fixed key.
type Cipher struct {
	block *xtea.Cipher
}

// New returns a Cipher for key, which must be KeySize bytes.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypt: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := xtea.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypt: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Apply returns src XORed with the keystream. src is not modified.
func (c *Cipher) Apply(src []byte) []byte {
	dst := make([]byte, len(src))
	iv := make([]byte, xtea.BlockSize)
	cipher.NewCTR(c.block, iv).XORKeyStream(dst, src)
	return dst
}
