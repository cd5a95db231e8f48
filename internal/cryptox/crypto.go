// Package cryptox holds the symmetric primitives shared by password hashing
// and signed session tokens: SHA-256 digests, deterministic AES encryption
// under the server key, and constant-time comparison.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Digest returns SHA-256 of s.
func Digest(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

// ValidateKey reports whether key can be used as an AES key
// (16, 24 or 32 bytes).
func ValidateKey(key []byte) error {
	if _, err := aes.NewCipher(key); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidKey, err)
	}
	return nil
}

// Encrypt encrypts plaintext with AES under key, block by block (ECB) with
// PKCS#7 padding. The output is a pure function of (plaintext, key): hashes
// and signatures built on it can be recomputed and compared later. Do not
// use it for data that needs confidentiality against pattern analysis.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInvalidKey, err)
	}

	bs := block.BlockSize()
	padded := pad(plaintext, bs)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += bs {
		block.Encrypt(out[i:i+bs], padded[i:i+bs])
	}
	return out, nil
}

func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

// Equal compares a and b in time that depends only on their lengths.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
