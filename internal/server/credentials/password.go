// Package credentials derives and verifies stored password hashes.
//
// A stored hash is base64(AES(SHA-256(salt + " " + password), serverKey)).
// Encrypting the digest means a leaked user table is not enough to brute
// force passwords without the server key as well.
package credentials

import (
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

const saltBytes = 16

// Passwords hashes passwords under a server-held key. Safe for concurrent use.
type Passwords struct {
	key []byte
}

func NewPasswords(serverKey []byte) *Passwords {
	return &Passwords{key: serverKey}
}

// Derive returns the stored form of password for the given salt.
// A bad server key yields an error wrapping common.ErrorInvalidKey.
func (p *Passwords) Derive(password, salt string) (string, error) {
	sealed, err := cryptox.Encrypt(cryptox.Digest(salt+" "+password), p.key)
	if err != nil {
		return "", fmt.Errorf("derive password hash: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Verify reports whether password matches expectedHash. The error is only
// set when the hash could not be computed; a wrong password is (false, nil).
func (p *Passwords) Verify(password, salt, expectedHash string) (bool, error) {
	got, err := p.Derive(password, salt)
	if err != nil {
		return false, err
	}
	return cryptox.Equal([]byte(got), []byte(expectedHash)), nil
}

// NewSalt returns a fresh random per-user salt.
func NewSalt() (string, error) {
	salt, err := common.MakeRandHexString(saltBytes)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
