package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

// RSABits is the modulus size of generated key pairs.
const RSABits = 2048

// KeyGenerator produces a fresh RSA private key.
type KeyGenerator func() (*rsa.PrivateKey, error)

// GenerateRSAKey is the default KeyGenerator.
func GenerateRSAKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, RSABits)
}

// KeyPair is a freshly generated key pair with its exported public half.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  domain.ExportedPublicKey
}

// GenerateKeyPair creates a key pair with gen, or GenerateRSAKey when gen is
// nil. Any failure is reported as ErrKeyGenerationFailed.
func GenerateKeyPair(gen KeyGenerator) (KeyPair, error) {
	if gen == nil {
		gen = GenerateRSAKey
	}
	priv, err := gen()
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %w", cerrors.ErrKeyGenerationFailed, err)
	}
	if priv == nil || priv.N.BitLen() < MinRSABits {
		return KeyPair{}, fmt.Errorf("%w: unusable key", cerrors.ErrKeyGenerationFailed)
	}
	pub, err := ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %w", cerrors.ErrKeyGenerationFailed, err)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// WrapKey encrypts a short secret to pub with RSA-OAEP-SHA256.
func WrapKey(pub *rsa.PublicKey, secret []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, secret, nil)
}

// UnwrapKey reverses WrapKey. Any failure is reported as ErrKeyUnwrapFailed.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	secret, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, cerrors.ErrKeyUnwrapFailed
	}
	return secret, nil
}
