package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"

	cerrors "ciphercomms/internal/errors"
)

const (
	// SessionKeySize is the AES-256 key length in bytes.
	SessionKeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
)

// GenerateSessionKey returns a random 256-bit AEAD key.
func GenerateSessionKey() ([]byte, error) {
	key := make([]byte, SessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plaintext under key with a fresh random nonce and returns
// nonce || ciphertext || tag.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return aead.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Decrypt opens nonce || ciphertext || tag. Short input, a wrong key, or any
// modified byte yields ErrAuthentication.
func Decrypt(key, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < NonceSize+aead.Overhead() {
		return nil, cerrors.ErrAuthentication
	}
	pt, err := aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, cerrors.ErrAuthentication
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", SessionKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// MarshalSessionKey encodes key as an "oct" JWK, the form that gets wrapped
// for each recipient.
func MarshalSessionKey(key []byte) ([]byte, error) {
	k, err := jwk.Import(key)
	if err != nil {
		return nil, err
	}
	if err := k.Set(jwk.AlgorithmKey, jwa.A256GCM()); err != nil {
		return nil, err
	}
	if err := k.Set(jwk.KeyOpsKey, jwk.KeyOperationList{jwk.KeyOpEncrypt, jwk.KeyOpDecrypt}); err != nil {
		return nil, err
	}
	if err := k.Set("ext", true); err != nil {
		return nil, err
	}
	return json.Marshal(k)
}

// ParseSessionKey decodes the output of MarshalSessionKey.
func ParseSessionKey(b []byte) ([]byte, error) {
	k, err := jwk.ParseKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrKeyUnwrapFailed, err)
	}
	var key []byte
	if err := jwk.Export(k, &key); err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrKeyUnwrapFailed, err)
	}
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: %d-byte session key", cerrors.ErrKeyUnwrapFailed, len(key))
	}
	return key, nil
}
