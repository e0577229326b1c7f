package types

import (
	"crypto/rsa"

	cerrors "ciphercomms/internal/errors"
)

// KeyKind selects which half of a user's key pair a local store entry holds.
type KeyKind string

const (
	KeyKindPrivate KeyKind = "private"
	KeyKindPublic  KeyKind = "public"
)

// ExportedPublicKey is the portable JWK form of an RSA-OAEP public key as it
// is published in the directory.
type ExportedPublicKey struct {
	Kty    string   `json:"kty"`
	N      string   `json:"n"`
	E      string   `json:"e"`
	Alg    string   `json:"alg,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
	Ext    bool     `json:"ext,omitempty"`
}

// IsZero reports whether the key carries no modulus.
func (k ExportedPublicKey) IsZero() bool { return k.N == "" }

// Equal compares the key parameters. Metadata such as key_ops is ignored.
func (k ExportedPublicKey) Equal(o ExportedPublicKey) bool {
	return k.Kty == o.Kty && k.N == o.N && k.E == o.E
}

// KeyMaterial is what a local key store holds: either portable exported
// bytes or an opaque in-process handle.
type KeyMaterial interface {
	keyMaterial()
}

// ExportedKey is key material in its portable JWK JSON encoding.
type ExportedKey []byte

// KeyHandle wraps a platform key object that may not be exportable.
type KeyHandle struct {
	Key any
}

func (ExportedKey) keyMaterial() {}
func (KeyHandle) keyMaterial()   {}

// KeyState is the reconciliation state of a user's local keys against the directory.
type KeyState string

const (
	KeyStateSynced   KeyState = "synced"
	KeyStateDrifted  KeyState = "drifted"
	KeyStateOrphaned KeyState = "orphaned"
	KeyStateFresh    KeyState = "fresh"
)

// KeyRing is the outcome of reconciling a user's keys. It is immutable and
// safe to share between goroutines.
type KeyRing struct {
	UserID    UserID
	State     KeyState
	PublicKey ExportedPublicKey

	private *rsa.PrivateKey
}

// NewKeyRing assembles a ring. priv may be nil when no private key is held locally.
func NewKeyRing(user UserID, state KeyState, pub ExportedPublicKey, priv *rsa.PrivateKey) KeyRing {
	return KeyRing{UserID: user, State: state, PublicKey: pub, private: priv}
}

// PrivateKey returns the local private key or ErrPrivateKeyUnavailable.
func (k KeyRing) PrivateKey() (*rsa.PrivateKey, error) {
	if k.private == nil {
		return nil, cerrors.ErrPrivateKeyUnavailable
	}
	return k.private, nil
}

// CanDecrypt reports whether the ring holds a private key.
func (k KeyRing) CanDecrypt() bool { return k.private != nil }
