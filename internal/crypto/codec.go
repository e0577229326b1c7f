package crypto

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

const (
	// KeyAlgorithm is the JWK alg of every user key pair.
	KeyAlgorithm = "RSA-OAEP-256"

	// MinRSABits is the smallest modulus accepted on import.
	MinRSABits = 2048
)

// ExportPublicKey encodes pub as a JWK restricted to encryption.
func ExportPublicKey(pub *rsa.PublicKey) (domain.ExportedPublicKey, error) {
	if pub == nil {
		return domain.ExportedPublicKey{}, fmt.Errorf("%w: nil key", cerrors.ErrInvalidPublicKey)
	}
	key, err := jwk.Import(pub)
	if err != nil {
		return domain.ExportedPublicKey{}, fmt.Errorf("%w: %w", cerrors.ErrInvalidPublicKey, err)
	}
	if err := setKeyParams(key, jwk.KeyOpEncrypt); err != nil {
		return domain.ExportedPublicKey{}, fmt.Errorf("%w: %w", cerrors.ErrInvalidPublicKey, err)
	}
	b, err := json.Marshal(key)
	if err != nil {
		return domain.ExportedPublicKey{}, err
	}
	var out domain.ExportedPublicKey
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.ExportedPublicKey{}, err
	}
	return out, nil
}

// ImportPublicKey decodes and validates an exported public key. Keys that
// are not RSA-OAEP-256, not usable for encryption, or shorter than
// MinRSABits are rejected with ErrInvalidPublicKey.
func ImportPublicKey(exported domain.ExportedPublicKey) (*rsa.PublicKey, error) {
	if exported.Kty != "RSA" {
		return nil, fmt.Errorf("%w: kty %q", cerrors.ErrInvalidPublicKey, exported.Kty)
	}
	if exported.Alg != "" && exported.Alg != KeyAlgorithm {
		return nil, fmt.Errorf("%w: alg %q", cerrors.ErrInvalidPublicKey, exported.Alg)
	}
	if len(exported.KeyOps) > 0 && !slices.Contains(exported.KeyOps, string(jwk.KeyOpEncrypt)) {
		return nil, fmt.Errorf("%w: key_ops %v", cerrors.ErrInvalidPublicKey, exported.KeyOps)
	}
	b, err := json.Marshal(exported)
	if err != nil {
		return nil, err
	}
	key, err := jwk.ParseKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrInvalidPublicKey, err)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrInvalidPublicKey, err)
	}
	pub, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T", cerrors.ErrInvalidPublicKey, raw)
	}
	if pub.N.BitLen() < MinRSABits {
		return nil, fmt.Errorf("%w: %d-bit modulus", cerrors.ErrInvalidPublicKey, pub.N.BitLen())
	}
	return pub, nil
}

// ExportPrivateKey encodes priv as a JWK restricted to decryption.
func ExportPrivateKey(priv *rsa.PrivateKey) (domain.ExportedKey, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil key", cerrors.ErrInvalidPrivateKey)
	}
	key, err := jwk.Import(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrInvalidPrivateKey, err)
	}
	if err := setKeyParams(key, jwk.KeyOpDecrypt); err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrInvalidPrivateKey, err)
	}
	b, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	return domain.ExportedKey(b), nil
}

// ImportPrivateKey decodes an exported private key.
func ImportPrivateKey(exported domain.ExportedKey) (*rsa.PrivateKey, error) {
	key, err := jwk.ParseKey(exported)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrInvalidPrivateKey, err)
	}
	if alg, ok := key.Algorithm(); ok && alg.String() != KeyAlgorithm {
		return nil, fmt.Errorf("%w: alg %q", cerrors.ErrInvalidPrivateKey, alg.String())
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrInvalidPrivateKey, err)
	}
	priv, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T", cerrors.ErrInvalidPrivateKey, raw)
	}
	if priv.N.BitLen() < MinRSABits {
		return nil, fmt.Errorf("%w: %d-bit modulus", cerrors.ErrInvalidPrivateKey, priv.N.BitLen())
	}
	return priv, nil
}

// PrivateKeyFromMaterial resolves local key material of kind private.
func PrivateKeyFromMaterial(m domain.KeyMaterial) (*rsa.PrivateKey, error) {
	switch v := m.(type) {
	case domain.ExportedKey:
		return ImportPrivateKey(v)
	case domain.KeyHandle:
		priv, ok := v.Key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: handle holds %T", cerrors.ErrInvalidPrivateKey, v.Key)
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("%w: material %T", cerrors.ErrInvalidPrivateKey, m)
	}
}

// PublicKeyFromMaterial resolves local key material of kind public.
func PublicKeyFromMaterial(m domain.KeyMaterial) (domain.ExportedPublicKey, error) {
	switch v := m.(type) {
	case domain.ExportedKey:
		var pub domain.ExportedPublicKey
		if err := json.Unmarshal(v, &pub); err != nil {
			return domain.ExportedPublicKey{}, fmt.Errorf("%w: %w", cerrors.ErrInvalidPublicKey, err)
		}
		if _, err := ImportPublicKey(pub); err != nil {
			return domain.ExportedPublicKey{}, err
		}
		return pub, nil
	case domain.KeyHandle:
		pub, ok := v.Key.(*rsa.PublicKey)
		if !ok {
			return domain.ExportedPublicKey{}, fmt.Errorf("%w: handle holds %T", cerrors.ErrInvalidPublicKey, v.Key)
		}
		return ExportPublicKey(pub)
	default:
		return domain.ExportedPublicKey{}, fmt.Errorf("%w: material %T", cerrors.ErrInvalidPublicKey, m)
	}
}

// PublicKeyMaterial returns the portable bytes of an exported public key.
func PublicKeyMaterial(pub domain.ExportedPublicKey) (domain.ExportedKey, error) {
	b, err := json.Marshal(pub)
	if err != nil {
		return nil, err
	}
	return domain.ExportedKey(b), nil
}

func setKeyParams(key jwk.Key, op jwk.KeyOperation) error {
	if err := key.Set(jwk.AlgorithmKey, jwa.RSA_OAEP_256()); err != nil {
		return err
	}
	if err := key.Set(jwk.KeyOpsKey, jwk.KeyOperationList{op}); err != nil {
		return err
	}
	return key.Set("ext", true)
}
