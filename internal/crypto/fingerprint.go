package crypto

import (
	stdcrypto "crypto"
	"encoding/hex"
	"encoding/json"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"ciphercomms/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It is the RFC 7638 SHA-256 JWK thumbprint truncated to 10 bytes (20 hex chars),
// so it only depends on the key parameters and not on alg or key_ops.
func Fingerprint(pub domain.ExportedPublicKey) (domain.Fingerprint, error) {
	b, err := json.Marshal(pub)
	if err != nil {
		return "", err
	}
	key, err := jwk.ParseKey(b)
	if err != nil {
		return "", err
	}
	sum, err := key.Thumbprint(stdcrypto.SHA256)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(hex.EncodeToString(sum[:10])), nil
}
