package envelope

import (
	"crypto/rsa"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/go-multierror"

	"ciphercomms/internal/crypto"
	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
	"ciphercomms/internal/util/memzero"
)

// Seal encrypts plaintext once and wraps the session key for every
// recipient. Callers include the sender among recipients so they can read
// their own messages. Every failing recipient is reported.
func Seal(plaintext []byte, recipients map[domain.UserID]domain.ExportedPublicKey) (domain.Envelope, error) {
	if len(recipients) == 0 {
		return domain.Envelope{}, cerrors.ErrNoRecipients
	}

	// Resolve every key before doing any work.
	var errs *multierror.Error
	pubs := make(map[domain.UserID]*rsa.PublicKey, len(recipients))
	for _, id := range slices.Sorted(maps.Keys(recipients)) {
		pub, err := crypto.ImportPublicKey(recipients[id])
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("recipient %s: %w", id, err))
			continue
		}
		pubs[id] = pub
	}
	if err := errs.ErrorOrNil(); err != nil {
		return domain.Envelope{}, err
	}

	key, err := crypto.GenerateSessionKey()
	if err != nil {
		return domain.Envelope{}, err
	}
	defer memzero.Zero(key)

	body, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return domain.Envelope{}, err
	}

	encoded, err := crypto.MarshalSessionKey(key)
	if err != nil {
		return domain.Envelope{}, err
	}
	defer memzero.Zero(encoded)

	wrapped := make(map[domain.UserID][]byte, len(pubs))
	for _, id := range slices.Sorted(maps.Keys(pubs)) {
		w, err := crypto.WrapKey(pubs[id], encoded)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("recipient %s: wrap: %w", id, err))
			continue
		}
		wrapped[id] = w
	}
	if err := errs.ErrorOrNil(); err != nil {
		return domain.Envelope{}, err
	}

	return domain.Envelope{Body: body, WrappedKeys: wrapped}, nil
}

// Open decrypts env for self.
//
// Errors, in the order they are checked: ErrPrivateKeyUnavailable when priv
// is nil, ErrNotAddressedToSelf when env has no entry for self,
// ErrKeyUnwrapFailed when the entry cannot be unwrapped, ErrAuthentication
// when the body fails verification.
func Open(env domain.Envelope, self domain.UserID, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, cerrors.ErrPrivateKeyUnavailable
	}
	wrapped, ok := env.WrappedKeys[self]
	if !ok || len(wrapped) == 0 {
		return nil, cerrors.ErrNotAddressedToSelf
	}

	encoded, err := crypto.UnwrapKey(priv, wrapped)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(encoded)

	key, err := crypto.ParseSessionKey(encoded)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	return crypto.Decrypt(key, env.Body)
}
