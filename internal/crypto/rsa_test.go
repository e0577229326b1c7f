package crypto_test

import (
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ciphercomms/internal/crypto"
	cerrors "ciphercomms/internal/errors"
)

func TestGenerateKeyPair_UsesGenerator(t *testing.T) {
	priv := testKey(t, 0)
	kp, err := crypto.GenerateKeyPair(func() (*rsa.PrivateKey, error) { return priv, nil })
	require.NoError(t, err)
	require.Same(t, priv, kp.Private)

	want, err := crypto.ExportPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	require.True(t, want.Equal(kp.Public))
}

func TestGenerateKeyPair_FailureIsTyped(t *testing.T) {
	_, err := crypto.GenerateKeyPair(func() (*rsa.PrivateKey, error) {
		return nil, errors.New("no entropy")
	})
	require.ErrorIs(t, err, cerrors.ErrKeyGenerationFailed)

	_, err = crypto.GenerateKeyPair(func() (*rsa.PrivateKey, error) { return nil, nil })
	require.ErrorIs(t, err, cerrors.ErrKeyGenerationFailed)
}

func TestWrapUnwrap(t *testing.T) {
	alice, bob := testKey(t, 0), testKey(t, 1)
	session, err := crypto.GenerateSessionKey()
	require.NoError(t, err)
	encoded, err := crypto.MarshalSessionKey(session)
	require.NoError(t, err)

	wrapped, err := crypto.WrapKey(&alice.PublicKey, encoded)
	require.NoError(t, err)

	got, err := crypto.UnwrapKey(alice, wrapped)
	require.NoError(t, err)
	require.Equal(t, encoded, got)

	_, err = crypto.UnwrapKey(bob, wrapped)
	require.ErrorIs(t, err, cerrors.ErrKeyUnwrapFailed)

	wrapped[0] ^= 0xff
	_, err = crypto.UnwrapKey(alice, wrapped)
	require.ErrorIs(t, err, cerrors.ErrKeyUnwrapFailed)
}
