package crypto_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"ciphercomms/internal/crypto"
	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

func TestPublicKey_ExportImport_RoundTrip(t *testing.T) {
	priv := testKey(t, 0)

	exported, err := crypto.ExportPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	require.Equal(t, "RSA", exported.Kty)
	require.Equal(t, crypto.KeyAlgorithm, exported.Alg)
	require.Equal(t, []string{"encrypt"}, exported.KeyOps)
	require.True(t, exported.Ext)

	pub, err := crypto.ImportPublicKey(exported)
	require.NoError(t, err)
	require.Equal(t, 0, pub.N.Cmp(priv.N))
	require.Equal(t, priv.E, pub.E)

	again, err := crypto.ExportPublicKey(pub)
	require.NoError(t, err)
	require.True(t, exported.Equal(again))
}

func TestPublicKey_SurvivesJSON(t *testing.T) {
	priv := testKey(t, 0)
	exported, err := crypto.ExportPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	b, err := json.Marshal(exported)
	require.NoError(t, err)
	var decoded domain.ExportedPublicKey
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, exported, decoded)
}

func TestImportPublicKey_Rejects(t *testing.T) {
	priv := testKey(t, 0)
	good, err := crypto.ExportPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	small, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	weak, err := crypto.ExportPublicKey(&small.PublicKey)
	require.NoError(t, err)

	cases := map[string]domain.ExportedPublicKey{
		"wrong kty":   func() domain.ExportedPublicKey { k := good; k.Kty = "EC"; return k }(),
		"wrong alg":   func() domain.ExportedPublicKey { k := good; k.Alg = "RSA-OAEP"; return k }(),
		"sign only":   func() domain.ExportedPublicKey { k := good; k.KeyOps = []string{"verify"}; return k }(),
		"bad modulus": func() domain.ExportedPublicKey { k := good; k.N = "!!"; return k }(),
		"1024-bit":    weak,
		"empty":       {},
	}
	for name, k := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := crypto.ImportPublicKey(k)
			require.ErrorIs(t, err, cerrors.ErrInvalidPublicKey)
		})
	}
}

func TestPrivateKey_ExportImport_RoundTrip(t *testing.T) {
	priv := testKey(t, 0)

	exported, err := crypto.ExportPrivateKey(priv)
	require.NoError(t, err)

	got, err := crypto.ImportPrivateKey(exported)
	require.NoError(t, err)
	require.True(t, priv.Equal(got))
}

func TestImportPrivateKey_Garbage(t *testing.T) {
	_, err := crypto.ImportPrivateKey(domain.ExportedKey(`{"kty":"RSA"}`))
	require.ErrorIs(t, err, cerrors.ErrInvalidPrivateKey)
}

func TestMaterial_HandleAndExported(t *testing.T) {
	priv := testKey(t, 0)

	fromHandle, err := crypto.PrivateKeyFromMaterial(domain.KeyHandle{Key: priv})
	require.NoError(t, err)
	require.Same(t, priv, fromHandle)

	exported, err := crypto.ExportPrivateKey(priv)
	require.NoError(t, err)
	fromBytes, err := crypto.PrivateKeyFromMaterial(exported)
	require.NoError(t, err)
	require.True(t, priv.Equal(fromBytes))

	_, err = crypto.PrivateKeyFromMaterial(domain.KeyHandle{Key: "not a key"})
	require.ErrorIs(t, err, cerrors.ErrInvalidPrivateKey)

	pub, err := crypto.PublicKeyFromMaterial(domain.KeyHandle{Key: &priv.PublicKey})
	require.NoError(t, err)
	raw, err := crypto.PublicKeyMaterial(pub)
	require.NoError(t, err)
	back, err := crypto.PublicKeyFromMaterial(raw)
	require.NoError(t, err)
	require.True(t, pub.Equal(back))
}

func TestFingerprint_StableAcrossMetadata(t *testing.T) {
	priv := testKey(t, 0)
	exported, err := crypto.ExportPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	fp, err := crypto.Fingerprint(exported)
	require.NoError(t, err)
	require.Len(t, fp.String(), 20)

	bare := exported
	bare.KeyOps, bare.Alg, bare.Ext = nil, "", false
	fp2, err := crypto.Fingerprint(bare)
	require.NoError(t, err)
	require.Equal(t, fp, fp2)

	other, err := crypto.ExportPublicKey(&testKey(t, 1).PublicKey)
	require.NoError(t, err)
	fp3, err := crypto.Fingerprint(other)
	require.NoError(t, err)
	require.NotEqual(t, fp, fp3)
}
