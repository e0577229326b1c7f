package crypto_test

import (
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ciphercomms/internal/crypto"
)

var (
	testKeyOnce sync.Once
	testKeys    [2]*rsa.PrivateKey
	testKeyErr  error
)

// testKey returns one of two RSA keys generated once per test binary.
func testKey(t *testing.T, i int) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		for n := range testKeys {
			testKeys[n], testKeyErr = crypto.GenerateRSAKey()
			if testKeyErr != nil {
				return
			}
		}
	})
	require.NoError(t, testKeyErr)
	return testKeys[i]
}
