package crypto_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"ciphercomms/internal/crypto"
)

func TestB64_RoundTrip(t *testing.T) {
	every := make([]byte, 256)
	for i := range every {
		every[i] = byte(i)
	}
	for name, in := range map[string][]byte{
		"empty":      {},
		"nulls":      {0x00, 0x00, 0x00},
		"embedded":   []byte("a\x00b\x00\x00c"),
		"all values": every,
	} {
		t.Run(name, func(t *testing.T) {
			out, err := crypto.FromB64(crypto.B64(in))
			require.NoError(t, err)
			require.True(t, bytes.Equal(in, out), "got %x", out)
		})
	}
}

func TestFromB64_Invalid(t *testing.T) {
	for _, s := range []string{"not base64!", "abc", "YQ=a"} {
		_, err := crypto.FromB64(s)
		require.Error(t, err, s)
	}
}
