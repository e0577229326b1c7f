package conversation

import cerrors "ciphercomms/internal/errors"

// Placeholders shown instead of message text.
const (
	PlaceholderNoPrivateKey  = "[Your private key is missing on this device]"
	PlaceholderMissingData   = "[Encrypted data missing on message]"
	PlaceholderNotForYou     = "[Not encrypted for you]"
	PlaceholderOwnKeyMissing = "[Error: sent message key missing for self]"
	PlaceholderFailed        = "[Decryption failed]"
	PlaceholderOwnFailed     = "[Decryption failed - your key issue?]"
	PlaceholderIntegrity     = "[Cannot verify message integrity]"
)

// placeholder maps an open failure to its label. own is true when the
// reader sent the message.
func placeholder(err error, own bool) string {
	switch {
	case cerrors.Is(err, cerrors.ErrPrivateKeyUnavailable):
		return PlaceholderNoPrivateKey
	case cerrors.Is(err, cerrors.ErrMalformedEnvelope):
		return PlaceholderMissingData
	case cerrors.Is(err, cerrors.ErrNotAddressedToSelf):
		if own {
			return PlaceholderOwnKeyMissing
		}
		return PlaceholderNotForYou
	case cerrors.Is(err, cerrors.ErrAuthentication):
		return PlaceholderIntegrity
	case own:
		return PlaceholderOwnFailed
	default:
		return PlaceholderFailed
	}
}
