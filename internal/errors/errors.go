// Package errors defines the sentinel errors shared across ciphercomms.
//
// Callers compare with errors.Is. Every sentinel also has a stable code so
// the relay can carry it across HTTP and the client can restore it.
package errors

import "errors"

// Key management errors.
var (
	// ErrKeyGenerationFailed indicates the platform could not produce a key pair.
	ErrKeyGenerationFailed = errors.New("key generation failed")

	// ErrPrivateKeyUnavailable indicates no usable private key exists on this device.
	ErrPrivateKeyUnavailable = errors.New("private key unavailable on this device")

	// ErrInvalidPublicKey indicates an exported public key is malformed or unsuitable.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey indicates an exported private key is malformed or unsuitable.
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// Envelope errors.
var (
	// ErrAuthentication indicates AEAD tag verification failed.
	ErrAuthentication = errors.New("authentication failed")

	// ErrKeyUnwrapFailed indicates a wrapped session key could not be unwrapped.
	ErrKeyUnwrapFailed = errors.New("session key unwrap failed")

	// ErrNotAddressedToSelf indicates the envelope carries no wrapped key for the reader.
	ErrNotAddressedToSelf = errors.New("envelope not addressed to this user")

	// ErrNoRecipients indicates a seal was requested with an empty recipient set.
	ErrNoRecipients = errors.New("no recipients")

	// ErrMalformedEnvelope indicates the envelope body or wrapped keys cannot be decoded.
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// Directory errors.
var (
	// ErrDirectoryLookupMissing indicates a participant has no published public key.
	ErrDirectoryLookupMissing = errors.New("participant has no published public key")

	// ErrUserNotFound indicates the directory holds no record for the user.
	ErrUserNotFound = errors.New("user not found")
)

// Conversation and message errors.
var (
	// ErrConversationNotFound indicates the conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidConversation indicates the participant set is not a valid pair.
	ErrInvalidConversation = errors.New("invalid conversation participants")

	// ErrNotParticipant indicates the caller is not part of the conversation.
	ErrNotParticipant = errors.New("not a conversation participant")

	// ErrMessageNotFound indicates the message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotMessageAuthor indicates a delete was attempted by someone other than the sender.
	ErrNotMessageAuthor = errors.New("only the author may delete a message")
)

// Local storage errors.
var (
	// ErrWrongPassphrase indicates the passphrase is wrong or the sealed file was modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

	// ErrWeakPassphrase indicates the passphrase does not meet the policy.
	ErrWeakPassphrase = errors.New("passphrase does not meet policy")
)
