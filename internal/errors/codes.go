package errors

// codes is ordered: when an error wraps several sentinels, the first listed
// one names it. Outcome-level sentinels come before their causes.
var codes = []struct {
	sentinel error
	code     string
}{
	{ErrKeyGenerationFailed, "key_generation_failed"},
	{ErrPrivateKeyUnavailable, "private_key_unavailable"},
	{ErrInvalidPublicKey, "invalid_public_key"},
	{ErrInvalidPrivateKey, "invalid_private_key"},
	{ErrAuthentication, "authentication_error"},
	{ErrKeyUnwrapFailed, "key_unwrap_failed"},
	{ErrNotAddressedToSelf, "not_addressed_to_self"},
	{ErrNoRecipients, "no_recipients"},
	{ErrMalformedEnvelope, "malformed_envelope"},
	{ErrDirectoryLookupMissing, "directory_lookup_missing"},
	{ErrUserNotFound, "user_not_found"},
	{ErrConversationNotFound, "conversation_not_found"},
	{ErrInvalidConversation, "invalid_conversation"},
	{ErrNotParticipant, "not_participant"},
	{ErrMessageNotFound, "message_not_found"},
	{ErrNotMessageAuthor, "not_message_author"},
	{ErrWrongPassphrase, "wrong_passphrase"},
	{ErrWeakPassphrase, "weak_passphrase"},
}

// Code returns the stable code of the first known sentinel wrapped by err,
// or "internal" when none matches.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if Is(err, c.sentinel) {
			return c.code
		}
	}
	return "internal"
}

// FromCode returns the sentinel for code, or nil when the code is unknown.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.sentinel
		}
	}
	return nil
}
