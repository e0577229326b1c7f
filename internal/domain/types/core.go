package types

// UserID identifies an account in the directory.
type UserID string

// String returns the string form of the user identifier.
func (u UserID) String() string { return string(u) }

// ConversationID identifies a two-party conversation.
type ConversationID string

// String returns the string form of the conversation identifier.
func (id ConversationID) String() string { return string(id) }

// MessageID identifies a stored message within a conversation.
type MessageID string

// String returns the string form of the message identifier.
func (id MessageID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Unsubscribe releases a live subscription. Calling it more than once is a no-op.
type Unsubscribe func()
