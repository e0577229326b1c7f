package types

import (
	"time"

	"go.mau.fi/util/jsontime"
)

// Envelope is a sealed message: the AEAD body plus one wrapped session key
// per recipient.
type Envelope struct {
	Body        []byte
	WrappedKeys map[UserID][]byte
}

// MessageRecord is the stored, wire-format form of a sealed message.
// Binary fields are standard base64.
type MessageRecord struct {
	ID                   MessageID          `json:"id"`
	ConversationID       ConversationID     `json:"chat_id"`
	SenderID             UserID             `json:"sender_id"`
	EncryptedContent     string             `json:"encrypted_content"`
	EncryptedSessionKeys map[UserID]string  `json:"encrypted_session_keys"`
	Timestamp            jsontime.UnixMilli `json:"timestamp"`
}

// DecryptedMessage is a record as presented to the reader. When the record
// cannot be opened, Text holds a placeholder and Err the cause.
type DecryptedMessage struct {
	ID                MessageID      `json:"id"`
	ConversationID    ConversationID `json:"chat_id"`
	SenderID          UserID         `json:"sender_id"`
	SenderDisplayName string         `json:"sender_display_name"`
	Timestamp         time.Time      `json:"timestamp"`
	Text              string         `json:"text"`
	Err               error          `json:"-"`
}

// Readable reports whether the message decrypted successfully.
func (m DecryptedMessage) Readable() bool { return m.Err == nil }
