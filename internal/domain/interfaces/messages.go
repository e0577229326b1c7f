package interfaces

import (
	"context"

	domaintypes "ciphercomms/internal/domain/types"
)

// MessageStore holds sealed message records per conversation, ordered by
// timestamp. It never sees plaintext.
type MessageStore interface {
	// AppendMessage stores rec, assigning an id and timestamp when unset.
	AppendMessage(ctx context.Context, rec domaintypes.MessageRecord) (domaintypes.MessageRecord, error)
	// ListMessages returns up to limit records, oldest first. limit <= 0 means all.
	ListMessages(
		ctx context.Context,
		conv domaintypes.ConversationID,
		limit int,
	) ([]domaintypes.MessageRecord, error)
	GetMessage(
		ctx context.Context,
		conv domaintypes.ConversationID,
		id domaintypes.MessageID,
	) (domaintypes.MessageRecord, bool, error)
	// SubscribeMessages delivers the current ordered snapshot, then a full
	// snapshot after every change.
	SubscribeMessages(
		ctx context.Context,
		conv domaintypes.ConversationID,
		limit int,
	) (<-chan []domaintypes.MessageRecord, domaintypes.Unsubscribe, error)
	// DeleteMessage removes a record. Only its sender may delete it.
	DeleteMessage(
		ctx context.Context,
		conv domaintypes.ConversationID,
		id domaintypes.MessageID,
		requester domaintypes.UserID,
	) error
}

// ConversationStore holds conversation metadata.
type ConversationStore interface {
	CreateConversation(ctx context.Context, participants []domaintypes.UserID) (domaintypes.Conversation, error)
	GetConversation(ctx context.Context, id domaintypes.ConversationID) (domaintypes.Conversation, bool, error)
	FindConversation(
		ctx context.Context,
		participants []domaintypes.UserID,
	) (domaintypes.Conversation, bool, error)
	ListConversations(ctx context.Context, user domaintypes.UserID) ([]domaintypes.Conversation, error)
	// SetLastMessage replaces the preview pointer; nil clears it.
	SetLastMessage(ctx context.Context, id domaintypes.ConversationID, last *domaintypes.LastMessage) error
}
