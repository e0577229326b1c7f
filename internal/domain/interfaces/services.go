package interfaces

import (
	"context"

	domaintypes "ciphercomms/internal/domain/types"
)

// KeyLifecycleService reconciles local keys with the directory.
type KeyLifecycleService interface {
	Reconcile(ctx context.Context, user domaintypes.UserID) (domaintypes.KeyRing, error)
	ClearLocalKeys(user domaintypes.UserID) error
}

// ConversationService creates conversations and seals, stores and opens
// their messages.
type ConversationService interface {
	CreateConversation(
		ctx context.Context,
		self domaintypes.UserID,
		peer domaintypes.UserID,
	) (domaintypes.Conversation, error)
	ListConversations(ctx context.Context, self domaintypes.UserID) ([]domaintypes.ConversationSummary, error)

	SendMessage(
		ctx context.Context,
		sender domaintypes.UserID,
		conv domaintypes.ConversationID,
		plaintext string,
	) (domaintypes.MessageRecord, error)
	History(
		ctx context.Context,
		ring domaintypes.KeyRing,
		conv domaintypes.ConversationID,
	) ([]domaintypes.DecryptedMessage, error)
	ReceiveMessages(
		ctx context.Context,
		ring domaintypes.KeyRing,
		conv domaintypes.ConversationID,
	) (<-chan []domaintypes.DecryptedMessage, domaintypes.Unsubscribe, error)
	DeleteMessage(
		ctx context.Context,
		self domaintypes.UserID,
		conv domaintypes.ConversationID,
		id domaintypes.MessageID,
	) error
}
