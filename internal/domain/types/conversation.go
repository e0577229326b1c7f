package types

import (
	"slices"

	"go.mau.fi/util/jsontime"
)

// LastMessage is the conversation list preview. Preview is a truncated
// ciphertext prefix and never reveals plaintext.
type LastMessage struct {
	Preview   string             `json:"encrypted_content"`
	Timestamp jsontime.UnixMilli `json:"timestamp"`
	SenderID  UserID             `json:"sender_id"`
}

// Conversation is a two-party chat. Participants are kept sorted.
type Conversation struct {
	ID           ConversationID     `json:"id"`
	Participants []UserID           `json:"participants"`
	LastMessage  *LastMessage       `json:"last_message,omitempty"`
	CreatedAt    jsontime.UnixMilli `json:"created_at"`
	UpdatedAt    jsontime.UnixMilli `json:"updated_at"`
}

// HasParticipant reports whether user takes part in the conversation.
func (c Conversation) HasParticipant(user UserID) bool {
	return slices.Contains(c.Participants, user)
}

// Peer returns the participant that is not self.
func (c Conversation) Peer(self UserID) UserID {
	for _, p := range c.Participants {
		if p != self {
			return p
		}
	}
	return ""
}

// ConversationSummary is a conversation as shown in a user's list.
type ConversationSummary struct {
	Conversation
	Peer     UserID `json:"peer"`
	PeerName string `json:"peer_name"`
	Preview  string `json:"preview"`
}

// SortedParticipants returns a sorted copy of ids.
func SortedParticipants(ids ...UserID) []UserID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}
