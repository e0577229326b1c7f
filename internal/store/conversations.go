package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

// Conversations holds conversation metadata, optionally persisted as one
// JSON file.
type Conversations struct {
	path string

	mu    sync.Mutex
	convs map[domain.ConversationID]domain.Conversation
}

// NewConversations returns an in-memory conversation store.
func NewConversations() *Conversations {
	return &Conversations{convs: make(map[domain.ConversationID]domain.Conversation)}
}

// OpenConversations returns a conversation store persisted at path.
func OpenConversations(path string) (*Conversations, error) {
	c := NewConversations()
	c.path = path
	if _, err := readJSON(path, &c.convs); err != nil {
		return nil, fmt.Errorf("load conversations %s: %w", path, err)
	}
	if c.convs == nil {
		c.convs = make(map[domain.ConversationID]domain.Conversation)
	}
	return c, nil
}

// CreateConversation stores a new two-party conversation. Participants
// must be two distinct, non-empty ids.
func (c *Conversations) CreateConversation(_ context.Context, participants []domain.UserID) (domain.Conversation, error) {
	sorted, err := validPair(participants)
	if err != nil {
		return domain.Conversation{}, err
	}
	now := nowMilli()
	conv := domain.Conversation{
		ID:           domain.ConversationID(uuid.NewString()),
		Participants: sorted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.commit(conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (c *Conversations) GetConversation(_ context.Context, id domain.ConversationID) (domain.Conversation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[id]
	return conv, ok, nil
}

// FindConversation returns the existing conversation between exactly these participants.
func (c *Conversations) FindConversation(_ context.Context, participants []domain.UserID) (domain.Conversation, bool, error) {
	sorted, err := validPair(participants)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.convs {
		if slices.Equal(conv.Participants, sorted) {
			return conv, true, nil
		}
	}
	return domain.Conversation{}, false, nil
}

// ListConversations returns user's conversations, most recently updated first.
func (c *Conversations) ListConversations(_ context.Context, user domain.UserID) ([]domain.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Conversation
	for _, conv := range c.convs {
		if conv.HasParticipant(user) {
			out = append(out, conv)
		}
	}
	slices.SortFunc(out, func(a, b domain.Conversation) int {
		if n := b.UpdatedAt.Compare(a.UpdatedAt.Time); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// SetLastMessage replaces the preview pointer and bumps UpdatedAt.
func (c *Conversations) SetLastMessage(_ context.Context, id domain.ConversationID, last *domain.LastMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[id]
	if !ok {
		return fmt.Errorf("%w: %s", cerrors.ErrConversationNotFound, id)
	}
	if last != nil {
		cp := *last
		last = &cp
	}
	conv.LastMessage = last
	conv.UpdatedAt = nowMilli()
	return c.commit(conv)
}

// commit stores conv and persists. Callers hold c.mu.
func (c *Conversations) commit(conv domain.Conversation) error {
	prev, had := c.convs[conv.ID]
	c.convs[conv.ID] = conv
	if c.path == "" {
		return nil
	}
	if err := writeJSON(c.path, c.convs, 0o600); err != nil {
		if had {
			c.convs[conv.ID] = prev
		} else {
			delete(c.convs, conv.ID)
		}
		return err
	}
	return nil
}

func validPair(participants []domain.UserID) ([]domain.UserID, error) {
	if len(participants) != 2 {
		return nil, fmt.Errorf("%w: need 2 participants, got %d", cerrors.ErrInvalidConversation, len(participants))
	}
	sorted := domain.SortedParticipants(participants...)
	if sorted[0] == "" || sorted[0] == sorted[1] {
		return nil, fmt.Errorf("%w: %v", cerrors.ErrInvalidConversation, participants)
	}
	return sorted, nil
}

var _ domain.ConversationStore = (*Conversations)(nil)
