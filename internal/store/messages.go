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

// messageBackend is where records physically live.
type messageBackend interface {
	load(conv domain.ConversationID) ([]domain.MessageRecord, error)
	insert(rec domain.MessageRecord) error
	remove(conv domain.ConversationID, id domain.MessageID) error
}

// Messages is the message store. It orders records, enforces author-only
// deletes, and pushes a fresh snapshot to subscribers after every change.
type Messages struct {
	mu      sync.Mutex
	backend messageBackend
	feed    *hub[domain.ConversationID, []domain.MessageRecord]
}

func newMessages(b messageBackend) *Messages {
	return &Messages{backend: b, feed: newHub[domain.ConversationID, []domain.MessageRecord]()}
}

// NewMessages returns an in-memory message store.
func NewMessages() *Messages {
	return newMessages(&memoryMessages{convs: make(map[domain.ConversationID][]domain.MessageRecord)})
}

// AppendMessage stores rec. Empty ids and zero timestamps are assigned here.
func (m *Messages) AppendMessage(_ context.Context, rec domain.MessageRecord) (domain.MessageRecord, error) {
	if rec.ConversationID == "" || rec.SenderID == "" {
		return domain.MessageRecord{}, fmt.Errorf("append: %w: missing conversation or sender", cerrors.ErrMalformedEnvelope)
	}
	if rec.ID == "" {
		rec.ID = domain.MessageID(uuid.NewString())
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = nowMilli()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.backend.insert(rec); err != nil {
		return domain.MessageRecord{}, err
	}
	return rec, m.notify(rec.ConversationID)
}

func (m *Messages) ListMessages(_ context.Context, conv domain.ConversationID, limit int) ([]domain.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, err := m.snapshot(conv)
	if err != nil {
		return nil, err
	}
	return window(recs, limit), nil
}

func (m *Messages) GetMessage(_ context.Context, conv domain.ConversationID, id domain.MessageID) (domain.MessageRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, err := m.snapshot(conv)
	if err != nil {
		return domain.MessageRecord{}, false, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, true, nil
		}
	}
	return domain.MessageRecord{}, false, nil
}

func (m *Messages) SubscribeMessages(
	ctx context.Context,
	conv domain.ConversationID,
	limit int,
) (<-chan []domain.MessageRecord, domain.Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, err := m.snapshot(conv)
	if err != nil {
		return nil, nil, err
	}
	ch, unsub := m.feed.subscribe(ctx, conv, recs, func(all []domain.MessageRecord) []domain.MessageRecord {
		return window(all, limit)
	})
	return ch, unsub, nil
}

// DeleteMessage removes a record. It fails with ErrNotMessageAuthor unless
// requester sent the message.
func (m *Messages) DeleteMessage(
	_ context.Context,
	conv domain.ConversationID,
	id domain.MessageID,
	requester domain.UserID,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, err := m.snapshot(conv)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(recs, func(r domain.MessageRecord) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", cerrors.ErrMessageNotFound, id)
	}
	if recs[i].SenderID != requester {
		return fmt.Errorf("%w: message %s", cerrors.ErrNotMessageAuthor, id)
	}
	if err := m.backend.remove(conv, id); err != nil {
		return err
	}
	return m.notify(conv)
}

// snapshot returns conv's records oldest first. Callers hold m.mu.
func (m *Messages) snapshot(conv domain.ConversationID) ([]domain.MessageRecord, error) {
	recs, err := m.backend.load(conv)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(recs, func(a, b domain.MessageRecord) int {
		if n := a.Timestamp.Compare(b.Timestamp.Time); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return recs, nil
}

// notify publishes conv's current snapshot. Callers hold m.mu.
func (m *Messages) notify(conv domain.ConversationID) error {
	if m.feed.count(conv) == 0 {
		return nil
	}
	recs, err := m.snapshot(conv)
	if err != nil {
		return err
	}
	m.feed.publish(conv, recs)
	return nil
}

// window keeps the oldest limit records; limit <= 0 keeps all.
func window(recs []domain.MessageRecord, limit int) []domain.MessageRecord {
	if limit > 0 && len(recs) > limit {
		return recs[:limit:limit]
	}
	return recs
}

type memoryMessages struct {
	convs map[domain.ConversationID][]domain.MessageRecord
}

func (b *memoryMessages) load(conv domain.ConversationID) ([]domain.MessageRecord, error) {
	recs := b.convs[conv]
	out := make([]domain.MessageRecord, len(recs))
	for i, r := range recs {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (b *memoryMessages) insert(rec domain.MessageRecord) error {
	for _, r := range b.convs[rec.ConversationID] {
		if r.ID == rec.ID {
			return fmt.Errorf("message %s already exists", rec.ID)
		}
	}
	b.convs[rec.ConversationID] = append(b.convs[rec.ConversationID], cloneRecord(rec))
	return nil
}

func (b *memoryMessages) remove(conv domain.ConversationID, id domain.MessageID) error {
	b.convs[conv] = slices.DeleteFunc(b.convs[conv], func(r domain.MessageRecord) bool { return r.ID == id })
	return nil
}

func cloneRecord(r domain.MessageRecord) domain.MessageRecord {
	keys := make(map[domain.UserID]string, len(r.EncryptedSessionKeys))
	for k, v := range r.EncryptedSessionKeys {
		keys[k] = v
	}
	r.EncryptedSessionKeys = keys
	return r
}

var _ domain.MessageStore = (*Messages)(nil)
