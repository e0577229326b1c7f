package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pmylund/go-cache"
	"github.com/rs/zerolog"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
	"ciphercomms/internal/protocol/envelope"
)

const (
	// DefaultHistoryLimit is how many of the oldest messages are retrieved.
	DefaultHistoryLimit = 100

	// previewLength is how many ciphertext characters the list preview keeps.
	previewLength = 50

	unknownUser = "Unknown User"
)

// Service implements conversation creation and the message send and
// receive paths on top of the directory and the stores.
type Service struct {
	directory     domain.DirectoryService
	conversations domain.ConversationStore
	messages      domain.MessageStore

	names *cache.Cache
	limit int
	log   zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option { return func(s *Service) { s.log = log } }

// WithHistoryLimit sets how many messages history and receive return.
func WithHistoryLimit(n int) Option { return func(s *Service) { s.limit = n } }

// WithNameTTL sets how long sender display names are cached.
func WithNameTTL(ttl time.Duration) Option {
	return func(s *Service) { s.names = cache.New(ttl, 2*ttl) }
}

// New returns a Service.
func New(
	directory domain.DirectoryService,
	conversations domain.ConversationStore,
	messages domain.MessageStore,
	opts ...Option,
) *Service {
	s := &Service{
		directory:     directory,
		conversations: conversations,
		messages:      messages,
		names:         cache.New(5*time.Minute, 10*time.Minute),
		limit:         DefaultHistoryLimit,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation returns the existing conversation between self and
// peer, creating it when there is none.
func (s *Service) CreateConversation(ctx context.Context, self, peer domain.UserID) (domain.Conversation, error) {
	if self == "" || peer == "" || self == peer {
		return domain.Conversation{}, fmt.Errorf("%w: %q and %q", cerrors.ErrInvalidConversation, self, peer)
	}
	if _, ok, err := s.directory.Profile(ctx, peer); err != nil {
		return domain.Conversation{}, err
	} else if !ok {
		return domain.Conversation{}, fmt.Errorf("%w: %s", cerrors.ErrUserNotFound, peer)
	}

	pair := []domain.UserID{self, peer}
	if conv, ok, err := s.conversations.FindConversation(ctx, pair); err != nil {
		return domain.Conversation{}, err
	} else if ok {
		return conv, nil
	}
	conv, err := s.conversations.CreateConversation(ctx, pair)
	if err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info().
		Str("conversation_id", conv.ID.String()).
		Str("user_id", self.String()).
		Str("peer_id", peer.String()).
		Msg("Created conversation")
	return conv, nil
}

// LookupUser finds another user by exact email.
func (s *Service) LookupUser(ctx context.Context, self domain.UserID, email string) (domain.UserRecord, error) {
	rec, ok, err := s.directory.LookupEmail(ctx, email)
	if err != nil {
		return domain.UserRecord{}, err
	}
	if !ok || rec.ID == self {
		return domain.UserRecord{}, fmt.Errorf("%w: %s", cerrors.ErrUserNotFound, email)
	}
	return rec, nil
}

// ListConversations returns self's conversations, most recent first, with
// a preview label that never includes plaintext.
func (s *Service) ListConversations(ctx context.Context, self domain.UserID) ([]domain.ConversationSummary, error) {
	convs, err := s.conversations.ListConversations(ctx, self)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		peer := conv.Peer(self)
		sum := domain.ConversationSummary{
			Conversation: conv,
			Peer:         peer,
			PeerName:     s.displayName(ctx, peer),
			Preview:      "[Encrypted Message]",
		}
		if conv.LastMessage != nil {
			sum.Preview = "[Encrypted]"
			if conv.LastMessage.SenderID == self {
				sum.Preview = "You: [Encrypted]"
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// SendMessage seals plaintext for every participant of conv and stores it.
//
// If any participant has no published key the call fails with
// ErrDirectoryLookupMissing and nothing is stored.
func (s *Service) SendMessage(
	ctx context.Context,
	sender domain.UserID,
	convID domain.ConversationID,
	plaintext string,
) (domain.MessageRecord, error) {
	conv, err := s.participantOf(ctx, sender, convID)
	if err != nil {
		return domain.MessageRecord{}, err
	}
	log := s.log.With().Str("conversation_id", convID.String()).Str("user_id", sender.String()).Logger()

	recipients, err := s.resolveKeys(ctx, conv.Participants)
	if err != nil {
		log.Warn().Err(err).Msg("Refusing to send: recipient keys unresolved")
		return domain.MessageRecord{}, err
	}

	env, err := envelope.Seal([]byte(plaintext), recipients)
	if err != nil {
		return domain.MessageRecord{}, err
	}
	stored, err := s.messages.AppendMessage(ctx, envelope.ToRecord(env, convID, sender))
	if err != nil {
		return domain.MessageRecord{}, fmt.Errorf("store message: %w", err)
	}

	if err := s.conversations.SetLastMessage(ctx, convID, lastMessageOf(stored)); err != nil {
		// The message is stored; only the list preview is stale.
		log.Warn().Err(err).Msg("Failed to update last message")
	}
	log.Debug().Str("message_id", stored.ID.String()).Int("recipients", len(recipients)).Msg("Sent message")
	return stored, nil
}

// History returns the decrypted messages of conv, oldest first.
func (s *Service) History(ctx context.Context, ring domain.KeyRing, convID domain.ConversationID) ([]domain.DecryptedMessage, error) {
	if _, err := s.participantOf(ctx, ring.UserID, convID); err != nil {
		return nil, err
	}
	recs, err := s.messages.ListMessages(ctx, convID, s.limit)
	if err != nil {
		return nil, err
	}
	return s.openAll(ctx, ring, recs), nil
}

// ReceiveMessages streams decrypted snapshots of conv: the current history
// first, then a full snapshot after every change.
func (s *Service) ReceiveMessages(
	ctx context.Context,
	ring domain.KeyRing,
	convID domain.ConversationID,
) (<-chan []domain.DecryptedMessage, domain.Unsubscribe, error) {
	if _, err := s.participantOf(ctx, ring.UserID, convID); err != nil {
		return nil, nil, err
	}
	snapshots, unsub, err := s.messages.SubscribeMessages(ctx, convID, s.limit)
	if err != nil {
		return nil, nil, err
	}
	if !ring.CanDecrypt() {
		s.log.Warn().Str("user_id", ring.UserID.String()).Msg("Receiving without a private key; messages will show placeholders")
	}

	out := make(chan []domain.DecryptedMessage, 1)
	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			unsub()
		})
	}
	go func() {
		defer close(out)
		for recs := range snapshots {
			select {
			case out <- s.openAll(ctx, ring, recs):
			case <-done:
				return
			case <-ctx.Done():
				release()
				return
			}
		}
	}()
	return out, release, nil
}

// DeleteMessage removes one of self's own messages and repoints the
// conversation preview when it referred to that message.
func (s *Service) DeleteMessage(
	ctx context.Context,
	self domain.UserID,
	convID domain.ConversationID,
	id domain.MessageID,
) error {
	conv, err := s.participantOf(ctx, self, convID)
	if err != nil {
		return err
	}
	rec, ok, err := s.messages.GetMessage(ctx, convID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", cerrors.ErrMessageNotFound, id)
	}
	if err := s.messages.DeleteMessage(ctx, convID, id, self); err != nil {
		return err
	}

	if conv.LastMessage == nil || !sameMessage(*conv.LastMessage, lastMessageOf(rec)) {
		return nil
	}
	remaining, err := s.messages.ListMessages(ctx, convID, 0)
	if err != nil {
		return err
	}
	var last *domain.LastMessage
	if n := len(remaining); n > 0 {
		last = lastMessageOf(remaining[n-1])
	}
	return s.conversations.SetLastMessage(ctx, convID, last)
}

// open decrypts one record for ring's owner.
func (s *Service) open(ctx context.Context, ring domain.KeyRing, rec domain.MessageRecord) domain.DecryptedMessage {
	msg := domain.DecryptedMessage{
		ID:                rec.ID,
		ConversationID:    rec.ConversationID,
		SenderID:          rec.SenderID,
		SenderDisplayName: s.displayName(ctx, rec.SenderID),
		Timestamp:         rec.Timestamp.Time,
	}
	pt, err := s.openRecord(ring, rec)
	if err != nil {
		msg.Err = err
		msg.Text = placeholder(err, rec.SenderID == ring.UserID)
		s.log.Debug().Err(err).Str("message_id", rec.ID.String()).Msg("Message not readable")
		return msg
	}
	msg.Text = string(pt)
	return msg
}

func (s *Service) openRecord(ring domain.KeyRing, rec domain.MessageRecord) ([]byte, error) {
	priv, err := ring.PrivateKey()
	if err != nil {
		return nil, err
	}
	env, err := envelope.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	return envelope.Open(env, ring.UserID, priv)
}

func (s *Service) openAll(ctx context.Context, ring domain.KeyRing, recs []domain.MessageRecord) []domain.DecryptedMessage {
	out := make([]domain.DecryptedMessage, len(recs))
	for i, rec := range recs {
		out[i] = s.open(ctx, ring, rec)
	}
	return out
}

// resolveKeys fetches every participant's published key. All missing
// participants are reported together.
func (s *Service) resolveKeys(
	ctx context.Context,
	participants []domain.UserID,
) (map[domain.UserID]domain.ExportedPublicKey, error) {
	keys := make(map[domain.UserID]domain.ExportedPublicKey, len(participants))
	var errs *multierror.Error
	for _, id := range participants {
		pub, ok, err := s.directory.PublicKey(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lookup key for %s: %w", id, err)
		}
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s", cerrors.ErrDirectoryLookupMissing, id))
			continue
		}
		keys[id] = pub
	}
	return keys, errs.ErrorOrNil()
}

// participantOf loads conv and checks user takes part in it.
func (s *Service) participantOf(ctx context.Context, user domain.UserID, convID domain.ConversationID) (domain.Conversation, error) {
	conv, ok, err := s.conversations.GetConversation(ctx, convID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !ok {
		return domain.Conversation{}, fmt.Errorf("%w: %s", cerrors.ErrConversationNotFound, convID)
	}
	if !conv.HasParticipant(user) {
		return domain.Conversation{}, fmt.Errorf("%w: %s in %s", cerrors.ErrNotParticipant, user, convID)
	}
	return conv, nil
}

// displayName returns the sender's display name, cached for a short while.
func (s *Service) displayName(ctx context.Context, user domain.UserID) string {
	if v, ok := s.names.Get(string(user)); ok {
		return v.(string)
	}
	rec, ok, err := s.directory.Profile(ctx, user)
	if err != nil {
		return unknownUser
	}
	name := unknownUser
	if ok && rec.DisplayName != "" {
		name = rec.DisplayName
	}
	s.names.Set(string(user), name, cache.DefaultExpiration)
	return name
}

// lastMessageOf builds the list preview of rec. It keeps a ciphertext
// prefix only; the plaintext cannot be recovered from it.
func lastMessageOf(rec domain.MessageRecord) *domain.LastMessage {
	preview := rec.EncryptedContent
	if len(preview) > previewLength {
		preview = preview[:previewLength]
	}
	return &domain.LastMessage{
		Preview:   preview + "...",
		Timestamp: rec.Timestamp,
		SenderID:  rec.SenderID,
	}
}

func sameMessage(a domain.LastMessage, b *domain.LastMessage) bool {
	return a.SenderID == b.SenderID && a.Preview == b.Preview && a.Timestamp.Equal(b.Timestamp.Time)
}

// Compile-time assertion that Service implements domain.ConversationService.
var _ domain.ConversationService = (*Service)(nil)
