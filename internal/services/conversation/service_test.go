package conversation_test

import (
	"context"
	"crypto/rsa"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"ciphercomms/internal/crypto"
	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
	"ciphercomms/internal/services/conversation"
	"ciphercomms/internal/services/keys"
	"ciphercomms/internal/store"
)

var (
	keysOnce sync.Once
	pool     [2]*rsa.PrivateKey
	poolErr  error
)

func fixedKey(t *testing.T, i int) *rsa.PrivateKey {
	t.Helper()
	keysOnce.Do(func() {
		for j := range pool {
			if pool[j], poolErr = crypto.GenerateRSAKey(); poolErr != nil {
				return
			}
		}
	})
	require.NoError(t, poolErr)
	return pool[i]
}

type world struct {
	dir      *store.Directory
	convs    *store.Conversations
	messages *store.Messages
	svc      *conversation.Service
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		dir:      store.NewDirectory(),
		convs:    store.NewConversations(),
		messages: store.NewMessages(),
	}
	w.svc = conversation.New(w.dir, w.convs, w.messages, conversation.WithNameTTL(time.Minute))
	return w
}

// user registers a profile and reconciles keys for it on a fresh device.
func (w *world) user(t *testing.T, id domain.UserID, name string, key *rsa.PrivateKey) domain.KeyRing {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.dir.PutProfile(ctx, domain.UserRecord{ID: id, Email: string(id) + "@example.com", DisplayName: name}))
	svc := keys.New(store.NewMemoryKeyStore(), w.dir, keys.WithKeyGenerator(func() (*rsa.PrivateKey, error) { return key, nil }))
	ring, err := svc.Reconcile(ctx, id)
	require.NoError(t, err)
	require.True(t, ring.CanDecrypt())
	return ring
}

func TestSendMessage_BothParticipantsRead(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	alice := w.user(t, "alice", "Alice", fixedKey(t, 0))
	bob := w.user(t, "bob", "Bob", fixedKey(t, 1))

	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	rec, err := w.svc.SendMessage(ctx, "alice", conv.ID, "hello")
	require.NoError(t, err)
	require.Len(t, rec.EncryptedSessionKeys, 2)
	require.Contains(t, rec.EncryptedSessionKeys, domain.UserID("alice"))
	require.Contains(t, rec.EncryptedSessionKeys, domain.UserID("bob"))
	require.NotContains(t, rec.EncryptedContent, "hello")

	for _, ring := range []domain.KeyRing{alice, bob} {
		msgs, err := w.svc.History(ctx, ring, conv.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.True(t, msgs[0].Readable())
		require.Equal(t, "hello", msgs[0].Text)
		require.Equal(t, "Alice", msgs[0].SenderDisplayName)
	}

	stored, ok, err := w.convs.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, stored.LastMessage)
	require.Equal(t, domain.UserID("alice"), stored.LastMessage.SenderID)
	require.Equal(t, rec.EncryptedContent[:50]+"...", stored.LastMessage.Preview)
}

func TestSendMessage_MissingKeyStoresNothing(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	require.NoError(t, w.dir.PutProfile(ctx, domain.UserRecord{ID: "bob", Email: "bob@example.com"}))

	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = w.svc.SendMessage(ctx, "alice", conv.ID, "hello")
	require.ErrorIs(t, err, cerrors.ErrDirectoryLookupMissing)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)

	recs, err := w.messages.ListMessages(ctx, conv.ID, 0)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestSendMessage_NotParticipant(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	w.user(t, "bob", "Bob", fixedKey(t, 1))
	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = w.svc.SendMessage(ctx, "mallory", conv.ID, "hi")
	require.ErrorIs(t, err, cerrors.ErrNotParticipant)

	_, err = w.svc.SendMessage(ctx, "alice", "nope", "hi")
	require.ErrorIs(t, err, cerrors.ErrConversationNotFound)
}

func TestHistory_OrphanedDeviceShowsPlaceholders(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	w.user(t, "bob", "Bob", fixedKey(t, 1))
	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	// Bob on a second device: the directory has his key, this device does not.
	orphan, err := keys.New(store.NewMemoryKeyStore(), w.dir).Reconcile(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.KeyStateOrphaned, orphan.State)

	// Sending still works from the orphaned device.
	_, err = w.svc.SendMessage(ctx, "bob", conv.ID, "from phone")
	require.NoError(t, err)
	_, err = w.svc.SendMessage(ctx, "alice", conv.ID, "hi bob")
	require.NoError(t, err)

	msgs, err := w.svc.History(ctx, orphan, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		require.False(t, m.Readable())
		require.ErrorIs(t, m.Err, cerrors.ErrPrivateKeyUnavailable)
		require.Equal(t, conversation.PlaceholderNoPrivateKey, m.Text)
	}
}

func TestHistory_Placeholders(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	alice := w.user(t, "alice", "Alice", fixedKey(t, 0))
	bob := w.user(t, "bob", "Bob", fixedKey(t, 1))
	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	rec, err := w.svc.SendMessage(ctx, "alice", conv.ID, "hello")
	require.NoError(t, err)

	body, err := crypto.FromB64(rec.EncryptedContent)
	require.NoError(t, err)
	body[len(body)-1] ^= 0x01
	tampered := rec
	tampered.ID = ""
	tampered.EncryptedContent = crypto.B64(body)
	_, err = w.messages.AppendMessage(ctx, tampered)
	require.NoError(t, err)

	notForBob := rec
	notForBob.ID = ""
	notForBob.EncryptedSessionKeys = map[domain.UserID]string{"alice": rec.EncryptedSessionKeys["alice"]}
	_, err = w.messages.AppendMessage(ctx, notForBob)
	require.NoError(t, err)

	empty := rec
	empty.ID = ""
	empty.EncryptedContent = ""
	_, err = w.messages.AppendMessage(ctx, empty)
	require.NoError(t, err)

	texts := func(ring domain.KeyRing) map[string]int {
		msgs, err := w.svc.History(ctx, ring, conv.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 4)
		out := map[string]int{}
		for _, m := range msgs {
			out[m.Text]++
		}
		return out
	}

	require.Equal(t, map[string]int{
		"hello":                             1,
		conversation.PlaceholderIntegrity:   1,
		conversation.PlaceholderNotForYou:   1,
		conversation.PlaceholderMissingData: 1,
	}, texts(bob))

	// Alice sent notForBob and can still read it.
	require.Equal(t, map[string]int{
		"hello":                             2,
		conversation.PlaceholderIntegrity:   1,
		conversation.PlaceholderMissingData: 1,
	}, texts(alice))
}

func TestReceiveMessages_Snapshots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	bob := w.user(t, "bob", "Bob", fixedKey(t, 1))
	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = w.svc.SendMessage(ctx, "alice", conv.ID, "first")
	require.NoError(t, err)

	ch, unsub, err := w.svc.ReceiveMessages(ctx, bob, conv.ID)
	require.NoError(t, err)
	defer unsub()

	initial := <-ch
	require.Len(t, initial, 1)
	require.Equal(t, "first", initial[0].Text)

	_, err = w.svc.SendMessage(ctx, "alice", conv.ID, "second")
	require.NoError(t, err)

	var next []domain.DecryptedMessage
	require.Eventually(t, func() bool {
		select {
		case next = <-ch:
		default:
		}
		return len(next) == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "first", next[0].Text)
	require.Equal(t, "second", next[1].Text)

	unsub()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReceiveMessages_UnsubscribeWithoutDraining(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	bob := w.user(t, "bob", "Bob", fixedKey(t, 1))
	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	before := runtime.NumGoroutine()
	ch, unsub, err := w.svc.ReceiveMessages(ctx, bob, conv.ID)
	require.NoError(t, err)

	// The initial snapshot fills the buffer; the next one blocks the forwarder.
	_, err = w.svc.SendMessage(ctx, "alice", conv.ID, "unread")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	unsub()
	unsub()
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 5*time.Second, 10*time.Millisecond)

	for range ch {
	}
}

func TestDeleteMessage_AuthorOnlyAndRepointsPreview(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	alice := w.user(t, "alice", "Alice", fixedKey(t, 0))
	w.user(t, "bob", "Bob", fixedKey(t, 1))
	conv, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	first, err := w.svc.SendMessage(ctx, "alice", conv.ID, "one")
	require.NoError(t, err)
	// Distinct millisecond timestamps keep the order deterministic.
	time.Sleep(2 * time.Millisecond)
	second, err := w.svc.SendMessage(ctx, "alice", conv.ID, "two")
	require.NoError(t, err)

	err = w.svc.DeleteMessage(ctx, "bob", conv.ID, second.ID)
	require.ErrorIs(t, err, cerrors.ErrNotMessageAuthor)

	err = w.svc.DeleteMessage(ctx, "alice", conv.ID, "missing")
	require.ErrorIs(t, err, cerrors.ErrMessageNotFound)

	require.NoError(t, w.svc.DeleteMessage(ctx, "alice", conv.ID, second.ID))
	stored, _, err := w.convs.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessage)
	require.Equal(t, first.EncryptedContent[:50]+"...", stored.LastMessage.Preview)

	require.NoError(t, w.svc.DeleteMessage(ctx, "alice", conv.ID, first.ID))
	stored, _, err = w.convs.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Nil(t, stored.LastMessage)

	msgs, err := w.svc.History(ctx, alice, conv.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestCreateConversation_ReuseAndValidation(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	w.user(t, "bob", "Bob", fixedKey(t, 1))

	a, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	b, err := w.svc.CreateConversation(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	_, err = w.svc.CreateConversation(ctx, "alice", "alice")
	require.ErrorIs(t, err, cerrors.ErrInvalidConversation)
	_, err = w.svc.CreateConversation(ctx, "alice", "ghost")
	require.ErrorIs(t, err, cerrors.ErrUserNotFound)
}

func TestLookupUser(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	w.user(t, "bob", "Bob", fixedKey(t, 1))

	rec, err := w.svc.LookupUser(ctx, "alice", "BOB@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.UserID("bob"), rec.ID)

	_, err = w.svc.LookupUser(ctx, "alice", "alice@example.com")
	require.ErrorIs(t, err, cerrors.ErrUserNotFound)
}

func TestListConversations_Previews(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user(t, "alice", "Alice", fixedKey(t, 0))
	w.user(t, "bob", "Bob", fixedKey(t, 1))
	require.NoError(t, w.dir.PutProfile(ctx, domain.UserRecord{ID: "carol", Email: "carol@example.com"}))

	ab, err := w.svc.CreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = w.svc.CreateConversation(ctx, "alice", "carol")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = w.svc.SendMessage(ctx, "bob", ab.ID, "hey")
	require.NoError(t, err)

	list, err := w.svc.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, domain.UserID("bob"), list[0].Peer)
	require.Equal(t, "Bob", list[0].PeerName)
	require.Equal(t, "[Encrypted]", list[0].Preview)
	require.Equal(t, domain.UserID("carol"), list[1].Peer)
	require.Equal(t, "Unknown User", list[1].PeerName)
	require.Equal(t, "[Encrypted Message]", list[1].Preview)

	list, err = w.svc.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "You: [Encrypted]", list[0].Preview)
}
