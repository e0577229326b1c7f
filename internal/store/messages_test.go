package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mau.fi/util/jsontime"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
	"ciphercomms/internal/store"
)

func record(conv domain.ConversationID, sender domain.UserID, ts int64) domain.MessageRecord {
	return domain.MessageRecord{
		ConversationID:       conv,
		SenderID:             sender,
		EncryptedContent:     "Y2lwaGVy",
		EncryptedSessionKeys: map[domain.UserID]string{"alice": "a2V5", "bob": "a2V5"},
		Timestamp:            jsontime.UMInt(ts),
	}
}

// messageStores runs fn against each message store implementation.
func messageStores(t *testing.T, fn func(t *testing.T, m *store.Messages)) {
	t.Run("memory", func(t *testing.T) { fn(t, store.NewMessages()) })
	t.Run("maildir", func(t *testing.T) {
		m, err := store.OpenMaildirMessages(t.TempDir())
		require.NoError(t, err)
		fn(t, m)
	})
}

func TestMessages_AppendOrdersAndAssigns(t *testing.T) {
	messageStores(t, func(t *testing.T, m *store.Messages) {
		ctx := context.Background()

		late, err := m.AppendMessage(ctx, record("c1", "alice", 2000))
		require.NoError(t, err)
		require.NotEmpty(t, late.ID)
		early, err := m.AppendMessage(ctx, record("c1", "bob", 1000))
		require.NoError(t, err)
		now, err := m.AppendMessage(ctx, record("c1", "bob", 0))
		require.NoError(t, err)
		require.False(t, now.Timestamp.IsZero())

		_, err = m.AppendMessage(ctx, record("c2", "bob", 1))
		require.NoError(t, err)

		list, err := m.ListMessages(ctx, "c1", 0)
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, []domain.MessageID{early.ID, late.ID, now.ID}, []domain.MessageID{list[0].ID, list[1].ID, list[2].ID})
		require.Equal(t, late.EncryptedSessionKeys, list[1].EncryptedSessionKeys)

		limited, err := m.ListMessages(ctx, "c1", 2)
		require.NoError(t, err)
		require.Len(t, limited, 2)
		require.Equal(t, early.ID, limited[0].ID)

		got, ok, err := m.GetMessage(ctx, "c1", late.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, domain.UserID("alice"), got.SenderID)
	})
}

func TestMessages_DeleteOnlyByAuthor(t *testing.T) {
	messageStores(t, func(t *testing.T, m *store.Messages) {
		ctx := context.Background()
		rec, err := m.AppendMessage(ctx, record("c1", "alice", 1000))
		require.NoError(t, err)

		err = m.DeleteMessage(ctx, "c1", rec.ID, "bob")
		require.ErrorIs(t, err, cerrors.ErrNotMessageAuthor)
		_, ok, _ := m.GetMessage(ctx, "c1", rec.ID)
		require.True(t, ok)

		require.NoError(t, m.DeleteMessage(ctx, "c1", rec.ID, "alice"))
		_, ok, _ = m.GetMessage(ctx, "c1", rec.ID)
		require.False(t, ok)

		err = m.DeleteMessage(ctx, "c1", rec.ID, "alice")
		require.ErrorIs(t, err, cerrors.ErrMessageNotFound)
	})
}

func TestMessages_SubscribeSnapshots(t *testing.T) {
	messageStores(t, func(t *testing.T, m *store.Messages) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_, err := m.AppendMessage(ctx, record("c1", "alice", 1000))
		require.NoError(t, err)

		ch, unsub, err := m.SubscribeMessages(ctx, "c1", 0)
		require.NoError(t, err)
		defer unsub()

		require.Len(t, <-ch, 1)

		second, err := m.AppendMessage(ctx, record("c1", "bob", 2000))
		require.NoError(t, err)
		snap := receive(t, ch)
		require.Len(t, snap, 2)
		require.Equal(t, second.ID, snap[1].ID)

		require.NoError(t, m.DeleteMessage(ctx, "c1", second.ID, "bob"))
		require.Len(t, receive(t, ch), 1)

		// Other conversations do not wake this subscriber.
		_, err = m.AppendMessage(ctx, record("c2", "bob", 1))
		require.NoError(t, err)
		select {
		case s := <-ch:
			t.Fatalf("unexpected snapshot %v", s)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestMessages_SubscriptionEndsWithContext(t *testing.T) {
	m := store.NewMessages()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := m.SubscribeMessages(ctx, "c1", 0)
	require.NoError(t, err)
	<-ch
	cancel()

	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMessages_SlowReaderSeesLatest(t *testing.T) {
	m := store.NewMessages()
	ctx := context.Background()

	ch, unsub, err := m.SubscribeMessages(ctx, "c1", 0)
	require.NoError(t, err)
	defer unsub()

	for i := range 5 {
		_, err := m.AppendMessage(ctx, record("c1", "alice", int64(1000+i)))
		require.NoError(t, err)
	}
	require.Len(t, receive(t, ch), 5)
}

func receive(t *testing.T, ch <-chan []domain.MessageRecord) []domain.MessageRecord {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok)
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestMaildirMessages_DeleteReportsUnreadableRecords(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	m, err := store.OpenMaildirMessages(root)
	require.NoError(t, err)

	rec, err := m.AppendMessage(ctx, record("c1", "alice", 1000))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "c1", "new", "corrupt"), []byte("{not json"), 0o600))

	err = m.DeleteMessage(ctx, "c1", rec.ID, "alice")
	require.Error(t, err)

	corrupt, err := filepath.Glob(filepath.Join(root, "c1", "*", "corrupt*"))
	require.NoError(t, err)
	require.Len(t, corrupt, 1)
	require.NoError(t, os.Remove(corrupt[0]))

	_, ok, err := m.GetMessage(ctx, "c1", rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
}
