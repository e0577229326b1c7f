package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

// Directory is the user directory: profiles and published public keys.
// With a path it is persisted as one JSON file, rewritten on every change.
type Directory struct {
	path string

	mu    sync.Mutex
	users map[domain.UserID]domain.UserRecord
	watch *hub[domain.UserID, domain.UserRecord]
}

// NewDirectory returns an in-memory directory.
func NewDirectory() *Directory {
	return &Directory{
		users: make(map[domain.UserID]domain.UserRecord),
		watch: newHub[domain.UserID, domain.UserRecord](),
	}
}

// OpenDirectory returns a directory persisted at path, loading any existing file.
func OpenDirectory(path string) (*Directory, error) {
	d := NewDirectory()
	d.path = path
	if _, err := readJSON(path, &d.users); err != nil {
		return nil, fmt.Errorf("load directory %s: %w", path, err)
	}
	if d.users == nil {
		d.users = make(map[domain.UserID]domain.UserRecord)
	}
	return d, nil
}

func (d *Directory) PublicKey(_ context.Context, user domain.UserID) (domain.ExportedPublicKey, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[user]
	if !ok || rec.PublicKey == nil {
		return domain.ExportedPublicKey{}, false, nil
	}
	return *rec.PublicKey, true, nil
}

// SetPublicKey replaces the user's published key. A user without a profile
// gets a bare record.
func (d *Directory) SetPublicKey(_ context.Context, user domain.UserID, key domain.ExportedPublicKey) error {
	if user == "" {
		return fmt.Errorf("set public key: %w", cerrors.ErrUserNotFound)
	}
	if key.IsZero() {
		return fmt.Errorf("set public key for %s: %w", user, cerrors.ErrInvalidPublicKey)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.users[user]
	if !ok {
		rec = domain.UserRecord{ID: user, CreatedAt: nowMilli()}
	}
	rec.PublicKey = &key
	return d.commit(rec)
}

func (d *Directory) Profile(_ context.Context, user domain.UserID) (domain.UserRecord, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[user]
	return rec, ok, nil
}

// PutProfile creates or updates a profile. The published key and creation
// time of an existing record are kept.
func (d *Directory) PutProfile(_ context.Context, record domain.UserRecord) error {
	if record.ID == "" {
		return fmt.Errorf("put profile: %w", cerrors.ErrUserNotFound)
	}
	record.Email = normalizeEmail(record.Email)

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.users[record.ID]; ok {
		record.PublicKey = prev.PublicKey
		record.CreatedAt = prev.CreatedAt
	} else {
		record.PublicKey = nil
		if record.CreatedAt.IsZero() {
			record.CreatedAt = nowMilli()
		}
	}
	return d.commit(record)
}

// LookupEmail finds the user whose email matches exactly, ignoring case.
func (d *Directory) LookupEmail(_ context.Context, email string) (domain.UserRecord, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.UserRecord{}, false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range d.users {
		if rec.Email == email {
			return rec, true, nil
		}
	}
	return domain.UserRecord{}, false, nil
}

func (d *Directory) WatchUser(ctx context.Context, user domain.UserID) (<-chan domain.UserRecord, domain.Unsubscribe, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[user]
	if !ok {
		rec = domain.UserRecord{ID: user}
	}
	ch, unsub := d.watch.subscribe(ctx, user, rec, nil)
	return ch, unsub, nil
}

// commit stores rec, persists, and notifies watchers. Callers hold d.mu.
func (d *Directory) commit(rec domain.UserRecord) error {
	prev, had := d.users[rec.ID]
	d.users[rec.ID] = rec
	if d.path != "" {
		if err := writeJSON(d.path, d.users, 0o600); err != nil {
			if had {
				d.users[rec.ID] = prev
			} else {
				delete(d.users, rec.ID)
			}
			return err
		}
	}
	d.watch.publish(rec.ID, rec)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ domain.DirectoryService = (*Directory)(nil)
