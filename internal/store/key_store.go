package store

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"sync"

	"ciphercomms/internal/crypto"
	"ciphercomms/internal/domain"
)

type keySlot struct {
	user domain.UserID
	kind domain.KeyKind
}

// MemoryKeyStore keeps key material in process memory. Handles are stored
// as given and never exported.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[keySlot]domain.KeyMaterial
}

// NewMemoryKeyStore returns an empty MemoryKeyStore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[keySlot]domain.KeyMaterial)}
}

func (s *MemoryKeyStore) PutKey(user domain.UserID, kind domain.KeyKind, material domain.KeyMaterial) error {
	if material == nil {
		return fmt.Errorf("put %s key for %s: nil material", kind, user)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[keySlot{user, kind}] = material
	return nil
}

func (s *MemoryKeyStore) GetKey(user domain.UserID, kind domain.KeyKind) (domain.KeyMaterial, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.keys[keySlot{user, kind}]
	return m, ok, nil
}

func (s *MemoryKeyStore) DeleteKey(user domain.UserID, kind domain.KeyKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, keySlot{user, kind})
	return nil
}

// FileKeyStore persists key material under dir/keys. Private keys are
// sealed with a passphrase-derived key; public keys are stored as JWK JSON.
// Handles are exported on write, so reads always return ExportedKey.
type FileKeyStore struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

// NewFileKeyStore returns a FileKeyStore rooted at dir.
func NewFileKeyStore(dir, passphrase string) *FileKeyStore {
	return &FileKeyStore{dir: filepath.Join(dir, "keys"), passphrase: passphrase}
}

func (s *FileKeyStore) path(user domain.UserID, kind domain.KeyKind) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(user))
	switch kind {
	case domain.KeyKindPrivate:
		return filepath.Join(s.dir, name+".private.enc")
	default:
		return filepath.Join(s.dir, name+".public.json")
	}
}

// PutKey writes material for (user, kind). Private writes require a
// passphrase that meets the policy.
func (s *FileKeyStore) PutKey(user domain.UserID, kind domain.KeyKind, material domain.KeyMaterial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case domain.KeyKindPrivate:
		if err := CheckPassphrase(s.passphrase); err != nil {
			return err
		}
		priv, err := crypto.PrivateKeyFromMaterial(material)
		if err != nil {
			return err
		}
		raw, err := crypto.ExportPrivateKey(priv)
		if err != nil {
			return err
		}
		blob, err := seal(s.passphrase, raw, defaultScrypt)
		if err != nil {
			return err
		}
		return writeFile(s.path(user, kind), blob, 0o600)

	case domain.KeyKindPublic:
		pub, err := crypto.PublicKeyFromMaterial(material)
		if err != nil {
			return err
		}
		return writeJSON(s.path(user, kind), pub, 0o600)

	default:
		return fmt.Errorf("unknown key kind %q", kind)
	}
}

// GetKey reads material for (user, kind). A wrong passphrase yields ErrWrongPassphrase.
func (s *FileKeyStore) GetKey(user domain.UserID, kind domain.KeyKind) (domain.KeyMaterial, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path(user, kind))
	if err != nil || b == nil {
		return nil, false, err
	}
	if kind != domain.KeyKindPrivate {
		return domain.ExportedKey(b), true, nil
	}
	raw, err := unseal(s.passphrase, b)
	if err != nil {
		return nil, false, err
	}
	return domain.ExportedKey(raw), true, nil
}

func (s *FileKeyStore) DeleteKey(user domain.UserID, kind domain.KeyKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path(user, kind))
}

var (
	_ domain.LocalKeyStore = (*MemoryKeyStore)(nil)
	_ domain.LocalKeyStore = (*FileKeyStore)(nil)
)
