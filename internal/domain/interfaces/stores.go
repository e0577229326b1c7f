package interfaces

import domaintypes "ciphercomms/internal/domain/types"

// LocalKeyStore persists a user's key material on this device, one entry per
// (user, kind). Writes replace any previous entry.
type LocalKeyStore interface {
	PutKey(user domaintypes.UserID, kind domaintypes.KeyKind, material domaintypes.KeyMaterial) error
	GetKey(
		user domaintypes.UserID,
		kind domaintypes.KeyKind,
	) (domaintypes.KeyMaterial, bool, error)
	DeleteKey(user domaintypes.UserID, kind domaintypes.KeyKind) error
}
