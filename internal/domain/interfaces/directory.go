package interfaces

import (
	"context"

	domaintypes "ciphercomms/internal/domain/types"
)

// DirectoryService is the shared user directory. It holds profiles and the
// single published public key of each user. The latest write wins.
type DirectoryService interface {
	PublicKey(
		ctx context.Context,
		user domaintypes.UserID,
	) (domaintypes.ExportedPublicKey, bool, error)
	SetPublicKey(ctx context.Context, user domaintypes.UserID, key domaintypes.ExportedPublicKey) error

	Profile(ctx context.Context, user domaintypes.UserID) (domaintypes.UserRecord, bool, error)
	PutProfile(ctx context.Context, record domaintypes.UserRecord) error
	LookupEmail(ctx context.Context, email string) (domaintypes.UserRecord, bool, error)

	// WatchUser delivers the current record, then each later version. The
	// channel closes when the subscription is released or ctx ends.
	WatchUser(
		ctx context.Context,
		user domaintypes.UserID,
	) (<-chan domaintypes.UserRecord, domaintypes.Unsubscribe, error)
}
