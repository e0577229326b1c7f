package types

import "go.mau.fi/util/jsontime"

// UserRecord is a directory entry: profile plus the published public key.
type UserRecord struct {
	ID          UserID             `json:"id"`
	Email       string             `json:"email"`
	DisplayName string             `json:"display_name"`
	PublicKey   *ExportedPublicKey `json:"public_key,omitempty"`
	CreatedAt   jsontime.UnixMilli `json:"created_at"`
}
