package envelope

import (
	"fmt"

	"ciphercomms/internal/crypto"
	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

// ToRecord encodes env as a message record addressed from sender in conv.
// ID and timestamp are left for the store to assign.
func ToRecord(env domain.Envelope, conv domain.ConversationID, sender domain.UserID) domain.MessageRecord {
	keys := make(map[domain.UserID]string, len(env.WrappedKeys))
	for id, w := range env.WrappedKeys {
		keys[id] = crypto.B64(w)
	}
	return domain.MessageRecord{
		ConversationID:       conv,
		SenderID:             sender,
		EncryptedContent:     crypto.B64(env.Body),
		EncryptedSessionKeys: keys,
	}
}

// FromRecord decodes the envelope carried by rec. A record with no content
// or no wrapped keys at all is malformed.
func FromRecord(rec domain.MessageRecord) (domain.Envelope, error) {
	if rec.EncryptedContent == "" || len(rec.EncryptedSessionKeys) == 0 {
		return domain.Envelope{}, cerrors.ErrMalformedEnvelope
	}
	body, err := crypto.FromB64(rec.EncryptedContent)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: body: %w", cerrors.ErrMalformedEnvelope, err)
	}
	keys := make(map[domain.UserID][]byte, len(rec.EncryptedSessionKeys))
	for id, s := range rec.EncryptedSessionKeys {
		w, err := crypto.FromB64(s)
		if err != nil {
			return domain.Envelope{}, fmt.Errorf("%w: key for %s: %w", cerrors.ErrMalformedEnvelope, id, err)
		}
		keys[id] = w
	}
	return domain.Envelope{Body: body, WrappedKeys: keys}, nil
}
