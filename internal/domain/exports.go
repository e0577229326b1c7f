package domain

import (
	interfaces "ciphercomms/internal/domain/interfaces"
	types "ciphercomms/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID              = types.UserID
	ConversationID      = types.ConversationID
	MessageID           = types.MessageID
	Fingerprint         = types.Fingerprint
	Unsubscribe         = types.Unsubscribe
	KeyKind             = types.KeyKind
	KeyState            = types.KeyState
	KeyRing             = types.KeyRing
	KeyMaterial         = types.KeyMaterial
	ExportedKey         = types.ExportedKey
	KeyHandle           = types.KeyHandle
	ExportedPublicKey   = types.ExportedPublicKey
	Envelope            = types.Envelope
	MessageRecord       = types.MessageRecord
	DecryptedMessage    = types.DecryptedMessage
	LastMessage         = types.LastMessage
	Conversation        = types.Conversation
	ConversationSummary = types.ConversationSummary
	UserRecord          = types.UserRecord
)

// Constant re-exports.
const (
	KeyKindPrivate = types.KeyKindPrivate
	KeyKindPublic  = types.KeyKindPublic

	KeyStateSynced   = types.KeyStateSynced
	KeyStateDrifted  = types.KeyStateDrifted
	KeyStateOrphaned = types.KeyStateOrphaned
	KeyStateFresh    = types.KeyStateFresh
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	LocalKeyStore       = interfaces.LocalKeyStore
	DirectoryService    = interfaces.DirectoryService
	MessageStore        = interfaces.MessageStore
	ConversationStore   = interfaces.ConversationStore
	KeyLifecycleService = interfaces.KeyLifecycleService
	ConversationService = interfaces.ConversationService
)

// NewKeyRing re-exports types.NewKeyRing.
var NewKeyRing = types.NewKeyRing

// SortedParticipants re-exports types.SortedParticipants.
var SortedParticipants = types.SortedParticipants
