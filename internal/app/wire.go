package app

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"ciphercomms/internal/domain"
	"ciphercomms/internal/relay"
	"ciphercomms/internal/services/conversation"
	"ciphercomms/internal/services/keys"
	"ciphercomms/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Keys          *keys.Service
	Conversations *conversation.Service
	Directory     domain.DirectoryService
	Local         domain.LocalKeyStore
	Log           zerolog.Logger
}

// NewWire constructs the dependency graph from cfg. Private keys are sealed
// with passphrase.
func NewWire(cfg Config, passphrase string, log zerolog.Logger, httpClient *http.Client) (*Wire, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	local := store.NewFileKeyStore(cfg.Home, passphrase)

	var (
		directory domain.DirectoryService
		convs     domain.ConversationStore
		messages  domain.MessageStore
	)
	if cfg.RelayURL != "" {
		rc := relay.NewClient(cfg.RelayURL,
			relay.WithHTTPClient(httpClient),
			relay.WithPollInterval(cfg.PollInterval),
			relay.WithClientLogger(log),
		)
		directory, convs, messages = rc, rc, rc
	} else {
		stores, err := OpenStores(filepath.Join(cfg.Home, "data"))
		if err != nil {
			return nil, err
		}
		directory, convs, messages = stores.Directory, stores.Conversations, stores.Messages
	}

	return &Wire{
		Keys:          keys.New(local, directory, keys.WithLogger(log)),
		Conversations: conversation.New(directory, convs, messages, conversation.WithLogger(log)),
		Directory:     directory,
		Local:         local,
		Log:           log,
	}, nil
}

// Stores are the shared directory, conversation and message stores.
type Stores struct {
	Directory     *store.Directory
	Conversations *store.Conversations
	Messages      *store.Messages
}

// MemoryStores returns stores that live for the process only.
func MemoryStores() Stores {
	return Stores{
		Directory:     store.NewDirectory(),
		Conversations: store.NewConversations(),
		Messages:      store.NewMessages(),
	}
}

// OpenStores opens durable stores under dir: directory and conversations
// as JSON files, messages as one maildir per conversation.
func OpenStores(dir string) (Stores, error) {
	d, err := store.OpenDirectory(filepath.Join(dir, "directory.json"))
	if err != nil {
		return Stores{}, fmt.Errorf("open directory: %w", err)
	}
	c, err := store.OpenConversations(filepath.Join(dir, "conversations.json"))
	if err != nil {
		return Stores{}, fmt.Errorf("open conversations: %w", err)
	}
	m, err := store.OpenMaildirMessages(filepath.Join(dir, "messages"))
	if err != nil {
		return Stores{}, fmt.Errorf("open messages: %w", err)
	}
	return Stores{Directory: d, Conversations: c, Messages: m}, nil
}
