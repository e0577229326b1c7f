// Package store provides persistence for ciphercomms.
//
// It contains concrete implementations of the domain storage interfaces.
// All types are concurrency-safe via internal locking. File-backed stores
// write atomically (temp file then rename) with 0600 permissions.
//
// The package includes:
//   - Local key stores: in-memory (MemoryKeyStore) and on-disk with
//     passphrase-sealed private keys (FileKeyStore)
//   - The user directory (Directory), in memory or as a JSON file
//   - Conversation metadata (Conversations), in memory or as a JSON file
//   - Message records (Messages), in memory or one maildir per conversation
//
// Directory and Messages push full snapshots to subscribers after every
// change; a subscriber that falls behind only ever sees the newest one.
package store
