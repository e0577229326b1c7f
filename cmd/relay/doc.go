// Package main runs the HTTP relay that holds the user directory,
// conversations and encrypted messages for ciphercomms clients.
//
// HTTP API
//
//	GET    /users/{id}                 user record (profile and public key)
//	PUT    /users/{id}                 create or update a profile
//	PUT    /users/{id}/key             replace the published public key
//	GET    /users?email=               exact, case-insensitive email lookup
//	POST   /chats                      create or reuse a two-party conversation
//	GET    /chats/{id}                 conversation
//	GET    /chats?participant=         a user's conversations, newest first
//	PUT    /chats/{id}/last            set or clear the list preview
//	POST   /chats/{id}/messages        append an encrypted record
//	GET    /chats/{id}/messages?limit= records, oldest first
//	DELETE /chats/{id}/messages/{mid}  delete; X-User-ID must be the author
//
// Behaviour
//
//   - State is held in memory unless --data is given; then the directory and
//     conversations are JSON files and messages live in one maildir per
//     conversation.
//   - Errors are JSON {"error": code, "message": text}.
//   - Every request is access-logged.
//   - The default listen address is :8080.
//
// The relay never sees plaintext or private keys; it only stores ciphertext,
// wrapped session keys and public keys.
package main
