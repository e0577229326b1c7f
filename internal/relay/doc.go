// Package relay carries the directory, conversation and message stores over
// HTTP.
//
// Server exposes any implementation of the store interfaces as a JSON API.
// Client implements the same interfaces against a running Server, so the
// services work unchanged whether they talk to local stores or a relay.
//
// The relay only ever handles public keys, wrapped session keys and
// ciphertext.
//
// Errors travel as {"error": code, "message": text}, where code is the
// stable code from internal/errors. The client maps the code back to the
// sentinel so callers can keep using errors.Is.
package relay
