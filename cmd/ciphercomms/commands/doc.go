// Package commands defines the ciphercomms CLI and wires dependencies for subcommands.
//
// Commands
//
//   - register          Publish your profile and make sure your keys are in place
//   - keys sync         Reconcile local keys with the directory
//   - keys fingerprint  Print the fingerprint of your published key
//   - keys clear        Delete the keys stored on this device
//   - chat new          Start (or reuse) a conversation with a peer
//   - chat list         List your conversations
//   - send              Encrypt and send a message
//   - recv              Decrypt a conversation, optionally following it
//   - delete            Delete one of your messages
//
// # Implementation
//
// The root command loads the YAML config, applies flag overrides and builds
// the dependency graph (key store, relay client or local stores, services)
// before any subcommand runs. Commands that read or send messages reconcile
// keys first so the directory always holds a key this device can decrypt
// with, when it has one.
package commands
