// Package app wires application dependencies for the CLI and the relay.
//
// It loads Config from YAML, builds the logger, and builds the concrete
// stores, relay client and services from Config, exposing them via the Wire
// struct for commands to use. Without a relay URL the CLI runs against
// file-backed stores under the home directory.
package app
