// Package keys reconciles a device's key pair with the directory.
//
// Reconcile reads the local private key and the published public key,
// asks the lifecycle package which transition applies, performs it, and
// returns a KeyRing. Messaging code takes its private key from that ring
// only.
package keys
