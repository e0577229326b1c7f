// Package conversation sends and receives end-to-end encrypted messages.
//
// Sending resolves every participant's current public key from the
// directory, seals one envelope for all of them (the sender included) and
// appends it to the message store. Receiving opens each stored record with
// the reader's KeyRing; records that cannot be opened become placeholders
// naming the reason, so one bad message never hides the rest.
package conversation
