// Package envelope seals one plaintext for several recipients.
//
// A fresh session key encrypts the body once; the session key is then
// wrapped to every recipient's RSA-OAEP public key. Opening unwraps the
// reader's entry and decrypts the body. Sealing is all-or-nothing: if any
// recipient key cannot be used, no envelope is produced.
package envelope
