// Package crypto exposes the primitives ciphercomms builds on.
//
// Contents
//
//   - Key material codec: RSA public and private keys to and from JWK
//     (ExportPublicKey, ImportPublicKey, ExportPrivateKey, ImportPrivateKey)
//     and resolution of local key material (PrivateKeyFromMaterial,
//     PublicKeyFromMaterial)
//   - RSA-2048 key pair generation and RSA-OAEP-SHA256 key wrapping
//     (GenerateKeyPair, WrapKey, UnwrapKey)
//   - The AES-256-GCM session cipher with a 96-bit nonce prepended to the
//     ciphertext (GenerateSessionKey, Encrypt, Decrypt) and the JWK "oct"
//     encoding of session keys (MarshalSessionKey, ParseSessionKey)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Decrypt and UnwrapKey never explain why they failed; callers receive
// ErrAuthentication or ErrKeyUnwrapFailed only. Session keys should be wiped
// with memzero.Zero once used.
package crypto
