// Package sealing implements the confidential-value primitives shared by the
// client and the ledger node.
//
// # Inputs
//
// A plaintext int64 is sealed to the network encryption key (X25519) with an
// ephemeral key pair; HKDF-SHA256 over the shared secret yields a
// ChaCha20-Poly1305 key and a BLAKE2b MAC key. The payload is
//
//	version(1) | ephemeral public key(32) | nonce(12) | ciphertext(8+16)
//
// and the input proof is the keyed BLAKE2b-256 of payload and binding, where
// the binding ties the value to the target contract and the submitter. Only
// the holder of the network private key can check the proof or open the
// payload.
//
// # Decryption
//
// Clear values travel ABI-style: one 32-byte big-endian two's-complement word
// per handle, in request order. The decryption proof is an ed25519 signature
// by the network signing key over the contract, the handles and the encoded
// words.
package sealing
