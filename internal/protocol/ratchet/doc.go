// Package ratchet implements a Double-Ratchet session: per-message keys
// derived from HKDF chains, a DH ratchet step on every new remote public,
// and ChaCha20-Poly1305 sealing bound to the message header.
package ratchet
