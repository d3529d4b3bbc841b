// Package crypto exposes the minimal primitives the engine builds on.
//
//   - X25519 key generation, clamping and Diffie–Hellman
//   - Ed25519 key generation, signing and verification
//   - PIN master-key derivation (PBKDF2-HMAC-SHA256) and AES-256-GCM
//     sealing of key material at rest
//   - Best-effort memory wiping for sensitive byte slices
//
// All functions return fixed-size array types defined in internal/domain
// to avoid accidental reallocations. Callers should treat returned secrets
// as sensitive and rely on Wipe when practical.
package crypto
