// Package x3dh derives the shared root key for a new session from an
// identity key, a signed pre-key, and an optional one-time pre-key,
// without requiring both parties online at once.
package x3dh
