package domain

import "errors"

// Cryptographic failures are surfaced verbatim and never retried
// automatically; retrying could mask tampering or replay. Infrastructure
// failures (storage, registry, timeouts) may be retried by the caller with
// backoff; this core only reports them.
var (
	ErrNotInitialized       = errors.New("engine not initialized")
	ErrEncryptionNotEnabled = errors.New("encryption has not been set up")
	ErrKeysLocked           = errors.New("keys are locked; unlock with PIN first")
	ErrPinTooShort          = errors.New("PIN must be at least 6 characters")
	ErrNoSession            = errors.New("no session with peer device")
	ErrInvalidKey           = errors.New("invalid key material in bundle")
	ErrIdentityChanged      = errors.New("peer identity key changed; verify safety number")
	ErrEncryptionFailed     = errors.New("encryption failed")
	ErrDecryptionFailed     = errors.New("decryption failed")
	ErrSessionCreationFailed = errors.New("session creation failed")

	ErrSlotNotFound       = errors.New("key store slot not found")
	ErrStorageUnavailable = errors.New("key store unavailable")
	ErrRegistryUnavailable = errors.New("presence registry unavailable")
)
