package types

// MessageType tags a ciphertext so the receiver knows whether it must
// bootstrap a session first.
type MessageType string

const (
	// MessageTypePreKey marks the first message of a new session; it
	// carries the X3DH parameters the receiver needs.
	MessageTypePreKey MessageType = "prekey"
	// MessageTypeWhisper marks every message after session establishment.
	MessageTypeWhisper MessageType = "whisper"
)

// Session is the pairwise cryptographic state for one remote device.
// Mutated on every encrypt/decrypt: the ratchet advances and LastUsedUTC
// is refreshed.
type Session struct {
	PeerUserID      UserID       `json:"peer_user_id"`
	PeerDeviceID    DeviceID     `json:"peer_device_id"`
	PeerIdentityKey X25519Public `json:"peer_identity_key"`

	Ratchet RatchetState `json:"ratchet"`

	// PendingPreKey is attached to the next outbound message while the
	// peer has not yet seen this session; cleared after the first send.
	PendingPreKey *PreKeyMessage `json:"pending_pre_key,omitempty"`

	CreatedUTC  int64 `json:"created_utc"`
	LastUsedUTC int64 `json:"last_used_utc"`
}
