package types

// MaxRegistrationID is the upper bound for registration IDs, matching the
// 14-bit range the directory server accepts.
const MaxRegistrationID = 16380

// Identity holds the long-term key material for one local installation.
// It is persisted only in sealed form under the master key.
type Identity struct {
	RegistrationID uint32 `json:"registration_id"`
	DeviceID       DeviceID `json:"device_id"`

	XPub   X25519Public   `json:"xpub"`
	XPriv  X25519Private  `json:"xpriv"`
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`

	SignedPreKey SignedPreKeyPair `json:"signed_pre_key"`

	// OneTimePreKeys is ordered by ID; IDs are unique and monotonically
	// increasing, NextPreKeyID is the next to hand out.
	OneTimePreKeys []OneTimePreKeyPair `json:"one_time_pre_keys"`
	NextPreKeyID   uint32              `json:"next_pre_key_id"`

	// PeerIdentityKeys remembers the identity key last seen for each peer
	// so a changed key can be flagged before it is trusted again.
	PeerIdentityKeys map[string]X25519Public `json:"peer_identity_keys,omitempty"`
}
