package types

// SignedPreKeyPair is the full signed pre-key stored locally.
type SignedPreKeyPair struct {
	ID        uint32        `json:"id"`
	Priv      X25519Private `json:"priv"`
	Pub       X25519Public  `json:"pub"`
	Signature []byte        `json:"signature"`
}

// OneTimePreKeyPair is the full (private+public) one-time pre-key stored locally.
type OneTimePreKeyPair struct {
	ID   uint32        `json:"id"`
	Priv X25519Private `json:"priv"`
	Pub  X25519Public  `json:"pub"`
}

// PreKeyBundle is the public key material fetched from the directory for a
// peer device. The one-time fields are optional: the server may have
// exhausted them, in which case agreement proceeds without one.
type PreKeyBundle struct {
	RegistrationID        uint32        `json:"registration_id"`
	DeviceID              DeviceID      `json:"device_id"`
	IdentityKey           X25519Public  `json:"identity_key"`
	SigningKey            Ed25519Public `json:"signing_key"`
	SignedPreKeyID        uint32        `json:"signed_pre_key_id"`
	SignedPreKey          X25519Public  `json:"signed_pre_key"`
	SignedPreKeySignature []byte        `json:"signed_pre_key_signature"`
	OneTimePreKeyID       *uint32       `json:"pre_key_id,omitempty"`
	OneTimePreKey         *X25519Public `json:"pre_key,omitempty"`
}

// PreKeyMessage carries the X3DH handshake parameters inside the first
// message of a new session so the receiver can derive the same root key.
type PreKeyMessage struct {
	RegistrationID       uint32       `json:"registration_id"`
	InitiatorIdentityKey X25519Public `json:"initiator_identity_key"`
	EphemeralKey         X25519Public `json:"ephemeral_key"`
	SignedPreKeyID       uint32       `json:"signed_pre_key_id"`
	OneTimePreKeyID      *uint32      `json:"one_time_pre_key_id,omitempty"`
}

// RegistrationKeys is the upload shape for publishing public key material,
// all fields base64-encoded opaque blobs from the server's perspective.
type RegistrationKeys struct {
	PublicIdentityKey     string   `json:"publicIdentityKey"`
	PublicSignedPreKey    string   `json:"publicSignedPrekey"`
	SignedPreKeySignature string   `json:"signedPrekeySignature"`
	OneTimePreKeys        []string `json:"oneTimePrekeys"`
}
