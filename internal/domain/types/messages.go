package types

// WireMessage is the opaque encoded ciphertext inside an envelope: the
// ratchet header, the sealed payload, and (for prekey messages) the X3DH
// handshake parameters.
type WireMessage struct {
	Header RatchetHeader  `json:"header"`
	Cipher []byte         `json:"cipher"`
	PreKey *PreKeyMessage `json:"pre_key,omitempty"`
}

// EncryptedMessage is what the engine hands back from EncryptMessage.
type EncryptedMessage struct {
	Type MessageType `json:"message_type"`
	Body []byte      `json:"body"`
}

// Envelope is the delivery wrapper routed between cluster nodes.
type Envelope struct {
	SenderID     UserID      `json:"sender_id,omitempty"`
	ReceiverID   UserID      `json:"receiver_id,omitempty"`
	DeviceID     DeviceID    `json:"device_id,omitempty"`
	Ciphertext   []byte      `json:"ciphertext"`
	MessageType  MessageType `json:"message_type"`
	EphemeralKey []byte      `json:"ephemeral_key,omitempty"`
}
