package interfaces

import domaintypes "courier/internal/domain/types"

// Capability is the pluggable cryptographic backend the engine drives.
// The engine owns lifecycle, locking, and the session cache; the
// capability owns key agreement and ratchet encryption, so engine logic
// stays testable against a reversible double.
type Capability interface {
	// InitiateSession runs X3DH against a fetched bundle and returns a
	// ready ratchet state plus the handshake parameters to attach to the
	// first outbound message.
	InitiateSession(
		id domaintypes.Identity,
		bundle domaintypes.PreKeyBundle,
	) (domaintypes.RatchetState, domaintypes.PreKeyMessage, error)

	// AcceptSession runs the X3DH responder flow for an inbound prekey
	// message. The sender's current ratchet public comes from the message
	// header.
	AcceptSession(
		id domaintypes.Identity,
		msg domaintypes.PreKeyMessage,
		senderRatchetPub domaintypes.X25519Public,
	) (domaintypes.RatchetState, error)

	// RatchetEncrypt advances the sending chain and seals plaintext.
	RatchetEncrypt(
		st *domaintypes.RatchetState,
		plaintext []byte,
	) (domaintypes.RatchetHeader, []byte, error)

	// RatchetDecrypt opens ciphertext, advancing the receiving chain only
	// on success; a failed open must leave st untouched.
	RatchetDecrypt(
		st *domaintypes.RatchetState,
		header domaintypes.RatchetHeader,
		ciphertext []byte,
	) ([]byte, error)

	// ValidateSignature checks a signed pre-key signature against the
	// bundle's signing key.
	ValidateSignature(
		signingKey domaintypes.Ed25519Public,
		signedPreKey domaintypes.X25519Public,
		signature []byte,
	) bool
}
