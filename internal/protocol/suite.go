// Package protocol composes the X3DH and Double-Ratchet packages into the
// crypto capability the engine consumes.
package protocol

import (
	"fmt"

	"courier/internal/domain"
	"courier/internal/protocol/ratchet"
	"courier/internal/protocol/x3dh"
)

// Suite is the production crypto capability: X25519 agreement, HKDF
// chains, ChaCha20-Poly1305 sealing.
type Suite struct{}

// NewSuite returns the production capability.
func NewSuite() *Suite { return &Suite{} }

// InitiateSession derives the root key against the peer's bundle and
// seeds the sending chain.
func (s *Suite) InitiateSession(
	id domain.Identity,
	bundle domain.PreKeyBundle,
) (domain.RatchetState, domain.PreKeyMessage, error) {
	root, ephemeralPub, err := x3dh.InitiatorRoot(id, bundle)
	if err != nil {
		return domain.RatchetState{}, domain.PreKeyMessage{}, err
	}
	st, err := ratchet.InitAsInitiator(root, bundle.IdentityKey)
	if err != nil {
		return domain.RatchetState{}, domain.PreKeyMessage{}, err
	}
	msg := domain.PreKeyMessage{
		RegistrationID:       id.RegistrationID,
		InitiatorIdentityKey: id.XPub,
		EphemeralKey:         ephemeralPub,
		SignedPreKeyID:       bundle.SignedPreKeyID,
		OneTimePreKeyID:      bundle.OneTimePreKeyID,
	}
	return st, msg, nil
}

// AcceptSession runs the responder flow for an inbound prekey message,
// resolving the targeted pre-keys from our identity.
func (s *Suite) AcceptSession(
	id domain.Identity,
	msg domain.PreKeyMessage,
	senderRatchetPub domain.X25519Public,
) (domain.RatchetState, error) {
	if id.SignedPreKey.ID != msg.SignedPreKeyID {
		return domain.RatchetState{}, fmt.Errorf("signed pre-key %d not available", msg.SignedPreKeyID)
	}
	var opkPriv *domain.X25519Private
	if msg.OneTimePreKeyID != nil {
		for _, pair := range id.OneTimePreKeys {
			if pair.ID == *msg.OneTimePreKeyID {
				priv := pair.Priv
				opkPriv = &priv
				break
			}
		}
	}
	root, err := x3dh.ResponderRoot(id, id.SignedPreKey.Priv, opkPriv, msg)
	if err != nil {
		return domain.RatchetState{}, err
	}
	return ratchet.InitAsResponder(root, id.XPriv, senderRatchetPub)
}

// RatchetEncrypt seals plaintext and advances the sending chain.
func (s *Suite) RatchetEncrypt(
	st *domain.RatchetState,
	plaintext []byte,
) (domain.RatchetHeader, []byte, error) {
	return ratchet.Encrypt(st, nil, plaintext)
}

// RatchetDecrypt opens ciphertext on a trial copy of the state and
// commits only on success, so a MAC failure or replay never advances the
// chains.
func (s *Suite) RatchetDecrypt(
	st *domain.RatchetState,
	header domain.RatchetHeader,
	ciphertext []byte,
) ([]byte, error) {
	trial := st.Clone()
	pt, err := ratchet.Decrypt(&trial, nil, header, ciphertext)
	if err != nil {
		return nil, err
	}
	*st = trial
	return pt, nil
}

// ValidateSignature checks a signed pre-key signature.
func (s *Suite) ValidateSignature(
	signingKey domain.Ed25519Public,
	signedPreKey domain.X25519Public,
	signature []byte,
) bool {
	return x3dh.VerifySignedPreKey(signingKey, signedPreKey, signature)
}

// Compile-time assertion that Suite implements domain.Capability.
var _ domain.Capability = (*Suite)(nil)
