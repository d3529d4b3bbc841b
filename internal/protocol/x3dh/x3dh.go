package x3dh

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"courier/internal/crypto"
	"courier/internal/domain"
)

const rootKeyBytes = 32

var hkdfLabel = []byte("courier-x3dh")

// ErrMissingOneTimeKey is returned by the responder when the initiator
// referenced a one-time pre-key we no longer hold.
var ErrMissingOneTimeKey = errors.New("referenced one-time pre-key not available")

// InitiatorRoot runs the initiator side of X3DH against a peer bundle.
// It generates the ephemeral pair internally and returns the root key and
// the ephemeral public the peer needs to mirror the derivation. A bundle
// without a one-time pre-key degrades to the three-DH form; that is a
// documented protocol degradation, not an error.
func InitiatorRoot(
	id domain.Identity,
	bundle domain.PreKeyBundle,
) (root []byte, ephemeralPub domain.X25519Public, err error) {
	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, domain.X25519Public{}, err
	}

	dh1, err := crypto.DH(id.XPriv, bundle.SignedPreKey) // DH(IK_A, SPK_B)
	if err != nil {
		return nil, domain.X25519Public{}, err
	}
	dh2, err := crypto.DH(ephPriv, bundle.IdentityKey) // DH(EK_A, IK_B)
	if err != nil {
		return nil, domain.X25519Public{}, err
	}
	dh3, err := crypto.DH(ephPriv, bundle.SignedPreKey) // DH(EK_A, SPK_B)
	if err != nil {
		return nil, domain.X25519Public{}, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)
	if bundle.OneTimePreKey != nil {
		dh4, err := crypto.DH(ephPriv, *bundle.OneTimePreKey) // DH(EK_A, OPK_B)
		if err != nil {
			return nil, domain.X25519Public{}, err
		}
		concat = append(concat, dh4[:]...)
	}

	root = deriveRoot(concat)
	crypto.Wipe(concat)
	crypto.Wipe(ephPriv[:])
	return root, ephPub, nil
}

// ResponderRoot mirrors the initiator derivation from the receiver side
// using the private halves of the pre-keys the initiator targeted.
func ResponderRoot(
	id domain.Identity,
	spkPriv domain.X25519Private,
	opkPriv *domain.X25519Private,
	msg domain.PreKeyMessage,
) ([]byte, error) {
	dh1, err := crypto.DH(spkPriv, msg.InitiatorIdentityKey) // DH(SPK_B, IK_A)
	if err != nil {
		return nil, err
	}
	dh2, err := crypto.DH(id.XPriv, msg.EphemeralKey) // DH(IK_B, EK_A)
	if err != nil {
		return nil, err
	}
	dh3, err := crypto.DH(spkPriv, msg.EphemeralKey) // DH(SPK_B, EK_A)
	if err != nil {
		return nil, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)
	if msg.OneTimePreKeyID != nil {
		if opkPriv == nil {
			return nil, ErrMissingOneTimeKey
		}
		dh4, err := crypto.DH(*opkPriv, msg.EphemeralKey) // DH(OPK_B, EK_A)
		if err != nil {
			return nil, err
		}
		concat = append(concat, dh4[:]...)
	}

	root := deriveRoot(concat)
	crypto.Wipe(concat)
	return root, nil
}

// VerifySignedPreKey checks the signed pre-key signature against the
// bundle's signing key.
func VerifySignedPreKey(signingKey domain.Ed25519Public, spk domain.X25519Public, sig []byte) bool {
	return crypto.VerifyEd25519(signingKey, spk.Slice(), sig)
}

func deriveRoot(ikm []byte) []byte {
	r := hkdf.New(sha256.New, ikm, nil, hkdfLabel)
	root := make([]byte, rootKeyBytes)
	_, _ = io.ReadFull(r, root)
	return root
}
