package x3dh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/crypto"
	"courier/internal/domain"
	"courier/internal/protocol/x3dh"
)

// makeParty builds an identity with a signed pre-key and one one-time
// pre-key.
func makeParty(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	spkPriv, spkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	opkPriv, opkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	return domain.Identity{
		RegistrationID: 42,
		DeviceID:       1,
		XPub:           xPub,
		XPriv:          xPriv,
		EdPub:          edPub,
		EdPriv:         edPriv,
		SignedPreKey: domain.SignedPreKeyPair{
			ID:        1,
			Priv:      spkPriv,
			Pub:       spkPub,
			Signature: crypto.SignEd25519(edPriv, spkPub.Slice()),
		},
		OneTimePreKeys: []domain.OneTimePreKeyPair{{ID: 1, Priv: opkPriv, Pub: opkPub}},
		NextPreKeyID:   2,
	}
}

func bundleFor(id domain.Identity, withOneTime bool) domain.PreKeyBundle {
	b := domain.PreKeyBundle{
		RegistrationID:        id.RegistrationID,
		DeviceID:              id.DeviceID,
		IdentityKey:           id.XPub,
		SigningKey:            id.EdPub,
		SignedPreKeyID:        id.SignedPreKey.ID,
		SignedPreKey:          id.SignedPreKey.Pub,
		SignedPreKeySignature: id.SignedPreKey.Signature,
	}
	if withOneTime {
		opk := id.OneTimePreKeys[0]
		b.OneTimePreKeyID = &opk.ID
		opkPub := opk.Pub
		b.OneTimePreKey = &opkPub
	}
	return b
}

func TestX3DH_BothSidesDeriveSameRoot(t *testing.T) {
	alice := makeParty(t)
	bob := makeParty(t)
	bundle := bundleFor(bob, true)

	rootA, ephPub, err := x3dh.InitiatorRoot(alice, bundle)
	require.NoError(t, err)
	require.Len(t, rootA, 32)

	msg := domain.PreKeyMessage{
		RegistrationID:       alice.RegistrationID,
		InitiatorIdentityKey: alice.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       bundle.SignedPreKeyID,
		OneTimePreKeyID:      bundle.OneTimePreKeyID,
	}
	opkPriv := bob.OneTimePreKeys[0].Priv
	rootB, err := x3dh.ResponderRoot(bob, bob.SignedPreKey.Priv, &opkPriv, msg)
	require.NoError(t, err)

	assert.Equal(t, rootA, rootB)
}

func TestX3DH_DegradesWithoutOneTimePreKey(t *testing.T) {
	alice := makeParty(t)
	bob := makeParty(t)
	bundle := bundleFor(bob, false)

	rootA, ephPub, err := x3dh.InitiatorRoot(alice, bundle)
	require.NoError(t, err)

	msg := domain.PreKeyMessage{
		InitiatorIdentityKey: alice.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       bundle.SignedPreKeyID,
	}
	rootB, err := x3dh.ResponderRoot(bob, bob.SignedPreKey.Priv, nil, msg)
	require.NoError(t, err)

	assert.Equal(t, rootA, rootB)
}

func TestX3DH_ThreeAndFourDHFormsDiffer(t *testing.T) {
	alice := makeParty(t)
	bob := makeParty(t)

	rootWith, eph, err := x3dh.InitiatorRoot(alice, bundleFor(bob, true))
	require.NoError(t, err)
	msg := domain.PreKeyMessage{InitiatorIdentityKey: alice.XPub, EphemeralKey: eph}
	rootWithout, err := x3dh.ResponderRoot(bob, bob.SignedPreKey.Priv, nil, msg)
	require.NoError(t, err)

	assert.NotEqual(t, rootWith, rootWithout)
}

func TestX3DH_ResponderRejectsMissingOneTimeKey(t *testing.T) {
	alice := makeParty(t)
	bob := makeParty(t)
	bundle := bundleFor(bob, true)

	_, ephPub, err := x3dh.InitiatorRoot(alice, bundle)
	require.NoError(t, err)

	msg := domain.PreKeyMessage{
		InitiatorIdentityKey: alice.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       bundle.SignedPreKeyID,
		OneTimePreKeyID:      bundle.OneTimePreKeyID,
	}
	_, err = x3dh.ResponderRoot(bob, bob.SignedPreKey.Priv, nil, msg)
	assert.ErrorIs(t, err, x3dh.ErrMissingOneTimeKey)
}

func TestVerifySignedPreKey(t *testing.T) {
	bob := makeParty(t)

	ok := x3dh.VerifySignedPreKey(bob.EdPub, bob.SignedPreKey.Pub, bob.SignedPreKey.Signature)
	assert.True(t, ok)

	tampered := append([]byte(nil), bob.SignedPreKey.Signature...)
	tampered[0] ^= 0x01
	assert.False(t, x3dh.VerifySignedPreKey(bob.EdPub, bob.SignedPreKey.Pub, tampered))
}
