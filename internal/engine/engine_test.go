package engine_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/cache"
	"courier/internal/domain"
	"courier/internal/engine"
	"courier/internal/keystore"
)

// xorCapability is a deterministic stand-in for the real crypto suite: the
// "root key" is the XOR of both identity publics, so initiator and
// responder converge without any curve arithmetic. failNext makes exactly
// one decrypt fail, for failure-path tests.
type xorCapability struct {
	failNext bool
}

func xorKey(a, b domain.X25519Public) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func xorBytes(key, in []byte) []byte {
	out := make([]byte, len(in))
	for i := range in {
		out[i] = in[i] ^ key[i%len(key)]
	}
	return out
}

func (c *xorCapability) InitiateSession(id domain.Identity, bundle domain.PreKeyBundle) (domain.RatchetState, domain.PreKeyMessage, error) {
	st := domain.RatchetState{RootKey: xorKey(id.XPub, bundle.IdentityKey)}
	msg := domain.PreKeyMessage{
		RegistrationID:       id.RegistrationID,
		InitiatorIdentityKey: id.XPub,
		SignedPreKeyID:       bundle.SignedPreKeyID,
		OneTimePreKeyID:      bundle.OneTimePreKeyID,
	}
	return st, msg, nil
}

func (c *xorCapability) AcceptSession(id domain.Identity, msg domain.PreKeyMessage, _ domain.X25519Public) (domain.RatchetState, error) {
	return domain.RatchetState{RootKey: xorKey(id.XPub, msg.InitiatorIdentityKey)}, nil
}

func (c *xorCapability) RatchetEncrypt(st *domain.RatchetState, plaintext []byte) (domain.RatchetHeader, []byte, error) {
	header := domain.RatchetHeader{
		DiffieHellmanPublicKey: make([]byte, 32),
		MessageIndex:           st.SendMessageIndex,
	}
	st.SendMessageIndex++
	return header, xorBytes(st.RootKey, plaintext), nil
}

func (c *xorCapability) RatchetDecrypt(st *domain.RatchetState, _ domain.RatchetHeader, ciphertext []byte) ([]byte, error) {
	if c.failNext {
		c.failNext = false
		return nil, errors.New("injected decrypt failure")
	}
	pt := xorBytes(st.RootKey, ciphertext)
	st.ReceiveMessageIndex++
	return pt, nil
}

func (c *xorCapability) ValidateSignature(_ domain.Ed25519Public, _ domain.X25519Public, sig []byte) bool {
	return len(sig) > 0
}

var _ domain.Capability = (*xorCapability)(nil)

const goodPIN = "123456"

func newEngine(t *testing.T, store domain.KeyStore, capability domain.Capability) *engine.Engine {
	t.Helper()
	e := engine.New(store, capability, cache.NewLRU(cache.MaxSessions))
	require.NoError(t, e.Initialize(context.Background()))
	return e
}

func newUnlockedEngine(t *testing.T, capability domain.Capability) *engine.Engine {
	t.Helper()
	e := newEngine(t, keystore.NewMemory(), capability)
	require.NoError(t, e.SetupEncryption(goodPIN))
	return e
}

// identityKeyOf decodes the engine's public identity key from its upload
// shape.
func identityKeyOf(t *testing.T, e *engine.Engine) domain.X25519Public {
	t.Helper()
	keys, err := e.GenerateRegistrationKeys()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(keys.PublicIdentityKey)
	require.NoError(t, err)
	var pub domain.X25519Public
	copy(pub[:], raw)
	return pub
}

func bundleFor(t *testing.T, e *engine.Engine) domain.PreKeyBundle {
	t.Helper()
	return domain.PreKeyBundle{
		RegistrationID:        e.RegistrationID(),
		DeviceID:              1,
		IdentityKey:           identityKeyOf(t, e),
		SignedPreKeyID:        1,
		SignedPreKeySignature: []byte{1},
	}
}

func TestEngine_InitializePersistsIDs(t *testing.T) {
	store := keystore.NewMemory()
	e := newEngine(t, store, &xorCapability{})

	regID := e.RegistrationID()
	assert.GreaterOrEqual(t, regID, uint32(1))
	assert.LessOrEqual(t, regID, uint32(16380))
	assert.Equal(t, domain.DeviceID(1), e.DeviceID())

	// Same store, fresh engine: the IDs survive a restart.
	restarted := newEngine(t, store, &xorCapability{})
	assert.Equal(t, regID, restarted.RegistrationID())
}

func TestEngine_OperationsBeforeInitialize(t *testing.T) {
	e := engine.New(keystore.NewMemory(), &xorCapability{}, cache.NewLRU(10))

	assert.ErrorIs(t, e.SetupEncryption(goodPIN), domain.ErrNotInitialized)
	_, err := e.UnlockWithPIN(goodPIN)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestEngine_SetupRejectsShortPIN(t *testing.T) {
	e := newEngine(t, keystore.NewMemory(), &xorCapability{})
	assert.ErrorIs(t, e.SetupEncryption("12345"), domain.ErrPinTooShort)
}

func TestEngine_UnlockBeforeSetup(t *testing.T) {
	e := newEngine(t, keystore.NewMemory(), &xorCapability{})
	_, err := e.UnlockWithPIN(goodPIN)
	assert.ErrorIs(t, err, domain.ErrEncryptionNotEnabled)
}

func TestEngine_LockUnlockRoundTrip(t *testing.T) {
	store := keystore.NewMemory()
	e := newEngine(t, store, &xorCapability{})
	require.NoError(t, e.SetupEncryption(goodPIN))
	fpBefore, err := e.IdentityFingerprint()
	require.NoError(t, err)

	e.Lock()
	assert.False(t, e.Unlocked())
	_, err = e.GenerateRegistrationKeys()
	assert.ErrorIs(t, err, domain.ErrKeysLocked)

	ok, err := e.UnlockWithPIN("999999")
	require.NoError(t, err)
	assert.False(t, ok, "wrong PIN must report false, not an error")
	assert.False(t, e.Unlocked())

	ok, err = e.UnlockWithPIN(goodPIN)
	require.NoError(t, err)
	require.True(t, ok)

	fpAfter, err := e.IdentityFingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpBefore, fpAfter, "identity must survive the round trip")
}

func TestEngine_EncryptWithoutSession(t *testing.T) {
	e := newUnlockedEngine(t, &xorCapability{})
	_, err := e.EncryptMessage("bob", 1, []byte("hi"))
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestEngine_CreateSessionRejectsBadSignature(t *testing.T) {
	e := newUnlockedEngine(t, &xorCapability{})
	bundle := domain.PreKeyBundle{SignedPreKeyID: 1} // empty signature
	assert.ErrorIs(t, e.CreateSession("bob", 1, bundle), domain.ErrInvalidKey)
}

func TestEngine_PreKeyBootstrapFlow(t *testing.T) {
	fake := &xorCapability{}
	alice := newUnlockedEngine(t, fake)
	bob := newUnlockedEngine(t, fake)

	require.NoError(t, alice.CreateSession("bob", 1, bundleFor(t, bob)))

	first, err := alice.EncryptMessage("bob", 1, []byte("hello bob"))
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypePreKey, first.Type)

	// Bob has no session yet; the prekey message bootstraps one.
	pt, err := bob.DecryptMessage("alice", 1, first.Body, first.Type)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello bob"), pt)

	// Follow-up messages are plain whispers.
	second, err := alice.EncryptMessage("bob", 1, []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeWhisper, second.Type)

	pt, err = bob.DecryptMessage("alice", 1, second.Body, second.Type)
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), pt)
}

func TestEngine_WhisperWithoutSession(t *testing.T) {
	fake := &xorCapability{}
	alice := newUnlockedEngine(t, fake)
	bob := newUnlockedEngine(t, fake)

	require.NoError(t, alice.CreateSession("bob", 1, bundleFor(t, bob)))
	// Drop the prekey message; the session-less peer only sees a whisper.
	_, err := alice.EncryptMessage("bob", 1, []byte("one"))
	require.NoError(t, err)
	second, err := alice.EncryptMessage("bob", 1, []byte("two"))
	require.NoError(t, err)

	_, err = bob.DecryptMessage("alice", 1, second.Body, second.Type)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestEngine_SessionsAreIsolatedPerPeer(t *testing.T) {
	fake := &xorCapability{}
	alice := newUnlockedEngine(t, fake)
	bob := newUnlockedEngine(t, fake)
	carol := newUnlockedEngine(t, fake)

	require.NoError(t, alice.CreateSession("bob", 1, bundleFor(t, bob)))
	require.NoError(t, alice.CreateSession("carol", 1, bundleFor(t, carol)))

	forBob, err := alice.EncryptMessage("bob", 1, []byte("for bob"))
	require.NoError(t, err)
	forCarol, err := alice.EncryptMessage("carol", 1, []byte("for carol"))
	require.NoError(t, err)

	pt, err := bob.DecryptMessage("alice", 1, forBob.Body, forBob.Type)
	require.NoError(t, err)
	assert.Equal(t, []byte("for bob"), pt)

	// Carol's message is unreadable with Bob's session key material.
	pt, err = bob.DecryptMessage("alice", 1, forCarol.Body, forCarol.Type)
	if err == nil {
		assert.NotEqual(t, []byte("for carol"), pt)
	}
}

func TestEngine_IdentityChangeDetected(t *testing.T) {
	fake := &xorCapability{}
	alice := newUnlockedEngine(t, fake)
	bob := newUnlockedEngine(t, fake)

	require.NoError(t, alice.CreateSession("bob", 1, bundleFor(t, bob)))

	changed := bundleFor(t, bob)
	changed.IdentityKey[0] ^= 0xFF
	err := alice.CreateSession("bob", 1, changed)
	assert.ErrorIs(t, err, domain.ErrIdentityChanged)

	// After the user verifies the new safety number, the remembered key
	// is dropped and the new one can be trusted.
	require.NoError(t, alice.ForgetPeerIdentity("bob"))
	assert.NoError(t, alice.CreateSession("bob", 1, changed))
}

func TestEngine_DecryptFailureLeavesSessionUsable(t *testing.T) {
	fake := &xorCapability{}
	alice := newUnlockedEngine(t, fake)
	bob := newUnlockedEngine(t, fake)

	require.NoError(t, alice.CreateSession("bob", 1, bundleFor(t, bob)))
	first, err := alice.EncryptMessage("bob", 1, []byte("bootstrap"))
	require.NoError(t, err)
	_, err = bob.DecryptMessage("alice", 1, first.Body, first.Type)
	require.NoError(t, err)

	msg, err := alice.EncryptMessage("bob", 1, []byte("payload"))
	require.NoError(t, err)

	fake.failNext = true
	_, err = bob.DecryptMessage("alice", 1, msg.Body, msg.Type)
	require.ErrorIs(t, err, domain.ErrDecryptionFailed)

	// The same message decrypts once the transient failure clears.
	pt, err := bob.DecryptMessage("alice", 1, msg.Body, msg.Type)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), pt)
}

func TestEngine_MalformedBodyFailsDecryption(t *testing.T) {
	e := newUnlockedEngine(t, &xorCapability{})
	_, err := e.DecryptMessage("bob", 1, []byte("not json"), domain.MessageTypeWhisper)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestEngine_GeneratePreKeysMonotonicIDs(t *testing.T) {
	store := keystore.NewMemory()
	e := newEngine(t, store, &xorCapability{})
	require.NoError(t, e.SetupEncryption(goodPIN))

	batch1, err := e.GeneratePreKeys(5)
	require.NoError(t, err)
	require.Len(t, batch1, 5)
	assert.Equal(t, uint32(1), batch1[0].ID)
	assert.Equal(t, uint32(5), batch1[4].ID)

	// IDs keep increasing across a restart because the identity persists.
	restarted := newEngine(t, store, &xorCapability{})
	ok, err := restarted.UnlockWithPIN(goodPIN)
	require.NoError(t, err)
	require.True(t, ok)

	batch2, err := restarted.GeneratePreKeys(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), batch2[0].ID)

	keys, err := restarted.GenerateRegistrationKeys()
	require.NoError(t, err)
	assert.Len(t, keys.OneTimePreKeys, 8)
}

func TestEngine_ClearWipesEverything(t *testing.T) {
	store := keystore.NewMemory()
	e := newEngine(t, store, &xorCapability{})
	require.NoError(t, e.SetupEncryption(goodPIN))

	require.NoError(t, e.Clear())

	assert.False(t, e.Unlocked())
	assert.ErrorIs(t, e.SetupEncryption(goodPIN), domain.ErrNotInitialized)

	for _, slot := range []domain.Slot{
		domain.SlotMasterKeySalt, domain.SlotIdentityKey,
		domain.SlotIdentityIV, domain.SlotRegistration, domain.SlotDeviceID,
	} {
		exists, err := store.Exists(slot)
		require.NoError(t, err)
		assert.False(t, exists, "slot %s should be wiped", slot)
	}
}
