package engine

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"courier/internal/crypto"
	"courier/internal/domain"
	"courier/internal/domain/types"
)

// minPINLength is the shortest PIN accepted by SetupEncryption.
const minPINLength = 6

type state int

const (
	stateUninitialized state = iota
	stateLocked
	stateUnlocked
)

// Engine is the session/key manager. Lifecycle:
//
//	Uninitialized -> Initialized(locked) -> Unlocked <-> Locked
//
// Clear returns it to Uninitialized and wipes persisted material.
//
// PIN attempts are not rate-limited here; throttling belongs to the
// surrounding auth layer.
type Engine struct {
	mu sync.Mutex

	keys       domain.KeyStore
	capability domain.Capability
	sessions   domain.SessionCache

	st              state
	encryptionSetup bool
	registrationID  uint32
	deviceID        domain.DeviceID

	masterKey []byte
	identity  *domain.Identity
}

// New returns an engine over the given key store, crypto capability, and
// session cache. Call Initialize before anything else.
func New(keys domain.KeyStore, capability domain.Capability, sessions domain.SessionCache) *Engine {
	return &Engine{keys: keys, capability: capability, sessions: sessions}
}

// Initialize loads persisted registration and device IDs, creating them on
// first run, and records whether encryption-at-rest has been configured.
// Idempotent; fails only on storage errors, which are fatal to the caller.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if e.st != stateUninitialized {
		return nil
	}

	regID, err := e.loadOrCreateCounter(domain.SlotRegistration, newRegistrationID)
	if err != nil {
		return fmt.Errorf("load registration id: %w", err)
	}
	devID, err := e.loadOrCreateCounter(domain.SlotDeviceID, func() (uint32, error) { return 1, nil })
	if err != nil {
		return fmt.Errorf("load device id: %w", err)
	}
	e.registrationID = regID
	e.deviceID = domain.DeviceID(devID)

	setup, err := e.keys.Exists(domain.SlotMasterKeySalt)
	if err != nil {
		return fmt.Errorf("check encryption setup: %w", err)
	}
	e.encryptionSetup = setup
	e.st = stateLocked
	return nil
}

// SetupEncryption derives a master key from the PIN under a fresh salt,
// generates the identity if absent, and persists everything sealed.
// Leaves the engine unlocked.
func (e *Engine) SetupEncryption(pin string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st == stateUninitialized {
		return domain.ErrNotInitialized
	}
	if len(pin) < minPINLength {
		return domain.ErrPinTooShort
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	key := crypto.DeriveMasterKey(pin, salt)

	if e.identity == nil {
		id, err := e.newIdentity()
		if err != nil {
			return err
		}
		e.identity = id
	}

	if err := e.keys.Save(domain.SlotMasterKeySalt, salt); err != nil {
		return err
	}
	e.masterKey = key
	if err := e.persistIdentity(); err != nil {
		return err
	}
	e.encryptionSetup = true
	e.st = stateUnlocked
	return nil
}

// UnlockWithPIN derives a candidate key from the stored salt and tries to
// open the sealed identity. A wrong PIN returns (false, nil) with no state
// change, so callers can count attempts; infrastructure failures are
// returned as errors.
func (e *Engine) UnlockWithPIN(pin string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st == stateUninitialized {
		return false, domain.ErrNotInitialized
	}
	if !e.encryptionSetup {
		return false, domain.ErrEncryptionNotEnabled
	}

	salt, err := e.keys.Load(domain.SlotMasterKeySalt)
	if err != nil {
		return false, fmt.Errorf("%w: master-key salt: %v", domain.ErrStorageUnavailable, err)
	}
	sealed, err := e.keys.Load(domain.SlotIdentityKey)
	if err != nil {
		return false, fmt.Errorf("%w: sealed identity: %v", domain.ErrStorageUnavailable, err)
	}
	nonce, err := e.keys.Load(domain.SlotIdentityIV)
	if err != nil {
		return false, fmt.Errorf("%w: identity nonce: %v", domain.ErrStorageUnavailable, err)
	}

	candidate := crypto.DeriveMasterKey(pin, salt)
	raw, err := crypto.OpenWithKey(candidate, nonce, sealed)
	if err != nil {
		crypto.Wipe(candidate)
		return false, nil
	}

	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		crypto.Wipe(candidate)
		return false, fmt.Errorf("corrupt identity blob: %w", err)
	}
	crypto.Wipe(raw)

	e.masterKey = candidate
	e.identity = &id
	e.st = stateUnlocked
	return true, nil
}

// Lock wipes the master key and decrypted identity from memory. Cached
// sessions survive a lock/unlock cycle; they are unusable while locked.
func (e *Engine) Lock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st != stateUnlocked {
		return
	}
	crypto.Wipe(e.masterKey)
	e.masterKey = nil
	e.identity = nil
	e.st = stateLocked
}

// GenerateRegistrationKeys returns the public material to upload to the
// directory server, base64-encoded.
func (e *Engine) GenerateRegistrationKeys() (domain.RegistrationKeys, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireUnlocked(); err != nil {
		return domain.RegistrationKeys{}, err
	}
	id := e.identity
	oneTime := make([]string, 0, len(id.OneTimePreKeys))
	for _, pair := range id.OneTimePreKeys {
		oneTime = append(oneTime, crypto.B64(pair.Pub.Slice()))
	}
	return domain.RegistrationKeys{
		PublicIdentityKey:     crypto.B64(id.XPub.Slice()),
		PublicSignedPreKey:    crypto.B64(id.SignedPreKey.Pub.Slice()),
		SignedPreKeySignature: crypto.B64(id.SignedPreKey.Signature),
		OneTimePreKeys:        oneTime,
	}, nil
}

// GeneratePreKeys mints count one-time pre-keys with unique, increasing
// IDs and persists them with the identity. No implicit upper bound; the
// caller enforces a sane batch size.
func (e *Engine) GeneratePreKeys(count int) ([]domain.OneTimePreKeyPair, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireUnlocked(); err != nil {
		return nil, err
	}
	pairs := make([]domain.OneTimePreKeyPair, 0, count)
	for i := 0; i < count; i++ {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, domain.OneTimePreKeyPair{ID: e.identity.NextPreKeyID, Priv: priv, Pub: pub})
		e.identity.NextPreKeyID++
	}
	e.identity.OneTimePreKeys = append(e.identity.OneTimePreKeys, pairs...)
	if err := e.persistIdentity(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// CreateSession validates the bundle's signed pre-key signature, flags a
// changed peer identity key, runs X3DH as initiator, and caches the new
// session (evicting LRU at capacity).
func (e *Engine) CreateSession(peer domain.UserID, device domain.DeviceID, bundle domain.PreKeyBundle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireUnlocked(); err != nil {
		return err
	}
	if !e.capability.ValidateSignature(bundle.SigningKey, bundle.SignedPreKey, bundle.SignedPreKeySignature) {
		return domain.ErrInvalidKey
	}
	if err := e.checkPeerIdentity(peer, bundle.IdentityKey); err != nil {
		return err
	}

	st, preKeyMsg, err := e.capability.InitiateSession(*e.identity, bundle)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSessionCreationFailed, err)
	}
	if err := e.rememberPeerIdentity(peer, bundle.IdentityKey); err != nil {
		return err
	}

	now := time.Now().Unix()
	e.sessions.Put(domain.SessionKey{UserID: peer, DeviceID: device}, &domain.Session{
		PeerUserID:      peer,
		PeerDeviceID:    device,
		PeerIdentityKey: bundle.IdentityKey,
		Ratchet:         st,
		PendingPreKey:   &preKeyMsg,
		CreatedUTC:      now,
		LastUsedUTC:     now,
	})
	return nil
}

// EncryptMessage seals plaintext for one peer device using its cached
// session. The first message of a new session is tagged "prekey" and
// carries the handshake parameters; everything after is "whisper".
func (e *Engine) EncryptMessage(peer domain.UserID, device domain.DeviceID, plaintext []byte) (domain.EncryptedMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireUnlocked(); err != nil {
		return domain.EncryptedMessage{}, err
	}
	key := domain.SessionKey{UserID: peer, DeviceID: device}
	sess, ok := e.sessions.Get(key)
	if !ok {
		return domain.EncryptedMessage{}, domain.ErrNoSession
	}

	header, cipher, err := e.capability.RatchetEncrypt(&sess.Ratchet, plaintext)
	if err != nil {
		return domain.EncryptedMessage{}, fmt.Errorf("%w: %v", domain.ErrEncryptionFailed, err)
	}

	wire := domain.WireMessage{Header: header, Cipher: cipher}
	msgType := domain.MessageTypeWhisper
	if sess.PendingPreKey != nil {
		wire.PreKey = sess.PendingPreKey
		sess.PendingPreKey = nil
		msgType = domain.MessageTypePreKey
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return domain.EncryptedMessage{}, fmt.Errorf("%w: %v", domain.ErrEncryptionFailed, err)
	}
	sess.LastUsedUTC = time.Now().Unix()
	e.sessions.Touch(key)
	return domain.EncryptedMessage{Type: msgType, Body: body}, nil
}

// DecryptMessage opens a ciphertext from one peer device. A prekey-typed
// message with no session establishes the inbound session first; a
// whisper with no session cannot be recovered here and fails NoSession.
// A failed open never advances ratchet state.
func (e *Engine) DecryptMessage(peer domain.UserID, device domain.DeviceID, body []byte, messageType domain.MessageType) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireUnlocked(); err != nil {
		return nil, err
	}

	var wire domain.WireMessage
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: malformed wire message: %v", domain.ErrDecryptionFailed, err)
	}

	key := domain.SessionKey{UserID: peer, DeviceID: device}
	sess, ok := e.sessions.Get(key)
	if !ok {
		if messageType != domain.MessageTypePreKey || wire.PreKey == nil {
			return nil, domain.ErrNoSession
		}
		created, err := e.acceptInbound(peer, device, wire)
		if err != nil {
			return nil, err
		}
		sess = created
	}

	plaintext, err := e.capability.RatchetDecrypt(&sess.Ratchet, wire.Header, wire.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err)
	}
	sess.LastUsedUTC = time.Now().Unix()
	e.sessions.Touch(key)
	return plaintext, nil
}

// RemoveSession drops the cached session for one peer device, forcing
// re-establishment. Used after an identity-key change is confirmed.
func (e *Engine) RemoveSession(peer domain.UserID, device domain.DeviceID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions.Remove(domain.SessionKey{UserID: peer, DeviceID: device})
}

// ForgetPeerIdentity discards the remembered identity key for a peer so a
// new one can be trusted after the user verified the safety number.
func (e *Engine) ForgetPeerIdentity(peer domain.UserID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireUnlocked(); err != nil {
		return err
	}
	if e.identity.PeerIdentityKeys == nil {
		return nil
	}
	delete(e.identity.PeerIdentityKeys, peer.String())
	return e.persistIdentity()
}

// Clear wipes in-memory sessions and the master key, deletes all
// persisted key material, and resets to Uninitialized. Irreversible.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sessions.Clear()
	crypto.Wipe(e.masterKey)
	e.masterKey = nil
	e.identity = nil
	e.registrationID = 0
	e.deviceID = 0
	e.encryptionSetup = false
	e.st = stateUninitialized
	return e.keys.DeleteAll()
}

// RegistrationID reports the persisted registration ID (zero before
// Initialize).
func (e *Engine) RegistrationID() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registrationID
}

// DeviceID reports the persisted device ID (zero before Initialize).
func (e *Engine) DeviceID() domain.DeviceID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deviceID
}

// EncryptionSetup reports whether a PIN-derived master key has been
// configured.
func (e *Engine) EncryptionSetup() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encryptionSetup
}

// Unlocked reports whether key material is currently usable.
func (e *Engine) Unlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st == stateUnlocked
}

// IdentityFingerprint returns a short fingerprint of the local identity
// public key for display.
func (e *Engine) IdentityFingerprint() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireUnlocked(); err != nil {
		return "", err
	}
	return crypto.Fingerprint(e.identity.XPub.Slice()), nil
}

// --- internals (callers hold e.mu) ---

func (e *Engine) requireUnlocked() error {
	switch e.st {
	case stateUninitialized:
		return domain.ErrNotInitialized
	case stateLocked:
		return domain.ErrKeysLocked
	}
	return nil
}

// acceptInbound runs the X3DH responder flow for a prekey message and
// caches the resulting session. The consumed one-time pre-key is removed
// from the identity.
func (e *Engine) acceptInbound(peer domain.UserID, device domain.DeviceID, wire domain.WireMessage) (*domain.Session, error) {
	msg := *wire.PreKey
	if len(wire.Header.DiffieHellmanPublicKey) != 32 {
		return nil, fmt.Errorf("%w: missing sender ratchet key", domain.ErrDecryptionFailed)
	}
	if err := e.checkPeerIdentity(peer, msg.InitiatorIdentityKey); err != nil {
		return nil, err
	}

	var senderPub domain.X25519Public
	copy(senderPub[:], wire.Header.DiffieHellmanPublicKey)

	st, err := e.capability.AcceptSession(*e.identity, msg, senderPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionCreationFailed, err)
	}

	if msg.OneTimePreKeyID != nil {
		e.consumeOneTimePreKey(*msg.OneTimePreKeyID)
	}
	if err := e.rememberPeerIdentity(peer, msg.InitiatorIdentityKey); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	sess := &domain.Session{
		PeerUserID:      peer,
		PeerDeviceID:    device,
		PeerIdentityKey: msg.InitiatorIdentityKey,
		Ratchet:         st,
		CreatedUTC:      now,
		LastUsedUTC:     now,
	}
	e.sessions.Put(domain.SessionKey{UserID: peer, DeviceID: device}, sess)
	return sess, nil
}

// checkPeerIdentity flags a changed identity key for a known peer before
// the new key is trusted.
func (e *Engine) checkPeerIdentity(peer domain.UserID, key domain.X25519Public) error {
	known, ok := e.identity.PeerIdentityKeys[peer.String()]
	if ok && known != key {
		return domain.ErrIdentityChanged
	}
	return nil
}

func (e *Engine) rememberPeerIdentity(peer domain.UserID, key domain.X25519Public) error {
	if e.identity.PeerIdentityKeys == nil {
		e.identity.PeerIdentityKeys = make(map[string]domain.X25519Public)
	}
	if known, ok := e.identity.PeerIdentityKeys[peer.String()]; ok && known == key {
		return nil
	}
	e.identity.PeerIdentityKeys[peer.String()] = key
	return e.persistIdentity()
}

func (e *Engine) consumeOneTimePreKey(id uint32) {
	keys := e.identity.OneTimePreKeys
	for i, pair := range keys {
		if pair.ID == id {
			e.identity.OneTimePreKeys = append(keys[:i], keys[i+1:]...)
			return
		}
	}
}

// persistIdentity seals the identity under the master key and writes the
// ciphertext and nonce to their slots.
func (e *Engine) persistIdentity() error {
	raw, err := json.Marshal(e.identity)
	if err != nil {
		return err
	}
	nonce, sealed, err := crypto.SealWithKey(e.masterKey, raw)
	crypto.Wipe(raw)
	if err != nil {
		return err
	}
	if err := e.keys.Save(domain.SlotIdentityKey, sealed); err != nil {
		return err
	}
	return e.keys.Save(domain.SlotIdentityIV, nonce)
}

// newIdentity generates fresh identity key material: X25519 pair for
// agreement, Ed25519 pair for signing, and the first signed pre-key.
func (e *Engine) newIdentity() (*domain.Identity, error) {
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	return &domain.Identity{
		RegistrationID: e.registrationID,
		DeviceID:       e.deviceID,
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
		NextPreKeyID:     1,
		PeerIdentityKeys: make(map[string]domain.X25519Public),
	}, nil
}

// loadOrCreateCounter reads a numeric slot, generating and persisting it
// on first run.
func (e *Engine) loadOrCreateCounter(slot domain.Slot, create func() (uint32, error)) (uint32, error) {
	raw, err := e.keys.Load(slot)
	switch {
	case err == nil:
		v, err := strconv.ParseUint(string(raw), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("corrupt %s slot: %w", slot, err)
		}
		return uint32(v), nil
	case errors.Is(err, domain.ErrSlotNotFound):
		v, err := create()
		if err != nil {
			return 0, err
		}
		if err := e.keys.Save(slot, []byte(strconv.FormatUint(uint64(v), 10))); err != nil {
			return 0, err
		}
		return v, nil
	default:
		return 0, err
	}
}

// newRegistrationID picks a random ID in [1, MaxRegistrationID].
func newRegistrationID() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:])%types.MaxRegistrationID + 1, nil
}

// Compile-time assertion that Engine implements domain.Engine.
var _ domain.Engine = (*Engine)(nil)
