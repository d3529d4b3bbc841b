package interfaces

import (
	"context"

	domaintypes "courier/internal/domain/types"
)

// Slot names a logical storage slot in the key store.
type Slot string

// Slots the engine persists key material under.
const (
	SlotMasterKeySalt Slot = "master-key-salt"
	SlotIdentityKey   Slot = "encrypted-identity-key"
	SlotIdentityIV    Slot = "identity-key-iv"
	SlotRegistration  Slot = "registration-id"
	SlotDeviceID      Slot = "device-id"
)

// KeyStore is durable, opaque secret storage keyed by slot name. Failure
// to load a slot that should exist is a fatal local error, not retried.
type KeyStore interface {
	Save(slot Slot, value []byte) error
	Load(slot Slot) ([]byte, error)
	Exists(slot Slot) (bool, error)
	Delete(slot Slot) error
	DeleteAll() error
}

// MembershipStore resolves a group to its member list. Membership storage
// itself is an external collaborator.
type MembershipStore interface {
	Members(ctx context.Context, group domaintypes.GroupID) ([]domaintypes.UserID, error)
}

// SessionCache is a bounded LRU map from session key to session state.
// Put evicts the least-recently-used entry when full and the key is new;
// every successful encrypt/decrypt counts as a use.
type SessionCache interface {
	Get(key domaintypes.SessionKey) (*domaintypes.Session, bool)
	Put(key domaintypes.SessionKey, session *domaintypes.Session)
	Touch(key domaintypes.SessionKey)
	Remove(key domaintypes.SessionKey)
	Clear()
	Len() int
}
