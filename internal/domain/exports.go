package domain

import (
	interfaces "courier/internal/domain/interfaces"
	types "courier/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID           = types.UserID
	DeviceID         = types.DeviceID
	ServerID         = types.ServerID
	GroupID          = types.GroupID
	SessionKey       = types.SessionKey
	Identity         = types.Identity
	SignedPreKeyPair = types.SignedPreKeyPair
	OneTimePreKeyPair = types.OneTimePreKeyPair
	PreKeyBundle     = types.PreKeyBundle
	PreKeyMessage    = types.PreKeyMessage
	RegistrationKeys = types.RegistrationKeys
	RatchetHeader    = types.RatchetHeader
	RatchetState     = types.RatchetState
	Session          = types.Session
	MessageType      = types.MessageType
	WireMessage      = types.WireMessage
	EncryptedMessage = types.EncryptedMessage
	Envelope         = types.Envelope
	PresenceEntry    = types.PresenceEntry
	PresenceStatus   = types.PresenceStatus
	MemberStatus     = types.MemberStatus
	FanOutResult     = types.FanOutResult
	X25519Public     = types.X25519Public
	X25519Private    = types.X25519Private
	Ed25519Public    = types.Ed25519Public
	Ed25519Private   = types.Ed25519Private
)

// Message type tags re-exported for callers of the engine.
const (
	MessageTypePreKey  = types.MessageTypePreKey
	MessageTypeWhisper = types.MessageTypeWhisper
)

// Interface aliases expose domain contracts from the interfaces subpackage.
type (
	Capability      = interfaces.Capability
	Engine          = interfaces.Engine
	KeyStore        = interfaces.KeyStore
	Slot            = interfaces.Slot
	MembershipStore = interfaces.MembershipStore
	SessionCache    = interfaces.SessionCache
	Registry        = interfaces.Registry
	Resolver        = interfaces.Resolver
)

// Key store slots re-exported alongside the KeyStore contract.
const (
	SlotMasterKeySalt = interfaces.SlotMasterKeySalt
	SlotIdentityKey   = interfaces.SlotIdentityKey
	SlotIdentityIV    = interfaces.SlotIdentityIV
	SlotRegistration  = interfaces.SlotRegistration
	SlotDeviceID      = interfaces.SlotDeviceID
)
