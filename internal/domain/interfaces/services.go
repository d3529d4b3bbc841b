package interfaces

import (
	"context"

	domaintypes "courier/internal/domain/types"
)

// Engine owns identity, lock state, and pairwise sessions for one local
// installation. All operations serialize: one completes before the next
// begins, so ratchet state never races.
type Engine interface {
	Initialize(ctx context.Context) error
	SetupEncryption(pin string) error
	UnlockWithPIN(pin string) (bool, error)
	Lock()

	GenerateRegistrationKeys() (domaintypes.RegistrationKeys, error)
	GeneratePreKeys(count int) ([]domaintypes.OneTimePreKeyPair, error)

	CreateSession(
		peer domaintypes.UserID,
		device domaintypes.DeviceID,
		bundle domaintypes.PreKeyBundle,
	) error
	EncryptMessage(
		peer domaintypes.UserID,
		device domaintypes.DeviceID,
		plaintext []byte,
	) (domaintypes.EncryptedMessage, error)
	DecryptMessage(
		peer domaintypes.UserID,
		device domaintypes.DeviceID,
		body []byte,
		messageType domaintypes.MessageType,
	) ([]byte, error)

	Clear() error
}

// Resolver computes the fan-out partition for a group delivery request.
type Resolver interface {
	Resolve(ctx context.Context, group domaintypes.GroupID) (domaintypes.FanOutResult, error)
}
