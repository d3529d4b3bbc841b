package interfaces

import (
	"context"

	domaintypes "courier/internal/domain/types"
)

// Registry is the shared presence/connection state every delivery node
// reads and writes. Backed by an external store visible across instances;
// entries carry a TTL so crashed nodes self-expire instead of leaking
// "online forever" state.
type Registry interface {
	// SetOnline records one connection for the user on the given server.
	// Idempotent: repeating it refreshes the TTL without duplicating.
	SetOnline(
		ctx context.Context,
		user domaintypes.UserID,
		server domaintypes.ServerID,
		connectionID string,
	) error

	// SetOffline drops the specific connection; when the last connection
	// goes, the user is fully offline.
	SetOffline(ctx context.Context, user domaintypes.UserID, connectionID string) error

	// Refresh extends the TTLs on the user's presence, for heartbeats.
	Refresh(ctx context.Context, user domaintypes.UserID) error

	IsOnline(ctx context.Context, user domaintypes.UserID) (bool, error)

	// Status reports online state plus the last-seen timestamp recorded
	// when the user's final connection dropped.
	Status(ctx context.Context, user domaintypes.UserID) (domaintypes.PresenceStatus, error)

	// ConnectionsFor returns the deduplicated set of servers holding live
	// connections for the user.
	ConnectionsFor(ctx context.Context, user domaintypes.UserID) ([]domaintypes.ServerID, error)
}
