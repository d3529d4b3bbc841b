package types

import "time"

// PresenceEntry is one (user, server) connection row in the registry.
// A user may hold several concurrent connections across servers.
type PresenceEntry struct {
	UserID      UserID    `json:"user_id"`
	ServerID    ServerID  `json:"server_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// PresenceStatus is the answer to a single presence lookup.
type PresenceStatus struct {
	UserID   UserID    `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}
