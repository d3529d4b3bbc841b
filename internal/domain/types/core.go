package types

// UserID identifies a registered user across the cluster.
type UserID string

// String returns the string form of the user ID.
func (u UserID) String() string { return string(u) }

// DeviceID identifies one installation belonging to a user. Device IDs
// start at 1; a user with N devices has N independent sessions.
type DeviceID uint32

// ServerID names a delivery-node instance that holds live sockets.
type ServerID string

// String returns the string form of the server ID.
func (s ServerID) String() string { return string(s) }

// GroupID identifies a conversation group. The delivery surface expects
// UUID-formatted group IDs but the core treats them as opaque.
type GroupID string

// String returns the string form of the group ID.
func (g GroupID) String() string { return string(g) }

// SessionKey addresses one pairwise session: one per remote device, not
// per conversation.
type SessionKey struct {
	UserID   UserID
	DeviceID DeviceID
}
