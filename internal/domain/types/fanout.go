package types

// MemberStatus is one group member's presence as seen during fan-out.
// ServerID is the representative server for online members.
type MemberStatus struct {
	UserID   UserID   `json:"user_id"`
	IsOnline bool     `json:"is_online"`
	ServerID ServerID `json:"server_id,omitempty"`
}

// FanOutResult partitions a group's members into online and offline and
// buckets the online ones by delivery server, so a caller sends one
// payload per server instead of one per member. Computed fresh per
// request, never stored.
//
// Invariants: every member lands in exactly one of OnlineMembers or
// OfflineMembers, and ServerGroups lists a user at most once per server.
type FanOutResult struct {
	GroupID        GroupID               `json:"group_id"`
	TotalMembers   int                   `json:"total_members"`
	OnlineMembers  []MemberStatus        `json:"online_members"`
	OfflineMembers []MemberStatus        `json:"offline_members"`
	ServerGroups   map[ServerID][]UserID `json:"server_groups"`

	// UnknownMembers counts members degraded to offline because their
	// presence lookup failed, so callers can tell "status unknown" from
	// genuinely offline.
	UnknownMembers int `json:"unknown_members"`
}
