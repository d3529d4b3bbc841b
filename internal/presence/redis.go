package presence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"courier/internal/domain"
)

// DefaultTTL bounds how long presence survives without a heartbeat.
const DefaultTTL = 2 * time.Minute

// Redis is the production registry. Layout per user:
//
//	presence:{userID}    -> "online", expiring
//	connections:{userID} -> hash connectionID => serverID, expiring
//	lastseen:{userID}    -> RFC3339, written when the last connection drops
type Redis struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedis returns a registry over the given client. A non-positive ttl
// falls back to DefaultTTL.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func presenceKey(user domain.UserID) string    { return "presence:" + user.String() }
func connectionsKey(user domain.UserID) string { return "connections:" + user.String() }
func lastSeenKey(user domain.UserID) string    { return "lastseen:" + user.String() }

// SetOnline records one connection for the user on the given server and
// refreshes both TTLs. Safe to repeat for the same connection.
func (r *Redis) SetOnline(ctx context.Context, user domain.UserID, server domain.ServerID, connectionID string) error {
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, connectionsKey(user), connectionID, server.String())
	pipe.Expire(ctx, connectionsKey(user), r.ttl)
	pipe.Set(ctx, presenceKey(user), "online", r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: set online: %v", domain.ErrRegistryUnavailable, err)
	}
	return nil
}

// SetOffline drops one connection. When it was the last one the presence
// key is removed and the last-seen timestamp recorded.
func (r *Redis) SetOffline(ctx context.Context, user domain.UserID, connectionID string) error {
	if err := r.rdb.HDel(ctx, connectionsKey(user), connectionID).Err(); err != nil {
		return fmt.Errorf("%w: set offline: %v", domain.ErrRegistryUnavailable, err)
	}
	remaining, err := r.rdb.HLen(ctx, connectionsKey(user)).Result()
	if err != nil {
		return fmt.Errorf("%w: set offline: %v", domain.ErrRegistryUnavailable, err)
	}
	if remaining > 0 {
		return nil
	}

	pipe := r.rdb.Pipeline()
	pipe.Del(ctx, presenceKey(user), connectionsKey(user))
	pipe.Set(ctx, lastSeenKey(user), time.Now().UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: set offline: %v", domain.ErrRegistryUnavailable, err)
	}
	return nil
}

// Refresh extends both TTLs on a heartbeat. A refresh for a user with no
// presence is a no-op rather than a resurrection.
func (r *Redis) Refresh(ctx context.Context, user domain.UserID) error {
	pipe := r.rdb.Pipeline()
	pipe.Expire(ctx, presenceKey(user), r.ttl)
	pipe.Expire(ctx, connectionsKey(user), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: refresh: %v", domain.ErrRegistryUnavailable, err)
	}
	return nil
}

// IsOnline reports whether the user's presence key is live.
func (r *Redis) IsOnline(ctx context.Context, user domain.UserID) (bool, error) {
	_, err := r.rdb.Get(ctx, presenceKey(user)).Result()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: is online: %v", domain.ErrRegistryUnavailable, err)
	}
}

// Status reports online state plus last-seen. A user never seen before
// comes back offline with a zero LastSeen.
func (r *Redis) Status(ctx context.Context, user domain.UserID) (domain.PresenceStatus, error) {
	status := domain.PresenceStatus{UserID: user}

	online, err := r.IsOnline(ctx, user)
	if err != nil {
		return status, err
	}
	status.IsOnline = online
	if online {
		return status, nil
	}

	raw, err := r.rdb.Get(ctx, lastSeenKey(user)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return status, nil
	case err != nil:
		return status, fmt.Errorf("%w: last seen: %v", domain.ErrRegistryUnavailable, err)
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		status.LastSeen = ts
	}
	return status, nil
}

// ConnectionsFor returns the deduplicated, sorted set of servers holding
// live connections for the user. An offline user yields an empty slice.
func (r *Redis) ConnectionsFor(ctx context.Context, user domain.UserID) ([]domain.ServerID, error) {
	conns, err := r.rdb.HGetAll(ctx, connectionsKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: connections: %v", domain.ErrRegistryUnavailable, err)
	}
	seen := make(map[string]struct{}, len(conns))
	servers := make([]domain.ServerID, 0, len(conns))
	for _, server := range conns {
		if _, dup := seen[server]; dup {
			continue
		}
		seen[server] = struct{}{}
		servers = append(servers, domain.ServerID(server))
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i] < servers[j] })
	return servers, nil
}

// Compile-time assertion that Redis implements domain.Registry.
var _ domain.Registry = (*Redis)(nil)
