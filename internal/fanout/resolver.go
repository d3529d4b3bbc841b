package fanout

import (
	"context"
	"sync"

	"courier/internal/domain"
)

// Resolver partitions a group's members by presence. Presence lookups run
// concurrently but aggregation follows membership order, so two resolves
// against the same state produce the same result.
type Resolver struct {
	members  domain.MembershipStore
	registry domain.Registry
}

// NewResolver returns a resolver over the given membership and presence
// backends.
func NewResolver(members domain.MembershipStore, registry domain.Registry) *Resolver {
	return &Resolver{members: members, registry: registry}
}

// lookup is one member's presence answer. failed means the registry could
// not be consulted; the member is then treated as offline but counted in
// UnknownMembers.
type lookup struct {
	servers []domain.ServerID
	failed  bool
}

// Resolve computes the fan-out partition for one group. A membership
// failure fails the whole request; individual presence failures degrade
// that member to offline.
func (r *Resolver) Resolve(ctx context.Context, group domain.GroupID) (domain.FanOutResult, error) {
	members, err := r.members.Members(ctx, group)
	if err != nil {
		return domain.FanOutResult{}, err
	}

	result := domain.FanOutResult{
		GroupID:        group,
		TotalMembers:   len(members),
		OnlineMembers:  []domain.MemberStatus{},
		OfflineMembers: []domain.MemberStatus{},
		ServerGroups:   make(map[domain.ServerID][]domain.UserID),
	}
	if len(members) == 0 {
		return result, nil
	}

	lookups := make([]lookup, len(members))
	var wg sync.WaitGroup
	for i, member := range members {
		wg.Add(1)
		go func(i int, member domain.UserID) {
			defer wg.Done()
			servers, err := r.registry.ConnectionsFor(ctx, member)
			if err != nil {
				lookups[i] = lookup{failed: true}
				return
			}
			lookups[i] = lookup{servers: servers}
		}(i, member)
	}
	wg.Wait()

	for i, member := range members {
		lk := lookups[i]
		if lk.failed {
			result.UnknownMembers++
		}
		if len(lk.servers) == 0 {
			result.OfflineMembers = append(result.OfflineMembers, domain.MemberStatus{
				UserID: member,
			})
			continue
		}
		// ConnectionsFor returns sorted servers; the first is the
		// representative for a multi-device member.
		result.OnlineMembers = append(result.OnlineMembers, domain.MemberStatus{
			UserID:   member,
			IsOnline: true,
			ServerID: lk.servers[0],
		})
		for _, server := range lk.servers {
			result.ServerGroups[server] = appendUnique(result.ServerGroups[server], member)
		}
	}
	return result, nil
}

func appendUnique(users []domain.UserID, user domain.UserID) []domain.UserID {
	for _, u := range users {
		if u == user {
			return users
		}
	}
	return append(users, user)
}

// Compile-time assertion that Resolver implements domain.Resolver.
var _ domain.Resolver = (*Resolver)(nil)
