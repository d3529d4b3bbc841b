package membership

import (
	"context"
	"sync"

	"courier/internal/domain"
)

// Memory is an in-process membership store.
type Memory struct {
	mu     sync.RWMutex
	groups map[domain.GroupID][]domain.UserID
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{groups: make(map[domain.GroupID][]domain.UserID)}
}

// SetGroup replaces the member list for a group.
func (m *Memory) SetGroup(group domain.GroupID, members []domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group] = append([]domain.UserID(nil), members...)
}

// Members returns a copy of the group's member list; empty for unknown
// groups.
func (m *Memory) Members(_ context.Context, group domain.GroupID) ([]domain.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.UserID(nil), m.groups[group]...), nil
}

// Compile-time assertion that Memory implements domain.MembershipStore.
var _ domain.MembershipStore = (*Memory)(nil)
