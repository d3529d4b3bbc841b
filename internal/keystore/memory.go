package keystore

import (
	"sync"

	"courier/internal/domain"
)

// Memory is a map-backed key store for tests and throwaway runs.
type Memory struct {
	mu    sync.Mutex
	slots map[domain.Slot][]byte
}

// NewMemory returns an empty in-memory key store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[domain.Slot][]byte)}
}

func (s *Memory) Save(slot domain.Slot, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = append([]byte(nil), value...)
	return nil
}

func (s *Memory) Load(slot domain.Slot) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.slots[slot]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Memory) Exists(slot domain.Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[slot]
	return ok, nil
}

func (s *Memory) Delete(slot domain.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, slot)
	return nil
}

func (s *Memory) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[domain.Slot][]byte)
	return nil
}

// Compile-time assertion that Memory implements domain.KeyStore.
var _ domain.KeyStore = (*Memory)(nil)
