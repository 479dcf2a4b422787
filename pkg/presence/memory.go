package presence

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store backed by maps and a read/write mutex.
// Suitable for development, testing, and single-node deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uint64][]Session
	statuses map[uint64]Status
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uint64][]Session),
		statuses: make(map[uint64]Status),
	}
}

func (m *MemoryStore) InsertSession(_ context.Context, userID uint64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = append(m.sessions[userID], s)
	return nil
}

func (m *MemoryStore) RemoveSession(_ context.Context, userID uint64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sessions[userID]
	for i, s := range list {
		if s.SessionID == sessionID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.sessions, userID)
		return nil
	}
	m.sessions[userID] = list
	return nil
}

func (m *MemoryStore) FirstSession(_ context.Context, userID uint64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.sessions[userID]
	if len(list) == 0 {
		return nil, nil
	}
	s := list[0]
	return &s, nil
}

func (m *MemoryStore) AnySession(_ context.Context, userID uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions[userID]) > 0, nil
}

func (m *MemoryStore) Devices(_ context.Context, userID uint64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, s := range m.sessions[userID] {
		if _, dup := seen[s.Device]; dup {
			continue
		}
		seen[s.Device] = struct{}{}
		out = append(out, s.Device)
	}
	return out, nil
}

func (m *MemoryStore) SetStatus(_ context.Context, userID uint64, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == StatusOffline {
		delete(m.statuses, userID)
		return nil
	}
	m.statuses[userID] = status
	return nil
}

func (m *MemoryStore) GetStatus(_ context.Context, userID uint64) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.statuses[userID]; ok {
		return s, nil
	}
	return StatusOffline, nil
}

func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[uint64][]Session)
	m.statuses = make(map[uint64]Status)
	return nil
}
