package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"antidelete-bot/internal/database/models"
	"antidelete-bot/internal/policy"
)

// MemoryStore is a process-local Store. Nothing survives a restart.
type MemoryStore struct {
	*policy.MemoryRepository

	mu          sync.Mutex
	connections map[string]models.BusinessConnection
	actions     []models.UserAction
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		MemoryRepository: policy.NewMemoryRepository(),
		connections:      make(map[string]models.BusinessConnection),
		now:              time.Now,
	}
}

// LogUserAction records an operator action.
func (m *MemoryStore) LogUserAction(_ context.Context, userID int64, action string, details interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, models.UserAction{UserID: userID, Action: action, Details: details, Time: m.now()})
	return nil
}

// Actions returns a copy of the recorded actions.
func (m *MemoryStore) Actions() []models.UserAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UserAction(nil), m.actions...)
}

// SaveConnection upserts a business connection, keeping its first-seen time.
func (m *MemoryStore) SaveConnection(_ context.Context, conn models.BusinessConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if prev, ok := m.connections[conn.ConnectionID]; ok {
		conn.FirstSeen = prev.FirstSeen
	} else {
		conn.FirstSeen = now
	}
	conn.LastSeen = now
	m.connections[conn.ConnectionID] = conn
	return nil
}

// ConnectionByOwner returns the most recently seen enabled connection of ownerID.
func (m *MemoryStore) ConnectionByOwner(_ context.Context, ownerID int64) (*models.BusinessConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.BusinessConnection
	for _, c := range m.connections {
		if c.OwnerID != ownerID || !c.Enabled {
			continue
		}
		if best == nil || c.LastSeen.After(best.LastSeen) {
			c := c
			best = &c
		}
	}
	if best == nil {
		return nil, ErrConnectionNotFound
	}
	return best, nil
}

// EnabledConnections lists every enabled connection ordered by id.
func (m *MemoryStore) EnabledConnections(context.Context) ([]models.BusinessConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BusinessConnection
	for _, c := range m.connections {
		if c.Enabled {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close(context.Context) error { return nil }
