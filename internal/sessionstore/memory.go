package sessionstore

import (
	"context"
	"sync"

	"storefront-service/internal/models"
)

// Memory is an in-process store used in tests and as a degraded fallback
// when Redis is unreachable at startup. Carts then survive only as long as
// the process.
type Memory struct {
	mu       sync.Mutex
	sessions map[string][]byte
	products []models.Product
	cached   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]byte)}
}

// Get retrieves a session value. Absent keys yield (nil, nil).
func (m *Memory) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, ok := m.sessions[sessionKey(sessionID, key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Set writes a session value.
func (m *Memory) Set(_ context.Context, sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.sessions[sessionKey(sessionID, key)] = stored
	return nil
}

// Delete removes a session value.
func (m *Memory) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionKey(sessionID, key))
	return nil
}

// GetProducts returns the cached product list.
func (m *Memory) GetProducts(_ context.Context) ([]models.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cached {
		return nil, false, nil
	}
	out := make([]models.Product, len(m.products))
	copy(out, m.products)
	return out, true, nil
}

// SetProducts replaces the cached product list.
func (m *Memory) SetProducts(_ context.Context, products []models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = make([]models.Product, len(products))
	copy(m.products, products)
	m.cached = true
	return nil
}

// InvalidateProducts drops the cached product list.
func (m *Memory) InvalidateProducts(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = nil
	m.cached = false
	return nil
}
