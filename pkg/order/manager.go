package order

import (
	"time"

	"github.com/pkg/errors"
)

// Manager provides high-level operations for orders
type Manager struct {
	storage *Storage
	now     func() time.Time
}

// NewManager creates a new order manager
func NewManager(storagePath string) (*Manager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage")
	}

	return &Manager{
		storage: storage,
		now:     time.Now,
	}, nil
}

// Record validates and stores a new order
func (m *Manager) Record(order *Order) error {
	now := m.now().UTC()
	order.Created = now
	order.Updated = now
	if order.Status == "" {
		order.Status = StatusPending
	}

	if err := order.Validate(); err != nil {
		return err
	}
	return m.storage.Create(order)
}

// SetStatus moves an order to status, recording message for failures
func (m *Manager) SetStatus(order *Order, status Status, message string) error {
	order.Status = status
	order.ErrorMessage = message
	order.Updated = m.now().UTC()
	return m.storage.Update(order)
}

// Get retrieves an order by ID
func (m *Manager) Get(id string) (*Order, error) {
	return m.storage.Get(id)
}

// History returns the orders of userID, newest first
func (m *Manager) History(userID string) []*Order {
	return m.storage.ListByUser(userID)
}

// All returns every order, newest first
func (m *Manager) All() []*Order {
	return m.storage.List()
}

// StoragePath returns where orders are kept
func (m *Manager) StoragePath() string {
	return m.storage.GetFilePath()
}
