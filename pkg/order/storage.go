package order

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

const (
	DefaultStorageFileName = ".fiat-ramp-orders.json"
)

// ErrNotFound is returned for unknown order IDs
var ErrNotFound = errors.New("order not found")

// Storage handles persistence of orders
type Storage struct {
	filePath string
	mu       sync.RWMutex
	orders   map[string]*Order
}

// OrderStorage represents the JSON structure for storage
type OrderStorage struct {
	Orders map[string]*Order `json:"orders"`
}

// NewStorage creates a new storage instance
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		// Default to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get home directory")
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath: filePath,
		orders:   make(map[string]*Order),
	}

	// A missing file is created on first save
	if err := storage.load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "failed to load orders")
	}

	return storage, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var orderStorage OrderStorage
	if err := json.Unmarshal(data, &orderStorage); err != nil {
		return errors.Wrap(err, "failed to unmarshal orders")
	}

	s.orders = orderStorage.Orders
	if s.orders == nil {
		s.orders = make(map[string]*Order)
	}

	return nil
}

// saveLocked writes all orders; the caller holds mu
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(OrderStorage{Orders: s.orders}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal orders")
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write orders")
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return errors.Wrap(err, "failed to rename temp file")
	}

	return nil
}

// Create adds a new order to storage
func (s *Storage) Create(order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return errors.Errorf("order '%s' already exists", order.ID)
	}

	stored := *order
	s.orders[order.ID] = &stored
	if err := s.saveLocked(); err != nil {
		delete(s.orders, order.ID)
		return err
	}
	return nil
}

// Get retrieves an order by ID
func (s *Storage) Get(id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}

	copied := *order
	return &copied, nil
}

// Update replaces an existing order
func (s *Storage) Update(order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, exists := s.orders[order.ID]
	if !exists {
		return errors.Wrapf(ErrNotFound, "%s", order.ID)
	}

	stored := *order
	s.orders[order.ID] = &stored
	if err := s.saveLocked(); err != nil {
		s.orders[order.ID] = previous
		return err
	}
	return nil
}

// List returns all orders, newest first
func (s *Storage) List() []*Order {
	return s.filter(func(*Order) bool { return true })
}

// ListByUser returns the orders of one user, newest first
func (s *Storage) ListByUser(userID string) []*Order {
	return s.filter(func(o *Order) bool { return o.UserID == userID })
}

func (s *Storage) filter(keep func(*Order) bool) []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*Order, 0, len(s.orders))
	for _, order := range s.orders {
		if keep(order) {
			copied := *order
			orders = append(orders, &copied)
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Created.Equal(orders[j].Created) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].Created.After(orders[j].Created)
	})
	return orders
}

// Count returns the total number of orders
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}

// GetFilePath returns the storage file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}
