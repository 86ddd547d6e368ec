package store

import (
	"context"
	"sort"
	"sync"

	"himstay/internal/payment/models"
	"himstay/pkg/platform/sentinel"
)

// MemoryStore is the in-process TransactionStore used in development and
// tests. It enforces the same write-time invariants as the postgres store:
// unique appRefNo, and at most one non-terminal transaction per application.
type MemoryStore struct {
	mu       sync.RWMutex
	byRefNo  map[string]*models.Transaction
	sequence int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byRefNo: make(map[string]*models.Transaction)}
}

// Create persists a new attempt. Returns sentinel.ErrConflict when the
// appRefNo already exists or the application still has a live attempt.
func (s *MemoryStore) Create(_ context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRefNo[txn.AppRefNo]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.byRefNo {
		if existing.ApplicationID == txn.ApplicationID && !existing.Status.IsTerminal() {
			return sentinel.ErrConflict
		}
	}
	s.sequence++
	stored := *txn
	s.byRefNo[txn.AppRefNo] = &stored
	return nil
}

// Update replaces the stored row identified by appRefNo.
func (s *MemoryStore) Update(_ context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRefNo[txn.AppRefNo]; !exists {
		return sentinel.ErrNotFound
	}
	stored := *txn
	s.byRefNo[txn.AppRefNo] = &stored
	return nil
}

func (s *MemoryStore) FindByAppRefNo(_ context.Context, appRefNo string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.byRefNo[appRefNo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *txn
	return &out, nil
}

// FindLatestByApplication returns the most recently created attempt for an
// application.
func (s *MemoryStore) FindLatestByApplication(_ context.Context, applicationID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Transaction
	for _, txn := range s.byRefNo {
		if txn.ApplicationID != applicationID {
			continue
		}
		if latest == nil || txn.CreatedAt.After(latest.CreatedAt) {
			latest = txn
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	out := *latest
	return &out, nil
}

// List returns transactions matching the filter, newest first.
func (s *MemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transaction
	for _, txn := range s.byRefNo {
		if filter.ApplicationID != "" && txn.ApplicationID != filter.ApplicationID {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		copied := *txn
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
