package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"himstay/internal/application/models"
	"himstay/pkg/platform/sentinel"
)

// MemoryStore is the in-process ApplicationStore used in development and
// tests. It mirrors the postgres store's invariants: one live application per
// owner, one certificate per application.
type MemoryStore struct {
	mu           sync.RWMutex
	byID         map[string]*models.Application
	certificates map[string]*models.Certificate // keyed by application ID
	sequence     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:         make(map[string]*models.Application),
		certificates: make(map[string]*models.Certificate),
	}
}

// Create assigns the ID and the sequential human-readable number, then
// persists. Returns sentinel.ErrConflict when the owner already has an
// application that is neither approved nor rejected.
func (s *MemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.OwnerID == app.OwnerID && !existing.Status.IsTerminal() {
			return sentinel.ErrConflict
		}
	}
	s.sequence++
	app.ID = uuid.NewString()
	app.ApplicationNumber = fmt.Sprintf("HS-%d-%06d", time.Now().Year(), s.sequence)
	stored := *app
	s.byID[app.ID] = &stored
	return nil
}

func (s *MemoryStore) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	stored := *app
	s.byID[app.ID] = &stored
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *app
	return &out, nil
}

func (s *MemoryStore) FindByNumber(_ context.Context, number string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, app := range s.byID {
		if app.ApplicationNumber == number {
			out := *app
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// SaveCertificate persists a minted certificate. A second certificate for the
// same application is a conflict; certificates are immutable once issued.
func (s *MemoryStore) SaveCertificate(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.certificates[cert.ApplicationID]; exists {
		return sentinel.ErrConflict
	}
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	stored := *cert
	s.certificates[cert.ApplicationID] = &stored
	return nil
}

func (s *MemoryStore) FindCertificateByApplication(_ context.Context, applicationID string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certificates[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *cert
	return &out, nil
}
