// Package store holds the hospital storage backends. Every backend reports
// sentinel.ErrAlreadyUsed for a second insert of the same account and
// sentinel.ErrNotFound for a missing one.
package store

import (
	"context"
	"sync"

	"scanbo/internal/hospital/models"
	id "scanbo/pkg/domain"
	"scanbo/pkg/platform/sentinel"
	txcontext "scanbo/pkg/platform/tx"
)

// InMemory keeps hospitals in a map. Inserts made inside a journaled
// transaction are removed again if the transaction rolls back.
type InMemory struct {
	mu        sync.RWMutex
	hospitals map[id.AccountID]*models.Hospital
}

func NewInMemory() *InMemory {
	return &InMemory{hospitals: make(map[id.AccountID]*models.Hospital)}
}

func (s *InMemory) Contains(_ context.Context, accountID id.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hospitals[accountID]
	return ok, nil
}

func (s *InMemory) Insert(ctx context.Context, hospital *models.Hospital) error {
	s.mu.Lock()
	if _, ok := s.hospitals[hospital.AccountID]; ok {
		s.mu.Unlock()
		return sentinel.ErrAlreadyUsed
	}
	stored := *hospital
	s.hospitals[hospital.AccountID] = &stored
	s.mu.Unlock()

	txcontext.OnRollback(ctx, func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.hospitals[hospital.AccountID] == &stored {
			delete(s.hospitals, hospital.AccountID)
		}
		return nil
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hospitals[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *h
	return &found, nil
}

// Len reports the number of stored hospitals.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hospitals)
}
