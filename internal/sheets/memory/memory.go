// Package memory is an in-process Ledger used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"budgy/internal/core"
	ports "budgy/internal/sheets"
)

type Row struct {
	UserID      int64
	Transaction core.Transaction
}

type Store struct {
	mu   sync.Mutex
	rows map[int64]Row
}

var _ ports.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int64]Row)}
}

func (s *Store) Upsert(_ context.Context, userID int64, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ID] = Row{UserID: userID, Transaction: t}
	return nil
}

func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// Get returns the stored row for a transaction ID.
func (s *Store) Get(id int64) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
