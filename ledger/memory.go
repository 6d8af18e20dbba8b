package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/0xmeta/newsgate/types"
)

// MemoryStore is an in-process Store. It backs deployments without a
// database and keeps tests free of SQL fixtures.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]types.PaymentRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.PaymentRecord)}
}

// Upsert inserts or replaces the record for its payment key.
func (s *MemoryStore) Upsert(ctx context.Context, rec types.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.PaymentKey] = rec
	return nil
}

// Get returns the record for a payment key, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, paymentKey string) (types.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[paymentKey]
	if !ok {
		return types.PaymentRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListByState returns up to limit records in the given state, oldest first.
func (s *MemoryStore) ListByState(ctx context.Context, state types.SettlementState, limit int) ([]types.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []types.PaymentRecord
	for _, rec := range s.records {
		if rec.State == state {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
