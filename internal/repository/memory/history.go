package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/fraud"
)

// HistoryStore keeps per-entity transaction history in memory
type HistoryStore struct {
	mu          sync.RWMutex
	txs         map[string][]*domain.Transaction
	amountLimit int
	now         func() time.Time
}

var _ fraud.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates an empty history store. amountLimit caps
// RecentAmounts, 0 means 100.
func NewHistoryStore(amountLimit int) *HistoryStore {
	if amountLimit <= 0 {
		amountLimit = 100
	}
	return &HistoryStore{
		txs:         make(map[string][]*domain.Transaction),
		amountLimit: amountLimit,
		now:         time.Now,
	}
}

// WithClock sets the clock RecentTransactions windows are measured from
func (s *HistoryStore) WithClock(now func() time.Time) *HistoryStore {
	s.now = now
	return s
}

// Record appends tx, keeping the entity history ordered by timestamp.
// Recording the same transaction id twice is a no-op.
func (s *HistoryStore) Record(_ context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.txs[tx.EntityID]
	for _, existing := range list {
		if existing.ID == tx.ID {
			return nil
		}
	}
	cp := *tx
	list = append(list, &cp)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
	s.txs[tx.EntityID] = list
	return nil
}

// RecentAmounts returns up to the amount limit, newest first
func (s *HistoryStore) RecentAmounts(_ context.Context, entityID string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.txs[entityID]
	out := make([]float64, 0, min(len(list), s.amountLimit))
	for i := len(list) - 1; i >= 0 && len(out) < s.amountLimit; i-- {
		out = append(out, list[i].Amount)
	}
	return out, nil
}

// RecentTransactions returns the transactions of the last hoursBack hours,
// oldest first
func (s *HistoryStore) RecentTransactions(_ context.Context, entityID string, hoursBack int) ([]*domain.Transaction, error) {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	from := s.now().Add(-time.Duration(hoursBack) * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, tx := range s.txs[entityID] {
		if !tx.Timestamp.Before(from) {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

// RecentLocations returns the distinct provinces of the entity's history,
// most recent first
func (s *HistoryStore) RecentLocations(_ context.Context, entityID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.txs[entityID]
	seen := make(map[string]bool)
	var out []string
	for i := len(list) - 1; i >= 0; i-- {
		p := list[i].Province()
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
