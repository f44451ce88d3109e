package fraud

import (
	"context"
	"sort"
	"time"

	"github.com/banking/risk-analytics/internal/domain"
)

// HistoryProvider looks up an entity's recent transaction history
type HistoryProvider interface {
	// RecentAmounts returns the most recent transaction amounts, newest first
	RecentAmounts(ctx context.Context, entityID string) ([]float64, error)
	RecentTransactions(ctx context.Context, entityID string, hoursBack int) ([]*domain.Transaction, error)
	// RecentLocations returns the provinces the entity recently transacted from
	RecentLocations(ctx context.Context, entityID string) ([]string, error)
}

// HistoryRecorder appends analyzed transactions to the history
type HistoryRecorder interface {
	Record(ctx context.Context, tx *domain.Transaction) error
}

// HistoryStore is a history provider that can also be written to
type HistoryStore interface {
	HistoryProvider
	HistoryRecorder
}

// activity is the entity's recent transactions including the one under
// analysis, ordered by timestamp.
type activity []*domain.Transaction

func newActivity(tx *domain.Transaction, recent []*domain.Transaction) activity {
	out := make(activity, 0, len(recent)+1)
	seen := map[string]bool{tx.ID: true}
	out = append(out, tx)
	for _, r := range recent {
		if r == nil || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// window returns the transactions in (at-d, at]
func (a activity) window(at time.Time, d time.Duration) activity {
	from := at.Add(-d)
	out := make(activity, 0, len(a))
	for _, tx := range a {
		if tx.Timestamp.After(from) && !tx.Timestamp.After(at) {
			out = append(out, tx)
		}
	}
	return out
}

func (a activity) total() float64 {
	var sum float64
	for _, tx := range a {
		sum += tx.Amount
	}
	return sum
}

func (a activity) count(pred func(*domain.Transaction) bool) int {
	n := 0
	for _, tx := range a {
		if pred(tx) {
			n++
		}
	}
	return n
}
