package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/fraud"
)

const (
	historyKeyPrefix  = "txhist:"
	locationKeyPrefix = "txloc:"
)

// HistoryOptions bound what the store keeps and returns
type HistoryOptions struct {
	// TTL is how long an entity's history outlives its last transaction
	TTL time.Duration
	// AmountLimit caps RecentAmounts
	AmountLimit int
}

// HistoryStore keeps each entity's transactions in a sorted set scored by
// timestamp, and the provinces it transacted from in a second set.
type HistoryStore struct {
	client goredis.UniversalClient
	opts   HistoryOptions
	now    func() time.Time
}

var _ fraud.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a Redis backed history store
func NewHistoryStore(client goredis.UniversalClient, opts HistoryOptions) *HistoryStore {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.AmountLimit <= 0 {
		opts.AmountLimit = 100
	}
	return &HistoryStore{client: client, opts: opts, now: time.Now}
}

func historyKey(entityID string) string  { return historyKeyPrefix + entityID }
func locationKey(entityID string) string { return locationKeyPrefix + entityID }

func scoreOf(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Record appends tx to the entity history, drops entries older than the TTL
// and refreshes the key expiry.
func (s *HistoryStore) Record(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	member, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	cutoff := strconv.FormatFloat(scoreOf(s.now().Add(-s.opts.TTL)), 'f', 0, 64)
	hKey, lKey := historyKey(tx.EntityID), locationKey(tx.EntityID)

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, hKey, goredis.Z{Score: scoreOf(tx.Timestamp), Member: member})
		pipe.ZRemRangeByScore(ctx, hKey, "-inf", "("+cutoff)
		pipe.Expire(ctx, hKey, s.opts.TTL)
		if province := tx.Province(); province != "" {
			// Re-adding a province moves it to the latest timestamp
			pipe.ZAdd(ctx, lKey, goredis.Z{Score: scoreOf(tx.Timestamp), Member: province})
			pipe.ZRemRangeByScore(ctx, lKey, "-inf", "("+cutoff)
			pipe.Expire(ctx, lKey, s.opts.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", tx.ID, err)
	}
	return nil
}

// RecentAmounts returns up to AmountLimit amounts, newest first
func (s *HistoryStore) RecentAmounts(ctx context.Context, entityID string) ([]float64, error) {
	members, err := s.client.ZRevRange(ctx, historyKey(entityID), 0, int64(s.opts.AmountLimit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load recent amounts: %w", err)
	}
	txs, err := decodeTransactions(members)
	if err != nil {
		return nil, err
	}
	amounts := make([]float64, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Amount
	}
	return amounts, nil
}

// RecentTransactions returns the transactions of the last hoursBack hours,
// oldest first
func (s *HistoryStore) RecentTransactions(ctx context.Context, entityID string, hoursBack int) ([]*domain.Transaction, error) {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	from := s.now().Add(-time.Duration(hoursBack) * time.Hour)
	members, err := s.client.ZRangeByScore(ctx, historyKey(entityID), &goredis.ZRangeBy{
		Min: strconv.FormatFloat(scoreOf(from), 'f', 0, 64),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("load recent transactions: %w", err)
	}
	return decodeTransactions(members)
}

// RecentLocations returns the provinces the entity transacted from, most
// recent first
func (s *HistoryStore) RecentLocations(ctx context.Context, entityID string) ([]string, error) {
	locations, err := s.client.ZRevRange(ctx, locationKey(entityID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load recent locations: %w", err)
	}
	return locations, nil
}

func decodeTransactions(members []string) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(members))
	for _, m := range members {
		var tx domain.Transaction
		if err := json.Unmarshal([]byte(m), &tx); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, &tx)
	}
	return out, nil
}
