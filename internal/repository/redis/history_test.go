package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/risk-analytics/internal/domain"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "txhist:SME-1", historyKey("SME-1"))
	assert.Equal(t, "txloc:SME-1", locationKey("SME-1"))
}

func TestNewHistoryStore_Defaults(t *testing.T) {
	s := NewHistoryStore(nil, HistoryOptions{})
	assert.Equal(t, 7*24*time.Hour, s.opts.TTL)
	assert.Equal(t, 100, s.opts.AmountLimit)

	s = NewHistoryStore(nil, HistoryOptions{TTL: time.Hour, AmountLimit: 5})
	assert.Equal(t, time.Hour, s.opts.TTL)
	assert.Equal(t, 5, s.opts.AmountLimit)
}

func TestScoreOf(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, float64(at.UnixMilli()), scoreOf(at))
	assert.Less(t, scoreOf(at), scoreOf(at.Add(time.Millisecond)))
}

func TestDecodeTransactions(t *testing.T) {
	tx := &domain.Transaction{
		ID:         "tx-1",
		EntityID:   "SME-1",
		EntityType: domain.EntitySME,
		Amount:     250000,
		Timestamp:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Location:   &domain.Location{Province: "Kinshasa"},
	}
	raw, err := json.Marshal(tx)
	require.NoError(t, err)

	txs, err := decodeTransactions([]string{string(raw)})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].ID)
	assert.Equal(t, 250000.0, txs[0].Amount)
	assert.Equal(t, "Kinshasa", txs[0].Province())
	assert.True(t, tx.Timestamp.Equal(txs[0].Timestamp))

	_, err = decodeTransactions([]string{"not json"})
	assert.Error(t, err)
}

func TestRecord_RejectsInvalidTransaction(t *testing.T) {
	s := NewHistoryStore(nil, HistoryOptions{})
	err := s.Record(context.Background(), &domain.Transaction{ID: "tx-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)
}
