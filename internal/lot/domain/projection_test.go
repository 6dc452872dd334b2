package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
)

func TestNewSummary(t *testing.T) {
	lot := newTestLot(t, 1000)
	_, err := lot.Reserve(100, "order", testUserID, testNow)
	require.NoError(t, err)
	_, err = lot.Consume(100, "order", testUserID, testNow)
	require.NoError(t, err)

	s := domain.NewSummary(lot, testNow, 30)

	assert.Equal(t, lot.ID, s.ID)
	assert.Equal(t, int64(900), s.RemainingQuantity)
	assert.Equal(t, int64(900), s.AvailableQuantity)
	assert.Equal(t, int64(100), s.ConsumedQuantity)
	assert.Equal(t, 10, s.UtilizationPercentage)
	assert.False(t, s.IsExpired)
	assert.False(t, s.IsNearExpiry)
	assert.True(t, s.IsAvailable)
	assert.False(t, s.IsFullyConsumed)
	require.NotNil(t, s.DaysUntilExpiry)
}

func TestNewSummary_ExpiredLotNotAvailable(t *testing.T) {
	lot := newTestLot(t, 100)
	afterExpiry := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	s := domain.NewSummary(lot, afterExpiry, 30)

	assert.True(t, s.IsExpired)
	assert.False(t, s.IsAvailable)
	// Explicit status stays what storage says; the computed flag carries
	// the expiry truth until the sweep promotes the row
	assert.Equal(t, domain.StatusActive, s.Status)
}

func TestNewListItem(t *testing.T) {
	lot := newTestLot(t, 500)
	batch := "B2"
	lot.BatchNumber = &batch

	item := domain.NewListItem(lot, testNow, 30)

	assert.Equal(t, "LOT-2024-001-B2", item.LotBatchCode)
	assert.Contains(t, item.DisplayText, "LOT-2024-001-B2")
	assert.Contains(t, item.DisplayText, "500")
	assert.Contains(t, item.DisplayText, "2024-12-31")
	assert.Equal(t, "2024-01-01|LOT-2024-001|B2", item.SortKey)
	assert.Equal(t, int64(500), item.AvailableQuantity)
}

func TestNewListItem_SortKeyOrdersLikeFIFO(t *testing.T) {
	older := newTestLot(t, 100)
	older.ManufacturingDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := newTestLot(t, 100)
	newer.ManufacturingDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	a := domain.NewListItem(older, testNow, 30)
	b := domain.NewListItem(newer, testNow, 30)

	assert.Less(t, a.SortKey, b.SortKey)
}

func TestNewDetail(t *testing.T) {
	lot := newTestLot(t, 1000)
	entry, err := lot.Reserve(200, "order", testUserID, testNow)
	require.NoError(t, err)

	sibling := newTestLot(t, 50)
	sibling.LotNumber = "LOT-2024-002"

	d := domain.NewDetail(lot, []*domain.QuantityChange{entry}, []*domain.LotBatch{sibling, lot}, testNow, 30)

	assert.Equal(t, lot.ID, d.ID)
	assert.Equal(t, int64(1), d.Version)
	require.Len(t, d.History, 1)
	assert.Equal(t, domain.ChangeReserved, d.History[0].ChangeType)

	// The lot itself is excluded from its related list
	require.Len(t, d.RelatedLots, 1)
	assert.Equal(t, sibling.ID, d.RelatedLots[0].ID)
}

func TestNewDetail_ExpiredDisplay(t *testing.T) {
	lot := newTestLot(t, 100)
	afterExpiry := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	item := domain.NewListItem(lot, afterExpiry, 30)
	assert.Contains(t, item.DisplayText, "EXPIRED")
}
