package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/internal/lot/repository"
	"github.com/flowlytix/distribution-backend/pkg/database"
	"github.com/flowlytix/distribution-backend/pkg/logger"
	"github.com/flowlytix/distribution-backend/pkg/testutil"
)

var historyColumns = []string{
	"id", "lot_batch_id", "change_type", "quantity_before", "quantity_after",
	"quantity_change", "reason", "reference_id", "reference_type",
	"performed_by", "changed_at", "notes",
}

func newHistoryRepo(t *testing.T) (*repository.HistoryRepository, *testutil.MockDB) {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewFromSqlx(mockDB.DB, logger.New("lot-service-test", "test"))
	return repository.NewHistoryRepository(db), mockDB
}

func historyRow(rows *sqlmock.Rows, c testutil.QuantityChangeFixture) *sqlmock.Rows {
	return rows.AddRow(
		c.ID, c.LotBatchID, c.ChangeType, c.QuantityBefore, c.QuantityAfter,
		c.QuantityChange, c.Reason, nil, nil, c.PerformedBy, c.ChangedAt, nil,
	)
}

func TestHistoryListByLot(t *testing.T) {
	repo, mockDB := newHistoryRepo(t)
	factory := testutil.NewFixtureFactory()

	created := factory.QuantityChange("lot-1")
	reserved := factory.QuantityChange("lot-1", testutil.WithChange("RESERVED", 0, 25))

	mockDB.ExpectQuery("SELECT COUNT(*) FROM lot_quantity_history WHERE lot_batch_id = $1").
		WithArgs("lot-1").
		WillReturnRows(testutil.MockRows("count").AddRow(2))
	mockDB.ExpectQuery("SELECT * FROM lot_quantity_history").
		WithArgs("lot-1", 50, 0).
		WillReturnRows(historyRow(historyRow(testutil.MockRows(historyColumns...), created), reserved))

	entries, total, err := repo.ListByLot(context.Background(), "lot-1", 50, 0)
	require.NoError(t, err)

	assert.EqualValues(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ChangeCreated, entries[0].ChangeType)
	assert.Equal(t, domain.ChangeReserved, entries[1].ChangeType)
	assert.EqualValues(t, 25, entries[1].QuantityAfter)
	assert.EqualValues(t, 25, entries[1].QuantityChange)

	mockDB.ExpectationsWereMet(t)
}

func TestHistoryListByLotAndType(t *testing.T) {
	repo, mockDB := newHistoryRepo(t)
	factory := testutil.NewFixtureFactory()

	adjusted := factory.QuantityChange("lot-1", testutil.WithChange("ADJUSTED", 100, 90))

	mockDB.ExpectQuery("SELECT COUNT(*) FROM lot_quantity_history WHERE lot_batch_id = $1 AND change_type = $2").
		WithArgs("lot-1", domain.ChangeAdjusted).
		WillReturnRows(testutil.MockRows("count").AddRow(1))
	mockDB.ExpectQuery("SELECT * FROM lot_quantity_history").
		WithArgs("lot-1", domain.ChangeAdjusted, 50, 0).
		WillReturnRows(historyRow(testutil.MockRows(historyColumns...), adjusted))

	entries, total, err := repo.ListByLotAndType(context.Background(), "lot-1", domain.ChangeAdjusted, 50, 0)
	require.NoError(t, err)

	assert.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	assert.EqualValues(t, -10, entries[0].QuantityChange)

	mockDB.ExpectationsWereMet(t)
}
