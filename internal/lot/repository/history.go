package repository

import (
	"context"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/pkg/database"
)

// HistoryRepository reads a lot's append-only quantity ledger. Writes go
// through LotBatchRepository so they commit with the aggregate.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// ListByLot lists a lot's ledger entries, oldest first
func (r *HistoryRepository) ListByLot(ctx context.Context, lotBatchID string, limit, offset int) ([]*domain.QuantityChange, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM lot_quantity_history WHERE lot_batch_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, lotBatchID); err != nil {
		return nil, 0, err
	}

	var entries []*domain.QuantityChange
	query := `
		SELECT * FROM lot_quantity_history
		WHERE lot_batch_id = $1
		ORDER BY changed_at, id
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &entries, query, lotBatchID, limit, offset); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListByLotAndType lists a lot's ledger entries of one change type, oldest
// first. Backs the filtered history view.
func (r *HistoryRepository) ListByLotAndType(ctx context.Context, lotBatchID string, changeType domain.ChangeType, limit, offset int) ([]*domain.QuantityChange, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM lot_quantity_history WHERE lot_batch_id = $1 AND change_type = $2`
	if err := r.db.GetContext(ctx, &total, countQuery, lotBatchID, changeType); err != nil {
		return nil, 0, err
	}

	var entries []*domain.QuantityChange
	query := `
		SELECT * FROM lot_quantity_history
		WHERE lot_batch_id = $1 AND change_type = $2
		ORDER BY changed_at, id
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &entries, query, lotBatchID, changeType, limit, offset); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
