package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/pkg/database"
	"github.com/flowlytix/distribution-backend/pkg/errors"
)

// LotBatchRepository handles lot/batch persistence. Every mutation runs the
// versioned row update and its ledger entry in one transaction; a version
// mismatch on an existing row surfaces as a concurrency error.
type LotBatchRepository struct {
	db *database.DB
}

// NewLotBatchRepository creates a new lot batch repository
func NewLotBatchRepository(db *database.DB) *LotBatchRepository {
	return &LotBatchRepository{db: db}
}

const insertHistorySQL = `
	INSERT INTO lot_quantity_history (
		id, lot_batch_id, change_type, quantity_before, quantity_after,
		quantity_change, reason, reference_id, reference_type, performed_by,
		changed_at, notes
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func insertHistory(ctx context.Context, tx *sqlx.Tx, e *domain.QuantityChange) error {
	_, err := tx.ExecContext(ctx, insertHistorySQL,
		e.ID, e.LotBatchID, e.ChangeType, e.QuantityBefore, e.QuantityAfter,
		e.QuantityChange, e.Reason, e.ReferenceID, e.ReferenceType, e.PerformedBy,
		e.ChangedAt, e.Notes,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// Create inserts a new lot together with its CREATED ledger entry
func (r *LotBatchRepository) Create(ctx context.Context, lot *domain.LotBatch, entry *domain.QuantityChange) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO lot_batches (
				id, lot_number, batch_number, product_id, agency_id,
				manufacturing_date, expiry_date, quantity, remaining_quantity,
				reserved_quantity, status, supplier_id, supplier_lot_code, notes,
				version, created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`

		_, err := tx.ExecContext(ctx, query,
			lot.ID, lot.LotNumber, lot.BatchNumber, lot.ProductID, lot.AgencyID,
			lot.ManufacturingDate, lot.ExpiryDate, lot.Quantity, lot.RemainingQuantity,
			lot.ReservedQuantity, lot.Status, lot.SupplierID, lot.SupplierLotCode, lot.Notes,
			lot.Version, lot.CreatedBy, lot.CreatedAt, lot.UpdatedAt,
		)
		if err != nil {
			return database.MapPQError(err)
		}

		return insertHistory(ctx, tx, entry)
	})
}

// GetByID gets a lot by ID, excluding tombstoned rows
func (r *LotBatchRepository) GetByID(ctx context.Context, id string) (*domain.LotBatch, error) {
	var lot domain.LotBatch
	query := `SELECT * FROM lot_batches WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot batch")
		}
		return nil, err
	}
	return &lot, nil
}

// GetByLotNumber gets a lot by its business key within a product
func (r *LotBatchRepository) GetByLotNumber(ctx context.Context, productID, lotNumber string) (*domain.LotBatch, error) {
	var lot domain.LotBatch
	query := `
		SELECT * FROM lot_batches
		WHERE product_id = $1 AND lot_number = $2 AND deleted_at IS NULL
		ORDER BY batch_number NULLS FIRST
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &lot, query, productID, lotNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot batch")
		}
		return nil, err
	}
	return &lot, nil
}

// GetByLotAndBatch gets a lot by its full (lot, batch) business key
func (r *LotBatchRepository) GetByLotAndBatch(ctx context.Context, productID, lotNumber string, batchNumber *string) (*domain.LotBatch, error) {
	var lot domain.LotBatch
	query := `
		SELECT * FROM lot_batches
		WHERE product_id = $1 AND lot_number = $2
		  AND COALESCE(batch_number, '') = COALESCE($3, '')
		  AND deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &lot, query, productID, lotNumber, batchNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot batch")
		}
		return nil, err
	}
	return &lot, nil
}

// Update persists a mutated aggregate with optimistic locking, appending
// the ledger entry (when the mutation produced one) in the same
// transaction. lot.Version must hold the version the caller read; on
// success it is bumped to the stored version.
func (r *LotBatchRepository) Update(ctx context.Context, lot *domain.LotBatch, entry *domain.QuantityChange) error {
	expected := lot.Version

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE lot_batches SET
				expiry_date = $3, remaining_quantity = $4, reserved_quantity = $5,
				status = $6, supplier_id = $7, supplier_lot_code = $8, notes = $9,
				updated_by = $10, updated_at = $11, deleted_at = $12, delete_reason = $13,
				version = version + 1
			WHERE id = $1 AND version = $2
		`

		res, err := tx.ExecContext(ctx, query,
			lot.ID, expected,
			lot.ExpiryDate, lot.RemainingQuantity, lot.ReservedQuantity,
			lot.Status, lot.SupplierID, lot.SupplierLotCode, lot.Notes,
			lot.UpdatedBy, lot.UpdatedAt, lot.DeletedAt, lot.DeleteReason,
		)
		if err != nil {
			return database.MapPQError(err)
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM lot_batches WHERE id = $1)`, lot.ID); err != nil {
				return err
			}
			if !exists {
				return errors.NotFound("lot batch")
			}
			return errors.Concurrency("lot " + lot.LotNumber)
		}

		if entry != nil {
			return insertHistory(ctx, tx, entry)
		}
		return nil
	})
	if err != nil {
		return err
	}

	lot.Version = expected + 1
	return nil
}

// HardDelete irreversibly removes a lot and, via cascade, its ledger
func (r *LotBatchRepository) HardDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lot_batches WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot batch")
	}
	return nil
}

// ListByProduct lists a product's lots in FIFO order for selection views
func (r *LotBatchRepository) ListByProduct(ctx context.Context, agencyID, productID string, limit, offset int) ([]*domain.LotBatch, int64, error) {
	var total int64
	countQuery := `
		SELECT COUNT(*) FROM lot_batches
		WHERE agency_id = $1 AND product_id = $2 AND deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &total, countQuery, agencyID, productID); err != nil {
		return nil, 0, err
	}

	var lots []*domain.LotBatch
	query := `
		SELECT * FROM lot_batches
		WHERE agency_id = $1 AND product_id = $2 AND deleted_at IS NULL
		ORDER BY manufacturing_date, lot_number, batch_number NULLS FIRST, id
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &lots, query, agencyID, productID, limit, offset); err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

// ListExpiredCandidates finds lots whose expiry date has passed but whose
// stored status has not caught up yet. Used by the expiry sweep.
func (r *LotBatchRepository) ListExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]*domain.LotBatch, error) {
	var lots []*domain.LotBatch
	query := `
		SELECT * FROM lot_batches
		WHERE deleted_at IS NULL
		  AND status IN ('ACTIVE', 'QUARANTINE')
		  AND expiry_date IS NOT NULL
		  AND expiry_date < $1
		ORDER BY expiry_date
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &lots, query, now, limit); err != nil {
		return nil, err
	}
	return lots, nil
}

// Search executes a compiled search plan and returns the matching page
// plus the total match count.
func (r *LotBatchRepository) Search(ctx context.Context, plan *domain.SearchPlan) ([]*domain.LotBatch, int64, error) {
	where, args := buildSearchWhere(plan)

	var total int64
	countQuery := `SELECT COUNT(*) FROM lot_batches ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT * FROM lot_batches %s %s LIMIT $%d OFFSET $%d`,
		where, orderClause(plan), len(args)+1, len(args)+2,
	)
	args = append(args, plan.Limit, plan.Offset)

	var lots []*domain.LotBatch
	if err := r.db.SelectContext(ctx, &lots, query, args...); err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

func buildSearchWhere(plan *domain.SearchPlan) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	add := func(cond string, vals ...interface{}) {
		placeholders := make([]interface{}, len(vals))
		for i := range vals {
			args = append(args, vals[i])
			placeholders[i] = len(args)
		}
		conditions = append(conditions, fmt.Sprintf(cond, placeholders...))
	}

	if !plan.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	if len(plan.AgencyIDs) > 0 {
		add("agency_id = ANY($%d)", pq.Array(plan.AgencyIDs))
	}
	if len(plan.ProductIDs) > 0 {
		add("product_id = ANY($%d)", pq.Array(plan.ProductIDs))
	}
	if len(plan.SupplierIDs) > 0 {
		add("supplier_id = ANY($%d)", pq.Array(plan.SupplierIDs))
	}
	if len(plan.CreatedBy) > 0 {
		add("created_by = ANY($%d)", pq.Array(plan.CreatedBy))
	}

	if len(plan.Statuses) > 0 {
		statuses := make([]string, len(plan.Statuses))
		for i, s := range plan.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}

	if plan.LotNumber != "" {
		add("lot_number = $%d", plan.LotNumber)
	}
	if plan.BatchNumber != "" {
		add("batch_number = $%d", plan.BatchNumber)
	}
	if plan.SupplierLotCode != "" {
		add("supplier_lot_code = $%d", plan.SupplierLotCode)
	}
	if plan.SearchTerm != "" {
		term := "%" + plan.SearchTerm + "%"
		add("(lot_number ILIKE $%d OR batch_number ILIKE $%d OR supplier_lot_code ILIKE $%d OR notes ILIKE $%d)",
			term, term, term, term)
	}

	if plan.MinQuantity != nil {
		add("remaining_quantity >= $%d", *plan.MinQuantity)
	}
	if plan.MaxQuantity != nil {
		add("remaining_quantity <= $%d", *plan.MaxQuantity)
	}

	if plan.ManufacturedAfter != nil {
		add("manufacturing_date >= $%d", *plan.ManufacturedAfter)
	}
	if plan.ManufacturedBefore != nil {
		add("manufacturing_date <= $%d", *plan.ManufacturedBefore)
	}
	if plan.ExpiresAfter != nil {
		add("expiry_date >= $%d", *plan.ExpiresAfter)
	}
	if plan.ExpiresBefore != nil {
		add("expiry_date <= $%d", *plan.ExpiresBefore)
	}
	if plan.CreatedAfter != nil {
		add("created_at >= $%d", *plan.CreatedAfter)
	}
	if plan.CreatedBefore != nil {
		add("created_at <= $%d", *plan.CreatedBefore)
	}
	if plan.UpdatedAfter != nil {
		add("updated_at >= $%d", *plan.UpdatedAfter)
	}
	if plan.UpdatedBefore != nil {
		add("updated_at <= $%d", *plan.UpdatedBefore)
	}

	if plan.ExpiringWithinDays != nil {
		add("expiry_date IS NOT NULL AND expiry_date <= NOW() + INTERVAL '1 day' * $%d", *plan.ExpiringWithinDays)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// orderClause renders the plan's effective ordering. Sort fields and
// directions come from a closed, compile-validated set, so interpolation
// is safe here. A trailing id keeps pagination stable across calls.
func orderClause(plan *domain.SearchPlan) string {
	if plan.FIFOApplied || plan.SortBy == domain.SortManufacturingDate {
		dir := string(plan.SortOrder)
		return fmt.Sprintf("ORDER BY manufacturing_date %s, lot_number %s, batch_number %s NULLS FIRST, id", dir, dir, dir)
	}
	return fmt.Sprintf("ORDER BY %s %s, id", plan.SortBy, plan.SortOrder)
}
