// Package domain holds the lot/batch aggregate and the pure logic that
// governs it: the quantity state machine, the status lifecycle, expiry
// calculation, FIFO ordering, and search plan compilation. Nothing in this
// package touches storage or transport.
package domain

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/flowlytix/distribution-backend/pkg/errors"
)

// Status is the lifecycle state of a lot/batch
type Status string

// Lot statuses (closed set)
const (
	StatusActive     Status = "ACTIVE"
	StatusQuarantine Status = "QUARANTINE"
	StatusExpired    Status = "EXPIRED"
	StatusConsumed   Status = "CONSUMED"
	StatusDamaged    Status = "DAMAGED"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusQuarantine, StatusExpired, StatusConsumed, StatusDamaged:
		return true
	}
	return false
}

// Terminal reports whether s admits no further status transitions
func (s Status) Terminal() bool {
	switch s {
	case StatusExpired, StatusConsumed, StatusDamaged:
		return true
	}
	return false
}

// Field limits
const (
	MaxLotNumberLength = 50
	MaxQuantity        = 1_000_000
	MinReasonLength    = 5
	MaxReasonLength    = 500
)

var lotNumberPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]*$`)

// LotBatch is the aggregate root for a dated quantity of product received
// together. Quantity is fixed at creation; remaining and reserved move
// through the operations below, and every move appends one ledger entry.
type LotBatch struct {
	ID                string     `db:"id" json:"id"`
	LotNumber         string     `db:"lot_number" json:"lot_number"`
	BatchNumber       *string    `db:"batch_number" json:"batch_number,omitempty"`
	ProductID         string     `db:"product_id" json:"product_id"`
	AgencyID          string     `db:"agency_id" json:"agency_id"`
	ManufacturingDate time.Time  `db:"manufacturing_date" json:"manufacturing_date"`
	ExpiryDate        *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Quantity          int64      `db:"quantity" json:"quantity"`
	RemainingQuantity int64      `db:"remaining_quantity" json:"remaining_quantity"`
	ReservedQuantity  int64      `db:"reserved_quantity" json:"reserved_quantity"`
	Status            Status     `db:"status" json:"status"`
	SupplierID        *string    `db:"supplier_id" json:"supplier_id,omitempty"`
	SupplierLotCode   *string    `db:"supplier_lot_code" json:"supplier_lot_code,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	Version           int64      `db:"version" json:"version"`
	CreatedBy         string     `db:"created_by" json:"created_by"`
	UpdatedBy         *string    `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeleteReason      *string    `db:"delete_reason" json:"delete_reason,omitempty"`
}

// NewLotBatchParams carries the caller-supplied fields for creation
type NewLotBatchParams struct {
	LotNumber         string
	BatchNumber       *string
	ProductID         string
	AgencyID          string
	ManufacturingDate time.Time
	ExpiryDate        *time.Time
	Quantity          int64
	SupplierID        *string
	SupplierLotCode   *string
	Notes             *string
	CreatedBy         string
}

// NewLotBatch creates a lot with its full quantity remaining, nothing
// reserved, ACTIVE status, and the CREATED ledger entry.
func NewLotBatch(p NewLotBatchParams, now time.Time) (*LotBatch, *QuantityChange, error) {
	details := map[string]string{}

	if p.LotNumber == "" {
		details["lot_number"] = "lot number is required"
	} else if len(p.LotNumber) > MaxLotNumberLength {
		details["lot_number"] = fmt.Sprintf("lot number must be at most %d characters", MaxLotNumberLength)
	} else if !lotNumberPattern.MatchString(p.LotNumber) {
		details["lot_number"] = "lot number must contain only uppercase letters, digits, dashes, and underscores"
	}
	if p.BatchNumber != nil && (*p.BatchNumber == "" || len(*p.BatchNumber) > MaxLotNumberLength) {
		details["batch_number"] = fmt.Sprintf("batch number must be 1 to %d characters", MaxLotNumberLength)
	}
	if p.ManufacturingDate.IsZero() {
		details["manufacturing_date"] = "manufacturing date is required"
	} else if p.ManufacturingDate.After(now) {
		details["manufacturing_date"] = "manufacturing date cannot be in the future"
	}
	if p.ExpiryDate != nil && !p.ManufacturingDate.IsZero() && !p.ExpiryDate.After(p.ManufacturingDate) {
		details["expiry_date"] = "expiry date must be after the manufacturing date"
	}
	if p.Quantity <= 0 {
		details["quantity"] = "quantity must be positive"
	} else if p.Quantity > MaxQuantity {
		details["quantity"] = fmt.Sprintf("quantity must be at most %d", MaxQuantity)
	}
	if p.ProductID == "" {
		details["product_id"] = "product id is required"
	}
	if p.AgencyID == "" {
		details["agency_id"] = "agency id is required"
	}
	if p.CreatedBy == "" {
		details["created_by"] = "creator id is required"
	}

	if len(details) > 0 {
		return nil, nil, errors.Validation(details)
	}

	lot := &LotBatch{
		ID:                uuid.New().String(),
		LotNumber:         p.LotNumber,
		BatchNumber:       p.BatchNumber,
		ProductID:         p.ProductID,
		AgencyID:          p.AgencyID,
		ManufacturingDate: p.ManufacturingDate,
		ExpiryDate:        p.ExpiryDate,
		Quantity:          p.Quantity,
		RemainingQuantity: p.Quantity,
		ReservedQuantity:  0,
		Status:            StatusActive,
		SupplierID:        p.SupplierID,
		SupplierLotCode:   p.SupplierLotCode,
		Notes:             p.Notes,
		Version:           1,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	entry := newChange(lot, ChangeCreated, 0, lot.Quantity, "initial receipt", p.CreatedBy, now)
	return lot, entry, nil
}

// Derived quantities, always recomputed and never stored.

// AvailableQuantity is the stock free for new reservations
func (l *LotBatch) AvailableQuantity() int64 {
	return l.RemainingQuantity - l.ReservedQuantity
}

// ConsumedQuantity is the stock permanently removed so far
func (l *LotBatch) ConsumedQuantity() int64 {
	return l.Quantity - l.RemainingQuantity
}

// IsFullyConsumed reports whether no stock remains
func (l *LotBatch) IsFullyConsumed() bool {
	return l.RemainingQuantity == 0
}

// UtilizationPercentage is the consumed share of the original quantity,
// rounded to the nearest whole percent. Zero when the lot was created empty.
func (l *LotBatch) UtilizationPercentage() int {
	if l.Quantity == 0 {
		return 0
	}
	return int((l.ConsumedQuantity()*100 + l.Quantity/2) / l.Quantity)
}

// IsAvailable reports whether the lot can satisfy a new allocation at the
// given time. Quarantined lots hold stock but are not allocatable.
func (l *LotBatch) IsAvailable(now time.Time, nearExpiryDays int) bool {
	return l.Status == StatusActive &&
		!ComputeExpiry(l.ExpiryDate, now, nearExpiryDays).IsExpired &&
		l.AvailableQuantity() > 0
}

// LotBatchCode is the combined lot and batch identifier
func (l *LotBatch) LotBatchCode() string {
	if l.BatchNumber != nil && *l.BatchNumber != "" {
		return l.LotNumber + "-" + *l.BatchNumber
	}
	return l.LotNumber
}

// Quantity state machine. Each operation validates, applies the transition,
// and returns the ledger entry the caller must persist atomically with the
// aggregate. On error the aggregate is left untouched.

// Reserve earmarks qty units for a pending use
func (l *LotBatch) Reserve(qty int64, reason, performedBy string, now time.Time) (*QuantityChange, error) {
	if err := checkQty(qty); err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return nil, errors.Conflict(fmt.Sprintf("lot %s cannot take reservations in status %s", l.LotNumber, l.Status))
	}
	if qty > l.AvailableQuantity() {
		return nil, errors.Quantity("INSUFFICIENT_AVAILABLE",
			fmt.Sprintf("cannot reserve %d units of lot %s, only %d available", qty, l.LotNumber, l.AvailableQuantity()))
	}

	before := l.ReservedQuantity
	l.ReservedQuantity += qty
	l.touch(performedBy, now)

	return newChange(l, ChangeReserved, before, l.ReservedQuantity, reason, performedBy, now), nil
}

// Release returns qty reserved units to available stock
func (l *LotBatch) Release(qty int64, reason, performedBy string, now time.Time) (*QuantityChange, error) {
	if err := checkQty(qty); err != nil {
		return nil, err
	}
	if qty > l.ReservedQuantity {
		return nil, errors.Quantity("INVALID_RELEASE",
			fmt.Sprintf("cannot release %d units of lot %s, only %d reserved", qty, l.LotNumber, l.ReservedQuantity))
	}

	before := l.ReservedQuantity
	l.ReservedQuantity -= qty
	l.touch(performedBy, now)

	return newChange(l, ChangeReleased, before, l.ReservedQuantity, reason, performedBy, now), nil
}

// Consume permanently removes qty units. Consumption draws from reserved
// stock only: callers reserve first, then consume. When remaining stock
// hits zero the lot transitions to CONSUMED.
func (l *LotBatch) Consume(qty int64, reason, performedBy string, now time.Time) (*QuantityChange, error) {
	if err := checkQty(qty); err != nil {
		return nil, err
	}
	if qty > l.ReservedQuantity {
		return nil, errors.Quantity("INSUFFICIENT_RESERVED",
			fmt.Sprintf("cannot consume %d units of lot %s, only %d reserved", qty, l.LotNumber, l.ReservedQuantity))
	}
	if qty > l.RemainingQuantity {
		return nil, errors.Quantity("INSUFFICIENT_REMAINING",
			fmt.Sprintf("cannot consume %d units of lot %s, only %d remaining", qty, l.LotNumber, l.RemainingQuantity))
	}

	before := l.RemainingQuantity
	l.ReservedQuantity -= qty
	l.RemainingQuantity -= qty
	if l.RemainingQuantity == 0 && !l.Status.Terminal() {
		l.Status = StatusConsumed
	}
	l.touch(performedBy, now)

	return newChange(l, ChangeConsumed, before, l.RemainingQuantity, reason, performedBy, now), nil
}

// Adjust is an administrative correction of the remaining quantity
func (l *LotBatch) Adjust(newRemaining int64, reason, performedBy string, now time.Time) (*QuantityChange, error) {
	if newRemaining < 0 {
		return nil, errors.Validation(map[string]string{"new_remaining": "must not be negative"})
	}
	if err := checkReason(reason); err != nil {
		return nil, err
	}
	if newRemaining > l.Quantity {
		return nil, errors.Quantity("INVALID_ADJUSTMENT",
			fmt.Sprintf("cannot adjust lot %s to %d units, original quantity is %d", l.LotNumber, newRemaining, l.Quantity))
	}
	if newRemaining < l.ReservedQuantity {
		return nil, errors.Quantity("INVALID_ADJUSTMENT",
			fmt.Sprintf("cannot adjust lot %s below its reserved quantity of %d", l.LotNumber, l.ReservedQuantity))
	}

	before := l.RemainingQuantity
	l.RemainingQuantity = newRemaining
	if l.RemainingQuantity == 0 && !l.Status.Terminal() {
		l.Status = StatusConsumed
	}
	l.touch(performedBy, now)

	return newChange(l, ChangeAdjusted, before, l.RemainingQuantity, reason, performedBy, now), nil
}

// MarkExpired promotes the lot to EXPIRED once its expiry date has passed.
// Idempotent: marking an already expired lot returns no new ledger entry.
func (l *LotBatch) MarkExpired(performedBy string, now time.Time) (*QuantityChange, error) {
	if l.Status == StatusExpired {
		return nil, nil
	}
	if !ComputeExpiry(l.ExpiryDate, now, DefaultNearExpiryDays).IsExpired {
		return nil, errors.Conflict(fmt.Sprintf("lot %s has not passed its expiry date", l.LotNumber))
	}
	if l.Status.Terminal() {
		return nil, errors.Conflict(fmt.Sprintf("lot %s cannot expire from terminal status %s", l.LotNumber, l.Status))
	}

	l.Status = StatusExpired
	l.touch(performedBy, now)

	return newChange(l, ChangeExpired, l.RemainingQuantity, l.RemainingQuantity, "expiry date passed", performedBy, now), nil
}

// Status lifecycle.

// CanTransition reports whether a direct status change from the current
// status to target is legal. EXPIRED is reached through MarkExpired only.
func (l *LotBatch) CanTransition(target Status) bool {
	if l.Status.Terminal() || target == StatusExpired {
		return false
	}
	switch target {
	case StatusActive, StatusQuarantine, StatusConsumed, StatusDamaged:
		return target != l.Status
	}
	return false
}

// ChangeStatus applies an explicit status transition with an audit reason
func (l *LotBatch) ChangeStatus(target Status, reason, performedBy string, now time.Time) error {
	if !target.Valid() {
		return errors.Validation(map[string]string{"status": fmt.Sprintf("unknown status %q", target)})
	}
	if err := checkReason(reason); err != nil {
		return err
	}
	if target == l.Status {
		return errors.Conflict(fmt.Sprintf("lot %s already has status %s", l.LotNumber, target))
	}
	if !l.CanTransition(target) {
		return errors.Conflict(fmt.Sprintf("lot %s cannot transition from %s to %s", l.LotNumber, l.Status, target))
	}

	l.Status = target
	l.touch(performedBy, now)
	return nil
}

// Delete gating.

// CheckSoftDelete validates a tombstone request. Lots with remaining stock
// need force to be set.
func (l *LotBatch) CheckSoftDelete(reason string, force bool) error {
	if err := checkReason(reason); err != nil {
		return err
	}
	if l.DeletedAt != nil {
		return errors.Conflict(fmt.Sprintf("lot %s is already deleted", l.LotNumber))
	}
	if l.RemainingQuantity > 0 && !force {
		e := errors.Conflict(fmt.Sprintf("lot %s still has %d units remaining, use force to delete anyway", l.LotNumber, l.RemainingQuantity))
		e.Code = "HAS_REMAINING_QUANTITY"
		return e
	}
	return nil
}

// CheckHardDelete validates an irreversible removal. Only fully settled
// lots (CONSUMED or DAMAGED) may be hard deleted without force.
func (l *LotBatch) CheckHardDelete(force bool) error {
	if force {
		return nil
	}
	if l.Status != StatusConsumed && l.Status != StatusDamaged {
		e := errors.Conflict(fmt.Sprintf("lot %s has status %s, hard delete requires CONSUMED or DAMAGED", l.LotNumber, l.Status))
		e.Code = "INVALID_STATUS_FOR_HARD_DELETE"
		return e
	}
	return nil
}

// SoftDelete validates the gating and marks the tombstone
func (l *LotBatch) SoftDelete(reason string, force bool, performedBy string, now time.Time) error {
	if err := l.CheckSoftDelete(reason, force); err != nil {
		return err
	}
	l.DeletedAt = &now
	l.DeleteReason = &reason
	l.touch(performedBy, now)
	return nil
}

func (l *LotBatch) touch(performedBy string, now time.Time) {
	l.UpdatedBy = &performedBy
	l.UpdatedAt = now
}

func checkQty(qty int64) error {
	if qty <= 0 {
		return errors.Validation(map[string]string{"quantity": "must be a positive number"})
	}
	return nil
}

func checkReason(reason string) error {
	// Length is measured in characters, not bytes.
	if n := utf8.RuneCountInString(reason); n < MinReasonLength || n > MaxReasonLength {
		return errors.Validation(map[string]string{
			"reason": fmt.Sprintf("must be between %d and %d characters", MinReasonLength, MaxReasonLength),
		})
	}
	return nil
}
