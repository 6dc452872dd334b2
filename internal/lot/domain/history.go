package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies a quantity ledger entry
type ChangeType string

// Ledger change types (closed set)
const (
	ChangeCreated  ChangeType = "CREATED"
	ChangeReserved ChangeType = "RESERVED"
	ChangeReleased ChangeType = "RELEASED"
	ChangeConsumed ChangeType = "CONSUMED"
	ChangeAdjusted ChangeType = "ADJUSTED"
	ChangeExpired  ChangeType = "EXPIRED"
)

// Valid reports whether t is a known change type
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeCreated, ChangeReserved, ChangeReleased, ChangeConsumed, ChangeAdjusted, ChangeExpired:
		return true
	}
	return false
}

// QuantityChange is one immutable entry in a lot's audit ledger. Entries
// are append-only and written in the same transaction as the aggregate.
//
// QuantityBefore/QuantityAfter track the field the operation moved:
// reserved quantity for RESERVED/RELEASED, remaining quantity for
// everything else.
type QuantityChange struct {
	ID             string     `db:"id" json:"id"`
	LotBatchID     string     `db:"lot_batch_id" json:"lot_batch_id"`
	ChangeType     ChangeType `db:"change_type" json:"change_type"`
	QuantityBefore int64      `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int64      `db:"quantity_after" json:"quantity_after"`
	QuantityChange int64      `db:"quantity_change" json:"quantity_change"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	ReferenceID    *string    `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceType  *string    `db:"reference_type" json:"reference_type,omitempty"`
	PerformedBy    string     `db:"performed_by" json:"performed_by"`
	ChangedAt      time.Time  `db:"changed_at" json:"changed_at"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
}

// WithReference attaches the originating document to the entry.
// A nil id leaves the entry unreferenced.
func (c *QuantityChange) WithReference(refID, refType *string) *QuantityChange {
	if refID == nil {
		return c
	}
	c.ReferenceID = refID
	c.ReferenceType = refType
	return c
}

func newChange(l *LotBatch, changeType ChangeType, before, after int64, reason, performedBy string, now time.Time) *QuantityChange {
	entry := &QuantityChange{
		ID:             uuid.New().String(),
		LotBatchID:     l.ID,
		ChangeType:     changeType,
		QuantityBefore: before,
		QuantityAfter:  after,
		QuantityChange: after - before,
		PerformedBy:    performedBy,
		ChangedAt:      now,
	}
	if reason != "" {
		entry.Reason = &reason
	}
	return entry
}
