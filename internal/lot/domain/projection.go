package domain

import (
	"fmt"
	"time"
)

// Projections are pure read-time views over the aggregate. They recompute
// every derived field against the caller's clock and never write back.

// Summary is the search-result view of a lot
type Summary struct {
	ID                    string     `json:"id"`
	LotNumber             string     `json:"lot_number"`
	BatchNumber           *string    `json:"batch_number,omitempty"`
	LotBatchCode          string     `json:"lot_batch_code"`
	ProductID             string     `json:"product_id"`
	AgencyID              string     `json:"agency_id"`
	SupplierID            *string    `json:"supplier_id,omitempty"`
	SupplierLotCode       *string    `json:"supplier_lot_code,omitempty"`
	ManufacturingDate     time.Time  `json:"manufacturing_date"`
	ExpiryDate            *time.Time `json:"expiry_date,omitempty"`
	Quantity              int64      `json:"quantity"`
	RemainingQuantity     int64      `json:"remaining_quantity"`
	ReservedQuantity      int64      `json:"reserved_quantity"`
	AvailableQuantity     int64      `json:"available_quantity"`
	ConsumedQuantity      int64      `json:"consumed_quantity"`
	UtilizationPercentage int        `json:"utilization_percentage"`
	Status                Status     `json:"status"`
	IsExpired             bool       `json:"is_expired"`
	IsNearExpiry          bool       `json:"is_near_expiry"`
	DaysUntilExpiry       *int       `json:"days_until_expiry,omitempty"`
	IsAvailable           bool       `json:"is_available"`
	IsFullyConsumed       bool       `json:"is_fully_consumed"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	DeletedAt             *time.Time `json:"deleted_at,omitempty"`
}

// ListItem is the compact selection-oriented view
type ListItem struct {
	ID                string     `json:"id"`
	LotBatchCode      string     `json:"lot_batch_code"`
	DisplayText       string     `json:"display_text"`
	SortKey           string     `json:"sort_key"`
	RemainingQuantity int64      `json:"remaining_quantity"`
	AvailableQuantity int64      `json:"available_quantity"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Status            Status     `json:"status"`
	IsNearExpiry      bool       `json:"is_near_expiry"`
}

// Detail is the full view: the summary plus the quantity ledger and
// sibling lots of the same product.
type Detail struct {
	Summary
	Notes       *string           `json:"notes,omitempty"`
	CreatedBy   string            `json:"created_by"`
	UpdatedBy   *string           `json:"updated_by,omitempty"`
	Version     int64             `json:"version"`
	History     []*QuantityChange `json:"history,omitempty"`
	RelatedLots []*Summary        `json:"related_lots,omitempty"`
}

// NewSummary projects a lot into its search-result view
func NewSummary(l *LotBatch, now time.Time, nearExpiryDays int) *Summary {
	expiry := ComputeExpiry(l.ExpiryDate, now, nearExpiryDays)

	return &Summary{
		ID:                    l.ID,
		LotNumber:             l.LotNumber,
		BatchNumber:           l.BatchNumber,
		LotBatchCode:          l.LotBatchCode(),
		ProductID:             l.ProductID,
		AgencyID:              l.AgencyID,
		SupplierID:            l.SupplierID,
		SupplierLotCode:       l.SupplierLotCode,
		ManufacturingDate:     l.ManufacturingDate,
		ExpiryDate:            l.ExpiryDate,
		Quantity:              l.Quantity,
		RemainingQuantity:     l.RemainingQuantity,
		ReservedQuantity:      l.ReservedQuantity,
		AvailableQuantity:     l.AvailableQuantity(),
		ConsumedQuantity:      l.ConsumedQuantity(),
		UtilizationPercentage: l.UtilizationPercentage(),
		Status:                l.Status,
		IsExpired:             expiry.IsExpired,
		IsNearExpiry:          expiry.IsNearExpiry,
		DaysUntilExpiry:       expiry.DaysUntilExpiry,
		IsAvailable:           l.IsAvailable(now, nearExpiryDays),
		IsFullyConsumed:       l.IsFullyConsumed(),
		CreatedAt:             l.CreatedAt,
		UpdatedAt:             l.UpdatedAt,
		DeletedAt:             l.DeletedAt,
	}
}

// NewListItem projects a lot into its compact list view
func NewListItem(l *LotBatch, now time.Time, nearExpiryDays int) *ListItem {
	expiry := ComputeExpiry(l.ExpiryDate, now, nearExpiryDays)

	return &ListItem{
		ID:                l.ID,
		LotBatchCode:      l.LotBatchCode(),
		DisplayText:       displayText(l, expiry),
		SortKey:           sortKey(l),
		RemainingQuantity: l.RemainingQuantity,
		AvailableQuantity: l.AvailableQuantity(),
		ExpiryDate:        l.ExpiryDate,
		Status:            l.Status,
		IsNearExpiry:      expiry.IsNearExpiry,
	}
}

// NewDetail projects a lot with its ledger and related lots
func NewDetail(l *LotBatch, history []*QuantityChange, related []*LotBatch, now time.Time, nearExpiryDays int) *Detail {
	d := &Detail{
		Summary:   *NewSummary(l, now, nearExpiryDays),
		Notes:     l.Notes,
		CreatedBy: l.CreatedBy,
		UpdatedBy: l.UpdatedBy,
		Version:   l.Version,
		History:   history,
	}
	for _, r := range related {
		if r.ID == l.ID {
			continue
		}
		d.RelatedLots = append(d.RelatedLots, NewSummary(r, now, nearExpiryDays))
	}
	return d
}

func displayText(l *LotBatch, expiry ExpiryStatus) string {
	text := fmt.Sprintf("%s | avail: %d", l.LotBatchCode(), l.AvailableQuantity())
	if l.ExpiryDate != nil {
		text += " | exp: " + l.ExpiryDate.Format("2006-01-02")
		if expiry.IsExpired {
			text += " (EXPIRED)"
		}
	}
	return text
}

// sortKey gives clients a stable string to group and order by without
// re-implementing the FIFO comparator
func sortKey(l *LotBatch) string {
	batch := ""
	if l.BatchNumber != nil {
		batch = *l.BatchNumber
	}
	return fmt.Sprintf("%s|%s|%s", l.ManufacturingDate.UTC().Format("2006-01-02"), l.LotNumber, batch)
}
