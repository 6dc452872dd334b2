package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowlytix/distribution-backend/pkg/errors"
)

// SortField names a sortable lot attribute
type SortField string

// Sortable fields
const (
	SortManufacturingDate SortField = "manufacturing_date"
	SortExpiryDate        SortField = "expiry_date"
	SortLotNumber         SortField = "lot_number"
	SortRemainingQuantity SortField = "remaining_quantity"
	SortStatus            SortField = "status"
	SortCreatedAt         SortField = "created_at"
	SortUpdatedAt         SortField = "updated_at"
)

// SortOrder is the sort direction
type SortOrder string

// Sort directions
const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// MaxExpiringWithinDays bounds the expiring-within filter
const MaxExpiringWithinDays = 3650

// SearchLimits carries the boundary-resolved pagination defaults. It is
// produced once from service configuration, never re-defaulted deeper in.
type SearchLimits struct {
	DefaultLimit   int
	MaxLimit       int
	NearExpiryDays int
}

// SearchRequest is the open set of optional filters a caller may supply.
// All fields are optional and independent; zero values mean "no filter".
type SearchRequest struct {
	// Associations: OR within a field, AND across fields
	ProductIDs  []string
	AgencyIDs   []string
	SupplierIDs []string
	CreatedBy   []string

	// Text filters
	SearchTerm      string
	LotNumber       string
	BatchNumber     string
	SupplierLotCode string

	// Status filter; empty plus IncludeInactive=false defaults to ACTIVE only
	Statuses        []Status
	IncludeInactive bool
	IncludeDeleted  bool

	// Quantity range over remaining quantity
	MinQuantity *int64
	MaxQuantity *int64

	// Date ranges, each after <= before
	ManufacturedAfter  *time.Time
	ManufacturedBefore *time.Time
	ExpiresAfter       *time.Time
	ExpiresBefore      *time.Time
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
	UpdatedAfter       *time.Time
	UpdatedBefore      *time.Time

	// Derived upper bound on days until expiry
	ExpiringWithinDays *int

	// Threshold handed to the expiry calculator, not a filter by itself
	NearExpiryDays int

	// Ordering; FIFO overrides SortBy/SortOrder
	FIFO      bool
	SortBy    SortField
	SortOrder SortOrder

	Limit  int
	Offset int
}

// SearchPlan is the compiled, fully-resolved filter and sort contract the
// repository executes. Compilation copies and validates every field; the
// caller's request is never mutated.
type SearchPlan struct {
	ProductIDs  []string
	AgencyIDs   []string
	SupplierIDs []string
	CreatedBy   []string

	SearchTerm      string
	LotNumber       string
	BatchNumber     string
	SupplierLotCode string

	Statuses       []Status
	IncludeDeleted bool

	MinQuantity *int64
	MaxQuantity *int64

	ManufacturedAfter  *time.Time
	ManufacturedBefore *time.Time
	ExpiresAfter       *time.Time
	ExpiresBefore      *time.Time
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
	UpdatedAfter       *time.Time
	UpdatedBefore      *time.Time

	ExpiringWithinDays *int
	NearExpiryDays     int

	// Effective ordering after the FIFO override
	SortBy      SortField
	SortOrder   SortOrder
	FIFOApplied bool

	Limit  int
	Offset int
}

var sortableFields = map[SortField]bool{
	SortManufacturingDate: true,
	SortExpiryDate:        true,
	SortLotNumber:         true,
	SortRemainingQuantity: true,
	SortStatus:            true,
	SortCreatedAt:         true,
	SortUpdatedAt:         true,
}

// CompileSearch resolves a request into an executable plan. Invalid
// combinations (min above max, inverted date ranges, unknown statuses or
// sort fields, malformed ids) are rejected here, before storage is touched.
func CompileSearch(req SearchRequest, limits SearchLimits) (*SearchPlan, error) {
	details := map[string]string{}

	checkIDs(details, "product_ids", req.ProductIDs)
	checkIDs(details, "agency_ids", req.AgencyIDs)
	checkIDs(details, "supplier_ids", req.SupplierIDs)
	checkIDs(details, "created_by", req.CreatedBy)

	for _, s := range req.Statuses {
		if !s.Valid() {
			details["statuses"] = fmt.Sprintf("unknown status %q", s)
		}
	}

	if req.MinQuantity != nil && *req.MinQuantity < 0 {
		details["min_quantity"] = "must not be negative"
	}
	if req.MaxQuantity != nil && *req.MaxQuantity < 0 {
		details["max_quantity"] = "must not be negative"
	}
	if req.MinQuantity != nil && req.MaxQuantity != nil && *req.MinQuantity > *req.MaxQuantity {
		details["min_quantity"] = "must not exceed max_quantity"
	}

	checkRange(details, "manufactured", req.ManufacturedAfter, req.ManufacturedBefore)
	checkRange(details, "expires", req.ExpiresAfter, req.ExpiresBefore)
	checkRange(details, "created", req.CreatedAfter, req.CreatedBefore)
	checkRange(details, "updated", req.UpdatedAfter, req.UpdatedBefore)

	if req.ExpiringWithinDays != nil && (*req.ExpiringWithinDays < 0 || *req.ExpiringWithinDays > MaxExpiringWithinDays) {
		details["expiring_within_days"] = fmt.Sprintf("must be between 0 and %d", MaxExpiringWithinDays)
	}
	if req.NearExpiryDays != 0 && (req.NearExpiryDays < MinNearExpiryDays || req.NearExpiryDays > MaxNearExpiryDays) {
		details["near_expiry_days"] = fmt.Sprintf("must be between %d and %d", MinNearExpiryDays, MaxNearExpiryDays)
	}

	if req.SortBy != "" && !sortableFields[req.SortBy] {
		details["sort_by"] = fmt.Sprintf("unknown sort field %q", req.SortBy)
	}
	if req.SortOrder != "" && req.SortOrder != SortAsc && req.SortOrder != SortDesc {
		details["sort_order"] = "must be ASC or DESC"
	}
	if req.Limit < 0 {
		details["limit"] = "must not be negative"
	} else if limits.MaxLimit > 0 && req.Limit > limits.MaxLimit {
		details["limit"] = fmt.Sprintf("must be at most %d", limits.MaxLimit)
	}
	if req.Offset < 0 {
		details["offset"] = "must not be negative"
	}

	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	plan := &SearchPlan{
		ProductIDs:  copyStrings(req.ProductIDs),
		AgencyIDs:   copyStrings(req.AgencyIDs),
		SupplierIDs: copyStrings(req.SupplierIDs),
		CreatedBy:   copyStrings(req.CreatedBy),

		SearchTerm:      req.SearchTerm,
		LotNumber:       req.LotNumber,
		BatchNumber:     req.BatchNumber,
		SupplierLotCode: req.SupplierLotCode,

		IncludeDeleted: req.IncludeDeleted,

		MinQuantity: req.MinQuantity,
		MaxQuantity: req.MaxQuantity,

		ManufacturedAfter:  req.ManufacturedAfter,
		ManufacturedBefore: req.ManufacturedBefore,
		ExpiresAfter:       req.ExpiresAfter,
		ExpiresBefore:      req.ExpiresBefore,
		CreatedAfter:       req.CreatedAfter,
		CreatedBefore:      req.CreatedBefore,
		UpdatedAfter:       req.UpdatedAfter,
		UpdatedBefore:      req.UpdatedBefore,

		ExpiringWithinDays: req.ExpiringWithinDays,

		Limit:  req.Limit,
		Offset: req.Offset,
	}

	// Status defaulting: an unfiltered request sees active lots only
	switch {
	case len(req.Statuses) > 0:
		plan.Statuses = append([]Status(nil), req.Statuses...)
	case !req.IncludeInactive:
		plan.Statuses = []Status{StatusActive}
	}

	plan.NearExpiryDays = req.NearExpiryDays
	if plan.NearExpiryDays == 0 {
		plan.NearExpiryDays = limits.NearExpiryDays
	}
	if plan.NearExpiryDays == 0 {
		plan.NearExpiryDays = DefaultNearExpiryDays
	}

	if plan.Limit == 0 {
		plan.Limit = limits.DefaultLimit
	}
	if plan.Limit == 0 {
		plan.Limit = 100
	}

	// FIFO forces the effective ordering regardless of the requested sort,
	// and the plan reports the override back to the caller
	if req.FIFO || req.SortBy == "" {
		plan.SortBy = SortManufacturingDate
		plan.SortOrder = SortAsc
		plan.FIFOApplied = req.FIFO
	} else {
		plan.SortBy = req.SortBy
		plan.SortOrder = req.SortOrder
		if plan.SortOrder == "" {
			plan.SortOrder = SortAsc
		}
	}

	return plan, nil
}

func checkIDs(details map[string]string, field string, ids []string) {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			details[field] = fmt.Sprintf("%q is not a valid UUID", id)
			return
		}
	}
}

func checkRange(details map[string]string, field string, after, before *time.Time) {
	if after != nil && before != nil && after.After(*before) {
		details[field+"_after"] = "must not be later than " + field + "_before"
	}
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
