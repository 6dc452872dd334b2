package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/pkg/errors"
	"github.com/flowlytix/distribution-backend/pkg/testutil"
)

var testLimits = domain.SearchLimits{
	DefaultLimit:   100,
	MaxLimit:       10000,
	NearExpiryDays: 30,
}

func TestCompileSearch_EmptyRequestResolvesDefaults(t *testing.T) {
	plan, err := domain.CompileSearch(domain.SearchRequest{}, testLimits)
	require.NoError(t, err)

	assert.Equal(t, []domain.Status{domain.StatusActive}, plan.Statuses)
	assert.Equal(t, domain.SortManufacturingDate, plan.SortBy)
	assert.Equal(t, domain.SortAsc, plan.SortOrder)
	assert.False(t, plan.FIFOApplied)
	assert.Equal(t, 100, plan.Limit)
	assert.Equal(t, 0, plan.Offset)
	assert.Equal(t, 30, plan.NearExpiryDays)
	assert.False(t, plan.IncludeDeleted)
}

func TestCompileSearch_FIFOOverridesRequestedSort(t *testing.T) {
	plan, err := domain.CompileSearch(domain.SearchRequest{
		FIFO:      true,
		SortBy:    domain.SortExpiryDate,
		SortOrder: domain.SortDesc,
	}, testLimits)
	require.NoError(t, err)

	assert.Equal(t, domain.SortManufacturingDate, plan.SortBy)
	assert.Equal(t, domain.SortAsc, plan.SortOrder)
	assert.True(t, plan.FIFOApplied)
}

func TestCompileSearch_RequestedSortKeptWithoutFIFO(t *testing.T) {
	plan, err := domain.CompileSearch(domain.SearchRequest{
		SortBy:    domain.SortExpiryDate,
		SortOrder: domain.SortDesc,
	}, testLimits)
	require.NoError(t, err)

	assert.Equal(t, domain.SortExpiryDate, plan.SortBy)
	assert.Equal(t, domain.SortDesc, plan.SortOrder)
	assert.False(t, plan.FIFOApplied)
}

func TestCompileSearch_StatusDefaulting(t *testing.T) {
	// Explicit statuses pass through
	plan, err := domain.CompileSearch(domain.SearchRequest{
		Statuses: []domain.Status{domain.StatusExpired, domain.StatusDamaged},
	}, testLimits)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Status{domain.StatusExpired, domain.StatusDamaged}, plan.Statuses)

	// IncludeInactive without explicit statuses lifts the filter entirely
	plan, err = domain.CompileSearch(domain.SearchRequest{IncludeInactive: true}, testLimits)
	require.NoError(t, err)
	assert.Empty(t, plan.Statuses)
}

func TestCompileSearch_EmptyTextFiltersAreNoFilter(t *testing.T) {
	plan, err := domain.CompileSearch(domain.SearchRequest{
		SearchTerm: "",
		LotNumber:  "",
	}, testLimits)
	require.NoError(t, err)
	assert.Empty(t, plan.SearchTerm)
	assert.Empty(t, plan.LotNumber)
}

func TestCompileSearch_Rejections(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		req   domain.SearchRequest
		field string
	}{
		{"min above max", domain.SearchRequest{
			MinQuantity: testutil.PtrInt64(10),
			MaxQuantity: testutil.PtrInt64(5),
		}, "min_quantity"},
		{"negative min", domain.SearchRequest{MinQuantity: testutil.PtrInt64(-1)}, "min_quantity"},
		{"inverted manufactured range", domain.SearchRequest{
			ManufacturedAfter:  &dec,
			ManufacturedBefore: &jan,
		}, "manufactured_after"},
		{"inverted expiry range", domain.SearchRequest{
			ExpiresAfter:  &dec,
			ExpiresBefore: &jan,
		}, "expires_after"},
		{"expiring within out of range", domain.SearchRequest{
			ExpiringWithinDays: testutil.PtrInt(3651),
		}, "expiring_within_days"},
		{"near expiry out of range", domain.SearchRequest{NearExpiryDays: 400}, "near_expiry_days"},
		{"unknown status", domain.SearchRequest{
			Statuses: []domain.Status{"RECALLED"},
		}, "statuses"},
		{"unknown sort field", domain.SearchRequest{SortBy: "color"}, "sort_by"},
		{"bad sort order", domain.SearchRequest{
			SortBy:    domain.SortLotNumber,
			SortOrder: "sideways",
		}, "sort_order"},
		{"malformed product id", domain.SearchRequest{
			ProductIDs: []string{"not-a-uuid"},
		}, "product_ids"},
		{"limit above max", domain.SearchRequest{Limit: 10001}, "limit"},
		{"negative offset", domain.SearchRequest{Offset: -1}, "offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.CompileSearch(tt.req, testLimits)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

func TestCompileSearch_DoesNotMutateRequest(t *testing.T) {
	req := domain.SearchRequest{
		ProductIDs: []string{"0a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d"},
		Statuses:   []domain.Status{domain.StatusActive, domain.StatusQuarantine},
	}

	plan, err := domain.CompileSearch(req, testLimits)
	require.NoError(t, err)

	plan.ProductIDs[0] = "mutated"
	plan.Statuses[0] = domain.StatusDamaged

	assert.Equal(t, "0a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d", req.ProductIDs[0])
	assert.Equal(t, domain.StatusActive, req.Statuses[0])
}

func TestCompileSearch_AssociationSetsSurvive(t *testing.T) {
	plan, err := domain.CompileSearch(domain.SearchRequest{
		ProductIDs: []string{
			"0a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d",
			"1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5e",
		},
		SupplierIDs: []string{"2a3b4c5d-6e7f-4a8b-9c0d-1e2f3a4b5c6d"},
	}, testLimits)
	require.NoError(t, err)

	assert.Len(t, plan.ProductIDs, 2)
	assert.Len(t, plan.SupplierIDs, 1)
}
