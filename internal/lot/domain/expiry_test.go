package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
)

func TestComputeExpiry_NoExpiryDate(t *testing.T) {
	status := domain.ComputeExpiry(nil, testNow, 30)

	assert.False(t, status.IsExpired)
	assert.False(t, status.IsNearExpiry)
	assert.Nil(t, status.DaysUntilExpiry)
}

func TestComputeExpiry_NearExpiry(t *testing.T) {
	// 16 days out with a 30 day threshold
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	status := domain.ComputeExpiry(&expiry, now, 30)

	assert.False(t, status.IsExpired)
	assert.True(t, status.IsNearExpiry)
	require.NotNil(t, status.DaysUntilExpiry)
	assert.Equal(t, 16, *status.DaysUntilExpiry)
}

func TestComputeExpiry_NotNearExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	status := domain.ComputeExpiry(&expiry, now, 30)

	assert.False(t, status.IsExpired)
	assert.False(t, status.IsNearExpiry)
	require.NotNil(t, status.DaysUntilExpiry)
	assert.Equal(t, 213, *status.DaysUntilExpiry)
}

func TestComputeExpiry_Expired(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	status := domain.ComputeExpiry(&expiry, now, 30)

	assert.True(t, status.IsExpired)
	assert.False(t, status.IsNearExpiry)
	require.NotNil(t, status.DaysUntilExpiry)
	assert.LessOrEqual(t, *status.DaysUntilExpiry, 0)
}

func TestComputeExpiry_ExactBoundary(t *testing.T) {
	expiry := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	// At the exact expiry instant the lot is not yet expired
	status := domain.ComputeExpiry(&expiry, expiry, 30)
	assert.False(t, status.IsExpired)

	// One nanosecond later it is
	status = domain.ComputeExpiry(&expiry, expiry.Add(time.Nanosecond), 30)
	assert.True(t, status.IsExpired)
}

func TestComputeExpiry_PartialDayRoundsUp(t *testing.T) {
	now := time.Date(2024, 12, 30, 18, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	status := domain.ComputeExpiry(&expiry, now, 30)

	require.NotNil(t, status.DaysUntilExpiry)
	assert.Equal(t, 1, *status.DaysUntilExpiry)
}

func TestComputeExpiry_ThresholdOutOfRangeFallsBack(t *testing.T) {
	now := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	// 16 days out: near under the default threshold of 30
	for _, threshold := range []int{0, -1, 366} {
		status := domain.ComputeExpiry(&expiry, now, threshold)
		assert.True(t, status.IsNearExpiry, "threshold %d", threshold)
	}
}
