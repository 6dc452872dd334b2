package domain

import (
	"math"
	"time"
)

// Near-expiry threshold bounds
const (
	DefaultNearExpiryDays = 30
	MinNearExpiryDays     = 1
	MaxNearExpiryDays     = 365
)

// ExpiryStatus is the computed expiry picture of a lot at a point in time
type ExpiryStatus struct {
	IsExpired       bool `json:"is_expired"`
	IsNearExpiry    bool `json:"is_near_expiry"`
	DaysUntilExpiry *int `json:"days_until_expiry,omitempty"`
}

// ComputeExpiry evaluates an expiry date against the given clock. A nil
// expiry date means the lot never expires. Days until expiry are counted
// in whole days rounded up, clamped to zero while the lot is still good;
// for an expired lot the raw (zero or negative) count is reported as is.
func ComputeExpiry(expiryDate *time.Time, now time.Time, nearExpiryDays int) ExpiryStatus {
	if expiryDate == nil {
		return ExpiryStatus{}
	}
	if nearExpiryDays < MinNearExpiryDays || nearExpiryDays > MaxNearExpiryDays {
		nearExpiryDays = DefaultNearExpiryDays
	}

	days := int(math.Ceil(expiryDate.Sub(now).Hours() / 24))
	expired := now.After(*expiryDate)
	if !expired && days < 0 {
		days = 0
	}

	return ExpiryStatus{
		IsExpired:       expired,
		IsNearExpiry:    !expired && days <= nearExpiryDays,
		DaysUntilExpiry: &days,
	}
}
