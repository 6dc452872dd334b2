package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_StripsEmails(t *testing.T) {
	out := Sanitize("notify admin@flowlytix.io about the failure")
	assert.Equal(t, "notify [EMAIL] about the failure", out)
}

func TestSanitize_StripsIPs(t *testing.T) {
	out := Sanitize("dial tcp 10.0.12.4:5432: connection refused")
	assert.Equal(t, "dial tcp [IP]: connection refused", out)
}

func TestSanitize_StripsPaths(t *testing.T) {
	out := Sanitize("open /var/lib/postgres/data.conf: permission denied")
	assert.Equal(t, "open [PATH]: permission denied", out)
}

func TestSanitize_GenericFallbackWhenNothingLeft(t *testing.T) {
	out := Sanitize("/etc/secrets/db.yaml")
	assert.Equal(t, genericFailureMessage, out)

	out = Sanitize("admin@flowlytix.io: 192.168.0.1")
	assert.Equal(t, genericFailureMessage, out)
}

func TestSanitize_LeavesPlainMessagesAlone(t *testing.T) {
	msg := "lot LOT-2024-001 already exists for this product"
	assert.Equal(t, msg, Sanitize(msg))
}

func TestInternalFromErr_SanitizesMessage(t *testing.T) {
	err := InternalFromErr(assert.AnError)
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestQuantityAndConcurrencyKinds(t *testing.T) {
	qe := Quantity("INSUFFICIENT_AVAILABLE", "cannot reserve 10, only 4 available")
	assert.ErrorIs(t, qe, ErrQuantity)
	assert.Equal(t, 422, qe.StatusCode)

	ce := Concurrency("lot batch")
	assert.ErrorIs(t, ce, ErrConcurrency)
	assert.Equal(t, 409, ce.StatusCode)
	assert.Contains(t, ce.Message, "retry with fresh state")
}
