package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/distribution-backend/pkg/config"
)

func newTestVerifier() *Verifier {
	return NewVerifier(&config.AuthConfig{Secret: "test-secret", Issuer: "flowlytix"})
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := newTestVerifier()

	token, err := v.Issue(&UserInfo{
		ID:          "8f1e8a1a-9f2b-4a39-9d3c-22c0a6f3a111",
		Email:       "warehouse@flowlytix.io",
		Name:        "Warehouse Operator",
		Role:        "operator",
		Permissions: []string{"lots.read", "lots.adjust"},
		AgencyID:    "c1f1d0aa-1111-4222-8333-944444444444",
	}, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "warehouse@flowlytix.io", claims.Email)
	assert.Equal(t, []string{"lots.read", "lots.adjust"}, claims.Permissions)
	assert.Equal(t, "c1f1d0aa-1111-4222-8333-944444444444", claims.AgencyID)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	v := newTestVerifier()

	token, err := v.Issue(&UserInfo{ID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	v := newTestVerifier()
	other := NewVerifier(&config.AuthConfig{Secret: "other-secret", Issuer: "flowlytix"})

	token, err := other.Issue(&UserInfo{ID: "u1"}, time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	v := newTestVerifier()
	_, err := v.Verify("not-a-token")
	assert.Error(t, err)
}
