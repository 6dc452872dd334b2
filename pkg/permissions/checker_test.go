package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		perms    []string
		required string
		want     bool
	}{
		{"exact match", []string{"lots.read"}, "lots.read", true},
		{"full wildcard", []string{"*"}, "lots.delete", true},
		{"resource wildcard", []string{"lots.*"}, "lots.adjust", true},
		{"wildcard does not leak across resources", []string{"lots.*"}, "products.read", false},
		{"missing permission", []string{"lots.read"}, "lots.create", false},
		{"empty requirement always passes", []string{}, "", true},
		{"empty permission set", nil, "lots.read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.perms, tt.required))
		})
	}
}

func TestHasAnyPermission(t *testing.T) {
	perms := []string{"lots.read"}
	assert.True(t, HasAnyPermission(perms, []string{"lots.adjust", "lots.read"}))
	assert.False(t, HasAnyPermission(perms, []string{"lots.adjust", "lots.delete"}))
}

func TestHasAllPermissions(t *testing.T) {
	perms := []string{"lots.*"}
	assert.True(t, HasAllPermissions(perms, []string{"lots.read", "lots.adjust"}))
	assert.False(t, HasAllPermissions(perms, []string{"lots.read", "products.read"}))
}

func TestIsValidPermission(t *testing.T) {
	assert.True(t, IsValidPermission("*"))
	assert.True(t, IsValidPermission("lots.read"))
	assert.True(t, IsValidPermission("custom.action"))
	assert.False(t, IsValidPermission("malformed"))
}
