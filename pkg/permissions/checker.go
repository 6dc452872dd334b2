// Package permissions provides utilities for checking a user's permission
// array against required permissions with support for wildcards.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "lots.*")
//   - "resource.action" - Specific action (e.g., "lots.read")
package permissions

import (
	"strings"
)

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "lots.*" matches "lots.read", "lots.adjust", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true // No permission required
	}

	for _, p := range userPerms {
		if p == "*" {
			return true // Full admin access
		}
		if p == required {
			return true // Exact match
		}
		// Check wildcard patterns like "lots.*"
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks if the user has all of the required permissions.
func HasAllPermissions(userPerms []string, required []string) bool {
	for _, req := range required {
		if !HasPermission(userPerms, req) {
			return false
		}
	}
	return true
}

// Permissions checked by the lot service.
const (
	LotRead   = "lots.read"
	LotCreate = "lots.create"
	LotUpdate = "lots.update"
	LotAdjust = "lots.adjust"
	LotDelete = "lots.delete"
)

// CommonPermissions is a list of standard permissions used in Flowlytix.
// This can be used for validation and autocomplete.
var CommonPermissions = []string{
	// Lot/batch permissions
	LotRead,
	LotCreate,
	LotUpdate,
	LotAdjust,
	LotDelete,
	"lots.*",

	// Product permissions
	"products.read",
	"products.write",
	"products.delete",
	"products.*",

	// Agency permissions
	"agencies.read",
	"agencies.write",
	"agencies.*",

	// Reports permissions
	"reports.read",
	"reports.generate",
	"reports.export",
	"reports.*",

	// Full access
	"*",
}

// IsValidPermission checks if a permission string is in the known list.
// Allows wildcards and custom permissions not in the standard list.
func IsValidPermission(perm string) bool {
	if perm == "*" {
		return true
	}

	for _, p := range CommonPermissions {
		if p == perm {
			return true
		}
	}

	// Allow any permission that follows the pattern resource.action
	parts := strings.Split(perm, ".")
	return len(parts) >= 2
}
