package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// Mastery permissions
	ReadMasteryPermission    = "read:mastery"
	ReadAllMasteryPermission = "read:mastery:all"
	WriteMasteryPermission   = "write:mastery"
	AdjustMasteryPermission  = "adjust:mastery"
	ResetMasteryPermission   = "reset:mastery"

	// Prerequisite permissions
	ReadPrerequisitePermission  = "read:prerequisite"
	WritePrerequisitePermission = "write:prerequisite"

	// Adaptive learning permissions
	ReadAdaptivePermission  = "read:adaptive"
	WriteAdaptivePermission = "write:adaptive"

	// Admin permissions (for backward compatibility)
	AdminPermission   = "admin"
	ManagerPermission = "manager"
)

// Requests arrive through the API gateway, which authenticates the caller
// and forwards identity in these headers.
const (
	HeaderUserID      = "X-User-ID"
	HeaderPermissions = "X-User-Permissions"
	HeaderOwnerID     = "X-Owner-ID"
)

// PermissionRequired rejects requests whose forwarded permission list does
// not contain the given permission. Admin always passes.
func PermissionRequired(permission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		permissions := c.Get(HeaderPermissions)
		if HasPermission(permissions, permission) || HasPermission(permissions, AdminPermission) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// RequireAnyPermission passes when the caller holds at least one of the
// listed permissions.
func RequireAnyPermission(permissions ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		held := c.Get(HeaderPermissions)
		for _, p := range permissions {
			if HasPermission(held, p) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// HasPermission reports whether the comma-delimited permission list contains
// the given permission.
func HasPermission(permissionList, permission string) bool {
	for _, p := range strings.Split(permissionList, ",") {
		if strings.TrimSpace(p) == permission {
			return true
		}
	}
	return false
}

// HasElevatedPermissions reports whether the permission list carries an
// admin or manager role.
func HasElevatedPermissions(permissionList string) bool {
	return HasPermission(permissionList, AdminPermission) || HasPermission(permissionList, ManagerPermission)
}

// CanReadStudent reports whether a caller may read another student's data.
// Students read their own records freely; anyone else needs an elevated role
// or read:mastery:all.
func CanReadStudent(userID, permissionList, studentID string) bool {
	if userID != "" && userID == studentID {
		return true
	}
	return HasElevatedPermissions(permissionList) || HasPermission(permissionList, ReadAllMasteryPermission)
}

// OwnerID extracts the tenant scope the gateway resolved for this request.
// Every query in the service filters on it.
func OwnerID(c fiber.Ctx) (bson.ObjectID, error) {
	raw := c.Get(HeaderOwnerID)
	if raw == "" {
		return bson.ObjectID{}, fmt.Errorf("missing owner ID header")
	}
	ownerID, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("invalid owner ID format: %w", err)
	}
	return ownerID, nil
}

// CurrentUserID extracts the authenticated caller's user ID
func CurrentUserID(c fiber.Ctx) string {
	return c.Get(HeaderUserID)
}
