// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"slices"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/i18n"
)

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Default role for registered users
	RoleUser UserRole = "user"

	// Can reach moderation routes
	RoleModerator UserRole = "moderator"

	// Unrestricted system access
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// # Role Gates

// Every gate lists its roles explicitly. There is no ordering between roles,
// so adding a role never silently widens an existing gate.
var (
	ModeratorOrAdmin = []UserRole{RoleModerator, RoleAdmin}
	AdminOnly        = []UserRole{RoleAdmin}
)

// ErrInsufficientRole is returned when an identity's role is outside a gate.
var ErrInsufficientRole = apperr.Forbidden(i18n.MsgInsufficientRights).WithReason("INSUFFICIENT_ROLE")

// RequireRole fails with [ErrInsufficientRole] unless role is one of allowed.
func RequireRole(role UserRole, allowed ...UserRole) error {
	if slices.Contains(allowed, role) {
		return nil
	}
	return ErrInsufficientRole
}

// # Identity

// Identity is the minimal, already-authenticated principal attached to a request.
// Packages outside the session core use it instead of the full user record.
type Identity struct {
	UserID   int64
	Username string
	Role     UserRole
}
