package model

import "github.com/google/uuid"

// Role is the coarse authorization role supplied by the identity provider.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	// RoleSystem is used for transitions driven by internal collaborators.
	RoleSystem Role = "system"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// NewCustomer returns a customer actor.
func NewCustomer(userID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: RoleCustomer}
}

// NewAdmin returns an admin actor.
func NewAdmin(userID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: RoleAdmin}
}

// IsAdmin reports whether the actor may perform admin-only operations.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// CanAccess reports whether the actor may read or act on a resource owned by ownerID.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsAdmin() || (a.UserID != uuid.Nil && a.UserID == ownerID)
}
