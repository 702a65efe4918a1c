package middleware

import (
	"net/http"
	"strings"

	"github.com/emberwick/storefront/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SystemRoleAuthorizer grants the admin role to allow-listed accounts in addition to
// tokens that already carry the admin role claim.
type SystemRoleAuthorizer struct {
	adminEmails  map[string]struct{}
	adminUserIDs map[uuid.UUID]struct{}
}

// NewSystemRoleAuthorizer creates an authorizer from configured emails and user IDs.
// Malformed IDs are ignored.
func NewSystemRoleAuthorizer(adminEmails, adminUserIDs []string) *SystemRoleAuthorizer {
	return &SystemRoleAuthorizer{
		adminEmails:  normalizeEmailSet(adminEmails),
		adminUserIDs: parseUUIDSet(adminUserIDs),
	}
}

// IsAdmin reports whether the account is allow-listed as an admin.
func (a *SystemRoleAuthorizer) IsAdmin(userID uuid.UUID, email string) bool {
	if a == nil {
		return false
	}
	if userID != uuid.Nil {
		if _, ok := a.adminUserIDs[userID]; ok {
			return true
		}
	}
	if email = normalizeEmail(email); email != "" {
		if _, ok := a.adminEmails[email]; ok {
			return true
		}
	}
	return false
}

// ResolveRoles upgrades allow-listed accounts to the admin role. It runs after Auth.
func ResolveRoles(authorizer *SystemRoleAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) && authorizer.IsAdmin(GetUserID(c), GetEmail(c)) {
			c.Set(RoleKey, model.RoleAdmin)
		}
		c.Next()
	}
}

// RequireAdmin aborts unless the resolved actor is an admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
			return
		}
		if !GetActor(c).IsAdmin() {
			abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

func normalizeEmailSet(emails []string) map[string]struct{} {
	out := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseUUIDSet(ids []string) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}
