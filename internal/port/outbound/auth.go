package outbound

import (
	"github.com/emberwick/storefront/internal/model"
	"github.com/google/uuid"
)

// JWTClaims is the identity asserted by a validated bearer token.
type JWTClaims struct {
	UserID uuid.UUID
	Email  string
	Role   model.Role
}

// TokenValidatorPort validates bearer tokens issued by the identity provider.
type TokenValidatorPort interface {
	ValidateToken(token string) (*JWTClaims, error)
}
