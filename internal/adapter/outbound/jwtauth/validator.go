// Package jwtauth validates bearer tokens issued by the identity provider.
package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds token validation settings.
type Config struct {
	Secret string
	Issuer string
	Leeway time.Duration
}

// Claims are the token claims the storefront reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// validator implements outbound.TokenValidatorPort.
type validator struct {
	secret []byte
	parser *jwt.Parser
}

// NewValidator creates an HS256 token validator.
func NewValidator(cfg Config) outbound.TokenValidatorPort {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &validator{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}
}

func (v *validator) ValidateToken(tokenString string) (*outbound.JWTClaims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.New("invalid user ID in token")
	}

	// Tokens without a role claim belong to customers.
	role := model.Role(claims.Role)
	if role == "" {
		role = model.RoleCustomer
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q in token", claims.Role)
	}

	return &outbound.JWTClaims{
		UserID: userID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

// Sign issues an HS256 token for userID. It backs local tooling and tests; production
// tokens come from the identity provider.
func Sign(secret, issuer string, userID uuid.UUID, email string, role model.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  string(role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Compile-time check
var _ outbound.TokenValidatorPort = (*validator)(nil)
