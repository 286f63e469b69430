package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Token type values carried in the "type" claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTService issues and validates the access and refresh tokens learners
// authenticate with.
type JWTService interface {
	// GenerateToken creates a signed access token for the learner.
	GenerateToken(ctx context.Context, learnerID uuid.UUID) (string, error)

	// ValidateToken checks an access token's signature, expiry and type,
	// returning its claims on success.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a signed refresh token. Refresh tokens
	// outlive access tokens and are exchanged for new ones.
	GenerateRefreshToken(ctx context.Context, learnerID uuid.UUID) (string, error)

	// ValidateRefreshToken checks a refresh token and returns its claims.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the decoded content of a token after validation.
type Claims struct {
	// LearnerID identifies the learner the token was issued for.
	LearnerID uuid.UUID `json:"uid,omitempty"`

	// TokenType is "access" or "refresh"; validation rejects a token
	// presented in the wrong role.
	TokenType string `json:"type,omitempty"`

	// Registered JWT claims.
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
