package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      enums.UserRole
	JTI       string
}

// AccessTokenClaims is the typed JWT presented by storefront and staff clients.
// The profile fields let the API provision a local user row on first sight.
type AccessTokenClaims struct {
	UserID    uuid.UUID      `json:"user_id"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Role      enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
