package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting an operator token.
type AccessTokenPayload struct {
	UserID string
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims is the HS256 token presented on privileged routes.
type AccessTokenClaims struct {
	UserID string     `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}
