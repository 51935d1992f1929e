package licensekey

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType is the discriminator carried by every license token. Tokens of any
// other purpose signed with the same key are rejected as invalid-type.
const TokenType = "license"

// GymSnapshot is the gym identity captured at issuance time.
type GymSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// OwnerSnapshot is the owner identity captured at issuance time. Password is
// only present when the issuer was given one for first-login bootstrap.
type OwnerSnapshot struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Email       *string `json:"email,omitempty"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Password    *string `json:"password,omitempty"`
}

// Claims is the signed license payload. IssuedAtUnix and ExpiresAtUnix mirror
// the registered iat/exp claims so the payload can be checked without relying
// on the jwt library's clock handling.
type Claims struct {
	Gym           *GymSnapshot   `json:"gym,omitempty"`
	Owner         *OwnerSnapshot `json:"owner,omitempty"`
	IssuedAtUnix  int64          `json:"issuedAt"`
	ExpiresAtUnix int64          `json:"expiresAt"`
	Type          string         `json:"type"`
	jwt.RegisteredClaims
}

// GymID returns the gym id from the payload, or "" when the gym is absent.
func (c *Claims) GymID() string {
	if c == nil || c.Gym == nil {
		return ""
	}
	return c.Gym.ID
}

// OwnerID returns the owner id from the payload, or "" when the owner is absent.
func (c *Claims) OwnerID() string {
	if c == nil || c.Owner == nil {
		return ""
	}
	return c.Owner.ID
}

func (c *Claims) IssuedAt() time.Time {
	return time.Unix(c.IssuedAtUnix, 0).UTC()
}

func (c *Claims) ExpiresAt() time.Time {
	return time.Unix(c.ExpiresAtUnix, 0).UTC()
}

// complete reports whether both identity snapshots are present.
func (c *Claims) complete() bool {
	return c.Gym != nil && c.Owner != nil && c.Gym.ID != "" && c.Owner.ID != ""
}
