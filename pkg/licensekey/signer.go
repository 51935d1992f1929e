package licensekey

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod is the only algorithm license tokens are signed or accepted with.
var SigningMethod = jwt.SigningMethodRS256

// ErrExpiryNotAfterIssue is returned when a token would be expired at issuance.
var ErrExpiryNotAfterIssue = errors.New("license expiry must be after issuance")

// Signer produces RS256 license tokens.
type Signer struct {
	key    *rsa.PrivateKey
	issuer string
	keyID  string
}

type SignerOption func(*Signer)

// WithIssuer sets the informational iss claim.
func WithIssuer(issuer string) SignerOption {
	return func(s *Signer) {
		s.issuer = strings.TrimSpace(issuer)
	}
}

// WithKeyID sets the kid header so verifiers can pick a key during rotation.
func WithKeyID(keyID string) SignerOption {
	return func(s *Signer) {
		s.keyID = strings.TrimSpace(keyID)
	}
}

func NewSigner(key *rsa.PrivateKey, opts ...SignerOption) (*Signer, error) {
	if key == nil {
		return nil, ErrKeyNotConfigured
	}
	s := &Signer{key: key}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignInput carries the snapshots and instants embedded in a license.
type SignInput struct {
	Gym       GymSnapshot
	Owner     OwnerSnapshot
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Sign builds the license claims and signs them. Instants are truncated to Unix seconds.
func (s *Signer) Sign(in SignInput) (string, error) {
	if strings.TrimSpace(in.Gym.ID) == "" || strings.TrimSpace(in.Owner.ID) == "" {
		return "", fmt.Errorf("gym and owner ids are required")
	}

	issuedAt := in.IssuedAt.Unix()
	expiresAt := in.ExpiresAt.Unix()
	if expiresAt <= issuedAt {
		return "", ErrExpiryNotAfterIssue
	}

	gym := in.Gym
	owner := in.Owner
	claims := Claims{
		Gym:           &gym,
		Owner:         &owner,
		IssuedAtUnix:  issuedAt,
		ExpiresAtUnix: expiresAt,
		Type:          TokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   gym.ID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(issuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(expiresAt, 0)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(SigningMethod, claims)
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing license: %w", err)
	}
	return signed, nil
}
