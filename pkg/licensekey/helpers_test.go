package licensekey

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	keysOnce   sync.Once
	primaryKey *rsa.PrivateKey
	otherKey   *rsa.PrivateKey
	keysErr    error
)

// testKeys returns two distinct key pairs shared by the package tests.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		primaryKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
		if keysErr != nil {
			return
		}
		otherKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keysErr != nil {
		t.Fatalf("generate keys: %v", keysErr)
	}
	return primaryKey, otherKey
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sampleInput(issuedAt, expiresAt time.Time) SignInput {
	email := "ana@example.com"
	return SignInput{
		Gym:       GymSnapshot{ID: "gym-1", Name: "Iron Temple", Address: "Main St 1", Phone: "555-0100"},
		Owner:     OwnerSnapshot{ID: "owner-1", Username: "ana", Email: &email, FirstName: "Ana", LastName: "Lopez"},
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
}

func mustSign(t *testing.T, key *rsa.PrivateKey, in SignInput) string {
	t.Helper()
	signer, err := NewSigner(key, WithIssuer("gymdesk"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := signer.Sign(in)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

// signClaims signs arbitrary claims, bypassing Signer's guards.
func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign claims: %v", err)
	}
	return token
}

func licenseClaims(issuedAt, expiresAt time.Time) *Claims {
	in := sampleInput(issuedAt, expiresAt)
	return &Claims{
		Gym:           &in.Gym,
		Owner:         &in.Owner,
		IssuedAtUnix:  issuedAt.Unix(),
		ExpiresAtUnix: expiresAt.Unix(),
		Type:          TokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func newTestValidator(t *testing.T, key *rsa.PublicKey, now time.Time) *Validator {
	t.Helper()
	v, err := NewValidator(key, WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return v
}
