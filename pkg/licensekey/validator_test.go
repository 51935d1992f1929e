package licensekey

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

func TestValidateRoundTrip(t *testing.T) {
	key, _ := testKeys(t)
	expiresAt := baseTime.Add(30 * 24 * time.Hour)
	token := mustSign(t, key, sampleInput(baseTime, expiresAt))

	res := newTestValidator(t, &key.PublicKey, baseTime).Validate(token, ValidateOptions{ExpectedGymID: "gym-1"})
	if !res.Valid() {
		t.Fatalf("expected valid, got %s", res.Status)
	}
	if res.Err() != nil {
		t.Fatalf("expected nil error for valid result, got %v", res.Err())
	}
	if res.Gym == nil || res.Gym.ID != "gym-1" || res.Owner == nil || res.Owner.ID != "owner-1" {
		t.Fatalf("unexpected identities: %+v %+v", res.Gym, res.Owner)
	}
	if !res.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expected expiry %v, got %v", expiresAt, res.ExpiresAt)
	}
	if !res.IssuedAt.Equal(baseTime) {
		t.Fatalf("expected issued at %v, got %v", baseTime, res.IssuedAt)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	key, _ := testKeys(t)
	issuedAt := baseTime.Add(-time.Hour)

	cases := []struct {
		name      string
		expiresAt time.Time
		want      enums.LicenseValidation
	}{
		{name: "expires exactly now", expiresAt: baseTime, want: enums.LicenseExpired},
		{name: "expired one second ago", expiresAt: baseTime.Add(-time.Second), want: enums.LicenseExpired},
		{name: "expires in one second", expiresAt: baseTime.Add(time.Second), want: enums.LicenseValid},
	}

	v := newTestValidator(t, &key.PublicKey, baseTime)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := mustSign(t, key, sampleInput(issuedAt, tc.expiresAt))
			if got := v.Validate(token, ValidateOptions{}).Status; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestValidatePayloadExpiryWithoutRegisteredExp(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestValidator(t, &key.PublicKey, baseTime)

	claims := licenseClaims(baseTime.Add(-2*time.Hour), baseTime.Add(-time.Hour))
	claims.RegisteredClaims.ExpiresAt = nil
	token := signClaims(t, jwt.SigningMethodRS256, key, claims)
	if got := v.Validate(token, ValidateOptions{}).Status; got != enums.LicenseExpired {
		t.Fatalf("expected payload expiry to be detected, got %s", got)
	}

	inverted := licenseClaims(baseTime.Add(48*time.Hour), baseTime.Add(24*time.Hour))
	inverted.RegisteredClaims.IssuedAt = nil
	token = signClaims(t, jwt.SigningMethodRS256, key, inverted)
	if got := v.Validate(token, ValidateOptions{}).Status; got != enums.LicenseExpired {
		t.Fatalf("expected issuedAt >= expiresAt to be expired, got %s", got)
	}
}

func TestValidateTamperRejection(t *testing.T) {
	key, other := testKeys(t)
	in := sampleInput(baseTime, baseTime.Add(24*time.Hour))
	v := newTestValidator(t, &key.PublicKey, baseTime)

	t.Run("signed with different key", func(t *testing.T) {
		token := mustSign(t, other, in)
		if got := v.Validate(token, ValidateOptions{}).Status; got != enums.LicenseInvalidSignature {
			t.Fatalf("expected invalid-signature, got %s", got)
		}
	})

	t.Run("payload altered after signing", func(t *testing.T) {
		token := mustSign(t, key, in)
		parts := strings.Split(token, ".")
		raw, err := base64.RawURLEncoding.DecodeString(parts[1])
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		payload["expiresAt"] = baseTime.Add(3650 * 24 * time.Hour).Unix()
		altered, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		parts[1] = base64.RawURLEncoding.EncodeToString(altered)

		res := v.Validate(strings.Join(parts, "."), ValidateOptions{})
		if res.Status != enums.LicenseInvalidSignature {
			t.Fatalf("expected invalid-signature, got %s", res.Status)
		}
		if !errors.Is(res.Err(), ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", res.Err())
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if got := v.Validate("not-a-token", ValidateOptions{}).Status; got != enums.LicenseInvalidSignature {
			t.Fatalf("expected invalid-signature, got %s", got)
		}
	})
}

func TestValidateAlgorithmPinning(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestValidator(t, &key.PublicKey, baseTime)
	claims := licenseClaims(baseTime, baseTime.Add(24*time.Hour))

	_, publicPEM := encodeTestKey(t, key)

	cases := map[string]string{
		"hs256 keyed with public key": signClaims(t, jwt.SigningMethodHS256, publicPEM, claims),
		"none":                        signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claims),
		"rs384 with the right key":    signClaims(t, jwt.SigningMethodRS384, key, claims),
		"ps256 with the right key":    signClaims(t, jwt.SigningMethodPS256, key, claims),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if got := v.Validate(token, ValidateOptions{}).Status; got != enums.LicenseInvalidSignature {
				t.Fatalf("expected invalid-signature, got %s", got)
			}
		})
	}
}

func TestValidateTypeAndCompleteness(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestValidator(t, &key.PublicKey, baseTime)

	wrongType := licenseClaims(baseTime, baseTime.Add(time.Hour))
	wrongType.Type = "access"
	wrongType.Owner = nil
	if got := v.Validate(signClaims(t, jwt.SigningMethodRS256, key, wrongType), ValidateOptions{}).Status; got != enums.LicenseInvalidType {
		t.Fatalf("expected invalid-type to win over missing-data, got %s", got)
	}

	noOwner := licenseClaims(baseTime, baseTime.Add(time.Hour))
	noOwner.Owner = nil
	res := v.Validate(signClaims(t, jwt.SigningMethodRS256, key, noOwner), ValidateOptions{})
	if res.Status != enums.LicenseMissingData || !errors.Is(res.Err(), ErrMissingData) {
		t.Fatalf("expected missing-data, got %s", res.Status)
	}

	noGym := licenseClaims(baseTime, baseTime.Add(time.Hour))
	noGym.Gym = nil
	if got := v.Validate(signClaims(t, jwt.SigningMethodRS256, key, noGym), ValidateOptions{ExpectedGymID: "gym-1"}).Status; got != enums.LicenseMissingData {
		t.Fatalf("expected missing-data before scope check, got %s", got)
	}
}

func TestValidateGymScope(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestValidator(t, &key.PublicKey, baseTime)

	// An expired token for another gym reports the scope failure first.
	expired := licenseClaims(baseTime.Add(-2*time.Hour), baseTime.Add(-time.Hour))
	expired.RegisteredClaims.ExpiresAt = nil
	token := signClaims(t, jwt.SigningMethodRS256, key, expired)

	res := v.Validate(token, ValidateOptions{ExpectedGymID: "gym-2"})
	if res.Status != enums.LicenseGymMismatch || !errors.Is(res.Err(), ErrGymMismatch) {
		t.Fatalf("expected gym-mismatch, got %s", res.Status)
	}
}

func TestValidateClockRollback(t *testing.T) {
	key, _ := testKeys(t)
	activatedAt := baseTime
	token := mustSign(t, key, sampleInput(baseTime.Add(-time.Hour), baseTime.Add(24*time.Hour)))

	cases := []struct {
		name string
		now  time.Time
		want enums.LicenseValidation
	}{
		{name: "ten minutes before activation", now: activatedAt.Add(-10 * time.Minute), want: enums.LicenseClockTamper},
		{name: "two minutes before activation", now: activatedAt.Add(-2 * time.Minute), want: enums.LicenseValid},
		{name: "after activation", now: activatedAt.Add(time.Hour), want: enums.LicenseValid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestValidator(t, &key.PublicKey, tc.now)
			if got := v.Validate(token, ValidateOptions{ActivatedAt: &activatedAt}).Status; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}

	v := newTestValidator(t, &key.PublicKey, activatedAt.Add(-10*time.Minute))
	if got := v.Validate(token, ValidateOptions{}).Status; got != enums.LicenseValid {
		t.Fatalf("expected rollback check skipped without activation time, got %s", got)
	}
}

func TestValidateIssuedInFuture(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestValidator(t, &key.PublicKey, baseTime)

	future := mustSign(t, key, sampleInput(baseTime.Add(2*time.Minute), baseTime.Add(24*time.Hour)))
	res := v.Validate(future, ValidateOptions{})
	if res.Status != enums.LicenseIssuedInFuture || !errors.Is(res.Err(), ErrIssuedInFuture) {
		t.Fatalf("expected issued-in-future, got %s", res.Status)
	}

	skewed := mustSign(t, key, sampleInput(baseTime.Add(30*time.Second), baseTime.Add(24*time.Hour)))
	if got := v.Validate(skewed, ValidateOptions{}).Status; got != enums.LicenseValid {
		t.Fatalf("expected skew within tolerance to be valid, got %s", got)
	}
}

func TestNewValidatorRequiresKey(t *testing.T) {
	if _, err := NewValidator(nil); !errors.Is(err, ErrKeyNotConfigured) {
		t.Fatalf("expected ErrKeyNotConfigured, got %v", err)
	}
}

func TestValidateConcurrentUse(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestValidator(t, &key.PublicKey, baseTime)
	token := mustSign(t, key, sampleInput(baseTime, baseTime.Add(time.Hour)))

	var wg sync.WaitGroup
	failures := make(chan enums.LicenseValidation, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := v.Validate(token, ValidateOptions{ExpectedGymID: "gym-1"}); !res.Valid() {
				failures <- res.Status
			}
		}()
	}
	wg.Wait()
	close(failures)
	for status := range failures {
		t.Fatalf("unexpected status %s", status)
	}
}
