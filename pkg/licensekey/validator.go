package licensekey

import (
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

const (
	// ClockRollbackTolerance is how far before the recorded activation time the
	// clock may read before the license is treated as clock-tampered.
	ClockRollbackTolerance = 5 * time.Minute
	// FutureIssueTolerance is the allowed skew for an issuedAt ahead of now.
	FutureIssueTolerance = time.Minute
)

var (
	ErrInvalidSignature = errors.New("license signature invalid")
	ErrExpired          = errors.New("license expired")
	ErrInvalidType      = errors.New("token is not a license")
	ErrMissingData      = errors.New("license missing gym or owner")
	ErrGymMismatch      = errors.New("license issued for a different gym")
	ErrClockTamper      = errors.New("system clock moved before activation time")
	ErrIssuedInFuture   = errors.New("license issued in the future")
)

var statusErrors = map[enums.LicenseValidation]error{
	enums.LicenseInvalidSignature: ErrInvalidSignature,
	enums.LicenseExpired:          ErrExpired,
	enums.LicenseInvalidType:      ErrInvalidType,
	enums.LicenseMissingData:      ErrMissingData,
	enums.LicenseGymMismatch:      ErrGymMismatch,
	enums.LicenseClockTamper:      ErrClockTamper,
	enums.LicenseIssuedInFuture:   ErrIssuedInFuture,
}

// ValidateOptions narrows a validation. ExpectedGymID scopes the token to a gym;
// ActivatedAt enables the clock-rollback check.
type ValidateOptions struct {
	ExpectedGymID string
	ActivatedAt   *time.Time
}

// Result is the outcome of Validate. Gym, Owner and the instants are only set
// when Status is valid.
type Result struct {
	Status    enums.LicenseValidation
	IssuedAt  time.Time
	ExpiresAt time.Time
	Gym       *GymSnapshot
	Owner     *OwnerSnapshot
}

func (r Result) Valid() bool {
	return r.Status == enums.LicenseValid
}

// Err returns the sentinel for a failed status, or nil when valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	if err, ok := statusErrors[r.Status]; ok {
		return err
	}
	return ErrInvalidSignature
}

// Validator verifies license tokens against one public key. It holds no
// mutable state and is safe for concurrent use.
type Validator struct {
	key *rsa.PublicKey
	now func() time.Time
}

type ValidatorOption func(*Validator)

// WithClock injects the time source used for every time-based check.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewValidator(key *rsa.PublicKey, opts ...ValidatorOption) (*Validator, error) {
	if key == nil {
		return nil, ErrKeyNotConfigured
	}
	v := &Validator{key: key, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate runs the checks in a fixed order and reports the first failure.
func (v *Validator) Validate(token string, opts ValidateOptions) Result {
	now := v.now()

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{SigningMethod.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	_, err := parser.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		// jwt/v5 verifies the signature before claims, so an expiry error
		// implies the signature was good.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Result{Status: enums.LicenseExpired}
		}
		return Result{Status: enums.LicenseInvalidSignature}
	}

	if claims.Type != TokenType {
		return Result{Status: enums.LicenseInvalidType}
	}
	if !claims.complete() {
		return Result{Status: enums.LicenseMissingData}
	}
	if opts.ExpectedGymID != "" && opts.ExpectedGymID != claims.Gym.ID {
		return Result{Status: enums.LicenseGymMismatch}
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.ExpiresAt()
	if !now.Before(expiresAt) || claims.IssuedAtUnix >= claims.ExpiresAtUnix {
		return Result{Status: enums.LicenseExpired}
	}
	if opts.ActivatedAt != nil && now.Before(opts.ActivatedAt.Add(-ClockRollbackTolerance)) {
		return Result{Status: enums.LicenseClockTamper}
	}
	if issuedAt.After(now.Add(FutureIssueTolerance)) {
		return Result{Status: enums.LicenseIssuedInFuture}
	}

	return Result{
		Status:    enums.LicenseValid,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Gym:       claims.Gym,
		Owner:     claims.Owner,
	}
}
