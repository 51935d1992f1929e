package licenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
	"github.com/angelmondragon/gymdesk-backend/pkg/metrics"
)

type gymReader interface {
	FindByID(ctx context.Context, id string) (*models.Gym, error)
}

type ownerReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type subscriptionReader interface {
	FindActiveByGym(ctx context.Context, gymID string) (*models.Subscription, error)
}

type tokenSigner interface {
	Sign(in licensekey.SignInput) (string, error)
}

// IssueInput describes a license request. ExpiresAt overrides the active
// subscription's end date; OwnerPassword is embedded only when set.
type IssueInput struct {
	GymID         string
	OwnerID       string
	ExpiresAt     *time.Time
	OwnerPassword *string
}

// IssuedLicense is a signed license key with the snapshots it carries.
type IssuedLicense struct {
	LicenseKey string
	GymID      string
	OwnerID    string
	Gym        licensekey.GymSnapshot
	Owner      licensekey.OwnerSnapshot
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Issuer mints license keys for existing gyms. It only reads from the store.
type Issuer struct {
	gyms          gymReader
	owners        ownerReader
	subscriptions subscriptionReader
	signer        tokenSigner
	metrics       *metrics.LicenseMetrics
	logg          *logger.Logger
	now           func() time.Time
}

func NewIssuer(gyms gymReader, owners ownerReader, subscriptions subscriptionReader, signer tokenSigner, logg *logger.Logger, m *metrics.LicenseMetrics) (*Issuer, error) {
	if gyms == nil {
		return nil, errors.New("gym repository required")
	}
	if owners == nil {
		return nil, errors.New("user repository required")
	}
	if subscriptions == nil {
		return nil, errors.New("subscription repository required")
	}
	if signer == nil {
		return nil, errors.New("license signer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Issuer{
		gyms:          gyms,
		owners:        owners,
		subscriptions: subscriptions,
		signer:        signer,
		metrics:       m,
		logg:          logg,
		now:           time.Now,
	}, nil
}

// Issue checks ownership, resolves the expiry and signs a license key.
func (i *Issuer) Issue(ctx context.Context, in IssueInput) (*IssuedLicense, error) {
	gymID := strings.TrimSpace(in.GymID)
	ownerID := strings.TrimSpace(in.OwnerID)
	if gymID == "" || ownerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gym_id and owner_id are required")
	}

	gym, err := i.gyms.FindByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gym not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gym")
	}

	owner, err := i.owners.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owner")
	}

	if !gym.HasOwner() || *gym.OwnerID != owner.ID {
		return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotOwner, "owner does not own gym")
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt, err := i.resolveExpiry(ctx, gym.ID, in.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Unix() <= issuedAt.Unix() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidExpiry, "license expiry must be in the future")
	}

	gymSnapshot := licensekey.GymSnapshot{
		ID:      gym.ID,
		Name:    gym.Name,
		Address: gym.Address,
		Phone:   gym.Phone,
	}
	ownerSnapshot := licensekey.OwnerSnapshot{
		ID:          owner.ID,
		Username:    owner.Username,
		Email:       owner.Email,
		FirstName:   owner.FirstName,
		LastName:    owner.LastName,
		PhoneNumber: owner.PhoneNumber,
	}
	if in.OwnerPassword != nil && *in.OwnerPassword != "" {
		password := *in.OwnerPassword
		ownerSnapshot.Password = &password
	}

	token, err := i.signer.Sign(licensekey.SignInput{
		Gym:       gymSnapshot,
		Owner:     ownerSnapshot,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		if errors.Is(err, licensekey.ErrExpiryNotAfterIssue) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidExpiry, "license expiry must be in the future")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign license")
	}

	i.metrics.IncIssued()
	logCtx := i.logg.WithGymID(ctx, gym.ID)
	logCtx = i.logg.WithOwnerID(logCtx, owner.ID)
	logCtx = i.logg.WithField(logCtx, "expires_at", expiresAt.Format(time.RFC3339))
	i.logg.Info(logCtx, "license.issued")

	return &IssuedLicense{
		LicenseKey: token,
		GymID:      gym.ID,
		OwnerID:    owner.ID,
		Gym:        gymSnapshot,
		Owner:      ownerSnapshot,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt.UTC().Truncate(time.Second),
	}, nil
}

func (i *Issuer) resolveExpiry(ctx context.Context, gymID string, explicit *time.Time) (time.Time, error) {
	if explicit != nil && !explicit.IsZero() {
		return explicit.UTC(), nil
	}

	sub, err := i.subscriptions.FindActiveByGym(ctx, gymID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrNoExpiryAvailable, "no active subscription to derive license expiry from")
		}
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	return sub.EndDate.UTC(), nil
}
