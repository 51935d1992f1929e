package licenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gymdesk-backend/internal/gyms"
	"github.com/angelmondragon/gymdesk-backend/internal/users"
	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
	"github.com/angelmondragon/gymdesk-backend/pkg/metrics"
	"github.com/angelmondragon/gymdesk-backend/pkg/security"
	"github.com/angelmondragon/gymdesk-backend/pkg/types"
)

const tempPasswordLength = 16

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

// ActivatorConfig carries the activation policy.
type ActivatorConfig struct {
	// DefaultOwnerPassword is used for seeded owners when the key carries none.
	// When both are empty a random password is generated.
	DefaultOwnerPassword string
	// RollbackSeedOnReject discards seeded owner and gym rows when the final
	// validation rejects the key. By default they are kept.
	RollbackSeedOnReject bool
}

// Activation is the committed result of Activate.
type Activation struct {
	Gym             *models.Gym
	Owner           *models.User
	FirstActivation bool
}

// StoredLicense describes the license currently persisted on a gym.
type StoredLicense struct {
	GymID       string
	Status      enums.LicenseValidation
	HasLicense  bool
	ExpiresAt   *time.Time
	ActivatedAt *time.Time
}

func (s StoredLicense) Valid() bool {
	return s.HasLicense && s.Status == enums.LicenseValid
}

// Activator installs license keys. Every activation runs in one transaction so
// that concurrent activations of the same key converge on one gym, one owner
// and one first-activation timestamp.
type Activator struct {
	db        txRunner
	gyms      *gyms.Repository
	users     *users.Repository
	validator *licensekey.Validator
	hasher    passwordHasher
	locker    Locker
	cfg       ActivatorConfig
	metrics   *metrics.LicenseMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewActivator(db txRunner, gymsRepo *gyms.Repository, usersRepo *users.Repository, validator *licensekey.Validator, hasher passwordHasher, cfg ActivatorConfig, logg *logger.Logger, m *metrics.LicenseMetrics) (*Activator, error) {
	if db == nil {
		return nil, errors.New("db client required")
	}
	if gymsRepo == nil {
		return nil, errors.New("gym repository required")
	}
	if usersRepo == nil {
		return nil, errors.New("user repository required")
	}
	if validator == nil {
		return nil, errors.New("license validator required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Activator{
		db:        db,
		gyms:      gymsRepo,
		users:     usersRepo,
		validator: validator,
		hasher:    hasher,
		cfg:       cfg,
		metrics:   m,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// WithLocker wraps activations in a cross-instance lock.
func (a *Activator) WithLocker(l Locker) *Activator {
	a.locker = l
	return a
}

// Validate checks a key without touching the store.
func (a *Activator) Validate(token, expectedGymID string) licensekey.Result {
	res := a.validator.Validate(token, licensekey.ValidateOptions{ExpectedGymID: strings.TrimSpace(expectedGymID)})
	a.metrics.ObserveValidation(res.Status)
	return res
}

// Activate verifies token and installs it on its gym, seeding the owner and
// gym rows when they do not exist yet.
func (a *Activator) Activate(ctx context.Context, token, requestedGymID string) (*Activation, error) {
	started := time.Now()
	act, err := a.activate(ctx, strings.TrimSpace(token), strings.TrimSpace(requestedGymID))

	outcome := metrics.OutcomeError
	switch {
	case err == nil && act.FirstActivation:
		outcome = metrics.OutcomeFirstActivation
	case err == nil:
		outcome = metrics.OutcomeReactivation
	case pkgerrors.CodeOf(err) == pkgerrors.CodeLicenseRejected:
		outcome = metrics.OutcomeRejected
	}
	a.metrics.ObserveActivation(outcome, time.Since(started))
	return act, err
}

func (a *Activator) activate(ctx context.Context, token, requestedGymID string) (*Activation, error) {
	claims, err := licensekey.Decode(token)
	if err != nil {
		a.logg.Debug(a.logg.WithField(ctx, "error", err.Error()), "license.decode_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMalformedLicense, "license key could not be decoded")
	}
	if requestedGymID != "" && requestedGymID != claims.GymID() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrGymMismatch, "license key belongs to a different gym")
	}

	// Forged or stale keys are turned away before anything is written.
	pre := a.validator.Validate(token, licensekey.ValidateOptions{ExpectedGymID: claims.GymID()})
	a.metrics.ObserveValidation(pre.Status)
	if !pre.Valid() {
		return nil, rejected(pre.Status)
	}

	ctx = a.logg.WithGymID(ctx, pre.Gym.ID)
	ctx = a.logg.WithOwnerID(ctx, pre.Owner.ID)

	if a.locker != nil {
		release, err := a.locker.Acquire(ctx, pre.Gym.ID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var (
		activation *Activation
		rejection  enums.LicenseValidation
	)
	err = a.db.WithTx(ctx, func(tx *gorm.DB) error {
		gymsRepo := a.gyms.WithTx(tx)
		usersRepo := a.users.WithTx(tx)

		owner, err := a.resolveOwner(ctx, usersRepo, pre.Owner)
		if err != nil {
			return err
		}
		gym, err := a.resolveGym(ctx, gymsRepo, pre.Gym, owner.ID)
		if err != nil {
			return err
		}

		res := a.validator.Validate(token, licensekey.ValidateOptions{
			ExpectedGymID: pre.Gym.ID,
			ActivatedAt:   gym.LicenseKeyActivatedAt,
		})
		a.metrics.ObserveValidation(res.Status)
		if !res.Valid() {
			rejection = res.Status
			warnCtx := a.logg.WithField(ctx, "reason", res.Status.String())
			if a.cfg.RollbackSeedOnReject {
				a.logg.Warn(warnCtx, "license.rejected_after_seed.rolled_back")
				return &LicenseInvalidError{Reason: res.Status}
			}
			a.logg.Warn(warnCtx, "license.rejected_after_seed.kept")
			return nil
		}

		if err := gymsRepo.UpdateLicense(ctx, gym.ID, token, res.ExpiresAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store license key")
		}
		first, err := gymsRepo.SetActivatedAtIfNull(ctx, gym.ID, a.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record activation time")
		}
		gym, err = gymsRepo.FindByID(ctx, gym.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload gym")
		}

		activation = &Activation{Gym: gym, Owner: owner, FirstActivation: first}
		return nil
	})
	if rejection != "" {
		return nil, rejected(rejection)
	}
	if err != nil {
		return nil, dependency(err, "activate license")
	}

	if activation.FirstActivation {
		a.logg.Info(ctx, "license.activated")
	} else {
		a.logg.Info(ctx, "license.reactivated")
	}
	return activation, nil
}

func (a *Activator) resolveOwner(ctx context.Context, repo *users.Repository, snap *licensekey.OwnerSnapshot) (*models.User, error) {
	owner, err := findOwner(ctx, repo, snap)
	if err != nil {
		return nil, err
	}

	if owner == nil {
		user, err := a.newOwner(ctx, snap)
		if err != nil {
			return nil, err
		}
		created, err := repo.CreateIfAbsent(ctx, user)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner")
		}
		owner, err = findOwner(ctx, repo, snap)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "owner could not be created")
		}
		if created {
			a.logg.Info(a.logg.WithUserID(ctx, owner.ID), "license.owner_created")
		}
	}

	if !owner.HasRole(enums.RoleGymOwner) {
		granted, err := repo.GrantRole(ctx, owner.ID, enums.RoleGymOwner)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant gym owner role")
		}
		if granted {
			owner.Roles = append(owner.Roles, models.UserRole{UserID: owner.ID, Role: enums.RoleGymOwner})
		}
	}
	return owner, nil
}

// findOwner looks the owner up by id, then username, then email. It returns
// nil without error when no account matches.
func findOwner(ctx context.Context, repo *users.Repository, snap *licensekey.OwnerSnapshot) (*models.User, error) {
	lookups := []func() (*models.User, error){
		func() (*models.User, error) { return repo.FindByID(ctx, snap.ID) },
	}
	if username := strings.TrimSpace(snap.Username); username != "" {
		lookups = append(lookups, func() (*models.User, error) { return repo.FindByUsername(ctx, username) })
	}
	if snap.Email != nil && strings.TrimSpace(*snap.Email) != "" {
		email := *snap.Email
		lookups = append(lookups, func() (*models.User, error) { return repo.FindByEmail(ctx, email) })
	}

	for _, lookup := range lookups {
		user, err := lookup()
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup owner")
		}
	}
	return nil, nil
}

func (a *Activator) newOwner(ctx context.Context, snap *licensekey.OwnerSnapshot) (*models.User, error) {
	password := a.cfg.DefaultOwnerPassword
	if snap.Password != nil && *snap.Password != "" {
		password = *snap.Password
	}
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate owner password")
		}
		password = generated
		a.logg.Warn(ctx, "license.owner_password_generated")
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash owner password")
	}

	username := strings.TrimSpace(snap.Username)
	if username == "" {
		username = snap.ID
	}
	var email *string
	if snap.Email != nil {
		if normalized := strings.ToLower(strings.TrimSpace(*snap.Email)); normalized != "" {
			email = &normalized
		}
	}

	return &models.User{
		ID:           snap.ID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    snap.FirstName,
		LastName:     snap.LastName,
		PhoneNumber:  snap.PhoneNumber,
		IsActive:     true,
	}, nil
}

func (a *Activator) resolveGym(ctx context.Context, repo *gyms.Repository, snap *licensekey.GymSnapshot, ownerID string) (*models.Gym, error) {
	gym, err := repo.FindByIDForUpdate(ctx, snap.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gym")
	}

	if gym == nil {
		owner := ownerID
		created, err := repo.CreateIfAbsent(ctx, &models.Gym{
			ID:           snap.ID,
			Name:         snap.Name,
			Address:      snap.Address,
			Phone:        snap.Phone,
			OwnerID:      &owner,
			OpeningHours: types.DefaultOpeningHours(),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gym")
		}
		if created {
			a.logg.Info(ctx, "license.gym_created")
		}
		gym, err = repo.FindByIDForUpdate(ctx, snap.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload gym")
		}
	}

	switch {
	case !gym.HasOwner():
		if _, err := repo.AttachOwner(ctx, gym.ID, ownerID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach gym owner")
		}
		gym, err = repo.FindByIDForUpdate(ctx, gym.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload gym")
		}
	case *gym.OwnerID != ownerID:
		// The recorded owner wins; the key's owner still gets an account.
		a.logg.Warn(a.logg.WithField(ctx, "recorded_owner_id", *gym.OwnerID), "license.owner_differs")
	}
	return gym, nil
}

// ValidateStored reports whether the gym's stored license key is currently valid.
func (a *Activator) ValidateStored(gym *models.Gym) bool {
	return a.storedStatus(gym).Valid()
}

// LicenseStatus loads a gym and validates its stored key.
func (a *Activator) LicenseStatus(ctx context.Context, gymID string) (*StoredLicense, error) {
	gym, err := a.gyms.FindByID(ctx, strings.TrimSpace(gymID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gym not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gym")
	}
	status := a.storedStatus(gym)
	return &status, nil
}

func (a *Activator) storedStatus(gym *models.Gym) StoredLicense {
	if gym == nil {
		return StoredLicense{}
	}
	status := StoredLicense{
		GymID:       gym.ID,
		ExpiresAt:   gym.LicenseKeyExpiresAt,
		ActivatedAt: gym.LicenseKeyActivatedAt,
	}
	if gym.LicenseKey == nil || strings.TrimSpace(*gym.LicenseKey) == "" {
		return status
	}
	status.HasLicense = true
	res := a.validator.Validate(*gym.LicenseKey, licensekey.ValidateOptions{
		ExpectedGymID: gym.ID,
		ActivatedAt:   gym.LicenseKeyActivatedAt,
	})
	a.metrics.ObserveValidation(res.Status)
	status.Status = res.Status
	return status
}
