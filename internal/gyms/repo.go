package gyms

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gymdesk-backend/internal/repo"
	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
)

// Repository persists gyms and their license state.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository that runs inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.Bind(tx)}
}

// FindByID loads a gym. Missing rows return gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Gym, error) {
	var gym models.Gym
	if err := r.base.DB(ctx).Where("id = ?", id).First(&gym).Error; err != nil {
		return nil, err
	}
	return &gym, nil
}

// FindByIDForUpdate loads a gym and locks its row until the surrounding
// transaction ends. sqlite has no row locks; its single writer already
// serialises the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id string) (*models.Gym, error) {
	var gym models.Gym
	query := r.base.DB(ctx)
	if query.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("id = ?", id).First(&gym).Error; err != nil {
		return nil, err
	}
	return &gym, nil
}

// CreateIfAbsent inserts gym unless its id already exists and reports whether
// this call inserted the row.
func (r *Repository) CreateIfAbsent(ctx context.Context, gym *models.Gym) (bool, error) {
	res := r.base.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(gym)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AttachOwner sets the owner only when none is attached. It reports whether
// the row changed.
func (r *Repository) AttachOwner(ctx context.Context, gymID, ownerID string) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.Gym{}).
		Where("id = ? AND owner_id IS NULL", gymID).
		Updates(map[string]any{"owner_id": ownerID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateLicense stores the latest license key and its expiry.
func (r *Repository) UpdateLicense(ctx context.Context, gymID, licenseKey string, expiresAt time.Time) error {
	res := r.base.DB(ctx).
		Model(&models.Gym{}).
		Where("id = ?", gymID).
		Updates(map[string]any{
			"license_key":            licenseKey,
			"license_key_expires_at": expiresAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetActivatedAtIfNull records the first activation time. The conditional
// update keeps the column write-once under concurrent activations; the
// return value reports whether this call was the one that set it.
func (r *Repository) SetActivatedAtIfNull(ctx context.Context, gymID string, at time.Time) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.Gym{}).
		Where("id = ? AND license_key_activated_at IS NULL", gymID).
		Updates(map[string]any{"license_key_activated_at": at.UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListLicensesExpiringBetween returns activated gyms whose license expires in
// [from, to), soonest first.
func (r *Repository) ListLicensesExpiringBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Gym, error) {
	var out []models.Gym
	query := r.base.DB(ctx).
		Where("license_key IS NOT NULL AND license_key_activated_at IS NOT NULL").
		Where("license_key_expires_at >= ? AND license_key_expires_at < ?", from.UTC(), to.UTC()).
		Order("license_key_expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
