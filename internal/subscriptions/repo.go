package subscriptions

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gymdesk-backend/internal/repo"
	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

// Repository reads gym subscriptions. Billing owns the writes.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// FindActiveByGym returns the active subscription with the latest end date.
// Missing rows return gorm.ErrRecordNotFound.
func (r *Repository) FindActiveByGym(ctx context.Context, gymID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.base.DB(ctx).
		Where("gym_id = ? AND status = ?", gymID, enums.SubscriptionStatusActive).
		Order("end_date DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create inserts a subscription row. An empty status means active.
func (r *Repository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.Status == "" {
		sub.Status = enums.SubscriptionStatusActive
	}
	if !sub.Status.IsValid() {
		return fmt.Errorf("invalid subscription status %q", sub.Status)
	}
	return r.base.DB(ctx).Create(sub).Error
}

// ExpireLapsed moves running (active or past due) subscriptions whose end date
// has passed to expired and returns how many rows changed.
func (r *Repository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Model(&models.Subscription{}).
		Where("status IN ? AND end_date < ?", enums.LapsingSubscriptionStatuses(), now.UTC()).
		Updates(map[string]any{"status": enums.SubscriptionStatusExpired})
	return res.RowsAffected, res.Error
}
