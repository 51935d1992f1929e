package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

// Subscription persists the gym's plan with the platform. License expiry is
// derived from the active row's EndDate when no explicit expiry is requested.
type Subscription struct {
	ID        string                   `gorm:"column:id;type:text;primaryKey"`
	GymID     string                   `gorm:"column:gym_id;type:text;not null;index"`
	Status    enums.SubscriptionStatus `gorm:"column:status;type:text;not null;default:'active'"`
	PlanName  string                   `gorm:"column:plan_name;not null;default:''"`
	Price     decimal.Decimal          `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	StartDate time.Time                `gorm:"column:start_date;not null"`
	EndDate   time.Time                `gorm:"column:end_date;not null"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
