package models

import (
	"time"

	"github.com/angelmondragon/gymdesk-backend/pkg/types"
)

// Gym is the tenant record. Its ID is minted by the issuing authority and
// carried inside license keys, so it is never generated locally.
type Gym struct {
	ID           string             `gorm:"column:id;type:text;primaryKey"`
	Name         string             `gorm:"column:name;not null"`
	Address      string             `gorm:"column:address;not null;default:''"`
	Phone        string             `gorm:"column:phone;not null;default:''"`
	OwnerID      *string            `gorm:"column:owner_id;type:text;index"`
	OpeningHours types.OpeningHours `gorm:"column:opening_hours;type:jsonb"`

	LicenseKey            *string    `gorm:"column:license_key;type:text"`
	LicenseKeyExpiresAt   *time.Time `gorm:"column:license_key_expires_at"`
	LicenseKeyActivatedAt *time.Time `gorm:"column:license_key_activated_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name used by migrations.
func (Gym) TableName() string {
	return "gyms"
}

// HasOwner reports whether an owner is attached.
func (g *Gym) HasOwner() bool {
	return g != nil && g.OwnerID != nil && *g.OwnerID != ""
}
