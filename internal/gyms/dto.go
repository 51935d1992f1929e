package gyms

import (
	"time"

	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gymdesk-backend/pkg/types"
)

// GymDTO is the transport shape for a gym. The license key itself is never
// echoed back; only its derived timestamps are.
type GymDTO struct {
	ID                    string             `json:"id"`
	Name                  string             `json:"name"`
	Address               string             `json:"address"`
	Phone                 string             `json:"phone"`
	OwnerID               *string            `json:"owner_id,omitempty"`
	OpeningHours          types.OpeningHours `json:"opening_hours,omitempty"`
	HasLicense            bool               `json:"has_license"`
	LicenseKeyExpiresAt   *time.Time         `json:"license_key_expires_at,omitempty"`
	LicenseKeyActivatedAt *time.Time         `json:"license_key_activated_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

func FromModel(g *models.Gym) *GymDTO {
	if g == nil {
		return nil
	}
	return &GymDTO{
		ID:                    g.ID,
		Name:                  g.Name,
		Address:               g.Address,
		Phone:                 g.Phone,
		OwnerID:               g.OwnerID,
		OpeningHours:          g.OpeningHours,
		HasLicense:            g.LicenseKey != nil && *g.LicenseKey != "",
		LicenseKeyExpiresAt:   g.LicenseKeyExpiresAt,
		LicenseKeyActivatedAt: g.LicenseKeyActivatedAt,
		CreatedAt:             g.CreatedAt,
		UpdatedAt:             g.UpdatedAt,
	}
}
