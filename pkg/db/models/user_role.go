package models

import (
	"time"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

// UserRole grants a capability to a user. (user_id, role) is unique.
type UserRole struct {
	UserID    string     `gorm:"column:user_id;type:text;primaryKey"`
	Role      enums.Role `gorm:"column:role;type:text;primaryKey"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
