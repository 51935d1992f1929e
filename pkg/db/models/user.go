package models

import (
	"time"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

// User represents a gym owner or staff identity.
type User struct {
	ID           string     `gorm:"column:id;type:text;primaryKey"`
	Username     string     `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email        *string    `gorm:"column:email;type:text;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null;default:''"`
	LastName     string     `gorm:"column:last_name;not null;default:''"`
	PhoneNumber  *string    `gorm:"column:phone_number"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	Roles        []UserRole `gorm:"foreignKey:UserID;references:ID"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// HasRole reports whether the loaded roles include role.
func (u *User) HasRole(role enums.Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}
