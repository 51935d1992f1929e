package users

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gymdesk-backend/internal/repo"
	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository that runs inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.Bind(tx)}
}

// FindByID loads a user and their roles. Missing rows return gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUsername loads a user by exact username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// FindByEmail loads a user by email, compared case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.base.DB(ctx).
		Preload("Roles").
		Where(query, arg).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateIfAbsent inserts user unless a row with the same id, username or email
// already exists. It reports whether this call inserted the row.
func (r *Repository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	res := r.base.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(user)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GrantRole adds role to the user. Existing roles are never removed. It reports
// whether the role was newly granted.
func (r *Repository) GrantRole(ctx context.Context, userID string, role enums.Role) (bool, error) {
	res := r.base.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// HasRole reports whether the user holds role.
func (r *Repository) HasRole(ctx context.Context, userID string, role enums.Role) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
