package repository

import (
	"context"

	"studybuddy_backend/internal/model"

	"gorm.io/gorm"
)

type RoleRepository struct {
	DB *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{DB: db}
}

func (r *RoleRepository) HasAnyRole(ctx context.Context, userID string, roles ...model.Role) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserRole{}).
		Where("user_id = ? AND role IN ?", userID, roles).
		Count(&count).Error
	return count > 0, err
}
