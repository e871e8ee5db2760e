package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"choreo-backend/internal/model"
)

// GormCredentialRepository CredentialRepository on a SQL database
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.FindByUsername(ctx, user.Username)
	if err == nil {
		return ErrUsernameTaken
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (r *GormCredentialRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormCredentialRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}
