package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"choreo-backend/internal/model"
)

const batchSize = 100

// GormDanceRepository DanceRepository on a SQL database. Formations are kept
// as a JSON column on the dance row, so every change rewrites the dance.
type GormDanceRepository struct {
	db *gorm.DB
}

// NewGormDanceRepository creates a GormDanceRepository
func NewGormDanceRepository(db *gorm.DB) *GormDanceRepository {
	return &GormDanceRepository{db: db}
}

func (r *GormDanceRepository) Insert(ctx context.Context, d *model.Dance) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Formations == nil {
		d.Formations = []model.Formation{}
	}
	d.Revision = 0
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *GormDanceRepository) ListByOwner(ctx context.Context, owner string) ([]model.Dance, error) {
	dances := []model.Dance{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("created_at ASC, id ASC").
		Find(&dances).Error
	if err != nil {
		return nil, err
	}
	return dances, nil
}

func (r *GormDanceRepository) FindOwned(ctx context.Context, owner, id string) (*model.Dance, error) {
	var d model.Dance
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormDanceRepository) Update(ctx context.Context, owner, id string, fn Mutator) (*model.Dance, error) {
	return retryUpdate(ctx, func() (*model.Dance, error) {
		current, err := r.FindOwned(ctx, owner, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.ID, next.UserID = current.ID, current.UserID
		next.Revision = current.Revision + 1
		next.UpdatedAt = time.Now()

		result := r.db.WithContext(ctx).
			Model(next).
			Where("user_id = ? AND revision = ?", owner, current.Revision).
			Select("name", "number_of_dancers", "formations", "revision", "updated_at").
			Updates(next)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, errStale
		}
		return next, nil
	})
}

func (r *GormDanceRepository) Delete(ctx context.Context, owner, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, owner).
		Delete(&model.Dance{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormDanceRepository) All(ctx context.Context, fn func(d *model.Dance) error) error {
	var batch []model.Dance
	return r.db.WithContext(ctx).
		Order("id ASC").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(&batch[i]); err != nil {
					return err
				}
			}
			return nil
		}).Error
}
