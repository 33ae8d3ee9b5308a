package repository

import (
	"context"

	"appointly/cmd/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultTagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *DefaultTagRepository {
	return &DefaultTagRepository{db: db}
}

func (t *DefaultTagRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []*entity.Tag
	err := t.db.WithContext(ctx).Where("id IN ?", ids).Order("name asc").Find(&tags).Error
	return tags, err
}
