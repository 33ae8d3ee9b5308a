package repository

import (
	"context"

	"appointly/cmd/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{db: db}
}

func (u *DefaultUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	res := u.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&user)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &user, nil
}

// FindByIDs loads users in one query. Unknown ids are skipped.
func (u *DefaultUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*entity.User
	err := u.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}
