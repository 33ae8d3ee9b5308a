package repository

import (
	"context"

	"appointly/cmd/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultOrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *DefaultOrganizationRepository {
	return &DefaultOrganizationRepository{db: db}
}

func (o *DefaultOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	var org entity.Organization
	res := o.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&org)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &org, nil
}

type DefaultContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *DefaultContactRepository {
	return &DefaultContactRepository{db: db}
}

// FindByID looks the contact up in the contacts table of the organization
// identified by orgCode.
func (c *DefaultContactRepository) FindByID(ctx context.Context, orgCode string, id uuid.UUID) (*entity.Contact, error) {
	var contact entity.Contact
	res := c.db.WithContext(ctx).
		Table(entity.ContactsTable(orgCode)).
		Where("id = ?", id).
		Limit(1).
		Find(&contact)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &contact, nil
}
