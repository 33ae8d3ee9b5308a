package repository

import (
	"context"

	"appointly/cmd/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DefaultAutomationRepository struct {
	db *gorm.DB
}

func NewAutomationRepository(db *gorm.DB) *DefaultAutomationRepository {
	return &DefaultAutomationRepository{db: db}
}

// FindTriggered returns the organization's automations that have a workflow
// and are enabled for eventType.
func (a *DefaultAutomationRepository) FindTriggered(ctx context.Context, orgID uuid.UUID, eventType string) ([]*entity.Automation, error) {
	var automations []*entity.Automation
	err := a.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("workflow_arn <> ?", "").
		Where(datatypes.JSONQuery("event_flags").Equals(true, eventType)).
		Order("created_at asc").
		Find(&automations).Error
	return automations, err
}

func (a *DefaultAutomationRepository) RecordExecution(ctx context.Context, exec *entity.AutomationExecution) error {
	return a.db.WithContext(ctx).Create(exec).Error
}
