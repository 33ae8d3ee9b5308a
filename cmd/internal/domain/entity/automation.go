package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Automation struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Name           string            `gorm:"not null"`
	WorkflowArn    string            `gorm:"not null;default:''"`
	EventFlags     datatypes.JSONMap `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

// Triggers reports whether the automation is active and enabled for
// eventType.
func (a *Automation) Triggers(eventType string) bool {
	if a.WorkflowArn == "" {
		return false
	}
	enabled, _ := a.EventFlags[eventType].(bool)
	return enabled
}

type ExecutionStatus string

const (
	ExecutionStarted ExecutionStatus = "started"
	ExecutionFailed  ExecutionStatus = "failed"
)

// AutomationExecution records one attempt to start a workflow.
type AutomationExecution struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AutomationID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	AppointmentID  *uuid.UUID      `gorm:"type:uuid;index"`
	EventType      string          `gorm:"not null"`
	ExecutionName  string          `gorm:"not null"`
	ExecutionArn   string          `gorm:"not null"`
	Status         ExecutionStatus `gorm:"not null"`
	Error          *string
	CreatedAt      time.Time `gorm:"not null"`
}
