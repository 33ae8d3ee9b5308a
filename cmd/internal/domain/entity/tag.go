package entity

import "github.com/google/uuid"

type Tag struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index"`
	Name           string    `gorm:"not null"`
	Color          string
}
