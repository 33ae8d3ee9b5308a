package entity

import (
	"strings"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index"`
	FirstName      *string
	LastName       *string
	Email          string `gorm:"not null"`
}

// DisplayName joins first and last name with a single space. Missing parts
// count as empty strings, the separator is always kept.
func (u *User) DisplayName() string {
	if u == nil {
		return " "
	}
	return deref(u.FirstName) + " " + deref(u.LastName)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
