package entity

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Organization struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"not null"`
	Code string    `gorm:"not null;uniqueIndex"`
}

// ContactsTable is the per-organization contacts table.
func (o *Organization) ContactsTable() string {
	return ContactsTable(o.Code)
}

func ContactsTable(code string) string {
	return "contacts_" + strings.ToLower(code)
}

// Contact lives in a per-organization table, see ContactsTable.
type Contact struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Tags      datatypes.JSONSlice[string]
}
