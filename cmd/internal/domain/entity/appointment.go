package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusDeleted     AppointmentStatus = "deleted"
)

// ActiveStatuses take part in overlap checks.
var ActiveStatuses = []AppointmentStatus{StatusScheduled, StatusRescheduled}

func (s AppointmentStatus) IsActive() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

type Appointment struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ContactID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_appt_contact_date,priority:1"`
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Agenda         string            `gorm:"not null"`
	Note           *string
	Date           string            `gorm:"not null;index:idx_appt_contact_date,priority:2"` // MM/DD/YYYY
	FromTime       string            `gorm:"not null"`
	ToTime         string            `gorm:"not null"`
	FromDateTime   time.Time         `gorm:"not null"`
	ToDateTime     time.Time         `gorm:"not null"`
	Status         AppointmentStatus `gorm:"not null;index"`
	CreatedBy      uuid.UUID         `gorm:"type:uuid;not null"` // References: users(id)
	UpdatedBy      uuid.UUID         `gorm:"type:uuid;not null"`
	CreatedAt      time.Time         `gorm:"not null;index"`
	UpdatedAt      time.Time         `gorm:"not null"`

	// Relations
	Tags    []AppointmentTag     `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE"`
	History []AppointmentHistory `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE"`
}

func (a *Appointment) TagIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(a.Tags))
	for i, t := range a.Tags {
		ids[i] = t.TagID
	}
	return ids
}

type AppointmentTag struct {
	AppointmentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagID         uuid.UUID `gorm:"type:uuid;primaryKey"` // References: tags(id)
}

// AppointmentHistory is one reschedule record. Seq orders the records of an
// appointment; rows are only ever appended.
type AppointmentHistory struct {
	AppointmentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq           int       `gorm:"primaryKey;autoIncrement:false"`
	PreviousFrom  time.Time `gorm:"not null"`
	PreviousTo    time.Time `gorm:"not null"`
	RescheduledBy uuid.UUID `gorm:"type:uuid;not null"` // References: users(id)
	RescheduledAt time.Time `gorm:"not null"`
}

// DeletedAppointment is the audit copy written before an appointment is
// removed.
type DeletedAppointment struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	AppointmentID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Snapshot       datatypes.JSON `gorm:"not null"`
	DeletedBy      uuid.UUID      `gorm:"type:uuid"`
	DeletedAt      time.Time      `gorm:"not null"`
}

func (DeletedAppointment) TableName() string {
	return "appointment_deleted"
}

// ContactDayLock guards check-and-insert of appointments for one contact on
// one date.
type ContactDayLock struct {
	ContactID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Date      string    `gorm:"primaryKey"`
}
