package repository

import (
	"context"
	"errors"

	"appointly/cmd/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

// OverlapCheck inspects the contact's active appointments on the target date
// and returns a non-nil error to abort the write.
type OverlapCheck func(active []*entity.Appointment) error

type DefaultAppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *DefaultAppointmentRepository {
	return &DefaultAppointmentRepository{db: db}
}

func (a *DefaultAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appt entity.Appointment
	res := a.db.WithContext(ctx).
		Preload("Tags").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") }).
		Where("id = ?", id).
		Limit(1).
		Find(&appt)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &appt, nil
}

// CreateChecked inserts appt only if check accepts the contact's active
// appointments on the same date. Check and insert run in one transaction
// holding the (contact, date) guard row.
func (a *DefaultAppointmentRepository) CreateChecked(ctx context.Context, appt *entity.Appointment, check OverlapCheck) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := lockAndLoadActive(tx, appt.ContactID, appt.Date, uuid.Nil)
		if err != nil {
			return err
		}
		if err := check(active); err != nil {
			return err
		}
		return tx.Create(appt).Error
	})
}

// RescheduleChecked moves appt to its new range and appends entry to its
// history. appt must already carry the new date, times and status.
func (a *DefaultAppointmentRepository) RescheduleChecked(ctx context.Context, appt *entity.Appointment, entry *entity.AppointmentHistory, check OverlapCheck) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := lockAndLoadActive(tx, appt.ContactID, appt.Date, appt.ID)
		if err != nil {
			return err
		}
		if err := check(active); err != nil {
			return err
		}

		var seq int64
		err = tx.Model(&entity.AppointmentHistory{}).
			Where("appointment_id = ?", appt.ID).
			Count(&seq).Error
		if err != nil {
			return err
		}
		entry.AppointmentID = appt.ID
		entry.Seq = int(seq) + 1
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		res := tx.Model(&entity.Appointment{}).
			Where("id = ?", appt.ID).
			Where("status IN ?", entity.ActiveStatuses).
			Updates(map[string]any{
				"date":           appt.Date,
				"from_time":      appt.FromTime,
				"to_time":        appt.ToTime,
				"from_date_time": appt.FromDateTime,
				"to_date_time":   appt.ToDateTime,
				"status":         appt.Status,
				"updated_by":     appt.UpdatedBy,
				"updated_at":     appt.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func lockAndLoadActive(tx *gorm.DB, contactID uuid.UUID, date string, exclude uuid.UUID) ([]*entity.Appointment, error) {
	guard := entity.ContactDayLock{ContactID: contactID, Date: date}
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&guard).Error
	if err != nil {
		return nil, err
	}
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("contact_id = ? AND date = ?", contactID, date).
		Take(&guard).Error
	if err != nil {
		return nil, err
	}

	q := tx.Model(&entity.Appointment{}).
		Where("contact_id = ?", contactID).
		Where("date = ?", date).
		Where("status IN ?", entity.ActiveStatuses)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}

	var active []*entity.Appointment
	if err := q.Find(&active).Error; err != nil {
		return nil, err
	}
	return active, nil
}

// FindDayAppointments finds the active appointments of a contact on a date.
// This method returns PARTIAL appointment entities, having only the time
// fields.
func (a *DefaultAppointmentRepository) FindDayAppointments(ctx context.Context, orgID, contactID uuid.UUID, date string) ([]*entity.Appointment, error) {
	var results []*entity.Appointment

	err := a.db.WithContext(ctx).Model(&entity.Appointment{}).
		Select("from_time, to_time, from_date_time, to_date_time").
		Where("organization_id = ?", orgID).
		Where("contact_id = ?", contactID).
		Where("date = ?", date).
		Where("status IN ?", entity.ActiveStatuses).
		Order("from_date_time asc").
		Find(&results).Error

	if err != nil {
		return nil, err
	}
	return results, nil
}

func (a *DefaultAppointmentRepository) CountByContact(ctx context.Context, orgID, contactID uuid.UUID) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("organization_id = ?", orgID).
		Where("contact_id = ?", contactID).
		Count(&count).Error
	return count, err
}

// ListByContact returns one page of a contact's appointments, newest first,
// with tags and ordered history loaded.
func (a *DefaultAppointmentRepository) ListByContact(ctx context.Context, orgID, contactID uuid.UUID, offset, limit int) ([]*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := a.db.WithContext(ctx).
		Preload("Tags").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") }).
		Where("organization_id = ?", orgID).
		Where("contact_id = ?", contactID).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&appts).Error
	return appts, err
}

// DeleteWithTombstone writes tombstone and then removes the appointment with
// its tags and history.
func (a *DefaultAppointmentRepository) DeleteWithTombstone(ctx context.Context, id uuid.UUID, tombstone *entity.DeletedAppointment) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tombstone).Error; err != nil {
			return err
		}
		if err := tx.Where("appointment_id = ?", id).Delete(&entity.AppointmentTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("appointment_id = ?", id).Delete(&entity.AppointmentHistory{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entity.Appointment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
