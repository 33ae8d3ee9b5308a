package automation

import (
	"context"
	"strings"

	"appointly/cmd/internal/domain/entity"
	"appointly/cmd/internal/events"
	"appointly/cmd/internal/timerange"
	"appointly/cmd/internal/utils"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error)
}

type ContactRepository interface {
	FindByID(ctx context.Context, orgCode string, id uuid.UUID) (*entity.Contact, error)
}

type PayloadBuilder struct {
	organizations OrganizationRepository
	contacts      ContactRepository
}

func NewPayloadBuilder(organizations OrganizationRepository, contacts ContactRepository) *PayloadBuilder {
	return &PayloadBuilder{organizations: organizations, contacts: contacts}
}

// Build flattens the appointment and merges in the contact's fields.
// Appointment keys win on collision. A contact that cannot be resolved is
// logged and left out.
func (b *PayloadBuilder) Build(ctx context.Context, snap events.AppointmentSnapshot) map[string]string {
	payload := map[string]string{}

	contact, err := b.findContact(ctx, snap.OrganizationID, snap.ContactID)
	if err != nil {
		log.Warnf("automation payload without contact %s: %v", snap.ContactID, err)
	} else if contact != nil {
		for k, v := range FlattenContact(contact) {
			payload[k] = v
		}
	}

	for k, v := range FlattenAppointment(snap) {
		payload[k] = v
	}
	return payload
}

func (b *PayloadBuilder) findContact(ctx context.Context, orgID, contactID uuid.UUID) (*entity.Contact, error) {
	org, err := b.organizations.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		log.Warnf("organization %s not found", orgID)
		return nil, nil
	}
	return b.contacts.FindByID(ctx, org.Code, contactID)
}

func FlattenAppointment(snap events.AppointmentSnapshot) map[string]string {
	tags := make([]string, len(snap.Tags))
	for i, t := range snap.Tags {
		tags[i] = t.String()
	}
	return map[string]string{
		"appointment_id":           snap.ID.String(),
		"appointment_agenda":       snap.Agenda,
		"appointment_contactId":    snap.ContactID.String(),
		"appointment_date":         snap.Date,
		"appointment_toTime":       snap.ToTime,
		"appointment_toDateTime":   timerange.FormatDateTime(snap.ToDateTime),
		"appointment_fromTime":     snap.FromTime,
		"appointment_fromDateTime": timerange.FormatDateTime(snap.FromDateTime),
		"appointment_tags":         strings.Join(tags, ","),
		"appointment_status":       string(snap.Status),
		"appointment_orgId":        snap.OrganizationID.String(),
		"appointment_createdBy":    snap.CreatedBy.String(),
		"appointment_updatedBy":    snap.UpdatedBy.String(),
		"appointment_createdAt":    utils.FormatTimestamp(snap.CreatedAt),
		"appointment_updatedAt":    utils.FormatTimestamp(snap.UpdatedAt),
	}
}

func FlattenContact(c *entity.Contact) map[string]string {
	return map[string]string{
		"id":        c.ID.String(),
		"firstName": c.FirstName,
		"lastName":  c.LastName,
		"email":     c.Email,
		"phone":     c.Phone,
		"tags":      strings.Join(c.Tags, ","),
	}
}
