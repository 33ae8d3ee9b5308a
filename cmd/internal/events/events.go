package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"appointly/cmd/internal/domain/entity"
	"github.com/google/uuid"
)

// Event types understood by automation definitions.
const (
	AppointmentCreated     = "appointmentCreate"
	AppointmentDeleted     = "appointmentDeleted"
	AppointmentRescheduled = "appointmentRescheduled"
)

// RoutingKey is the broker routing key for an event type.
func RoutingKey(eventType string) string {
	return "appointment." + eventType
}

// AppointmentSnapshot is a self-contained copy of an appointment, taken at
// the moment the event happened.
type AppointmentSnapshot struct {
	ID             uuid.UUID                `json:"id"`
	ContactID      uuid.UUID                `json:"contactId"`
	OrganizationID uuid.UUID                `json:"orgId"`
	Agenda         string                   `json:"agenda"`
	Note           *string                  `json:"note,omitempty"`
	Date           string                   `json:"date"`
	FromTime       string                   `json:"fromTime"`
	ToTime         string                   `json:"toTime"`
	FromDateTime   time.Time                `json:"fromDateTime"`
	ToDateTime     time.Time                `json:"toDateTime"`
	Tags           []uuid.UUID              `json:"tags"`
	Status         entity.AppointmentStatus `json:"status"`
	CreatedBy      uuid.UUID                `json:"createdBy"`
	UpdatedBy      uuid.UUID                `json:"updatedBy"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

func SnapshotOf(a *entity.Appointment) AppointmentSnapshot {
	return AppointmentSnapshot{
		ID:             a.ID,
		ContactID:      a.ContactID,
		OrganizationID: a.OrganizationID,
		Agenda:         a.Agenda,
		Note:           a.Note,
		Date:           a.Date,
		FromTime:       a.FromTime,
		ToTime:         a.ToTime,
		FromDateTime:   a.FromDateTime,
		ToDateTime:     a.ToDateTime,
		Tags:           a.TagIDs(),
		Status:         a.Status,
		CreatedBy:      a.CreatedBy,
		UpdatedBy:      a.UpdatedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type LifecycleEvent struct {
	ID             uuid.UUID           `json:"id"`
	Type           string              `json:"type"`
	OrganizationID uuid.UUID           `json:"orgId"`
	Appointment    AppointmentSnapshot `json:"appointment"`
	OccurredAt     time.Time           `json:"occurredAt"`
}

func NewLifecycleEvent(eventType string, a *entity.Appointment, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		ID:             uuid.New(),
		Type:           eventType,
		OrganizationID: a.OrganizationID,
		Appointment:    SnapshotOf(a),
		OccurredAt:     at,
	}
}

func Decode(body []byte) (LifecycleEvent, error) {
	var evt LifecycleEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return LifecycleEvent{}, fmt.Errorf("decode lifecycle event: %w", err)
	}
	if evt.Type == "" || evt.OrganizationID == uuid.Nil {
		return LifecycleEvent{}, fmt.Errorf("decode lifecycle event: missing type or organization")
	}
	return evt, nil
}

// Publisher hands lifecycle events to whatever runs the automations.
type Publisher interface {
	Publish(ctx context.Context, evt LifecycleEvent) error
}

type Handler interface {
	Handle(ctx context.Context, evt LifecycleEvent) error
}

type HandlerFunc func(ctx context.Context, evt LifecycleEvent) error

func (f HandlerFunc) Handle(ctx context.Context, evt LifecycleEvent) error {
	return f(ctx, evt)
}
