package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"appointly/cmd/internal/domain/database/repository"
	"appointly/cmd/internal/domain/entity"
	"appointly/cmd/internal/events"
	"appointly/cmd/internal/timerange"
	"appointly/cmd/internal/utils"
	"appointly/cmd/internal/utils/apierror"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"gorm.io/datatypes"
)

var errConflict = errors.New("appointment overlaps an active appointment")

type AppointmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	CreateChecked(ctx context.Context, appt *entity.Appointment, check repository.OverlapCheck) error
	RescheduleChecked(ctx context.Context, appt *entity.Appointment, entry *entity.AppointmentHistory, check repository.OverlapCheck) error
	FindDayAppointments(ctx context.Context, orgID, contactID uuid.UUID, date string) ([]*entity.Appointment, error)
	CountByContact(ctx context.Context, orgID, contactID uuid.UUID) (int64, error)
	ListByContact(ctx context.Context, orgID, contactID uuid.UUID, offset, limit int) ([]*entity.Appointment, error)
	DeleteWithTombstone(ctx context.Context, id uuid.UUID, tombstone *entity.DeletedAppointment) error
}

type UserRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error)
}

type TagRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Tag, error)
}

type CreateAppointmentRequest struct {
	ContactID string   `json:"contactId" validate:"required,uuid"`
	Date      string   `json:"date" validate:"required,usdate"`
	FromTime  string   `json:"fromTime" validate:"required,clock12"`
	ToTime    string   `json:"toTime" validate:"required,clock12"`
	Tags      []string `json:"tags" validate:"dive,uuid"`
	Agenda    string   `json:"agenda" validate:"max=1024"`
	Note      *string  `json:"note" validate:"omitempty,max=4096"`
}

type RescheduleRequest struct {
	Date     string `json:"date" validate:"required,usdate"`
	FromTime string `json:"fromTime" validate:"required,clock12"`
	ToTime   string `json:"toTime" validate:"required,clock12"`
}

type AppointmentResponse struct {
	ID             string   `json:"id"`
	ContactID      string   `json:"contactId"`
	OrganizationID string   `json:"orgId"`
	Agenda         string   `json:"agenda"`
	Note           *string  `json:"note,omitempty"`
	Date           string   `json:"date"`
	FromTime       string   `json:"fromTime"`
	ToTime         string   `json:"toTime"`
	FromDateTime   string   `json:"fromDateTime"`
	ToDateTime     string   `json:"toDateTime"`
	Tags           []string `json:"tags"`
	Status         string   `json:"status"`
	CreatedBy      string   `json:"createdBy"`
	UpdatedBy      string   `json:"updatedBy"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

type ScheduledSlot struct {
	FromTime     string `json:"fromTime"`
	ToTime       string `json:"toTime"`
	FromDateTime string `json:"fromDateTime"`
	ToDateTime   string `json:"toDateTime"`
}

type CalendarResponse struct {
	Date           string           `json:"date"`
	ScheduledSlots []*ScheduledSlot `json:"scheduledSlots"`
}

type DefaultAppointmentService struct {
	AppointmentRepo AppointmentRepository
	UserRepo        UserRepository
	TagRepo         TagRepository
	OrgRepo         OrganizationRepository
	Events          events.Publisher
	Validate        *validator.Validate

	pageSize int
	location *time.Location
	now      func() time.Time
}

func NewAppointmentService(apptRepo AppointmentRepository, userRepo UserRepository, tagRepo TagRepository, orgRepo OrganizationRepository,
	publisher events.Publisher, validate *validator.Validate, pageSize int, location *time.Location) *DefaultAppointmentService {
	if location == nil {
		location = time.UTC
	}
	return &DefaultAppointmentService{
		AppointmentRepo: apptRepo,
		UserRepo:        userRepo,
		TagRepo:         tagRepo,
		OrgRepo:         orgRepo,
		Events:          publisher,
		Validate:        validate,
		pageSize:        pageSize,
		location:        location,
		now:             utils.NowUTC,
	}
}

func (a *DefaultAppointmentService) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest, caller *utils.TokenData) (*AppointmentResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	rng, apierr := a.checkRange(req.Date, req.FromTime, req.ToTime)
	if apierr != nil {
		return nil, apierr
	}

	now := a.now().UTC()
	appt := &entity.Appointment{
		ID:             uuid.New(),
		ContactID:      uuid.MustParse(req.ContactID),
		OrganizationID: caller.OrganizationID,
		Agenda:         req.Agenda,
		Note:           req.Note,
		Status:         entity.StatusScheduled,
		Tags:           toAppointmentTags(req.Tags),
		CreatedBy:      caller.Sub,
		UpdatedBy:      caller.Sub,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyRange(appt, rng)

	err := a.AppointmentRepo.CreateChecked(ctx, appt, rejectOverlap(rng))
	if errors.Is(err, errConflict) {
		return nil, apierror.AppointmentOverlapError
	}
	if err != nil {
		log.Errorf("failed to save appointment for contact %s: %v", appt.ContactID, err)
		return nil, apierror.InternalServerError
	}

	a.publish(ctx, events.AppointmentCreated, appt)
	return toAppointmentResponse(appt), nil
}

func (a *DefaultAppointmentService) RescheduleAppointment(ctx context.Context, id uuid.UUID, req *RescheduleRequest, caller *utils.TokenData) (*AppointmentResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	appt, apierr := a.findOwned(ctx, id, caller)
	if apierr != nil {
		return nil, apierr
	}
	if !appt.Status.IsActive() {
		return nil, apierror.AppointmentInactiveError
	}

	rng, apierr := a.checkRange(req.Date, req.FromTime, req.ToTime)
	if apierr != nil {
		return nil, apierr
	}

	now := a.now().UTC()
	entry := &entity.AppointmentHistory{
		PreviousFrom:  appt.FromDateTime,
		PreviousTo:    appt.ToDateTime,
		RescheduledBy: caller.Sub,
		RescheduledAt: now,
	}
	applyRange(appt, rng)
	appt.Status = entity.StatusRescheduled
	appt.UpdatedBy = caller.Sub
	appt.UpdatedAt = now

	err := a.AppointmentRepo.RescheduleChecked(ctx, appt, entry, rejectOverlap(rng))
	switch {
	case errors.Is(err, errConflict):
		return nil, apierror.AppointmentOverlapError
	case errors.Is(err, repository.ErrNotFound):
		return nil, apierror.NotFoundError
	case err != nil:
		log.Errorf("failed to reschedule appointment %s: %v", id, err)
		return nil, apierror.InternalServerError
	}
	appt.History = append(appt.History, *entry)

	a.publish(ctx, events.AppointmentRescheduled, appt)
	return toAppointmentResponse(appt), nil
}

func (a *DefaultAppointmentService) DeleteAppointment(ctx context.Context, id uuid.UUID, caller *utils.TokenData) apierror.ErrorResponse {
	appt, apierr := a.findOwned(ctx, id, caller)
	if apierr != nil {
		return apierr
	}

	snapshot, err := json.Marshal(events.SnapshotOf(appt))
	if err != nil {
		log.Errorf("failed to snapshot appointment %s: %v", id, err)
		return apierror.InternalServerError
	}
	tombstone := &entity.DeletedAppointment{
		ID:             uuid.New(),
		AppointmentID:  appt.ID,
		OrganizationID: appt.OrganizationID,
		Snapshot:       datatypes.JSON(snapshot),
		DeletedBy:      caller.Sub,
		DeletedAt:      a.now().UTC(),
	}

	err = a.AppointmentRepo.DeleteWithTombstone(ctx, appt.ID, tombstone)
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.NotFoundError
	}
	if err != nil {
		log.Errorf("failed to delete appointment by id %s: %v", id, err)
		return apierror.InternalServerError
	}

	a.publish(ctx, events.AppointmentDeleted, appt)
	return nil
}

// GetCalendar lists the contact's booked slots on date so a free one can be
// picked.
func (a *DefaultAppointmentService) GetCalendar(ctx context.Context, contactID uuid.UUID, date string, caller *utils.TokenData) (*CalendarResponse, apierror.ErrorResponse) {
	day, err := timerange.ParseDate(date)
	if err != nil {
		return nil, apierror.InvalidDateTimeError
	}
	date = day.Format(timerange.DateLayout)

	appts, err := a.AppointmentRepo.FindDayAppointments(ctx, caller.OrganizationID, contactID, date)
	if err != nil {
		log.Errorf("failed to fetch appointments of contact %s on %s: %v", contactID, date, err)
		return nil, apierror.InternalServerError
	}

	slots := make([]*ScheduledSlot, len(appts))
	for i, appt := range appts {
		slots[i] = &ScheduledSlot{
			FromTime:     appt.FromTime,
			ToTime:       appt.ToTime,
			FromDateTime: timerange.FormatDateTime(appt.FromDateTime),
			ToDateTime:   timerange.FormatDateTime(appt.ToDateTime),
		}
	}
	return &CalendarResponse{Date: date, ScheduledSlots: slots}, nil
}

func (a *DefaultAppointmentService) findOwned(ctx context.Context, id uuid.UUID, caller *utils.TokenData) (*entity.Appointment, apierror.ErrorResponse) {
	appt, err := a.AppointmentRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch appointment by id %s: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if appt == nil || appt.OrganizationID != caller.OrganizationID {
		return nil, apierror.NotFoundError
	}
	return appt, nil
}

// checkRange applies the date and time rules in order: a parsable range, a
// start that is not in the past, then a non-inverted, non-empty range.
func (a *DefaultAppointmentService) checkRange(date, from, to string) (timerange.Range, apierror.ErrorResponse) {
	rng, err := timerange.Build(date, from, to)
	if err != nil {
		return timerange.Range{}, apierror.InvalidDateTimeError
	}
	if !rng.StartsAfter(a.now(), a.location) {
		return timerange.Range{}, apierror.AppointmentInPastError
	}
	switch rng.Validate() {
	case timerange.ErrInverted:
		return timerange.Range{}, apierror.InvertedRangeError
	case timerange.ErrEmptyRange:
		return timerange.Range{}, apierror.EmptyRangeError
	}
	return rng, nil
}

func (a *DefaultAppointmentService) publish(ctx context.Context, eventType string, appt *entity.Appointment) {
	if a.Events == nil {
		return
	}
	evt := events.NewLifecycleEvent(eventType, appt, a.now().UTC())
	if err := a.Events.Publish(ctx, evt); err != nil {
		log.Errorf("failed to publish %s for appointment %s: %v", eventType, appt.ID, err)
	}
}

// rejectOverlap fails with errConflict when rng overlaps any of the active
// appointments.
func rejectOverlap(rng timerange.Range) repository.OverlapCheck {
	return func(active []*entity.Appointment) error {
		existing := make([]timerange.Range, len(active))
		for i, appt := range active {
			existing[i] = timerange.Range{From: appt.FromDateTime, To: appt.ToDateTime}
		}
		if timerange.Conflicts(rng, existing) {
			return errConflict
		}
		return nil
	}
}

func applyRange(appt *entity.Appointment, rng timerange.Range) {
	appt.Date = rng.From.Format(timerange.DateLayout)
	appt.FromTime = rng.From.Format(timerange.ClockLayout)
	appt.ToTime = rng.To.Format(timerange.ClockLayout)
	appt.FromDateTime = rng.From
	appt.ToDateTime = rng.To
}

func toAppointmentTags(ids []string) []entity.AppointmentTag {
	seen := make(map[uuid.UUID]bool, len(ids))
	tags := make([]entity.AppointmentTag, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		tags = append(tags, entity.AppointmentTag{TagID: id})
	}
	return tags
}

func toAppointmentResponse(appt *entity.Appointment) *AppointmentResponse {
	tags := make([]string, len(appt.Tags))
	for i, t := range appt.Tags {
		tags[i] = t.TagID.String()
	}
	return &AppointmentResponse{
		ID:             appt.ID.String(),
		ContactID:      appt.ContactID.String(),
		OrganizationID: appt.OrganizationID.String(),
		Agenda:         appt.Agenda,
		Note:           appt.Note,
		Date:           appt.Date,
		FromTime:       appt.FromTime,
		ToTime:         appt.ToTime,
		FromDateTime:   timerange.FormatDateTime(appt.FromDateTime),
		ToDateTime:     timerange.FormatDateTime(appt.ToDateTime),
		Tags:           tags,
		Status:         string(appt.Status),
		CreatedBy:      appt.CreatedBy.String(),
		UpdatedBy:      appt.UpdatedBy.String(),
		CreatedAt:      utils.FormatTimestamp(appt.CreatedAt),
		UpdatedAt:      utils.FormatTimestamp(appt.UpdatedAt),
	}
}
