package service

import (
	"context"

	"appointly/cmd/internal/domain/entity"
	"appointly/cmd/internal/timerange"
	"appointly/cmd/internal/utils"
	"appointly/cmd/internal/utils/apierror"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error)
}

type TagResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type HistoryResponse struct {
	PreviousFromDateTime string `json:"previousFromDateTime"`
	PreviousToDateTime   string `json:"previousToDateTime"`
	RescheduledBy        string `json:"rescheduledBy"`
	RescheduledByName    string `json:"rescheduledByName"`
	RescheduledAt        string `json:"rescheduledAt"`
}

type ListedAppointment struct {
	ID               string             `json:"id"`
	ContactID        string             `json:"contactId"`
	OrganizationID   string             `json:"orgId"`
	OrganizationName string             `json:"organizationName"`
	Agenda           string             `json:"agenda"`
	Note             *string            `json:"note,omitempty"`
	Date             string             `json:"date"`
	FromTime         string             `json:"fromTime"`
	ToTime           string             `json:"toTime"`
	FromDateTime     string             `json:"fromDateTime"`
	ToDateTime       string             `json:"toDateTime"`
	Status           string             `json:"status"`
	Tags             []*TagResponse     `json:"tags"`
	CreatedBy        string             `json:"createdBy"`
	CreatedByName    string             `json:"createdByName"`
	UpdatedBy        string             `json:"updatedBy"`
	CreatedAt        string             `json:"createdAt"`
	UpdatedAt        string             `json:"updatedAt"`
	RescheduleCount  int                `json:"rescheduleCount"`
	History          []*HistoryResponse `json:"history,omitempty"`
}

type Pagination struct {
	Count       int64 `json:"count"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
}

type AppointmentListResponse struct {
	Appointments []*ListedAppointment `json:"appointments"`
	Pagination   Pagination           `json:"pagination"`
}

// listRefs holds everything an appointment page points at.
type listRefs struct {
	users   map[uuid.UUID]*entity.User
	tags    map[uuid.UUID]*entity.Tag
	orgName string
}

// ListAppointments returns one page of the contact's appointments, newest
// first, with creator names, tags and reschedule history resolved.
func (a *DefaultAppointmentService) ListAppointments(ctx context.Context, contactID uuid.UUID, page int, caller *utils.TokenData) (*AppointmentListResponse, apierror.ErrorResponse) {
	if page < 1 {
		page = 1
	}
	orgID := caller.OrganizationID

	total, err := a.AppointmentRepo.CountByContact(ctx, orgID, contactID)
	if err != nil {
		log.Errorf("failed to count appointments of contact %s: %v", contactID, err)
		return nil, apierror.InternalServerError
	}

	resp := &AppointmentListResponse{
		Appointments: []*ListedAppointment{},
		Pagination: Pagination{
			Count:       total,
			CurrentPage: page,
			TotalPages:  totalPages(total, a.pageSize),
		},
	}
	// Past the last page there is nothing to fetch.
	if total == 0 || page > resp.Pagination.TotalPages {
		return resp, nil
	}

	appts, err := a.AppointmentRepo.ListByContact(ctx, orgID, contactID, (page-1)*a.pageSize, a.pageSize)
	if err != nil {
		log.Errorf("failed to list appointments of contact %s: %v", contactID, err)
		return nil, apierror.InternalServerError
	}
	if len(appts) == 0 {
		return resp, nil
	}

	refs, err := a.loadRefs(ctx, orgID, appts)
	if err != nil {
		log.Errorf("failed to resolve appointment references for contact %s: %v", contactID, err)
		return nil, apierror.InternalServerError
	}

	for _, appt := range appts {
		resp.Appointments = append(resp.Appointments, toListedAppointment(appt, refs))
	}
	return resp, nil
}

// loadRefs fetches users, tags and the organization of a page concurrently.
func (a *DefaultAppointmentService) loadRefs(ctx context.Context, orgID uuid.UUID, appts []*entity.Appointment) (*listRefs, error) {
	userIDs := newIDSet()
	tagIDs := newIDSet()
	for _, appt := range appts {
		userIDs.add(appt.CreatedBy)
		for _, h := range appt.History {
			userIDs.add(h.RescheduledBy)
		}
		for _, t := range appt.Tags {
			tagIDs.add(t.TagID)
		}
	}

	refs := &listRefs{
		users: map[uuid.UUID]*entity.User{},
		tags:  map[uuid.UUID]*entity.Tag{},
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := a.UserRepo.FindByIDs(gctx, userIDs.ids)
		if err != nil {
			return err
		}
		for _, u := range users {
			refs.users[u.ID] = u
		}
		return nil
	})
	g.Go(func() error {
		tags, err := a.TagRepo.FindByIDs(gctx, tagIDs.ids)
		if err != nil {
			return err
		}
		for _, t := range tags {
			refs.tags[t.ID] = t
		}
		return nil
	})
	g.Go(func() error {
		if a.OrgRepo == nil {
			return nil
		}
		org, err := a.OrgRepo.FindByID(gctx, orgID)
		if err != nil {
			return err
		}
		if org != nil {
			refs.orgName = org.Name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func toListedAppointment(appt *entity.Appointment, refs *listRefs) *ListedAppointment {
	item := &ListedAppointment{
		ID:               appt.ID.String(),
		ContactID:        appt.ContactID.String(),
		OrganizationID:   appt.OrganizationID.String(),
		OrganizationName: refs.orgName,
		Agenda:           appt.Agenda,
		Note:             appt.Note,
		Date:             appt.Date,
		FromTime:         appt.FromTime,
		ToTime:           appt.ToTime,
		FromDateTime:     timerange.FormatDateTime(appt.FromDateTime),
		ToDateTime:       timerange.FormatDateTime(appt.ToDateTime),
		Status:           string(appt.Status),
		Tags:             []*TagResponse{},
		CreatedBy:        appt.CreatedBy.String(),
		CreatedByName:    refs.users[appt.CreatedBy].DisplayName(),
		UpdatedBy:        appt.UpdatedBy.String(),
		CreatedAt:        utils.FormatTimestamp(appt.CreatedAt),
		UpdatedAt:        utils.FormatTimestamp(appt.UpdatedAt),
		RescheduleCount:  len(appt.History),
	}

	for _, t := range appt.Tags {
		tag, ok := refs.tags[t.TagID]
		if !ok {
			continue
		}
		item.Tags = append(item.Tags, &TagResponse{ID: tag.ID.String(), Name: tag.Name, Color: tag.Color})
	}

	// A nil History is dropped from the JSON when there were no reschedules.
	if item.RescheduleCount > 0 {
		item.History = make([]*HistoryResponse, len(appt.History))
		for i, h := range appt.History {
			item.History[i] = &HistoryResponse{
				PreviousFromDateTime: timerange.FormatDateTime(h.PreviousFrom),
				PreviousToDateTime:   timerange.FormatDateTime(h.PreviousTo),
				RescheduledBy:        h.RescheduledBy.String(),
				RescheduledByName:    refs.users[h.RescheduledBy].DisplayName(),
				RescheduledAt:        utils.FormatTimestamp(h.RescheduledAt),
			}
		}
	}
	return item
}

func totalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

type idSet struct {
	seen map[uuid.UUID]bool
	ids  []uuid.UUID
}

func newIDSet() *idSet {
	return &idSet{seen: map[uuid.UUID]bool{}}
}

func (s *idSet) add(id uuid.UUID) {
	if id == uuid.Nil || s.seen[id] {
		return
	}
	s.seen[id] = true
	s.ids = append(s.ids, id)
}
