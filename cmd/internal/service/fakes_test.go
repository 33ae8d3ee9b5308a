package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"appointly/cmd/internal/domain/database/repository"
	"appointly/cmd/internal/domain/entity"
	"appointly/cmd/internal/events"
	"appointly/cmd/internal/utils"
	"appointly/cmd/internal/utils/validators"
	"github.com/google/uuid"
)

type fakeAppointmentRepo struct {
	mu         sync.Mutex
	appts      map[uuid.UUID]*entity.Appointment
	tombstones []*entity.DeletedAppointment
	err        error
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appts: map[uuid.UUID]*entity.Appointment{}}
}

func clone(a *entity.Appointment) *entity.Appointment {
	c := *a
	c.Tags = append([]entity.AppointmentTag(nil), a.Tags...)
	c.History = append([]entity.AppointmentHistory(nil), a.History...)
	return &c
}

func (f *fakeAppointmentRepo) put(a *entity.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appts[a.ID] = clone(a)
}

func (f *fakeAppointmentRepo) get(id uuid.UUID) *entity.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.appts[id]; ok {
		return clone(a)
	}
	return nil
}

func (f *fakeAppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.get(id), nil
}

func (f *fakeAppointmentRepo) activeOn(contactID uuid.UUID, date string, exclude uuid.UUID) []*entity.Appointment {
	var active []*entity.Appointment
	for _, a := range f.appts {
		if a.ContactID == contactID && a.Date == date && a.Status.IsActive() && a.ID != exclude {
			active = append(active, clone(a))
		}
	}
	return active
}

func (f *fakeAppointmentRepo) CreateChecked(ctx context.Context, appt *entity.Appointment, check repository.OverlapCheck) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := check(f.activeOn(appt.ContactID, appt.Date, uuid.Nil)); err != nil {
		return err
	}
	f.appts[appt.ID] = clone(appt)
	return nil
}

func (f *fakeAppointmentRepo) RescheduleChecked(ctx context.Context, appt *entity.Appointment, entry *entity.AppointmentHistory, check repository.OverlapCheck) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := check(f.activeOn(appt.ContactID, appt.Date, appt.ID)); err != nil {
		return err
	}
	stored, ok := f.appts[appt.ID]
	if !ok || !stored.Status.IsActive() {
		return repository.ErrNotFound
	}
	entry.AppointmentID = appt.ID
	entry.Seq = len(stored.History) + 1
	updated := clone(appt)
	updated.History = append(append([]entity.AppointmentHistory(nil), stored.History...), *entry)
	f.appts[appt.ID] = updated
	return nil
}

func (f *fakeAppointmentRepo) FindDayAppointments(ctx context.Context, orgID, contactID uuid.UUID, date string) ([]*entity.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Appointment
	for _, a := range f.activeOn(contactID, date, uuid.Nil) {
		if a.OrganizationID == orgID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromDateTime.Before(out[j].FromDateTime) })
	return out, nil
}

func (f *fakeAppointmentRepo) filtered(orgID, contactID uuid.UUID) []*entity.Appointment {
	var out []*entity.Appointment
	for _, a := range f.appts {
		if a.OrganizationID == orgID && a.ContactID == contactID {
			out = append(out, clone(a))
		}
	}
	return out
}

func (f *fakeAppointmentRepo) CountByContact(ctx context.Context, orgID, contactID uuid.UUID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.filtered(orgID, contactID))), nil
}

func (f *fakeAppointmentRepo) ListByContact(ctx context.Context, orgID, contactID uuid.UUID, offset, limit int) ([]*entity.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.filtered(orgID, contactID)
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeAppointmentRepo) DeleteWithTombstone(ctx context.Context, id uuid.UUID, tombstone *entity.DeletedAppointment) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appts[id]; !ok {
		return repository.ErrNotFound
	}
	f.tombstones = append(f.tombstones, tombstone)
	delete(f.appts, id)
	return nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*entity.User
	err   error
}

func (f *fakeUserRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeTagRepo struct {
	tags map[uuid.UUID]*entity.Tag
}

func (f *fakeTagRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Tag, error) {
	var out []*entity.Tag
	for _, id := range ids {
		if t, ok := f.tags[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeOrgRepo struct {
	org *entity.Organization
}

func (f *fakeOrgRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	if f.org != nil && f.org.ID == id {
		return f.org, nil
	}
	return nil, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.LifecycleEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, evt events.LifecycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

var errStore = errors.New("store unavailable")

// fixedNow is noon UTC on 01/01/2030.
var fixedNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *DefaultAppointmentService
	appts     *fakeAppointmentRepo
	users     *fakeUserRepo
	tags      *fakeTagRepo
	publisher *fakePublisher
	caller    *utils.TokenData
}

func newFixture(pageSize int) *fixture {
	f := &fixture{
		appts:     newFakeAppointmentRepo(),
		users:     &fakeUserRepo{users: map[uuid.UUID]*entity.User{}},
		tags:      &fakeTagRepo{tags: map[uuid.UUID]*entity.Tag{}},
		publisher: &fakePublisher{},
		caller:    &utils.TokenData{Sub: uuid.New(), OrganizationID: uuid.New()},
	}
	orgs := &fakeOrgRepo{org: &entity.Organization{ID: f.caller.OrganizationID, Name: "Acme", Code: "ACME"}}
	f.svc = NewAppointmentService(f.appts, f.users, f.tags, orgs, f.publisher, validators.New(), pageSize, time.UTC)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}
