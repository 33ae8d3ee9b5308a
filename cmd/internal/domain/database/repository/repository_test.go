package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"appointly/cmd/internal/domain/database"
	"appointly/cmd/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errRejected = errors.New("rejected")

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Init("sqlite", dsn)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newAppointment(orgID, contactID uuid.UUID, date string, from, to time.Time, createdAt time.Time) *entity.Appointment {
	creator := uuid.New()
	return &entity.Appointment{
		ID:             uuid.New(),
		ContactID:      contactID,
		OrganizationID: orgID,
		Agenda:         "checkup",
		Date:           date,
		FromTime:       from.Format("03:04 PM"),
		ToTime:         to.Format("03:04 PM"),
		FromDateTime:   from,
		ToDateTime:     to,
		Status:         entity.StatusScheduled,
		CreatedBy:      creator,
		UpdatedBy:      creator,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func at(hour int) time.Time {
	return time.Date(2030, 1, 10, hour, 0, 0, 0, time.UTC)
}

func TestAppointmentRepository_CreateChecked(t *testing.T) {
	db := testDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()
	org, contact := uuid.New(), uuid.New()

	first := newAppointment(org, contact, "01/10/2030", at(9), at(10), time.Now())
	first.Tags = []entity.AppointmentTag{{TagID: uuid.New()}, {TagID: uuid.New()}}

	var seen []*entity.Appointment
	err := repo.CreateChecked(ctx, first, func(active []*entity.Appointment) error {
		seen = active
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 0 {
		t.Errorf("expected no active appointments, got %d", len(seen))
	}

	got, err := repo.FindByID(ctx, first.ID)
	if err != nil || got == nil {
		t.Fatalf("find: %v %v", got, err)
	}
	if len(got.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(got.Tags))
	}

	second := newAppointment(org, contact, "01/10/2030", at(11), at(12), time.Now())
	err = repo.CreateChecked(ctx, second, func(active []*entity.Appointment) error {
		seen = active
		return errRejected
	})
	if !errors.Is(err, errRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(seen) != 1 || seen[0].ID != first.ID {
		t.Errorf("expected the first appointment to be active, got %v", seen)
	}
	if got, _ := repo.FindByID(ctx, second.ID); got != nil {
		t.Error("rejected appointment must not be persisted")
	}
}

func TestAppointmentRepository_CreateChecked_ScopesByDateAndStatus(t *testing.T) {
	db := testDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()
	org, contact := uuid.New(), uuid.New()

	other := newAppointment(org, contact, "01/11/2030", at(9), at(10), time.Now())
	cancelled := newAppointment(org, contact, "01/10/2030", at(9), at(10), time.Now())
	cancelled.Status = entity.StatusCancelled
	otherContact := newAppointment(org, uuid.New(), "01/10/2030", at(9), at(10), time.Now())
	for _, a := range []*entity.Appointment{other, cancelled, otherContact} {
		if err := db.Create(a).Error; err != nil {
			t.Fatal(err)
		}
	}

	candidate := newAppointment(org, contact, "01/10/2030", at(9), at(10), time.Now())
	err := repo.CreateChecked(ctx, candidate, func(active []*entity.Appointment) error {
		if len(active) != 0 {
			t.Errorf("expected no active appointments, got %d", len(active))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppointmentRepository_FindDayAppointments(t *testing.T) {
	db := testDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()
	org, contact := uuid.New(), uuid.New()

	late := newAppointment(org, contact, "01/10/2030", at(14), at(15), time.Now())
	early := newAppointment(org, contact, "01/10/2030", at(8), at(9), time.Now())
	cancelled := newAppointment(org, contact, "01/10/2030", at(10), at(11), time.Now())
	cancelled.Status = entity.StatusCancelled
	foreign := newAppointment(uuid.New(), contact, "01/10/2030", at(11), at(12), time.Now())
	nextDay := newAppointment(org, contact, "01/11/2030", at(8), at(9), time.Now())
	for _, a := range []*entity.Appointment{late, early, cancelled, foreign, nextDay} {
		if err := db.Create(a).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.FindDayAppointments(ctx, org, contact, "01/10/2030")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(got))
	}
	if !got[0].FromDateTime.Equal(at(8)) || !got[1].FromDateTime.Equal(at(14)) {
		t.Errorf("expected ordering by start, got %v and %v", got[0].FromDateTime, got[1].FromDateTime)
	}
}

func TestAppointmentRepository_ListByContact(t *testing.T) {
	db := testDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()
	org, contact := uuid.New(), uuid.New()

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		a := newAppointment(org, contact, "01/10/2030", at(8+i), at(9+i), base.Add(time.Duration(i)*time.Hour))
		if err := db.Create(a).Error; err != nil {
			t.Fatal(err)
		}
		ids = append(ids, a.ID)
	}
	foreign := newAppointment(uuid.New(), contact, "01/10/2030", at(8), at(9), base)
	if err := db.Create(foreign).Error; err != nil {
		t.Fatal(err)
	}

	count, err := repo.CountByContact(ctx, org, contact)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("expected 5, got %d", count)
	}

	page, err := repo.ListByContact(ctx, org, contact, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page))
	}
	// Newest first: ids[4], ids[3], ids[2], ids[1], ids[0].
	if page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Errorf("unexpected page order: %v, %v", page[0].ID, page[1].ID)
	}
}

func TestAppointmentRepository_RescheduleChecked(t *testing.T) {
	db := testDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()
	org, contact := uuid.New(), uuid.New()

	appt := newAppointment(org, contact, "01/10/2030", at(9), at(10), time.Now())
	if err := db.Create(appt).Error; err != nil {
		t.Fatal(err)
	}

	actor := uuid.New()
	for i := 0; i < 2; i++ {
		prevFrom, prevTo := appt.FromDateTime, appt.ToDateTime
		appt.FromDateTime = at(13 + i)
		appt.ToDateTime = at(14 + i)
		appt.Status = entity.StatusRescheduled
		appt.UpdatedBy = actor
		appt.UpdatedAt = time.Now()
		entry := &entity.AppointmentHistory{
			PreviousFrom:  prevFrom,
			PreviousTo:    prevTo,
			RescheduledBy: actor,
			RescheduledAt: time.Now(),
		}
		err := repo.RescheduleChecked(ctx, appt, entry, func(active []*entity.Appointment) error {
			for _, a := range active {
				if a.ID == appt.ID {
					t.Error("the rescheduled appointment must be excluded from its own check")
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("reschedule %d: %v", i, err)
		}
		if entry.Seq != i+1 {
			t.Errorf("expected seq %d, got %d", i+1, entry.Seq)
		}
	}

	got, err := repo.FindByID(ctx, appt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.StatusRescheduled {
		t.Errorf("expected rescheduled, got %s", got.Status)
	}
	if len(got.History) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(got.History))
	}
	if !got.History[0].PreviousFrom.Equal(at(9)) || !got.History[1].PreviousFrom.Equal(at(13)) {
		t.Errorf("history out of order: %v", got.History)
	}
}

func TestAppointmentRepository_DeleteWithTombstone(t *testing.T) {
	db := testDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()

	appt := newAppointment(uuid.New(), uuid.New(), "01/10/2030", at(9), at(10), time.Now())
	appt.Tags = []entity.AppointmentTag{{TagID: uuid.New()}}
	if err := db.Create(appt).Error; err != nil {
		t.Fatal(err)
	}

	tomb := &entity.DeletedAppointment{
		ID:             uuid.New(),
		AppointmentID:  appt.ID,
		OrganizationID: appt.OrganizationID,
		Snapshot:       datatypes.JSON(`{"agenda":"checkup"}`),
		DeletedAt:      time.Now(),
	}
	if err := repo.DeleteWithTombstone(ctx, appt.ID, tomb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := repo.FindByID(ctx, appt.ID); got != nil {
		t.Error("appointment should be gone")
	}
	var tombs int64
	db.Model(&entity.DeletedAppointment{}).Where("appointment_id = ?", appt.ID).Count(&tombs)
	if tombs != 1 {
		t.Errorf("expected 1 tombstone, got %d", tombs)
	}
	var tags int64
	db.Model(&entity.AppointmentTag{}).Where("appointment_id = ?", appt.ID).Count(&tags)
	if tags != 0 {
		t.Errorf("expected tags removed, got %d", tags)
	}

	again := &entity.DeletedAppointment{ID: uuid.New(), AppointmentID: appt.ID, OrganizationID: appt.OrganizationID, Snapshot: datatypes.JSON(`{}`), DeletedAt: time.Now()}
	if err := repo.DeleteWithTombstone(ctx, appt.ID, again); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	db.Model(&entity.DeletedAppointment{}).Where("appointment_id = ?", appt.ID).Count(&tombs)
	if tombs != 1 {
		t.Errorf("failed delete must roll back its tombstone, got %d", tombs)
	}
}

func TestAutomationRepository_FindTriggered(t *testing.T) {
	db := testDB(t)
	repo := NewAutomationRepository(db)
	ctx := context.Background()
	org := uuid.New()

	rows := []*entity.Automation{
		{ID: uuid.New(), OrganizationID: org, Name: "on create", WorkflowArn: "arn:aws:states:us-east-1:1:stateMachine:a", EventFlags: datatypes.JSONMap{"appointmentCreate": true}},
		{ID: uuid.New(), OrganizationID: org, Name: "disabled", WorkflowArn: "arn:aws:states:us-east-1:1:stateMachine:b", EventFlags: datatypes.JSONMap{"appointmentCreate": false}},
		{ID: uuid.New(), OrganizationID: org, Name: "no arn", WorkflowArn: "", EventFlags: datatypes.JSONMap{"appointmentCreate": true}},
		{ID: uuid.New(), OrganizationID: uuid.New(), Name: "other org", WorkflowArn: "arn:aws:states:us-east-1:1:stateMachine:c", EventFlags: datatypes.JSONMap{"appointmentCreate": true}},
		{ID: uuid.New(), OrganizationID: org, Name: "on delete", WorkflowArn: "arn:aws:states:us-east-1:1:stateMachine:d", EventFlags: datatypes.JSONMap{"appointmentDeleted": true}},
	}
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.FindTriggered(ctx, org, "appointmentCreate")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "on create" {
		t.Errorf("unexpected automations: %v", got)
	}
}

func TestContactRepository_FindByID(t *testing.T) {
	db := testDB(t)
	org := &entity.Organization{ID: uuid.New(), Name: "Acme", Code: "ACME"}
	if err := db.Create(org).Error; err != nil {
		t.Fatal(err)
	}
	if err := database.MigrateContacts(db, org); err != nil {
		t.Fatal(err)
	}
	contact := &entity.Contact{ID: uuid.New(), FirstName: "Ada", Tags: datatypes.JSONSlice[string]{"t1", "t2"}}
	if err := db.Table(org.ContactsTable()).Create(contact).Error; err != nil {
		t.Fatal(err)
	}

	repo := NewContactRepository(db)
	got, err := repo.FindByID(context.Background(), org.Code, contact.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.FirstName != "Ada" || len(got.Tags) != 2 {
		t.Errorf("unexpected contact %+v", got)
	}

	missing, err := repo.FindByID(context.Background(), org.Code, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil; got %v, %v", missing, err)
	}
}

func TestFindByID_MissingRecords(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	appt, err := NewAppointmentRepository(db).FindByID(ctx, uuid.New())
	if err != nil || appt != nil {
		t.Errorf("appointment: expected nil, nil; got %v, %v", appt, err)
	}
	user, err := NewUserRepository(db).FindByID(ctx, uuid.New())
	if err != nil || user != nil {
		t.Errorf("user: expected nil, nil; got %v, %v", user, err)
	}
	org, err := NewOrganizationRepository(db).FindByID(ctx, uuid.New())
	if err != nil || org != nil {
		t.Errorf("organization: expected nil, nil; got %v, %v", org, err)
	}
}

func TestFindByID_ExistingRecords(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	org := &entity.Organization{ID: uuid.New(), Name: "Acme", Code: "ACME"}
	user := &entity.User{ID: uuid.New(), OrganizationID: org.ID, Email: "ada@acme.test"}
	appt := newAppointment(org.ID, uuid.New(), "01/10/2030", at(9), at(10), at(0))
	for _, rec := range []any{org, user, appt} {
		if err := db.Create(rec).Error; err != nil {
			t.Fatal(err)
		}
	}

	gotOrg, err := NewOrganizationRepository(db).FindByID(ctx, org.ID)
	if err != nil || gotOrg == nil || gotOrg.Code != "ACME" {
		t.Errorf("organization: got %+v, %v", gotOrg, err)
	}
	gotUser, err := NewUserRepository(db).FindByID(ctx, user.ID)
	if err != nil || gotUser == nil || gotUser.Email != user.Email {
		t.Errorf("user: got %+v, %v", gotUser, err)
	}
	gotAppt, err := NewAppointmentRepository(db).FindByID(ctx, appt.ID)
	if err != nil || gotAppt == nil || gotAppt.ContactID != appt.ContactID {
		t.Errorf("appointment: got %+v, %v", gotAppt, err)
	}
}
