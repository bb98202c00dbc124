package hris

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/models"
)

func timeMustParse(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return parsed
}

func TestMapEmploymentStatus(t *testing.T) {
	today := timeMustParse(t, "2026-03-11")
	cases := []struct {
		status  string
		timeOff []TimeOffRequest
		want    string
	}{
		{"active", nil, "active"},
		{"terminated", nil, "terminated"},
		{"leave_of_absence", nil, "on_leave"},
		{"setup", nil, "inactive"},
		{"active", []TimeOffRequest{{Status: "approved", StartDate: "2026-03-10", EndDate: "2026-03-12"}}, "on_leave"},
		{"active", []TimeOffRequest{{Status: "requested", StartDate: "2026-03-10", EndDate: "2026-03-12"}}, "active"},
		{"active", []TimeOffRequest{{Status: "approved", StartDate: "2026-03-20", EndDate: "2026-03-22"}}, "active"},
	}
	for _, tc := range cases {
		if got, _ := MapEmploymentStatus(tc.status, tc.timeOff, today); got != tc.want {
			t.Errorf("status %q with %d requests: expected %q, got %q", tc.status, len(tc.timeOff), tc.want, got)
		}
	}
}

func TestMapScheduleType(t *testing.T) {
	cases := map[string]string{
		"FT":       "full_time",
		"PT":       "part_time",
		"PD":       "per_diem",
		"contract": "flexible",
	}
	for in, want := range cases {
		if got := MapScheduleType(in); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

type fakeHRAPI struct {
	employees []Employee
	timeOff   map[string][]TimeOffRequest
}

func (f *fakeHRAPI) ListEmployees(ctx context.Context) ([]Employee, error) {
	return f.employees, nil
}
func (f *fakeHRAPI) ListTimeOff(ctx context.Context, employeeID, status string, since time.Time) ([]TimeOffRequest, error) {
	return f.timeOff[employeeID], nil
}
func (f *fakeHRAPI) TestConnection(ctx context.Context) (bool, string) { return true, "ok" }

type fakeHRStore struct {
	byHRID    map[string]models.StaffMember
	byEmail   map[string]models.StaffMember
	linked    map[string]string
	updated   []models.StaffMember
	availByID map[string]string
	unions    map[string][]time.Time
}

func (f *fakeHRStore) GetStaffMemberByHRID(ctx context.Context, hrEmployeeID string) (models.StaffMember, error) {
	if m, ok := f.byHRID[hrEmployeeID]; ok {
		return m, nil
	}
	return models.StaffMember{}, pgx.ErrNoRows
}
func (f *fakeHRStore) GetStaffMemberByEmail(ctx context.Context, emails ...string) (models.StaffMember, error) {
	for _, email := range emails {
		if m, ok := f.byEmail[email]; ok {
			return m, nil
		}
	}
	return models.StaffMember{}, pgx.ErrNoRows
}
func (f *fakeHRStore) LinkAndUpdateStaffMemberFromHR(ctx context.Context, hrEmployeeID string, m models.StaffMember) error {
	if f.linked == nil {
		f.linked = make(map[string]string)
	}
	f.linked[m.ID] = hrEmployeeID
	f.updated = append(f.updated, m)
	return nil
}
func (f *fakeHRStore) UpdateStaffMemberFromHR(ctx context.Context, m models.StaffMember) error {
	f.updated = append(f.updated, m)
	return nil
}
func (f *fakeHRStore) FindAvailabilityOverlapping(ctx context.Context, staffMemberID string, start, end time.Time) (string, error) {
	if id, ok := f.availByID[staffMemberID]; ok {
		return id, nil
	}
	return "", pgx.ErrNoRows
}
func (f *fakeHRStore) UnionUnavailableDates(ctx context.Context, availabilityID string, dates []time.Time, note string) error {
	if f.unions == nil {
		f.unions = make(map[string][]time.Time)
	}
	f.unions[availabilityID] = append(f.unions[availabilityID], dates...)
	return nil
}

func TestSyncEmployeeStatusLinksByEmail(t *testing.T) {
	api := &fakeHRAPI{
		employees: []Employee{
			{ID: "e1", FirstName: "Ann", LastName: "Lee", WorkEmail: "ann@clinic.test", Status: "active", EmploymentType: "FT"},
			{ID: "e2", FirstName: "Ben", WorkEmail: "unknown@clinic.test", Status: "active"},
		},
	}
	store := &fakeHRStore{
		byEmail: map[string]models.StaffMember{
			"ann@clinic.test": {ID: "staff-1", Email: "ann@clinic.test"},
		},
	}
	syncer := &Syncer{Client: api, Store: store, Logger: zerolog.Nop()}

	result, err := syncer.SyncEmployeeStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || result.Synced != 1 || result.Active != 1 {
		t.Fatalf("expected one linked and synced employee, got %+v", result)
	}
	if store.linked["staff-1"] != "e1" {
		t.Fatalf("expected email match to store the HR id alongside the update")
	}
	if len(store.updated) != 1 || store.updated[0].PreferredScheduleType != "full_time" {
		t.Fatalf("expected schedule type mapped, got %+v", store.updated)
	}
	if store.updated[0].HREmployeeID != "e1" {
		t.Fatalf("expected HR id carried on the written row, got %+v", store.updated[0])
	}
}

func TestSyncEmployeeStatusStampsSyncTime(t *testing.T) {
	api := &fakeHRAPI{
		employees: []Employee{{ID: "e1", FirstName: "Ann", Status: "active"}},
	}
	store := &fakeHRStore{
		byHRID: map[string]models.StaffMember{"e1": {ID: "staff-1", HREmployeeID: "e1"}},
	}
	syncer := &Syncer{Client: api, Store: store, Logger: zerolog.Nop()}

	before := time.Now().UTC()
	if _, err := syncer.SyncEmployeeStatus(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(store.updated))
	}
	if stamped := store.updated[0].LastSyncAt; stamped.IsZero() || stamped.Before(before) {
		t.Fatalf("expected a fresh sync timestamp, got %v", stamped)
	}
}

func TestSyncEmployeeStatusRecordsTimeOff(t *testing.T) {
	api := &fakeHRAPI{
		employees: []Employee{{ID: "e1", FirstName: "Ann", WorkEmail: "ann@clinic.test", Status: "active"}},
		timeOff: map[string][]TimeOffRequest{
			"e1": {{ID: "t1", Status: "approved",
				StartDate: time.Now().AddDate(0, 0, -1).Format("2006-01-02"),
				EndDate:   time.Now().AddDate(0, 0, 1).Format("2006-01-02")}},
		},
	}
	store := &fakeHRStore{
		byHRID:    map[string]models.StaffMember{"e1": {ID: "staff-1", HREmployeeID: "e1"}},
		availByID: map[string]string{"staff-1": "avail-1"},
	}
	syncer := &Syncer{Client: api, Store: store, Logger: zerolog.Nop()}

	result, err := syncer.SyncEmployeeStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OnLeave != 1 {
		t.Fatalf("expected employee on leave, got %+v", result)
	}
	if len(store.updated) != 1 || store.updated[0].EmploymentStatus != "on_leave" {
		t.Fatalf("expected on_leave status stored, got %+v", store.updated)
	}
	if len(store.unions["avail-1"]) != 3 {
		t.Fatalf("expected 3 unavailable dates unioned, got %d", len(store.unions["avail-1"]))
	}
}
