package ehr

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/models"
)

func appt(id, typeLabel, start, end, location string) Appointment {
	day := "2026-03-09T"
	s, _ := time.Parse(time.RFC3339, day+start+":00Z")
	e, _ := time.Parse(time.RFC3339, day+end+":00Z")
	return Appointment{ID: id, Status: "booked", TypeLabel: typeLabel, Start: s, End: e, LocationRef: location}
}

func TestGroupAppointmentsByBlockAndLocation(t *testing.T) {
	appointments := []Appointment{
		appt("a1", "Consultation", "09:05", "09:25", "Location/east"),
		appt("a2", "Consultation", "09:10", "09:20", "Location/east"),
		appt("a3", "Surgery", "09:05", "09:25", "Location/west"),
		appt("a4", "Consultation", "11:00", "11:30", "Location/east"),
	}

	blocks := GroupAppointments(appointments)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].StartTime != "09:00:00" || blocks[0].EndTime != "09:30:00" {
		t.Fatalf("expected first block 09:00-09:30, got %s-%s", blocks[0].StartTime, blocks[0].EndTime)
	}
	if len(blocks[0].Appointments) != 2 {
		t.Fatalf("expected a1 and a2 grouped together, got %d appointments", len(blocks[0].Appointments))
	}
}

func TestGroupAppointmentsIdempotent(t *testing.T) {
	appointments := []Appointment{
		appt("a1", "Surgery", "08:00", "09:00", "Location/east"),
		appt("a2", "Consultation", "08:10", "08:50", "Location/east"),
		appt("a3", "Biopsy", "10:00", "10:30", "Location/west"),
	}

	first := GroupAppointments(appointments)
	second := GroupAppointments(appointments)
	if len(first) != len(second) {
		t.Fatalf("expected stable block count, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].StartTime != second[i].StartTime || first[i].LocationRef != second[i].LocationRef {
			t.Fatalf("expected identical block ordering on re-grouping")
		}
	}
}

func TestSupportNeed(t *testing.T) {
	block := TimeBlock{Appointments: []Appointment{
		{TypeLabel: "Consultation"},
		{TypeLabel: "Consultation"},
	}}
	// 0.5 * 2 * (1.0 + 0.1 + 0.1)
	if got := SupportNeed(block); got != 1.2 {
		t.Fatalf("expected support need 1.2, got %v", got)
	}
}

func TestSupportNeedMultiplierCap(t *testing.T) {
	var appointments []Appointment
	for i := 0; i < 4; i++ {
		appointments = append(appointments, Appointment{TypeLabel: "Surgery"})
	}
	// Multiplier would be 3.0 but caps at 2.0: 0.5 * 4 * 2.0.
	if got := SupportNeed(TimeBlock{Appointments: appointments}); got != 4.0 {
		t.Fatalf("expected capped support need 4.0, got %v", got)
	}
}

type fakeEHRAPI struct {
	providers    []Provider
	appointments map[string][]Appointment
	failFor      map[string]bool
}

func (f *fakeEHRAPI) ListProviders(ctx context.Context) ([]Provider, error) {
	return f.providers, nil
}

func (f *fakeEHRAPI) ListAppointments(ctx context.Context, providerID string, date time.Time, statuses []string) ([]Appointment, error) {
	if f.failFor[providerID] {
		return nil, fmt.Errorf("upstream timeout")
	}
	return f.appointments[providerID], nil
}

func (f *fakeEHRAPI) TestConnection(ctx context.Context) (bool, string) { return true, "ok" }

type fakeEHRStore struct {
	upserts []models.ProviderScheduleEntry
}

func (f *fakeEHRStore) ListActiveLocations(ctx context.Context) ([]models.Location, error) {
	return []models.Location{{ID: "loc-1", Name: "East", IsActive: true, EHRLocationID: "east"}}, nil
}

func (f *fakeEHRStore) UpsertProviderSchedule(ctx context.Context, entry models.ProviderScheduleEntry) error {
	f.upserts = append(f.upserts, entry)
	return nil
}

func TestSyncContinuesPastFailingProvider(t *testing.T) {
	api := &fakeEHRAPI{
		providers: []Provider{{ID: "p1", Active: true}, {ID: "p2", Active: true}, {ID: "p3", Active: true}},
		appointments: map[string][]Appointment{
			"p1": {appt("a1", "Consultation", "09:00", "09:30", "Location/east")},
			"p3": {appt("a2", "Surgery", "10:00", "11:00", "Location/east")},
		},
		failFor: map[string]bool{"p2": true},
	}
	store := &fakeEHRStore{}
	syncer := &Syncer{Client: api, Store: store, Logger: zerolog.Nop()}

	result, err := syncer.SyncProviderSchedules(context.Background(), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Synced != 2 {
		t.Fatalf("expected 2 synced entries, got %d", result.Synced)
	}
	if result.Failed != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected one recorded failure, got %+v", result)
	}
	if len(store.upserts) != 2 {
		t.Fatalf("expected entries for p1 and p3, got %d", len(store.upserts))
	}
	if store.upserts[0].LocationID != "loc-1" {
		t.Fatalf("expected external location mapped to loc-1, got %s", store.upserts[0].LocationID)
	}
}

func TestSyncRefreshesLastSyncedTimestamp(t *testing.T) {
	api := &fakeEHRAPI{
		providers: []Provider{{ID: "p1", Active: true}},
		appointments: map[string][]Appointment{
			"p1": {appt("a1", "Consultation", "09:00", "09:30", "Location/east")},
		},
	}
	store := &fakeEHRStore{}
	syncer := &Syncer{Client: api, Store: store, Logger: zerolog.Nop()}

	before := time.Now().UTC()
	if _, err := syncer.SyncProviderSchedules(context.Background(), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected one entry, got %d", len(store.upserts))
	}
	if stamped := store.upserts[0].LastSyncedAt; stamped.IsZero() || stamped.Before(before) {
		t.Fatalf("expected a fresh last-synced timestamp, got %v", stamped)
	}
}

func TestSyncSkipsUnmappedLocation(t *testing.T) {
	api := &fakeEHRAPI{
		providers: []Provider{{ID: "p1", Active: true}},
		appointments: map[string][]Appointment{
			"p1": {appt("a1", "Consultation", "09:00", "09:30", "Location/unknown")},
		},
	}
	store := &fakeEHRStore{}
	syncer := &Syncer{Client: api, Store: store, Logger: zerolog.Nop()}

	result, err := syncer.SyncProviderSchedules(context.Background(), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Synced != 0 || result.Failed != 1 {
		t.Fatalf("expected the unmapped block to be skipped, got %+v", result)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("expected no upserts, got %d", len(store.upserts))
	}
}
