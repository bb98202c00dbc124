package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/models"
)

var testDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func TestTimeSlots(t *testing.T) {
	slots := TimeSlots()
	if len(slots) != 24 {
		t.Fatalf("expected 24 half-hour slots between 07:00 and 19:00, got %d", len(slots))
	}
	if slots[0].Start != "07:00:00" || slots[len(slots)-1].End != "19:00:00" {
		t.Fatalf("expected slots to span 07:00-19:00, got %s-%s", slots[0].Start, slots[len(slots)-1].End)
	}
}

func TestBuildAnalyticsNoProviders(t *testing.T) {
	staff := []models.StaffScheduleEntry{
		{ShiftStartTime: "07:00:00", ShiftEndTime: "19:00:00", StaffPrimaryLocationID: "loc-1", StaffMaxHoursPerWeek: 40},
	}

	record := BuildAnalytics(testDate, "loc-1", nil, staff)
	if record.CoveragePercentage != 100 {
		t.Fatalf("expected 100%% coverage with no provider demand, got %v", record.CoveragePercentage)
	}
	if record.OvertimeHours != 4 {
		t.Fatalf("expected 4 overtime hours from a 12-hour shift, got %v", record.OvertimeHours)
	}
	if record.StaffUtilizationRate != 150 {
		t.Fatalf("expected 150%% utilization (12 of 8 daily hours), got %v", record.StaffUtilizationRate)
	}
	if record.OverstaffedPeriods != 24 {
		t.Fatalf("expected every slot overstaffed with zero demand, got %d", record.OverstaffedPeriods)
	}
	if record.CrossLocationAssignments != 0 {
		t.Fatalf("expected no cross-location assignments, got %d", record.CrossLocationAssignments)
	}
	if record.PatientSatisfactionImpact != 4.5 {
		t.Fatalf("expected full satisfaction at full coverage, got %v", record.PatientSatisfactionImpact)
	}
	// 100 - 4/12*30 overtime penalty.
	if record.CostEfficiencyScore != 90 {
		t.Fatalf("expected cost efficiency 90, got %v", record.CostEfficiencyScore)
	}
}

func TestBuildAnalyticsUnderstaffed(t *testing.T) {
	providers := []models.ProviderScheduleEntry{
		{StartTime: "09:00:00", EndTime: "12:00:00", EstimatedSupportNeed: 2},
	}

	record := BuildAnalytics(testDate, "loc-1", providers, nil)
	if record.CoveragePercentage != 0 {
		t.Fatalf("expected 0%% coverage with no staff, got %v", record.CoveragePercentage)
	}
	if record.UnderstaffedPeriods != 6 {
		t.Fatalf("expected 6 understaffed slots for a 3-hour block, got %d", record.UnderstaffedPeriods)
	}
	if record.PatientSatisfactionImpact != 2.5 {
		t.Fatalf("expected satisfaction 2.5 at zero coverage, got %v", record.PatientSatisfactionImpact)
	}
	if record.CostEfficiencyScore != 50 {
		t.Fatalf("expected cost efficiency 50 at zero coverage, got %v", record.CostEfficiencyScore)
	}

	suggestions := record.OptimizationSuggestions.Suggestions
	if len(suggestions) != 2 {
		t.Fatalf("expected coverage and schedule suggestions, got %+v", suggestions)
	}
	if suggestions[0].Type != "coverage_improvement" || suggestions[0].Priority != "high" {
		t.Fatalf("expected high-priority coverage suggestion first, got %+v", suggestions[0])
	}
	if suggestions[1].Type != "schedule_optimization" {
		t.Fatalf("expected schedule optimization suggestion, got %+v", suggestions[1])
	}
}

func TestBuildAnalyticsCrossLocation(t *testing.T) {
	staff := []models.StaffScheduleEntry{
		{ShiftStartTime: "08:00:00", ShiftEndTime: "16:00:00", StaffPrimaryLocationID: "loc-2", StaffMaxHoursPerWeek: 40},
		{ShiftStartTime: "08:00:00", ShiftEndTime: "16:00:00", StaffPrimaryLocationID: "loc-1", StaffMaxHoursPerWeek: 40},
	}

	record := BuildAnalytics(testDate, "loc-1", nil, staff)
	if record.CrossLocationAssignments != 1 {
		t.Fatalf("expected one cross-location assignment, got %d", record.CrossLocationAssignments)
	}
}

func TestBuildAnalyticsDeterministic(t *testing.T) {
	providers := []models.ProviderScheduleEntry{
		{StartTime: "09:00:00", EndTime: "17:00:00", EstimatedSupportNeed: 1.5},
	}
	staff := []models.StaffScheduleEntry{
		{ShiftStartTime: "09:00:00", ShiftEndTime: "17:00:00", StaffPrimaryLocationID: "loc-1", StaffMaxHoursPerWeek: 40},
	}

	first := BuildAnalytics(testDate, "loc-1", providers, staff)
	second := BuildAnalytics(testDate, "loc-1", providers, staff)
	if first.CoveragePercentage != second.CoveragePercentage ||
		first.CostEfficiencyScore != second.CostEfficiencyScore ||
		first.UnderstaffedPeriods != second.UnderstaffedPeriods {
		t.Fatalf("expected identical records for identical inputs")
	}
}

type fakeAnalyticsStore struct {
	locations   []models.Location
	providers   map[string][]models.ProviderScheduleEntry
	staff       map[string][]models.StaffScheduleEntry
	upserted    []models.AnalyticsRecord
	history     map[string][]models.AnalyticsRecord
	failListFor string
}

func (f *fakeAnalyticsStore) ListActiveLocations(ctx context.Context) ([]models.Location, error) {
	return f.locations, nil
}
func (f *fakeAnalyticsStore) ListProviderSchedules(ctx context.Context, date time.Time, locationID string) ([]models.ProviderScheduleEntry, error) {
	if locationID == f.failListFor {
		return nil, fmt.Errorf("query failed")
	}
	return f.providers[locationID], nil
}
func (f *fakeAnalyticsStore) ListStaffSchedules(ctx context.Context, date time.Time, locationID string) ([]models.StaffScheduleEntry, error) {
	return f.staff[locationID], nil
}
func (f *fakeAnalyticsStore) UpsertAnalytics(ctx context.Context, r models.AnalyticsRecord) error {
	f.upserted = append(f.upserted, r)
	return nil
}
func (f *fakeAnalyticsStore) GetAnalytics(ctx context.Context, date time.Time, locationID string) (models.AnalyticsRecord, error) {
	return models.AnalyticsRecord{}, nil
}
func (f *fakeAnalyticsStore) ListAnalyticsSince(ctx context.Context, locationID string, since time.Time) ([]models.AnalyticsRecord, error) {
	return f.history[locationID], nil
}
func (f *fakeAnalyticsStore) DeleteProviderSchedulesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 3, nil
}
func (f *fakeAnalyticsStore) DeleteAnalyticsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 2, nil
}

func TestGenerateForAllLocationsContinuesOnFailure(t *testing.T) {
	store := &fakeAnalyticsStore{
		locations: []models.Location{
			{ID: "loc-1", IsActive: true},
			{ID: "loc-2", IsActive: true},
			{ID: "loc-3", IsActive: true},
		},
		failListFor: "loc-2",
	}
	engine := &Engine{Store: store, Logger: zerolog.Nop()}

	generated, err := engine.GenerateForAllLocations(context.Background(), testDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generated != 2 {
		t.Fatalf("expected 2 locations generated past the failure, got %d", generated)
	}
	if len(store.upserted) != 2 {
		t.Fatalf("expected 2 records stored, got %d", len(store.upserted))
	}
}

func TestCleanup(t *testing.T) {
	engine := &Engine{Store: &fakeAnalyticsStore{}, Logger: zerolog.Nop()}
	removed, err := engine.Cleanup(context.Background(), testDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 5 {
		t.Fatalf("expected 5 rows removed, got %d", removed)
	}
}
