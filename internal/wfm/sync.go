package wfm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/models"
)

// API is the subset of the workforce client the syncer uses.
type API interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListAvailability(ctx context.Context, employeeID int) ([]Availability, error)
	CreateRoster(ctx context.Context, r RosterRequest) (Roster, error)
	UpdateRoster(ctx context.Context, rosterID string, r RosterRequest) error
	DeleteRoster(ctx context.Context, rosterID string) error
	TestConnection(ctx context.Context) (bool, string)
}

type Store interface {
	ListActiveLocations(ctx context.Context) ([]models.Location, error)
	GetStaffMemberByWFMID(ctx context.Context, wfmUserID string) (models.StaffMember, error)
	UpsertStaffAvailability(ctx context.Context, a models.StaffAvailabilityRecord) error
	ListStaffSchedules(ctx context.Context, date time.Time, locationID string) ([]models.StaffScheduleEntry, error)
	SetStaffScheduleRosterID(ctx context.Context, scheduleID, rosterID string) error
}

type Syncer struct {
	Client    API
	Store     Store
	Logger    zerolog.Logger
	ItemDelay time.Duration
}

const (
	defaultMaxConsecutiveDays    = 5
	defaultMinHoursBetweenShifts = 12
)

// MapAvailability converts one workforce availability window into a cache
// record for the given staff member. Weekday flags become day numbers with
// Sunday as 0, and an all-day window spans 00:00:00 to 23:59:59.
func MapAvailability(staffMemberID string, av Availability, locationPrefs []string) (models.StaffAvailabilityRecord, error) {
	start, err := time.Parse("2006-01-02", av.StartDate)
	if err != nil {
		return models.StaffAvailabilityRecord{}, fmt.Errorf("availability %d start date: %w", av.ID, err)
	}
	end, err := time.Parse("2006-01-02", av.EndDate)
	if err != nil {
		return models.StaffAvailabilityRecord{}, fmt.Errorf("availability %d end date: %w", av.ID, err)
	}

	record := models.StaffAvailabilityRecord{
		StaffMemberID:         staffMemberID,
		DateRangeStart:        start,
		DateRangeEnd:          end,
		DaysOfWeek:            weekdays(av),
		LocationPreferences:   locationPrefs,
		MaxConsecutiveDays:    defaultMaxConsecutiveDays,
		MinHoursBetweenShifts: defaultMinHoursBetweenShifts,
		CrossLocationWilling:  len(locationPrefs) == 0,
		Notes:                 av.Comment,
		WFMAvailabilityID:     strconv.Itoa(av.ID),
	}

	if av.AllDay {
		record.AvailableStartTime = "00:00:00"
		record.AvailableEndTime = "23:59:59"
	} else {
		record.AvailableStartTime = normalizeClock(av.StartTime)
		record.AvailableEndTime = normalizeClock(av.EndTime)
	}

	for _, raw := range av.Unavailable {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return models.StaffAvailabilityRecord{}, fmt.Errorf("availability %d unavailable date %q: %w", av.ID, raw, err)
		}
		record.UnavailableDates = append(record.UnavailableDates, date)
	}
	return record, nil
}

func weekdays(av Availability) []int {
	var days []int
	for day, set := range []bool{av.Sunday, av.Monday, av.Tuesday, av.Wednesday, av.Thursday, av.Friday, av.Saturday} {
		if set {
			days = append(days, day)
		}
	}
	return days
}

// normalizeClock pads "HH:MM" values out to "HH:MM:SS".
func normalizeClock(clock string) string {
	if len(clock) == 5 {
		return clock + ":00"
	}
	return clock
}

// SyncStaffAvailability pulls every active workforce employee's availability
// windows into the cache. Employees with no matching staff member are skipped
// with a warning; failures on one employee do not stop the rest.
func (s *Syncer) SyncStaffAvailability(ctx context.Context) (models.SyncResult, error) {
	var result models.SyncResult

	locations, err := s.Store.ListActiveLocations(ctx)
	if err != nil {
		return result, fmt.Errorf("list locations: %w", err)
	}
	locationByUnit := make(map[string]string, len(locations))
	for _, loc := range locations {
		if loc.WFMLocationID != "" {
			locationByUnit[loc.WFMLocationID] = loc.ID
		}
	}

	employees, err := s.Client.ListEmployees(ctx)
	if err != nil {
		return result, fmt.Errorf("list employees: %w", err)
	}
	s.Logger.Info().Int("employees", len(employees)).Msg("syncing staff availability")

	for i, emp := range employees {
		if i > 0 && s.ItemDelay > 0 {
			if err := sleepCtx(ctx, s.ItemDelay); err != nil {
				return result, err
			}
		}
		if !emp.Active {
			continue
		}

		staff, err := s.Store.GetStaffMemberByWFMID(ctx, strconv.Itoa(emp.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			s.Logger.Warn().Int("wfm_employee", emp.ID).Str("name", emp.DisplayName).Msg("no staff member linked, skipping")
			continue
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("employee %d: %v", emp.ID, err))
			continue
		}

		var prefs []string
		if locationID, ok := locationByUnit[strconv.Itoa(emp.Location)]; ok {
			prefs = []string{locationID}
		}

		windows, err := s.Client.ListAvailability(ctx, emp.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("employee %d: %v", emp.ID, err))
			s.Logger.Warn().Err(err).Int("wfm_employee", emp.ID).Msg("availability fetch failed, continuing")
			continue
		}

		for _, av := range windows {
			record, err := MapAvailability(staff.ID, av, prefs)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			if err := s.Store.UpsertStaffAvailability(ctx, record); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("availability %d: %v", av.ID, err))
				continue
			}
			result.Synced++
		}
	}
	return result, nil
}

// PushSchedules publishes the cached staff schedules for a date out to the
// workforce system. Entries already pushed carry a roster id and are updated
// in place; new entries are created and the assigned id recorded so the next
// push updates rather than duplicates.
func (s *Syncer) PushSchedules(ctx context.Context, date time.Time, locationID string) (models.SyncResult, error) {
	var result models.SyncResult

	locations, err := s.Store.ListActiveLocations(ctx)
	if err != nil {
		return result, fmt.Errorf("list locations: %w", err)
	}
	unitByLocation := make(map[string]int, len(locations))
	for _, loc := range locations {
		if unit, err := strconv.Atoi(loc.WFMLocationID); err == nil {
			unitByLocation[loc.ID] = unit
		}
	}

	entries, err := s.Store.ListStaffSchedules(ctx, date, locationID)
	if err != nil {
		return result, fmt.Errorf("list schedules: %w", err)
	}

	for _, entry := range entries {
		employeeID, err := strconv.Atoi(entry.StaffWFMUserID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: staff member has no workforce id", entry.ID))
			continue
		}

		request := RosterRequest{
			Employee:        employeeID,
			Date:            entry.ScheduleDate.Format("2006-01-02"),
			StartTime:       entry.ShiftStartTime,
			EndTime:         entry.ShiftEndTime,
			OperationalUnit: unitByLocation[entry.LocationID],
			Comment:         "Published by staffing scheduler",
		}

		if entry.WFMRosterID != nil {
			if err := s.Client.UpdateRoster(ctx, *entry.WFMRosterID, request); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: %v", entry.ID, err))
				continue
			}
			result.Synced++
			continue
		}

		roster, err := s.Client.CreateRoster(ctx, request)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: %v", entry.ID, err))
			continue
		}
		if err := s.Store.SetStaffScheduleRosterID(ctx, entry.ID, strconv.Itoa(roster.ID)); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("schedule %s: %v", entry.ID, err))
			continue
		}
		result.Synced++
	}
	return result, nil
}

// CancelRoster removes a previously published shift.
func (s *Syncer) CancelRoster(ctx context.Context, rosterID string) error {
	if err := s.Client.DeleteRoster(ctx, rosterID); err != nil {
		return fmt.Errorf("cancel roster %s: %w", rosterID, err)
	}
	s.Logger.Info().Str("roster_id", rosterID).Msg("roster cancelled")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
