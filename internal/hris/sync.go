package hris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/models"
	"github.com/acganger/staffing-backend/internal/utils"
)

// API is the subset of the HR client the syncer uses.
type API interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListTimeOff(ctx context.Context, employeeID, status string, since time.Time) ([]TimeOffRequest, error)
	TestConnection(ctx context.Context) (bool, string)
}

type Store interface {
	GetStaffMemberByHRID(ctx context.Context, hrEmployeeID string) (models.StaffMember, error)
	GetStaffMemberByEmail(ctx context.Context, emails ...string) (models.StaffMember, error)
	LinkAndUpdateStaffMemberFromHR(ctx context.Context, hrEmployeeID string, m models.StaffMember) error
	UpdateStaffMemberFromHR(ctx context.Context, m models.StaffMember) error
	FindAvailabilityOverlapping(ctx context.Context, staffMemberID string, start, end time.Time) (string, error)
	UnionUnavailableDates(ctx context.Context, availabilityID string, dates []time.Time, note string) error
}

type Syncer struct {
	Client    API
	Store     Store
	Logger    zerolog.Logger
	ItemDelay time.Duration
}

// StatusResult extends the sync aggregate with personnel tallies.
type StatusResult struct {
	models.SyncResult
	Total   int `json:"total"`
	Active  int `json:"active"`
	OnLeave int `json:"on_leave"`
}

// MapEmploymentStatus translates an HR status into the cache's vocabulary.
// An employee who is nominally active but has approved time off covering
// today is reported as on_leave; the second return says whether such time
// off exists.
func MapEmploymentStatus(status string, timeOff []TimeOffRequest, today time.Time) (string, bool) {
	day := utils.DateOnly(today)
	hasActiveTimeOff := false
	for _, t := range timeOff {
		if t.Status != "approved" {
			continue
		}
		start, err1 := time.Parse("2006-01-02", t.StartDate)
		end, err2 := time.Parse("2006-01-02", t.EndDate)
		if err1 != nil || err2 != nil {
			continue
		}
		if !day.Before(start) && !day.After(end) {
			hasActiveTimeOff = true
			break
		}
	}

	switch status {
	case "active":
		if hasActiveTimeOff {
			return "on_leave", true
		}
		return "active", false
	case "leave_of_absence":
		return "on_leave", hasActiveTimeOff
	case "terminated", "deceased":
		return "terminated", hasActiveTimeOff
	default:
		return "inactive", hasActiveTimeOff
	}
}

// MapScheduleType translates HR employment-type codes into schedule types.
func MapScheduleType(employmentType string) string {
	switch employmentType {
	case "FT", "full_time":
		return "full_time"
	case "PT", "part_time":
		return "part_time"
	case "PD", "per_diem":
		return "per_diem"
	default:
		return "flexible"
	}
}

// SyncEmployeeStatus refreshes cached staff records from the HR system.
// Staff are matched by HR employee id first, then by work or personal email;
// an email match stores the HR id in the same transaction as the field
// update, so future passes match directly. Approved time off for anyone on
// leave is folded into their availability records as unavailable dates.
func (s *Syncer) SyncEmployeeStatus(ctx context.Context) (StatusResult, error) {
	var result StatusResult
	today := time.Now()

	employees, err := s.Client.ListEmployees(ctx)
	if err != nil {
		return result, fmt.Errorf("list employees: %w", err)
	}
	result.Total = len(employees)
	s.Logger.Info().Int("employees", len(employees)).Msg("syncing employee status")

	for i, emp := range employees {
		if i > 0 && s.ItemDelay > 0 {
			if err := sleepCtx(ctx, s.ItemDelay); err != nil {
				return result, err
			}
		}

		staff, needsLink, err := s.matchStaffMember(ctx, emp)
		if errors.Is(err, pgx.ErrNoRows) {
			s.Logger.Warn().Str("hr_employee", emp.ID).Str("email", emp.WorkEmail).Msg("no staff member linked, skipping")
			continue
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("employee %s: %v", emp.ID, err))
			continue
		}

		timeOff, err := s.Client.ListTimeOff(ctx, emp.ID, "approved", today)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("employee %s: %v", emp.ID, err))
			s.Logger.Warn().Err(err).Str("hr_employee", emp.ID).Msg("time off fetch failed, continuing")
			continue
		}

		status, _ := MapEmploymentStatus(emp.Status, timeOff, today)
		staff.FirstName = emp.FirstName
		staff.LastName = emp.LastName
		if emp.WorkEmail != "" {
			staff.Email = emp.WorkEmail
		}
		staff.EmploymentStatus = status
		staff.PreferredScheduleType = MapScheduleType(emp.EmploymentType)
		staff.LastSyncAt = time.Now().UTC()

		if needsLink {
			err = s.Store.LinkAndUpdateStaffMemberFromHR(ctx, emp.ID, staff)
		} else {
			err = s.Store.UpdateStaffMemberFromHR(ctx, staff)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("employee %s: %v", emp.ID, err))
			continue
		}
		result.Synced++

		switch status {
		case "active":
			result.Active++
		case "on_leave":
			result.OnLeave++
			if err := s.recordTimeOff(ctx, staff.ID, timeOff); err != nil {
				s.Logger.Warn().Err(err).Str("staff_member", staff.ID).Msg("could not record time off dates")
			}
		}
	}
	return result, nil
}

// matchStaffMember resolves an HR employee to a cached staff member. The
// second return reports whether the match came from email, meaning the HR id
// still has to be linked when the row is written back.
func (s *Syncer) matchStaffMember(ctx context.Context, emp Employee) (models.StaffMember, bool, error) {
	staff, err := s.Store.GetStaffMemberByHRID(ctx, emp.ID)
	if err == nil {
		return staff, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.StaffMember{}, false, err
	}

	var emails []string
	if emp.WorkEmail != "" {
		emails = append(emails, emp.WorkEmail)
	}
	if emp.PersonalEmail != "" {
		emails = append(emails, emp.PersonalEmail)
	}
	if len(emails) == 0 {
		return models.StaffMember{}, false, pgx.ErrNoRows
	}

	staff, err = s.Store.GetStaffMemberByEmail(ctx, emails...)
	if err != nil {
		return models.StaffMember{}, false, err
	}
	staff.HREmployeeID = emp.ID
	return staff, true, nil
}

// recordTimeOff unions each approved time-off day into whichever availability
// record overlaps the request window.
func (s *Syncer) recordTimeOff(ctx context.Context, staffMemberID string, timeOff []TimeOffRequest) error {
	for _, t := range timeOff {
		if t.Status != "approved" {
			continue
		}
		start, err1 := time.Parse("2006-01-02", t.StartDate)
		end, err2 := time.Parse("2006-01-02", t.EndDate)
		if err1 != nil || err2 != nil {
			continue
		}

		availabilityID, err := s.Store.FindAvailabilityOverlapping(ctx, staffMemberID, start, end)
		if errors.Is(err, pgx.ErrNoRows) {
			s.Logger.Warn().Str("staff_member", staffMemberID).Str("request", t.ID).Msg("no availability overlaps time off window")
			continue
		}
		if err != nil {
			return err
		}

		var days []time.Time
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			days = append(days, day)
		}
		note := "HR time off"
		if t.Reason != "" {
			note = "HR time off: " + t.Reason
		}
		if err := s.Store.UnionUnavailableDates(ctx, availabilityID, days, note); err != nil {
			return err
		}
	}
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
