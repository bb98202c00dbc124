package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/acganger/staffing-backend/internal/models"
)

func (s *Store) ListActiveLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, is_active,
			COALESCE(ehr_location_id, ''), COALESCE(wfm_location_id, ''), COALESCE(hr_location_id, '')
		FROM locations
		WHERE is_active = TRUE
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.IsActive, &l.EHRLocationID, &l.WFMLocationID, &l.HRLocationID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const staffMemberColumns = `id, first_name, last_name, email, employment_status,
	COALESCE(primary_location_id, ''), COALESCE(max_hours_per_week, 40),
	COALESCE(preferred_schedule_type, ''), COALESCE(wfm_user_id, ''), COALESCE(hr_employee_id, ''),
	COALESCE(last_sync_at, 'epoch'::timestamptz)`

func scanStaffMember(row interface{ Scan(...any) error }) (models.StaffMember, error) {
	var m models.StaffMember
	err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.EmploymentStatus,
		&m.PrimaryLocationID, &m.MaxHoursPerWeek, &m.PreferredScheduleType,
		&m.WFMUserID, &m.HREmployeeID, &m.LastSyncAt)
	return m, err
}

func (s *Store) GetStaffMemberByWFMID(ctx context.Context, wfmUserID string) (models.StaffMember, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+staffMemberColumns+` FROM staff_members WHERE wfm_user_id = $1`, wfmUserID)
	return scanStaffMember(row)
}

func (s *Store) GetStaffMemberByHRID(ctx context.Context, hrEmployeeID string) (models.StaffMember, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+staffMemberColumns+` FROM staff_members WHERE hr_employee_id = $1`, hrEmployeeID)
	return scanStaffMember(row)
}

func (s *Store) GetStaffMemberByEmail(ctx context.Context, emails ...string) (models.StaffMember, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+staffMemberColumns+` FROM staff_members WHERE email = ANY($1) LIMIT 1`, emails)
	return scanStaffMember(row)
}

const updateStaffFromHRSQL = `
	UPDATE staff_members SET
		employment_status = $1,
		primary_location_id = NULLIF($2, ''),
		max_hours_per_week = $3,
		preferred_schedule_type = NULLIF($4, ''),
		email = COALESCE(NULLIF($5, ''), email),
		last_sync_at = $6
	WHERE id = $7`

func updateStaffFromHRArgs(m models.StaffMember) []any {
	return []any{m.EmploymentStatus, m.PrimaryLocationID, m.MaxHoursPerWeek,
		m.PreferredScheduleType, m.Email, m.LastSyncAt, m.ID}
}

// UpdateStaffMemberFromHR applies the HR-owned fields of a staff member row.
func (s *Store) UpdateStaffMemberFromHR(ctx context.Context, m models.StaffMember) error {
	_, err := s.Pool.Exec(ctx, updateStaffFromHRSQL, updateStaffFromHRArgs(m)...)
	return err
}

// LinkAndUpdateStaffMemberFromHR stores the HR employee id and applies the
// HR-owned fields in one transaction, so an email-matched row is either
// fully linked and refreshed or left untouched.
func (s *Store) LinkAndUpdateStaffMemberFromHR(ctx context.Context, hrEmployeeID string, m models.StaffMember) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE staff_members SET hr_employee_id = $1 WHERE id = $2`, hrEmployeeID, m.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, updateStaffFromHRSQL, updateStaffFromHRArgs(m)...)
		return err
	})
}

func (s *Store) UpsertProviderSchedule(ctx context.Context, e models.ProviderScheduleEntry) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO provider_schedules_cache
			(provider_id, provider_name, schedule_date, location_id, start_time, end_time,
			 appointment_type, patient_count, estimated_support_need, source_appointment_ids, last_synced_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (provider_id, schedule_date, start_time, location_id) DO UPDATE SET
			provider_name = EXCLUDED.provider_name,
			end_time = EXCLUDED.end_time,
			appointment_type = EXCLUDED.appointment_type,
			patient_count = EXCLUDED.patient_count,
			estimated_support_need = EXCLUDED.estimated_support_need,
			source_appointment_ids = EXCLUDED.source_appointment_ids,
			last_synced_at = EXCLUDED.last_synced_at
	`, e.ProviderID, e.ProviderName, e.ScheduleDate, e.LocationID, e.StartTime, e.EndTime,
		e.AppointmentType, e.PatientCount, e.EstimatedSupportNeed, e.SourceAppointmentIDs, e.LastSyncedAt)
	return err
}

func (s *Store) ListProviderSchedules(ctx context.Context, date time.Time, locationID string) ([]models.ProviderScheduleEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT provider_id, provider_name, schedule_date, location_id, start_time, end_time,
			COALESCE(appointment_type, ''), patient_count, estimated_support_need,
			COALESCE(source_appointment_ids, '{}'), last_synced_at
		FROM provider_schedules_cache
		WHERE schedule_date = $1 AND location_id = $2
		ORDER BY start_time ASC, provider_id ASC`, date, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProviderScheduleEntry
	for rows.Next() {
		var e models.ProviderScheduleEntry
		if err := rows.Scan(&e.ProviderID, &e.ProviderName, &e.ScheduleDate, &e.LocationID,
			&e.StartTime, &e.EndTime, &e.AppointmentType, &e.PatientCount,
			&e.EstimatedSupportNeed, &e.SourceAppointmentIDs, &e.LastSyncedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProviderSchedulesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM provider_schedules_cache WHERE schedule_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpsertStaffAvailability is a full replace of the non-key fields, including
// the unavailable-dates set; the HR time-off path uses UnionUnavailableDates
// instead.
func (s *Store) UpsertStaffAvailability(ctx context.Context, a models.StaffAvailabilityRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO staff_availability
			(staff_member_id, date_range_start, date_range_end, days_of_week,
			 available_start_time, available_end_time, location_preferences, unavailable_dates,
			 max_consecutive_days, min_hours_between_shifts, cross_location_willing, notes, wfm_availability_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12, ''),$13)
		ON CONFLICT (staff_member_id, wfm_availability_id) DO UPDATE SET
			date_range_start = EXCLUDED.date_range_start,
			date_range_end = EXCLUDED.date_range_end,
			days_of_week = EXCLUDED.days_of_week,
			available_start_time = EXCLUDED.available_start_time,
			available_end_time = EXCLUDED.available_end_time,
			location_preferences = EXCLUDED.location_preferences,
			unavailable_dates = EXCLUDED.unavailable_dates,
			max_consecutive_days = EXCLUDED.max_consecutive_days,
			min_hours_between_shifts = EXCLUDED.min_hours_between_shifts,
			cross_location_willing = EXCLUDED.cross_location_willing,
			notes = EXCLUDED.notes
	`, a.StaffMemberID, a.DateRangeStart, a.DateRangeEnd, a.DaysOfWeek,
		a.AvailableStartTime, a.AvailableEndTime, a.LocationPreferences, a.UnavailableDates,
		a.MaxConsecutiveDays, a.MinHoursBetweenShifts, a.CrossLocationWilling, a.Notes, a.WFMAvailabilityID)
	return err
}

// FindAvailabilityOverlapping returns the id of an availability window for the
// staff member that intersects [start, end], or pgx.ErrNoRows.
func (s *Store) FindAvailabilityOverlapping(ctx context.Context, staffMemberID string, start, end time.Time) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `
		SELECT id FROM staff_availability
		WHERE staff_member_id = $1 AND date_range_start <= $2 AND date_range_end >= $3
		ORDER BY date_range_start ASC
		LIMIT 1`, staffMemberID, end, start).Scan(&id)
	return id, err
}

// UnionUnavailableDates merges dates into the window's unavailable-dates set
// and appends an explanatory note. Duplicates are dropped in SQL.
func (s *Store) UnionUnavailableDates(ctx context.Context, availabilityID string, dates []time.Time, note string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE staff_availability SET
			unavailable_dates = (
				SELECT COALESCE(array_agg(DISTINCT d ORDER BY d), '{}')
				FROM unnest(unavailable_dates || $1::timestamptz[]) AS d
			),
			notes = TRIM(BOTH E'\n' FROM COALESCE(notes, '') || E'\n' || $2)
		WHERE id = $3`, dates, note, availabilityID)
	return err
}

func (s *Store) ListStaffSchedules(ctx context.Context, date time.Time, locationID string) ([]models.StaffScheduleEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT ss.id, ss.staff_member_id, ss.schedule_date, ss.location_id,
			ss.shift_start_time, ss.shift_end_time, COALESCE(ss.assigned_providers, '{}'),
			COALESCE(ss.schedule_type, ''), ss.status, ss.wfm_roster_id,
			COALESCE(sm.primary_location_id, ''), COALESCE(sm.max_hours_per_week, 40), COALESCE(sm.wfm_user_id, '')
		FROM staff_schedules ss
		JOIN staff_members sm ON sm.id = ss.staff_member_id
		WHERE ss.schedule_date = $1 AND ss.location_id = $2 AND ss.status <> 'cancelled'
		ORDER BY ss.shift_start_time ASC, ss.id ASC`, date, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StaffScheduleEntry
	for rows.Next() {
		var e models.StaffScheduleEntry
		if err := rows.Scan(&e.ID, &e.StaffMemberID, &e.ScheduleDate, &e.LocationID,
			&e.ShiftStartTime, &e.ShiftEndTime, &e.AssignedProviders,
			&e.ScheduleType, &e.Status, &e.WFMRosterID,
			&e.StaffPrimaryLocationID, &e.StaffMaxHoursPerWeek, &e.StaffWFMUserID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SetStaffScheduleRosterID(ctx context.Context, scheduleID, rosterID string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE staff_schedules SET wfm_roster_id = $1 WHERE id = $2`, rosterID, scheduleID)
	return err
}
