package models

import "time"

type Location struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsActive      bool   `json:"is_active"`
	EHRLocationID string `json:"ehr_location_id,omitempty"`
	WFMLocationID string `json:"wfm_location_id,omitempty"`
	HRLocationID  string `json:"hr_location_id,omitempty"`
}

type StaffMember struct {
	ID                    string    `json:"id"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	Email                 string    `json:"email"`
	EmploymentStatus      string    `json:"employment_status"`
	PrimaryLocationID     string    `json:"primary_location_id"`
	MaxHoursPerWeek       float64   `json:"max_hours_per_week"`
	PreferredScheduleType string    `json:"preferred_schedule_type"`
	WFMUserID             string    `json:"wfm_user_id,omitempty"`
	HREmployeeID          string    `json:"hr_employee_id,omitempty"`
	LastSyncAt            time.Time `json:"last_sync_at"`
}

// ProviderScheduleEntry is one 30-minute-aligned block of provider time,
// keyed on (provider, date, start time, location). Times of day are stored
// as zero-padded "HH:MM:SS" strings.
type ProviderScheduleEntry struct {
	ProviderID           string    `json:"provider_id"`
	ProviderName         string    `json:"provider_name"`
	ScheduleDate         time.Time `json:"schedule_date"`
	LocationID           string    `json:"location_id"`
	StartTime            string    `json:"start_time"`
	EndTime              string    `json:"end_time"`
	AppointmentType      string    `json:"appointment_type"`
	PatientCount         int       `json:"patient_count"`
	EstimatedSupportNeed float64   `json:"estimated_support_need"`
	SourceAppointmentIDs []string  `json:"source_appointment_ids"`
	LastSyncedAt         time.Time `json:"last_synced_at"`
}

// StaffAvailabilityRecord is keyed on (staff member, source availability id).
// UnavailableDates grows by set union when fed from HR time-off events.
type StaffAvailabilityRecord struct {
	StaffMemberID         string      `json:"staff_member_id"`
	DateRangeStart        time.Time   `json:"date_range_start"`
	DateRangeEnd          time.Time   `json:"date_range_end"`
	DaysOfWeek            []int       `json:"days_of_week"`
	AvailableStartTime    string      `json:"available_start_time"`
	AvailableEndTime      string      `json:"available_end_time"`
	LocationPreferences   []string    `json:"location_preferences"`
	UnavailableDates      []time.Time `json:"unavailable_dates"`
	MaxConsecutiveDays    int         `json:"max_consecutive_days"`
	MinHoursBetweenShifts int         `json:"min_hours_between_shifts"`
	CrossLocationWilling  bool        `json:"cross_location_willing"`
	Notes                 string      `json:"notes,omitempty"`
	WFMAvailabilityID     string      `json:"wfm_availability_id"`
}

type StaffScheduleEntry struct {
	ID                string    `json:"id"`
	StaffMemberID     string    `json:"staff_member_id"`
	ScheduleDate      time.Time `json:"schedule_date"`
	LocationID        string    `json:"location_id"`
	ShiftStartTime    string    `json:"shift_start_time"`
	ShiftEndTime      string    `json:"shift_end_time"`
	AssignedProviders []string  `json:"assigned_providers"`
	ScheduleType      string    `json:"schedule_type"`
	Status            string    `json:"status"`
	// WFMRosterID is set once the entry has been created in the external
	// workforce system; a non-nil value means create already happened and
	// further pushes update in place.
	WFMRosterID *string `json:"wfm_roster_id,omitempty"`

	// Joined from the staff member row for analytics.
	StaffPrimaryLocationID string  `json:"staff_primary_location_id,omitempty"`
	StaffMaxHoursPerWeek   float64 `json:"staff_max_hours_per_week,omitempty"`
	StaffWFMUserID         string  `json:"staff_wfm_user_id,omitempty"`
}

type OptimizationSuggestion struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Action      string `json:"action"`
}

type OptimizationSuggestions struct {
	Suggestions  []OptimizationSuggestion `json:"suggestions"`
	GeneratedAt  time.Time                `json:"generated_at"`
	LocationID   string                   `json:"location_id"`
	AnalysisDate time.Time                `json:"analysis_date"`
}

// AnalyticsRecord is the per-(date, location) staffing analytics row,
// recomputed and overwritten once per day.
type AnalyticsRecord struct {
	AnalyticsDate             time.Time               `json:"analytics_date"`
	LocationID                string                  `json:"location_id"`
	TotalProviderHours        float64                 `json:"total_provider_hours"`
	TotalSupportHours         float64                 `json:"total_support_hours"`
	OptimalSupportHours       float64                 `json:"optimal_support_hours"`
	CoveragePercentage        float64                 `json:"coverage_percentage"`
	UnderstaffedPeriods       int                     `json:"understaffed_periods"`
	OverstaffedPeriods        int                     `json:"overstaffed_periods"`
	CrossLocationAssignments  int                     `json:"cross_location_assignments"`
	OvertimeHours             float64                 `json:"overtime_hours"`
	StaffUtilizationRate      float64                 `json:"staff_utilization_rate"`
	PatientSatisfactionImpact float64                 `json:"patient_satisfaction_impact"`
	CostEfficiencyScore       float64                 `json:"cost_efficiency_score"`
	OptimizationSuggestions   OptimizationSuggestions `json:"optimization_suggestions"`
}

// SyncResult aggregates one sync pass. Item-level failures increment Failed
// and append to Errors without aborting the rest of the pass.
type SyncResult struct {
	Synced int      `json:"synced"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

type JobExecutionMetric struct {
	JobName          string    `json:"job_name"`
	Success          bool      `json:"success"`
	DurationMS       int64     `json:"duration_ms"`
	RecordsProcessed int       `json:"records_processed"`
	Errors           []string  `json:"errors,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
