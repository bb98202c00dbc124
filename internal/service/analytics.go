package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/models"
	"github.com/acganger/staffing-backend/internal/utils"
)

// Store is the slice of the staffing cache the analytics engine reads and
// writes.
type Store interface {
	ListActiveLocations(ctx context.Context) ([]models.Location, error)
	ListProviderSchedules(ctx context.Context, date time.Time, locationID string) ([]models.ProviderScheduleEntry, error)
	ListStaffSchedules(ctx context.Context, date time.Time, locationID string) ([]models.StaffScheduleEntry, error)
	UpsertAnalytics(ctx context.Context, r models.AnalyticsRecord) error
	GetAnalytics(ctx context.Context, date time.Time, locationID string) (models.AnalyticsRecord, error)
	ListAnalyticsSince(ctx context.Context, locationID string, since time.Time) ([]models.AnalyticsRecord, error)
	DeleteProviderSchedulesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAnalyticsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Engine struct {
	Store  Store
	Logger zerolog.Logger
}

const (
	analysisDayStartHour = 7
	analysisDayEndHour   = 19
	regularShiftHours    = 8.0
)

// TimeSlot is a half-open half-hour window of the analysis day.
type TimeSlot struct {
	Start string
	End   string
}

// TimeSlots returns the 30-minute slots between 07:00 and 19:00.
func TimeSlots() []TimeSlot {
	var slots []TimeSlot
	for hour := analysisDayStartHour; hour < analysisDayEndHour; hour++ {
		slots = append(slots,
			TimeSlot{Start: fmt.Sprintf("%02d:00:00", hour), End: fmt.Sprintf("%02d:30:00", hour)},
			TimeSlot{Start: fmt.Sprintf("%02d:30:00", hour), End: fmt.Sprintf("%02d:00:00", hour+1)},
		)
	}
	return slots
}

// BuildAnalytics computes the full analytics record for one location and date
// from the cached provider blocks and staff shifts. It reads nothing and
// writes nothing, so identical inputs always produce identical records.
func BuildAnalytics(date time.Time, locationID string, providers []models.ProviderScheduleEntry, staff []models.StaffScheduleEntry) models.AnalyticsRecord {
	var providerHours, supportHours, optimalHours float64
	for _, p := range providers {
		providerHours += utils.HoursBetween(p.StartTime, p.EndTime)
		optimalHours += p.EstimatedSupportNeed
	}
	for _, s := range staff {
		supportHours += utils.HoursBetween(s.ShiftStartTime, s.ShiftEndTime)
	}

	coverage := 100.0
	if optimalHours > 0 {
		coverage = utils.Round2(supportHours / optimalHours * 100)
	}

	understaffed, overstaffed := staffingPeriods(providers, staff)

	crossLocation := 0
	for _, s := range staff {
		if s.StaffPrimaryLocationID != locationID {
			crossLocation++
		}
	}

	var overtime float64
	for _, s := range staff {
		if hours := utils.HoursBetween(s.ShiftStartTime, s.ShiftEndTime); hours > regularShiftHours {
			overtime += hours - regularShiftHours
		}
	}

	return models.AnalyticsRecord{
		AnalyticsDate:             utils.DateOnly(date),
		LocationID:                locationID,
		TotalProviderHours:        utils.Round2(providerHours),
		TotalSupportHours:         utils.Round2(supportHours),
		OptimalSupportHours:       utils.Round2(optimalHours),
		CoveragePercentage:        coverage,
		UnderstaffedPeriods:       understaffed,
		OverstaffedPeriods:        overstaffed,
		CrossLocationAssignments:  crossLocation,
		OvertimeHours:             utils.Round2(overtime),
		StaffUtilizationRate:      utils.Round2(utilizationRate(staff)),
		PatientSatisfactionImpact: satisfactionImpact(coverage),
		CostEfficiencyScore:       costEfficiency(supportHours, overtime, crossLocation, coverage),
		OptimizationSuggestions:   buildSuggestions(date, locationID, coverage, understaffed, overtime, crossLocation),
	}
}

// staffingPeriods walks the half-hour slots of the analysis day and counts
// how many are understaffed or overstaffed. A slot needs the summed support
// need of every provider block touching it; blocks with no recorded need
// count as one.
func staffingPeriods(providers []models.ProviderScheduleEntry, staff []models.StaffScheduleEntry) (understaffed, overstaffed int) {
	for _, slot := range TimeSlots() {
		var required float64
		for _, p := range providers {
			if utils.Overlaps(p.StartTime, p.EndTime, slot.Start, slot.End) {
				if p.EstimatedSupportNeed > 0 {
					required += p.EstimatedSupportNeed
				} else {
					required++
				}
			}
		}

		actual := 0.0
		for _, s := range staff {
			if utils.Overlaps(s.ShiftStartTime, s.ShiftEndTime, slot.Start, slot.End) {
				actual++
			}
		}

		if actual < required {
			understaffed++
		} else if actual > required*1.5 {
			overstaffed++
		}
	}
	return understaffed, overstaffed
}

func utilizationRate(staff []models.StaffScheduleEntry) float64 {
	if len(staff) == 0 {
		return 0
	}
	var scheduled, available float64
	for _, s := range staff {
		scheduled += utils.HoursBetween(s.ShiftStartTime, s.ShiftEndTime)
		maxWeekly := s.StaffMaxHoursPerWeek
		if maxWeekly == 0 {
			maxWeekly = 40
		}
		available += maxWeekly / 5
	}
	if available == 0 {
		return 0
	}
	return scheduled / available * 100
}

func costEfficiency(supportHours, overtime float64, crossLocation int, coverage float64) float64 {
	score := 100.0

	denominator := supportHours
	if denominator < 1 {
		denominator = 1
	}
	score -= overtime / denominator * 30
	score -= float64(crossLocation) * 2

	if coverage < 100 {
		score -= (100 - coverage) * 0.5
	} else if coverage > 120 {
		score -= (coverage - 120) * 0.3
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return utils.Round2(score)
}

// satisfactionImpact maps coverage onto a 1-5 satisfaction estimate: full
// coverage scores 4.5 and every 10 points of shortfall costs 0.2.
func satisfactionImpact(coverage float64) float64 {
	impact := 0.0
	if coverage < 100 {
		impact = (100 - coverage) / 10 * 0.2
	}
	satisfaction := 4.5 - impact
	if satisfaction < 1 {
		satisfaction = 1
	}
	if satisfaction > 5 {
		satisfaction = 5
	}
	return utils.Round1(satisfaction)
}

func buildSuggestions(date time.Time, locationID string, coverage float64, understaffed int, overtime float64, crossLocation int) models.OptimizationSuggestions {
	var suggestions []models.OptimizationSuggestion

	if coverage < 90 {
		suggestions = append(suggestions, models.OptimizationSuggestion{
			Type:        "coverage_improvement",
			Priority:    "high",
			Description: "Increase staffing to improve coverage",
			Impact:      "Better patient care and provider support",
			Action:      "Review staff availability and consider additional scheduling",
		})
	}
	if understaffed > 5 {
		suggestions = append(suggestions, models.OptimizationSuggestion{
			Type:        "schedule_optimization",
			Priority:    "medium",
			Description: "Optimize schedules to reduce understaffed periods",
			Impact:      "More efficient staff utilization",
			Action:      "Redistribute staff across the understaffed periods",
		})
	}
	if overtime > 5 {
		suggestions = append(suggestions, models.OptimizationSuggestion{
			Type:        "cost_reduction",
			Priority:    "medium",
			Description: "Reduce overtime hours to control costs",
			Impact:      "Lower labor costs and better work-life balance",
			Action:      "Hire additional part-time staff or adjust schedules",
		})
	}
	if crossLocation > 3 {
		suggestions = append(suggestions, models.OptimizationSuggestion{
			Type:        "location_optimization",
			Priority:    "low",
			Description: "Minimize cross-location assignments",
			Impact:      "Reduced travel time and costs",
			Action:      "Hire location-specific staff or adjust coverage models",
		})
	}

	return models.OptimizationSuggestions{
		Suggestions:  suggestions,
		GeneratedAt:  time.Now(),
		LocationID:   locationID,
		AnalysisDate: utils.DateOnly(date),
	}
}

// ComputeDailyAnalytics builds and stores the analytics record for one
// location and date.
func (e *Engine) ComputeDailyAnalytics(ctx context.Context, date time.Time, locationID string) (models.AnalyticsRecord, error) {
	providers, err := e.Store.ListProviderSchedules(ctx, date, locationID)
	if err != nil {
		return models.AnalyticsRecord{}, fmt.Errorf("list provider schedules: %w", err)
	}
	staff, err := e.Store.ListStaffSchedules(ctx, date, locationID)
	if err != nil {
		return models.AnalyticsRecord{}, fmt.Errorf("list staff schedules: %w", err)
	}

	record := BuildAnalytics(date, locationID, providers, staff)
	if err := e.Store.UpsertAnalytics(ctx, record); err != nil {
		return models.AnalyticsRecord{}, fmt.Errorf("store analytics: %w", err)
	}
	return record, nil
}

// GenerateForAllLocations computes analytics for every active location and
// returns how many records were written. A failure at one location is logged
// and the rest still run.
func (e *Engine) GenerateForAllLocations(ctx context.Context, date time.Time) (int, error) {
	locations, err := e.Store.ListActiveLocations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list locations: %w", err)
	}

	generated := 0
	for _, loc := range locations {
		if _, err := e.ComputeDailyAnalytics(ctx, date, loc.ID); err != nil {
			e.Logger.Error().Err(err).Str("location_id", loc.ID).Msg("analytics generation failed for location")
			continue
		}
		generated++
	}
	return generated, nil
}

// Cleanup drops provider schedule cache rows older than 30 days and
// analytics older than a year, returning the total rows removed.
func (e *Engine) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	removed, err := e.Store.DeleteProviderSchedulesBefore(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return removed, fmt.Errorf("cleanup provider schedules: %w", err)
	}
	analytics, err := e.Store.DeleteAnalyticsBefore(ctx, now.AddDate(0, 0, -365))
	if err != nil {
		return removed, fmt.Errorf("cleanup analytics: %w", err)
	}
	return removed + analytics, nil
}
