package service

import (
	"context"
	"fmt"
	"time"

	"github.com/acganger/staffing-backend/internal/models"
	"github.com/acganger/staffing-backend/internal/utils"
)

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// TrendSummary describes a week of analytics for one location.
type TrendSummary struct {
	AvgCoverage        float64 `json:"avg_coverage"`
	AvgOvertime        float64 `json:"avg_overtime"`
	TotalCrossLocation int     `json:"total_cross_location"`
	CoverageTrend      string  `json:"coverage_trend"`
	OvertimeTrend      string  `json:"overtime_trend"`
}

// AnalyzeWeeklyTrend summarizes a run of analytics records, oldest first.
// Overtime is a lower-is-better series, so a falling overtime average reads
// as improving.
func AnalyzeWeeklyTrend(records []models.AnalyticsRecord) TrendSummary {
	summary := TrendSummary{
		CoverageTrend: TrendStable,
		OvertimeTrend: TrendStable,
	}
	if len(records) == 0 {
		return summary
	}

	var coverage, overtime []float64
	for _, r := range records {
		coverage = append(coverage, r.CoveragePercentage)
		overtime = append(overtime, r.OvertimeHours)
		summary.AvgCoverage += r.CoveragePercentage
		summary.AvgOvertime += r.OvertimeHours
		summary.TotalCrossLocation += r.CrossLocationAssignments
	}
	summary.AvgCoverage = utils.Round2(summary.AvgCoverage / float64(len(records)))
	summary.AvgOvertime = utils.Round2(summary.AvgOvertime / float64(len(records)))
	summary.CoverageTrend = calculateTrend(coverage, true)
	summary.OvertimeTrend = calculateTrend(overtime, false)
	return summary
}

// calculateTrend splits the series in half and compares averages. A change
// beyond 5% in the favorable direction is improving, beyond 5% the other
// way is declining, anything else is stable.
func calculateTrend(values []float64, higherIsBetter bool) string {
	if len(values) < 2 {
		return TrendStable
	}

	mid := len(values) / 2
	firstAvg := mean(values[:mid])
	secondAvg := mean(values[mid:])

	var change float64
	switch {
	case firstAvg != 0:
		change = (secondAvg - firstAvg) / firstAvg * 100
	case secondAvg == 0:
		return TrendStable
	case secondAvg > 0:
		change = 100
	default:
		change = -100
	}
	if !higherIsBetter {
		change = -change
	}

	if change > 5 {
		return TrendImproving
	}
	if change < -5 {
		return TrendDeclining
	}
	return TrendStable
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// AnalyzeTrends runs the weekly trend analysis for every active location and
// returns how many locations had enough data to analyze.
func (e *Engine) AnalyzeTrends(ctx context.Context, now time.Time) (int, error) {
	locations, err := e.Store.ListActiveLocations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list locations: %w", err)
	}

	analyzed := 0
	for _, loc := range locations {
		records, err := e.Store.ListAnalyticsSince(ctx, loc.ID, now.AddDate(0, 0, -7))
		if err != nil {
			e.Logger.Error().Err(err).Str("location_id", loc.ID).Msg("trend analysis failed for location")
			continue
		}
		if len(records) == 0 {
			continue
		}

		summary := AnalyzeWeeklyTrend(records)
		e.Logger.Info().
			Str("location_id", loc.ID).
			Float64("avg_coverage", summary.AvgCoverage).
			Float64("avg_overtime", summary.AvgOvertime).
			Int("cross_location", summary.TotalCrossLocation).
			Str("coverage_trend", summary.CoverageTrend).
			Str("overtime_trend", summary.OvertimeTrend).
			Msg("weekly staffing trend")
		analyzed++
	}
	return analyzed, nil
}

// WeeklyTrend returns the trend summary for one location over the trailing
// seven days.
func (e *Engine) WeeklyTrend(ctx context.Context, locationID string, now time.Time) (TrendSummary, error) {
	records, err := e.Store.ListAnalyticsSince(ctx, locationID, now.AddDate(0, 0, -7))
	if err != nil {
		return TrendSummary{}, fmt.Errorf("list analytics: %w", err)
	}
	return AnalyzeWeeklyTrend(records), nil
}
