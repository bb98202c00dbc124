package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/acganger/staffing-backend/internal/models"
)

func (s *Store) UpsertAnalytics(ctx context.Context, r models.AnalyticsRecord) error {
	suggestions, err := json.Marshal(r.OptimizationSuggestions)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO staffing_analytics
			(analytics_date, location_id, total_provider_hours, total_support_hours, optimal_support_hours,
			 coverage_percentage, understaffed_periods, overstaffed_periods, cross_location_assignments,
			 overtime_hours, staff_utilization_rate, patient_satisfaction_impact, cost_efficiency_score,
			 optimization_suggestions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (analytics_date, location_id) DO UPDATE SET
			total_provider_hours = EXCLUDED.total_provider_hours,
			total_support_hours = EXCLUDED.total_support_hours,
			optimal_support_hours = EXCLUDED.optimal_support_hours,
			coverage_percentage = EXCLUDED.coverage_percentage,
			understaffed_periods = EXCLUDED.understaffed_periods,
			overstaffed_periods = EXCLUDED.overstaffed_periods,
			cross_location_assignments = EXCLUDED.cross_location_assignments,
			overtime_hours = EXCLUDED.overtime_hours,
			staff_utilization_rate = EXCLUDED.staff_utilization_rate,
			patient_satisfaction_impact = EXCLUDED.patient_satisfaction_impact,
			cost_efficiency_score = EXCLUDED.cost_efficiency_score,
			optimization_suggestions = EXCLUDED.optimization_suggestions
	`, r.AnalyticsDate, r.LocationID, r.TotalProviderHours, r.TotalSupportHours, r.OptimalSupportHours,
		r.CoveragePercentage, r.UnderstaffedPeriods, r.OverstaffedPeriods, r.CrossLocationAssignments,
		r.OvertimeHours, r.StaffUtilizationRate, r.PatientSatisfactionImpact, r.CostEfficiencyScore,
		suggestions)
	return err
}

const analyticsColumns = `analytics_date, location_id, total_provider_hours, total_support_hours,
	optimal_support_hours, coverage_percentage, understaffed_periods, overstaffed_periods,
	cross_location_assignments, overtime_hours, staff_utilization_rate,
	COALESCE(patient_satisfaction_impact, 0), cost_efficiency_score, optimization_suggestions`

func scanAnalytics(row interface{ Scan(...any) error }) (models.AnalyticsRecord, error) {
	var r models.AnalyticsRecord
	var suggestions []byte
	err := row.Scan(&r.AnalyticsDate, &r.LocationID, &r.TotalProviderHours, &r.TotalSupportHours,
		&r.OptimalSupportHours, &r.CoveragePercentage, &r.UnderstaffedPeriods, &r.OverstaffedPeriods,
		&r.CrossLocationAssignments, &r.OvertimeHours, &r.StaffUtilizationRate,
		&r.PatientSatisfactionImpact, &r.CostEfficiencyScore, &suggestions)
	if err != nil {
		return r, err
	}
	if len(suggestions) > 0 {
		if err := json.Unmarshal(suggestions, &r.OptimizationSuggestions); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (s *Store) GetAnalytics(ctx context.Context, date time.Time, locationID string) (models.AnalyticsRecord, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+analyticsColumns+`
		FROM staffing_analytics WHERE analytics_date = $1 AND location_id = $2`, date, locationID)
	return scanAnalytics(row)
}

// ListAnalyticsSince returns a location's records from `since` onward in
// ascending date order, the shape the trend analyzer expects.
func (s *Store) ListAnalyticsSince(ctx context.Context, locationID string, since time.Time) ([]models.AnalyticsRecord, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+analyticsColumns+`
		FROM staffing_analytics
		WHERE location_id = $1 AND analytics_date >= $2
		ORDER BY analytics_date ASC`, locationID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AnalyticsRecord
	for rows.Next() {
		r, err := scanAnalytics(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAnalyticsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM staffing_analytics WHERE analytics_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
