package ehr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/models"
	"github.com/acganger/staffing-backend/internal/utils"
)

// API is the subset of the scheduling-system client the syncer uses.
type API interface {
	ListProviders(ctx context.Context) ([]Provider, error)
	ListAppointments(ctx context.Context, providerID string, date time.Time, statuses []string) ([]Appointment, error)
	TestConnection(ctx context.Context) (bool, string)
}

// Store is the slice of the staffing cache the syncer writes through.
type Store interface {
	ListActiveLocations(ctx context.Context) ([]models.Location, error)
	UpsertProviderSchedule(ctx context.Context, entry models.ProviderScheduleEntry) error
}

type Syncer struct {
	Client    API
	Store     Store
	Logger    zerolog.Logger
	ItemDelay time.Duration
}

// blockSize is the granularity appointments are grouped into.
const blockSize = 30 * time.Minute

// TimeBlock is a contiguous run of appointments sharing a rounded start/end
// window and a location.
type TimeBlock struct {
	LocationRef  string
	StartTime    string
	EndTime      string
	TypeLabel    string
	Appointments []Appointment
}

// GroupAppointments buckets appointments into 30-minute blocks keyed by
// rounded start, rounded end and location. The result is ordered and stable,
// so re-grouping the same input yields identical blocks.
func GroupAppointments(appointments []Appointment) []TimeBlock {
	type key struct {
		start, end, location string
	}
	blocks := make(map[key]*TimeBlock)
	for _, appt := range appointments {
		k := key{
			start:    utils.ClockString(utils.RoundToBlock(appt.Start, blockSize)),
			end:      utils.ClockString(utils.RoundToBlock(appt.End, blockSize)),
			location: appt.LocationRef,
		}
		b, ok := blocks[k]
		if !ok {
			b = &TimeBlock{
				LocationRef: appt.LocationRef,
				StartTime:   k.start,
				EndTime:     k.end,
				TypeLabel:   appt.TypeLabel,
			}
			blocks[k] = b
		}
		b.Appointments = append(b.Appointments, appt)
	}

	out := make([]TimeBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		if out[i].EndTime != out[j].EndTime {
			return out[i].EndTime < out[j].EndTime
		}
		return out[i].LocationRef < out[j].LocationRef
	})
	return out
}

// SupportNeed estimates the support staff a block requires: half a unit per
// appointment, scaled by a complexity multiplier derived from appointment
// types and capped at 2.0.
func SupportNeed(block TimeBlock) float64 {
	base := 0.5 * float64(len(block.Appointments))
	multiplier := 1.0
	for _, appt := range block.Appointments {
		label := strings.ToLower(appt.TypeLabel)
		switch {
		case strings.Contains(label, "surgery"), strings.Contains(label, "procedure"):
			multiplier += 0.5
		case strings.Contains(label, "injection"), strings.Contains(label, "biopsy"):
			multiplier += 0.3
		case strings.Contains(label, "consult"), strings.Contains(label, "follow"):
			multiplier += 0.1
		}
	}
	if multiplier > 2.0 {
		multiplier = 2.0
	}
	return utils.Round1(base * multiplier)
}

var syncedStatuses = []string{"booked", "arrived", "fulfilled"}

// SyncProviderSchedules pulls every active provider's appointments for the
// given date, groups them into blocks and upserts one schedule entry per
// block. A failure for one provider or block is recorded and the pass
// continues with the rest.
func (s *Syncer) SyncProviderSchedules(ctx context.Context, date time.Time) (models.SyncResult, error) {
	var result models.SyncResult

	locations, err := s.Store.ListActiveLocations(ctx)
	if err != nil {
		return result, fmt.Errorf("list locations: %w", err)
	}
	locationByExternal := make(map[string]string, len(locations))
	for _, loc := range locations {
		if loc.EHRLocationID != "" {
			locationByExternal[loc.EHRLocationID] = loc.ID
		}
	}

	providers, err := s.Client.ListProviders(ctx)
	if err != nil {
		return result, fmt.Errorf("list providers: %w", err)
	}
	s.Logger.Info().Int("providers", len(providers)).Time("date", date).Msg("syncing provider schedules")

	for i, provider := range providers {
		if i > 0 && s.ItemDelay > 0 {
			if err := sleepCtx(ctx, s.ItemDelay); err != nil {
				return result, err
			}
		}

		appointments, err := s.Client.ListAppointments(ctx, provider.ID, date, syncedStatuses)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("provider %s: %v", provider.ID, err))
			s.Logger.Warn().Err(err).Str("provider_id", provider.ID).Msg("appointment fetch failed, continuing")
			continue
		}

		for _, block := range GroupAppointments(appointments) {
			locationID, ok := locationByExternal[stripReference(block.LocationRef)]
			if !ok {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("provider %s: unmapped location %q", provider.ID, block.LocationRef))
				s.Logger.Warn().Str("provider_id", provider.ID).Str("location_ref", block.LocationRef).Msg("skipping block for unmapped location")
				continue
			}

			entry := models.ProviderScheduleEntry{
				ProviderID:           provider.ID,
				ProviderName:         provider.Name,
				ScheduleDate:         utils.DateOnly(date),
				StartTime:            block.StartTime,
				EndTime:              block.EndTime,
				LocationID:           locationID,
				PatientCount:         len(block.Appointments),
				AppointmentType:      block.TypeLabel,
				EstimatedSupportNeed: SupportNeed(block),
				SourceAppointmentIDs: appointmentIDs(block.Appointments),
				LastSyncedAt:         time.Now().UTC(),
			}
			if err := s.Store.UpsertProviderSchedule(ctx, entry); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("provider %s block %s: %v", provider.ID, block.StartTime, err))
				s.Logger.Warn().Err(err).Str("provider_id", provider.ID).Msg("schedule upsert failed, continuing")
				continue
			}
			result.Synced++
		}
	}
	return result, nil
}

func appointmentIDs(appointments []Appointment) []string {
	ids := make([]string, 0, len(appointments))
	for _, a := range appointments {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return ids
}

// stripReference reduces "Location/abc" to "abc".
func stripReference(ref string) string {
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
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
