package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/audit"
	"github.com/acganger/staffing-backend/internal/ehr"
	"github.com/acganger/staffing-backend/internal/hris"
	"github.com/acganger/staffing-backend/internal/models"
	"github.com/acganger/staffing-backend/internal/service"
	"github.com/acganger/staffing-backend/internal/wfm"
)

type JobName string

const (
	JobEHRSync        JobName = "ehr_sync"
	JobWFMSync        JobName = "wfm_sync"
	JobHRISSync       JobName = "hris_sync"
	JobAnalyticsDaily JobName = "analytics_daily"
	JobTrendWeekly    JobName = "trend_weekly"
	JobCleanup        JobName = "cleanup"
)

var ErrUnknownJob = errors.New("unknown job")

// metricsPerJob caps the execution history kept in memory for each job.
const metricsPerJob = 50

type jobSpec struct {
	next func(now time.Time) time.Time
	run  func(ctx context.Context) (int, error)
}

// Scheduler owns the recurring sync and analytics jobs. Each job runs on its
// own timer loop; Stop cancels the loops but lets an execution already in
// flight finish.
type Scheduler struct {
	logger zerolog.Logger
	audit  audit.Sink
	jobs   map[JobName]jobSpec

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics map[JobName][]models.JobExecutionMetric
}

func New(ehrSync *ehr.Syncer, wfmSync *wfm.Syncer, hrisSync *hris.Syncer, engine *service.Engine, sink audit.Sink, logger zerolog.Logger) *Scheduler {
	s := &Scheduler{
		logger:  logger,
		audit:   sink,
		metrics: make(map[JobName][]models.JobExecutionMetric),
	}

	s.jobs = map[JobName]jobSpec{
		JobEHRSync: {
			next: every(30 * time.Minute),
			run: func(ctx context.Context) (int, error) {
				total := 0
				for _, offset := range []int{0, 1} {
					result, err := ehrSync.SyncProviderSchedules(ctx, time.Now().AddDate(0, 0, offset))
					if err != nil {
						return total, err
					}
					s.logResult(JobEHRSync, result)
					total += result.Synced
				}
				return total, nil
			},
		},
		JobWFMSync: {
			next: every(time.Hour),
			run: func(ctx context.Context) (int, error) {
				result, err := wfmSync.SyncStaffAvailability(ctx)
				if err != nil {
					return 0, err
				}
				s.logResult(JobWFMSync, result)
				return result.Synced, nil
			},
		},
		JobHRISSync: {
			next: dailyAt(6),
			run: func(ctx context.Context) (int, error) {
				result, err := hrisSync.SyncEmployeeStatus(ctx)
				if err != nil {
					return 0, err
				}
				s.logResult(JobHRISSync, result.SyncResult)
				s.logger.Info().
					Int("total", result.Total).
					Int("active", result.Active).
					Int("on_leave", result.OnLeave).
					Msg("employee status summary")
				return result.Synced, nil
			},
		},
		JobAnalyticsDaily: {
			next: dailyAt(23),
			run: func(ctx context.Context) (int, error) {
				return engine.GenerateForAllLocations(ctx, time.Now())
			},
		},
		JobTrendWeekly: {
			next: weeklyAt(time.Sunday, 20),
			run: func(ctx context.Context) (int, error) {
				return engine.AnalyzeTrends(ctx, time.Now())
			},
		},
		JobCleanup: {
			next: dailyAt(2),
			run: func(ctx context.Context) (int, error) {
				removed, err := engine.Cleanup(ctx, time.Now())
				if err != nil {
					return int(removed), err
				}
				s.probeConnections(ctx, ehrSync, wfmSync, hrisSync)
				return int(removed), nil
			},
		},
	}
	return s
}

func (s *Scheduler) logResult(name JobName, result models.SyncResult) {
	event := s.logger.Info()
	if result.Failed > 0 {
		event = s.logger.Warn().Strs("errors", result.Errors)
	}
	event.Str("job", string(name)).Int("synced", result.Synced).Int("failed", result.Failed).Msg("sync pass finished")
}

func (s *Scheduler) probeConnections(ctx context.Context, ehrSync *ehr.Syncer, wfmSync *wfm.Syncer, hrisSync *hris.Syncer) {
	for name, probe := range map[string]func(context.Context) (bool, string){
		"ehr":  ehrSync.Client.TestConnection,
		"wfm":  wfmSync.Client.TestConnection,
		"hris": hrisSync.Client.TestConnection,
	} {
		ok, detail := probe(ctx)
		if ok {
			s.logger.Info().Str("service", name).Msg(detail)
		} else {
			s.logger.Warn().Str("service", name).Msg(detail)
		}
	}
}

// Start launches one timer loop per job. Calling Start on a scheduler that
// is already running is a logged no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn().Msg("scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	for name, spec := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(ctx, name, spec)
	}
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
	s.audit.Record(ctx, audit.Entry{
		Action:       "scheduler_started",
		ActorID:      "system",
		ResourceType: "scheduler",
		Metadata:     map[string]any{"jobs": len(s.jobs)},
	})
}

// Stop cancels the timer loops and waits for them to exit. Executions
// already in flight run to completion on their own context. Stopping a
// scheduler that is not running is a logged no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("scheduler not running")
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
	s.audit.Record(context.Background(), audit.Entry{
		Action:       "scheduler_stopped",
		ActorID:      "system",
		ResourceType: "scheduler",
	})
}

func (s *Scheduler) runLoop(ctx context.Context, name JobName, spec jobSpec) {
	defer s.wg.Done()
	for {
		fireAt := spec.next(time.Now())
		timer := time.NewTimer(time.Until(fireAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(name, spec, "system")
		}
	}
}

// execute runs one job through the metrics harness. The job body gets a
// fresh context so a scheduler shutdown does not abandon half-written
// records; item-level sync failures are the job's own concern and a
// successful run records an empty error list.
func (s *Scheduler) execute(name JobName, spec jobSpec, actor string) models.JobExecutionMetric {
	start := time.Now()
	s.logger.Info().Str("job", string(name)).Str("actor", actor).Msg("job starting")

	records, err := s.runRecovered(spec)
	metric := models.JobExecutionMetric{
		JobName:          string(name),
		Success:          err == nil,
		DurationMS:       time.Since(start).Milliseconds(),
		RecordsProcessed: records,
		Timestamp:        start,
	}

	action := string(name) + "_completed"
	if err != nil {
		metric.Errors = []string{err.Error()}
		action = string(name) + "_failed"
		s.logger.Error().Err(err).Str("job", string(name)).Dur("duration", time.Since(start)).Msg("job failed")
	} else {
		s.logger.Info().Str("job", string(name)).Int("records", records).Dur("duration", time.Since(start)).Msg("job finished")
	}

	s.appendMetric(name, metric)
	s.audit.Record(context.Background(), audit.Entry{
		Action:       action,
		ActorID:      actor,
		ResourceType: "scheduled_job",
		ResourceID:   string(name),
		Metadata: map[string]any{
			"duration_ms":       metric.DurationMS,
			"records_processed": metric.RecordsProcessed,
			"errors":            metric.Errors,
		},
	})
	return metric
}

func (s *Scheduler) runRecovered(spec jobSpec) (records int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return spec.run(context.Background())
}

func (s *Scheduler) appendMetric(name JobName, metric models.JobExecutionMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.metrics[name], metric)
	if len(history) > metricsPerJob {
		history = history[len(history)-metricsPerJob:]
	}
	s.metrics[name] = history
}

// RunJobManually executes one job synchronously, outside its schedule, and
// returns the resulting metric. The scheduler does not need to be running.
func (s *Scheduler) RunJobManually(name JobName) (models.JobExecutionMetric, error) {
	spec, ok := s.jobs[name]
	if !ok {
		return models.JobExecutionMetric{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(name, spec, "manual"), nil
}

// Status reports whether the loops are running, which jobs exist and the
// most recent execution of each.
type Status struct {
	IsRunning      bool                                 `json:"is_running"`
	ActiveJobs     []string                             `json:"active_jobs"`
	LastExecutions map[string]models.JobExecutionMetric `json:"last_executions"`
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		IsRunning:      s.running,
		LastExecutions: make(map[string]models.JobExecutionMetric),
	}
	for name := range s.jobs {
		status.ActiveJobs = append(status.ActiveJobs, string(name))
		if history := s.metrics[name]; len(history) > 0 {
			status.LastExecutions[string(name)] = history[len(history)-1]
		}
	}
	sort.Strings(status.ActiveJobs)
	return status
}

// Metrics returns a copy of the retained execution history per job.
func (s *Scheduler) Metrics() map[string][]models.JobExecutionMetric {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]models.JobExecutionMetric, len(s.metrics))
	for name, history := range s.metrics {
		copied := make([]models.JobExecutionMetric, len(history))
		copy(copied, history)
		out[string(name)] = copied
	}
	return out
}

// every fires on the next boundary of the interval.
func every(interval time.Duration) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		return now.Truncate(interval).Add(interval)
	}
}

// dailyAt fires at the given local hour, today if still ahead, else tomorrow.
func dailyAt(hour int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// weeklyAt fires at the given local hour on the given weekday.
func weeklyAt(day time.Weekday, hour int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		offset := (int(day) - int(now.Weekday()) + 7) % 7
		next = next.AddDate(0, 0, offset)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	}
}
