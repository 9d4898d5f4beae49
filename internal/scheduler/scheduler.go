// Package scheduler triggers automatic scrape runs on the configured cadence.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

// Cron expressions for the supported cadences. Runs fire at 07:00 server
// time, before the workday starts.
const (
	dailySpec  = "0 7 * * *"
	weeklySpec = "0 7 * * 1"
)

// Scheduler owns a single cron entry that re-runs the default scrape. The
// cadence follows the persisted settings and can be changed at runtime.
type Scheduler struct {
	cron   *cron.Cron
	run    func()
	logger *zap.Logger

	mu       sync.Mutex
	entry    cron.EntryID
	schedule string
}

// New builds a stopped scheduler; Start must be called once.
func New(run func(), logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		run:      run,
		logger:   logger,
		schedule: jobs.ScheduleManual,
	}
}

// Start begins cron dispatching.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatching and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Apply switches the cadence. Manual removes the entry entirely; daily and
// weekly install the matching cron spec. Applying the current cadence is a
// no-op.
func (s *Scheduler) Apply(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if schedule == s.schedule {
		return nil
	}

	var spec string
	switch schedule {
	case jobs.ScheduleManual:
	case jobs.ScheduleDaily:
		spec = dailySpec
	case jobs.ScheduleWeekly:
		spec = weeklySpec
	default:
		return fmt.Errorf("unknown schedule %q", schedule)
	}

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	if spec != "" {
		entry, err := s.cron.AddFunc(spec, s.run)
		if err != nil {
			return fmt.Errorf("install %s schedule: %w", schedule, err)
		}
		s.entry = entry
	}
	s.schedule = schedule
	s.logger.Info("schedule applied", zap.String("schedule", schedule))
	return nil
}

// Schedule reports the active cadence.
func (s *Scheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule
}
