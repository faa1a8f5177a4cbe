package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alpex-ai/housing-intelligence/internal/app/system"
	"github.com/alpex-ai/housing-intelligence/internal/config"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

var _ system.Service = (*Scheduler)(nil)

const jobTimeout = 10 * time.Minute

// Scheduler runs the sync jobs on cron schedules. A job never overlaps with
// its own previous run.
type Scheduler struct {
	service *Service
	jobs    *config.JobsConfig
	log     *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewScheduler creates a lifecycle-managed scheduler for the enabled jobs.
func NewScheduler(service *Service, jobs *config.JobsConfig, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("ingest-scheduler")
	}
	return &Scheduler{service: service, jobs: jobs, log: log}
}

func (s *Scheduler) Name() string { return "ingest-scheduler" }

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})))

	for _, name := range s.enabledJobs() {
		settings := s.jobs.Jobs[name]
		run, err := s.jobFunc(name)
		if err != nil {
			cancel()
			return err
		}
		name := name
		if _, err := c.AddFunc(settings.Schedule, func() {
			jobCtx, jobCancel := context.WithTimeout(runCtx, jobTimeout)
			defer jobCancel()
			if _, err := run(jobCtx); err != nil {
				s.log.WithError(err).WithField("job", name).Warn("scheduled sync failed")
			}
		}); err != nil {
			cancel()
			return fmt.Errorf("schedule %s (%q): %w", name, settings.Schedule, err)
		}
		s.log.WithField("job", name).WithField("schedule", settings.Schedule).Info("sync job scheduled")
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true
	s.log.Info("sync scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.cron = nil
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	stopped := c.Stop()

	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("sync scheduler stopped")
	return nil
}

func (s *Scheduler) enabledJobs() []string {
	if s.jobs == nil {
		return nil
	}
	names := make([]string, 0, len(s.jobs.Jobs))
	for name, settings := range s.jobs.Jobs {
		if settings != nil && settings.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) jobFunc(name string) (func(context.Context) (Report, error), error) {
	switch name {
	case config.JobSyncFRED:
		return s.service.SyncFRED, nil
	case config.JobSyncAll:
		return s.service.SyncAll, nil
	default:
		return nil, fmt.Errorf("unknown sync job %q", name)
	}
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
