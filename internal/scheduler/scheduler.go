package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobType represents the housekeeping jobs the scheduler runs
type JobType int

const (
	JobTypeExpirePending JobType = iota
	JobTypeCompleteStays
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeExpirePending:
		return "expire_pending"
	case JobTypeCompleteStays:
		return "complete_stays"
	default:
		return "unknown"
	}
}

// BookingJobs is the booking housekeeping the scheduler drives.
type BookingJobs interface {
	ExpireStalePending(ctx context.Context) (int, error)
	CompleteFinished(ctx context.Context) (int, error)
}

type Specs struct {
	ExpirePending string
	CompleteStays string
}

// Scheduler runs booking housekeeping on cron schedules
type Scheduler struct {
	jobs     BookingJobs
	logger   *logrus.Logger
	cron     *cron.Cron
	specs    Specs
	timeout  time.Duration
	jobMutex sync.Mutex // Ensures sequential job execution
	wg       sync.WaitGroup
}

// NewScheduler validates the schedules and creates a scheduler
func NewScheduler(jobs BookingJobs, specs Specs, logger *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		jobs:    jobs,
		logger:  logger,
		cron:    cron.New(),
		specs:   specs,
		timeout: 5 * time.Minute,
	}

	if _, err := s.cron.AddFunc(specs.ExpirePending, func() { s.run(JobTypeExpirePending) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q for %s: %w", specs.ExpirePending, JobTypeExpirePending, err)
	}
	if _, err := s.cron.AddFunc(specs.CompleteStays, func() { s.run(JobTypeCompleteStays) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q for %s: %w", specs.CompleteStays, JobTypeCompleteStays, err)
	}
	return s, nil
}

// Start runs every job once and then hands over to the cron schedules
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("Running startup housekeeping jobs")
		s.run(JobTypeExpirePending)
		s.run(JobTypeCompleteStays)
	}()

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"expire_pending": s.specs.ExpirePending,
		"complete_stays": s.specs.CompleteStays,
	}).Info("Scheduler started")
}

// Stop waits for running jobs and stops the schedules
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// RunNow executes a job immediately and returns how many bookings it changed
func (s *Scheduler) RunNow(ctx context.Context, job JobType) (int, error) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	switch job {
	case JobTypeExpirePending:
		return s.jobs.ExpireStalePending(ctx)
	case JobTypeCompleteStays:
		return s.jobs.CompleteFinished(ctx)
	default:
		return 0, fmt.Errorf("unknown job type %d", job)
	}
}

func (s *Scheduler) run(job JobType) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.RunNow(ctx, job)
	logger := s.logger.WithFields(logrus.Fields{
		"job":      job.String(),
		"changed":  n,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		logger.WithError(err).Error("Scheduled job failed")
		return
	}
	logger.Debug("Scheduled job finished")
}
