package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"listings-cms/internal/logger"
)

const (
	TagCacheWarm   = "cache-warm"
	TagUploadPrune = "upload-prune"
)

// Job is a unit of periodic work. It receives the scheduler's context, which
// is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler runs the server's periodic maintenance jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
}

// New creates a scheduler whose job runs are each bounded by timeout.
func New(timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		ctx:       ctx,
		cancel:    cancel,
		timeout:   timeout,
	}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}

// ScheduleInterval runs job every interval, starting immediately.
func (s *Scheduler) ScheduleInterval(tag string, interval time.Duration, job Job) error {
	_, err := s.scheduler.Every(interval).Tag(tag).Do(s.wrap(tag, job))
	return err
}

// ScheduleDaily runs job once a day at the given "HH:MM" UTC time.
func (s *Scheduler) ScheduleDaily(tag, at string, job Job) error {
	_, err := s.scheduler.Every(1).Day().At(at).Tag(tag).Do(s.wrap(tag, job))
	return err
}

func (s *Scheduler) RemoveJob(tag string) error {
	return s.scheduler.RemoveByTag(tag)
}

// Tags lists the tags of all scheduled jobs.
func (s *Scheduler) Tags() []string {
	var tags []string
	for _, j := range s.scheduler.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	return tags
}

func (s *Scheduler) wrap(tag string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			logger.Error("scheduled job failed", "job", tag, "error", err)
			return
		}
		logger.Debug("scheduled job finished", "job", tag, "duration", time.Since(start).String())
	}
}
