// Package jobs runs the periodic maintenance tasks of the knowledge base.
package jobs

import (
	"context"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type CronJob interface {
	ID() string
	Schedule() string
	Run(ctx context.Context) error
}

// TaskExecutor schedules cron jobs and never lets two runs of the same job
// overlap.
type TaskExecutor struct {
	cron    *cron.Cron
	jobs    []CronJob
	running mapset.Set[string]
	mu      sync.Mutex
	log     logrus.FieldLogger
}

func NewTaskExecutor(log logrus.FieldLogger, jobs ...CronJob) *TaskExecutor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TaskExecutor{
		cron:    cron.New(),
		jobs:    jobs,
		running: mapset.NewThreadUnsafeSet[string](),
		log:     log,
	}
}

// Start registers every job and starts the scheduler. Jobs with an empty
// schedule are skipped.
func (t *TaskExecutor) Start(ctx context.Context) error {
	for _, job := range t.jobs {
		if job.Schedule() == "" {
			t.log.WithField("job", job.ID()).Info("job disabled, no schedule")
			continue
		}
		if err := t.cron.AddFunc(job.Schedule(), func() { t.Execute(ctx, job) }); err != nil {
			return fmt.Errorf("schedule job %s: %w", job.ID(), err)
		}
		t.log.WithFields(logrus.Fields{"job": job.ID(), "schedule": job.Schedule()}).Info("job scheduled")
	}
	t.cron.Start()
	return nil
}

// Execute runs job unless a previous run is still in progress. It reports
// whether the job ran.
func (t *TaskExecutor) Execute(ctx context.Context, job CronJob) bool {
	t.mu.Lock()
	if t.running.Contains(job.ID()) {
		t.mu.Unlock()
		t.log.WithField("job", job.ID()).Warn("job is already running")
		return false
	}
	t.running.Add(job.ID())
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.running.Remove(job.ID())
	}()

	if err := job.Run(ctx); err != nil {
		t.log.WithError(err).WithField("job", job.ID()).Error("job failed")
	}
	return true
}

func (t *TaskExecutor) Stop() {
	t.log.Info("stopping all jobs")
	t.cron.Stop()
}
