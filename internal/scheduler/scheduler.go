// Package scheduler runs the periodic housekeeping jobs of the web front end.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobInfo is a snapshot of a scheduled job.
type JobInfo struct {
	ID         string
	Name       string
	Schedule   string
	Status     JobStatus
	LastRun    time.Time
	NextRun    time.Time
	RunCount   int
	ErrorCount int
	LastError  string
}

// JobFunc represents a function that can be scheduled.
type JobFunc func(ctx context.Context) error

type job struct {
	info       JobInfo
	gocron     gocron.Job
	runAtStart bool
}

// Scheduler manages scheduled jobs.
type Scheduler struct {
	gocron gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*job
}

// gocronLogger routes gocron's own messages through the prefixed charm logger.
type gocronLogger struct {
	*log.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.Logger.Error(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, args...) }

// New creates a new scheduler.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLogger(gocronLogger{log.Default().WithPrefix("scheduler")}))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: s,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*job),
	}, nil
}

// AddCronJob adds a singleton job running on a cron schedule.
func (s *Scheduler) AddCronJob(id, name, schedule string, fn JobFunc, runAtStart bool) error {
	return s.add(id, name, schedule, gocron.CronJob(schedule, false), fn, runAtStart)
}

// AddIntervalJob adds a singleton job running every interval.
func (s *Scheduler) AddIntervalJob(id, name string, interval time.Duration, fn JobFunc) error {
	return s.add(id, name, "every "+interval.String(), gocron.DurationJob(interval), fn, false)
}

func (s *Scheduler) add(id, name, schedule string, def gocron.JobDefinition, fn JobFunc, runAtStart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %s already exists", id)
	}

	j := &job{
		info: JobInfo{
			ID:       id,
			Name:     name,
			Schedule: schedule,
			Status:   JobStatusScheduled,
		},
		runAtStart: runAtStart,
	}

	gj, err := s.gocron.NewJob(def,
		gocron.NewTask(s.wrap(j, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}
	j.gocron = gj
	s.jobs[id] = j

	log.Info("Added job to scheduler", "id", id, "name", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) wrap(j *job, fn JobFunc) func() {
	return func() {
		s.mu.Lock()
		j.info.Status = JobStatusRunning
		j.info.LastRun = time.Now()
		j.info.RunCount++
		s.mu.Unlock()

		log.Debug("Starting job", "id", j.info.ID)
		err := fn(s.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if next, nerr := j.gocron.NextRun(); nerr == nil {
			j.info.NextRun = next
		}
		if err != nil {
			log.Error("Job failed", "id", j.info.ID, "error", err)
			j.info.Status = JobStatusFailed
			j.info.ErrorCount++
			j.info.LastError = err.Error()
			return
		}
		j.info.Status = JobStatusCompleted
		j.info.LastError = ""
	}
}

// Start starts the scheduler and triggers the jobs marked to run at start.
func (s *Scheduler) Start() {
	s.gocron.Start()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if next, err := j.gocron.NextRun(); err == nil {
			j.info.NextRun = next
		}
		if j.runAtStart {
			if err := j.gocron.RunNow(); err != nil {
				log.Error("Failed to run job after start", "id", id, "error", err)
			}
		}
	}
	log.Info("Job scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and stops the scheduler.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.gocron.Shutdown()
}

// RunNow triggers a job immediately.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	return j.gocron.RunNow()
}

// Jobs returns a snapshot of all jobs ordered by id.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		infos = append(infos, j.info)
	}
	slices.SortFunc(infos, func(a, b JobInfo) int { return strings.Compare(a.ID, b.ID) })
	return infos
}
