package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"go.uber.org/zap"
)

// JobObserver is notified when jobs start and finish.
type JobObserver interface {
	JobStarted(jobType string)
	JobFinished(status string)
}

type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*job.Job
	cancels     map[string]context.CancelFunc
	subscribers map[chan job.Job]struct{}
	maxJobs     int // Maximum number of jobs to keep in memory
	logger      *zap.Logger
	observer    JobObserver
	baseCtx     context.Context
	stop        context.CancelFunc
}

func NewJobManager(logger *zap.Logger) *JobManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, stop := context.WithCancel(context.Background())
	m := &JobManager{
		jobs:        make(map[string]*job.Job),
		cancels:     make(map[string]context.CancelFunc),
		subscribers: make(map[chan job.Job]struct{}),
		maxJobs:     1000, // Default: keep last 1000 jobs
		logger:      logger,
		baseCtx:     ctx,
		stop:        stop,
	}
	// Start cleanup goroutine to remove old finished jobs
	go m.cleanupLoop(ctx, 5*time.Minute)
	return m
}

// SetObserver installs an observer for job lifecycle events
func (m *JobManager) SetObserver(o JobObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
}

// Create registers a running job and returns it with a context that is
// cancelled by Cancel or Close.
func (m *JobManager) Create(jobType string, target job.Target) (job.Job, context.Context) {
	ctx, cancel := context.WithCancel(m.baseCtx)

	m.mu.Lock()
	defer m.mu.Unlock()
	j := job.New(generateID(jobType), jobType, target)
	m.jobs[j.ID] = j
	m.cancels[j.ID] = cancel
	if m.observer != nil {
		m.observer.JobStarted(jobType)
	}
	m.logger.Info("job started",
		zap.String("job_id", j.ID),
		zap.String("type", jobType),
		zap.String("bssid", target.BSSID),
		zap.String("protocol", target.Protocol),
	)
	snapshot := j.Clone()
	m.broadcast(snapshot)
	return snapshot, ctx
}

// Advance records progress on a running job
func (m *JobManager) Advance(id string, progress int, step, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", sharedErrors.ErrJobNotFound, id)
	}
	if err := j.Advance(progress, step, message); err != nil {
		return err
	}
	m.broadcast(j.Clone())
	return nil
}

// Finish moves a job into a terminal state. Later updates are rejected with
// ErrJobTerminal.
func (m *JobManager) Finish(id string, status job.Status, message string, result *job.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", sharedErrors.ErrJobNotFound, id)
	}
	if err := j.Finish(status, message, result); err != nil {
		return err
	}
	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
	if m.observer != nil {
		m.observer.JobFinished(string(status))
	}
	m.logger.Info("job finished",
		zap.String("job_id", id),
		zap.String("status", string(status)),
		zap.String("message", message),
	)
	m.broadcast(j.Clone())
	return nil
}

// Cancel asks the worker of a running job to stop. Cancelling a finished job
// is a no-op.
func (m *JobManager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", sharedErrors.ErrJobNotFound, id)
	}
	if cancel, ok := m.cancels[id]; ok {
		m.logger.Info("job cancel requested", zap.String("job_id", id))
		cancel()
	}
	return nil
}

func (m *JobManager) GetJob(id string) (job.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if j, ok := m.jobs[id]; ok {
		return j.Clone(), true
	}
	return job.Job{}, false
}

// Progress returns the polling view of a job. Unknown ids report
// StatusNotFound.
func (m *JobManager) Progress(id string) (job.Progress, *job.Result) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return job.Progress{Status: job.StatusNotFound, Message: "job not found"}, nil
	}
	c := j.Clone()
	return c.Snapshot(), c.Result
}

func (m *JobManager) ListJobs(limit int) []job.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.jobs) {
		limit = len(m.jobs)
	}
	jobs := make([]job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j.Clone())
	}

	// Newest first; StartedAt is always set by job.New
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].StartedAt.Equal(*jobs[k].StartedAt) {
			return jobs[i].ID > jobs[k].ID
		}
		return jobs[i].StartedAt.After(*jobs[k].StartedAt)
	})

	return jobs[:limit]
}

func (m *JobManager) Subscribe() (chan job.Job, func()) {
	ch := make(chan job.Job, 32)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// broadcast must be called with m.mu held
func (m *JobManager) broadcast(j job.Job) {
	for ch := range m.subscribers {
		select {
		case ch <- j:
		default:
			m.logger.Warn("dropped job update for slow subscriber",
				zap.String("job_id", j.ID),
				zap.String("status", string(j.Status)),
			)
		}
	}
}

// Close cancels every running job and stops the cleanup loop
func (m *JobManager) Close() {
	m.stop()
}

func generateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// cleanupLoop removes old finished jobs to prevent unbounded memory growth
func (m *JobManager) cleanupLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evict()
		}
	}
}

// evict drops the oldest terminal jobs until the manager is within maxJobs.
// Running jobs are never evicted.
func (m *JobManager) evict() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) <= m.maxJobs {
		return 0
	}

	type jobWithTime struct {
		id   string
		time time.Time
	}
	var finished []jobWithTime
	for id, j := range m.jobs {
		if j.Status.IsTerminal() && j.FinishedAt != nil {
			finished = append(finished, jobWithTime{id: id, time: *j.FinishedAt})
		}
	}

	sort.Slice(finished, func(i, k int) bool {
		return finished[i].time.Before(finished[k].time)
	})

	toRemove := len(m.jobs) - m.maxJobs
	if toRemove > len(finished) {
		toRemove = len(finished)
	}
	for i := 0; i < toRemove; i++ {
		delete(m.jobs, finished[i].id)
	}
	if toRemove > 0 {
		m.logger.Debug("evicted finished jobs", zap.Int("count", toRemove))
	}
	return toRemove
}

// SetMaxJobs configures the maximum number of jobs to retain in memory
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}
