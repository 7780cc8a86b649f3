package job

import (
	"fmt"
	"time"

	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

// Status represents the lifecycle state of a cracking job
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
	// StatusNotFound is reported for ids the tracker does not know. It is never
	// stored on a job.
	StatusNotFound Status = "not_found"
)

// IsTerminal reports whether s is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusError
}

// Result is the outcome attached to a finished job
type Result struct {
	Success  bool   `json:"success"`
	Password string `json:"password,omitempty"`
	Method   string `json:"method,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Target describes the network a job runs against
type Target struct {
	SSID     string `json:"ssid"`
	BSSID    string `json:"bssid"`
	Protocol string `json:"protocol"`
}

// Job is a long-running security check tracked by id
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     Status     `json:"status"`
	Progress   int        `json:"progress"`
	Step       string     `json:"step,omitempty"`
	Message    string     `json:"message,omitempty"`
	Target     Target     `json:"target"`
	Result     *Result    `json:"result,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// New creates a running job
func New(id, jobType string, target Target) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Type:      jobType,
		Status:    StatusRunning,
		Target:    target,
		StartedAt: &now,
	}
}

// Advance records progress on a running job. Progress is clamped to 0..100
// and never moves backwards.
func (j *Job) Advance(progress int, step, message string) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", sharedErrors.ErrJobTerminal, j.ID, j.Status)
	}
	progress = clamp(progress)
	if progress > j.Progress {
		j.Progress = progress
	}
	if step != "" {
		j.Step = step
	}
	if message != "" {
		j.Message = message
	}
	return nil
}

// Finish moves a running job into a terminal state. Every terminal state
// reports full progress.
func (j *Job) Finish(status Status, message string, result *Result) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", sharedErrors.ErrJobTerminal, j.ID, j.Status)
	}
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", sharedErrors.ErrInvalidInput, status)
	}
	now := time.Now()
	j.Status = status
	j.FinishedAt = &now
	if message != "" {
		j.Message = message
	}
	j.Progress = 100
	if result != nil {
		r := *result
		j.Result = &r
	}
	return nil
}

// Clone returns a deep copy safe to hand outside the tracker lock
func (j *Job) Clone() Job {
	c := *j
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

// Progress is the polling view of a job
type Progress struct {
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Step     string `json:"step,omitempty"`
}

// Snapshot returns the polling view of j
func (j *Job) Snapshot() Progress {
	return Progress{Status: j.Status, Progress: j.Progress, Message: j.Message, Step: j.Step}
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
