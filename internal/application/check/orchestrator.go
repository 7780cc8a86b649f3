package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/khanhnv2901/wisafe/internal/checker"
	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"go.uber.org/zap"
)

// JobTypeCrack identifies cracking jobs in the tracker.
const JobTypeCrack = "crack"

// Tracker stores job state for long-running checks.
type Tracker interface {
	checker.Reporter
	Create(jobType string, target job.Target) (job.Job, context.Context)
	Progress(id string) (job.Progress, *job.Result)
	Cancel(id string) error
}

// Cracker runs a cracking job to completion.
type Cracker interface {
	Run(ctx context.Context, id string, target job.Target, r checker.Reporter)
}

// CheckRequest asks for a security check of one network
type CheckRequest struct {
	Record   network.Record
	Protocol string
}

// CheckOutcome carries either a job id or an immediate verdict
type CheckOutcome struct {
	JobID   string
	Verdict *checker.Verdict
}

// Orchestrator coordinates synchronous checks, cracking jobs and KRACK checks
type Orchestrator struct {
	tracker Tracker
	cracker Cracker
	flags   checker.KrackFlagger
	logger  *zap.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewOrchestrator creates a new check orchestrator
func NewOrchestrator(tracker Tracker, cracker Cracker, flags checker.KrackFlagger, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		tracker: tracker,
		cracker: cracker,
		flags:   flags,
		logger:  logger,
		now:     time.Now,
	}
}

// SecurityCheck answers immediately for catalog records and starts a cracking
// job for records found by a real scan.
func (o *Orchestrator) SecurityCheck(ctx context.Context, req CheckRequest) (CheckOutcome, error) {
	if req.Protocol == "" {
		return CheckOutcome{}, sharedErrors.ErrMissingProtocol
	}

	if req.Record.IsRealScan {
		target := job.Target{
			SSID:     req.Record.SSID,
			BSSID:    req.Record.BSSID,
			Protocol: string(network.NormalizeProtocol(req.Protocol)),
		}
		id, err := o.StartCrack(ctx, target)
		if err != nil {
			return CheckOutcome{}, err
		}
		return CheckOutcome{JobID: id}, nil
	}

	verdict, err := checker.Evaluate(req.Protocol, o.now())
	if err != nil {
		return CheckOutcome{}, err
	}
	return CheckOutcome{Verdict: &verdict}, nil
}

// StartCrack registers a cracking job and runs it in the background
func (o *Orchestrator) StartCrack(ctx context.Context, target job.Target) (string, error) {
	if target.BSSID == "" {
		return "", fmt.Errorf("%w: bssid", sharedErrors.ErrMissingRequired)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	j, jobCtx := o.tracker.Create(JobTypeCrack, target)
	o.logger.Info("cracking job started",
		zap.String("job_id", j.ID),
		zap.String("ssid", target.SSID),
		zap.String("protocol", target.Protocol),
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.cracker.Run(jobCtx, j.ID, target, o.tracker)
	}()
	return j.ID, nil
}

// Progress returns the polling view of a job
func (o *Orchestrator) Progress(id string) (job.Progress, *job.Result, error) {
	p, result := o.tracker.Progress(id)
	if p.Status == job.StatusNotFound {
		return p, nil, fmt.Errorf("%w: %s", sharedErrors.ErrJobNotFound, id)
	}
	return p, result, nil
}

// Cancel stops a running job. Terminal jobs are left untouched.
func (o *Orchestrator) Cancel(id string) error {
	if err := o.tracker.Cancel(id); err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	return nil
}

// Krack checks a WPA2 network for key reinstallation exposure. ssid fills in
// the record's SSID when the record carries none.
func (o *Orchestrator) Krack(ctx context.Context, rec network.Record, ssid string) (checker.KrackResult, error) {
	if err := ctx.Err(); err != nil {
		return checker.KrackResult{}, err
	}
	if rec.SSID == "" {
		rec.SSID = ssid
	}
	rec.Normalize()
	result, err := checker.CheckKrack(rec, o.flags, o.now())
	if err != nil {
		return checker.KrackResult{}, fmt.Errorf("failed to check krack: %w", err)
	}
	return result, nil
}

// Wait blocks until every job started by the orchestrator has returned
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
