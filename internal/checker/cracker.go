package checker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultWordlist is used when no wordlist file is configured.
var DefaultWordlist = []string{
	"password", "12345678", "qwerty", "admin", "welcome",
	"password123", "123456789", "letmein", "monkey", "dragon",
}

// Crack steps reported through job progress.
const (
	StepCollectingIV       = "collecting_iv"
	StepAnalyzingIV        = "analyzing_iv"
	StepCracking           = "cracking"
	StepCapturingHandshake = "capturing_handshake"
	StepWaitingHandshake   = "waiting_handshake"
	StepDictionaryAttack   = "dictionary_attack"
	StepCompleted          = "completed"
)

// MessageCancelled is recorded on jobs stopped by Cancel.
const MessageCancelled = "cancelled"

// Reporter receives progress from a running crack.
type Reporter interface {
	Advance(id string, progress int, step, message string) error
	Finish(id string, status job.Status, message string, result *job.Result) error
}

// CrackConfig tunes the simulated cracking engine.
type CrackConfig struct {
	// StepDelay is the pause between stages.
	StepDelay time.Duration
	// AttemptRate caps dictionary candidates per second. Zero disables pacing.
	AttemptRate int
	Wordlist    []string
	// LabPassphrases maps a BSSID to the passphrase configured on that lab
	// access point. Only these access points can ever be "cracked".
	LabPassphrases map[string]string
}

// Cracker simulates key recovery against lab access points. No frames are
// captured or injected: a crack succeeds only when the lab passphrase for the
// BSSID appears in the wordlist.
type Cracker struct {
	cfg    CrackConfig
	lab    map[string]string
	logger *zap.Logger
}

// NewCracker returns a cracker for cfg.
func NewCracker(cfg CrackConfig, logger *zap.Logger) *Cracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Wordlist) == 0 {
		cfg.Wordlist = DefaultWordlist
	}
	lab := make(map[string]string, len(cfg.LabPassphrases))
	for bssid, pass := range cfg.LabPassphrases {
		lab[strings.ToUpper(bssid)] = pass
	}
	return &Cracker{cfg: cfg, lab: lab, logger: logger}
}

// Supports reports why protocol cannot be cracked, or nil when it can.
func (c *Cracker) Supports(protocol network.Protocol) error {
	switch network.NormalizeProtocol(string(protocol)) {
	case network.ProtocolWEP, network.ProtocolWPA, network.ProtocolWPA2, network.ProtocolWPA2WPS:
		return nil
	case network.ProtocolOpen:
		return fmt.Errorf("%w: open networks need no cracking", sharedErrors.ErrOpenNetwork)
	case network.ProtocolWPA3:
		return fmt.Errorf("%w: WPA3 is not practically crackable", sharedErrors.ErrUnsupportedProtocol)
	default:
		return fmt.Errorf("%w: %s", sharedErrors.ErrUnsupportedProtocol, protocol)
	}
}

// Run drives job id to a terminal state. It returns once the job is finished.
func (c *Cracker) Run(ctx context.Context, id string, target job.Target, r Reporter) {
	logger := c.logger.With(zap.String("job_id", id), zap.String("bssid", target.BSSID))
	protocol := network.NormalizeProtocol(target.Protocol)

	if err := c.Supports(protocol); err != nil {
		c.finish(logger, r, id, job.StatusError, err.Error(), nil)
		return
	}

	var err error
	if protocol == network.ProtocolWEP {
		err = c.runWEP(ctx, id, target, r)
	} else {
		err = c.runWPA(ctx, id, target, r)
	}

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.finish(logger, r, id, job.StatusError, MessageCancelled, nil)
	case errors.Is(err, sharedErrors.ErrJobTerminal):
		logger.Debug("job finished elsewhere", zap.Error(err))
	default:
		c.finish(logger, r, id, job.StatusError, fmt.Sprintf("crack error: %v", err), nil)
	}
}

func (c *Cracker) runWEP(ctx context.Context, id string, target job.Target, r Reporter) error {
	if err := c.stage(ctx, r, id, 10, StepCollectingIV, "Collecting IV packets..."); err != nil {
		return err
	}
	if err := c.stage(ctx, r, id, 50, StepAnalyzingIV, "Analyzing IV packets..."); err != nil {
		return err
	}

	password, err := c.dictionary(ctx, r, id, target.BSSID, 50, 90, StepCracking, func(i, n int) string {
		return fmt.Sprintf("Analyzing IVs... (%d IVs)", (i+1)*5000/n)
	})
	if err != nil {
		return err
	}
	if password == "" {
		return r.Finish(id, job.StatusFailed, "Crack failed: not enough IVs", &job.Result{
			Success: false,
			Message: "Not enough IVs were collected.",
		})
	}
	return r.Finish(id, job.StatusCompleted, "Key recovered", &job.Result{
		Success:  true,
		Password: password,
		Method:   "WEP IV attack",
	})
}

func (c *Cracker) runWPA(ctx context.Context, id string, target job.Target, r Reporter) error {
	if err := c.stage(ctx, r, id, 10, StepCapturingHandshake, "Capturing handshake..."); err != nil {
		return err
	}
	if err := c.stage(ctx, r, id, 20, StepWaitingHandshake, "Waiting for a client to reconnect..."); err != nil {
		return err
	}
	if err := c.stage(ctx, r, id, 40, StepDictionaryAttack, "Handshake captured, starting dictionary attack..."); err != nil {
		return err
	}

	password, err := c.dictionary(ctx, r, id, target.BSSID, 40, 90, StepDictionaryAttack, func(i, n int) string {
		return fmt.Sprintf("Trying passphrases... (%d/%d)", i+1, n)
	})
	if err != nil {
		return err
	}
	if password == "" {
		return r.Finish(id, job.StatusFailed, "Crack failed: passphrase not in wordlist", &job.Result{
			Success: false,
			Message: "The passphrase was not found in the wordlist.",
		})
	}
	return r.Finish(id, job.StatusCompleted, "Passphrase recovered", &job.Result{
		Success:  true,
		Password: password,
		Method:   "Dictionary attack",
	})
}

func (c *Cracker) stage(ctx context.Context, r Reporter, id string, progress int, step, message string) error {
	if err := r.Advance(id, progress, step, message); err != nil {
		return err
	}
	return sleepCtx(ctx, c.cfg.StepDelay)
}

// dictionary walks the wordlist, reporting progress between from and to. It
// returns the matching candidate, or "" when none matched.
func (c *Cracker) dictionary(ctx context.Context, r Reporter, id, bssid string, from, to int, step string, message func(i, n int) string) (string, error) {
	secret, isLab := c.lab[strings.ToUpper(bssid)]
	words := c.cfg.Wordlist
	n := len(words)

	var limiter *rate.Limiter
	if c.cfg.AttemptRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.AttemptRate), c.cfg.AttemptRate)
	}

	last := -1
	for i, candidate := range words {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return "", err
			}
		} else if err := ctx.Err(); err != nil {
			return "", err
		}

		progress := from + (to-from)*(i+1)/n
		if progress != last {
			if err := r.Advance(id, progress, step, message(i, n)); err != nil {
				return "", err
			}
			last = progress
		}
		if isLab && candidate == secret {
			return candidate, nil
		}
	}
	return "", sleepCtx(ctx, c.cfg.StepDelay)
}

func (c *Cracker) finish(logger *zap.Logger, r Reporter, id string, status job.Status, message string, result *job.Result) {
	if err := r.Finish(id, status, message, result); err != nil {
		logger.Debug("finish ignored", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LoadWordlist reads one candidate per line, skipping blanks and # comments.
func LoadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wordlist: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: wordlist %s is empty", sharedErrors.ErrInvalidInput, path)
	}
	return words, nil
}
