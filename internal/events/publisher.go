package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix prefixes every job event subject.
const DefaultSubjectPrefix = "wisafe.jobs"

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// ErrorCounter counts failed publishes.
type ErrorCounter interface {
	IncrementEventPublishErrors()
}

// JobEvent is the payload published for each job update
type JobEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Job       job.Job   `json:"job"`
}

// Publisher forwards job updates to NATS subjects of the form
// <prefix>.<status>.
type Publisher struct {
	conn   Conn
	prefix string
	logger *zap.Logger
	failed ErrorCounter
}

// Connect dials the NATS server at url.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("wisafe"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return nc, nil
}

// NewPublisher returns a publisher writing to conn. counter may be nil.
func NewPublisher(conn Conn, prefix string, logger *zap.Logger, counter ErrorCounter) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger, failed: counter}
}

// Subject returns the subject a job update is published on.
func (p *Publisher) Subject(j job.Job) string {
	return p.prefix + "." + string(j.Status)
}

// PublishJob publishes a single job update.
func (p *Publisher) PublishJob(j job.Job) error {
	event := JobEvent{
		Type:      "job_" + string(j.Status),
		Timestamp: time.Now().UTC(),
		Job:       j,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}
	subject := p.Subject(j)
	if err := p.conn.Publish(subject, data); err != nil {
		if p.failed != nil {
			p.failed.IncrementEventPublishErrors()
		}
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	p.logger.Debug("published job event",
		zap.String("subject", subject),
		zap.String("job_id", j.ID),
	)
	return nil
}

// Run publishes every update received until ctx is done or updates closes.
func (p *Publisher) Run(ctx context.Context, updates <-chan job.Job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-updates:
			if !ok {
				return
			}
			if err := p.PublishJob(j); err != nil {
				p.logger.Error("job event not published",
					zap.String("job_id", j.ID),
					zap.Error(err),
				)
			}
		}
	}
}
