package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, message{subject, data})
	return nil
}

func (c *fakeConn) messages() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message(nil), c.msgs...)
}

type counter struct{ n int }

func (c *counter) IncrementEventPublishErrors() { c.n++ }

func TestPublishJob(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "", zaptest.NewLogger(t), nil)

	j := job.New("job_1", "crack", job.Target{SSID: "Lab", BSSID: "aa:bb:cc:dd:ee:ff", Protocol: "WPA2"})
	require.NoError(t, p.PublishJob(j.Clone()))

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "wisafe.jobs.running", msgs[0].subject)

	var event JobEvent
	require.NoError(t, json.Unmarshal(msgs[0].data, &event))
	assert.Equal(t, "job_running", event.Type)
	assert.Equal(t, "job_1", event.Job.ID)
}

func TestPublishJob_CountsErrors(t *testing.T) {
	c := &counter{}
	p := NewPublisher(&fakeConn{err: errors.New("no servers")}, "lab.jobs", zaptest.NewLogger(t), c)

	err := p.PublishJob(job.Job{ID: "job_1", Status: job.StatusFailed})
	assert.Error(t, err)
	assert.Equal(t, 1, c.n)
}

func TestRun_ForwardsUntilClosed(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "lab.jobs", zaptest.NewLogger(t), nil)

	updates := make(chan job.Job, 2)
	updates <- job.Job{ID: "job_1", Status: job.StatusRunning}
	updates <- job.Job{ID: "job_1", Status: job.StatusCompleted}
	close(updates)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background(), updates)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after channel closed")
	}

	msgs := conn.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "lab.jobs.completed", msgs[1].subject)
}
