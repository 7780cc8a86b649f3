package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish")
		return Outcome{}
	}
}

func TestPoller_StopsOnTerminal(t *testing.T) {
	var calls atomic.Int32
	fetch := func(context.Context) (job.Progress, *job.Result, error) {
		n := calls.Add(1)
		switch n {
		case 1:
			return job.Progress{Status: job.StatusRunning, Progress: 10}, nil, nil
		case 2:
			return job.Progress{}, nil, ErrNoProgress
		case 3:
			return job.Progress{}, nil, errors.New("connection reset")
		default:
			return job.Progress{Status: job.StatusCompleted, Progress: 100}, &job.Result{Success: true, Password: "letmein"}, nil
		}
	}

	var updates []int
	p := NewPoller(5*time.Millisecond, zaptest.NewLogger(t))
	o := waitOutcome(t, p.Start(context.Background(), fetch, func(pr job.Progress, _ *job.Result) {
		updates = append(updates, pr.Progress)
	}))

	require.NoError(t, o.Err)
	assert.Equal(t, job.StatusCompleted, o.Progress.Status)
	assert.Equal(t, "letmein", o.Result.Password)
	assert.Equal(t, []int{10, 100}, updates, "transient errors skip the update")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(4), calls.Load(), "no polls after a terminal status")
}

func TestPoller_PollsImmediately(t *testing.T) {
	fetch := func(context.Context) (job.Progress, *job.Result, error) {
		return job.Progress{Status: job.StatusFailed}, nil, nil
	}
	p := NewPoller(time.Hour, nil)
	start := time.Now()
	o := waitOutcome(t, p.Start(context.Background(), fetch, nil))
	assert.Equal(t, job.StatusFailed, o.Progress.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPoller_NewStartCancelsPrevious(t *testing.T) {
	running := func(context.Context) (job.Progress, *job.Result, error) {
		return job.Progress{Status: job.StatusRunning}, nil, nil
	}
	p := NewPoller(5*time.Millisecond, nil)
	first := p.Start(context.Background(), running, nil)
	second := p.Start(context.Background(), running, nil)

	o := waitOutcome(t, first)
	assert.ErrorIs(t, o.Err, context.Canceled)

	p.Stop()
	o = waitOutcome(t, second)
	assert.ErrorIs(t, o.Err, context.Canceled)
}

func TestPoller_FatalErrors(t *testing.T) {
	for _, err := range []error{
		ErrLoginRequired,
		&APIError{Status: http.StatusNotFound, Message: "job not found"},
	} {
		fetch := func(context.Context) (job.Progress, *job.Result, error) { return job.Progress{}, nil, err }
		o := waitOutcome(t, NewPoller(time.Millisecond, nil).Start(context.Background(), fetch, nil))
		assert.ErrorIs(t, o.Err, err)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrLoginRequired, "Your session has expired. Please log in again."},
		{fmt.Errorf("scan: %w", context.DeadlineExceeded), "The request timed out. The scan may take longer than expected, please try again."},
		{fmt.Errorf("dial: %w", syscall.ECONNREFUSED), "Cannot reach the server. Check that it is running and the address is correct."},
		{&APIError{Status: 400, Message: "protocol is required"}, "protocol is required"},
		{&APIError{Status: 500, Message: "internal server error"}, "The server hit an internal error. Please try again later."},
		{timeoutErr{}, "The request timed out. Please check the network connection."},
		{errors.New("other"), "other"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Describe(tc.err), "Describe(%v)", tc.err)
	}
}
