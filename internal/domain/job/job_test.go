package job

import (
	"errors"
	"testing"

	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

func TestNew(t *testing.T) {
	j := New("job_1", "crack", Target{SSID: "Lab", BSSID: "aa:bb:cc:dd:ee:ff", Protocol: "WPA2"})
	if j.Status != StatusRunning {
		t.Errorf("expected running, got %s", j.Status)
	}
	if j.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
	if j.Progress != 0 {
		t.Errorf("expected progress 0, got %d", j.Progress)
	}
}

func TestAdvance_ClampsAndNeverDecreases(t *testing.T) {
	j := New("job_1", "crack", Target{})

	tests := []struct {
		in   int
		want int
	}{
		{10, 10},
		{50, 50},
		{20, 50},
		{-5, 50},
		{250, 100},
	}
	for _, tt := range tests {
		if err := j.Advance(tt.in, "", ""); err != nil {
			t.Fatalf("Advance(%d) returned error: %v", tt.in, err)
		}
		if j.Progress != tt.want {
			t.Errorf("Advance(%d): expected progress %d, got %d", tt.in, tt.want, j.Progress)
		}
	}
}

func TestAdvance_KeepsStepWhenEmpty(t *testing.T) {
	j := New("job_1", "crack", Target{})
	_ = j.Advance(10, "collecting_iv", "Collecting IVs")
	_ = j.Advance(20, "", "")
	if j.Step != "collecting_iv" {
		t.Errorf("expected step to be kept, got %q", j.Step)
	}
	if j.Message != "Collecting IVs" {
		t.Errorf("expected message to be kept, got %q", j.Message)
	}
}

func TestFinish_TerminalIsFinal(t *testing.T) {
	j := New("job_1", "crack", Target{})
	if err := j.Finish(StatusCompleted, "done", &Result{Success: true, Password: "letmein", Method: "dictionary"}); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if j.Progress != 100 {
		t.Errorf("expected progress 100 on completion, got %d", j.Progress)
	}
	if j.FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}

	err := j.Advance(10, "again", "again")
	if !errors.Is(err, sharedErrors.ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal from Advance, got %v", err)
	}
	err = j.Finish(StatusError, "cancelled", nil)
	if !errors.Is(err, sharedErrors.ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal from Finish, got %v", err)
	}
	if j.Status != StatusCompleted || j.Message != "done" {
		t.Errorf("terminal job changed: %s %q", j.Status, j.Message)
	}
}

func TestFinish_FullProgressOnEveryTerminalStatus(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusFailed, StatusError} {
		j := New("job_1", "crack", Target{})
		_ = j.Advance(90, "dictionary_attack", "Trying passphrases")
		if err := j.Finish(status, "", nil); err != nil {
			t.Fatalf("Finish(%s) returned error: %v", status, err)
		}
		if j.Progress != 100 {
			t.Errorf("Finish(%s): expected progress 100, got %d", status, j.Progress)
		}
	}
}

func TestFinish_RejectsNonTerminalStatus(t *testing.T) {
	j := New("job_1", "crack", Target{})
	if err := j.Finish(StatusRunning, "", nil); !errors.Is(err, sharedErrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	j := New("job_1", "crack", Target{})
	_ = j.Finish(StatusFailed, "not found", &Result{Success: false, Message: "not found"})
	c := j.Clone()
	c.Result.Message = "changed"
	if j.Result.Message != "not found" {
		t.Error("clone shares result with original")
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	cases := map[Status]bool{
		StatusRunning:   false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusError:     true,
		StatusNotFound:  false,
	}
	for s, want := range cases {
		if got := s.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}
