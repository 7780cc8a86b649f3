package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
)

const progressBarWidth = 30

// progressPrinter redraws a single status line for a running job.
type progressPrinter struct {
	out      io.Writer
	name     string
	mu       sync.Mutex
	last     job.Progress
	drawn    bool
	stopOnce sync.Once
}

func newProgressPrinter(out io.Writer, name string) *progressPrinter {
	return &progressPrinter{out: out, name: name}
}

// Update records p and redraws the line.
func (p *progressPrinter) Update(prog job.Progress, _ *job.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = prog
	p.drawn = true
	fmt.Fprint(p.out, p.line())
}

// Stop finishes the line so later output starts on a fresh one.
func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.drawn {
			fmt.Fprintln(p.out)
		}
	})
}

func (p *progressPrinter) line() string {
	pct := p.last.Progress
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * progressBarWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)

	msg := p.last.Message
	if msg == "" {
		msg = p.last.Step
	}
	line := fmt.Sprintf("\r[%s] [%s] %3d%% %s", p.name, bar, pct, msg)
	// Pad so a shorter message fully overwrites the previous one.
	if n := 100 - len(line); n > 0 {
		line += strings.Repeat(" ", n)
	}
	return line
}
