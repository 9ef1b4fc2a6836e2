package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"xau-data/internal/faults"
	"xau-data/internal/model"
	"xau-data/internal/snapshot"
)

// ExportTrigger asks an out-of-process exporter (a trading terminal driven by
// desktop automation) to produce the export file, and returns once the file
// exists or the wait budget is spent. There is no real completion signal from
// the terminal; implementations poll.
type ExportTrigger interface {
	Trigger(ctx context.Context) error
}

// CommandTrigger runs a configured command, then polls Path at a fixed
// interval until the file appears or Timeout lapses.
type CommandTrigger struct {
	Command      string // optional; empty means the export is produced externally
	Args         []string
	Path         string
	PollInterval time.Duration
	Timeout      time.Duration
}

func (t *CommandTrigger) Trigger(ctx context.Context) error {
	if t.Command != "" {
		if err := exec.CommandContext(ctx, t.Command, t.Args...).Run(); err != nil {
			return fmt.Errorf("export command %s: %w", t.Command, err)
		}
	}

	interval := t.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(t.Path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return faults.Preconditionf("export file %s did not appear within %s", t.Path, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// ExportFetcher acquires bars from a terminal export file: trigger the
// export, parse the file with the snapshot reader, keep rows strictly after
// the cutoff.
type ExportFetcher struct {
	trigger ExportTrigger
	path    string
}

func NewExportFetcher(trigger ExportTrigger, path string) *ExportFetcher {
	return &ExportFetcher{trigger: trigger, path: path}
}

func (f *ExportFetcher) Name() string { return "export" }

func (f *ExportFetcher) Close() error { return nil }

func (f *ExportFetcher) FetchSince(ctx context.Context, cutoff time.Time) ([]model.Bar, error) {
	if f.trigger != nil {
		if err := f.trigger.Trigger(ctx); err != nil {
			return nil, err
		}
	}
	bars, err := snapshot.Read(f.path)
	if err != nil {
		return nil, err
	}
	if cutoff.IsZero() {
		return bars, nil
	}
	fresh := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Time.After(cutoff) {
			fresh = append(fresh, b)
		}
	}
	return fresh, nil
}
