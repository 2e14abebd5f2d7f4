// Package crash forwards update failures to crash-reporting sinks.
package crash

import (
	"context"
	"time"
)

type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Report is the structured context of one failed item update.
type Report struct {
	Item    string
	Variant string
	Kind    string
	Status  int    // HTTP status, 0 when not an HTTP failure
	Body    string // response body, possibly truncated
	Err     error
	Level   Level
	At      time.Time
}

// Reporter is fire-and-forget: implementations log their own failures.
type Reporter interface {
	Report(ctx context.Context, r Report)
}

// Func adapts a function to Reporter.
type Func func(ctx context.Context, r Report)

func (f Func) Report(ctx context.Context, r Report) { f(ctx, r) }

// Multi fans a report out to every non-nil reporter in order.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, r Report) {
	for _, rep := range m {
		if rep != nil {
			rep.Report(ctx, r)
		}
	}
}

// Nop discards reports.
type Nop struct{}

func (Nop) Report(context.Context, Report) {}

const maxBody = 4096

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
