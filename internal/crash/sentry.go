package crash

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	logx "rankbot/pkg/logx"
)

// SentryOptions configures NewSentry.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string
	// BeforeSend, when set, sees every event before it leaves the process.
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// SentryReporter sends reports to Sentry through its own hub, never the
// global one.
type SentryReporter struct {
	hub *sentry.Hub
	log logx.Logger
}

func NewSentry(opts SentryOptions, log logx.Logger) (*SentryReporter, error) {
	if opts.DSN == "" {
		return nil, errors.New("sentry dsn is required")
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
		BeforeSend:  opts.BeforeSend,
	})
	if err != nil {
		return nil, err
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope()), log: log}, nil
}

func (s *SentryReporter) Report(_ context.Context, r Report) {
	err := r.Err
	if err == nil {
		err = errors.New(r.Kind)
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		if r.Level == LevelWarning {
			scope.SetLevel(sentry.LevelWarning)
		} else {
			scope.SetLevel(sentry.LevelError)
		}
		scope.SetTag("variant", r.Variant)
		scope.SetTag("kind", r.Kind)
		scope.SetContext("item", sentry.Context{"id": r.Item})
		if r.Status != 0 {
			scope.SetContext("response", sentry.Context{
				"code": r.Status,
				"text": truncate(r.Body, maxBody),
			})
		}
		if id := s.hub.CaptureException(err); id == nil {
			s.log.Debug("sentry dropped event", logx.String("item", r.Item))
		}
	})
}

// Flush waits for buffered events to be sent.
func (s *SentryReporter) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
