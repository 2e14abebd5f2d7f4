package crash

import (
	"context"
	"time"

	"rankbot/internal/storage"
	logx "rankbot/pkg/logx"
)

// StoreReporter persists reports to the crash_reports table.
type StoreReporter struct {
	Store   *storage.Store
	Log     logx.Logger
	Timeout time.Duration
}

func (s StoreReporter) Report(ctx context.Context, r Report) {
	if s.Store == nil {
		return
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// Reports also arrive while the worker is stopping; still record them.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	err := s.Store.InsertCrash(wctx, storage.CrashRecord{
		At:      r.At,
		Level:   string(r.Level),
		Item:    r.Item,
		Variant: r.Variant,
		Kind:    r.Kind,
		Status:  r.Status,
		Body:    truncate(r.Body, maxBody),
		Error:   errText(r.Err),
	})
	if err != nil {
		s.Log.Warn("crash report not stored", logx.String("item", r.Item), logx.Err(err))
	}
}
