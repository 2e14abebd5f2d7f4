package crash

import (
	"context"

	logx "rankbot/pkg/logx"
)

// LogReporter writes reports to the log at debug level; the pipeline already
// logs each failure at its own severity.
type LogReporter struct {
	Log logx.Logger
}

func (l LogReporter) Report(_ context.Context, r Report) {
	l.Log.Debug("crash report",
		logx.String("item", r.Item),
		logx.String("variant", r.Variant),
		logx.String("kind", r.Kind),
		logx.String("level", string(r.Level)),
		logx.Int("status", r.Status),
		logx.String("body", truncate(r.Body, 512)),
		logx.Err(r.Err),
	)
}
