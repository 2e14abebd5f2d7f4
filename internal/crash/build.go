package crash

import (
	"time"

	"rankbot/internal/config"
	"rankbot/internal/storage"
	logx "rankbot/pkg/logx"
)

// FromConfig assembles the reporters enabled in cfg. The log reporter is
// always present. The returned flush func must be called before exit.
func FromConfig(cfg config.CrashConfig, store *storage.Store, log logx.Logger) (Reporter, func(), error) {
	log = log.With(logx.String("comp", "crash"))
	reps := Multi{LogReporter{Log: log}}
	flush := func() {}

	if cfg.SentryDSN != "" {
		s, err := NewSentry(SentryOptions{DSN: cfg.SentryDSN, Environment: cfg.Environment, Release: cfg.Release}, log)
		if err != nil {
			return nil, flush, err
		}
		reps = append(reps, s)
		flush = func() { s.Flush(2 * time.Second) }
		log.Info("sentry crash reporting enabled", logx.String("environment", cfg.Environment))
	}
	if cfg.Store && store != nil {
		reps = append(reps, StoreReporter{Store: store, Log: log})
	}
	return reps, flush, nil
}
