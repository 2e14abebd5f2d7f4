package config

import (
	"reflect"

	logx "rankbot/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and safe
// structured attrs for logging (never tokens, keys or DSNs).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		oldCfg.Telegram.MainGroup != newCfg.Telegram.MainGroup ||
		oldCfg.Telegram.MainThread != newCfg.Telegram.MainThread ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		changed = append(changed, "telegram")
		attrs = append(attrs, logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token))
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Supervisor, newCfg.Supervisor) {
		changed = append(changed, "supervisor")
		attrs = append(attrs, logx.Duration("supervisor.poll_interval", newCfg.Supervisor.PollEvery()))
	}
	if !reflect.DeepEqual(oldCfg.WorkerList(), newCfg.WorkerList()) {
		changed = append(changed, "workers")
		attrs = append(attrs, logx.Int("workers.count", len(newCfg.WorkerList())))
	}
	if !reflect.DeepEqual(oldCfg.Stats, newCfg.Stats) {
		changed = append(changed, "stats")
		attrs = append(attrs,
			logx.Int("stats.blocks", len(newCfg.BlockList())),
			logx.Duration("stats.cooldown", newCfg.Stats.CooldownDuration()),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
	}
	if oldCfg.Crash != newCfg.Crash {
		changed = append(changed, "crash")
		attrs = append(attrs, logx.Bool("crash.sentry", newCfg.Crash.SentryDSN != ""))
	}
	if oldCfg.Digest != newCfg.Digest {
		changed = append(changed, "digest")
		attrs = append(attrs, logx.String("digest.schedule", newCfg.Digest.Schedule))
	}
	return changed, attrs
}
