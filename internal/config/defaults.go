package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	logx "rankbot/pkg/logx"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultCooldown     = 30 * time.Minute
	DefaultHTTPTimeout  = 15 * time.Second
	DefaultBusyTimeout  = 5 * time.Second
)

// Env overrides for secrets that should not live in the config file.
const (
	EnvTelegramToken = "RANKBOT_TELEGRAM_TOKEN"
	EnvSentryDSN     = "RANKBOT_SENTRY_DSN"
)

// DefaultWorkers is the worker table used when the config omits "workers".
func DefaultWorkers() []WorkerConfig {
	return []WorkerConfig{
		{Name: "telegram", Role: "telegram", Paired: true},
		{Name: "stats", Role: "stats"},
	}
}

// DefaultBlocks is the pass used when the config omits "stats.blocks".
func DefaultBlocks() []BlockConfig {
	return []BlockConfig{
		{Variant: "steam", Delay: "0s"},
		{Variant: "dota", Delay: "5s", Notify: true},
		{Variant: "league", Delay: "5s", Notify: true},
		{Variant: "osu", Delay: "5s"},
		{Variant: "overwatch", Delay: "5s"},
	}
}

// ApplyEnv overlays secrets from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSentryDSN)); v != "" {
		c.Crash.SentryDSN = v
	}
}

// WorkerList returns the enabled workers in configured order.
func (c *Config) WorkerList() []WorkerConfig {
	src := c.Workers
	if len(src) == 0 {
		src = DefaultWorkers()
	}
	out := make([]WorkerConfig, 0, len(src))
	for _, w := range src {
		if w.Disabled {
			continue
		}
		out = append(out, w)
	}
	return out
}

// BlockList returns the configured blocks or the defaults.
func (c *Config) BlockList() []BlockConfig {
	if len(c.Stats.Blocks) == 0 {
		return DefaultBlocks()
	}
	return c.Stats.Blocks
}

// DebugExcludedRoles returns the roles skipped under -debug.
func (s SupervisorConfig) DebugExcludedRoles() []string {
	if s.DebugExcluded == nil {
		return []string{"stats"}
	}
	return s.DebugExcluded
}

func (s SupervisorConfig) SignalUnpairedOnStop() bool {
	return s.SignalUnpaired == nil || *s.SignalUnpaired
}

func (s SupervisorConfig) PollEvery() time.Duration {
	d, _ := ParseDurationOrDefault("supervisor.poll_interval", s.PollInterval, DefaultPollInterval)
	return d
}

func (s SupervisorConfig) StopGrace() time.Duration {
	d, _ := ParseDurationField("supervisor.stop_timeout", s.StopTimeout)
	return d
}

func (s StatsConfig) CooldownDuration() time.Duration {
	d, _ := ParseDurationOrDefault("stats.cooldown", s.Cooldown, DefaultCooldown)
	return d
}

func (s StatsConfig) HTTPTimeoutDuration() time.Duration {
	d, _ := ParseDurationOrDefault("stats.http_timeout", s.HTTPTimeout, DefaultHTTPTimeout)
	return d
}

func (b BlockConfig) DelayDuration() time.Duration {
	d, _ := ParseDurationField("stats.blocks.delay", b.Delay)
	return d
}

func (s StorageConfig) BusyTimeoutDuration() time.Duration {
	d, _ := ParseDurationOrDefault("storage.busy_timeout", s.BusyTimeout, DefaultBusyTimeout)
	return d
}

func (t TelegramConfig) PollTimeoutDuration() time.Duration {
	d, _ := ParseDurationOrDefault("telegram.poll_timeout", t.PollTimeout, 10*time.Second)
	return d
}

// Validate checks structural constraints and every duration field.
// Role names are checked by the worker registry, not here.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	durations := []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"supervisor.poll_interval", c.Supervisor.PollInterval},
		{"supervisor.stop_timeout", c.Supervisor.StopTimeout},
		{"stats.cooldown", c.Stats.Cooldown},
		{"stats.http_timeout", c.Stats.HTTPTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	}
	for i, b := range c.Stats.Blocks {
		durations = append(durations, struct{ path, raw string }{fmt.Sprintf("stats.blocks[%d].delay", i), b.Delay})
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	seen := map[string]bool{}
	paired := 0
	for i, w := range c.WorkerList() {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			return fmt.Errorf("workers[%d]: name is required", i)
		}
		if strings.TrimSpace(w.Role) == "" {
			return fmt.Errorf("workers[%d] (%s): role is required", i, name)
		}
		if seen[name] {
			return fmt.Errorf("workers[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if w.Paired {
			paired++
		}
	}
	if paired > 1 {
		return fmt.Errorf("workers: at most one worker may be paired, got %d", paired)
	}

	for i, b := range c.Stats.Blocks {
		if strings.TrimSpace(b.Variant) == "" {
			return fmt.Errorf("stats.blocks[%d]: variant is required", i)
		}
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	return nil
}

// Logx maps the logging section onto the logx service config.
func (l LoggingConfig) Logx() logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ChatID:     l.Telegram.ChatID,
			ThreadID:   l.Telegram.ThreadID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}
