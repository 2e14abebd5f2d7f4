package config

type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Logging    LoggingConfig    `json:"logging"`
	Supervisor SupervisorConfig `json:"supervisor"`

	// Workers lists the supervised worker processes in start/join order.
	// If omitted, DefaultWorkers() is used.
	Workers []WorkerConfig `json:"workers,omitempty"`

	Stats   StatsConfig   `json:"stats"`
	Storage StorageConfig `json:"storage"`
	Crash   CrashConfig   `json:"crash,omitempty"`
	Digest  DigestConfig  `json:"digest,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// MainGroup receives rank change notifications and digests.
	MainGroup  int64 `json:"main_group"`
	MainThread int   `json:"main_thread,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SupervisorConfig controls the process supervisor.
//
// All durations are Go duration strings.
//
// Defaults (when fields are omitted/zero):
//   - poll_interval: "10s"
//   - stop_timeout: "0s" (join blocks until every worker exits)
//   - debug_excluded: ["stats"]
//   - signal_unpaired: true
type SupervisorConfig struct {
	PollInterval string `json:"poll_interval,omitempty"`
	StopTimeout  string `json:"stop_timeout,omitempty"`

	// DebugExcluded lists roles that are never spawned when running with -debug.
	DebugExcluded []string `json:"debug_excluded,omitempty"`

	// SignalUnpaired sends SIGTERM to workers without a stop channel at shutdown.
	// Pointer so an explicit false can be told apart from "omitted".
	SignalUnpaired *bool `json:"signal_unpaired,omitempty"`

	// MetricsAddr serves Prometheus metrics from the supervisor process when set.
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// WorkerConfig describes one supervised worker process.
type WorkerConfig struct {
	Name string   `json:"name"`
	Role string   `json:"role"`
	Args []string `json:"args,omitempty"`
	// Paired workers receive the worker side of the stop channel.
	// At most one worker may be paired.
	Paired   bool `json:"paired,omitempty"`
	Disabled bool `json:"disabled,omitempty"`
}

// StatsConfig controls the update pipeline worker.
//
// Defaults reproduce the classic pass:
// steam(0s) -> dota(5s, notify) -> league(5s, notify) -> osu(5s) -> overwatch(5s), cooldown 30m.
type StatsConfig struct {
	Cooldown    string        `json:"cooldown,omitempty"`
	Blocks      []BlockConfig `json:"blocks,omitempty"`
	HTTPTimeout string        `json:"http_timeout,omitempty"`
	MetricsAddr string        `json:"metrics_addr,omitempty"`

	// NotifyRatePerSec bounds outgoing change notifications.
	NotifyRatePerSec int `json:"notify_rate_per_sec,omitempty"`

	Sources SourcesConfig `json:"sources"`
}

type BlockConfig struct {
	Variant string `json:"variant"`
	Delay   string `json:"delay,omitempty"`
	Notify  bool   `json:"notify,omitempty"`
}

// SourcesConfig holds upstream API endpoints and keys. Empty base URLs use the public defaults.
type SourcesConfig struct {
	SteamAPIKey      string `json:"steam_api_key,omitempty"`
	SteamBaseURL     string `json:"steam_base_url,omitempty"`
	OpenDotaBaseURL  string `json:"opendota_base_url,omitempty"`
	RiotAPIKey       string `json:"riot_api_key,omitempty"`
	RiotBaseURL      string `json:"riot_base_url,omitempty"`
	OsuAPIKey        string `json:"osu_api_key,omitempty"`
	OsuBaseURL       string `json:"osu_base_url,omitempty"`
	OverwatchBaseURL string `json:"overwatch_base_url,omitempty"`
}

// StorageConfig controls the sqlite database holding tracked entities.
//
// Example:
//
//	"storage": { "path": "./data/rankbot.db", "busy_timeout": "5s" }
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// CrashConfig selects crash reporting sinks. With nothing set, failures are only logged.
type CrashConfig struct {
	SentryDSN   string `json:"sentry_dsn,omitempty"`
	Environment string `json:"environment,omitempty"`
	Release     string `json:"release,omitempty"`
	// Store also records reports in the crash_reports table.
	Store bool `json:"store,omitempty"`
}

// DigestConfig controls the optional leaderboard digest worker.
type DigestConfig struct {
	// Schedule is a robfig/cron expression, e.g. "0 21 * * *".
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}
