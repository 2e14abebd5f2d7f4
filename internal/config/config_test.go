package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestParseYAMLAppliesDefaults(t *testing.T) {
	p := writeFile(t, "bot.yaml", `
telegram:
  token: abc
  main_group: -100123
logging:
  level: debug
  console: true
storage:
  path: ./data/rankbot.db
`)
	cfg, err := NewConfigManager(p).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Telegram.MainGroup != -100123 {
		t.Fatalf("MainGroup = %d", cfg.Telegram.MainGroup)
	}
	if got := cfg.Supervisor.PollEvery(); got != DefaultPollInterval {
		t.Fatalf("PollEvery() = %v, want %v", got, DefaultPollInterval)
	}
	if got := cfg.Stats.CooldownDuration(); got != 30*time.Minute {
		t.Fatalf("CooldownDuration() = %v, want 30m", got)
	}
	if !reflect.DeepEqual(cfg.WorkerList(), DefaultWorkers()) {
		t.Fatalf("WorkerList() = %+v", cfg.WorkerList())
	}
	if got := cfg.Supervisor.DebugExcludedRoles(); len(got) != 1 || got[0] != "stats" {
		t.Fatalf("DebugExcludedRoles() = %v", got)
	}
	if !cfg.Supervisor.SignalUnpairedOnStop() {
		t.Fatal("SignalUnpairedOnStop() should default to true")
	}
	blocks := cfg.BlockList()
	if len(blocks) != 5 || blocks[1].Variant != "dota" || blocks[1].DelayDuration() != 5*time.Second {
		t.Fatalf("unexpected default blocks: %+v", blocks)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, "bot.json", `{"storage":{"path":"x.db"},"bogus":1}`)
	if _, err := NewConfigManager(p).Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	p := writeFile(t, "bot.json", `{"storage":{"path":"x.db"}}{}`)
	if _, err := NewConfigManager(p).Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv(EnvTelegramToken, "from-env")
	p := writeFile(t, "bot.json", `{"telegram":{"token":"from-file"},"storage":{"path":"x.db"}}`)
	cfg, err := NewConfigManager(p).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("Token = %q, want from-env", cfg.Telegram.Token)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "ok",
			cfg:  Config{Storage: StorageConfig{Path: "x.db"}},
		},
		{
			name:    "missing storage",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "two paired workers",
			cfg: Config{
				Storage: StorageConfig{Path: "x.db"},
				Workers: []WorkerConfig{
					{Name: "a", Role: "telegram", Paired: true},
					{Name: "b", Role: "telegram", Paired: true},
				},
			},
			wantErr: true,
		},
		{
			name: "duplicate name",
			cfg: Config{
				Storage: StorageConfig{Path: "x.db"},
				Workers: []WorkerConfig{{Name: "a", Role: "stats"}, {Name: "a", Role: "digest"}},
			},
			wantErr: true,
		},
		{
			name: "disabled duplicate is ignored",
			cfg: Config{
				Storage: StorageConfig{Path: "x.db"},
				Workers: []WorkerConfig{{Name: "a", Role: "stats"}, {Name: "a", Role: "digest", Disabled: true}},
			},
		},
		{
			name: "negative delay",
			cfg: Config{
				Storage: StorageConfig{Path: "x.db"},
				Stats:   StatsConfig{Blocks: []BlockConfig{{Variant: "dota", Delay: "-1s"}}},
			},
			wantErr: true,
		},
		{
			name: "bad poll interval",
			cfg: Config{
				Storage:    StorageConfig{Path: "x.db"},
				Supervisor: SupervisorConfig{PollInterval: "soon"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Logging: LoggingConfig{Level: "info"}, Storage: StorageConfig{Path: "x.db"}}
	newCfg := &Config{Logging: LoggingConfig{Level: "debug"}, Storage: StorageConfig{Path: "x.db"}}
	changed, _ := SummarizeConfigChange(oldCfg, newCfg)
	if !reflect.DeepEqual(changed, []string{"logging"}) {
		t.Fatalf("changed = %v, want [logging]", changed)
	}
}
