package worker

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"rankbot/internal/config"
	"rankbot/internal/notifier"
	"rankbot/internal/stats/sources"
	"rankbot/internal/storage"
	logx "rankbot/pkg/logx"
)

func TestRunUnknownWorker(t *testing.T) {
	t.Parallel()
	err := Run(context.Background(), "nope", &config.Config{}, nil)
	if !errors.Is(err, ErrUnknownWorker) {
		t.Fatalf("Run() error = %v, want ErrUnknownWorker", err)
	}
}

func TestRunUnknownRole(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Workers: []config.WorkerConfig{{Name: "x", Role: "mystery"}}}
	err := Run(context.Background(), "x", cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "mystery") {
		t.Fatalf("Run() error = %v, want unknown role", err)
	}
}

func TestDefaultWorkersHaveRoles(t *testing.T) {
	t.Parallel()
	for _, w := range config.DefaultWorkers() {
		if _, ok := Lookup(w.Role); !ok {
			t.Fatalf("default worker %q has no role %q", w.Name, w.Role)
		}
	}
	if got := Roles(); !slices.IsSorted(got) || len(got) != 3 {
		t.Fatalf("Roles() = %v", got)
	}
}

func TestBuildBlocks(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	c := sources.NewClient(config.SourcesConfig{}, time.Second)
	n := notifier.New(notifier.Config{}, nil, logx.Nop())

	blocks, err := BuildBlocks(cfg, c, n, logx.Nop())
	if err != nil {
		t.Fatalf("BuildBlocks() error: %v", err)
	}
	if len(blocks) != 5 {
		t.Fatalf("len(blocks) = %d, want 5", len(blocks))
	}
	for _, b := range blocks {
		wantNotify := b.Variant == sources.VariantDota || b.Variant == sources.VariantLeague
		if (b.OnChange != nil) != wantNotify {
			t.Fatalf("block %s: OnChange set = %v, want %v", b.Variant, b.OnChange != nil, wantNotify)
		}
		if b.Load == nil {
			t.Fatalf("block %s has no loader", b.Variant)
		}
	}
	if blocks[0].Delay != 0 || blocks[1].Delay != 5*time.Second {
		t.Fatalf("delays = %v, %v", blocks[0].Delay, blocks[1].Delay)
	}
}

func TestBuildBlocksRejects(t *testing.T) {
	t.Parallel()
	c := sources.NewClient(config.SourcesConfig{}, time.Second)
	n := notifier.New(notifier.Config{}, nil, logx.Nop())
	tests := []struct {
		name  string
		block config.BlockConfig
	}{
		{"unknown variant", config.BlockConfig{Variant: "chess"}},
		{"notify without message", config.BlockConfig{Variant: "osu", Notify: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Stats: config.StatsConfig{Blocks: []config.BlockConfig{tt.block}}}
			if _, err := BuildBlocks(cfg, c, n, logx.Nop()); err == nil {
				t.Fatal("BuildBlocks() should fail")
			}
		})
	}
}

func TestDigestSchedules(t *testing.T) {
	t.Parallel()
	tests := []struct {
		spec string
		ok   bool
	}{
		{defaultDigestSchedule, true},
		{"@weekly", true},
		{"30 8 * * 1-5", true},
		{"* * * * * *", false},
		{"tomorrow", false},
	}
	for _, tt := range tests {
		_, err := digestParser.Parse(tt.spec)
		if (err == nil) != tt.ok {
			t.Fatalf("Parse(%q) error = %v, want ok=%v", tt.spec, err, tt.ok)
		}
	}
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "rankbot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	text, err := Leaderboard(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	if text != emptyLeaderboard {
		t.Fatalf("Leaderboard() on empty store = %q", text)
	}

	low, _ := st.AddPlayer(ctx, "low", 0)
	high, _ := st.AddPlayer(ctx, "high<3", 0)
	sess := st.Begin()
	sess.SaveOsu(storage.OsuProfile{OsuID: "1", PlayerID: low, PP: 100})
	sess.SaveOsu(storage.OsuProfile{OsuID: "2", PlayerID: high, PP: 5000})
	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	text, err = Leaderboard(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "<b>osu!</b>\n") {
		t.Fatalf("Leaderboard() = %q", text)
	}
	hi, lo := strings.Index(text, "high&lt;3: 5000pp"), strings.Index(text, "low: 100pp")
	if hi < 0 || lo < 0 || hi > lo {
		t.Fatalf("rows missing or out of order: %q", text)
	}
	if strings.Contains(text, "Dota 2") {
		t.Fatalf("empty sections should be omitted: %q", text)
	}
}
