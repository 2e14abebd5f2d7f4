package worker

import (
	"context"
	"errors"
	"fmt"

	"rankbot/internal/config"
	"rankbot/internal/crash"
	"rankbot/internal/metrics"
	"rankbot/internal/notifier"
	"rankbot/internal/stats"
	"rankbot/internal/stats/sources"
	"rankbot/internal/storage"
	kit "rankbot/internal/transport"
	"rankbot/internal/transport/telegram/adapter"
	logx "rankbot/pkg/logx"
)

// runStats is the update pipeline worker.
func runStats(ctx context.Context, env Env) error {
	cfg := env.Config
	log := env.Log

	store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: cfg.Storage.BusyTimeoutDuration()}, log)
	if err != nil {
		return err
	}
	defer store.Close()

	reporter, flush, err := crash.FromConfig(cfg.Crash, store, log)
	if err != nil {
		return err
	}
	defer flush()

	notif := newNotifier(cfg, log)
	blocks, err := BuildBlocks(cfg, sources.NewClient(cfg.Stats.Sources, cfg.Stats.HTTPTimeoutDuration()), notif, log)
	if err != nil {
		return err
	}

	if addr := cfg.Stats.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, log); err != nil {
				log.Error("metrics endpoint failed", logx.Err(err))
			}
		}()
	}

	p := stats.New(store, log, stats.Options{
		Blocks:   blocks,
		Cooldown: cfg.Stats.CooldownDuration(),
		Reporter: reporter,
	})
	err = p.RunForever(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newNotifier sends through a non-polling Telegram adapter; without a token
// notifications are only logged.
func newNotifier(cfg *config.Config, log logx.Logger) *notifier.Service {
	ncfg := notifier.Config{
		Target:     kit.ChatTarget{ChatID: cfg.Telegram.MainGroup, ThreadID: cfg.Telegram.MainThread},
		RatePerSec: cfg.Stats.NotifyRatePerSec,
		RetryMax:   2,
	}
	if cfg.Telegram.Token == "" || cfg.Telegram.MainGroup == 0 {
		log.Warn("telegram not configured; rank notifications disabled")
		return notifier.New(ncfg, nil, log)
	}
	ad, err := adapter.New(adapter.Config{Token: cfg.Telegram.Token, Offline: true}, log)
	if err != nil {
		log.Warn("telegram adapter unavailable; rank notifications disabled", logx.Err(err))
		return notifier.New(ncfg, nil, log)
	}
	return notifier.New(ncfg, ad, log)
}

// BuildBlocks turns the configured pass into pipeline blocks.
func BuildBlocks(cfg *config.Config, c *sources.Client, notif *notifier.Service, log logx.Logger) ([]stats.Block, error) {
	var out []stats.Block
	for _, bc := range cfg.BlockList() {
		load, err := sources.Loader(bc.Variant, c)
		if err != nil {
			return nil, err
		}
		b := stats.Block{Variant: bc.Variant, Delay: bc.DelayDuration(), Load: load}
		if bc.Notify {
			switch bc.Variant {
			case sources.VariantDota:
				b.OnChange = notif.DotaRank
			case sources.VariantLeague:
				b.OnChange = notif.LeagueRank
			default:
				return nil, fmt.Errorf("stats.blocks: variant %q has no notification", bc.Variant)
			}
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		log.Warn("no stats blocks configured")
	}
	return out, nil
}
