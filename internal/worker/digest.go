package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rankbot/internal/storage"
	kit "rankbot/internal/transport"
	logx "rankbot/pkg/logx"
)

const defaultDigestSchedule = "0 21 * * *"

var digestParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// runDigest posts the leaderboard to the main group on a cron schedule.
func runDigest(ctx context.Context, env Env) error {
	cfg := env.Config
	log := env.Log.With(logx.String("comp", "digest"))

	loc := time.Local
	if tz := cfg.Digest.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("digest.timezone: %w", err)
		}
		loc = l
	}
	spec := cfg.Digest.Schedule
	if spec == "" {
		spec = defaultDigestSchedule
	}
	sched, err := digestParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("digest.schedule %q: %w", spec, err)
	}

	store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: cfg.Storage.BusyTimeoutDuration()}, log)
	if err != nil {
		return err
	}
	defer store.Close()
	notif := newNotifier(cfg, log)

	c := cron.New(cron.WithParser(digestParser), cron.WithLocation(loc))
	c.Schedule(sched, cron.FuncJob(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("digest job panicked", logx.Any("panic", r))
			}
		}()
		jctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		text, err := Leaderboard(jctx, store)
		if err != nil {
			log.Error("digest build failed", logx.Err(err))
			return
		}
		notif.Notify(jctx, "🏆 <b>Daily ranks</b>\n\n"+text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	}))
	c.Start()
	log.Info("digest scheduled", logx.String("schedule", spec), logx.String("tz", loc.String()), logx.String("next", sched.Next(time.Now().In(loc)).Format(time.RFC3339)))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
