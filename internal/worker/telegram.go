package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rankbot/internal/storage"
	"rankbot/internal/stats/sources"
	kit "rankbot/internal/transport"
	"rankbot/internal/transport/telegram/adapter"
	"rankbot/internal/transport/telegram/router"
	logx "rankbot/pkg/logx"
)

// runTelegram is the chat bot worker: it polls Telegram and answers
// commands. It is the worker paired with the stop channel.
func runTelegram(ctx context.Context, env Env) error {
	cfg := env.Config
	log := env.Log.With(logx.String("comp", "telegram"))

	ad, err := adapter.New(adapter.Config{Token: cfg.Telegram.Token, PollTimeout: cfg.Telegram.PollTimeoutDuration()}, log)
	if err != nil {
		return err
	}
	if env.Logs != nil {
		env.Logs.SetSender(ad)
	}

	store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: cfg.Storage.BusyTimeoutDuration()}, log)
	if err != nil {
		return err
	}
	defer store.Close()

	r := router.New(ad, log)
	registerCommands(r, store)

	updates := make(chan kit.Update, 64)
	if err := ad.Start(ctx, updates); err != nil {
		return err
	}
	r.Run(ctx, updates)

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return ad.Stop(sctx)
}

func registerCommands(r *router.Router, store *storage.Store) {
	r.Register(router.Command{
		Name:        "ping",
		Description: "check the bot is alive",
		Handle: func(ctx context.Context, req *router.Request) error {
			return req.Reply(ctx, "pong", nil)
		},
	})
	r.Register(router.Command{
		Name:        "ranks",
		Aliases:     []string{"leaderboard"},
		Description: "current ranks of every tracked player",
		Handle: func(ctx context.Context, req *router.Request) error {
			text, err := Leaderboard(ctx, store)
			if err != nil {
				return err
			}
			return req.Reply(ctx, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
		},
	})
	r.Register(router.Command{
		Name:        "crashes",
		Description: "latest update failures",
		Handle: func(ctx context.Context, req *router.Request) error {
			rs, err := store.RecentCrashes(ctx, 10)
			if err != nil {
				return err
			}
			if len(rs) == 0 {
				return req.Reply(ctx, "No update failures recorded.", nil)
			}
			var b strings.Builder
			for _, c := range rs {
				fmt.Fprintf(&b, "%s %s %s %s", c.At.Format("01-02 15:04"), c.Level, c.Item, c.Kind)
				if c.Status != 0 {
					fmt.Fprintf(&b, " (%d)", c.Status)
				}
				b.WriteByte('\n')
			}
			return req.Reply(ctx, strings.TrimRight(b.String(), "\n"), nil)
		},
	})
}

const emptyLeaderboard = "Nothing tracked yet."

// Leaderboard renders every tracked profile, best first within each game.
func Leaderboard(ctx context.Context, store *storage.Store) (string, error) {
	var b strings.Builder

	dota, err := store.DotaProfiles(ctx)
	if err != nil {
		return "", err
	}
	sortDesc(dota, func(d storage.DotaProfile) float64 { return float64(d.RankTier) })
	section(&b, "Dota 2", dota, func(d storage.DotaProfile) string {
		return d.Username + ": " + sources.DotaRankLabel(d.RankTier)
	})

	league, err := store.LeagueProfiles(ctx)
	if err != nil {
		return "", err
	}
	section(&b, "League of Legends", league, func(l storage.LeagueProfile) string {
		return fmt.Sprintf("%s: solo %s, flex %s", l.Username, l.Solo, l.Flex)
	})

	osu, err := store.OsuProfiles(ctx)
	if err != nil {
		return "", err
	}
	sortDesc(osu, func(o storage.OsuProfile) float64 { return o.PP })
	section(&b, "osu!", osu, func(o storage.OsuProfile) string {
		return fmt.Sprintf("%s: %.0fpp", o.Username, o.PP)
	})

	ow, err := store.OverwatchProfiles(ctx)
	if err != nil {
		return "", err
	}
	sortDesc(ow, func(o storage.OverwatchProfile) float64 { return float64(o.Rank) })
	section(&b, "Overwatch", ow, func(o storage.OverwatchProfile) string {
		if o.Rank == 0 {
			return fmt.Sprintf("%s: level %d, unplaced", o.Username, o.Level)
		}
		return fmt.Sprintf("%s: level %d, %d SR", o.Username, o.Level, o.Rank)
	})

	if b.Len() == 0 {
		return emptyLeaderboard, nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
