package notifier

import (
	"context"
	"fmt"
	"html"

	"rankbot/internal/stats"
	"rankbot/internal/transport"
	logx "rankbot/pkg/logx"
)

var htmlOpts = &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}

type owned interface{ Owner() string }

func ownerOf(it stats.Item) string {
	if o, ok := it.(owned); ok && o.Owner() != "" {
		return o.Owner()
	}
	return it.ID()
}

// DotaRank announces a Dota 2 rank change. It matches stats.OnChange and
// never returns an error.
func (s *Service) DotaRank(ctx context.Context, it stats.Item, c stats.Change) error {
	d, ok := c.(stats.SingleDelta)
	if !ok {
		s.log.Warn("unexpected dota change shape", logx.String("item", it.ID()), logx.String("type", fmt.Sprintf("%T", c)))
		return nil
	}
	s.Notify(ctx, DotaRankText(ownerOf(it), d), htmlOpts)
	return nil
}

// LeagueRank sends one message per changed queue; unchanged queues are
// skipped.
func (s *Service) LeagueRank(ctx context.Context, it stats.Item, c stats.Change) error {
	d, ok := c.(stats.SubModeDeltas)
	if !ok {
		s.log.Warn("unexpected league change shape", logx.String("item", it.ID()), logx.String("type", fmt.Sprintf("%T", c)))
		return nil
	}
	who := ownerOf(it)
	for _, md := range d.Present() {
		s.Notify(ctx, LeagueRankText(who, md), htmlOpts)
	}
	return nil
}

func DotaRankText(who string, d stats.SingleDelta) string {
	return fmt.Sprintf("✳️ %s is now <b>%s</b> on Dota 2! (was %s)",
		html.EscapeString(who), html.EscapeString(d.New), html.EscapeString(d.Old))
}

func LeagueRankText(who string, md stats.ModeDelta) string {
	return fmt.Sprintf("✳️ %s has a new rank in <b>%s</b> on League of Legends!\n%s -> <b>%s</b>",
		html.EscapeString(who), md.Mode.Label(), html.EscapeString(md.Delta.Old), html.EscapeString(md.Delta.New))
}
