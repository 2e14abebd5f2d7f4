package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"rankbot/internal/stats"
	"rankbot/internal/storage"
)

var leagueQueues = map[string]stats.SubMode{
	"RANKED_SOLO_5x5": stats.SubSolo,
	"RANKED_FLEX_SR":  stats.SubFlex,
	"RANKED_FLEX_TT":  stats.SubTwistedTreeline,
}

type LeagueItem struct {
	c       *Client
	Profile storage.LeagueProfile
}

func (l *LeagueItem) ID() string    { return "league:" + l.Profile.SummonerID }
func (l *LeagueItem) Owner() string { return l.Profile.Username }

func (l *LeagueItem) endpoint() string {
	region := l.Profile.Region
	if region == "" {
		region = "euw1"
	}
	b := base(l.c.cfg.RiotBaseURL, fmt.Sprintf(defaultRiotBaseFmt, region))
	return b + "/lol/league/v4/entries/by-summoner/" + url.PathEscape(l.Profile.SummonerID)
}

func (l *LeagueItem) Update(ctx context.Context, sess *storage.Session) (stats.Change, error) {
	hdr := http.Header{}
	hdr.Set("X-Riot-Token", l.c.cfg.RiotAPIKey)
	res, err := l.c.getJSON(ctx, l.endpoint(), hdr)
	if err != nil {
		return nil, err
	}

	// Queues missing from the answer are unranked.
	var now [3]storage.LeagueRank
	res.ForEach(func(_, e gjson.Result) bool {
		if m, ok := leagueQueues[e.Get("queueType").String()]; ok {
			now[m] = storage.LeagueRank{Tier: e.Get("tier").String(), Division: e.Get("rank").String()}
		}
		return true
	})

	before := [3]storage.LeagueRank{l.Profile.Solo, l.Profile.Flex, l.Profile.TwistedTT}
	var ch stats.SubModeDeltas
	for i := range now {
		if now[i] != before[i] {
			ch[i] = &stats.SingleDelta{Old: before[i].String(), New: now[i].String()}
		}
	}

	l.Profile.Solo, l.Profile.Flex, l.Profile.TwistedTT = now[stats.SubSolo], now[stats.SubFlex], now[stats.SubTwistedTreeline]
	l.Profile.UpdatedAt = l.c.now()
	sess.SaveLeague(l.Profile)
	return ch, nil
}

func LeagueLoader(c *Client) stats.Loader {
	return func(ctx context.Context, sess *storage.Session) ([]stats.Item, error) {
		rows, err := sess.Store().LeagueProfiles(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]stats.Item, 0, len(rows))
		for _, r := range rows {
			items = append(items, &LeagueItem{c: c, Profile: r})
		}
		return items, nil
	}
}
