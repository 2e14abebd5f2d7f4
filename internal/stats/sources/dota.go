package sources

import (
	"context"
	"fmt"
	"strconv"

	"rankbot/internal/stats"
	"rankbot/internal/storage"
)

// steamID64 - steamID32 offset.
const steamAccountOffset = 76561197960265728

var dotaMedals = [...]string{"", "Herald", "Guardian", "Crusader", "Archon", "Legend", "Ancient", "Divine", "Immortal"}

// DotaRankName returns the medal of an OpenDota rank tier.
func DotaRankName(tier int) string {
	m := tier / 10
	if tier <= 0 || m <= 0 || m >= len(dotaMedals) {
		return "Unranked"
	}
	return dotaMedals[m]
}

// DotaRankNumber returns the stars of a rank tier; 0 for Immortal and unranked.
func DotaRankNumber(tier int) int {
	if tier/10 >= 8 || tier <= 0 {
		return 0
	}
	return tier % 10
}

func DotaRankLabel(tier int) string {
	if n := DotaRankNumber(tier); n > 0 {
		return fmt.Sprintf("%s %d", DotaRankName(tier), n)
	}
	return DotaRankName(tier)
}

func dotaAccountID(steamID string) (uint64, error) {
	id, err := strconv.ParseUint(steamID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad steam id %q: %w", steamID, err)
	}
	if id >= steamAccountOffset {
		id -= steamAccountOffset
	}
	return id, nil
}

type DotaItem struct {
	c       *Client
	Profile storage.DotaProfile
}

func (d *DotaItem) ID() string    { return "dota:" + d.Profile.SteamID }
func (d *DotaItem) Owner() string { return d.Profile.Username }

func (d *DotaItem) Update(ctx context.Context, sess *storage.Session) (stats.Change, error) {
	acc, err := dotaAccountID(d.Profile.SteamID)
	if err != nil {
		return nil, err
	}
	res, err := d.c.getJSON(ctx, fmt.Sprintf("%s/api/players/%d", base(d.c.cfg.OpenDotaBaseURL, defaultOpenDotaBase), acc), nil)
	if err != nil {
		return nil, err
	}

	old := d.Profile.RankTier
	d.Profile.RankTier = int(res.Get("rank_tier").Int())
	d.Profile.LeaderboardRank = int(res.Get("leaderboard_rank").Int())
	d.Profile.UpdatedAt = d.c.now()
	sess.SaveDota(d.Profile)

	if old == d.Profile.RankTier {
		return nil, nil
	}
	return stats.SingleDelta{Old: DotaRankLabel(old), New: DotaRankLabel(d.Profile.RankTier)}, nil
}

func DotaLoader(c *Client) stats.Loader {
	return func(ctx context.Context, sess *storage.Session) ([]stats.Item, error) {
		rows, err := sess.Store().DotaProfiles(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]stats.Item, 0, len(rows))
		for _, r := range rows {
			items = append(items, &DotaItem{c: c, Profile: r})
		}
		return items, nil
	}
}
