package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"rankbot/internal/stats"
	"rankbot/internal/storage"
)

type OverwatchItem struct {
	c       *Client
	Profile storage.OverwatchProfile
}

func (o *OverwatchItem) ID() string    { return "overwatch:" + o.Profile.BattleTag }
func (o *OverwatchItem) Owner() string { return o.Profile.Username }

func (o *OverwatchItem) Update(ctx context.Context, sess *storage.Session) (stats.Change, error) {
	tag := url.PathEscape(strings.ReplaceAll(o.Profile.BattleTag, "#", "-"))
	res, err := o.c.getJSON(ctx, base(o.c.cfg.OverwatchBaseURL, defaultOverwatchBase)+"/api/v3/u/"+tag+"/blob", nil)
	if err != nil {
		return nil, err
	}
	region := o.Profile.Region
	if region == "" {
		region = "eu"
	}
	st := res.Get(region + ".stats.competitive.overall_stats")
	if !st.Exists() {
		return nil, fmt.Errorf("overwatch %s: %w in region %s", o.Profile.BattleTag, ErrProfileNotFound, region)
	}

	old := o.Profile.Rank
	o.Profile.Level = int(st.Get("prestige").Int()*100 + st.Get("level").Int())
	o.Profile.Rank = int(st.Get("comprank").Int())
	o.Profile.UpdatedAt = o.c.now()
	sess.SaveOverwatch(o.Profile)

	if old == o.Profile.Rank {
		return nil, nil
	}
	return stats.SingleDelta{Old: srLabel(old), New: srLabel(o.Profile.Rank)}, nil
}

func srLabel(sr int) string {
	if sr <= 0 {
		return "unplaced"
	}
	return strconv.Itoa(sr) + " SR"
}

func OverwatchLoader(c *Client) stats.Loader {
	return func(ctx context.Context, sess *storage.Session) ([]stats.Item, error) {
		rows, err := sess.Store().OverwatchProfiles(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]stats.Item, 0, len(rows))
		for _, r := range rows {
			items = append(items, &OverwatchItem{c: c, Profile: r})
		}
		return items, nil
	}
}
