package sources

import (
	"context"
	"math"
	"net/url"
	"strconv"

	"rankbot/internal/stats"
	"rankbot/internal/storage"
)

type OsuItem struct {
	c       *Client
	Profile storage.OsuProfile
}

func (o *OsuItem) ID() string    { return "osu:" + o.Profile.OsuID }
func (o *OsuItem) Owner() string { return o.Profile.Username }

func (o *OsuItem) Update(ctx context.Context, sess *storage.Session) (stats.Change, error) {
	q := url.Values{}
	q.Set("k", o.c.cfg.OsuAPIKey)
	q.Set("u", o.Profile.OsuID)
	q.Set("type", "id")
	q.Set("m", "0")
	res, err := o.c.getJSON(ctx, base(o.c.cfg.OsuBaseURL, defaultOsuBase)+"/api/get_user?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	u := res.Get("0")
	if !u.Exists() {
		return nil, ErrProfileNotFound
	}

	old := o.Profile.PP
	// pp_raw arrives as a string.
	o.Profile.PP = u.Get("pp_raw").Float()
	o.Profile.UpdatedAt = o.c.now()
	sess.SaveOsu(o.Profile)

	if math.Abs(old-o.Profile.PP) < 0.005 {
		return nil, nil
	}
	return stats.SingleDelta{Old: fmtPP(old), New: fmtPP(o.Profile.PP)}, nil
}

func fmtPP(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "pp" }

func OsuLoader(c *Client) stats.Loader {
	return func(ctx context.Context, sess *storage.Session) ([]stats.Item, error) {
		rows, err := sess.Store().OsuProfiles(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]stats.Item, 0, len(rows))
		for _, r := range rows {
			items = append(items, &OsuItem{c: c, Profile: r})
		}
		return items, nil
	}
}
