package sources

import (
	"context"
	"errors"
	"net/url"

	"rankbot/internal/stats"
	"rankbot/internal/storage"
)

var ErrProfileNotFound = errors.New("profile not found upstream")

type SteamItem struct {
	c       *Client
	Account storage.SteamAccount
}

func (s *SteamItem) ID() string    { return "steam:" + s.Account.SteamID }
func (s *SteamItem) Owner() string { return s.Account.Username }

func (s *SteamItem) Update(ctx context.Context, sess *storage.Session) (stats.Change, error) {
	q := url.Values{}
	q.Set("key", s.c.cfg.SteamAPIKey)
	q.Set("steamids", s.Account.SteamID)
	res, err := s.c.getJSON(ctx, base(s.c.cfg.SteamBaseURL, defaultSteamBase)+"/ISteamUser/GetPlayerSummaries/v0002/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	p := res.Get("response.players.0")
	if !p.Exists() {
		return nil, ErrProfileNotFound
	}

	old := s.Account.PersonaName
	s.Account.PersonaName = p.Get("personaname").String()
	s.Account.AvatarURL = p.Get("avatarfull").String()
	s.Account.UpdatedAt = s.c.now()
	sess.SaveSteam(s.Account)

	if old == s.Account.PersonaName {
		return nil, nil
	}
	return stats.SingleDelta{Old: old, New: s.Account.PersonaName}, nil
}

func SteamLoader(c *Client) stats.Loader {
	return func(ctx context.Context, sess *storage.Session) ([]stats.Item, error) {
		rows, err := sess.Store().SteamAccounts(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]stats.Item, 0, len(rows))
		for _, r := range rows {
			items = append(items, &SteamItem{c: c, Account: r})
		}
		return items, nil
	}
}
