package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// AddPlayer inserts a player, or returns the id of the existing one with the
// same username.
func (s *Store) AddPlayer(ctx context.Context, username string, telegramID int64) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, errors.New("player username is required")
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO players(username, telegram_id) VALUES(?, ?)
		 ON CONFLICT(username) DO UPDATE SET telegram_id = COALESCE(excluded.telegram_id, players.telegram_id)`,
		username, nullInt(telegramID))
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM players WHERE username = ?`, username).Scan(&id)
	return id, err
}

func (s *Store) Players(ctx context.Context) ([]Player, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, username, COALESCE(telegram_id, 0) FROM players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Username, &p.TelegramID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SteamAccounts(ctx context.Context) ([]SteamAccount, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT s.steam_id, s.player_id, p.username, s.persona_name, s.avatar_url, s.updated_at
		 FROM steam s JOIN players p ON p.id = s.player_id ORDER BY s.steam_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SteamAccount
	for rows.Next() {
		var a SteamAccount
		var at sql.NullString
		if err := rows.Scan(&a.SteamID, &a.PlayerID, &a.Username, &a.PersonaName, &a.AvatarURL, &at); err != nil {
			return nil, err
		}
		a.UpdatedAt = parseTime(at)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DotaProfiles(ctx context.Context) ([]DotaProfile, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT d.steam_id, s.player_id, p.username, d.rank_tier, d.leaderboard_rank, d.updated_at
		 FROM dota d JOIN steam s ON s.steam_id = d.steam_id JOIN players p ON p.id = s.player_id
		 ORDER BY d.steam_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DotaProfile
	for rows.Next() {
		var d DotaProfile
		var at sql.NullString
		if err := rows.Scan(&d.SteamID, &d.PlayerID, &d.Username, &d.RankTier, &d.LeaderboardRank, &at); err != nil {
			return nil, err
		}
		d.UpdatedAt = parseTime(at)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) LeagueProfiles(ctx context.Context) ([]LeagueProfile, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT l.summoner_id, l.player_id, p.username, l.region,
		        l.solo_tier, l.solo_division, l.flex_tier, l.flex_division, l.tt_tier, l.tt_division, l.updated_at
		 FROM league l JOIN players p ON p.id = l.player_id ORDER BY l.summoner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeagueProfile
	for rows.Next() {
		var l LeagueProfile
		var at sql.NullString
		if err := rows.Scan(&l.SummonerID, &l.PlayerID, &l.Username, &l.Region,
			&l.Solo.Tier, &l.Solo.Division, &l.Flex.Tier, &l.Flex.Division,
			&l.TwistedTT.Tier, &l.TwistedTT.Division, &at); err != nil {
			return nil, err
		}
		l.UpdatedAt = parseTime(at)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) OsuProfiles(ctx context.Context) ([]OsuProfile, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT o.osu_id, o.player_id, p.username, o.pp, o.updated_at
		 FROM osu o JOIN players p ON p.id = o.player_id ORDER BY o.osu_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OsuProfile
	for rows.Next() {
		var o OsuProfile
		var at sql.NullString
		if err := rows.Scan(&o.OsuID, &o.PlayerID, &o.Username, &o.PP, &at); err != nil {
			return nil, err
		}
		o.UpdatedAt = parseTime(at)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) OverwatchProfiles(ctx context.Context) ([]OverwatchProfile, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT o.battletag, o.player_id, p.username, o.region, o.level, o.rank, o.updated_at
		 FROM overwatch o JOIN players p ON p.id = o.player_id ORDER BY o.battletag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OverwatchProfile
	for rows.Next() {
		var o OverwatchProfile
		var at sql.NullString
		if err := rows.Scan(&o.BattleTag, &o.PlayerID, &o.Username, &o.Region, &o.Level, &o.Rank, &at); err != nil {
			return nil, err
		}
		o.UpdatedAt = parseTime(at)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Session) SaveSteam(a SteamAccount) {
	s.stage(`INSERT INTO steam(steam_id, player_id, persona_name, avatar_url, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(steam_id) DO UPDATE SET
			persona_name = excluded.persona_name,
			avatar_url   = excluded.avatar_url,
			updated_at   = excluded.updated_at`,
		a.SteamID, a.PlayerID, a.PersonaName, a.AvatarURL, timeStr(a.UpdatedAt))
}

func (s *Session) SaveDota(d DotaProfile) {
	s.stage(`INSERT INTO dota(steam_id, rank_tier, leaderboard_rank, updated_at) VALUES(?,?,?,?)
		ON CONFLICT(steam_id) DO UPDATE SET
			rank_tier        = excluded.rank_tier,
			leaderboard_rank = excluded.leaderboard_rank,
			updated_at       = excluded.updated_at`,
		d.SteamID, d.RankTier, d.LeaderboardRank, timeStr(d.UpdatedAt))
}

func (s *Session) SaveLeague(l LeagueProfile) {
	region := l.Region
	if region == "" {
		region = "euw1"
	}
	s.stage(`INSERT INTO league(summoner_id, player_id, region, solo_tier, solo_division, flex_tier, flex_division, tt_tier, tt_division, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(summoner_id) DO UPDATE SET
			region        = excluded.region,
			solo_tier     = excluded.solo_tier,
			solo_division = excluded.solo_division,
			flex_tier     = excluded.flex_tier,
			flex_division = excluded.flex_division,
			tt_tier       = excluded.tt_tier,
			tt_division   = excluded.tt_division,
			updated_at    = excluded.updated_at`,
		l.SummonerID, l.PlayerID, region,
		l.Solo.Tier, l.Solo.Division, l.Flex.Tier, l.Flex.Division, l.TwistedTT.Tier, l.TwistedTT.Division,
		timeStr(l.UpdatedAt))
}

func (s *Session) SaveOsu(o OsuProfile) {
	s.stage(`INSERT INTO osu(osu_id, player_id, pp, updated_at) VALUES(?,?,?,?)
		ON CONFLICT(osu_id) DO UPDATE SET pp = excluded.pp, updated_at = excluded.updated_at`,
		o.OsuID, o.PlayerID, o.PP, timeStr(o.UpdatedAt))
}

func (s *Session) SaveOverwatch(o OverwatchProfile) {
	region := o.Region
	if region == "" {
		region = "eu"
	}
	s.stage(`INSERT INTO overwatch(battletag, player_id, region, level, rank, updated_at) VALUES(?,?,?,?,?,?)
		ON CONFLICT(battletag) DO UPDATE SET
			region     = excluded.region,
			level      = excluded.level,
			rank       = excluded.rank,
			updated_at = excluded.updated_at`,
		o.BattleTag, o.PlayerID, region, o.Level, o.Rank, timeStr(o.UpdatedAt))
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
