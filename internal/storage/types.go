package storage

import (
	"errors"
	"time"
)

var (
	ErrClosed   = errors.New("storage closed")
	ErrNotFound = errors.New("storage: not found")
)

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Player is a tracked person; every profile belongs to one.
type Player struct {
	ID         int64
	Username   string
	TelegramID int64
}

type SteamAccount struct {
	SteamID     string
	PlayerID    int64
	Username    string // owning player, read-only
	PersonaName string
	AvatarURL   string
	UpdatedAt   time.Time
}

type DotaProfile struct {
	SteamID         string
	PlayerID        int64
	Username        string
	RankTier        int // tens digit: medal, ones digit: stars; 0 unranked
	LeaderboardRank int
	UpdatedAt       time.Time
}

// LeagueRank is one queue's standing, e.g. GOLD II. Zero value means unranked.
type LeagueRank struct {
	Tier     string
	Division string
}

func (r LeagueRank) IsZero() bool { return r.Tier == "" }

func (r LeagueRank) String() string {
	if r.IsZero() {
		return "UNRANKED"
	}
	if r.Division == "" {
		return r.Tier
	}
	return r.Tier + " " + r.Division
}

type LeagueProfile struct {
	SummonerID string
	PlayerID   int64
	Username   string
	Region     string
	Solo       LeagueRank
	Flex       LeagueRank
	TwistedTT  LeagueRank
	UpdatedAt  time.Time
}

type OsuProfile struct {
	OsuID     string
	PlayerID  int64
	Username  string
	PP        float64
	UpdatedAt time.Time
}

type OverwatchProfile struct {
	BattleTag string
	PlayerID  int64
	Username  string
	Region    string
	Level     int
	Rank      int // competitive SR, 0 unplaced
	UpdatedAt time.Time
}

// CrashRecord is one row of crash_reports.
type CrashRecord struct {
	ID      int64
	At      time.Time
	Level   string
	Item    string
	Variant string
	Kind    string
	Status  int
	Body    string
	Error   string
}
