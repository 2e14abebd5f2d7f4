package sources

import (
	"fmt"

	"rankbot/internal/stats"
)

const (
	VariantSteam     = "steam"
	VariantDota      = "dota"
	VariantLeague    = "league"
	VariantOsu       = "osu"
	VariantOverwatch = "overwatch"
)

// Loader returns the item loader of a variant.
func Loader(variant string, c *Client) (stats.Loader, error) {
	switch variant {
	case VariantSteam:
		return SteamLoader(c), nil
	case VariantDota:
		return DotaLoader(c), nil
	case VariantLeague:
		return LeagueLoader(c), nil
	case VariantOsu:
		return OsuLoader(c), nil
	case VariantOverwatch:
		return OverwatchLoader(c), nil
	default:
		return nil, fmt.Errorf("unknown stats variant %q", variant)
	}
}
