// Package storage is rankbot's SQLite persistence layer.
//
// It holds the tracked entities refreshed by the stats worker (players and
// their Steam, Dota 2, League of Legends, osu! and Overwatch profiles) and the
// crash reports written by the store reporter.
//
// Entity writes go through a Session, a unit of work: saves are staged in
// memory and applied in one transaction by Commit. Reads always hit the
// database directly.
package storage
