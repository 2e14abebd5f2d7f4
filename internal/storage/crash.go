package storage

import (
	"context"
	"database/sql"
	"time"
)

func (s *Store) InsertCrash(ctx context.Context, r CrashRecord) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO crash_reports(at, level, item, variant, kind, status, body, err) VALUES(?,?,?,?,?,?,?,?)`,
		timeStr(r.At), r.Level, r.Item, r.Variant, r.Kind, r.Status, nullStr(r.Body), nullStr(r.Error))
	return err
}

// RecentCrashes returns up to limit reports, newest first.
func (s *Store) RecentCrashes(ctx context.Context, limit int) ([]CrashRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, at, level, item, variant, kind, status, body, err
		 FROM crash_reports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CrashRecord
	for rows.Next() {
		var r CrashRecord
		var at, body, e sql.NullString
		if err := rows.Scan(&r.ID, &at, &r.Level, &r.Item, &r.Variant, &r.Kind, &r.Status, &body, &e); err != nil {
			return nil, err
		}
		r.At = parseTime(at)
		r.Body = body.String
		r.Error = e.String
		out = append(out, r)
	}
	return out, rows.Err()
}
