package storage

import (
	"context"
	"fmt"
	"sync"
)

type stmt struct {
	query string
	args  []any
}

// Session stages entity writes until Commit.
//
// A Session can be committed any number of times; each Commit applies what was
// staged since the previous one.
type Session struct {
	st *Store

	mu      sync.Mutex
	pending []stmt
}

func (s *Session) Store() *Store { return s.st }

func (s *Session) stage(query string, args ...any) {
	s.mu.Lock()
	s.pending = append(s.pending, stmt{query: query, args: args})
	s.mu.Unlock()
}

// Pending reports how many writes are staged.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Commit applies every staged write in one transaction. On failure nothing is
// applied and the staged writes are dropped.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	db, err := s.st.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i, w := range batch {
		if _, err := tx.ExecContext(ctx, w.query, w.args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("commit write %d/%d: %w", i+1, len(batch), err)
		}
	}
	return tx.Commit()
}

// Discard drops staged writes.
func (s *Session) Discard() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}
