package storage

import (
	"context"
	"time"

	"geminify/rewrite"
)

const defaultHistoryLimit = 50

func (s *DBStore) RecordHistory(ctx context.Context, e rewrite.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := 0
	if e.Cached {
		cached = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, host, model, style, strategy, outcome, input_chars, output_chars, attempts, cached, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Host, e.Model, e.Style, e.Strategy, e.Outcome, e.InputChars, e.OutputChars,
		e.Attempts, cached, e.Duration.Milliseconds(), e.CreatedAt.UnixMilli())
	return err
}

// RecentHistory は新しい順に最大 limit 件の履歴を返します。
func (s *DBStore) RecentHistory(ctx context.Context, limit int) ([]rewrite.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, host, model, style, strategy, outcome, input_chars, output_chars, attempts, cached, duration_ms, created_at
		FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []rewrite.HistoryEntry
	for rows.Next() {
		var (
			e                rewrite.HistoryEntry
			cached           int
			durationMs, atMs int64
		)
		if err := rows.Scan(&e.ID, &e.Host, &e.Model, &e.Style, &e.Strategy, &e.Outcome,
			&e.InputChars, &e.OutputChars, &e.Attempts, &cached, &durationMs, &atMs); err != nil {
			return nil, err
		}
		e.Cached = cached != 0
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(atMs)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *DBStore) PurgeHistory(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE created_at < ?", before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
