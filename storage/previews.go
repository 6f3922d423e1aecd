package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"geminify/rewrite"
)

type PreviewStatus string

const (
	PreviewPending  PreviewStatus = "pending"
	PreviewAccepted PreviewStatus = "accepted"
	PreviewRejected PreviewStatus = "rejected"
)

// Preview は承認待ちの書き換え結果です。Owner はセッションまたはDiscordユーザーを表します。
type Preview struct {
	ID        string         `json:"id"`
	Owner     string         `json:"-"`
	Status    PreviewStatus  `json:"status"`
	Result    rewrite.Result `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func (s *DBStore) SavePreview(ctx context.Context, p Preview) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Status == "" {
		p.Status = PreviewPending
	}
	result, err := json.Marshal(p.Result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO previews (id, owner, status, result, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Owner, string(p.Status), string(result), p.CreatedAt.UnixMilli(), p.ExpiresAt.UnixMilli())
	return err
}

func (s *DBStore) GetPreview(ctx context.Context, id string) (*Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPreview(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getPreview(ctx context.Context, q queryRower, id string) (*Preview, error) {
	var (
		p                  Preview
		status, result     string
		created, expiresAt int64
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, owner, status, result, created_at, expires_at FROM previews WHERE id = ?", id,
	).Scan(&p.ID, &p.Owner, &status, &result, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(result), &p.Result); err != nil {
		return nil, fmt.Errorf("failed to decode preview %s: %w", id, err)
	}
	p.Status = PreviewStatus(status)
	p.CreatedAt = time.UnixMilli(created)
	p.ExpiresAt = time.UnixMilli(expiresAt)
	return &p, nil
}

// ResolvePreview は保留中のプレビューを承認または却下します。
// 他の所有者のプレビューは存在しないものとして扱います。
func (s *DBStore) ResolvePreview(ctx context.Context, id, owner string, status PreviewStatus, now time.Time) (*Preview, error) {
	if status != PreviewAccepted && status != PreviewRejected {
		return nil, fmt.Errorf("invalid preview status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := getPreview(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Owner != owner {
		return nil, ErrNotFound
	}
	if p.Status != PreviewPending {
		return p, ErrAlreadyResolved
	}
	if !now.Before(p.ExpiresAt) {
		return p, ErrExpired
	}
	if _, err := tx.ExecContext(ctx, "UPDATE previews SET status = ? WHERE id = ?", string(status), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	p.Status = status
	return p, nil
}

func (s *DBStore) CountPendingPreviews(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM previews WHERE status = ?", string(PreviewPending)).Scan(&n)
	return n, err
}

// PurgeExpiredPreviews は期限切れのプレビューと解決済みのプレビューを削除します。
func (s *DBStore) PurgeExpiredPreviews(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM previews WHERE expires_at <= ? OR status != ?", now.UnixMilli(), string(PreviewPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
