package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"geminify/rewrite"
	"geminify/settings"

	_ "modernc.org/sqlite"
)

const settingsKey = "settings"

var (
	_ settings.Store          = (*DBStore)(nil)
	_ rewrite.HistoryRecorder = (*DBStore)(nil)
)

var (
	// ErrNotFound は対象のレコードが存在しないことを示します。
	ErrNotFound = errors.New("storage: not found")

	// ErrAlreadyResolved はプレビューが既に承認または却下済みであることを示します。
	ErrAlreadyResolved = errors.New("storage: preview already resolved")

	// ErrExpired はプレビューの有効期限が切れていることを示します。
	ErrExpired = errors.New("storage: preview expired")
)

type DBStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewDBStore はSQLiteデータベースを開き、テーブルを初期化します。
func NewDBStore(dataSourceName string) (*DBStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite は書き込みを直列化するので接続は1本に絞る
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &DBStore{db: db}
	if err = s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return s, nil
}

func (s *DBStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS previews (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			status TEXT NOT NULL,
			result TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_expires ON previews (expires_at);`,
		`CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			host TEXT NOT NULL,
			model TEXT NOT NULL,
			style TEXT NOT NULL DEFAULT '',
			strategy TEXT NOT NULL,
			outcome TEXT NOT NULL,
			input_chars INTEGER NOT NULL,
			output_chars INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			cached INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON history (created_at);`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) Close() error {
	return s.db.Close()
}

func (s *DBStore) PingDB(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetConfig は key に保存されたJSONを v にデコードします。見つからなければ false を返します。
func (s *DBStore) GetConfig(ctx context.Context, key string, v interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return false, fmt.Errorf("failed to decode config %q: %w", key, err)
	}
	return true, nil
}

func (s *DBStore) SaveConfig(ctx context.Context, key string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *DBStore) LoadSettings(ctx context.Context) (settings.Settings, bool, error) {
	var st settings.Settings
	found, err := s.GetConfig(ctx, settingsKey, &st)
	return st, found, err
}

func (s *DBStore) SaveSettings(ctx context.Context, st settings.Settings) error {
	return s.SaveConfig(ctx, settingsKey, st)
}
