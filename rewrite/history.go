package rewrite

import (
	"context"
	"time"
)

// HistoryEntry は1回の書き換えの記録です。本文は保存しません。
type HistoryEntry struct {
	ID          string        `json:"id"`
	Host        string        `json:"host"`
	Model       string        `json:"model"`
	Style       string        `json:"style,omitempty"`
	Strategy    string        `json:"strategy"`
	Outcome     string        `json:"outcome"`
	InputChars  int           `json:"input_chars"`
	OutputChars int           `json:"output_chars"`
	Attempts    int           `json:"attempts"`
	Cached      bool          `json:"cached"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// HistoryRecorder は履歴の保存先です。
type HistoryRecorder interface {
	RecordHistory(ctx context.Context, entry HistoryEntry) error
}
