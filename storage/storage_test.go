package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"geminify/rewrite"
	"geminify/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DBStore {
	t.Helper()
	s, err := NewDBStore(filepath.Join(t.TempDir(), "geminify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	want := settings.Defaults()
	want.APIKey = "AIza-test-key"
	want.Temperature = 0.3
	want.LanguageRewrite.Enabled = true
	want.LanguageRewrite.TargetLanguage = "turkish"
	require.NoError(t, s.SaveSettings(ctx, want))

	got, found, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	// 上書き
	want.Model = settings.ModelPro
	require.NoError(t, s.SaveSettings(ctx, want))
	got, _, err = s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ModelPro, got.Model)
}

func TestSettingsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geminify.db")
	ctx := context.Background()

	s, err := NewDBStore(path)
	require.NoError(t, err)
	st := settings.Defaults()
	st.Locale = "tr"
	require.NoError(t, s.SaveSettings(ctx, st))
	require.NoError(t, s.Close())

	s, err = NewDBStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, found, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tr", got.Locale)
}

func newPreview(id, owner string, now time.Time) Preview {
	return Preview{
		ID:    id,
		Owner: owner,
		Result: rewrite.Result{
			ID:        id,
			Original:  "hello world",
			Rewritten: "Hello, World.",
			Success:   true,
			Span:      &rewrite.Span{Start: 7, End: 18},
			Strategy:  rewrite.StrategyPreview,
			Model:     settings.ModelFlash,
			Attempts:  1,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

func TestPreviewLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(time.Now().UnixMilli())

	require.NoError(t, s.SavePreview(ctx, newPreview("p1", "alice", now)))

	p, err := s.GetPreview(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, PreviewPending, p.Status)
	assert.Equal(t, "Hello, World.", p.Result.Rewritten)
	require.NotNil(t, p.Result.Span)
	assert.Equal(t, 7, p.Result.Span.Start)
	assert.True(t, p.ExpiresAt.Equal(now.Add(10*time.Minute)))

	n, err := s.CountPendingPreviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 他人のプレビューは見えない
	_, err = s.ResolvePreview(ctx, "p1", "mallory", PreviewAccepted, now)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = s.ResolvePreview(ctx, "p1", "alice", PreviewAccepted, now)
	require.NoError(t, err)
	assert.Equal(t, PreviewAccepted, p.Status)

	_, err = s.ResolvePreview(ctx, "p1", "alice", PreviewRejected, now)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = s.GetPreview(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ResolvePreview(ctx, "p1", "alice", PreviewPending, now)
	assert.Error(t, err)
}

func TestPreviewExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SavePreview(ctx, newPreview("old", "alice", now.Add(-time.Hour))))
	require.NoError(t, s.SavePreview(ctx, newPreview("fresh", "alice", now)))

	_, err := s.ResolvePreview(ctx, "old", "alice", PreviewAccepted, now)
	assert.ErrorIs(t, err, ErrExpired)

	purged, err := s.PurgeExpiredPreviews(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = s.GetPreview(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPreview(ctx, "fresh")
	assert.NoError(t, err)
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(time.Now().UnixMilli())

	for i, outcome := range []string{"success", "rate-limited", "success"} {
		require.NoError(t, s.RecordHistory(ctx, rewrite.HistoryEntry{
			ID:          string(rune('a' + i)),
			Host:        "cli",
			Model:       settings.ModelFlash,
			Strategy:    "replace",
			Outcome:     outcome,
			InputChars:  10 * (i + 1),
			OutputChars: 12,
			Attempts:    i + 1,
			Cached:      i == 2,
			Duration:    1500 * time.Millisecond,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := s.RecentHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.True(t, entries[0].Cached)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, "rate-limited", entries[1].Outcome)
	assert.Equal(t, 1500*time.Millisecond, entries[1].Duration)

	purged, err := s.PurgeHistory(ctx, base.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	entries, err = s.RecentHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
