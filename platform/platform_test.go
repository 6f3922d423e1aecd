package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envWith(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		env        Environment
		wantKind   Kind
		wantTouch  bool
		wantMenu   bool
		wantExpiry time.Duration
		wantTokens int
	}{
		{"linux desktop", Environment{GOOS: "linux"}, Desktop, false, true, 30 * time.Second, 4000},
		{"android", Environment{GOOS: "android"}, Mobile, true, false, 45 * time.Second, 2000},
		{"ios", Environment{GOOS: "ios"}, Mobile, true, false, 45 * time.Second, 2000},
		{"termux", Environment{GOOS: "linux", Getenv: envWith(map[string]string{"TERMUX_VERSION": "0.118"})}, Mobile, true, false, 45 * time.Second, 2000},
		{"forced mobile", Environment{GOOS: "darwin", Mode: ModeMobile}, Mobile, true, false, 45 * time.Second, 2000},
		{"forced desktop on android", Environment{GOOS: "android", Mode: ModeDesktop}, Desktop, false, true, 30 * time.Second, 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := Detect(tt.env)
			assert.Equal(t, tt.wantKind, caps.Kind)
			assert.Equal(t, tt.wantTouch, caps.Touch)
			assert.Equal(t, tt.wantMenu, caps.NativeContextMenu)
			assert.Equal(t, tt.wantExpiry, caps.Timeout)
			assert.Equal(t, tt.wantTokens, caps.MaxTokens)
			assert.Equal(t, 3, caps.RetryAttempts)
		})
	}
}

func TestUIConfig(t *testing.T) {
	mobile := Detect(Environment{Mode: ModeMobile}).UIConfig()
	assert.Equal(t, "fullscreen", mobile.ModalSize)
	assert.True(t, mobile.ShowFloatingButton)
	assert.True(t, mobile.UseSwipeGestures)

	desktop := Detect(Environment{GOOS: "windows"}).UIConfig()
	assert.Equal(t, "medium", desktop.ModalSize)
	assert.False(t, desktop.ShowFloatingButton)
}

func TestTokenBudget(t *testing.T) {
	desktop := Detect(Environment{GOOS: "linux"})
	assert.Equal(t, 2048, desktop.TokenBudget(2048))
	assert.Equal(t, 4000, desktop.TokenBudget(8192))
	assert.Equal(t, 4000, desktop.TokenBudget(0))

	mobile := Detect(Environment{Mode: ModeMobile})
	assert.Equal(t, 2000, mobile.TokenBudget(2048))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Mobile")
	require.NoError(t, err)
	assert.Equal(t, ModeMobile, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	_, err = ParseMode("tablet")
	assert.Error(t, err)
}
