// Package platform は起動時の実行環境から能力値 (タッチ操作・期限・トークン上限) を決めます。
package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// Kind は環境の種類です。
type Kind string

const (
	Desktop Kind = "desktop"
	Mobile  Kind = "mobile"
)

// Mode は設定ファイルの platform.mode です。
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeDesktop Mode = "desktop"
	ModeMobile  Mode = "mobile"
)

// ParseMode は設定値を Mode に変換します。空文字列は ModeAuto です。
func ParseMode(v string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(v))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeDesktop, ModeMobile:
		return m, nil
	default:
		return "", fmt.Errorf("unknown platform mode %q", v)
	}
}

// Environment は検出に使う入力です。テストでは任意の値を渡せます。
type Environment struct {
	GOOS   string
	Mode   Mode
	Getenv func(string) string
}

// CurrentEnvironment は実行中のプロセスの Environment を返します。
func CurrentEnvironment(mode Mode) Environment {
	return Environment{GOOS: runtime.GOOS, Mode: mode, Getenv: os.Getenv}
}

// Capabilities は読み取り専用の能力値です。Detect の後は変更されません。
type Capabilities struct {
	Kind              Kind          `json:"kind"`
	Android           bool          `json:"android"`
	IOS               bool          `json:"ios"`
	Touch             bool          `json:"touch"`
	NativeContextMenu bool          `json:"native_context_menu"`
	Timeout           time.Duration `json:"timeout"`
	MaxTokens         int           `json:"max_tokens"`
	RetryAttempts     int           `json:"retry_attempts"`
}

// UIConfig はホストに渡すレイアウトのヒントです。
type UIConfig struct {
	ModalSize          string `json:"modal_size"`
	ButtonSize         string `json:"button_size"`
	Spacing            string `json:"spacing"`
	ShowFloatingButton bool   `json:"show_floating_button"`
	UseSwipeGestures   bool   `json:"use_swipe_gestures"`
}

var desktopCapabilities = Capabilities{
	Kind:              Desktop,
	NativeContextMenu: true,
	Timeout:           30 * time.Second,
	MaxTokens:         4000,
	RetryAttempts:     3,
}

// モバイル回線向けに期限を長く、トークン上限を小さくする
var mobileCapabilities = Capabilities{
	Kind:          Mobile,
	Touch:         true,
	Timeout:       45 * time.Second,
	MaxTokens:     2000,
	RetryAttempts: 3,
}

// Detect は環境を調べて Capabilities を返します。
func Detect(env Environment) Capabilities {
	getenv := env.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	android := env.GOOS == "android" || getenv("TERMUX_VERSION") != "" || getenv("ANDROID_ROOT") != ""
	ios := env.GOOS == "ios"

	var mobile bool
	switch env.Mode {
	case ModeMobile:
		mobile = true
	case ModeDesktop:
		mobile = false
	default:
		mobile = android || ios
	}

	caps := desktopCapabilities
	if mobile {
		caps = mobileCapabilities
		caps.Android = android
		caps.IOS = ios
	}
	return caps
}

// Mobile はモバイル環境かどうかを返します。
func (c Capabilities) Mobile() bool {
	return c.Kind == Mobile
}

// UIConfig は環境に合わせたレイアウトのヒントを返します。
func (c Capabilities) UIConfig() UIConfig {
	if c.Mobile() {
		return UIConfig{
			ModalSize:          "fullscreen",
			ButtonSize:         "large",
			Spacing:            "generous",
			ShowFloatingButton: true,
			UseSwipeGestures:   true,
		}
	}
	return UIConfig{
		ModalSize:  "medium",
		ButtonSize: "normal",
		Spacing:    "compact",
	}
}

// TokenBudget は設定値と環境の上限の小さい方を返します。
func (c Capabilities) TokenBudget(configured int) int {
	if c.MaxTokens > 0 && (configured <= 0 || configured > c.MaxTokens) {
		return c.MaxTokens
	}
	return configured
}
