package commands

import (
	"context"
	"time"

	"geminify/interfaces"
	"geminify/platform"
	"geminify/rewrite"
	"geminify/settings"
	"geminify/storage"

	"github.com/bwmarrin/discordgo"
)

// Rewriter はコマンドが使う書き換え機能です。*rewrite.Orchestrator が満たします。
type Rewriter interface {
	Start(ctx context.Context, req rewrite.Request) (*rewrite.Invocation, error)
	Verify(ctx context.Context) error
	IsConfigured() bool
	Capabilities() platform.Capabilities
}

// SettingsUpdater はユーザー設定の読み書きです。
type SettingsUpdater interface {
	Current() settings.Settings
	Update(ctx context.Context, mutate func(*settings.Settings)) (settings.Settings, error)
}

// PreviewStore はプレビューの保存先です。
type PreviewStore interface {
	SavePreview(ctx context.Context, p storage.Preview) error
	ResolvePreview(ctx context.Context, id, owner string, status storage.PreviewStatus, now time.Time) (*storage.Preview, error)
	PingDB(ctx context.Context) error
}

// AppContext はコマンドに渡す依存関係です。
type AppContext struct {
	Log        interfaces.Logger
	Rewriter   Rewriter
	Settings   SettingsUpdater
	Store      PreviewStore
	PreviewTTL time.Duration
	StartTime  time.Time
}

func (a *AppContext) locale() string {
	return a.Settings.Current().Locale
}

func int64Ptr(i int64) *int64 {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

// interactionUserID はサーバー内ならメンバー、DMならユーザーのIDを返します。
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// truncate は文字数が max を超える場合に末尾を「…」で切り詰めます。
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
