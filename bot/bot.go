package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geminify/commands"
	"geminify/handlers"
	"geminify/interfaces"

	"github.com/bwmarrin/discordgo"
)

const (
	placeholderToken = "YOUR_DISCORD_BOT_TOKEN_HERE"
	defaultStatus    = "/rewrite | Geminify"
)

// ErrMissingToken はBotトークンが設定されていないことを示します。
var ErrMissingToken = errors.New("discord bot token is not configured")

// Options は Bot の設定です。GuildID を指定するとコマンドをそのサーバーだけに登録します。
type Options struct {
	Token   string
	GuildID string
	Status  string
	App     *commands.AppContext
	Log     interfaces.Logger
}

// Bot はDiscordボットのコアな状態とロジックを管理します。
type Bot struct {
	Session           *discordgo.Session
	log               interfaces.Logger
	guildID           string
	status            string
	commandHandlers   map[string]interfaces.CommandHandler
	componentHandlers map[string]interfaces.CommandHandler
	definitions       []*discordgo.ApplicationCommand
}

// New は新しいBotインスタンスを作成します。まだDiscordには接続しません。
func New(opts Options) (*Bot, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" || token == placeholderToken {
		return nil, ErrMissingToken
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	// スラッシュコマンドとボタンしか使わないのでギルドのイベントだけで足りる
	dg.Identify.Intents = discordgo.IntentsGuilds

	status := opts.Status
	if status == "" {
		status = defaultStatus
	}
	commandHandlers, componentHandlers, definitions := commands.RegisterCommands(opts.App)

	return &Bot{
		Session:           dg,
		log:               opts.Log,
		guildID:           opts.GuildID,
		status:            status,
		commandHandlers:   commandHandlers,
		componentHandlers: componentHandlers,
		definitions:       definitions,
	}, nil
}

func (b *Bot) Name() string { return "discord" }

// Start はDiscordに接続し、コマンドを登録します。
func (b *Bot) Start() error {
	eventHandler := handlers.NewEventHandler(b.log, b.commandHandlers, b.componentHandlers, b.status)
	eventHandler.RegisterAllHandlers(b.Session)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	b.log.Info("Discord Botが起動しました。コマンドを登録します...", "commands", len(b.definitions), "guild", b.guildID)
	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, b.guildID, b.definitions); err != nil {
		b.Session.Close()
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.log.Info("コマンドの登録が完了しました。")
	return nil
}

// Stop はDiscordとの接続を閉じます。
func (b *Bot) Stop(ctx context.Context) error {
	b.log.Info("Botをシャットダウンします...")
	return b.Session.Close()
}

// Commands は登録されるコマンド名の一覧を返します。
func (b *Bot) Commands() []string {
	names := make([]string, 0, len(b.definitions))
	for _, def := range b.definitions {
		names = append(names, def.Name)
	}
	return names
}
