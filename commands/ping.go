package commands

import (
	"context"
	"fmt"
	"time"

	"geminify/handlers"

	"github.com/bwmarrin/discordgo"
)

// PingCommand はBot・データベース・Gemini設定の状態を表示します。
type PingCommand struct {
	App *AppContext
}

func (c *PingCommand) GetCommandDef() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Check latency, database and Gemini configuration",
	}
}

func (c *PingCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// 1. API応答時間を測定するため、最初のメッセージを送信
	apiStart := time.Now()
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "⏳"},
	})
	apiLatency := time.Since(apiStart)
	if err != nil {
		c.App.Log.Error("pingコマンドの初期応答に失敗", "error", err)
		return
	}

	// 2. データベースの応答時間を測定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dbStart := time.Now()
	dbErr := c.App.Store.PingDB(ctx)
	dbLatency := time.Since(dbStart)

	caps := c.App.Rewriter.Capabilities()
	embed := healthEmbed(healthReport{
		Gateway:    s.HeartbeatLatency(),
		API:        apiLatency,
		Database:   dbLatency,
		DatabaseOK: dbErr == nil,
		Configured: c.App.Rewriter.IsConfigured(),
		Platform:   string(caps.Kind),
		Uptime:     time.Since(c.App.StartTime),
	})

	empty := ""
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &empty,
		Embeds:  &[]*discordgo.MessageEmbed{embed},
	})
}

type healthReport struct {
	Gateway, API, Database time.Duration
	DatabaseOK, Configured bool
	Platform               string
	Uptime                 time.Duration
}

func healthEmbed(r healthReport) *discordgo.MessageEmbed {
	color := handlers.ColorGreen
	if r.Gateway > 150*time.Millisecond || r.API > 300*time.Millisecond || !r.Configured {
		color = handlers.ColorYellow
	}
	dbStatus := "✅ ok"
	if !r.DatabaseOK {
		dbStatus = "❌ down"
		color = handlers.ColorRed
	}
	gemini := "✅ configured"
	if !r.Configured {
		gemini = "⚠️ API key missing"
	}

	return &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Gateway", Value: fmt.Sprintf("```%s```", r.Gateway), Inline: true},
			{Name: "API", Value: fmt.Sprintf("```%s```", r.API.Round(time.Millisecond)), Inline: true},
			{Name: "Database", Value: fmt.Sprintf("```%s (%s)```", dbStatus, r.Database.Round(time.Microsecond)), Inline: true},
			{Name: "Gemini", Value: gemini, Inline: true},
			{Name: "Platform", Value: r.Platform, Inline: true},
			{Name: "Uptime", Value: fmt.Sprintf("```%s```", formatUptime(r.Uptime)), Inline: false},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// 稼働時間を「1d 2h 3m」の形式に変換する
func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	return fmt.Sprintf("%dd %dh %dm", days, h, m)
}

func (c *PingCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *PingCommand) HandleModal(s *discordgo.Session, i *discordgo.InteractionCreate)     {}
func (c *PingCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *PingCommand) GetCategory() string                                                  { return "Utility" }
