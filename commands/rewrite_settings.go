package commands

import (
	"context"
	"fmt"

	"geminify/handlers"
	"geminify/i18n"
	"geminify/prompt"
	"geminify/settings"

	"github.com/bwmarrin/discordgo"
)

// RewriteSettingsCommand は /rewrite-settings コマンドです。設定の表示・変更・APIキーの確認を行います。
type RewriteSettingsCommand struct {
	App *AppContext
}

func (c *RewriteSettingsCommand) GetCommandDef() *discordgo.ApplicationCommand {
	modelChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Gemini 2.5 Flash", Value: settings.ModelFlash},
		{Name: "Gemini 2.5 Flash Lite", Value: settings.ModelFlashLite},
		{Name: "Gemini 2.5 Pro", Value: settings.ModelPro},
	}
	localeChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "English", Value: string(i18n.English)},
		{Name: "Türkçe", Value: string(i18n.Turkish)},
	}

	return &discordgo.ApplicationCommand{
		Name:                     "rewrite-settings",
		Description:              "Show or change the Gemini rewrite settings",
		DefaultMemberPermissions: int64Ptr(discordgo.PermissionManageGuild),
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show the current settings"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "verify", Description: "Check the configured API key"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Change settings",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "model", Description: "Gemini model", Choices: modelChoices},
					{Type: discordgo.ApplicationCommandOptionNumber, Name: "temperature", Description: "Creativity from 0.0 to 1.0"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "max_tokens", Description: "Maximum output tokens"},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "language_mode", Description: "Translate while rewriting"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "target_language", Description: "Target language code, or custom"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "custom_language", Description: "Language name when target is custom"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "locale", Description: "Message language", Choices: localeChoices},
				},
			},
		},
	}
}

func (c *RewriteSettingsCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return
	}
	sub := opts[0]

	switch sub.Name {
	case "show":
		c.respondSettings(s, i, c.App.Settings.Current(), "")

	case "set":
		preview := c.App.Settings.Current()
		applySettingsOptions(sub.Options, &preview)
		err := prompt.ValidateLanguage(preview.LanguageRewrite)
		var next settings.Settings
		if err == nil {
			next, err = c.App.Settings.Update(context.Background(), func(st *settings.Settings) {
				applySettingsOptions(sub.Options, st)
			})
		}
		if err != nil {
			c.App.Log.Warn("設定の変更に失敗しました", "error", err)
			respondEphemeral(s, i, "❌ "+i18n.ErrorMessage(c.App.locale(), err))
			return
		}
		c.respondSettings(s, i, next, "✅")

	case "verify":
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		})
		locale := c.App.locale()
		content := "✅ " + i18n.Message(locale, i18n.KeyAPIKeyValid)
		if err := c.App.Rewriter.Verify(context.Background()); err != nil {
			content = "❌ " + i18n.Message(locale, i18n.KeyAPIKeyInvalid) + "\n" + i18n.ErrorMessage(locale, err)
		}
		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	}
}

func (c *RewriteSettingsCommand) respondSettings(s *discordgo.Session, i *discordgo.InteractionCreate, st settings.Settings, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Embeds:  []*discordgo.MessageEmbed{settingsEmbed(st, c.App.Rewriter.IsConfigured())},
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// applySettingsOptions は set サブコマンドで指定された項目だけを st に反映します。
// 値の検証は settings.Manager.Update が行います。
func applySettingsOptions(opts []*discordgo.ApplicationCommandInteractionDataOption, st *settings.Settings) {
	for _, opt := range opts {
		switch opt.Name {
		case "model":
			st.Model = opt.StringValue()
		case "temperature":
			st.Temperature = opt.FloatValue()
		case "max_tokens":
			st.MaxTokens = int(opt.IntValue())
		case "language_mode":
			st.LanguageRewrite.Enabled = opt.BoolValue()
		case "target_language":
			st.LanguageRewrite.TargetLanguage = opt.StringValue()
		case "custom_language":
			st.LanguageRewrite.CustomLanguage = opt.StringValue()
		case "locale":
			st.Locale = string(i18n.Normalize(opt.StringValue()))
		}
	}
}

func settingsEmbed(st settings.Settings, configured bool) *discordgo.MessageEmbed {
	color := handlers.ColorGreen
	keyStatus := settings.MaskKey(st.APIKey)
	if !configured {
		color = handlers.ColorRed
		keyStatus = "not configured"
	}
	language := "off"
	if indicator := prompt.Indicator(st.LanguageRewrite); indicator != "" {
		language = indicator
	}
	return &discordgo.MessageEmbed{
		Title: "Geminify settings",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "API key", Value: keyStatus, Inline: true},
			{Name: "Model", Value: st.Model, Inline: true},
			{Name: "Temperature", Value: fmt.Sprintf("%.2f", st.Temperature), Inline: true},
			{Name: "Max tokens", Value: fmt.Sprintf("%d", st.MaxTokens), Inline: true},
			{Name: "Language rewrite", Value: language, Inline: true},
			{Name: "Locale", Value: st.Locale, Inline: true},
		},
	}
}

func (c *RewriteSettingsCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *RewriteSettingsCommand) HandleModal(s *discordgo.Session, i *discordgo.InteractionCreate)     {}
func (c *RewriteSettingsCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *RewriteSettingsCommand) GetCategory() string                                                  { return "Gemini" }
