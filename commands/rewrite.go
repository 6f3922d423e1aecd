package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"geminify/apperr"
	"geminify/handlers"
	"geminify/i18n"
	"geminify/prompt"
	"geminify/rewrite"
	"geminify/storage"

	"github.com/bwmarrin/discordgo"
)

const (
	discordHost      = "discord"
	maxMessageLength = 2000
	maxFieldLength   = 1024
	progressCells    = 10

	defaultPreviewTTL = 15 * time.Minute
)

// rewriteRunner は /rewrite とメッセージコマンドで共通の実行部分です。
type rewriteRunner struct {
	app *AppContext
}

// run は応答を保留してから書き換えを開始し、進捗に合わせて応答を編集します。
func (r *rewriteRunner) run(s *discordgo.Session, i *discordgo.InteractionCreate, req rewrite.Request) {
	log := r.app.Log
	locale := r.app.locale()

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Error("rewriteコマンドの初期応答に失敗", "error", err)
		return
	}

	inv, err := r.app.Rewriter.Start(context.Background(), req)
	if err != nil {
		content := "❌ " + i18n.ErrorMessage(locale, err)
		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
		return
	}

	for p := range inv.Progress() {
		content := progressContent(p)
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
			log.Warn("進捗の更新に失敗", "error", err)
		}
	}
	res := inv.Wait()

	if !res.Success {
		content := "❌ " + res.Message
		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
		return
	}

	if res.Strategy == rewrite.StrategyPreview {
		r.sendPreview(s, i, res)
		return
	}

	content, err := resultContent(locale, res)
	if err != nil {
		content = "❌ " + i18n.ErrorMessage(locale, err)
	}
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
}

func (r *rewriteRunner) sendPreview(s *discordgo.Session, i *discordgo.InteractionCreate, res rewrite.Result) {
	locale := r.app.locale()
	now := time.Now()
	p := storage.Preview{
		ID:        res.ID,
		Owner:     interactionUserID(i),
		Status:    storage.PreviewPending,
		Result:    res,
		CreatedAt: now,
		ExpiresAt: now.Add(r.app.PreviewTTL),
	}
	if err := r.app.Store.SavePreview(context.Background(), p); err != nil {
		r.app.Log.Error("プレビューの保存に失敗", "id", res.ID, "error", err)
		content := "❌ " + i18n.ErrorMessage(locale, err)
		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
		return
	}

	empty := ""
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &empty,
		Embeds:     &[]*discordgo.MessageEmbed{previewEmbed(locale, res)},
		Components: &[]discordgo.MessageComponent{previewButtons(locale, res.ID)},
	})
}

// RewriteCommand は /rewrite コマンドです。プレビューの承認・却下ボタンも処理します。
type RewriteCommand struct {
	runner *rewriteRunner
}

func NewRewriteCommand(app *AppContext) *RewriteCommand {
	if app.PreviewTTL <= 0 {
		app.PreviewTTL = defaultPreviewTTL
	}
	return &RewriteCommand{runner: &rewriteRunner{app: app}}
}

func (c *RewriteCommand) GetCommandDef() *discordgo.ApplicationCommand {
	styleChoices := []*discordgo.ApplicationCommandOptionChoice{}
	for _, st := range prompt.Styles() {
		styleChoices = append(styleChoices, &discordgo.ApplicationCommandOptionChoice{Name: string(st), Value: string(st)})
	}
	strategyChoices := []*discordgo.ApplicationCommandOptionChoice{}
	for _, st := range []rewrite.Strategy{rewrite.StrategyReplace, rewrite.StrategyAppend, rewrite.StrategyPreview} {
		strategyChoices = append(strategyChoices, &discordgo.ApplicationCommandOptionChoice{Name: string(st), Value: string(st)})
	}

	return &discordgo.ApplicationCommand{
		Name:        "rewrite",
		Description: "Rewrite text with Gemini",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Text to rewrite", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "style", Description: "Writing style", Choices: styleChoices},
			{Type: discordgo.ApplicationCommandOptionString, Name: "strategy", Description: "How to deliver the result", Choices: strategyChoices},
			{Type: discordgo.ApplicationCommandOptionString, Name: "instructions", Description: "Custom instructions instead of a style"},
		},
	}
}

func (c *RewriteCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	req, err := requestFromOptions(i.ApplicationCommandData().Options)
	if err != nil {
		respondEphemeral(s, i, "❌ "+i18n.ErrorMessage(c.runner.app.locale(), err))
		return
	}
	c.runner.run(s, i, req)
}

// HandleComponent はプレビューの承認・却下ボタンを処理します。押せるのはプレビューを作成したユーザーだけです。
func (c *RewriteCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	app := c.runner.app
	locale := app.locale()

	status, id, ok := parsePreviewCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}
	p, err := app.Store.ResolvePreview(context.Background(), id, interactionUserID(i), status, time.Now())
	if err != nil {
		app.Log.Info("プレビューを解決できませんでした", "id", id, "error", err)
		respondEphemeral(s, i, "❌ "+previewErrorMessage(err))
		return
	}

	var (
		content string
		embeds  []*discordgo.MessageEmbed
	)
	if status == storage.PreviewAccepted {
		content = "✅ " + i18n.Message(locale, i18n.KeyRewriteSuccess) + "\n" + truncate(p.Result.Rewritten, maxMessageLength-100)
	} else {
		content = "🚫 " + i18n.Message(locale, i18n.KeyChangesRejected)
		embeds = []*discordgo.MessageEmbed{}
	}
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     embeds,
			Components: []discordgo.MessageComponent{},
		},
	})
}

func (c *RewriteCommand) HandleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *RewriteCommand) GetComponentIDs() []string {
	return []string{handlers.PreviewAcceptPrefix, handlers.PreviewRejectPrefix}
}
func (c *RewriteCommand) GetCategory() string { return "Gemini" }

// RewriteMessageCommand はメッセージのコンテキストメニュー「Rewrite with Gemini」です。
// 結果は常にプレビューとして表示します。
type RewriteMessageCommand struct {
	runner *rewriteRunner
}

func (c *RewriteMessageCommand) GetCommandDef() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name: "Rewrite with Gemini",
		Type: discordgo.MessageApplicationCommand,
	}
}

func (c *RewriteMessageCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	var text string
	if data.Resolved != nil {
		if msg, ok := data.Resolved.Messages[data.TargetID]; ok {
			text = msg.Content
		}
	}
	c.runner.run(s, i, rewrite.Request{
		Text:     text,
		Strategy: rewrite.StrategyPreview,
		Host:     discordHost,
	})
}

func (c *RewriteMessageCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *RewriteMessageCommand) HandleModal(s *discordgo.Session, i *discordgo.InteractionCreate)     {}
func (c *RewriteMessageCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *RewriteMessageCommand) GetCategory() string                                                  { return "Gemini" }

// requestFromOptions は /rewrite のオプションから書き換え要求を作ります。
func requestFromOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (rewrite.Request, error) {
	req := rewrite.Request{Strategy: rewrite.StrategyReplace, Host: discordHost}
	for _, opt := range opts {
		switch opt.Name {
		case "text":
			req.Text = opt.StringValue()
		case "style":
			style, err := prompt.ParseStyle(opt.StringValue())
			if err != nil {
				return rewrite.Request{}, apperr.Validation(err.Error())
			}
			req.Style = style
		case "strategy":
			strategy, err := rewrite.ParseStrategy(opt.StringValue())
			if err != nil {
				return rewrite.Request{}, apperr.Validation(err.Error())
			}
			req.Strategy = strategy
		case "instructions":
			req.CustomInstructions = opt.StringValue()
		}
	}
	return req, nil
}

// progressContent は進捗を1行のテキストにします。例: "⏳ ███░░░░░░░ 30% Preparing the request..."
func progressContent(p rewrite.Progress) string {
	filled := p.Percent * progressCells / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressCells-filled)
	return fmt.Sprintf("⏳ %s %d%% %s", bar, p.Percent, p.Message)
}

// resultContent は REPLACE / APPEND の結果をメッセージ本文にします。
// 元のテキストを文書とみなして Apply を適用します。
func resultContent(locale string, res rewrite.Result) (string, error) {
	doc := rewrite.Document{Text: res.Original}
	if err := rewrite.Apply(res, &doc, res.Strategy); err != nil {
		return "", err
	}
	key := i18n.KeyRewriteSuccess
	if res.Strategy == rewrite.StrategyAppend {
		key = i18n.KeyAppendSuccess
	}
	header := "✅ " + i18n.Message(locale, key) + "\n"
	return header + truncate(doc.Text, maxMessageLength-len([]rune(header))), nil
}

func previewEmbed(locale string, res rewrite.Result) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: i18n.Message(locale, i18n.KeyPreviewTitle),
		Color: handlers.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: i18n.Message(locale, i18n.KeyOriginalText), Value: truncate(res.Original, maxFieldLength)},
			{Name: i18n.Message(locale, i18n.KeyRewrittenText), Value: truncate(res.Rewritten, maxFieldLength)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%s · %d attempt(s)", res.Model, res.Attempts)},
	}
}

func previewButtons(locale, id string) discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    i18n.Message(locale, i18n.KeyAccept),
				Style:    discordgo.SuccessButton,
				CustomID: handlers.PreviewAcceptPrefix + id,
			},
			discordgo.Button{
				Label:    i18n.Message(locale, i18n.KeyReject),
				Style:    discordgo.DangerButton,
				CustomID: handlers.PreviewRejectPrefix + id,
			},
		},
	}
}

func parsePreviewCustomID(customID string) (storage.PreviewStatus, string, bool) {
	switch {
	case strings.HasPrefix(customID, handlers.PreviewAcceptPrefix):
		id := strings.TrimPrefix(customID, handlers.PreviewAcceptPrefix)
		return storage.PreviewAccepted, id, id != ""
	case strings.HasPrefix(customID, handlers.PreviewRejectPrefix):
		id := strings.TrimPrefix(customID, handlers.PreviewRejectPrefix)
		return storage.PreviewRejected, id, id != ""
	default:
		return "", "", false
	}
}

func previewErrorMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrAlreadyResolved):
		return "This preview was already resolved."
	case errors.Is(err, storage.ErrExpired):
		return "This preview has expired."
	default:
		return "This preview is not available."
	}
}
