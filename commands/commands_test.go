package commands

import (
	"testing"
	"time"

	"geminify/apperr"
	"geminify/handlers"
	"geminify/prompt"
	"geminify/rewrite"
	"geminify/settings"
	"geminify/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func TestRequestFromOptions(t *testing.T) {
	req, err := requestFromOptions([]*discordgo.ApplicationCommandInteractionDataOption{
		stringOpt("text", "hello world"),
		stringOpt("style", "technical"),
		stringOpt("strategy", "append"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", req.Text)
	assert.Equal(t, prompt.StyleTechnical, req.Style)
	assert.Equal(t, rewrite.StrategyAppend, req.Strategy)
	assert.Equal(t, discordHost, req.Host)

	req, err = requestFromOptions([]*discordgo.ApplicationCommandInteractionDataOption{stringOpt("text", "x")})
	require.NoError(t, err)
	assert.Equal(t, rewrite.StrategyReplace, req.Strategy)

	_, err = requestFromOptions([]*discordgo.ApplicationCommandInteractionDataOption{stringOpt("style", "pirate")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestProgressContent(t *testing.T) {
	got := progressContent(rewrite.Progress{Percent: 30, Message: "Preparing the request..."})
	assert.Equal(t, "⏳ ███░░░░░░░ 30% Preparing the request...", got)

	got = progressContent(rewrite.Progress{Percent: 100, Message: "Done"})
	assert.Contains(t, got, "██████████ 100%")
}

func TestResultContent(t *testing.T) {
	res := rewrite.Result{Original: "hello world", Rewritten: "Hello, World.", Success: true, Strategy: rewrite.StrategyReplace}

	got, err := resultContent("en", res)
	require.NoError(t, err)
	assert.Equal(t, "✅ Text successfully rewritten!\nHello, World.", got)

	res.Strategy = rewrite.StrategyAppend
	got, err = resultContent("en", res)
	require.NoError(t, err)
	assert.Contains(t, got, "hello world"+rewrite.AppendSeparator+"Hello, World.")

	_, err = resultContent("en", rewrite.Result{Strategy: rewrite.StrategyReplace})
	assert.Error(t, err)
}

func TestParsePreviewCustomID(t *testing.T) {
	status, id, ok := parsePreviewCustomID(handlers.PreviewAcceptPrefix + "abc")
	assert.True(t, ok)
	assert.Equal(t, storage.PreviewAccepted, status)
	assert.Equal(t, "abc", id)

	status, id, ok = parsePreviewCustomID(handlers.PreviewRejectPrefix + "xyz")
	assert.True(t, ok)
	assert.Equal(t, storage.PreviewRejected, status)
	assert.Equal(t, "xyz", id)

	_, _, ok = parsePreviewCustomID(handlers.PreviewAcceptPrefix)
	assert.False(t, ok)
	_, _, ok = parsePreviewCustomID("other")
	assert.False(t, ok)
}

func TestPreviewButtonsCarryID(t *testing.T) {
	row := previewButtons("tr", "p1")
	require.Len(t, row.Components, 2)
	accept := row.Components[0].(discordgo.Button)
	reject := row.Components[1].(discordgo.Button)
	assert.Equal(t, handlers.PreviewAcceptPrefix+"p1", accept.CustomID)
	assert.Equal(t, handlers.PreviewRejectPrefix+"p1", reject.CustomID)
	assert.Equal(t, "✅ Kabul Et", accept.Label)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "çok…", truncate("çok uzun metin", 4))
	assert.Len(t, []rune(truncate(string(make([]rune, 3000)), maxFieldLength)), maxFieldLength)
}

func TestApplySettingsOptions(t *testing.T) {
	st := settings.Defaults()
	applySettingsOptions([]*discordgo.ApplicationCommandInteractionDataOption{
		stringOpt("model", settings.ModelPro),
		{Name: "temperature", Type: discordgo.ApplicationCommandOptionNumber, Value: 0.25},
		{Name: "max_tokens", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(1024)},
		{Name: "language_mode", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
		stringOpt("target_language", "turkish"),
		stringOpt("locale", "tr-TR"),
	}, &st)

	assert.Equal(t, settings.ModelPro, st.Model)
	assert.InDelta(t, 0.25, st.Temperature, 1e-9)
	assert.Equal(t, 1024, st.MaxTokens)
	assert.True(t, st.LanguageRewrite.Enabled)
	assert.Equal(t, "turkish", st.LanguageRewrite.TargetLanguage)
	assert.Equal(t, "tr", st.Locale)
	assert.NoError(t, st.Validate())
}

func TestRegisterCommands(t *testing.T) {
	app := &AppContext{}
	commandHandlers, componentHandlers, defs := RegisterCommands(app)

	assert.Len(t, defs, 5)
	for _, name := range []string{"rewrite", "Rewrite with Gemini", "rewrite-settings", "ping", "help"} {
		assert.Contains(t, commandHandlers, name)
	}
	assert.Contains(t, componentHandlers, handlers.PreviewAcceptPrefix)
	assert.Contains(t, componentHandlers, handlers.PreviewRejectPrefix)
	assert.Equal(t, defaultPreviewTTL, app.PreviewTTL)

	embed := helpEmbed(commandHandlers)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "📂 Gemini", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "right-click")
}

func TestHealthEmbed(t *testing.T) {
	ok := healthEmbed(healthReport{DatabaseOK: true, Configured: true, Platform: "desktop", Uptime: 26*time.Hour + 5*time.Minute})
	assert.Equal(t, handlers.ColorGreen, ok.Color)
	assert.Equal(t, "```1d 2h 5m```", ok.Fields[len(ok.Fields)-1].Value)

	down := healthEmbed(healthReport{DatabaseOK: false, Configured: true})
	assert.Equal(t, handlers.ColorRed, down.Color)

	noKey := healthEmbed(healthReport{DatabaseOK: true, Configured: false})
	assert.Equal(t, handlers.ColorYellow, noKey.Color)
}
