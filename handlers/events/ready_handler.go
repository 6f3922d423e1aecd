package events

import (
	"geminify/interfaces"

	"github.com/bwmarrin/discordgo"
)

// OnReady は、Botの準備ができたときに呼び出され、ステータスを設定します。
func OnReady(s *discordgo.Session, r *discordgo.Ready, status string, log interfaces.Logger) {
	log.Info("Bot is ready", "user", r.User.String(), "guilds", len(r.Guilds))
	if err := s.UpdateGameStatus(0, status); err != nil {
		log.Warn("ステータスの更新に失敗しました", "error", err)
	}
}
