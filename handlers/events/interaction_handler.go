package events

import (
	"strings"

	"geminify/interfaces"

	"github.com/bwmarrin/discordgo"
)

// OnInteractionCreate は、すべてのインタラクションを処理する中央ハブです。
// ハンドラー内のパニックはログに残して握りつぶし、Botを落としません。
func OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, commandHandlers, componentHandlers map[string]interfaces.CommandHandler, log interfaces.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("interaction handler panicked", "type", i.Type, "panic", r)
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		if h, ok := commandHandlers[name]; ok {
			h.Handle(s, i)
			return
		}
		log.Warn("Unknown command received", "command", name)

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if h := LookupComponent(componentHandlers, customID); h != nil {
			h.HandleComponent(s, i)
			return
		}
		log.Warn("Unknown component interaction received", "customID", customID)

	case discordgo.InteractionModalSubmit:
		customID := i.ModalSubmitData().CustomID
		if h := LookupComponent(componentHandlers, customID); h != nil {
			h.HandleModal(s, i)
			return
		}
		log.Warn("Unknown modal submission received", "customID", customID)
	}
}

// LookupComponent は完全一致、なければ最長のプレフィックス一致でハンドラーを探します。
func LookupComponent(handlers map[string]interfaces.CommandHandler, customID string) interfaces.CommandHandler {
	if h, ok := handlers[customID]; ok {
		return h
	}
	var (
		best    interfaces.CommandHandler
		bestLen int
	)
	for prefix, h := range handlers {
		if len(prefix) > bestLen && strings.HasPrefix(customID, prefix) {
			best, bestLen = h, len(prefix)
		}
	}
	return best
}
