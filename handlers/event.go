package handlers

import (
	"geminify/handlers/events"
	"geminify/interfaces"

	"github.com/bwmarrin/discordgo"
)

// EventHandler はDiscordのイベントを各ハンドラーに振り分けます。
type EventHandler struct {
	Log               interfaces.Logger
	CommandHandlers   map[string]interfaces.CommandHandler
	ComponentHandlers map[string]interfaces.CommandHandler
	Status            string
}

func NewEventHandler(log interfaces.Logger, commandHandlers, componentHandlers map[string]interfaces.CommandHandler, status string) *EventHandler {
	return &EventHandler{
		Log:               log,
		CommandHandlers:   commandHandlers,
		ComponentHandlers: componentHandlers,
		Status:            status,
	}
}

func (h *EventHandler) RegisterAllHandlers(s *discordgo.Session) {
	s.AddHandler(h.handleReady)
	s.AddHandler(h.handleInteractionCreate)
}

func (h *EventHandler) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	events.OnReady(s, r, h.Status, h.Log)
}

func (h *EventHandler) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	events.OnInteractionCreate(s, i, h.CommandHandlers, h.ComponentHandlers, h.Log)
}
