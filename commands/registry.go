package commands

import (
	"geminify/interfaces"

	"github.com/bwmarrin/discordgo"
)

// RegisterCommands はすべてのコマンドハンドラーを初期化して返します。
func RegisterCommands(appCtx *AppContext) (map[string]interfaces.CommandHandler, map[string]interfaces.CommandHandler, []*discordgo.ApplicationCommand) {
	commandHandlers := make(map[string]interfaces.CommandHandler)
	componentHandlers := make(map[string]interfaces.CommandHandler)
	registeredCommands := make([]*discordgo.ApplicationCommand, 0)

	rewriteCmd := NewRewriteCommand(appCtx)
	commands := []interfaces.CommandHandler{
		rewriteCmd,
		&RewriteMessageCommand{runner: rewriteCmd.runner},
		&RewriteSettingsCommand{App: appCtx},
		&PingCommand{App: appCtx},
		&HelpCommand{AllCommands: commandHandlers},
	}

	for _, cmd := range commands {
		commandDef := cmd.GetCommandDef()
		commandHandlers[commandDef.Name] = cmd
		registeredCommands = append(registeredCommands, commandDef)

		for _, id := range cmd.GetComponentIDs() {
			componentHandlers[id] = cmd
		}
	}
	return commandHandlers, componentHandlers, registeredCommands
}
