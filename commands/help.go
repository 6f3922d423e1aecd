package commands

import (
	"fmt"
	"sort"
	"strings"

	"geminify/handlers"
	"geminify/interfaces"

	"github.com/bwmarrin/discordgo"
)

type HelpCommand struct {
	AllCommands map[string]interfaces.CommandHandler
}

func (c *HelpCommand) GetCommandDef() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "help",
		Description: "List the available commands",
	}
}

func (c *HelpCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{helpEmbed(c.AllCommands)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// helpEmbed はカテゴリごとにコマンドを並べた一覧を作ります。
// メッセージのコンテキストメニューは説明を持たないので「右クリック」と表示する
func helpEmbed(all map[string]interfaces.CommandHandler) *discordgo.MessageEmbed {
	categorized := make(map[string][]string)
	for _, h := range all {
		def := h.GetCommandDef()
		category := h.GetCategory()
		if category == "" {
			category = "Other"
		}
		line := fmt.Sprintf("`/%s` - %s", def.Name, def.Description)
		if def.Type == discordgo.MessageApplicationCommand {
			line = fmt.Sprintf("`%s` - right-click a message › Apps", def.Name)
		}
		categorized[category] = append(categorized[category], line)
	}

	categories := make([]string, 0, len(categorized))
	for k := range categorized {
		categories = append(categories, k)
	}
	sort.Strings(categories)

	embed := &discordgo.MessageEmbed{
		Title:  "Geminify commands",
		Color:  handlers.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{},
	}
	for _, category := range categories {
		lines := categorized[category]
		sort.Strings(lines)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "📂 " + category,
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func (c *HelpCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {}
func (c *HelpCommand) HandleModal(s *discordgo.Session, i *discordgo.InteractionCreate)     {}
func (c *HelpCommand) GetComponentIDs() []string                                            { return []string{} }
func (c *HelpCommand) GetCategory() string                                                  { return "Utility" }
