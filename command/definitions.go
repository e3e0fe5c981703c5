package command

import "github.com/bwmarrin/discordgo"

// TwitterCommand defines the structure for the /twitter command group.
type TwitterCommand struct{}

// Definition returns the application command definition.
func (c *TwitterCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "twitter",
		Description: "Twitter notification commands",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "add",
				Description: "Set notifications for a twitter account in a text channel",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "username",
						Description: "The twitter account to track",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
					},
					{
						Name:        "channel",
						Description: "The channel to notify in (defaults to this channel)",
						Type:        discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
						},
						Required: false,
					},
					{
						Name:        "role",
						Description: "The role to mention on new posts",
						Type:        discordgo.ApplicationCommandOptionRole,
						Required:    false,
					},
				},
			},
			{
				Name:        "remove",
				Description: "Remove a tracked twitter account from a channel",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "username",
						Description: "The twitter account to stop tracking",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
					},
					{
						Name:        "channel",
						Description: "The channel the account was tracked in (defaults to this channel)",
						Type:        discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
						},
						Required: false,
					},
				},
			},
			{
				Name:        "list",
				Description: "List all twitter accounts tracked in a channel",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "channel",
						Description: "The channel to list (defaults to this channel)",
						Type:        discordgo.ApplicationCommandOptionChannel,
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
						},
						Required: false,
					},
				},
			},
			{
				Name:        "lookup",
				Description: "View the latest post from a twitter account",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "username",
						Description: "The twitter account to look up",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
					},
				},
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}
