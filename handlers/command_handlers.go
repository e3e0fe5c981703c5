package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"twitter-notifier/bot"
	"twitter-notifier/fetcher"
	"twitter-notifier/models"
	"twitter-notifier/tracking"
	"twitter-notifier/utils"

	"github.com/bwmarrin/discordgo"
)

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	auth, err := utils.NewAuth()
	if err != nil {
		log.Printf("Failed to create auth instance: %v", err)
		return
	}

	commandName := i.ApplicationCommandData().Name
	requiredLevel := requiredPermission(i)

	if !auth.CheckPermission(s, i, requiredLevel) {
		respondEphemeral(s, i, "🚫 You do not have permission to run this command.")
		return
	}

	switch commandName {
	case "twitter":
		HandleTwitter(b, s, i)
	case "ping":
		HandlePing(s, i)
	default:
		respondEphemeral(s, i, "🚫 Internal error: unknown command.")
	}
}

// requiredPermission maps a command (and /twitter subcommand) to a level.
func requiredPermission(i *discordgo.InteractionCreate) string {
	data := i.ApplicationCommandData()
	if data.Name != "twitter" || len(data.Options) == 0 {
		return "guest"
	}
	switch data.Options[0].Name {
	case "add", "remove", "list":
		return "admin"
	default:
		return "guest"
	}
}

// HandleTwitter dispatches the /twitter subcommands.
func HandleTwitter(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondEphemeral(s, i, "🚫 Internal error: missing subcommand.")
		return
	}
	sub := data.Options[0]

	if sub.Name != "lookup" && i.GuildID == "" {
		respondEphemeral(s, i, "This command can only be used in a server.")
		return
	}

	switch sub.Name {
	case "add":
		handleAdd(b, s, i, sub)
	case "remove":
		handleRemove(b, s, i, sub)
	case "list":
		handleList(b, s, i, sub)
	case "lookup":
		handleLookup(b, s, i, sub)
	default:
		respondEphemeral(s, i, "🚫 Internal error: unknown subcommand.")
	}
}

// HandlePing handles the logic for the /ping command.
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
}

// handleAdd sets up notifications for a twitter account. The entry is seeded
// with the account's current latest post so the first poll after the add
// reports it unchanged instead of announcing an old post.
func handleAdd(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	optionMap := subOptions(sub)

	username := tracking.NormalizeHandle(optionMap["username"].StringValue())
	channelID := i.ChannelID
	if opt, ok := optionMap["channel"]; ok {
		channelID = opt.ChannelValue(nil).ID
	}
	var role *discordgo.Role
	if opt, ok := optionMap["role"]; ok {
		role = opt.RoleValue(s, i.GuildID)
	}

	// The fetch may retry for a while, so defer the response first.
	deferResponse(s, i)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		ref, err := b.Fetcher.LatestPost(ctx, username)
		if err != nil {
			editResponse(s, i, "No twitter page was found with that name.")
			return
		}
		if !ref.Exists {
			editResponse(s, i, "Error: That account has no post.")
			return
		}

		entry := models.Tracked{
			GuildID:     i.GuildID,
			ChannelID:   channelID,
			Handle:      username,
			LatestTweet: ref.ID,
		}
		if role != nil {
			entry.RoleID = role.ID
		}
		if err := b.Store.Upsert(ctx, entry); err != nil {
			log.Printf("Failed to save tracked entry for @%s: %v", username, err)
			editResponse(s, i, "🚫 Internal error: could not save the tracked account.")
			return
		}

		utils.Info("tracking", "add", fmt.Sprintf("@%s in channel %s", username, channelID))

		if role != nil {
			editResponse(s, i, fmt.Sprintf(
				"Users with **%s** role will be notified in <#%s> everytime **%s** posts a tweet.",
				role.Name, channelID, username))
		} else {
			editResponse(s, i, fmt.Sprintf(
				"A notification will be sent in <#%s> everytime **%s** posts a tweet.",
				channelID, username))
		}
	}()
}

// handleRemove deletes a tracked account from a channel.
func handleRemove(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	optionMap := subOptions(sub)

	username := tracking.NormalizeHandle(optionMap["username"].StringValue())
	channelID := i.ChannelID
	if opt, ok := optionMap["channel"]; ok {
		channelID = opt.ChannelValue(nil).ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := b.Store.Remove(ctx, i.GuildID, channelID, username)
	if errors.Is(err, tracking.ErrNotTracked) {
		entries, listErr := b.Store.ListChannel(ctx, i.GuildID, channelID)
		if listErr == nil && len(entries) == 0 {
			respond(s, i, fmt.Sprintf("No notifications for any of the twitter pages were set in <#%s>.", channelID))
		} else {
			respond(s, i, fmt.Sprintf("No notifications were set for **%s** in <#%s>.", username, channelID))
		}
		return
	}
	if err != nil {
		log.Printf("Failed to remove tracked entry for @%s: %v", username, err)
		respondEphemeral(s, i, "🚫 Internal error: could not remove the tracked account.")
		return
	}

	utils.Info("tracking", "remove", fmt.Sprintf("@%s from channel %s", username, channelID))
	respond(s, i, fmt.Sprintf("Removed notifications for **%s** from <#%s>.", username, channelID))
}

// handleList shows every account tracked in a channel.
func handleList(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	optionMap := subOptions(sub)

	channelID := i.ChannelID
	if opt, ok := optionMap["channel"]; ok {
		channelID = opt.ChannelValue(nil).ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := b.Store.ListChannel(ctx, i.GuildID, channelID)
	if err != nil {
		log.Printf("Failed to list tracked entries for channel %s: %v", channelID, err)
		respondEphemeral(s, i, "🚫 Internal error: could not read the tracked accounts.")
		return
	}
	if len(entries) == 0 {
		respond(s, i, fmt.Sprintf("No notifications for any of the twitter pages were set in <#%s>.", channelID))
		return
	}

	links := make([]string, len(entries))
	for idx, entry := range entries {
		links[idx] = fmt.Sprintf("%s/%s", b.Cfg.BaseURL, entry.Handle)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "List of Twitter Pages",
		Description: strings.Join(links, ", "),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text:    "Twitter",
			IconURL: "https://i.imgur.com/b4Nmq13.png",
		},
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// handleLookup performs a one-off fetch and replies with the latest post
// link. It never touches the tracking store.
func handleLookup(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	optionMap := subOptions(sub)
	username := tracking.NormalizeHandle(optionMap["username"].StringValue())

	deferResponse(s, i)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		ref, err := b.Fetcher.LatestPost(ctx, username)
		if err != nil {
			if fetcher.KindOf(err) != fetcher.KindNotFound {
				log.Printf("Lookup failed for @%s: %v", username, err)
			}
			editResponse(s, i, "No twitter page was found with that name.")
			return
		}
		if !ref.Exists {
			editResponse(s, i, "Error: That account has no post.")
			return
		}
		editResponse(s, i, fmt.Sprintf("%s/%s/status/%s", b.Cfg.BaseURL, username, ref.ID))
	}()
}

// subOptions flattens a subcommand's options into a name-keyed map.
func subOptions(sub *discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, opt := range sub.Options {
		optionMap[opt.Name] = opt
	}
	return optionMap
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		log.Printf("Failed to edit interaction response: %v", err)
	}
}
