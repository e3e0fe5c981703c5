package bot

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"twitter-notifier/command"
	"twitter-notifier/config"
	"twitter-notifier/fetcher"
	"twitter-notifier/models"
	"twitter-notifier/notify"
	"twitter-notifier/poller"
	"twitter-notifier/tracking"
	"twitter-notifier/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// Bot encapsulates the bot's state and services.
type Bot struct {
	Session *discordgo.Session
	Store   *tracking.Store
	Fetcher fetcher.Fetcher
	Cfg     models.TwitterConfig
	Poller  *poller.Service
}

// NewBot creates and initializes a new Bot instance.
func NewBot() (*Bot, error) {
	config.LoadConfig()
	token := viper.GetString("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	cfg, err := config.Twitter()
	if err != nil {
		return nil, err
	}

	store, err := tracking.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening tracking store: %w", err)
	}

	f := fetcher.NewNitter(&http.Client{}, cfg.MirrorURL, time.Duration(cfg.FetchTimeout)*time.Second)

	b := &Bot{
		Session: dg,
		Store:   store,
		Fetcher: f,
		Cfg:     cfg,
	}
	b.Poller = poller.New(dg, store, f, notify.NewDiscord(dg), cfg)
	return b, nil
}

// Start opens the bot's session, registers handlers and starts the poller.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)
	b.Session.AddHandler(b.Poller.HandleReady)

	err := b.Session.Open()
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	utils.InitLogger(b.Session)

	// Register slash commands
	for _, def := range command.GetCommandDefinitions() {
		_, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", def)
		if err != nil {
			log.Printf("Cannot create '%v' command: %v", def.Name, err)
		}
	}

	if err := b.Poller.Start(); err != nil {
		return err
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop gracefully shuts down the poller, session and store.
func (b *Bot) Stop() {
	if b.Poller != nil {
		b.Poller.Stop()
	}
	if b.Session != nil {
		b.Session.Close()
	}
	if b.Store != nil {
		b.Store.Close()
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot)) {
	bot, err := NewBot()
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	if err := bot.Start(registerHandlers); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
}
