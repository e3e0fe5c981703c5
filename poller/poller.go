// Package poller runs the recurring poll cycle over all tracked accounts.
package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"twitter-notifier/fetcher"
	"twitter-notifier/models"
	"twitter-notifier/notify"
	"twitter-notifier/tracking"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

// Service owns the periodic poll driver. One cycle snapshots all tracked
// accounts and fans out one goroutine per entry, paced by the launch limiter.
// Cycles may overlap when fetch latency exceeds the interval; the store's
// compare-and-set is the only cross-task mutual exclusion.
type Service struct {
	session  *discordgo.Session
	store    *tracking.Store
	fetcher  fetcher.Fetcher
	notifier notify.Notifier

	baseURL  string
	interval time.Duration
	limiter  *rate.Limiter

	cron      *cron.Cron
	ready     chan struct{}
	readyOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires a poll service from its collaborators and configuration.
func New(session *discordgo.Session, store *tracking.Store, f fetcher.Fetcher, n notify.Notifier, cfg models.TwitterConfig) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	interval := time.Duration(cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	pacing := time.Duration(cfg.Pacing) * time.Second
	if pacing <= 0 {
		pacing = time.Second
	}

	return &Service{
		session:  session,
		store:    store,
		fetcher:  f,
		notifier: n,
		baseURL:  cfg.BaseURL,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(pacing), 1),
		ready:    make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// HandleReady records that the gateway session is ready. Registered as a
// discordgo event handler; cycles do not start before the first Ready.
func (s *Service) HandleReady(_ *discordgo.Session, _ *discordgo.Ready) {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Start schedules the recurring cycle.
func (s *Service) Start() error {
	log.Println("Initializing poll scheduler...")
	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.runCycle)
	if err != nil {
		return fmt.Errorf("could not set up poll cycle: %w", err)
	}
	s.cron.Start()
	log.Printf("Poll cycle scheduled to run every %s.", s.interval)
	return nil
}

// Stop prevents new cycles and new task launches. Already-launched tasks run
// to completion unobserved; each one is CAS-guarded and safe on its own.
func (s *Service) Stop() {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
		log.Println("Poll scheduler stopped.")
	}
}
