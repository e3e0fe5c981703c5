package poller

import (
	"context"
	"errors"
	"fmt"
	"log"

	"twitter-notifier/dedup"
	"twitter-notifier/models"
	"twitter-notifier/tracking"
)

// runCycle executes one poll of all tracked accounts. Launch order follows
// the snapshot (guild, channel, handle); completion order is not.
func (s *Service) runCycle() {
	// No new cycles after Stop.
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	// Never start a cycle before the session reported ready.
	select {
	case <-s.ready:
	case <-s.ctx.Done():
		return
	}

	entries, err := s.store.Snapshot(s.ctx)
	if err != nil {
		log.Printf("Failed to snapshot tracked accounts: %v", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	log.Printf("Polling %d tracked accounts...", len(entries))

	for _, entry := range entries {
		// Pace launches so one cycle does not burst the mirror. A Wait
		// error means the service context was cancelled.
		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}
		go s.checkEntry(s.ctx, entry)
	}
}

// checkEntry drives fetch → decide → CAS → notify for a single tracked
// account. Every failure is terminal for this entry only and never
// propagates to sibling tasks or the cycle.
func (s *Service) checkEntry(ctx context.Context, entry models.Tracked) {
	// Entries whose guild or channel is gone are orphaned: skip silently
	// and leave them for an explicit /twitter remove.
	if _, err := s.session.State.Guild(entry.GuildID); err != nil {
		return
	}
	if _, err := s.session.State.Channel(entry.ChannelID); err != nil {
		return
	}

	ref, err := s.fetcher.LatestPost(ctx, entry.Handle)
	if err != nil {
		log.Printf("Fetch failed for @%s: %v", entry.Handle, err)
		return
	}

	verdict := dedup.Decide(entry.LatestTweet, ref)
	if verdict.Kind != dedup.KindNew {
		return
	}

	err = s.store.CompareAndSetWatermark(ctx, entry.GuildID, entry.ChannelID, entry.Handle, entry.LatestTweet, verdict.PostID)
	switch {
	case errors.Is(err, tracking.ErrWatermarkConflict):
		// Lost the race: the winning task already recorded this id and
		// owns the notification.
		return
	case errors.Is(err, tracking.ErrNotTracked):
		// Removed while we were fetching.
		return
	case err != nil:
		log.Printf("Failed to persist watermark for @%s: %v", entry.Handle, err)
		return
	}

	if verdict.Initial {
		// First observation is recorded, never announced.
		return
	}

	roleID := entry.RoleID
	if roleID != "" {
		if _, err := s.session.State.Role(entry.GuildID, roleID); err != nil {
			roleID = "" // the role was deleted since it was configured
		}
	}

	link := fmt.Sprintf("%s/%s/status/%s", s.baseURL, entry.Handle, verdict.PostID)
	if err := s.notifier.Notify(entry.ChannelID, link, roleID); err != nil {
		// The watermark stays advanced: at most one announcement per post.
		log.Printf("Notification for @%s in channel %s failed: %v", entry.Handle, entry.ChannelID, err)
	}
}
