package models

// Tracked represents one twitter account tracked in a guild channel.
type Tracked struct {
	GuildID     string `db:"guild_id"`
	ChannelID   string `db:"channel_id"`
	Handle      string `db:"handle"`       // Normalized to lowercase
	RoleID      string `db:"role_id"`      // Empty when no role is mentioned
	LatestTweet string `db:"latest_tweet"` // Watermark; empty when never observed
	AddedAt     int64  `db:"added_at"`     // Unix timestamp
}
