package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"twitter-notifier/models"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

var (
	// ErrNotTracked is returned when the (guild, channel, handle) key does not exist.
	ErrNotTracked = errors.New("account is not tracked")
	// ErrWatermarkConflict is returned when a compare-and-set loses against a
	// concurrent update. Expected control flow, not a failure.
	ErrWatermarkConflict = errors.New("watermark changed concurrently")
)

// Store persists tracked accounts and their watermarks in SQLite.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection. It takes the database path as input.
func Open(dbPath string) (*Store, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open the SQLite database. It will be created if it doesn't exist.
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers, so concurrent compare-and-set
	// calls resolve as a clean conflict instead of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTrackedTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tracked table: %w", err)
	}

	log.Println("Successfully connected to the database at", dbPath)
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTrackedTable creates the 'tracked' table if it doesn't exist.
func createTrackedTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS tracked (
        guild_id TEXT,
        channel_id TEXT,
        handle TEXT,
        role_id TEXT DEFAULT '',
        latest_tweet TEXT DEFAULT '',
        added_at INTEGER,
        PRIMARY KEY (guild_id, channel_id, handle)
    );`
	_, err := db.Exec(query)
	return err
}

// Snapshot returns all tracked entries ordered by guild, channel and handle.
// Each returned row is internally consistent (role and watermark as last
// written together); the listing as a whole is not a transaction.
func (s *Store) Snapshot(ctx context.Context) ([]models.Tracked, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT guild_id, channel_id, handle, role_id, latest_tweet, added_at
        FROM tracked
        ORDER BY guild_id, channel_id, handle`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked accounts: %w", err)
	}
	defer rows.Close()

	var entries []models.Tracked
	for rows.Next() {
		var t models.Tracked
		if err := rows.Scan(&t.GuildID, &t.ChannelID, &t.Handle, &t.RoleID, &t.LatestTweet, &t.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracked row: %w", err)
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

// CompareAndSetWatermark persists newID only if the stored watermark still
// equals oldID. It returns ErrWatermarkConflict when another writer advanced
// the watermark first and ErrNotTracked when the entry was removed.
func (s *Store) CompareAndSetWatermark(ctx context.Context, guildID, channelID, handle, oldID, newID string) error {
	handle = NormalizeHandle(handle)

	res, err := s.db.ExecContext(ctx, `
        UPDATE tracked SET latest_tweet = ?
        WHERE guild_id = ? AND channel_id = ? AND handle = ? AND latest_tweet = ?`,
		newID, guildID, channelID, handle, oldID)
	if err != nil {
		return fmt.Errorf("failed to update watermark for %s: %w", handle, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", handle, err)
	}
	if affected == 1 {
		return nil
	}

	// No row matched: either the key is gone or the watermark moved.
	var exists int
	err = s.db.QueryRowContext(ctx, `
        SELECT 1 FROM tracked
        WHERE guild_id = ? AND channel_id = ? AND handle = ?`,
		guildID, channelID, handle).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotTracked
	}
	if err != nil {
		return fmt.Errorf("failed to look up tracked entry %s: %w", handle, err)
	}
	return ErrWatermarkConflict
}

// Upsert creates or overwrites a tracked entry, seeding its watermark.
func (s *Store) Upsert(ctx context.Context, entry models.Tracked) error {
	entry.Handle = NormalizeHandle(entry.Handle)
	if entry.AddedAt == 0 {
		entry.AddedAt = time.Now().Unix()
	}

	stmt, err := s.db.PrepareContext(ctx, `
        INSERT OR REPLACE INTO tracked (
            guild_id, channel_id, handle, role_id, latest_tweet, added_at
        ) VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for saving tracked entry: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		entry.GuildID,
		entry.ChannelID,
		entry.Handle,
		entry.RoleID,
		entry.LatestTweet,
		entry.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save tracked entry %s: %w", entry.Handle, err)
	}
	return nil
}

// Remove deletes a tracked entry. Returns ErrNotTracked when it did not exist.
func (s *Store) Remove(ctx context.Context, guildID, channelID, handle string) error {
	handle = NormalizeHandle(handle)

	res, err := s.db.ExecContext(ctx, `
        DELETE FROM tracked
        WHERE guild_id = ? AND channel_id = ? AND handle = ?`,
		guildID, channelID, handle)
	if err != nil {
		return fmt.Errorf("failed to delete tracked entry %s: %w", handle, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for %s: %w", handle, err)
	}
	if affected == 0 {
		return ErrNotTracked
	}
	return nil
}

// ListChannel returns the entries tracked in one guild channel.
func (s *Store) ListChannel(ctx context.Context, guildID, channelID string) ([]models.Tracked, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT guild_id, channel_id, handle, role_id, latest_tweet, added_at
        FROM tracked
        WHERE guild_id = ? AND channel_id = ?
        ORDER BY handle`,
		guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked accounts for channel %s: %w", channelID, err)
	}
	defer rows.Close()

	var entries []models.Tracked
	for rows.Next() {
		var t models.Tracked
		if err := rows.Scan(&t.GuildID, &t.ChannelID, &t.Handle, &t.RoleID, &t.LatestTweet, &t.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracked row: %w", err)
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

// NormalizeHandle lowercases a twitter handle and strips a leading "@".
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
