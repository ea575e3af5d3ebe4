// Package storage persists the song catalog and fingerprint index in
// SQLite behind GORM.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"songprint/pkg/codes"
	"songprint/pkg/models"
)

// DefaultDBFile is used when no path is configured.
const DefaultDBFile = "songprint.sqlite3"

// Client wraps a GORM DB handle.
type Client struct {
	DB *gorm.DB
	db *sql.DB // underlying sql.DB for Close
}

// Song stores canonical metadata. SongKey (title + "---" + artist) is a
// unique secondary lookup alias next to the numeric primary key.
type Song struct {
	ID          uint32 `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"index:idx_song_meta,priority:1"`
	Artist      string `gorm:"index:idx_song_meta,priority:2"`
	Album       string
	ExternalURI *string `gorm:"column:external_uri"`
	SongKey     string  `gorm:"uniqueIndex:idx_song_key"`
	CreatedAt   time.Time
}

// Fingerprint is one posting of the inverted index. The composite
// primary key makes inserts idempotent per (hash, anchor, song).
type Fingerprint struct {
	Hash         uint32 `gorm:"primaryKey;autoIncrement:false;index:idx_fingerprint_hash"`
	AnchorTimeMs uint32 `gorm:"primaryKey;autoIncrement:false"`
	SongID       uint32 `gorm:"primaryKey;autoIncrement:false;index:idx_fingerprint_song"`
}

// Open opens (or creates) the SQLite database at dbPath and migrates
// the schema.
func Open(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Client{DB: db, db: sqlDB}, nil
}

// Close closes the underlying DB connection.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// InsertSong creates a new song row and returns its generated ID.
func (c *Client) InsertSong(title, artist string, externalURI *string) (uint32, error) {
	song := Song{
		Title:       title,
		Artist:      artist,
		ExternalURI: externalURI,
		SongKey:     models.SongKey(title, artist),
	}
	if err := c.DB.Create(&song).Error; err != nil {
		return 0, codes.Mark(codes.ErrDatabaseInsert, err)
	}
	return song.ID, nil
}

// UpdateExternalURI sets the external streaming URI on the song
// identified by title and artist.
func (c *Client) UpdateExternalURI(title, artist, uri string) error {
	res := c.DB.Model(&Song{}).
		Where("song_key = ?", models.SongKey(title, artist)).
		Update("external_uri", uri)
	if res.Error != nil {
		return codes.Mark(codes.ErrDatabaseInsert, res.Error)
	}
	return nil
}

// GetSong fetches a song by its primary key.
func (c *Client) GetSong(songID uint32) (*models.Song, error) {
	var row Song
	if err := c.DB.First(&row, songID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, codes.Markf(codes.ErrNoSongMatch, "song %d not found", songID)
		}
		return nil, codes.Mark(codes.ErrDatabaseQuery, err)
	}
	return &models.Song{
		ID:          row.ID,
		Title:       row.Title,
		Artist:      row.Artist,
		Album:       row.Album,
		ExternalURI: row.ExternalURI,
		SongKey:     row.SongKey,
	}, nil
}

// ListSongs returns every catalog entry ordered by ID.
func (c *Client) ListSongs() ([]models.Song, error) {
	var rows []Song
	if err := c.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, codes.Mark(codes.ErrDatabaseQuery, err)
	}
	out := make([]models.Song, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Song{
			ID:          row.ID,
			Title:       row.Title,
			Artist:      row.Artist,
			Album:       row.Album,
			ExternalURI: row.ExternalURI,
			SongKey:     row.SongKey,
		})
	}
	return out, nil
}

// InsertPosting stores one posting. Re-inserting the same
// (hash, anchor, song) triple is a no-op.
func (c *Client) InsertPosting(hash, anchorTimeMs, songID uint32) error {
	row := Fingerprint{Hash: hash, AnchorTimeMs: anchorTimeMs, SongID: songID}
	err := c.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return codes.Mark(codes.ErrDatabaseInsert, err)
	}
	return nil
}

// StoreFingerprints persists a hash -> posting map in batches.
func (c *Client) StoreFingerprints(fingerprints map[uint32]models.Couple) error {
	entries := make([]Fingerprint, 0, len(fingerprints))
	for hash, couple := range fingerprints {
		entries = append(entries, Fingerprint{
			Hash:         hash,
			AnchorTimeMs: couple.AnchorTimeMs,
			SongID:       couple.SongID,
		})
		if len(entries) >= 1000 {
			if err := c.DB.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(entries, 500).Error; err != nil {
				return codes.Mark(codes.ErrDatabaseInsert, err)
			}
			entries = entries[:0]
		}
	}
	if len(entries) > 0 {
		if err := c.DB.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(entries, 500).Error; err != nil {
			return codes.Mark(codes.ErrDatabaseInsert, err)
		}
	}
	return nil
}

// LookupPostings retrieves the posting lists for the given hashes in a
// single query. Hashes absent from the index are simply missing from
// the result map.
func (c *Client) LookupPostings(hashes []uint32) (map[uint32][]models.Couple, error) {
	result := make(map[uint32][]models.Couple)
	if len(hashes) == 0 {
		return result, nil
	}

	var rows []Fingerprint
	if err := c.DB.Where("hash IN ?", hashes).
		Order("hash").Order("anchor_time_ms").Order("song_id").
		Find(&rows).Error; err != nil {
		return nil, codes.Mark(codes.ErrDatabaseQuery, err)
	}

	for _, row := range rows {
		result[row.Hash] = append(result[row.Hash], models.Couple{
			SongID:       row.SongID,
			AnchorTimeMs: row.AnchorTimeMs,
		})
	}
	return result, nil
}

// EraseAll drops every song and posting. Used by the CLI erase command.
func (c *Client) EraseAll() error {
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Fingerprint{}).Error; err != nil {
			return codes.Mark(codes.ErrDatabaseInsert, err)
		}
		if err := tx.Where("1 = 1").Delete(&Song{}).Error; err != nil {
			return codes.Mark(codes.ErrDatabaseInsert, err)
		}
		return nil
	})
}
