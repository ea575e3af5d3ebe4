package songprint

import (
	"context"

	"songprint/pkg/models"
)

// Service is the public surface of the identification engine.
type Service interface {
	// AddSong enrolls one audio file under the given title and artist
	// and returns the assigned song ID.
	AddSong(ctx context.Context, audioPath, title, artist string) (uint32, error)

	// AddSongs enrolls a batch of files through the staged pipeline:
	// external URI resolution fans out, song insertion is serialized,
	// fingerprinting and posting writes fan out again. Each file
	// succeeds or fails independently.
	AddSongs(ctx context.Context, requests []AddRequest) []AddResult

	// IdentifySong fingerprints a query file and returns candidate
	// matches ranked by score. Callers decide whether the top score
	// crosses Config.MatchScoreThreshold.
	IdentifySong(ctx context.Context, audioPath string) ([]models.Match, error)

	// ListSongs returns all catalog entries.
	ListSongs() ([]models.Song, error)

	// Close releases the underlying repository.
	Close() error
}

// Repository is the persistence surface the engine depends on. The
// SQLite implementation lives in pkg/songprint/storage; anything
// honoring these contracts (strong consistency, idempotent posting
// inserts, referential integrity between postings and songs) works.
type Repository interface {
	InsertSong(title, artist string, externalURI *string) (uint32, error)
	UpdateExternalURI(title, artist, uri string) error
	GetSong(songID uint32) (*models.Song, error)
	ListSongs() ([]models.Song, error)
	InsertPosting(hash, anchorTimeMs, songID uint32) error
	StoreFingerprints(fingerprints map[uint32]models.Couple) error
	LookupPostings(hashes []uint32) (map[uint32][]models.Couple, error)
	Close() error
}

// TrackResolver resolves a song to an external streaming URI during
// enrollment. Implementations live outside this repository; the engine
// only needs this one call.
type TrackResolver interface {
	ResolveTrackURI(ctx context.Context, title, artist string) (string, error)
}

// Logger is the logging interface used by the service, allowing callers
// to plug in their own implementation.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
