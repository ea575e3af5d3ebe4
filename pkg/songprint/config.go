package songprint

import "runtime"

// DefaultMatchScoreThreshold is the score below which the surrounding
// application reports no confident match.
const DefaultMatchScoreThreshold = 15.0

// Config holds configuration options for the engine.
type Config struct {
	// DBPath is the SQLite database file used when no Repository is
	// injected. Default: "songprint.sqlite3".
	DBPath string

	// MatchScoreThreshold is exposed to callers of IdentifySong; the
	// engine itself returns every candidate.
	MatchScoreThreshold float64

	// Workers bounds the fan-out stages of batch enrollment.
	Workers int

	// Logger receives pipeline diagnostics. Defaults to the shared
	// charmbracelet logger.
	Logger Logger

	// Repository overrides the default SQLite store.
	Repository Repository

	// Resolver fills Song.ExternalURI during enrollment. Nil disables
	// resolution.
	Resolver TrackResolver
}

// Option is a functional option for configuring the service.
type Option func(*Config)

// WithDBPath sets the database file path.
func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

// WithMatchThreshold sets the no-confident-match score threshold.
func WithMatchThreshold(threshold float64) Option {
	return func(c *Config) { c.MatchScoreThreshold = threshold }
}

// WithWorkers sets the batch enrollment worker count.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithLogger sets a custom logger.
func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithRepository sets a custom catalog repository.
func WithRepository(repo Repository) Option {
	return func(c *Config) { c.Repository = repo }
}

// WithResolver sets the external track resolver.
func WithResolver(resolver TrackResolver) Option {
	return func(c *Config) { c.Resolver = resolver }
}

func defaultConfig() *Config {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return &Config{
		DBPath:              "songprint.sqlite3",
		MatchScoreThreshold: DefaultMatchScoreThreshold,
		Workers:             workers,
	}
}
