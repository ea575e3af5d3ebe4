package songprint

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"songprint/pkg/logger"
	"songprint/pkg/models"
	"songprint/pkg/songprint/audio"
	"songprint/pkg/songprint/fingerprint"
	"songprint/pkg/songprint/match"
	"songprint/pkg/songprint/storage"
)

type engineService struct {
	repo   Repository
	log    Logger
	config *Config
}

// NewService builds a Service from the given options, opening the
// default SQLite repository when none is injected.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	repo := cfg.Repository
	if repo == nil {
		client, err := storage.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening catalog repository: %w", err)
		}
		repo = client
	}

	return &engineService{
		repo:   repo,
		log:    cfg.Logger,
		config: cfg,
	}, nil
}

func (s *engineService) AddSong(ctx context.Context, audioPath, title, artist string) (uint32, error) {
	trace := uuid.NewString()[:8]
	s.log.Infof("[%s] enrolling %q by %q from %s", trace, title, artist, audioPath)

	info, err := audio.ReadWavInfo(audioPath)
	if err != nil {
		return 0, err
	}

	var externalURI *string
	if s.config.Resolver != nil {
		uri, err := s.config.Resolver.ResolveTrackURI(ctx, title, artist)
		switch {
		case err != nil:
			s.log.Warnf("[%s] track resolution failed: %v", trace, err)
		case uri != "":
			externalURI = &uri
		}
	}

	songID, err := s.repo.InsertSong(title, artist, externalURI)
	if err != nil {
		return 0, err
	}

	fingerprints, err := fingerprintWav(info, songID)
	if err != nil {
		return 0, err
	}
	s.log.Infof("[%s] %s hashes from %s of audio", trace,
		humanize.Comma(int64(len(fingerprints))), humanize.SIWithDigits(info.DurationSec, 1, "s"))

	if err := s.repo.StoreFingerprints(fingerprints); err != nil {
		return 0, err
	}

	s.log.Infof("[%s] enrolled song id=%d", trace, songID)
	return songID, nil
}

func (s *engineService) AddSongs(ctx context.Context, requests []AddRequest) []AddResult {
	results := make([]AddResult, len(requests))
	for i, req := range requests {
		results[i] = AddResult{Path: req.Path}
	}

	// Stage 1: external URI resolution fans out.
	uris := make([]*string, len(requests))
	if s.config.Resolver != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Workers)
		for i, req := range requests {
			g.Go(func() error {
				uri, err := s.config.Resolver.ResolveTrackURI(gctx, req.Title, req.Artist)
				if err != nil {
					s.log.Warnf("track resolution for %q failed: %v", req.Title, err)
					return nil
				}
				if uri != "" {
					uris[i] = &uri
				}
				return nil
			})
		}
		g.Wait()
	}

	// Stage 2: song insertion stays single-threaded so song_key
	// uniqueness never races.
	type job struct {
		idx    int
		songID uint32
	}
	jobs := make([]job, 0, len(requests))
	for i, req := range requests {
		songID, err := s.repo.InsertSong(req.Title, req.Artist, uris[i])
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].SongID = songID
		jobs = append(jobs, job{idx: i, songID: songID})
	}

	// Stage 3: fingerprinting and posting writes fan out. Postings are
	// best-effort per file; a failure is reported, not rolled back.
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for _, jb := range jobs {
		g.Go(func() error {
			req := requests[jb.idx]

			info, err := audio.ReadWavInfo(req.Path)
			if err != nil {
				results[jb.idx].Err = err
				return nil
			}
			fingerprints, err := fingerprintWav(info, jb.songID)
			if err != nil {
				results[jb.idx].Err = err
				return nil
			}
			if err := s.repo.StoreFingerprints(fingerprints); err != nil {
				results[jb.idx].Err = err
			}
			return nil
		})
	}
	g.Wait()

	return results
}

func (s *engineService) IdentifySong(ctx context.Context, audioPath string) ([]models.Match, error) {
	trace := uuid.NewString()[:8]
	s.log.Infof("[%s] identifying %s", trace, audioPath)

	info, err := audio.ReadWavInfo(audioPath)
	if err != nil {
		return nil, err
	}

	fingerprints, err := fingerprintWav(info, 0)
	if err != nil {
		return nil, err
	}

	sample := make(map[uint32]uint32, len(fingerprints))
	for hash, couple := range fingerprints {
		sample[hash] = couple.AnchorTimeMs
	}
	s.log.Infof("[%s] query carries %s hashes", trace, humanize.Comma(int64(len(sample))))

	matches, err := match.FindMatches(s.repo, sample)
	if err != nil {
		return nil, err
	}
	s.log.Infof("[%s] %d candidate songs", trace, len(matches))
	return matches, nil
}

func (s *engineService) ListSongs() ([]models.Song, error) {
	return s.repo.ListSongs()
}

func (s *engineService) Close() error {
	return s.repo.Close()
}

// fingerprintWav runs the spectrogram -> peaks -> hashes pipeline per
// channel and merges left then right under one song ID, so a stereo
// catalog entry carries both channels' hashes.
func fingerprintWav(info *audio.WavInfo, songID uint32) (map[uint32]models.Couple, error) {
	leftSpectrogram, err := fingerprint.Spectrogram(info.LeftSamples, info.SampleRate)
	if err != nil {
		return nil, err
	}
	leftPeaks := fingerprint.ExtractPeaks(leftSpectrogram, info.DurationSec, info.SampleRate)
	fingerprints := fingerprint.Fingerprint(leftPeaks, songID)

	rightSpectrogram, err := fingerprint.Spectrogram(info.RightSamples, info.SampleRate)
	if err != nil {
		return nil, err
	}
	rightPeaks := fingerprint.ExtractPeaks(rightSpectrogram, info.DurationSec, info.SampleRate)
	fingerprint.MergeFingerprints(fingerprints, fingerprint.Fingerprint(rightPeaks, songID))

	return fingerprints, nil
}
