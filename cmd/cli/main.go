// Command cli enrolls WAV files into the local catalog and identifies
// audio snippets against it. Song metadata comes from the file name,
// which must look like "title_artist.wav".
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"songprint/pkg/codes"
	"songprint/pkg/logger"
	"songprint/pkg/songprint"
	"songprint/pkg/songprint/audio"
	"songprint/pkg/songprint/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	log := logger.GetLogger()

	addSongs := flag.StringArray("add-song", nil, "audio file [.wav] to add to the catalog; repeat for each file")
	idSong := flag.String("id-song", "", "audio file [.wav] to identify against the catalog")
	list := flag.Bool("list", false, "list catalog entries")
	erase := flag.Bool("erase", false, "clear the catalog")
	dbPath := flag.String("db", "", "catalog database path (default $SONGPRINT_DB_PATH or songprint.sqlite3)")
	threshold := flag.Float64("threshold", songprint.DefaultMatchScoreThreshold, "minimum score for a confident match")

	synthPath := flag.String("synth", "", "write a synthetic test tone WAV to this path")
	synthFreq := flag.Float64("freq", 440, "tone frequency for --synth, Hz")
	synthDur := flag.Float64("duration", 10, "tone duration for --synth, seconds")
	synthRate := flag.Int("rate", 44100, "sample rate for --synth, Hz")
	synthStereo := flag.Bool("stereo", false, "write two channels with --synth")

	flag.Parse()

	if *synthPath != "" {
		if err := writeTone(*synthPath, *synthFreq, *synthDur, *synthRate, *synthStereo); err != nil {
			log.Errorf("synth failed: %v", err)
			return codes.ExitCode(err)
		}
		fmt.Printf("wrote %s\n", *synthPath)
		return codes.ExitOK
	}

	if len(*addSongs) == 0 && *idSong == "" && !*list && !*erase {
		flag.Usage()
		return codes.ExitUnknown
	}

	path := *dbPath
	if path == "" {
		path = os.Getenv("SONGPRINT_DB_PATH")
	}
	if path == "" {
		path = storage.DefaultDBFile
	}

	svc, err := songprint.NewService(songprint.WithDBPath(path))
	if err != nil {
		log.Errorf("service init failed: %v", err)
		return codes.ExitCode(err)
	}
	defer svc.Close()

	ctx := context.Background()

	if *erase {
		if err := eraseCatalog(path); err != nil {
			log.Errorf("erase failed: %v", err)
			return codes.ExitCode(err)
		}
		fmt.Println("catalog cleared")
	}

	// Songs are always added before any identification runs.
	if len(*addSongs) > 0 {
		if code := enroll(ctx, svc, *addSongs); code != codes.ExitOK {
			return code
		}
	}

	if *list {
		songs, err := svc.ListSongs()
		if err != nil {
			log.Errorf("list failed: %v", err)
			return codes.ExitCode(err)
		}
		for _, song := range songs {
			fmt.Printf("%4d  %s by %s\n", song.ID, song.Title, song.Artist)
		}
	}

	if *idSong != "" {
		return identify(ctx, svc, *idSong, *threshold)
	}

	return codes.ExitOK
}

func enroll(ctx context.Context, svc songprint.Service, paths []string) int {
	log := logger.GetLogger()

	requests := make([]songprint.AddRequest, 0, len(paths))
	for _, p := range paths {
		title, artist, err := titleArtistFromPath(p)
		if err != nil {
			log.Errorf("cannot enroll %s: %v", p, err)
			return codes.ExitCode(err)
		}
		requests = append(requests, songprint.AddRequest{Path: p, Title: title, Artist: artist})
	}

	if len(requests) == 1 {
		req := requests[0]
		songID, err := svc.AddSong(ctx, req.Path, req.Title, req.Artist)
		if err != nil {
			log.Errorf("enrolling %s failed: %v", req.Path, err)
			return codes.ExitCode(err)
		}
		fmt.Printf("added %s by %s (id %d)\n", req.Title, req.Artist, songID)
		return codes.ExitOK
	}

	exit := codes.ExitOK
	for _, res := range svc.AddSongs(ctx, requests) {
		if res.Err != nil {
			log.Errorf("enrolling %s failed: %v", res.Path, res.Err)
			exit = codes.ExitCode(res.Err)
			continue
		}
		fmt.Printf("added %s (id %d)\n", res.Path, res.SongID)
	}
	return exit
}

func identify(ctx context.Context, svc songprint.Service, path string, threshold float64) int {
	log := logger.GetLogger()

	matches, err := svc.IdentifySong(ctx, path)
	if err != nil {
		log.Errorf("identification failed: %v", err)
		return codes.ExitCode(err)
	}

	if len(matches) == 0 {
		color.Red("no matches found for %s", path)
		return codes.ExitNoSongMatch
	}

	top := matches[0]
	if top.Score < threshold {
		color.Yellow("no likely match for %s (best: %s by %s, score %.0f)",
			path, top.Title, top.Artist, top.Score)
		return codes.ExitNoSongMatch
	}

	color.Green("%s by %s (score %.0f, offset %dms)", top.Title, top.Artist, top.Score, top.OffsetMs)
	for _, m := range matches[1:] {
		fmt.Printf("\t- %s by %s, score %.0f\n", m.Title, m.Artist, m.Score)
	}
	return codes.ExitOK
}

// titleArtistFromPath parses "title_artist.wav" metadata from a path.
func titleArtistFromPath(path string) (string, string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", "", codes.Mark(codes.ErrFileNotFound, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return "", "", codes.Markf(codes.ErrIncompatibleFile,
			"%s has no underscore-delimited title and artist (example: title_artist.wav)", path)
	}
	return parts[0], parts[1], nil
}

func eraseCatalog(dbPath string) error {
	client, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.EraseAll()
}

func writeTone(path string, freq, durationSec float64, sampleRate int, stereo bool) error {
	frames := int(durationSec * float64(sampleRate))
	channels := 1
	if stereo {
		channels = 2
	}

	samples := make([]int, 0, frames*channels)
	for n := 0; n < frames; n++ {
		v := int(20000 * math.Sin(2*math.Pi*freq*float64(n)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			samples = append(samples, v)
		}
	}
	return audio.WriteWav(path, samples, sampleRate, channels)
}
