// Package match scores query fingerprints against the catalog index by
// relative-timing coherence.
package match

import (
	"sort"

	"songprint/pkg/codes"
	"songprint/pkg/models"
)

// OffsetBinMs is the width of one offset-histogram bucket.
const OffsetBinMs = 100

// Catalog is the slice of the repository the matcher needs.
type Catalog interface {
	LookupPostings(hashes []uint32) (map[uint32][]models.Couple, error)
	GetSong(songID uint32) (*models.Song, error)
}

type timePair struct {
	sampleMs uint32
	dbMs     uint32
}

// FindMatches looks the sample's hashes up in the catalog index and
// ranks candidate songs by the size of the largest 100 ms offset-
// histogram bucket. A genuine match concentrates db-minus-sample
// offsets in one bucket; spurious collisions scatter.
//
// Query hashes are processed in ascending order and candidates kept in
// first-seen order, so the same sample always produces the same ranked
// output. A failed song lookup aborts the whole match.
func FindMatches(catalog Catalog, sample map[uint32]uint32) ([]models.Match, error) {
	hashes := make([]uint32, 0, len(sample))
	for hash := range sample {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	postings, err := catalog.LookupPostings(hashes)
	if err != nil {
		return nil, err
	}

	pairsBySong := make(map[uint32][]timePair)
	songOrder := make([]uint32, 0)

	for _, hash := range hashes {
		for _, posting := range postings[hash] {
			if _, seen := pairsBySong[posting.SongID]; !seen {
				songOrder = append(songOrder, posting.SongID)
			}
			pairsBySong[posting.SongID] = append(pairsBySong[posting.SongID], timePair{
				sampleMs: sample[hash],
				dbMs:     posting.AnchorTimeMs,
			})
		}
	}

	matches := make([]models.Match, 0, len(songOrder))
	for _, songID := range songOrder {
		score, offsetMs := analyzeRelativeTiming(pairsBySong[songID])

		song, err := catalog.GetSong(songID)
		if err != nil {
			return nil, codes.Mark(codes.ErrNoSongMatch, err)
		}

		matches = append(matches, models.Match{
			SongID:   songID,
			Title:    song.Title,
			Artist:   song.Artist,
			Score:    score,
			OffsetMs: offsetMs,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches, nil
}

// analyzeRelativeTiming bins db-minus-sample offsets into 100 ms
// buckets and returns the count of the fullest bucket together with
// that bucket's offset in milliseconds.
//
// The counter starts at zero on a bucket's first hit, so a bucket with
// n coherent pairs scores n-1. Enrolled catalogs and the default score
// threshold are calibrated against this behavior.
func analyzeRelativeTiming(pairs []timePair) (float64, int32) {
	offsetCounts := make(map[int32]int)

	for _, p := range pairs {
		offset := int32(p.dbMs) - int32(p.sampleMs)
		bin := offset / OffsetBinMs

		if _, ok := offsetCounts[bin]; ok {
			offsetCounts[bin]++
		} else {
			offsetCounts[bin] = 0
		}
	}

	bestCount := -1
	var bestBin int32
	for bin, count := range offsetCounts {
		if count > bestCount || (count == bestCount && bin < bestBin) {
			bestCount = count
			bestBin = bin
		}
	}
	if bestCount < 0 {
		return 0, 0
	}

	return float64(bestCount), bestBin * OffsetBinMs
}
