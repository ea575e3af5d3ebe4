package fingerprint

import (
	"songprint/pkg/models"
)

const (
	maxFreqBits  = 9
	maxDeltaBits = 14

	// TargetZoneSize is how many subsequent peaks each anchor pairs with.
	TargetZoneSize = 5
)

// Fingerprint pairs every peak with the next TargetZoneSize peaks and
// maps each packed hash to the anchor's position. Hash collisions within
// one invocation keep only the most recent entry; that compression is
// symmetric between enrollment and query.
func Fingerprint(peaks []Peak, songID uint32) map[uint32]models.Couple {
	fingerprints := make(map[uint32]models.Couple)

	for i, anchor := range peaks {
		for j := i + 1; j < len(peaks) && j <= i+TargetZoneSize; j++ {
			hash := createAddress(anchor, peaks[j])

			fingerprints[hash] = models.Couple{
				SongID:       songID,
				AnchorTimeMs: uint32(anchor.Time * 1000),
			}
		}
	}

	return fingerprints
}

// createAddress packs (anchor frequency, target frequency, time delta)
// into 32 bits: 9 + 9 + 14. Frequencies are quantized to 10 Hz buckets
// and truncated; the delta is milliseconds masked to 14 bits, so values
// past ~16.4 s wrap deterministically. Same-frame pairs get a zero delta.
func createAddress(anchor, target Peak) uint32 {
	anchorFreq := uint32(anchor.Freq / 10)
	targetFreq := uint32(target.Freq / 10)
	deltaMs := uint32(int32((target.Time - anchor.Time) * 1000))

	anchorFreqBits := anchorFreq & ((1 << maxFreqBits) - 1)
	targetFreqBits := targetFreq & ((1 << maxFreqBits) - 1)
	deltaBits := deltaMs & ((1 << maxDeltaBits) - 1)

	return (anchorFreqBits << 23) | (targetFreqBits << 14) | deltaBits
}

// MergeFingerprints folds src into dst. Later entries win on hash
// collisions, mirroring the per-channel map semantics.
func MergeFingerprints(dst, src map[uint32]models.Couple) {
	for hash, couple := range src {
		dst[hash] = couple
	}
}
