package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"songprint/pkg/models"
)

func TestCreateAddressLayout(t *testing.T) {
	anchor := Peak{Freq: 320, Time: 1.000}
	target := Peak{Freq: 450, Time: 1.250}

	// (32 << 23) | (45 << 14) | 250
	assert.Equal(t, uint32(269_172_986), createAddress(anchor, target))
}

func TestCreateAddressDeltaWraps(t *testing.T) {
	anchor := Peak{Freq: 320, Time: 0}
	target := Peak{Freq: 450, Time: 16.3845} // truncates to 16384 ms == 1<<14

	hash := createAddress(anchor, target)
	assert.Equal(t, uint32(32<<23|45<<14), hash)
	assert.Zero(t, hash&0x3FFF)
}

func TestCreateAddressFields(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		anchorFreq := rapid.Float64Range(0, 5500).Draw(t, "anchorFreq")
		targetFreq := rapid.Float64Range(0, 5500).Draw(t, "targetFreq")
		anchorTime := rapid.Float64Range(0, 300).Draw(t, "anchorTime")
		delta := rapid.Float64Range(0, 30).Draw(t, "delta")

		anchor := Peak{Freq: anchorFreq, Time: anchorTime}
		target := Peak{Freq: targetFreq, Time: anchorTime + delta}

		hash := createAddress(anchor, target)

		wantAnchor := uint32(anchorFreq/10) & 0x1FF
		wantTarget := uint32(targetFreq/10) & 0x1FF
		wantDelta := uint32(int32((target.Time-anchor.Time)*1000)) & 0x3FFF

		assert.Equal(t, wantAnchor, hash>>23)
		assert.Equal(t, wantTarget, (hash>>14)&0x1FF)
		assert.Equal(t, wantDelta, hash&0x3FFF)
	})
}

func TestFingerprintTargetZone(t *testing.T) {
	// Eight peaks with distinct frequencies and spacings produce
	// distinct hashes, so the map size equals the pair count:
	// 5+5+5+4+3+2+1 for anchors 0..7.
	peaks := make([]Peak, 8)
	for i := range peaks {
		peaks[i] = Peak{Freq: float64(100 + 20*i), Time: float64(i) * 0.1}
	}

	fingerprints := Fingerprint(peaks, 3)
	assert.Len(t, fingerprints, 25)

	for _, couple := range fingerprints {
		assert.Equal(t, uint32(3), couple.SongID)
	}
}

func TestFingerprintAnchorTimeTruncates(t *testing.T) {
	peaks := []Peak{
		{Freq: 100, Time: 1.2349},
		{Freq: 200, Time: 1.5},
	}

	fingerprints := Fingerprint(peaks, 1)
	require.Len(t, fingerprints, 1)
	for _, couple := range fingerprints {
		assert.Equal(t, uint32(1234), couple.AnchorTimeMs)
	}
}

func TestFingerprintDuplicateHashKeepsLatest(t *testing.T) {
	// The same (frequency pair, delta) appears twice; the map retains
	// the second anchor's time.
	peaks := []Peak{
		{Freq: 100, Time: 0.0},
		{Freq: 200, Time: 0.5},
		{Freq: 100, Time: 10.0},
		{Freq: 200, Time: 10.5},
	}

	fingerprints := Fingerprint(peaks, 1)

	hash := createAddress(Peak{Freq: 100, Time: 0}, Peak{Freq: 200, Time: 0.5})
	couple, ok := fingerprints[hash]
	require.True(t, ok)
	assert.Equal(t, uint32(10000), couple.AnchorTimeMs)
}

func TestMergeFingerprintsLaterWins(t *testing.T) {
	dst := map[uint32]models.Couple{
		1: {SongID: 9, AnchorTimeMs: 100},
		2: {SongID: 9, AnchorTimeMs: 200},
	}
	src := map[uint32]models.Couple{
		2: {SongID: 9, AnchorTimeMs: 999},
		3: {SongID: 9, AnchorTimeMs: 300},
	}

	MergeFingerprints(dst, src)

	assert.Len(t, dst, 3)
	assert.Equal(t, uint32(100), dst[1].AnchorTimeMs)
	assert.Equal(t, uint32(999), dst[2].AnchorTimeMs)
	assert.Equal(t, uint32(300), dst[3].AnchorTimeMs)
}
