package detection

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrassfire_FullBlock(t *testing.T) {
	m := NewMask(5, 5)
	fillRect(m, 0, 0, 5, 5)

	want := []int{
		0, 0, 0, 0, 0,
		0, 1, 1, 1, 0,
		0, 1, 2, 1, 0,
		0, 1, 1, 1, 0,
		0, 0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, Grassfire(m)); diff != "" {
		t.Errorf("Grassfire mismatch (-want +got):\n%s", diff)
	}
}

func TestGrassfire_BackgroundStaysZero(t *testing.T) {
	m := maskFromRows(
		".....",
		".#.#.",
		".....",
	)
	dist := Grassfire(m)
	assert.Equal(t, 1, dist[1*5+1])
	assert.Equal(t, 0, dist[1*5+2])
	assert.Equal(t, 1, dist[1*5+3])
}

func TestGrassfire_TinyMask(t *testing.T) {
	m := maskFromRows("##", "##")
	assert.Equal(t, []int{0, 0, 0, 0}, Grassfire(m))
}

func TestSelectBest_Empty(t *testing.T) {
	_, ok := SelectBest(nil, NewMask(10, 10), nil, DefaultSelectOptions())
	assert.False(t, ok)
}

func TestSelectBest_PrefersLargeRegion(t *testing.T) {
	m := NewMask(100, 100)
	fillRect(m, 5, 5, 30, 30)
	fillRect(m, 60, 60, 10, 10)
	lm := Label(m, Eight)
	regions := ExtractRegions(lm, 1)
	require.Len(t, regions, 2)

	sel, ok := SelectBest(regions, m, lm, DefaultSelectOptions())
	require.True(t, ok)

	assert.Equal(t, 900, sel.Region.Area)
	assert.Equal(t, image.Rect(5, 5, 35, 35), sel.Crop)
	assert.Positive(t, sel.PeakDistance)

	want := 0.8*900.0/10000.0 + 0.2*float64(sel.PeakDistance)/30.0
	assert.InDelta(t, want, sel.Score, 1e-12)
}

func TestSelectBest_TiesKeepFirstSeen(t *testing.T) {
	m := NewMask(60, 30)
	fillRect(m, 2, 2, 12, 12)
	fillRect(m, 40, 2, 12, 12)
	lm := Label(m, Eight)
	regions := ExtractRegions(lm, 1)
	require.Len(t, regions, 2)

	sel, ok := SelectBest(regions, m, lm, DefaultSelectOptions())
	require.True(t, ok)
	assert.Equal(t, 1, sel.Region.ID)
}

func TestSelectBest_TopKLimitsCandidates(t *testing.T) {
	m := NewMask(80, 80)
	// A long thin bar has more area but almost no interior.
	fillRect(m, 0, 2, 80, 4)
	fillRect(m, 20, 20, 17, 17)
	lm := Label(m, Eight)
	regions := ExtractRegions(lm, 1)
	require.Len(t, regions, 2)

	all, ok := SelectBest(regions, m, lm, SelectOptions{TopK: 5, AreaWeight: 0, DistWeight: 1})
	require.True(t, ok)
	assert.Equal(t, 289, all.Region.Area)

	one, ok := SelectBest(regions, m, lm, SelectOptions{TopK: 1, AreaWeight: 0, DistWeight: 1})
	require.True(t, ok)
	assert.Equal(t, 320, one.Region.Area)
}

func TestSelectBest_PeakIgnoresOtherRegions(t *testing.T) {
	// The small blob sits inside the big one's bounding box.
	m := maskFromRows(
		"##########",
		"#........#",
		"#.######.#",
		"#.######.#",
		"#.######.#",
		"#.######.#",
		"#........#",
		"##########",
	)
	lm := Label(m, Four)
	require.Equal(t, 2, lm.Count)
	regions := ExtractRegions(lm, 1)

	var ring Region
	for _, r := range regions {
		if r.ID == 1 {
			ring = r
		}
	}
	assert.Equal(t, 0, interiorPeak(ring, m, lm), "ring pixels all touch the crop border or background")
}
