package detection

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel_AllBackground(t *testing.T) {
	lm := Label(NewMask(6, 4), Eight)

	assert.Zero(t, lm.Count)
	assert.Equal(t, make([]int, 24), lm.Labels)
}

func TestLabel_DiagonalDependsOnConnectivity(t *testing.T) {
	m := maskFromRows(
		"#..",
		".#.",
		"..#",
	)

	assert.Equal(t, 3, Label(m, Four).Count)
	assert.Equal(t, 1, Label(m, Eight).Count)
}

func TestLabel_MergesAcrossUnion(t *testing.T) {
	// Both arms get distinct provisional ids until the bottom row joins them.
	m := maskFromRows(
		"#.#.#",
		"#.#.#",
		"#####",
	)

	for _, conn := range []Connectivity{Four, Eight} {
		lm := Label(m, conn)
		assert.Equal(t, 1, lm.Count)
		for i, v := range m.Pix {
			if v == Foreground {
				assert.Equal(t, 1, lm.Labels[i])
			}
		}
	}
}

func TestLabel_DenseRasterOrder(t *testing.T) {
	m := maskFromRows(
		"..##",
		"....",
		"#...",
		"#..#",
	)

	lm := Label(m, Eight)
	want := []int{
		0, 0, 1, 1,
		0, 0, 0, 0,
		2, 0, 0, 0,
		2, 0, 0, 3,
	}
	if diff := cmp.Diff(want, lm.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{10, 2, 2, 1}, lm.Sizes())
}

// floodCount counts 8-connected components with a plain BFS.
func floodCount(m *Mask) int {
	seen := make([]bool, len(m.Pix))
	count := 0
	for start, v := range m.Pix {
		if v == Background || seen[start] {
			continue
		}
		count++
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			x, y := i%m.Width, i/m.Width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if !m.IsForeground(nx, ny) {
						continue
					}
					j := ny*m.Width + nx
					if !seen[j] {
						seen[j] = true
						queue = append(queue, j)
					}
				}
			}
		}
	}
	return count
}

func TestLabel_ConnectivityInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 25; trial++ {
		m := NewMask(32, 24)
		for i := range m.Pix {
			if rng.Float64() < 0.45 {
				m.Pix[i] = Foreground
			}
		}

		lm := Label(m, Eight)
		require.Equal(t, floodCount(m), lm.Count, "trial %d", trial)

		used := make(map[int]bool)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				id := lm.At(x, y)
				if !m.IsForeground(x, y) {
					require.Zero(t, id, "background at (%d,%d)", x, y)
					continue
				}
				require.GreaterOrEqual(t, id, 1)
				require.LessOrEqual(t, id, lm.Count)
				used[id] = true

				for _, d := range [][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}} {
					nx, ny := x+d[0], y+d[1]
					if m.IsForeground(nx, ny) {
						require.Equal(t, id, lm.At(nx, ny), "neighbours (%d,%d) and (%d,%d)", x, y, nx, ny)
					}
				}
			}
		}
		assert.Len(t, used, lm.Count, "ids must be contiguous")
	}
}

func TestLabel_RepeatRunsArePermutations(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	m := NewMask(20, 20)
	for i := range m.Pix {
		if rng.IntN(3) == 0 {
			m.Pix[i] = Foreground
		}
	}

	a := Label(m, Four)
	b := Label(m, Four)
	require.Equal(t, a.Count, b.Count)

	mapping := make(map[int]int)
	for i := range a.Labels {
		if prev, ok := mapping[a.Labels[i]]; ok {
			require.Equal(t, prev, b.Labels[i])
			continue
		}
		mapping[a.Labels[i]] = b.Labels[i]
	}
}
