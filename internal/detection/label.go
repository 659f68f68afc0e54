package detection

import (
	"github.com/theodesp/unionfind"
)

// Connectivity selects which neighbours join two foreground pixels.
type Connectivity int

const (
	// Four joins pixels sharing an edge.
	Four Connectivity = 4
	// Eight also joins pixels touching at a corner.
	Eight Connectivity = 8
)

// LabelMap holds one region id per pixel: 0 for background, 1..Count for
// blobs. Ids are dense and assigned in raster order of first appearance.
type LabelMap struct {
	Width  int
	Height int
	Labels []int
	Count  int
}

// At returns the id at (x, y), or 0 outside the map.
func (l *LabelMap) At(x, y int) int {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0
	}
	return l.Labels[y*l.Width+x]
}

// Sizes returns the pixel count of every id; index 0 counts background.
func (l *LabelMap) Sizes() []int {
	sizes := make([]int, l.Count+1)
	for _, id := range l.Labels {
		sizes[id]++
	}
	return sizes
}

// Label assigns an id to every connected foreground blob of mask.
//
// The first raster pass gives each foreground pixel the smallest provisional
// id among its already-visited neighbours (left and above, plus the two upper
// diagonals for Eight) and records every pair of differing neighbour ids in a
// union-find. The second pass resolves each provisional id to its root and
// renumbers the roots densely.
//
// An all-background mask yields all zeros and Count 0.
func Label(mask *Mask, conn Connectivity) *LabelMap {
	lm := &LabelMap{
		Width:  mask.Width,
		Height: mask.Height,
		Labels: make([]int, len(mask.Pix)),
	}
	if mask.Empty() {
		return lm
	}

	// Provisional ids never exceed the number of foreground pixels.
	uf := unionfind.New(mask.Count() + 1)

	offsets := [][2]int{{-1, 0}, {0, -1}}
	if conn == Eight {
		offsets = append(offsets, [2]int{-1, -1}, [2]int{1, -1})
	}

	next := 1
	var neighbours [4]int
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			i := y*mask.Width + x
			if mask.Pix[i] == Background {
				continue
			}

			n := 0
			for _, off := range offsets {
				if id := lm.At(x+off[0], y+off[1]); id > 0 {
					neighbours[n] = id
					n++
				}
			}
			if n == 0 {
				lm.Labels[i] = next
				next++
				continue
			}

			smallest := neighbours[0]
			for _, id := range neighbours[1:n] {
				if id < smallest {
					smallest = id
				}
			}
			for _, id := range neighbours[:n] {
				if id != smallest {
					uf.Union(smallest, id)
				}
			}
			lm.Labels[i] = smallest
		}
	}

	dense := make(map[int]int)
	for i, id := range lm.Labels {
		if id == 0 {
			continue
		}
		root := uf.Root(id)
		d, ok := dense[root]
		if !ok {
			d = len(dense) + 1
			dense[root] = d
		}
		lm.Labels[i] = d
	}
	lm.Count = len(dense)
	return lm
}
