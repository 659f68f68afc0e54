package detection

import (
	"image"
	"sort"
)

// SelectOptions weights the two terms of the selection score.
type SelectOptions struct {
	// TopK limits scoring to the K largest regions.
	TopK int

	AreaWeight float64
	DistWeight float64
}

// DefaultSelectOptions returns K=5 with weights 0.8 (area) and 0.2
// (interior distance).
func DefaultSelectOptions() SelectOptions {
	return SelectOptions{
		TopK:       5,
		AreaWeight: 0.8,
		DistWeight: 0.2,
	}
}

// Selection is the region chosen to represent the object.
type Selection struct {
	Region Region
	Score  float64

	// PeakDistance is the largest grassfire value inside the region.
	PeakDistance int

	// Crop is the region's bounding rectangle in mask coordinates.
	Crop image.Rectangle
}

// SelectBest scores the largest regions and returns the best one.
//
// For each of the TopK regions by area, the cleaned mask is cropped to the
// region's bounding rectangle and run through Grassfire; the peak value over
// the region's own pixels, divided by the crop's longer side, is the
// normalised interior distance. The score is
//
//	AreaWeight*area/frameArea + DistWeight*normalisedPeak
//
// Equal scores keep the region seen first. An empty regions slice reports
// false.
func SelectBest(regions []Region, mask *Mask, labels *LabelMap, opts SelectOptions) (Selection, bool) {
	if len(regions) == 0 || mask.Empty() {
		return Selection{}, false
	}
	if opts.TopK <= 0 {
		opts.TopK = len(regions)
	}

	ordered := make([]Region, len(regions))
	copy(ordered, regions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Area > ordered[j].Area
	})
	if len(ordered) > opts.TopK {
		ordered = ordered[:opts.TopK]
	}

	frameArea := float64(mask.Width * mask.Height)

	var best Selection
	found := false
	for _, r := range ordered {
		peak := interiorPeak(r, mask, labels)
		longest := max(r.Bounds.Dx(), r.Bounds.Dy())
		norm := 0.0
		if longest > 0 {
			norm = float64(peak) / float64(longest)
		}

		score := opts.AreaWeight*float64(r.Area)/frameArea + opts.DistWeight*norm
		if !found || score > best.Score {
			best = Selection{
				Region:       r,
				Score:        score,
				PeakDistance: peak,
				Crop:         r.Bounds,
			}
			found = true
		}
	}
	return best, found
}

// interiorPeak is the largest grassfire value over r's pixels within its
// bounding rectangle.
func interiorPeak(r Region, mask *Mask, labels *LabelMap) int {
	crop := mask.Crop(r.Bounds)
	dist := Grassfire(crop)

	peak := 0
	for y := 0; y < crop.Height; y++ {
		for x := 0; x < crop.Width; x++ {
			if labels != nil && labels.At(r.Bounds.Min.X+x, r.Bounds.Min.Y+y) != r.ID {
				continue
			}
			if d := dist[y*crop.Width+x]; d > peak {
				peak = d
			}
		}
	}
	return peak
}
