package detection

import (
	"image"
	"math"
)

// aspectEpsilon guards the aspect ratio against a zero short side.
const aspectEpsilon = 1e-6

// ShapeVectorLen is the length of a ShapeVector.
const ShapeVectorLen = 9

// ShapeVector is [fillRatio, aspectRatio, hu0..hu6].
type ShapeVector [ShapeVectorLen]float64

// Slice returns the vector as a slice for the matcher.
func (v ShapeVector) Slice() []float64 {
	out := make([]float64, ShapeVectorLen)
	copy(out, v[:])
	return out
}

// OrientedBox is a rectangle rotated by Angle radians about Center. Width is
// measured along the region's primary axis, Height along the secondary one.
type OrientedBox struct {
	Center Vec2
	Width  float64
	Height float64
	Angle  float64
}

// Region describes one labelled blob. Regions are built by ExtractRegions
// and never modified afterwards.
type Region struct {
	ID     int
	Area   int
	Bounds image.Rectangle

	Centroid Vec2

	// Central second moments summed over the region's pixels.
	Mu20 float64
	Mu02 float64
	Mu11 float64

	// Theta is the principal-axis angle; E1 points along it, E2 is E1
	// rotated by 90 degrees.
	Theta float64
	E1    Vec2
	E2    Vec2

	// Signed extents of the region's pixel squares projected onto E1 and
	// E2, relative to Centroid.
	MinE1, MaxE1 float64
	MinE2, MaxE2 float64

	Box         OrientedBox
	FillRatio   float64
	AspectRatio float64

	// Hu holds the log-scaled Hu invariants.
	Hu [7]float64
}

// ShapeVector returns the 9-dimensional descriptor used for matching.
func (r Region) ShapeVector() ShapeVector {
	var v ShapeVector
	v[0] = r.FillRatio
	v[1] = r.AspectRatio
	copy(v[2:], r.Hu[:])
	return v
}

// Corners returns the oriented box corners in drawing order.
func (r Region) Corners() [4]Vec2 {
	hw := r.E1.Scale(r.Box.Width / 2)
	hh := r.E2.Scale(r.Box.Height / 2)
	c := r.Box.Center
	return [4]Vec2{
		c.Add(hw.Scale(-1)).Add(hh.Scale(-1)),
		c.Add(hw).Add(hh.Scale(-1)),
		c.Add(hw).Add(hh),
		c.Add(hw.Scale(-1)).Add(hh),
	}
}

// regionAccumulator gathers per-id statistics across the passes over a
// label map.
type regionAccumulator struct {
	area     int
	sumX     float64
	sumY     float64
	bounds   image.Rectangle
	centroid Vec2
	moments  centralMoments
	e1, e2   Vec2
	minE1    float64
	maxE1    float64
	minE2    float64
	maxE2    float64
}

// ExtractRegions describes every id of labels whose pixel count is at least
// minArea, in ascending id order. Too-small ids and degenerate regions are
// left out, so the result may be empty.
func ExtractRegions(labels *LabelMap, minArea int) []Region {
	if labels == nil || labels.Count == 0 {
		return nil
	}

	acc := make([]regionAccumulator, labels.Count+1)

	// Pass 1: mass, first-order sums and bounding rectangles.
	for y := 0; y < labels.Height; y++ {
		for x := 0; x < labels.Width; x++ {
			id := labels.Labels[y*labels.Width+x]
			if id == 0 {
				continue
			}
			a := &acc[id]
			if a.area == 0 {
				a.bounds = image.Rect(x, y, x+1, y+1)
			} else {
				a.bounds = a.bounds.Union(image.Rect(x, y, x+1, y+1))
			}
			a.area++
			a.sumX += float64(x)
			a.sumY += float64(y)
		}
	}

	keep := make([]bool, len(acc))
	for id := 1; id < len(acc); id++ {
		a := &acc[id]
		if a.area == 0 || a.area < minArea {
			continue
		}
		a.centroid = Vec2{a.sumX / float64(a.area), a.sumY / float64(a.area)}
		keep[id] = true
	}

	// Pass 2: central moments about each centroid.
	for y := 0; y < labels.Height; y++ {
		for x := 0; x < labels.Width; x++ {
			id := labels.Labels[y*labels.Width+x]
			if !keep[id] {
				continue
			}
			a := &acc[id]
			a.moments.add(float64(x)-a.centroid.X, float64(y)-a.centroid.Y)
		}
	}

	for id := 1; id < len(acc); id++ {
		if !keep[id] {
			continue
		}
		a := &acc[id]
		theta := 0.5 * math.Atan2(2*a.moments.mu11, a.moments.mu20-a.moments.mu02)
		a.e1 = Vec2{math.Cos(theta), math.Sin(theta)}
		a.e2 = Vec2{-math.Sin(theta), math.Cos(theta)}
		a.minE1, a.minE2 = math.Inf(1), math.Inf(1)
		a.maxE1, a.maxE2 = math.Inf(-1), math.Inf(-1)
	}

	// Pass 3: signed extents along the principal axes. Each pixel is a unit
	// square, so its projection reaches half its diagonal footprint past the
	// centre; this keeps every pixel inside the oriented box.
	for y := 0; y < labels.Height; y++ {
		for x := 0; x < labels.Width; x++ {
			id := labels.Labels[y*labels.Width+x]
			if !keep[id] {
				continue
			}
			a := &acc[id]
			d := Vec2{float64(x) - a.centroid.X, float64(y) - a.centroid.Y}
			p1, p2 := d.Dot(a.e1), d.Dot(a.e2)
			r1 := 0.5 * (math.Abs(a.e1.X) + math.Abs(a.e1.Y))
			r2 := 0.5 * (math.Abs(a.e2.X) + math.Abs(a.e2.Y))
			a.minE1 = math.Min(a.minE1, p1-r1)
			a.maxE1 = math.Max(a.maxE1, p1+r1)
			a.minE2 = math.Min(a.minE2, p2-r2)
			a.maxE2 = math.Max(a.maxE2, p2+r2)
		}
	}

	var regions []Region
	for id := 1; id < len(acc); id++ {
		if !keep[id] {
			continue
		}
		if r, ok := buildRegion(id, &acc[id]); ok {
			regions = append(regions, r)
		}
	}
	return regions
}

func buildRegion(id int, a *regionAccumulator) (Region, bool) {
	m := a.moments
	theta := math.Atan2(a.e1.Y, a.e1.X)

	w := math.Max(1, a.maxE1-a.minE1)
	h := math.Max(1, a.maxE2-a.minE2)
	midE1 := (a.minE1 + a.maxE1) / 2
	midE2 := (a.minE2 + a.maxE2) / 2
	center := a.centroid.Add(a.e1.Scale(midE1)).Add(a.e2.Scale(midE2))

	r := Region{
		ID:       id,
		Area:     a.area,
		Bounds:   a.bounds,
		Centroid: a.centroid,
		Mu20:     m.mu20,
		Mu02:     m.mu02,
		Mu11:     m.mu11,
		Theta:    theta,
		E1:       a.e1,
		E2:       a.e2,
		MinE1:    a.minE1,
		MaxE1:    a.maxE1,
		MinE2:    a.minE2,
		MaxE2:    a.maxE2,
		Box: OrientedBox{
			Center: center,
			Width:  w,
			Height: h,
			Angle:  theta,
		},
		FillRatio:   float64(a.area) / (w * h),
		AspectRatio: math.Max(w, h) / math.Max(math.Min(w, h), aspectEpsilon),
		Hu:          logScale(m.hu(float64(a.area))),
	}

	if w <= 0 || h <= 0 {
		return Region{}, false
	}
	if !finite(r.Centroid.X, r.Centroid.Y, r.Mu20, r.Mu02, r.Mu11, r.Theta,
		r.Box.Center.X, r.Box.Center.Y, r.FillRatio, r.AspectRatio) || !finite(r.Hu[:]...) {
		return Region{}, false
	}
	return r, true
}
