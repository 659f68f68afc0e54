package detection

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
)

// BinarizeOptions controls the 2-means clustering that picks the threshold.
type BinarizeOptions struct {
	// Attempts is the number of k-means restarts; the most compact wins.
	Attempts int

	// MaxIterations caps the refinement loop of each attempt.
	MaxIterations int

	// Epsilon stops an attempt early once no centre moves further than this.
	Epsilon float64

	// Seed makes the k-means++ seeding reproducible.
	Seed uint64
}

// DefaultBinarizeOptions returns 3 attempts, 10 iterations and epsilon 1.0.
func DefaultBinarizeOptions() BinarizeOptions {
	return BinarizeOptions{
		Attempts:      3,
		MaxIterations: 10,
		Epsilon:       1.0,
		Seed:          1,
	}
}

// Binarize separates a dark object from a light background.
//
// The image is reduced to BT.601 luma, the intensity histogram is split into
// two clusters with k-means (k-means++ seeding, Attempts restarts), and the
// midpoint of the two centres becomes the threshold. Pixels at or below the
// threshold are Foreground, brighter pixels are Background.
//
// Returns the mask and the integer threshold used.
//
// # Errors
//
//   - ErrEmptyImage if img has no pixels
//
// A uniform image yields two identical centres, so every pixel ends up at or
// below the threshold and the whole frame is foreground.
func Binarize(img image.Image, opts BinarizeOptions) (*Mask, int, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, 0, ErrEmptyImage
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 1
	}

	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()

	var hist [256]float64
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < width; x++ {
			hist[row[x*4]]++
		}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	lo, hi := twoMeans(&hist, opts, rng)
	threshold := int((lo + hi) / 2)

	return thresholdMask(gray, threshold), threshold, nil
}

// thresholdMask marks luma values at or below threshold as Foreground. It
// reads the same channel the histogram was built from.
func thresholdMask(gray *image.NRGBA, threshold int) *Mask {
	b := gray.Bounds()
	mask := NewMask(b.Dx(), b.Dy())
	for y := 0; y < mask.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < mask.Width; x++ {
			if int(row[x*4]) <= threshold {
				mask.Pix[y*mask.Width+x] = Foreground
			}
		}
	}
	return mask
}

// twoMeans clusters the weighted intensity histogram into two groups and
// returns the centres in ascending order.
func twoMeans(hist *[256]float64, opts BinarizeOptions, rng *rand.Rand) (float64, float64) {
	bestCompactness := math.Inf(1)
	var best [2]float64

	for attempt := 0; attempt < opts.Attempts; attempt++ {
		centres := seedCentres(hist, rng)

		for iter := 0; iter < opts.MaxIterations; iter++ {
			var sum, weight [2]float64
			for v, n := range hist {
				if n == 0 {
					continue
				}
				k := nearest(centres, float64(v))
				sum[k] += n * float64(v)
				weight[k] += n
			}

			shift := 0.0
			for k := range centres {
				if weight[k] == 0 {
					continue
				}
				next := sum[k] / weight[k]
				shift = math.Max(shift, math.Abs(next-centres[k]))
				centres[k] = next
			}
			if shift < opts.Epsilon {
				break
			}
		}

		compactness := 0.0
		for v, n := range hist {
			if n == 0 {
				continue
			}
			d := float64(v) - centres[nearest(centres, float64(v))]
			compactness += n * d * d
		}
		if compactness < bestCompactness {
			bestCompactness = compactness
			best = centres
		}
	}

	if best[0] > best[1] {
		best[0], best[1] = best[1], best[0]
	}
	return best[0], best[1]
}

// seedCentres picks initial centres with k-means++: the first proportional to
// pixel count, the second proportional to count times squared distance.
func seedCentres(hist *[256]float64, rng *rand.Rand) [2]float64 {
	var total float64
	for _, n := range hist {
		total += n
	}

	first := pickWeighted(hist, total, rng, func(v int, n float64) float64 { return n })

	var spread float64
	for v, n := range hist {
		d := float64(v - first)
		spread += n * d * d
	}
	if spread == 0 {
		return [2]float64{float64(first), float64(first)}
	}

	second := pickWeighted(hist, spread, rng, func(v int, n float64) float64 {
		d := float64(v - first)
		return n * d * d
	})
	return [2]float64{float64(first), float64(second)}
}

func pickWeighted(hist *[256]float64, total float64, rng *rand.Rand, weight func(int, float64) float64) int {
	target := rng.Float64() * total
	last := 0
	for v, n := range hist {
		w := weight(v, n)
		if w == 0 {
			continue
		}
		last = v
		if target < w {
			return v
		}
		target -= w
	}
	return last
}

func nearest(centres [2]float64, v float64) int {
	if math.Abs(v-centres[1]) < math.Abs(v-centres[0]) {
		return 1
	}
	return 0
}
