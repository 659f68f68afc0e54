package detection

import "math"

// Vec2 is a point or direction in pixel space.
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// centralMoments accumulates moments of a pixel set about a fixed centroid.
type centralMoments struct {
	mu20, mu02, mu11       float64
	mu30, mu03, mu21, mu12 float64
}

func (c *centralMoments) add(dx, dy float64) {
	dx2, dy2 := dx*dx, dy*dy
	c.mu20 += dx2
	c.mu02 += dy2
	c.mu11 += dx * dy
	c.mu30 += dx2 * dx
	c.mu03 += dy2 * dy
	c.mu21 += dx2 * dy
	c.mu12 += dx * dy2
}

// hu returns the seven Hu invariants of a pixel set of mass m00.
func (c *centralMoments) hu(m00 float64) [7]float64 {
	var h [7]float64
	if m00 <= 0 {
		return h
	}

	// eta_pq = mu_pq / m00^(1 + (p+q)/2)
	s2 := m00 * m00
	s3 := math.Pow(m00, 2.5)
	n20, n02, n11 := c.mu20/s2, c.mu02/s2, c.mu11/s2
	n30, n03, n21, n12 := c.mu30/s3, c.mu03/s3, c.mu21/s3, c.mu12/s3

	a := n30 + n12
	b := n21 + n03
	p := n30 - 3*n12
	q := 3*n21 - n03

	h[0] = n20 + n02
	h[1] = (n20-n02)*(n20-n02) + 4*n11*n11
	h[2] = p*p + q*q
	h[3] = a*a + b*b
	h[4] = p*a*(a*a-3*b*b) + q*b*(3*a*a-b*b)
	h[5] = (n20-n02)*(a*a-b*b) + 4*n11*a*b
	h[6] = q*a*(a*a-3*b*b) - p*b*(3*a*a-b*b)
	return h
}

// logScale maps each invariant to -sign(h)*log10(|h|) so values from
// differently sized regions land in a comparable range. Zeros stay zero.
func logScale(h [7]float64) [7]float64 {
	for i, v := range h {
		if v == 0 {
			continue
		}
		h[i] = -math.Copysign(1, v) * math.Log10(math.Abs(v))
	}
	return h
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
