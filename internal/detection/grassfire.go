package detection

// Grassfire approximates each foreground pixel's distance to the nearest
// background pixel with two min-neighbour sweeps: up/left going forward,
// then down/right going backward. The result is row-major with mask.Width
// as stride.
//
// The outermost rows and columns are never visited and stay 0, as does every
// background pixel. The values are city-block-like steps, not Euclidean
// distances.
func Grassfire(mask *Mask) []int {
	w, h := mask.Width, mask.Height
	dist := make([]int, w*h)
	if w < 3 || h < 3 {
		return dist
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if mask.Pix[i] == Background {
				continue
			}
			dist[i] = min(dist[i-w], dist[i-1]) + 1
		}
	}

	for y := h - 2; y >= 1; y-- {
		for x := w - 2; x >= 1; x-- {
			i := y*w + x
			if dist[i] == 0 {
				continue
			}
			if v := min(dist[i+w], dist[i+1]) + 1; v < dist[i] {
				dist[i] = v
			}
		}
	}
	return dist
}
