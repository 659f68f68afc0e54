package detection

import (
	"errors"
	"fmt"
)

// ErrInvalidKernel is returned when a structuring element size is not an odd
// number >= 3.
var ErrInvalidKernel = errors.New("kernel size must be odd and >= 3")

// CleanOptions configures Clean.
type CleanOptions struct {
	KernelSize  int
	ErodeSteps  int
	DilateSteps int

	// FourWay restricts the kernel to the cross through its centre.
	FourWay bool
}

// DefaultCleanOptions returns a 3x3 square kernel with 3 erosions and
// 3 dilations.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		KernelSize:  3,
		ErodeSteps:  3,
		DilateSteps: 3,
	}
}

// Clean applies opts.ErodeSteps erosions followed by opts.DilateSteps
// dilations. The input mask is left untouched.
func Clean(mask *Mask, opts CleanOptions) (*Mask, error) {
	if mask.Empty() {
		return nil, ErrEmptyImage
	}
	if err := checkKernel(opts.KernelSize); err != nil {
		return nil, err
	}

	out := mask.Clone()
	for i := 0; i < opts.ErodeSteps; i++ {
		out = morph(out, opts.KernelSize, opts.FourWay, true)
	}
	for i := 0; i < opts.DilateSteps; i++ {
		out = morph(out, opts.KernelSize, opts.FourWay, false)
	}
	return out, nil
}

// Erode runs one erosion pass. Pixels outside the mask count as foreground,
// so objects touching the frame edge are not eaten from that side.
func Erode(mask *Mask, kernelSize int, fourWay bool) (*Mask, error) {
	if mask.Empty() {
		return nil, ErrEmptyImage
	}
	if err := checkKernel(kernelSize); err != nil {
		return nil, err
	}
	return morph(mask, kernelSize, fourWay, true), nil
}

// Dilate runs one dilation pass. Pixels outside the mask count as background.
func Dilate(mask *Mask, kernelSize int, fourWay bool) (*Mask, error) {
	if mask.Empty() {
		return nil, ErrEmptyImage
	}
	if err := checkKernel(kernelSize); err != nil {
		return nil, err
	}
	return morph(mask, kernelSize, fourWay, false), nil
}

func checkKernel(k int) error {
	if k < 3 || k%2 == 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidKernel, k)
	}
	return nil
}

// morph is the shared erosion/dilation loop. For erosion a pixel survives
// only when every kernel cell is foreground; for dilation it is set when any
// cell is.
func morph(src *Mask, k int, fourWay, erode bool) *Mask {
	pad := k / 2
	out := NewMask(src.Width, src.Height)

	outside := Background
	if erode {
		outside = Foreground
	}

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			hit := erode
		kernel:
			for ky := -pad; ky <= pad; ky++ {
				for kx := -pad; kx <= pad; kx++ {
					if fourWay && kx != 0 && ky != 0 {
						continue
					}
					v := outside
					sx, sy := x+kx, y+ky
					if sx >= 0 && sy >= 0 && sx < src.Width && sy < src.Height {
						v = src.Pix[sy*src.Width+sx]
					}
					if erode && v == Background {
						hit = false
						break kernel
					}
					if !erode && v != Background {
						hit = true
						break kernel
					}
				}
			}
			if hit {
				out.Pix[y*out.Width+x] = Foreground
			}
		}
	}
	return out
}
