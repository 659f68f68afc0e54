// Package detection finds the single foreground object in a photograph and
// describes its shape.
//
// The package implements the vision half of the recognition pipeline. Each
// stage consumes the output of the previous one:
//
//  1. Binarize: intensity 2-means clustering picks a threshold; darker pixels
//     become foreground (a light background is assumed)
//  2. Clean: e erosions followed by d dilations remove speckle and smooth edges
//  3. Label: two-pass union-find labelling assigns dense ids 1..N to blobs
//  4. ExtractRegions: moments, principal axes, an oriented box and a
//     9-dimensional shape vector per blob above a minimum area
//  5. SelectBest: area and interior-distance scoring picks "the object"
//
// Detector chains all five stages with the tuning from internal/config.
//
// # Coordinate System
//
// Masks and label maps are 0-based grids the same size as the source image:
//   - Origin (0, 0) at the top-left of the image bounds
//   - X increases rightward, Y increases downward
//   - Rectangles use inclusive top-left and exclusive bottom-right
//
// For images whose Bounds().Min is not the origin, every coordinate reported by
// this package is relative to Bounds().Min.
//
// # Error Handling
//
// Precondition violations (an empty image, an invalid kernel) are returned as
// errors and abort the call. "Nothing found" is not exceptional: ExtractRegions
// returns an empty slice, SelectBest reports false, and Detector.Detect returns
// ErrNoDetection so callers branch explicitly. Degenerate regions (no mass,
// non-finite moments, zero extent) are dropped instead of producing NaN.
//
// # Thread Safety
//
// All functions are stateless and may be called concurrently on different
// inputs. A Detector is immutable after construction.
package detection
