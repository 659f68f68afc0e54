// Package imaging loads camera frames and renders the recognizer's
// intermediate results.
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y downward, matching the masks and label maps of
// the detection package. Rectangles follow image.Rectangle: Min inclusive,
// Max exclusive.
//
// # Loading
//
// ImageCache decodes frames through an fsutil.FileSystem and revalidates
// each cached frame against the file's size and modification time, so a
// frame overwritten in place is picked up on the next Load.
//
// # Region Crops
//
// CropSelection cuts a selection's axis-aligned rectangle out of a frame.
// AlignRegion and PrepareEmbedding rotate a frame about a region's centroid
// so that the region's primary axis is horizontal before cropping; the
// latter also resizes to the square input an embedding extractor expects.
//
// # Debug Rendering
//
// AnnotateDetection draws candidate and selected oriented boxes with a
// summary caption. ColorizeLabels paints a label map with a seeded random
// palette. EncodePNG turns any of these into a base64 PNG for MCP replies.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and never modify their inputs.
package imaging
