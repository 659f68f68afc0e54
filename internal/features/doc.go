// Package features stores labelled feature vectors and matches query vectors
// against them.
//
// A feature database is a comma-separated text file, one entry per row:
//
//	label,source,v0,v1,...,vd-1
//
// The source column (the image the vector came from) is optional. Rows with
// a blank label, no values or a non-numeric value are skipped on load.
//
// # Caching
//
// Cache keeps one immutable Database snapshot per path and reloads it when
// the file's modification time or size changes. Create one Cache per process
// and share it; it is safe for concurrent use.
//
// # Matching
//
// Matcher compares a query against every row of the same dimensionality with
// one of four metrics (see MetricType) and returns the closest label.
// Rows of another dimension and non-finite distances never win. An empty,
// missing or incomparable database is reported as ErrNoMatch.
//
// # Enrollment
//
// Extractor turns an image into a vector. ShapeExtractor uses the detection
// pipeline's shape vector; other extractors (a CNN embedding, for instance)
// plug in through the same interface. Trainer appends extracted vectors to a
// database file, and Classifier adds unknown-object rejection on top of
// Matcher.
package features
