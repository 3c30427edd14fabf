// Package metrics provides constants used across metric definitions.
package metrics

// Label values shared by several collectors.
const (
	// ResultSuccess marks an operation that completed.
	ResultSuccess = "success"
	// ResultRejected marks an operation refused because of bad input.
	ResultRejected = "rejected"
	// ResultError marks an operation that failed for any other reason.
	ResultError = "error"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~4s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
