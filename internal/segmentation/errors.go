package segmentation

import "errors"

var (
	// ErrNoCustomers is returned when no TRG customer rows survive filtering
	ErrNoCustomers = errors.New("no TRG customer records to segment")

	// ErrTooFewSamples is returned when there are fewer customers than clusters
	ErrTooFewSamples = errors.New("fewer samples than clusters")

	// ErrInvalidLabelCount is returned when a silhouette score is undefined for the labels
	ErrInvalidLabelCount = errors.New("number of labels must be between 2 and n_samples-1")

	// ErrNoViableClustering is returned when no configuration beats the baseline score
	ErrNoViableClustering = errors.New("no clustering configuration scored above the baseline")

	// ErrDimensionMismatch is returned when matrix rows disagree on width or length
	ErrDimensionMismatch = errors.New("feature matrix dimension mismatch")
)
