package domain

import "errors"

// Hard-failure categories. Missing data is never an error: the aligner and
// resolver encode gaps as NaN and empty windows as empty series.
var (
	// ErrAcquisition wraps remote or archival source failures. The core does
	// not retry; the caller decides.
	ErrAcquisition = errors.New("acquisition failed")

	// ErrMissingArchive marks a pre-computed input file that should have been
	// supplied by the collector but is absent.
	ErrMissingArchive = errors.New("archive file missing")

	// ErrPrecondition marks lifecycle misuse, e.g. Process before Download.
	ErrPrecondition = errors.New("precondition not met")

	// ErrRegion marks a malformed region: degenerate polygon, inverted
	// bounding box, or no coordinates at all.
	ErrRegion = errors.New("invalid region")

	// ErrUnknownProduct is returned by the registry before any acquisition is
	// attempted.
	ErrUnknownProduct = errors.New("unknown product")
)
