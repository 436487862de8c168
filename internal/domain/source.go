package domain

import (
	"context"
	"time"
)

// Frequency selects the sampling of a reanalysis retrieval.
type Frequency string

const (
	FreqHourly  Frequency = "hourly"
	FreqMonthly Frequency = "monthly"
)

// Acquisition backends for the standardized indices.
const (
	BackendECMWF = "ecmwf"
	BackendGDO   = "gdo"
)

// ReanalysisSource acquires raw gridded data from a reanalysis service.
// Retrievals can be long-running; callers bound them through ctx, the core
// imposes no timeout of its own.
type ReanalysisSource interface {
	Retrieve(ctx context.Context, variable string, region Region, start, end time.Time, freq Frequency) (RawDataset, error)
}

// ArchiveSource reads pre-computed indicator products from local archive
// files supplied by the collector. A missing product surfaces as
// ErrMissingArchive wrapped in the returned error.
type ArchiveSource interface {
	Load(ctx context.Context, product string, region Region, start, end time.Time) (RawDataset, error)
}
