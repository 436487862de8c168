// Package indicator implements the drought indicator lifecycle: acquisition
// of raw source data, temporal alignment onto the dekad calendar, spatial
// resolution of the analysis region, anomaly derivation, and persistence of
// the processed series under a deterministic artifact key.
package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/artifact"
	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/observability"
)

// Indicator is one unit of work over a single physical quantity. Lifecycle:
// Download populates the raw dataset (idempotent against the persisted raw
// artifact), then Process derives and persists the aligned anomaly series.
// Process before Download fails with domain.ErrPrecondition. An indicator is
// never partially processed: its output exists in full or not at all.
type Indicator interface {
	Download(ctx context.Context) error
	Process(ctx context.Context) error
	Data() domain.GriddedSeries
	Key() string
}

// Settings is the configured context shared by every indicator in a run: the
// anomaly baseline window and the acquisition backend for SPI and SMA.
type Settings struct {
	BaselineStart time.Time
	BaselineEnd   time.Time
	Backend       string // "ecmwf" or "gdo"
}

// Deps carries the external collaborators. Acquisition and persistence are
// interfaces so tests swap them for counting fakes.
type Deps struct {
	Reanalysis domain.ReanalysisSource
	Archive    domain.ArchiveSource
	Store      artifact.Store
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// base carries the state and persistence plumbing shared by all variants.
type base struct {
	settings   Settings
	args       domain.AnalysisArgs
	deps       Deps
	downloaded bool
	data       domain.GriddedSeries
}

func (b *base) Data() domain.GriddedSeries { return b.data }

func (b *base) Key() string { return b.args.Key() }

func (b *base) processedKey() string { return b.args.Key() + ".series.json" }

// loadProcessed restores the series from an existing processed artifact.
// Returns true when the artifact existed, which short-circuits Process: this
// is the at-most-once computation guarantee per analysis key.
func (b *base) loadProcessed() (bool, error) {
	if !b.data.IsEmpty() {
		return true, nil
	}
	key := b.processedKey()
	if !b.deps.Store.Exists(key) {
		b.deps.Metrics.ArtifactLookups.WithLabelValues("processed", "miss").Inc()
		return false, nil
	}
	b.deps.Metrics.ArtifactLookups.WithLabelValues("processed", "hit").Inc()

	data, err := b.deps.Store.Read(key)
	if err != nil {
		return false, err
	}
	s, err := artifact.UnmarshalSeries(data)
	if err != nil {
		return false, err
	}
	b.data = s
	b.deps.Logger.Info("processed artifact exists, skipping recomputation", "key", key)
	return true, nil
}

// finish persists the processed series and records it on the instance. The
// artifact write happens before the instance is marked processed, so a write
// failure leaves no half-populated state.
func (b *base) finish(s domain.GriddedSeries) error {
	data, err := artifact.MarshalSeries(s)
	if err != nil {
		return err
	}
	if err := b.deps.Store.Write(b.processedKey(), data); err != nil {
		return err
	}
	b.data = s
	return nil
}

// loadRaw reads a cached raw dataset, if present, under the given key.
func (b *base) loadRaw(key string) (domain.RawDataset, bool, error) {
	if !b.deps.Store.Exists(key) {
		b.deps.Metrics.ArtifactLookups.WithLabelValues("raw", "miss").Inc()
		return domain.RawDataset{}, false, nil
	}
	b.deps.Metrics.ArtifactLookups.WithLabelValues("raw", "hit").Inc()

	data, err := b.deps.Store.Read(key)
	if err != nil {
		return domain.RawDataset{}, false, err
	}
	s, err := artifact.UnmarshalSeries(data)
	if err != nil {
		return domain.RawDataset{}, false, err
	}
	b.deps.Logger.Info("raw artifact exists, skipping acquisition", "key", key)
	return domain.RawDataset{Variable: s.Variable, Times: s.Times, Grid: s.Grid, Values: s.Values}, true, nil
}

// storeRaw caches an acquired dataset under the given key.
func (b *base) storeRaw(key string, ds domain.RawDataset) error {
	data, err := artifact.MarshalSeries(domain.GriddedSeries{
		Variable: ds.Variable, Times: ds.Times, Grid: ds.Grid, Values: ds.Values,
	})
	if err != nil {
		return err
	}
	return b.deps.Store.Write(key, data)
}

func (b *base) requireDownloaded() error {
	if !b.downloaded {
		return fmt.Errorf("%w: process called before download for %s", domain.ErrPrecondition, b.args.Product)
	}
	return nil
}
