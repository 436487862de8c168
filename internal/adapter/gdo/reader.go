// Package gdo reads pre-computed Global Drought Observatory products from
// local archive files. The collector converts each GDO NetCDF release into
// flat gridded JSON under <root>/<product code>/, typically one file per
// year; this reader merges whatever files are present, trims them to the
// analysis window, and resolves the region.
package gdo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/observability"
	"github.com/droughtwatch/cdi-etl/internal/spatial"
)

// Reader implements domain.ArchiveSource over the collector's output tree.
type Reader struct {
	root    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReader creates a reader rooted at the collector's input directory.
func NewReader(root string, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	return &Reader{root: root, logger: logger, metrics: metrics}
}

// Load merges all archive files for a product code, trims to [start, end],
// and resolves the region at the product's native grid. A product directory
// with no files is an acquisition failure: the collector has not supplied
// the pre-computed input.
func (r *Reader) Load(ctx context.Context, product string, region domain.Region, start, end time.Time) (domain.RawDataset, error) {
	started := time.Now()
	ds, err := r.load(ctx, product, region, start, end)
	r.metrics.AcquisitionDuration.WithLabelValues("gdo").Observe(time.Since(started).Seconds())
	if err != nil {
		r.metrics.AcquisitionRequests.WithLabelValues("gdo", "error").Inc()
		return domain.RawDataset{}, err
	}
	r.metrics.AcquisitionRequests.WithLabelValues("gdo", "success").Inc()
	return ds, nil
}

func (r *Reader) load(ctx context.Context, product string, region domain.Region, start, end time.Time) (domain.RawDataset, error) {
	pattern := filepath.Join(r.root, product, product+"*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return domain.RawDataset{}, fmt.Errorf("%w: %v", domain.ErrAcquisition, err)
	}
	if len(files) == 0 {
		return domain.RawDataset{}, fmt.Errorf("%w: no files matching %s", domain.ErrMissingArchive, pattern)
	}
	sort.Strings(files)

	merged := domain.RawDataset{Variable: product}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return domain.RawDataset{}, err
		}
		part, err := readFile(f)
		if err != nil {
			return domain.RawDataset{}, err
		}
		if merged.IsEmpty() {
			merged.Grid = part.Grid
		} else if !merged.Grid.Equal(part.Grid) {
			return domain.RawDataset{}, fmt.Errorf("%w: %s grid differs from earlier files", domain.ErrAcquisition, f)
		}
		for i, t := range part.Times {
			if t.Before(start) || t.After(end) {
				continue
			}
			merged.Times = append(merged.Times, t)
			merged.Values = append(merged.Values, part.Values[i])
		}
	}

	r.logger.Debug("archive load complete", "product", product,
		"files", len(files), "samples", len(merged.Times))
	return spatial.Resolve(merged, region), nil
}

// Archive file layout, as written by the collector.

type archiveDoc struct {
	Variable string       `json:"variable"`
	Times    []string     `json:"times"` // RFC 3339
	Lats     []float64    `json:"lats"`
	Lons     []float64    `json:"lons"`
	Values   [][]*float64 `json:"values"` // [time][cell], null for missing
}

func readFile(path string) (domain.RawDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawDataset{}, fmt.Errorf("%w: %v", domain.ErrMissingArchive, err)
	}

	var doc archiveDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.RawDataset{}, fmt.Errorf("%w: decode %s: %v", domain.ErrAcquisition, path, err)
	}

	ds := domain.RawDataset{
		Variable: doc.Variable,
		Grid:     domain.Grid{Lats: doc.Lats, Lons: doc.Lons},
	}
	for _, ts := range doc.Times {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return domain.RawDataset{}, fmt.Errorf("%w: %s: bad timestamp %q", domain.ErrAcquisition, path, ts)
		}
		ds.Times = append(ds.Times, t.UTC())
	}
	cells := ds.Grid.NumCells()
	for i, row := range doc.Values {
		if len(row) != cells {
			return domain.RawDataset{}, fmt.Errorf("%w: %s: row %d has %d cells, grid has %d", domain.ErrAcquisition, path, i, len(row), cells)
		}
		dec := make([]float64, cells)
		for ci, v := range row {
			if v == nil {
				dec[ci] = math.NaN()
			} else {
				dec[ci] = *v
			}
		}
		ds.Values = append(ds.Values, dec)
	}
	return ds, nil
}
