package indicator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// archiveIndicator serves products whose index values are precomputed
// upstream and delivered as collector archive files. Download loads and
// merges the archive products; Process only aligns the merged series onto
// the dekad calendar. Later products in the list fill gaps left by earlier
// ones, which is how the short-term soil moisture layer backs up the
// primary one.
type archiveIndicator struct {
	base
	variable string
	fillGap  int
	products []string
	raw      domain.RawDataset
}

func newArchiveIndicator(settings Settings, args domain.AnalysisArgs, deps Deps, variable string, fillGap int, products ...string) *archiveIndicator {
	return &archiveIndicator{
		base:     base{settings: settings, args: args, deps: deps},
		variable: variable,
		fillGap:  fillGap,
		products: products,
	}
}

// NewFAPAR builds the fAPAR anomaly indicator. The anomaly is always read
// from the archive; there is no reanalysis path for it.
func NewFAPAR(settings Settings, args domain.AnalysisArgs, deps Deps) Indicator {
	return newArchiveIndicator(settings, args, deps, "fapar", 0, "fpanv")
}

func (a *archiveIndicator) Download(ctx context.Context) error {
	merged := domain.RawDataset{}
	for _, product := range a.products {
		ds, err := a.deps.Archive.Load(ctx, product, a.args.Region, a.args.Start, a.args.End)
		if err != nil {
			return fmt.Errorf("archive download %s: %w", product, err)
		}
		if merged.Variable == "" {
			merged = ds
			continue
		}
		merged, err = mergeFallback(merged, ds)
		if err != nil {
			return fmt.Errorf("archive download %s: %w", product, err)
		}
	}
	merged.Variable = a.variable
	a.raw = merged
	a.downloaded = true
	return nil
}

func (a *archiveIndicator) Process(ctx context.Context) error {
	if done, err := a.loadProcessed(); err != nil || done {
		return err
	}
	if err := a.requireDownloaded(); err != nil {
		return err
	}

	aligned := domain.Align(a.raw, a.args.Start, a.args.End, domain.AlignOptions{MaxFillGap: a.fillGap})
	aligned.Variable = a.variable
	return a.finish(aligned)
}

// mergeFallback overlays fallback onto primary: missing primary values take
// the fallback value at the same timestamp, and fallback-only timestamps are
// appended. Both datasets must share a grid.
func mergeFallback(primary, fallback domain.RawDataset) (domain.RawDataset, error) {
	if !primary.Grid.Equal(fallback.Grid) {
		return domain.RawDataset{}, fmt.Errorf("%w: fallback product grid differs from primary", domain.ErrAcquisition)
	}

	cells := primary.Grid.NumCells()
	rows := make(map[time.Time][]float64, len(primary.Times))
	for ti, t := range primary.Times {
		row := make([]float64, cells)
		copy(row, primary.Values[ti])
		rows[t] = row
	}
	for ti, t := range fallback.Times {
		row, ok := rows[t]
		if !ok {
			row = make([]float64, cells)
			for ci := range row {
				row[ci] = math.NaN()
			}
			rows[t] = row
		}
		for ci := range row {
			if domain.IsMissing(row[ci]) {
				row[ci] = fallback.Values[ti][ci]
			}
		}
	}

	times := make([]time.Time, 0, len(rows))
	for t := range rows {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	out := domain.RawDataset{
		Variable: primary.Variable,
		Times:    times,
		Grid:     primary.Grid,
		Values:   make([][]float64, len(times)),
	}
	for ti, t := range times {
		out.Values[ti] = rows[t]
	}
	return out, nil
}
