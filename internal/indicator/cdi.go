package indicator

import (
	"context"
	"math"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/artifact"
	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/spatial"
)

// Constituent lags, in dekads. Each input is shifted forward by its lag
// before classification, reflecting how long the corresponding signal takes
// to manifest as observed drought impact.
const (
	lagSPI   = 3
	lagSMA   = 2
	lagFAPAR = 1
)

// CDI combines the three standardized indicators into a combined drought
// indicator classification. Its constituents run over windows widened
// backwards by their lag so every classified dekad has shifted input
// available, and their outputs are regridded onto the coarsest shared grid
// before classification.
type CDI struct {
	base
	spi      Indicator
	sma      Indicator
	fapar    Indicator
	combined domain.CombinedSeries
}

func NewCDI(settings Settings, args domain.AnalysisArgs, deps Deps) Indicator {
	// The SPI window also rewinds to a month boundary so the monthly
	// precipitation series starts cleanly.
	spiStart := monthStart(args.Start).AddDate(0, -1, 0)
	smaStart := domain.AddDekads(domain.DekadStart(args.Start), -lagSMA)
	faparStart := domain.AddDekads(domain.DekadStart(args.Start), -lagFAPAR)

	return &CDI{
		base:  base{settings: settings, args: args, deps: deps},
		spi:   NewSPI(settings, args.WithWindow(spiStart, args.End).WithProduct("SPI"), deps),
		sma:   NewSMA(settings, args.WithWindow(smaStart, args.End).WithProduct("SMA"), deps),
		fapar: NewFAPAR(settings, args.WithWindow(faparStart, args.End).WithProduct("FAPAR"), deps),
	}
}

// Combined exposes the per-cell classification records. Empty until Process
// has run.
func (c *CDI) Combined() domain.CombinedSeries { return c.combined }

func (c *CDI) Download(ctx context.Context) error {
	for _, ind := range []Indicator{c.spi, c.sma, c.fapar} {
		if err := ind.Download(ctx); err != nil {
			return err
		}
	}
	c.downloaded = true
	return nil
}

func (c *CDI) combinedKey() string { return c.args.Key() + ".combined.json" }

func (c *CDI) Process(ctx context.Context) error {
	if done, err := c.loadCombined(); err != nil || done {
		return err
	}
	if err := c.requireDownloaded(); err != nil {
		return err
	}

	for _, ind := range []Indicator{c.spi, c.sma, c.fapar} {
		if err := ind.Process(ctx); err != nil {
			return err
		}
	}

	spi, sma, fapar := c.spi.Data(), c.sma.Data(), c.fapar.Data()

	shared := spatial.SharedGrid(spi.Grid, sma.Grid, fapar.Grid)
	spi = spatial.Regrid(spi, shared)
	sma = spatial.Regrid(sma, shared)
	fapar = spatial.Regrid(fapar, shared)

	times := domain.DekadRange(c.args.Start, c.args.End)
	spi = shifted(spi, times, lagSPI)
	sma = shifted(sma, times, lagSMA)
	fapar = shifted(fapar, times, lagFAPAR)

	combined := domain.Combine(times, shared, spi, sma, fapar)

	// A point analysis collapses to a degenerate grid whose cell carries no
	// coordinate of its own; records take the requested point instead.
	if shared.IsPoint() && c.args.Region.Kind == domain.RegionPoint {
		p := c.args.Region.Coords[0]
		for i := range combined.Records {
			combined.Records[i].Location = p
		}
	}

	data, err := artifact.MarshalCombined(combined)
	if err != nil {
		return err
	}
	if err := c.deps.Store.Write(c.combinedKey(), data); err != nil {
		return err
	}
	c.combined = combined
	c.data = statusSeries(combined)
	return nil
}

func (c *CDI) loadCombined() (bool, error) {
	key := c.combinedKey()
	if !c.deps.Store.Exists(key) {
		c.deps.Metrics.ArtifactLookups.WithLabelValues("combined", "miss").Inc()
		return false, nil
	}
	c.deps.Metrics.ArtifactLookups.WithLabelValues("combined", "hit").Inc()

	data, err := c.deps.Store.Read(key)
	if err != nil {
		return false, err
	}
	combined, err := artifact.UnmarshalCombined(data)
	if err != nil {
		return false, err
	}
	c.combined = combined
	c.data = statusSeries(combined)
	c.deps.Logger.Info("combined artifact exists, skipping recomputation", "key", key)
	return true, nil
}

// shifted resamples a series onto the target timestamps, reading each value
// from lag dekads earlier. Timestamps with no source sample become missing.
func shifted(s domain.GriddedSeries, targets []time.Time, lag int) domain.GriddedSeries {
	cells := s.Grid.NumCells()
	out := domain.GriddedSeries{
		Variable: s.Variable,
		Times:    targets,
		Grid:     s.Grid,
		Values:   make([][]float64, len(targets)),
	}
	for ti, t := range targets {
		row := make([]float64, cells)
		si := indexOfTime(s.Times, domain.AddDekads(t, -lag))
		for ci := range row {
			if si < 0 {
				row[ci] = math.NaN()
			} else {
				row[ci] = s.Values[si][ci]
			}
		}
		out.Values[ti] = row
	}
	return out
}

func indexOfTime(times []time.Time, t time.Time) int {
	for i, ti := range times {
		if ti.Equal(t) {
			return i
		}
	}
	return -1
}

// statusSeries flattens classification records into a gridded series of
// status levels, the uniform Data view shared with the scalar indicators.
func statusSeries(combined domain.CombinedSeries) domain.GriddedSeries {
	cells := combined.Grid.NumCells()
	out := domain.GriddedSeries{
		Variable: "cdi",
		Times:    combined.Times,
		Grid:     combined.Grid,
		Values:   make([][]float64, len(combined.Times)),
	}
	for ti := range combined.Times {
		row := make([]float64, cells)
		for ci := range row {
			row[ci] = math.NaN()
		}
		out.Values[ti] = row
	}
	for _, rec := range combined.Records {
		ti := indexOfTime(combined.Times, rec.Time)
		if ti < 0 {
			continue
		}
		ci := 0
		if !combined.Grid.IsPoint() {
			li := spatial.NearestIndex(combined.Grid.Lats, rec.Location.Lat)
			lj := spatial.NearestIndex(combined.Grid.Lons, rec.Location.Lon)
			ci = combined.Grid.CellIndex(li, lj)
		}
		out.Values[ti][ci] = float64(rec.Status)
	}
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
