package indicator

import (
	"context"
	"fmt"

	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/spatial"
)

const soilWaterVariable = "volumetric_soil_water"

// SMA computes the soil moisture anomaly from reanalysis soil water. Two
// retrievals feed it: a monthly series over the baseline window that supplies
// the standardization sample, and an hourly series over the analysis window
// that is averaged into dekads before standardizing.
type SMA struct {
	base
	calc     IndexCalculator
	baseline domain.RawDataset
	recent   domain.RawDataset
}

// NewSMA builds the SMA indicator for the configured backend. The "gdo"
// backend reads the precomputed smant product, with smand filling its gaps.
func NewSMA(settings Settings, args domain.AnalysisArgs, deps Deps) Indicator {
	if settings.Backend == domain.BackendGDO {
		return newArchiveIndicator(settings, args, deps, "sma", 0, "smant", "smand")
	}
	return &SMA{
		base: base{settings: settings, args: args, deps: deps},
		calc: ZScore{},
	}
}

func (s *SMA) baselineKey() string {
	return fmt.Sprintf("raw_sw_base_%s-%s_%s.json",
		s.settings.BaselineStart.Format("20060102"),
		s.settings.BaselineEnd.Format("20060102"),
		s.args.Region.Key())
}

func (s *SMA) recentKey() string {
	return fmt.Sprintf("raw_sw_%s-%s_%s.json",
		s.args.Start.Format("20060102"),
		s.args.End.Format("20060102"),
		s.args.Region.Key())
}

func (s *SMA) Download(ctx context.Context) error {
	key := s.baselineKey()
	ds, ok, err := s.loadRaw(key)
	if err != nil {
		return err
	}
	if !ok {
		ds, err = s.deps.Reanalysis.Retrieve(ctx, soilWaterVariable, s.args.Region,
			s.settings.BaselineStart, s.settings.BaselineEnd, domain.FreqMonthly)
		if err != nil {
			return fmt.Errorf("sma baseline download: %w", err)
		}
		if err := s.storeRaw(key, ds); err != nil {
			return err
		}
	}
	s.baseline = ds

	key = s.recentKey()
	ds, ok, err = s.loadRaw(key)
	if err != nil {
		return err
	}
	if !ok {
		ds, err = s.deps.Reanalysis.Retrieve(ctx, soilWaterVariable, s.args.Region,
			s.args.Start, s.args.End, domain.FreqHourly)
		if err != nil {
			return fmt.Errorf("sma download: %w", err)
		}
		if err := s.storeRaw(key, ds); err != nil {
			return err
		}
	}
	s.recent = ds
	s.downloaded = true
	return nil
}

func (s *SMA) Process(ctx context.Context) error {
	if done, err := s.loadProcessed(); err != nil || done {
		return err
	}
	if err := s.requireDownloaded(); err != nil {
		return err
	}

	baseline := spatial.Resolve(s.baseline, s.args.Region)
	recent := spatial.Resolve(s.recent, s.args.Region)

	// Hourly samples collapse to dekad means before standardizing.
	dekads := domain.Align(recent, s.args.Start, s.args.End, domain.AlignOptions{})

	out := domain.GriddedSeries{
		Variable: "sma",
		Times:    dekads.Times,
		Grid:     dekads.Grid,
		Values:   make([][]float64, len(dekads.Times)),
	}
	for ti := range dekads.Times {
		out.Values[ti] = make([]float64, dekads.Grid.NumCells())
	}

	obs := make([]float64, len(dekads.Times))
	for ci := 0; ci < dekads.Grid.NumCells(); ci++ {
		for ti := range dekads.Times {
			obs[ti] = dekads.Values[ti][ci]
		}
		std := s.calc.Calculate(obs, baselineSample(baseline, dekads.Grid, ci))
		for ti := range dekads.Times {
			if domain.IsOutside(obs[ti]) {
				out.Values[ti][ci] = domain.OutsideArea
				continue
			}
			out.Values[ti][ci] = std[ti]
		}
	}
	return s.finish(out)
}

// baselineSample collects the valid monthly baseline values for the baseline
// cell nearest to the given analysis cell. The two retrievals usually share a
// grid; nearest lookup covers the case where they do not.
func baselineSample(baseline domain.RawDataset, grid domain.Grid, cell int) []float64 {
	var bi int
	if !baseline.Grid.IsPoint() {
		center := grid.CellCenter(cell)
		li := spatial.NearestIndex(baseline.Grid.Lats, center.Lat)
		lj := spatial.NearestIndex(baseline.Grid.Lons, center.Lon)
		bi = baseline.Grid.CellIndex(li, lj)
	}

	var sample []float64
	for ti := range baseline.Times {
		if v := baseline.Values[ti][bi]; domain.IsValid(v) {
			sample = append(sample, v)
		}
	}
	return sample
}
