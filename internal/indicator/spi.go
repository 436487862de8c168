package indicator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/spatial"
)

const precipVariable = "total_precipitation"

// spiDekadFillGap lets a monthly precipitation value cover the remaining
// dekads of its month during alignment.
const spiDekadFillGap = 3

// SPI computes the standardized precipitation index from monthly reanalysis
// precipitation. The acquisition window always spans the full baseline so the
// standardization sample is stable across analysis windows, and the raw
// artifact is keyed by baseline and region rather than the analysis dates so
// overlapping requests share one acquisition.
type SPI struct {
	base
	raw  domain.RawDataset
	calc IndexCalculator
}

// NewSPI builds the SPI indicator for the configured backend. The "gdo"
// backend reads the precomputed spg03 index from the archive instead of
// standardizing reanalysis precipitation.
func NewSPI(settings Settings, args domain.AnalysisArgs, deps Deps) Indicator {
	if settings.Backend == domain.BackendGDO {
		return newArchiveIndicator(settings, args, deps, "spi", spiDekadFillGap, "spg03")
	}
	return &SPI{
		base: base{settings: settings, args: args, deps: deps},
		calc: ZScore{},
	}
}

func (s *SPI) rawKey() string {
	return fmt.Sprintf("raw_tp_%s_%s.json", s.retrieveWindowKey(), s.args.Region.Key())
}

func (s *SPI) retrieveWindowKey() string {
	start, end := s.retrieveWindow()
	return fmt.Sprintf("%s-%s", start.Format("20060102"), end.Format("20060102"))
}

// retrieveWindow spans the baseline plus however far past it the analysis
// window reaches.
func (s *SPI) retrieveWindow() (start, end time.Time) {
	start = s.settings.BaselineStart
	end = s.settings.BaselineEnd
	if s.args.End.After(end) {
		end = s.args.End
	}
	return start, end
}

func (s *SPI) Download(ctx context.Context) error {
	key := s.rawKey()
	if ds, ok, err := s.loadRaw(key); err != nil {
		return err
	} else if ok {
		s.raw = ds
		s.downloaded = true
		return nil
	}

	start, end := s.retrieveWindow()
	ds, err := s.deps.Reanalysis.Retrieve(ctx, precipVariable, s.args.Region, start, end, domain.FreqMonthly)
	if err != nil {
		return fmt.Errorf("spi download: %w", err)
	}
	if err := s.storeRaw(key, ds); err != nil {
		return err
	}
	s.raw = ds
	s.downloaded = true
	return nil
}

func (s *SPI) Process(ctx context.Context) error {
	if done, err := s.loadProcessed(); err != nil || done {
		return err
	}
	if err := s.requireDownloaded(); err != nil {
		return err
	}

	resolved := spatial.Resolve(s.raw, s.args.Region)

	anomaly := standardize(resolved, s.settings, s.calc)
	anomaly.Variable = "spi"

	aligned := domain.Align(anomaly, s.args.Start, s.args.End, domain.AlignOptions{MaxFillGap: spiDekadFillGap})
	aligned.Variable = "spi"
	return s.finish(aligned)
}

// standardize applies the calculator cell by cell, using the samples inside
// the baseline window as the reference. Outside-area cells pass through
// untouched so the polygon mask survives the transform.
func standardize(ds domain.RawDataset, settings Settings, calc IndexCalculator) domain.RawDataset {
	cells := ds.Grid.NumCells()
	out := domain.RawDataset{
		Variable: ds.Variable,
		Times:    ds.Times,
		Grid:     ds.Grid,
		Values:   make([][]float64, len(ds.Times)),
	}
	for ti := range ds.Times {
		out.Values[ti] = make([]float64, cells)
	}

	obs := make([]float64, len(ds.Times))
	for ci := 0; ci < cells; ci++ {
		outside := true
		for ti := range ds.Times {
			obs[ti] = ds.Values[ti][ci]
			if !domain.IsOutside(obs[ti]) {
				outside = false
			}
		}
		if outside {
			for ti := range ds.Times {
				out.Values[ti][ci] = domain.OutsideArea
			}
			continue
		}

		var baseline []float64
		for ti, t := range ds.Times {
			if !t.Before(settings.BaselineStart) && !t.After(settings.BaselineEnd) && domain.IsValid(obs[ti]) {
				baseline = append(baseline, obs[ti])
			}
		}
		std := calc.Calculate(obs, baseline)
		for ti := range ds.Times {
			if domain.IsOutside(obs[ti]) {
				out.Values[ti][ci] = math.NaN()
				continue
			}
			out.Values[ti][ci] = std[ti]
		}
	}
	return out
}
