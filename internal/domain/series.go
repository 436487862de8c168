package domain

import (
	"math"
	"time"
)

// OutsideArea marks a grid cell whose center falls outside the requested
// polygon. It is distinct from NaN (no data): downstream consumers filter it
// rather than treat it as a gap.
const OutsideArea = -9999.0

// IsMissing reports whether v carries no data.
func IsMissing(v float64) bool { return math.IsNaN(v) }

func nan() float64 { return math.NaN() }

// IsOutside reports whether v is the outside-area sentinel.
func IsOutside(v float64) bool { return v == OutsideArea }

// IsValid reports whether v is an observed value, i.e. neither missing nor
// masked out.
func IsValid(v float64) bool { return !IsMissing(v) && !IsOutside(v) }

// Grid holds the spatial coordinate axes of a gridded dataset, both ascending.
// A zero Grid denotes a point series with a single implicit cell.
type Grid struct {
	Lats []float64 `json:"lats,omitempty"`
	Lons []float64 `json:"lons,omitempty"`
}

// IsPoint reports whether the grid is degenerate (point series).
func (g Grid) IsPoint() bool { return len(g.Lats) == 0 && len(g.Lons) == 0 }

// NumCells returns the number of spatial cells; a point series has one.
func (g Grid) NumCells() int {
	if g.IsPoint() {
		return 1
	}
	return len(g.Lats) * len(g.Lons)
}

// CellIndex flattens (lat index, lon index) into the cell axis.
func (g Grid) CellIndex(li, lj int) int { return li*len(g.Lons) + lj }

// CellCenter returns the coordinate of a flattened cell index.
func (g Grid) CellCenter(ci int) Geo {
	if g.IsPoint() {
		return Geo{}
	}
	return Geo{Lat: g.Lats[ci/len(g.Lons)], Lon: g.Lons[ci%len(g.Lons)]}
}

// Resolution returns the mean spacing across both axes, used to pick the
// highest-resolution grid when regridding for the combiner. Point grids and
// single-cell grids report +Inf: neither has measurable spacing, and the
// shared-grid choice breaks that tie in favor of grids with coordinates.
func (g Grid) Resolution() float64 {
	if g.IsPoint() {
		return math.Inf(1)
	}
	spacing := func(axis []float64) (float64, int) {
		if len(axis) < 2 {
			return 0, 0
		}
		return math.Abs(axis[len(axis)-1]-axis[0]) / float64(len(axis)-1), 1
	}
	latStep, nLat := spacing(g.Lats)
	lonStep, nLon := spacing(g.Lons)
	if nLat+nLon == 0 {
		return math.Inf(1)
	}
	return (latStep + lonStep) / float64(nLat+nLon)
}

// Equal reports whether two grids share identical axes.
func (g Grid) Equal(o Grid) bool {
	if len(g.Lats) != len(o.Lats) || len(g.Lons) != len(o.Lons) {
		return false
	}
	for i := range g.Lats {
		if g.Lats[i] != o.Lats[i] {
			return false
		}
	}
	for i := range g.Lons {
		if g.Lons[i] != o.Lons[i] {
			return false
		}
	}
	return true
}

// RawDataset is an acquired source dataset before temporal alignment. Times
// may be irregular and of any frequency; Values is indexed [time][cell] with
// cells flattened in lat-major order.
type RawDataset struct {
	Variable string
	Times    []time.Time
	Grid     Grid
	Values   [][]float64
}

// IsEmpty reports whether the dataset holds no samples.
func (d RawDataset) IsEmpty() bool { return len(d.Times) == 0 }

// GriddedSeries is a dekad-aligned series over (time, cell). The time axis is
// strictly increasing with no duplicates; every timestamp is a dekad start.
type GriddedSeries struct {
	Variable string      `json:"variable"`
	Times    []time.Time `json:"times"`
	Grid     Grid        `json:"grid"`
	Values   [][]float64 `json:"values"`
}

// IsEmpty reports whether the series holds no timestamps. An empty series is
// a valid signal that no source data exists for the window.
func (s GriddedSeries) IsEmpty() bool { return len(s.Times) == 0 }

// At returns the value at (time index, cell index).
func (s GriddedSeries) At(ti, ci int) float64 { return s.Values[ti][ci] }

// timeIndex returns the position of t in the series, or -1.
func (s GriddedSeries) timeIndex(t time.Time) int {
	for i, st := range s.Times {
		if st.Equal(t) {
			return i
		}
	}
	return -1
}
