package domain

import "time"

// Status is the categorical drought severity derived from the three
// anomalies. Levels are ordered by increasing severity.
type Status int

const (
	StatusNormal Status = iota
	StatusWatch
	StatusWarning
	StatusAlert1
	StatusAlert2
)

// droughtThreshold separates anomalous from normal conditions on every input.
const droughtThreshold = -1.0

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "Normal"
	case StatusWatch:
		return "Watch"
	case StatusWarning:
		return "Warning"
	case StatusAlert1:
		return "Alert 1"
	case StatusAlert2:
		return "Alert 2"
	default:
		return "Unknown"
	}
}

// Classify applies the CDI decision table to one (time, cell) tuple,
// evaluating the most specific rule first. Missing and outside-area inputs
// count as "not below threshold", so a cell without precipitation data never
// classifies beyond Normal. ok is false when all three inputs are absent, in
// which case the cell is dropped from output rather than reported as Normal.
func Classify(spi, sma, fpr float64) (status Status, ok bool) {
	if !IsValid(spi) && !IsValid(sma) && !IsValid(fpr) {
		return StatusNormal, false
	}

	below := func(v float64) bool { return IsValid(v) && v < droughtThreshold }
	spiB, smaB, fprB := below(spi), below(sma), below(fpr)

	switch {
	case spiB && smaB && fprB:
		return StatusAlert1, true
	case spiB && fprB:
		return StatusAlert2, true
	case spiB && smaB:
		return StatusWarning, true
	case spiB:
		return StatusWatch, true
	default:
		return StatusNormal, true
	}
}

// CDIRecord is one emitted (time, location) tuple of the combined indicator.
// Anomaly pointers are nil when the input was missing at that cell.
type CDIRecord struct {
	Time     time.Time `json:"time"`
	Location Geo       `json:"location"`
	SPI      *float64  `json:"spi,omitempty"`
	SMA      *float64  `json:"sma,omitempty"`
	FAPAR    *float64  `json:"fapar,omitempty"`
	Status   Status    `json:"status"`
	Label    string    `json:"label"`
}

// CombinedSeries is the combiner output: the three constituent anomalies and
// the derived status on the shared grid and dekad calendar. Cells that are
// outside the polygon, or where all three inputs are missing, carry no record.
type CombinedSeries struct {
	Times   []time.Time `json:"times"`
	Grid    Grid        `json:"grid"`
	Records []CDIRecord `json:"records"`
}

// IsEmpty reports whether the combine produced no classifiable cells.
func (c CombinedSeries) IsEmpty() bool { return len(c.Records) == 0 }

// Combine merges three dekad-aligned constituent series, which must already
// share a grid and time axis, into classified records. Spatial and temporal
// reconciliation happen before this step; Combine itself is a pure pass over
// aligned cells.
func Combine(times []time.Time, grid Grid, spi, sma, fpr GriddedSeries) CombinedSeries {
	out := CombinedSeries{Times: times, Grid: grid}
	cells := grid.NumCells()

	for _, t := range times {
		for ci := 0; ci < cells; ci++ {
			sv := valueAt(spi, t, ci)
			mv := valueAt(sma, t, ci)
			fv := valueAt(fpr, t, ci)

			status, ok := Classify(sv, mv, fv)
			if !ok {
				continue
			}

			out.Records = append(out.Records, CDIRecord{
				Time:     t,
				Location: grid.CellCenter(ci),
				SPI:      optional(sv),
				SMA:      optional(mv),
				FAPAR:    optional(fv),
				Status:   status,
				Label:    status.String(),
			})
		}
	}
	return out
}

// valueAt reads a series at (t, ci), yielding NaN when the series has no such
// timestamp (e.g. the empty result of an overlap-free alignment).
func valueAt(s GriddedSeries, t time.Time, ci int) float64 {
	ti := s.timeIndex(t)
	if ti < 0 || ci >= s.Grid.NumCells() {
		return nan()
	}
	return s.At(ti, ci)
}

func optional(v float64) *float64 {
	if !IsValid(v) {
		return nil
	}
	return &v
}
