package domain

import "time"

// DekadStart returns the canonical timestamp of the dekad containing t: day
// 1, 11, or 21 of t's month, whichever is the largest not exceeding t's day,
// at midnight UTC.
func DekadStart(t time.Time) time.Time {
	t = t.UTC()
	day := 1
	switch {
	case t.Day() >= 21:
		day = 21
	case t.Day() >= 11:
		day = 11
	}
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC)
}

// dekadIndex maps a dekad start onto a monotonically increasing counter,
// 36 dekads per year.
func dekadIndex(t time.Time) int {
	return t.Year()*36 + (int(t.Month())-1)*3 + (t.Day()-1)/10
}

func dekadFromIndex(i int) time.Time {
	year := i / 36
	rem := i % 36
	return time.Date(year, time.Month(rem/3+1), rem%3*10+1, 0, 0, 0, 0, time.UTC)
}

// AddDekads shifts a dekad start by n dekads (negative for earlier).
func AddDekads(t time.Time, n int) time.Time {
	return dekadFromIndex(dekadIndex(DekadStart(t)) + n)
}

// DekadRange returns every dekad start from the dekad containing start
// through the dekad containing end, inclusive. An inverted range is empty.
func DekadRange(start, end time.Time) []time.Time {
	lo, hi := dekadIndex(DekadStart(start)), dekadIndex(DekadStart(end))
	if lo > hi {
		return nil
	}
	out := make([]time.Time, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, dekadFromIndex(i))
	}
	return out
}

// AlignOptions tunes gap handling during alignment. The zero value inserts
// NaN for dekads with no source sample, which is the default for every
// indicator: interpolation is never introduced silently.
type AlignOptions struct {
	// MaxFillGap carries the last observed value forward over at most this
	// many consecutive empty dekads. Used by indicators that declare it,
	// e.g. monthly SPI re-based onto dekads. Zero disables filling.
	MaxFillGap int
}

// Align re-bases a source dataset onto the canonical dekad calendar covering
// [start, end]. Samples finer than a dekad are averaged into their bucket;
// dekads with no sample become NaN (or the outside-area sentinel when every
// contributing sample is masked). The result is deterministic, and aligning
// an already dekad-aligned series onto its own range is a no-op.
//
// If no source sample falls inside the range, Align returns an empty series
// rather than an error: empty output tells downstream components that no
// data exists for the window.
func Align(ds RawDataset, start, end time.Time, opt AlignOptions) GriddedSeries {
	targets := DekadRange(start, end)
	cells := ds.Grid.NumCells()

	bucket := make(map[int]int, len(targets))
	for i, t := range targets {
		bucket[dekadIndex(t)] = i
	}

	sums := make([][]float64, len(targets))
	counts := make([][]int, len(targets))
	masked := make([]bool, len(targets))
	for i := range targets {
		sums[i] = make([]float64, cells)
		counts[i] = make([]int, cells)
	}

	matched := false
	for si, st := range ds.Times {
		bi, ok := bucket[dekadIndex(DekadStart(st))]
		if !ok {
			continue
		}
		matched = true
		masked[bi] = true
		for ci := 0; ci < cells; ci++ {
			if v := ds.Values[si][ci]; IsValid(v) {
				sums[bi][ci] += v
				counts[bi][ci]++
			}
		}
	}

	if !matched {
		return GriddedSeries{Variable: ds.Variable, Grid: ds.Grid}
	}

	values := make([][]float64, len(targets))
	for i := range targets {
		row := make([]float64, cells)
		for ci := 0; ci < cells; ci++ {
			switch {
			case counts[i][ci] > 0:
				row[ci] = sums[i][ci] / float64(counts[i][ci])
			case masked[i] && cellMasked(ds, bucket, i, ci):
				row[ci] = OutsideArea
			default:
				row[ci] = nan()
			}
		}
		values[i] = row
	}

	if opt.MaxFillGap > 0 {
		forwardFill(values, cells, opt.MaxFillGap)
	}

	return GriddedSeries{Variable: ds.Variable, Times: targets, Grid: ds.Grid, Values: values}
}

// cellMasked reports whether every source sample feeding target bucket bi
// carries the outside-area sentinel for cell ci. The mask survives
// aggregation; a gap does not.
func cellMasked(ds RawDataset, bucket map[int]int, bi, ci int) bool {
	any := false
	for si, st := range ds.Times {
		if idx, ok := bucket[dekadIndex(DekadStart(st))]; !ok || idx != bi {
			continue
		}
		if !IsOutside(ds.Values[si][ci]) {
			return false
		}
		any = true
	}
	return any
}

// forwardFill carries the last observed value over runs of missing dekads up
// to maxGap long. Fills never start before the first observation and never
// cross the sentinel.
func forwardFill(values [][]float64, cells, maxGap int) {
	for ci := 0; ci < cells; ci++ {
		last := nan()
		gap := 0
		for ti := range values {
			v := values[ti][ci]
			switch {
			case IsValid(v):
				last, gap = v, 0
			case IsOutside(v):
				last, gap = nan(), 0
			case IsValid(last) && gap < maxGap:
				values[ti][ci] = last
				gap++
			default:
				gap++
			}
		}
	}
}
