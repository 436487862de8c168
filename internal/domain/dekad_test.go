package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDekadStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"first day", date(2020, time.January, 1), date(2020, time.January, 1)},
		{"middle of first dekad", date(2020, time.January, 7), date(2020, time.January, 1)},
		{"day ten stays in first", date(2020, time.March, 10), date(2020, time.March, 1)},
		{"day eleven starts second", date(2020, time.March, 11), date(2020, time.March, 11)},
		{"day twenty stays in second", date(2020, time.March, 20), date(2020, time.March, 11)},
		{"day twenty-one starts third", date(2020, time.March, 21), date(2020, time.March, 21)},
		{"month end stays in third", date(2020, time.February, 29), date(2020, time.February, 21)},
		{"intraday time truncated", time.Date(2020, time.June, 15, 13, 45, 0, 0, time.UTC), date(2020, time.June, 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DekadStart(tt.in))
		})
	}
}

func TestAddDekads(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"forward within month", date(2020, time.May, 1), 2, date(2020, time.May, 21)},
		{"forward across month", date(2020, time.May, 21), 1, date(2020, time.June, 1)},
		{"backward across month", date(2020, time.March, 1), -1, date(2020, time.February, 21)},
		{"backward across year", date(2020, time.January, 1), -3, date(2019, time.December, 1)},
		{"zero is identity", date(2020, time.July, 11), 0, date(2020, time.July, 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddDekads(tt.in, tt.n))
		})
	}
}

func TestDekadRange(t *testing.T) {
	got := DekadRange(date(2020, time.January, 5), date(2020, time.February, 12))
	want := []time.Time{
		date(2020, time.January, 1),
		date(2020, time.January, 11),
		date(2020, time.January, 21),
		date(2020, time.February, 1),
		date(2020, time.February, 11),
	}
	assert.Equal(t, want, got)

	assert.Nil(t, DekadRange(date(2020, time.March, 1), date(2020, time.February, 1)))
}

func TestAlignBucketsDailySamplesIntoDekadMeans(t *testing.T) {
	grid := Grid{Lats: []float64{50}, Lons: []float64{1}}
	ds := RawDataset{
		Variable: "sm",
		Grid:     grid,
		Times: []time.Time{
			date(2020, time.January, 2),
			date(2020, time.January, 8),
			date(2020, time.January, 12),
		},
		Values: [][]float64{{2}, {4}, {10}},
	}

	s := Align(ds, date(2020, time.January, 1), date(2020, time.January, 20), AlignOptions{})
	require.Len(t, s.Times, 2)

	assert.Equal(t, date(2020, time.January, 1), s.Times[0])
	assert.InDelta(t, 3.0, s.Values[0][0], 1e-9)
	assert.InDelta(t, 10.0, s.Values[1][0], 1e-9)
}

func TestAlignNoOverlapReturnsEmpty(t *testing.T) {
	ds := RawDataset{
		Variable: "sm",
		Grid:     Grid{Lats: []float64{50}, Lons: []float64{1}},
		Times:    []time.Time{date(2019, time.June, 1)},
		Values:   [][]float64{{1}},
	}

	s := Align(ds, date(2020, time.January, 1), date(2020, time.January, 31), AlignOptions{})
	assert.True(t, s.IsEmpty())
	assert.Equal(t, "sm", s.Variable)
}

func TestAlignGapBecomesMissingWithoutFill(t *testing.T) {
	ds := RawDataset{
		Variable: "sm",
		Grid:     Grid{Lats: []float64{50}, Lons: []float64{1}},
		Times:    []time.Time{date(2020, time.January, 1), date(2020, time.January, 21)},
		Values:   [][]float64{{1}, {3}},
	}

	s := Align(ds, date(2020, time.January, 1), date(2020, time.January, 21), AlignOptions{})
	require.Len(t, s.Times, 3)
	assert.True(t, math.IsNaN(s.Values[1][0]))
}

func TestAlignForwardFillBoundedByMaxGap(t *testing.T) {
	// Monthly samples on a dekad calendar: the two dekads after each month
	// start are gaps, fillable with MaxFillGap 3.
	ds := RawDataset{
		Variable: "spi",
		Grid:     Grid{Lats: []float64{50}, Lons: []float64{1}},
		Times:    []time.Time{date(2020, time.January, 1), date(2020, time.February, 1)},
		Values:   [][]float64{{-1.5}, {0.5}},
	}

	s := Align(ds, date(2020, time.January, 1), date(2020, time.March, 21), AlignOptions{MaxFillGap: 3})
	require.Len(t, s.Times, 9)

	assert.InDelta(t, -1.5, s.Values[0][0], 1e-9)
	assert.InDelta(t, -1.5, s.Values[1][0], 1e-9)
	assert.InDelta(t, -1.5, s.Values[2][0], 1e-9)
	assert.InDelta(t, 0.5, s.Values[3][0], 1e-9)
	// Fill extends three dekads past February's sample, then runs out.
	assert.InDelta(t, 0.5, s.Values[6][0], 1e-9)
	assert.True(t, math.IsNaN(s.Values[7][0]))
	assert.True(t, math.IsNaN(s.Values[8][0]))
}

func TestAlignFillNeverStartsBeforeFirstObservation(t *testing.T) {
	ds := RawDataset{
		Variable: "spi",
		Grid:     Grid{Lats: []float64{50}, Lons: []float64{1}},
		Times:    []time.Time{date(2020, time.January, 21)},
		Values:   [][]float64{{1.0}},
	}

	s := Align(ds, date(2020, time.January, 1), date(2020, time.January, 21), AlignOptions{MaxFillGap: 3})
	require.Len(t, s.Times, 3)
	assert.True(t, math.IsNaN(s.Values[0][0]))
	assert.True(t, math.IsNaN(s.Values[1][0]))
	assert.InDelta(t, 1.0, s.Values[2][0], 1e-9)
}

func TestAlignOutsideAreaSurvivesAggregationAndBlocksFill(t *testing.T) {
	grid := Grid{Lats: []float64{50, 51}, Lons: []float64{1}}
	ds := RawDataset{
		Variable: "fapar",
		Grid:     grid,
		Times: []time.Time{
			date(2020, time.January, 1),
			date(2020, time.January, 11),
		},
		Values: [][]float64{
			{2.0, OutsideArea},
			{OutsideArea, OutsideArea},
		},
	}

	s := Align(ds, date(2020, time.January, 1), date(2020, time.January, 21), AlignOptions{MaxFillGap: 2})
	require.Len(t, s.Times, 3)

	// Cell 1 is masked in every sample: the sentinel survives.
	assert.True(t, IsOutside(s.Values[0][1]))
	assert.True(t, IsOutside(s.Values[1][1]))

	// Cell 0 had a value, then only the sentinel: the fill does not cross it.
	assert.InDelta(t, 2.0, s.Values[0][0], 1e-9)
	assert.True(t, IsOutside(s.Values[1][0]))
	assert.True(t, math.IsNaN(s.Values[2][0]))
}
