package artifact

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

func sampleSeries() domain.GriddedSeries {
	return domain.GriddedSeries{
		Variable: "spi",
		Times: []time.Time{
			time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC),
		},
		Grid: domain.Grid{Lats: []float64{50, 51}, Lons: []float64{1}},
		Values: [][]float64{
			{-1.5, domain.OutsideArea},
			{math.NaN(), domain.OutsideArea},
		},
	}
}

func TestExportSeriesCSV(t *testing.T) {
	data, err := ExportSeriesCSV(sampleSeries())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "date,lat,lon,spi", lines[0])
	assert.Equal(t, "2020-01-01,50.0000,1.0000,-1.5000", lines[1])
	// The gap stays as an empty field; the masked cell never appears.
	assert.Equal(t, "2020-01-11,50.0000,1.0000,", lines[2])
}

func TestExportSeriesCSVPointOmitsCoordinates(t *testing.T) {
	s := domain.GriddedSeries{
		Variable: "sma",
		Times:    []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		Values:   [][]float64{{0.25}},
	}
	data, err := ExportSeriesCSV(s)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,sma", lines[0])
	assert.Equal(t, "2020-01-01,0.2500", lines[1])
}

func TestExportCombinedCSV(t *testing.T) {
	spi := -1.5
	c := domain.CombinedSeries{
		Times: []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		Records: []domain.CDIRecord{{
			Time:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Location: domain.Geo{Lat: 52.5, Lon: 1.25},
			SPI:      &spi,
			Status:   domain.StatusWatch,
			Label:    "Watch",
		}},
	}

	data, err := ExportCombinedCSV(c)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,lat,lon,spi,sma,fapar,cdi,status", lines[0])
	assert.Equal(t, "2020-01-01,52.5000,1.2500,-1.5000,,,1,Watch", lines[1])
}

func TestExportSeriesGeoJSON(t *testing.T) {
	data, err := ExportSeriesGeoJSON(sampleSeries(), domain.Geo{Lat: 50, Lon: 1})
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	// The fully-masked cell produces no feature.
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	// GeoJSON positions are [lon, lat].
	assert.Equal(t, []float64{1, 50}, f.Geometry.Coordinates)
}

func TestSeriesCodecRoundTrip(t *testing.T) {
	s := sampleSeries()

	data, err := MarshalSeries(s)
	require.NoError(t, err)

	got, err := UnmarshalSeries(data)
	require.NoError(t, err)

	assert.Equal(t, s.Variable, got.Variable)
	assert.Equal(t, s.Times, got.Times)
	assert.Equal(t, s.Grid, got.Grid)

	// NaN survives as null, the sentinel as a plain number.
	assert.InDelta(t, -1.5, got.Values[0][0], 1e-9)
	assert.True(t, domain.IsMissing(got.Values[1][0]))
	assert.True(t, domain.IsOutside(got.Values[0][1]))
}

func TestCombinedCodecRoundTrip(t *testing.T) {
	spi := -2.0
	c := domain.CombinedSeries{
		Times: []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		Grid:  domain.Grid{Lats: []float64{50}, Lons: []float64{1}},
		Records: []domain.CDIRecord{{
			Time:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Location: domain.Geo{Lat: 50, Lon: 1},
			SPI:      &spi,
			Status:   domain.StatusWatch,
			Label:    "Watch",
		}},
	}

	data, err := MarshalCombined(c)
	require.NoError(t, err)

	got, err := UnmarshalCombined(data)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
