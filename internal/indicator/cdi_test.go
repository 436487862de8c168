package indicator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

func archiveSeries(variable string, values map[string]float64) domain.RawDataset {
	ds := domain.RawDataset{
		Variable: variable,
		Grid:     domain.Grid{Lats: []float64{52.5}, Lons: []float64{1.25}},
	}
	for date, v := range values {
		t, _ := domain.ParseDate(date)
		ds.Times = append(ds.Times, t)
		ds.Values = append(ds.Values, []float64{v})
	}
	return ds
}

// cdiArchive supplies all three constituents from archive products with the
// lagged dekads populated: classification of 2020-02-01 reads SPI from three
// dekads back, SMA from two, and fAPAR from one.
func cdiArchive(spi, sma, fapar float64) *fakeArchive {
	return &fakeArchive{datasets: map[string]domain.RawDataset{
		"spg03": archiveSeries("spg03", map[string]float64{"20200101": spi}),
		"smant": archiveSeries("smant", map[string]float64{"20200111": sma}),
		"smand": archiveSeries("smand", map[string]float64{"20200111": sma}),
		"fpanv": archiveSeries("fpanv", map[string]float64{"20200121": fapar}),
	}}
}

func gdoSettings() Settings {
	s := testSettings()
	s.Backend = domain.BackendGDO
	return s
}

func runCDI(t *testing.T, archive *fakeArchive) *CDI {
	t.Helper()
	deps := testDeps(t, nil, archive)
	args := pointArgs(t, "CDI", "20200201", "20200210")

	ind, ok := NewCDI(gdoSettings(), args, deps).(*CDI)
	require.True(t, ok)
	require.NoError(t, ind.Download(context.Background()))
	require.NoError(t, ind.Process(context.Background()))
	return ind
}

func TestCDIAppliesLaggedConstituents(t *testing.T) {
	ind := runCDI(t, cdiArchive(-1.5, -1.2, -1.3))

	combined := ind.Combined()
	require.Len(t, combined.Records, 1)

	rec := combined.Records[0]
	assert.Equal(t, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), rec.Time)
	assert.Equal(t, domain.Geo{Lat: 52.5, Lon: 1.25}, rec.Location)
	assert.Equal(t, domain.StatusAlert1, rec.Status)
	assert.Equal(t, "Alert 1", rec.Label)

	require.NotNil(t, rec.SPI)
	assert.InDelta(t, -1.5, *rec.SPI, 1e-9)
	require.NotNil(t, rec.SMA)
	assert.InDelta(t, -1.2, *rec.SMA, 1e-9)
	require.NotNil(t, rec.FAPAR)
	assert.InDelta(t, -1.3, *rec.FAPAR, 1e-9)
}

func TestCDIBoundingBoxKeepsCellCoordinates(t *testing.T) {
	region, err := domain.NewRegion([]domain.Geo{{Lat: 50, Lon: 0}, {Lat: 54, Lon: 4}})
	require.NoError(t, err)
	start, err := domain.ParseDate("20200201")
	require.NoError(t, err)
	end, err := domain.ParseDate("20200210")
	require.NoError(t, err)
	args, err := domain.NewAnalysisArgs(region, start, end, "CDI", "")
	require.NoError(t, err)

	// The archive resolves the box to a single cell. Its coordinate, not a
	// degenerate origin, must survive into the combined records.
	deps := testDeps(t, nil, cdiArchive(-1.5, -1.2, -1.3))
	ind, ok := NewCDI(gdoSettings(), args, deps).(*CDI)
	require.True(t, ok)
	require.NoError(t, ind.Download(context.Background()))
	require.NoError(t, ind.Process(context.Background()))

	combined := ind.Combined()
	require.Len(t, combined.Records, 1)
	assert.Equal(t, domain.Geo{Lat: 52.5, Lon: 1.25}, combined.Records[0].Location)
	assert.Equal(t, domain.StatusAlert1, combined.Records[0].Status)
}

func TestCDIClassificationLevels(t *testing.T) {
	tests := []struct {
		name            string
		spi, sma, fapar float64
		want            domain.Status
	}{
		{"all below", -1.5, -1.2, -1.3, domain.StatusAlert1},
		{"spi and fapar below", -1.5, 0.0, -1.3, domain.StatusAlert2},
		{"spi and sma below", -1.5, -1.2, 0.0, domain.StatusWarning},
		{"spi alone below", -1.5, 0.0, 0.0, domain.StatusWatch},
		{"nothing below", 0.5, 0.0, 0.0, domain.StatusNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := runCDI(t, cdiArchive(tt.spi, tt.sma, tt.fapar))
			combined := ind.Combined()
			require.Len(t, combined.Records, 1)
			assert.Equal(t, tt.want, combined.Records[0].Status)
		})
	}
}

func TestCDISoilMoistureFallbackFillsPrimaryGaps(t *testing.T) {
	archive := cdiArchive(-1.5, -1.2, -1.3)
	// The primary soil moisture product has a gap where the fallback does not.
	archive.datasets["smant"] = archiveSeries("smant", map[string]float64{"20200111": math.NaN()})

	ind := runCDI(t, archive)
	combined := ind.Combined()
	require.Len(t, combined.Records, 1)

	require.NotNil(t, combined.Records[0].SMA)
	assert.InDelta(t, -1.2, *combined.Records[0].SMA, 1e-9)
	assert.Equal(t, domain.StatusAlert1, combined.Records[0].Status)
}

func TestCDIMissingArchiveFailsDownload(t *testing.T) {
	archive := cdiArchive(-1.5, -1.2, -1.3)
	delete(archive.datasets, "smant")
	delete(archive.datasets, "smand")

	deps := testDeps(t, nil, archive)
	ind := NewCDI(gdoSettings(), pointArgs(t, "CDI", "20200201", "20200210"), deps)

	// The constituent download fails outright when its archive is absent.
	err := ind.Download(context.Background())
	assert.ErrorIs(t, err, domain.ErrMissingArchive)
}

func TestCDIDataExposesStatusLevels(t *testing.T) {
	ind := runCDI(t, cdiArchive(-1.5, 0.0, -1.3))

	data := ind.Data()
	require.Len(t, data.Times, 1)
	assert.Equal(t, "cdi", data.Variable)
	assert.InDelta(t, float64(domain.StatusAlert2), data.Values[0][0], 1e-9)
}

func TestCDICombinedArtifactShortCircuits(t *testing.T) {
	archive := cdiArchive(-1.5, -1.2, -1.3)
	deps := testDeps(t, nil, archive)
	args := pointArgs(t, "CDI", "20200201", "20200210")

	first := NewCDI(gdoSettings(), args, deps).(*CDI)
	require.NoError(t, first.Download(context.Background()))
	require.NoError(t, first.Process(context.Background()))

	// A fresh instance restores the combined output without downloading.
	deps.Archive = &fakeArchive{err: domain.ErrAcquisition}
	second := NewCDI(gdoSettings(), args, deps).(*CDI)
	require.NoError(t, second.Process(context.Background()))

	assert.Equal(t, first.Combined(), second.Combined())
}
