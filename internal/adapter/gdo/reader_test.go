package gdo

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/observability"
)

func testReader(t *testing.T, root string) *Reader {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReader(root, logger, observability.NewMetricsForTesting())
}

func writeFixture(t *testing.T, root, product, name, content string) {
	t.Helper()
	dir := filepath.Join(root, product)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const fixture2020 = `{
	"variable": "spg03",
	"times": ["2020-01-01T00:00:00Z", "2020-01-11T00:00:00Z"],
	"lats": [50, 51],
	"lons": [1],
	"values": [[-1.5, 0.2], [null, -0.4]]
}`

func pointRegion(t *testing.T) domain.Region {
	t.Helper()
	region, err := domain.NewRegion([]domain.Geo{{Lat: 50.1, Lon: 1.0}})
	require.NoError(t, err)
	return region
}

func window(t *testing.T, start, end string) (time.Time, time.Time) {
	t.Helper()
	s, err := domain.ParseDate(start)
	require.NoError(t, err)
	e, err := domain.ParseDate(end)
	require.NoError(t, err)
	return s, e
}

func TestLoadResolvesPointAndDecodesNulls(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "spg03", "spg03_2020.json", fixture2020)

	start, end := window(t, "20200101", "20200131")
	ds, err := testReader(t, root).Load(context.Background(), "spg03", pointRegion(t), start, end)
	require.NoError(t, err)

	assert.Equal(t, "spg03", ds.Variable)
	require.Len(t, ds.Times, 2)
	assert.True(t, ds.Grid.IsPoint())
	assert.InDelta(t, -1.5, ds.Values[0][0], 1e-9)
	assert.True(t, math.IsNaN(ds.Values[1][0]))
}

func TestLoadTrimsToAnalysisWindow(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "spg03", "spg03_2020.json", fixture2020)

	start, end := window(t, "20200110", "20200131")
	ds, err := testReader(t, root).Load(context.Background(), "spg03", pointRegion(t), start, end)
	require.NoError(t, err)

	require.Len(t, ds.Times, 1)
	assert.Equal(t, time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC), ds.Times[0])
}

func TestLoadMergesFilesInOrder(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "spg03", "spg03_2020.json", fixture2020)
	writeFixture(t, root, "spg03", "spg03_2021.json", `{
		"variable": "spg03",
		"times": ["2021-01-01T00:00:00Z"],
		"lats": [50, 51],
		"lons": [1],
		"values": [[0.7, 0.1]]
	}`)

	start, end := window(t, "20200101", "20211231")
	ds, err := testReader(t, root).Load(context.Background(), "spg03", pointRegion(t), start, end)
	require.NoError(t, err)

	require.Len(t, ds.Times, 3)
	assert.Equal(t, 2021, ds.Times[2].Year())
	assert.InDelta(t, 0.7, ds.Values[2][0], 1e-9)
}

func TestLoadMissingProductDirectory(t *testing.T) {
	start, end := window(t, "20200101", "20200131")
	_, err := testReader(t, t.TempDir()).Load(context.Background(), "fpanv", pointRegion(t), start, end)
	assert.ErrorIs(t, err, domain.ErrMissingArchive)
}

func TestLoadRejectsGridMismatchAcrossFiles(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "spg03", "spg03_2020.json", fixture2020)
	writeFixture(t, root, "spg03", "spg03_2021.json", `{
		"variable": "spg03",
		"times": ["2021-01-01T00:00:00Z"],
		"lats": [40],
		"lons": [1],
		"values": [[0.7]]
	}`)

	start, end := window(t, "20200101", "20211231")
	_, err := testReader(t, root).Load(context.Background(), "spg03", pointRegion(t), start, end)
	assert.ErrorIs(t, err, domain.ErrAcquisition)
}

func TestLoadRejectsMalformedFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{`},
		{"bad timestamp", `{"variable":"spg03","times":["yesterday"],"lats":[50],"lons":[1],"values":[[1]]}`},
		{"row length mismatch", `{"variable":"spg03","times":["2020-01-01T00:00:00Z"],"lats":[50,51],"lons":[1],"values":[[1]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFixture(t, root, "spg03", "spg03_bad.json", tt.content)

			start, end := window(t, "20200101", "20200131")
			_, err := testReader(t, root).Load(context.Background(), "spg03", pointRegion(t), start, end)
			assert.ErrorIs(t, err, domain.ErrAcquisition)
		})
	}
}
