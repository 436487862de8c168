package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := "spi_20200101-20200331_52.5000_1.2500.series.json"
	assert.False(t, store.Exists(key))

	require.NoError(t, store.Write(key, []byte(`{"variable":"spi"}`)))
	assert.True(t, store.Exists(key))

	data, err := store.Read(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"variable":"spi"}`, string(data))
}

func TestFSStoreReadMissingKey(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("absent.json")
	assert.Error(t, err)
}

func TestFSStoreOverwriteReplacesContent(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("k", []byte("one")))
	require.NoError(t, store.Write("k", []byte("two")))

	data, err := store.Read("k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestFSStoreSanitizesKeyPaths(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Write("../escape.json", []byte("x")))

	// The file lands inside the root regardless of the path components.
	_, err = os.Stat(filepath.Join(root, "escape.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRecord(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	region, err := domain.NewRegion([]domain.Geo{{Lat: 50, Lon: 0}, {Lat: 54, Lon: 4}})
	require.NoError(t, err)
	start, _ := domain.ParseDate("20200101")
	end, _ := domain.ParseDate("20200331")
	args, err := domain.NewAnalysisArgs(region, start, end, "SPI", "csv")
	require.NoError(t, err)

	require.NoError(t, WriteRecord(store, args, args.Key()+".csv"))

	data, err := store.Read(args.Key() + ".record.yml")
	require.NoError(t, err)

	var rec DatasetRecord
	require.NoError(t, yaml.Unmarshal(data, &rec))

	assert.Equal(t, "SPI", rec.Identification.Product)
	assert.Equal(t, []float64{0, 50, 4, 54}, rec.Identification.Extents.Spatial.BBox)
	assert.Equal(t, "2020-01-01", rec.Identification.Extents.Temporal.Begin)
	assert.Equal(t, "2020-03-31", rec.Identification.Extents.Temporal.End)
	assert.Equal(t, args.Key()+".csv", rec.Metadata.DatasetURI)
	assert.Equal(t, "csv", rec.Distribution.Format)
}
