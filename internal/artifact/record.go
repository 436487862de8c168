package artifact

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// DatasetRecord is the YAML sidecar written next to every exported artifact,
// describing its spatial and temporal extents and where the data lives. It is
// the catalogue entry downstream discovery reads instead of the data itself.
type DatasetRecord struct {
	Identification struct {
		Title   string `yaml:"title"`
		Product string `yaml:"product"`
		Extents struct {
			Spatial struct {
				BBox []float64 `yaml:"bbox,flow"` // [lonMin, latMin, lonMax, latMax]
			} `yaml:"spatial"`
			Temporal struct {
				Begin string `yaml:"begin"`
				End   string `yaml:"end"`
			} `yaml:"temporal"`
		} `yaml:"extents"`
	} `yaml:"identification"`
	Metadata struct {
		DatasetURI string `yaml:"dataseturi"`
	} `yaml:"metadata"`
	Distribution struct {
		Format string `yaml:"format"`
	} `yaml:"distribution"`
}

// NewDatasetRecord builds the record for one analysis artifact.
func NewDatasetRecord(args domain.AnalysisArgs, artifactKey string) DatasetRecord {
	latMin, latMax, lonMin, lonMax := args.Region.Envelope()

	var rec DatasetRecord
	rec.Identification.Title = fmt.Sprintf("%s drought indicator", args.Product)
	rec.Identification.Product = args.Product
	rec.Identification.Extents.Spatial.BBox = []float64{lonMin, latMin, lonMax, latMax}
	rec.Identification.Extents.Temporal.Begin = args.Start.Format(exportDateLayout)
	rec.Identification.Extents.Temporal.End = args.End.Format(exportDateLayout)
	rec.Metadata.DatasetURI = artifactKey
	rec.Distribution.Format = args.Format
	return rec
}

// WriteRecord marshals and stores the sidecar under "<key>.record.yml".
func WriteRecord(store Store, args domain.AnalysisArgs, artifactKey string) error {
	data, err := yaml.Marshal(NewDatasetRecord(args, artifactKey))
	if err != nil {
		return fmt.Errorf("marshal dataset record: %w", err)
	}
	return store.Write(args.Key()+".record.yml", data)
}
