package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// GeoJSON export shapes. Only Point features are emitted: each grid cell (or
// the analysis point) becomes one feature whose properties carry the dekad
// series, keyed by location.

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

type seriesEntry struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type combinedEntry struct {
	Date   string   `json:"date"`
	SPI    *float64 `json:"spi,omitempty"`
	SMA    *float64 `json:"sma,omitempty"`
	FAPAR  *float64 `json:"fapar,omitempty"`
	CDI    int      `json:"cdi"`
	Status string   `json:"status"`
}

// ExportSeriesGeoJSON renders a single-indicator series as a
// FeatureCollection. Cells fully outside a polygon produce no feature.
func ExportSeriesGeoJSON(s domain.GriddedSeries, fallback domain.Geo) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}

	for ci := 0; ci < s.Grid.NumCells(); ci++ {
		loc := fallback
		if !s.Grid.IsPoint() {
			loc = s.Grid.CellCenter(ci)
		}

		entries := make([]seriesEntry, 0, len(s.Times))
		masked := true
		for ti, t := range s.Times {
			v := s.At(ti, ci)
			if domain.IsOutside(v) {
				continue
			}
			masked = false
			entries = append(entries, seriesEntry{Date: t.Format(exportDateLayout), Value: optionalValue(v)})
		}
		if masked && len(s.Times) > 0 {
			continue
		}

		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Point", Coordinates: []float64{loc.Lon, loc.Lat}},
			Properties: map[string]any{
				"variable": s.Variable,
				"series":   entries,
			},
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export geojson: %w", err)
	}
	return data, nil
}

// ExportCombinedGeoJSON renders the combined indicator, one feature per
// location with the classified series in its properties.
func ExportCombinedGeoJSON(c domain.CombinedSeries) ([]byte, error) {
	byLocation := make(map[domain.Geo][]combinedEntry)
	var order []domain.Geo
	for _, r := range c.Records {
		if _, seen := byLocation[r.Location]; !seen {
			order = append(order, r.Location)
		}
		byLocation[r.Location] = append(byLocation[r.Location], combinedEntry{
			Date:   r.Time.Format(exportDateLayout),
			SPI:    r.SPI,
			SMA:    r.SMA,
			FAPAR:  r.FAPAR,
			CDI:    int(r.Status),
			Status: r.Label,
		})
	}

	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}
	for _, loc := range order {
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Point", Coordinates: []float64{loc.Lon, loc.Lat}},
			Properties: map[string]any{
				"series": byLocation[loc],
			},
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export geojson: %w", err)
	}
	return data, nil
}

func optionalValue(v float64) *float64 {
	if domain.IsMissing(v) {
		return nil
	}
	return &v
}
