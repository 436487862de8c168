package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// Stored series use a JSON document with NaN spelled as null, since JSON has
// no NaN literal. The outside-area sentinel is a plain number and survives
// round trips untouched.

type seriesDoc struct {
	Variable string       `json:"variable"`
	Times    []string     `json:"times"`
	Lats     []float64    `json:"lats,omitempty"`
	Lons     []float64    `json:"lons,omitempty"`
	Values   [][]*float64 `json:"values"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// MarshalSeries encodes an aligned series for storage.
func MarshalSeries(s domain.GriddedSeries) ([]byte, error) {
	doc := seriesDoc{
		Variable: s.Variable,
		Lats:     s.Grid.Lats,
		Lons:     s.Grid.Lons,
	}
	for _, t := range s.Times {
		doc.Times = append(doc.Times, t.Format(timeLayout))
	}
	for _, row := range s.Values {
		enc := make([]*float64, len(row))
		for i, v := range row {
			if !math.IsNaN(v) {
				vv := v
				enc[i] = &vv
			}
		}
		doc.Values = append(doc.Values, enc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalSeries decodes a stored series.
func UnmarshalSeries(data []byte) (domain.GriddedSeries, error) {
	var doc seriesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.GriddedSeries{}, fmt.Errorf("decode series artifact: %w", err)
	}

	s := domain.GriddedSeries{
		Variable: doc.Variable,
		Grid:     domain.Grid{Lats: doc.Lats, Lons: doc.Lons},
	}
	for _, ts := range doc.Times {
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return domain.GriddedSeries{}, fmt.Errorf("decode series artifact: %w", err)
		}
		s.Times = append(s.Times, t.UTC())
	}
	for _, row := range doc.Values {
		dec := make([]float64, len(row))
		for i, v := range row {
			if v == nil {
				dec[i] = math.NaN()
			} else {
				dec[i] = *v
			}
		}
		s.Values = append(s.Values, dec)
	}
	return s, nil
}

// MarshalCombined encodes a combined CDI dataset for storage.
func MarshalCombined(c domain.CombinedSeries) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// UnmarshalCombined decodes a stored combined dataset.
func UnmarshalCombined(data []byte) (domain.CombinedSeries, error) {
	var c domain.CombinedSeries
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.CombinedSeries{}, fmt.Errorf("decode combined artifact: %w", err)
	}
	return c, nil
}
