package artifact

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// Exports are the user-facing artifacts: tabular CSV with one row per
// (time[, location]), or a GeoJSON FeatureCollection with one feature per
// location carrying the per-dekad series. Outside-area cells are filtered out
// of both; genuine gaps stay as empty fields.

const exportDateLayout = "2006-01-02"

// ExportSeriesCSV renders a single-indicator series.
func ExportSeriesCSV(s domain.GriddedSeries) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"date", s.Variable}
	if !s.Grid.IsPoint() {
		header = []string{"date", "lat", "lon", s.Variable}
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}

	for ti, t := range s.Times {
		for ci := 0; ci < s.Grid.NumCells(); ci++ {
			v := s.At(ti, ci)
			if domain.IsOutside(v) {
				continue
			}
			row := []string{t.Format(exportDateLayout)}
			if !s.Grid.IsPoint() {
				c := s.Grid.CellCenter(ci)
				row = append(row, formatCoord(c.Lat), formatCoord(c.Lon))
			}
			row = append(row, formatValue(v))
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("export csv: %w", err)
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportCombinedCSV renders the combined indicator, one row per record.
func ExportCombinedCSV(c domain.CombinedSeries) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "lat", "lon", "spi", "sma", "fapar", "cdi", "status"}); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	for _, r := range c.Records {
		row := []string{
			r.Time.Format(exportDateLayout),
			formatCoord(r.Location.Lat),
			formatCoord(r.Location.Lon),
			formatOptional(r.SPI),
			formatOptional(r.SMA),
			formatOptional(r.FAPAR),
			strconv.Itoa(int(r.Status)),
			r.Label,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export csv: %w", err)
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func formatValue(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
