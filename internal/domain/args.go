package domain

import (
	"fmt"
	"strings"
	"time"
)

// Output format tags accepted on an analysis.
const (
	FormatCSV     = "csv"
	FormatGeoJSON = "geojson"
)

// dateLayout is the compact calendar-date form used in requests and artifact
// keys, e.g. "20200101".
const dateLayout = "20060102"

// AnalysisArgs is the immutable argument set of one indicator run.
type AnalysisArgs struct {
	Region  Region
	Start   time.Time
	End     time.Time
	Product string
	Format  string
}

// NewAnalysisArgs validates and freezes the analysis arguments. Dates are
// inclusive calendar dates; start must not be after end.
func NewAnalysisArgs(region Region, start, end time.Time, product, format string) (AnalysisArgs, error) {
	if product == "" {
		return AnalysisArgs{}, fmt.Errorf("%w: empty product name", ErrUnknownProduct)
	}
	if start.After(end) {
		return AnalysisArgs{}, fmt.Errorf("invalid date range: start %s after end %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}
	switch format {
	case "":
		format = FormatCSV
	case FormatCSV, FormatGeoJSON:
	default:
		return AnalysisArgs{}, fmt.Errorf("unsupported output format %q", format)
	}
	return AnalysisArgs{
		Region:  region,
		Start:   start.UTC(),
		End:     end.UTC(),
		Product: product,
		Format:  format,
	}, nil
}

// Key returns the deterministic artifact key for this argument set. Identical
// arguments always produce the same key, which is the idempotence mechanism:
// an existing artifact under this key short-circuits recomputation.
func (a AnalysisArgs) Key() string {
	return fmt.Sprintf("%s_%s-%s_%s",
		strings.ToLower(a.Product),
		a.Start.Format(dateLayout),
		a.End.Format(dateLayout),
		a.Region.Key(),
	)
}

// WithWindow returns a copy covering a different date range, used by the
// combiner to widen constituent windows for its lagged lookback.
func (a AnalysisArgs) WithWindow(start, end time.Time) AnalysisArgs {
	a.Start, a.End = start.UTC(), end.UTC()
	return a
}

// WithProduct returns a copy carrying a different product name.
func (a AnalysisArgs) WithProduct(product string) AnalysisArgs {
	a.Product = product
	return a
}

// ParseDate parses a compact YYYYMMDD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
