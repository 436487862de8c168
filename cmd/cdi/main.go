// Command cdi runs a single drought analysis from the command line, outside
// the Kafka pipeline. It shares the configuration, acquisition, and artifact
// layers with the service, so a CLI run and a pipeline run of the same
// arguments produce identical artifacts.
//
// Usage:
//
//	go run ./cmd/cdi \
//	  -product CDI \
//	  -coords "52.5,1.25" \
//	  -start 20200101 -end 20200301 \
//	  -format csv
//
// Coordinates are semicolon-separated "lat,lon" pairs: one pair analyses a
// point, two pairs a bounding box, three or more a polygon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/droughtwatch/cdi-etl/internal/adapter/era5"
	"github.com/droughtwatch/cdi-etl/internal/adapter/gdo"
	"github.com/droughtwatch/cdi-etl/internal/artifact"
	"github.com/droughtwatch/cdi-etl/internal/config"
	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/indicator"
	"github.com/droughtwatch/cdi-etl/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	product := flag.String("product", "", "product to compute, one of "+strings.Join(indicator.Products(), ", "))
	coords := flag.String("coords", "", `semicolon-separated "lat,lon" pairs`)
	start := flag.String("start", "", "analysis start date, YYYYMMDD")
	end := flag.String("end", "", "analysis end date, YYYYMMDD")
	format := flag.String("format", "", "output format: csv or geojson (default csv)")
	flag.Parse()

	if err := run(*configPath, *product, *coords, *start, *end, *format); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, product, coords, start, end, format string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	metrics := observability.NewMetricsForTesting()

	args, err := buildArgs(product, coords, start, end, format)
	if err != nil {
		return err
	}

	store, err := artifact.NewFSStore(cfg.Data.OutputDir)
	if err != nil {
		return err
	}

	baselineStart, baselineEnd := cfg.Baseline()
	settings := indicator.Settings{
		BaselineStart: baselineStart,
		BaselineEnd:   baselineEnd,
		Backend:       cfg.Data.Backend,
	}
	deps := indicator.Deps{
		Reanalysis: era5.NewClient(cfg.ERA5.BaseURL, cfg.ERA5.APIKey, logger, metrics),
		Archive:    gdo.NewReader(cfg.Data.InputDir, logger, metrics),
		Store:      store,
		Logger:     logger,
		Metrics:    metrics,
	}

	ind, err := indicator.New(settings, args, deps)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := ind.Download(ctx); err != nil {
		return err
	}
	if err := ind.Process(ctx); err != nil {
		return err
	}
	if err := writeExport(store, ind, args); err != nil {
		return err
	}

	return printSummary(ind, args)
}

// writeExport renders the processed output in the requested format and
// persists it next to the series artifact, matching what a pipeline run of
// the same arguments would leave behind.
func writeExport(store artifact.Store, ind indicator.Indicator, args domain.AnalysisArgs) error {
	if ind.Data().IsEmpty() {
		return nil
	}

	var data []byte
	var err error
	if cdi, ok := ind.(*indicator.CDI); ok {
		if args.Format == domain.FormatGeoJSON {
			data, err = artifact.ExportCombinedGeoJSON(cdi.Combined())
		} else {
			data, err = artifact.ExportCombinedCSV(cdi.Combined())
		}
	} else if args.Format == domain.FormatGeoJSON {
		latMin, _, lonMin, _ := args.Region.Envelope()
		data, err = artifact.ExportSeriesGeoJSON(ind.Data(), domain.Geo{Lat: latMin, Lon: lonMin})
	} else {
		data, err = artifact.ExportSeriesCSV(ind.Data())
	}
	if err != nil {
		return err
	}

	exportKey := args.Key() + "." + args.Format
	if err := store.Write(exportKey, data); err != nil {
		return err
	}
	return artifact.WriteRecord(store, args, exportKey)
}

func buildArgs(product, coords, start, end, format string) (domain.AnalysisArgs, error) {
	var pairs []domain.Geo
	for _, part := range strings.Split(coords, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ",", 2)
		if len(fields) != 2 {
			return domain.AnalysisArgs{}, fmt.Errorf("malformed coordinate %q, want lat,lon", part)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return domain.AnalysisArgs{}, fmt.Errorf("malformed latitude in %q: %w", part, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return domain.AnalysisArgs{}, fmt.Errorf("malformed longitude in %q: %w", part, err)
		}
		pairs = append(pairs, domain.Geo{Lat: lat, Lon: lon})
	}

	region, err := domain.NewRegion(pairs)
	if err != nil {
		return domain.AnalysisArgs{}, err
	}
	startDate, err := domain.ParseDate(start)
	if err != nil {
		return domain.AnalysisArgs{}, err
	}
	endDate, err := domain.ParseDate(end)
	if err != nil {
		return domain.AnalysisArgs{}, err
	}
	return domain.NewAnalysisArgs(region, startDate, endDate, product, format)
}

func printSummary(ind indicator.Indicator, args domain.AnalysisArgs) error {
	summary := map[string]any{
		"product": args.Product,
		"key":     args.Key(),
		"region":  args.Region.Key(),
		"dekads":  len(ind.Data().Times),
	}
	if cdi, ok := ind.(*indicator.CDI); ok {
		summary["records"] = len(cdi.Combined().Records)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
