package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/droughtwatch/cdi-etl/internal/artifact"
	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/indicator"
	"github.com/droughtwatch/cdi-etl/internal/observability"
)

// Runner executes one analysis per raw request: parse the request, build the
// indicator, run its lifecycle, export the result, and report the run
// outcome. It implements Transformer.
//
// Parse and product-lookup failures return an error so the pipeline skips
// the message; a run that fails after that still yields a RunResult with
// status failed, which the pipeline publishes like any other.
type Runner struct {
	settings indicator.Settings
	deps     indicator.Deps
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewRunner builds the request runner around the indicator collaborators.
func NewRunner(settings indicator.Settings, deps indicator.Deps) *Runner {
	return &Runner{settings: settings, deps: deps, logger: deps.Logger, metrics: deps.Metrics}
}

func (r *Runner) Transform(ctx context.Context, raw domain.RawRequest) (domain.RunResult, error) {
	args, err := domain.ParseRawRequest(raw)
	if err != nil {
		return domain.RunResult{}, err
	}

	ind, err := indicator.New(r.settings, args, r.deps)
	if err != nil {
		return domain.RunResult{}, err
	}

	result := domain.RunResult{
		RunID:     uuid.NewString(),
		Product:   args.Product,
		RegionKey: args.Region.Key(),
		Cached: r.deps.Store.Exists(args.Key()+".series.json") ||
			r.deps.Store.Exists(args.Key()+".combined.json"),
	}

	if err := r.run(ctx, ind, args, &result); err != nil {
		r.logger.Error("analysis run failed",
			"run_id", result.RunID, "product", args.Product, "key", args.Key(), "error", err)
		r.metrics.IndicatorRuns.WithLabelValues(args.Product, "failed").Inc()
		result.Status = domain.RunFailed
		result.Error = err.Error()
	} else {
		r.metrics.IndicatorRuns.WithLabelValues(args.Product, result.Status).Inc()
		r.logger.Info("analysis run finished",
			"run_id", result.RunID, "product", args.Product, "key", args.Key(),
			"status", result.Status, "records", result.Records, "cached", result.Cached)
	}
	result.CompletedAt = domain.Now()
	return result, nil
}

func (r *Runner) run(ctx context.Context, ind indicator.Indicator, args domain.AnalysisArgs, result *domain.RunResult) error {
	if err := ind.Download(ctx); err != nil {
		return err
	}
	if err := ind.Process(ctx); err != nil {
		return err
	}

	if emptyRun(ind) {
		result.Status = domain.RunEmpty
		return nil
	}

	export, records, err := r.export(ind, args)
	if err != nil {
		return err
	}
	exportKey := args.Key() + "." + args.Format
	if err := r.deps.Store.Write(exportKey, export); err != nil {
		return err
	}
	if err := artifact.WriteRecord(r.deps.Store, args, exportKey); err != nil {
		return err
	}

	result.Status = domain.RunCompleted
	result.ArtifactKey = exportKey
	result.Records = records
	return nil
}

// emptyRun reports whether the run produced nothing to export. The combined
// indicator's status series spans the full requested range even when no cell
// classified, so its emptiness is judged on the records instead.
func emptyRun(ind indicator.Indicator) bool {
	if cdi, ok := ind.(*indicator.CDI); ok {
		return cdi.Combined().IsEmpty()
	}
	return ind.Data().IsEmpty()
}

// export renders the indicator output in the requested format. The combined
// indicator exports its classification records; the scalar indicators export
// their gridded series.
func (r *Runner) export(ind indicator.Indicator, args domain.AnalysisArgs) ([]byte, int, error) {
	if cdi, ok := ind.(*indicator.CDI); ok {
		combined := cdi.Combined()
		var data []byte
		var err error
		switch args.Format {
		case domain.FormatGeoJSON:
			data, err = artifact.ExportCombinedGeoJSON(combined)
		default:
			data, err = artifact.ExportCombinedCSV(combined)
		}
		return data, len(combined.Records), err
	}

	series := ind.Data()
	var data []byte
	var err error
	switch args.Format {
	case domain.FormatGeoJSON:
		latMin, _, lonMin, _ := args.Region.Envelope()
		data, err = artifact.ExportSeriesGeoJSON(series, domain.Geo{Lat: latMin, Lon: lonMin})
	default:
		data, err = artifact.ExportSeriesCSV(series)
	}
	return data, countValid(series), err
}

func countValid(s domain.GriddedSeries) int {
	var n int
	for ti := range s.Times {
		for _, v := range s.Values[ti] {
			if domain.IsValid(v) {
				n++
			}
		}
	}
	return n
}

var _ Transformer = (*Runner)(nil)
