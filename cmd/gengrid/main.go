// Command gengrid writes a synthetic drought archive for local development
// and integration testing. It produces one JSON file per product under the
// archive root, on a shared regular grid, with dekad timestamps and a mild
// seasonal drought signal so classifications cover every level.
//
// Usage:
//
//	go run ./cmd/gengrid \
//	  -out ./data/input \
//	  -start 20200101 -end 20201221 \
//	  -lat 50:54:0.5 -lon 0:4:0.5 \
//	  -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// Product codes written by the generator. smant gets deliberate gaps so the
// smand fallback path has something to fill.
var products = []string{"spg03", "smant", "smand", "fpanv"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "archive root directory to write under")
	start := flag.String("start", "20200101", "first dekad, YYYYMMDD")
	end := flag.String("end", "20201221", "last dekad, YYYYMMDD")
	latSpec := flag.String("lat", "50:54:0.5", "latitude axis as min:max:step")
	lonSpec := flag.String("lon", "0:4:0.5", "longitude axis as min:max:step")
	seed := flag.Int64("seed", 1, "noise seed, fixed for reproducible fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	startDate, err := domain.ParseDate(*start)
	if err != nil {
		return err
	}
	endDate, err := domain.ParseDate(*end)
	if err != nil {
		return err
	}

	lats, err := parseAxis(*latSpec)
	if err != nil {
		return fmt.Errorf("bad -lat: %w", err)
	}
	lons, err := parseAxis(*lonSpec)
	if err != nil {
		return fmt.Errorf("bad -lon: %w", err)
	}

	times := domain.DekadRange(domain.DekadStart(startDate), domain.DekadStart(endDate))
	rng := rand.New(rand.NewSource(*seed))

	for _, product := range products {
		doc := buildDoc(product, times, lats, lons, rng)
		if err := writeDoc(*out, product, *start, *end, doc); err != nil {
			return err
		}
		log.Printf("wrote %s: %d dekads, %d cells", product, len(times), len(lats)*len(lons))
	}
	return nil
}

type archiveDoc struct {
	Variable string       `json:"variable"`
	Times    []string     `json:"times"`
	Lats     []float64    `json:"lats"`
	Lons     []float64    `json:"lons"`
	Values   [][]*float64 `json:"values"`
}

// buildDoc synthesizes one product grid. The signal is a seasonal sine per
// cell plus noise, biased negative mid-year so summer dekads dip below the
// drought threshold.
func buildDoc(product string, times []time.Time, lats, lons []float64, rng *rand.Rand) archiveDoc {
	doc := archiveDoc{
		Variable: product,
		Lats:     lats,
		Lons:     lons,
	}
	cells := len(lats) * len(lons)

	for ti, t := range times {
		doc.Times = append(doc.Times, t.Format(time.RFC3339))
		row := make([]*float64, cells)
		yearFrac := float64(t.YearDay()) / 365.0
		for ci := range row {
			// smant drops every third dekad; smand stays complete.
			if product == "smant" && ti%3 == 2 {
				continue
			}
			v := -1.6*math.Sin(yearFrac*2*math.Pi) + 0.4*rng.NormFloat64() + 0.2*float64(ci%3)
			row[ci] = &v
		}
		doc.Values = append(doc.Values, row)
	}
	return doc
}

func writeDoc(root, product, start, end string, doc archiveDoc) error {
	dir := filepath.Join(root, product)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s_%s.json", product, start, end)
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// parseAxis expands a min:max:step spec into an ascending coordinate axis.
func parseAxis(spec string) ([]float64, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("want min:max:step, got %q", spec)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	lo, hi, step := vals[0], vals[1], vals[2]
	if step <= 0 || hi < lo {
		return nil, fmt.Errorf("axis %q is not ascending", spec)
	}

	var axis []float64
	for v := lo; v <= hi+step/2; v += step {
		axis = append(axis, v)
	}
	return axis, nil
}
