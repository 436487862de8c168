// Package era5 acquires reanalysis data over HTTP from a Climate Data Store
// style endpoint serving flat gridded JSON.
package era5

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/droughtwatch/cdi-etl/internal/domain"
	"github.com/droughtwatch/cdi-etl/internal/observability"
)

func missing() float64 { return math.NaN() }

// boxSize pads a point region into the retrieval bounding box, in degrees.
// Point requests still pull a small grid so nearest-cell extraction has
// neighbors to choose from.
const boxSize = 0.1

// Client implements domain.ReanalysisSource against the retrieval endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a reanalysis client. The underlying HTTP client carries
// no timeout: retrievals are long-running and the caller bounds them through
// the request context.
func NewClient(baseURL, apiKey string, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     logger,
		metrics:    metrics,
	}
}

// Retrieve fetches one variable over the region's envelope and date range at
// the requested frequency.
func (c *Client) Retrieve(ctx context.Context, variable string, region domain.Region, start, end time.Time, freq domain.Frequency) (domain.RawDataset, error) {
	latMin, latMax, lonMin, lonMax := region.Envelope()
	if region.Kind == domain.RegionPoint {
		latMin, latMax = latMin-boxSize, latMax+boxSize
		lonMin, lonMax = lonMin-boxSize, lonMax+boxSize
	}

	params := url.Values{
		"variable": {variable},
		"area":     {fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", latMax, lonMin, latMin, lonMax)},
		"start":    {start.Format("20060102")},
		"end":      {end.Format("20060102")},
		"freq":     {string(freq)},
	}

	started := time.Now()
	ds, err := c.doRequest(ctx, c.baseURL+"/retrieve?"+params.Encode())
	c.metrics.AcquisitionDuration.WithLabelValues("era5").Observe(time.Since(started).Seconds())
	if err != nil {
		c.metrics.AcquisitionRequests.WithLabelValues("era5", "error").Inc()
		return domain.RawDataset{}, err
	}
	c.metrics.AcquisitionRequests.WithLabelValues("era5", "success").Inc()

	c.logger.Debug("reanalysis retrieval complete",
		"variable", variable, "samples", len(ds.Times), "cells", ds.Grid.NumCells())
	return ds, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.RawDataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.RawDataset{}, fmt.Errorf("%w: create request: %v", domain.ErrAcquisition, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawDataset{}, fmt.Errorf("%w: %v", domain.ErrAcquisition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.RawDataset{}, fmt.Errorf("%w: status %d: %s", domain.ErrAcquisition, resp.StatusCode, body)
	}

	var payload gridResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.RawDataset{}, fmt.Errorf("%w: decode response: %v", domain.ErrAcquisition, err)
	}
	return payload.toDataset()
}

// Retrieval endpoint response types.

type gridResponse struct {
	Variable string       `json:"variable"`
	Times    []string     `json:"times"` // RFC 3339
	Lats     []float64    `json:"lats"`
	Lons     []float64    `json:"lons"`
	Values   [][]*float64 `json:"values"` // [time][cell], null for missing
}

func (r gridResponse) toDataset() (domain.RawDataset, error) {
	ds := domain.RawDataset{
		Variable: r.Variable,
		Grid:     domain.Grid{Lats: r.Lats, Lons: r.Lons},
	}
	for _, ts := range r.Times {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return domain.RawDataset{}, fmt.Errorf("%w: bad timestamp %q", domain.ErrAcquisition, ts)
		}
		ds.Times = append(ds.Times, t.UTC())
	}
	cells := ds.Grid.NumCells()
	for i, row := range r.Values {
		if len(row) != cells {
			return domain.RawDataset{}, fmt.Errorf("%w: row %d has %d cells, grid has %d", domain.ErrAcquisition, i, len(row), cells)
		}
		dec := make([]float64, cells)
		for ci, v := range row {
			if v == nil {
				dec[ci] = missing()
			} else {
				dec[ci] = *v
			}
		}
		ds.Values = append(ds.Values, dec)
	}
	if len(ds.Values) != len(ds.Times) {
		return domain.RawDataset{}, fmt.Errorf("%w: %d value rows for %d timestamps", domain.ErrAcquisition, len(ds.Values), len(ds.Times))
	}
	return ds, nil
}
