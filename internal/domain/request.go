package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AnalysisRequest is the flat JSON structure clients publish to the source
// topic. Coordinates are [lat, lon] pairs; their count selects the region
// kind (1 point, 2 bounding box corners, >=3 polygon vertices).
type AnalysisRequest struct {
	Product   string      `json:"product"`
	Coords    [][]float64 `json:"coords"`
	StartDate string      `json:"start_date"` // YYYYMMDD
	EndDate   string      `json:"end_date"`   // YYYYMMDD
	Format    string      `json:"format,omitempty"`
}

// RawRequest represents an unprocessed message from the source topic.
type RawRequest struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseRawRequest deserializes and validates a raw request into analysis
// arguments. Region and date-range violations surface here, before any
// acquisition is attempted.
func ParseRawRequest(raw RawRequest) (AnalysisArgs, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return AnalysisArgs{}, fmt.Errorf("parse analysis request: %w", err)
	}

	coords := make([]Geo, 0, len(req.Coords))
	for i, pair := range req.Coords {
		if len(pair) != 2 {
			return AnalysisArgs{}, fmt.Errorf("%w: coordinate %d has %d components, want 2", ErrRegion, i, len(pair))
		}
		coords = append(coords, Geo{Lat: pair[0], Lon: pair[1]})
	}
	region, err := NewRegion(coords)
	if err != nil {
		return AnalysisArgs{}, err
	}

	start, err := ParseDate(req.StartDate)
	if err != nil {
		return AnalysisArgs{}, err
	}
	end, err := ParseDate(req.EndDate)
	if err != nil {
		return AnalysisArgs{}, err
	}

	return NewAnalysisArgs(region, start, end, req.Product, req.Format)
}

// Run outcome states reported on the sink topic.
const (
	RunCompleted = "completed"
	RunEmpty     = "empty"
	RunFailed    = "failed"
)

// RunResult is the serialized outcome of one analysis run.
type RunResult struct {
	RunID       string    `json:"run_id"`
	Product     string    `json:"product"`
	RegionKey   string    `json:"region_key"`
	ArtifactKey string    `json:"artifact_key,omitempty"`
	Status      string    `json:"status"`
	Records     int       `json:"records"`
	Cached      bool      `json:"cached"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// ResultEvent is the serialized form destined for the sink topic.
type ResultEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
