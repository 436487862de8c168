package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RegionKind discriminates the three region shapes.
type RegionKind string

const (
	RegionPoint       RegionKind = "point"
	RegionBoundingBox RegionKind = "bbox"
	RegionPolygon     RegionKind = "polygon"
)

// Region is the geographic extent of an analysis. The kind is derived from
// the number of supplied coordinate pairs: one pair is a point, two pairs are
// the (min, max) corners of a bounding box, three or more form a polygon ring.
type Region struct {
	Kind   RegionKind
	Coords []Geo
}

// NewRegion derives a Region from coordinate pairs. Bounding boxes must have
// min < max on both axes; polygons need at least three distinct vertices.
func NewRegion(coords []Geo) (Region, error) {
	switch {
	case len(coords) == 0:
		return Region{}, fmt.Errorf("%w: no coordinates supplied", ErrRegion)

	case len(coords) == 1:
		return Region{Kind: RegionPoint, Coords: coords}, nil

	case len(coords) == 2:
		lo, hi := coords[0], coords[1]
		if lo.Lat >= hi.Lat {
			return Region{}, fmt.Errorf("%w: bounding box latitude min %.4f >= max %.4f", ErrRegion, lo.Lat, hi.Lat)
		}
		if lo.Lon >= hi.Lon {
			return Region{}, fmt.Errorf("%w: bounding box longitude min %.4f >= max %.4f", ErrRegion, lo.Lon, hi.Lon)
		}
		return Region{Kind: RegionBoundingBox, Coords: coords}, nil

	default:
		if distinctCoords(coords) < 3 {
			return Region{}, fmt.Errorf("%w: polygon ring needs at least 3 distinct vertices", ErrRegion)
		}
		return Region{Kind: RegionPolygon, Coords: coords}, nil
	}
}

func distinctCoords(coords []Geo) int {
	seen := make(map[Geo]struct{}, len(coords))
	for _, c := range coords {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// Envelope returns the axis-aligned bounds of the region. For a point both
// min and max collapse onto the coordinate.
func (r Region) Envelope() (latMin, latMax, lonMin, lonMax float64) {
	latMin, lonMin = r.Coords[0].Lat, r.Coords[0].Lon
	latMax, lonMax = latMin, lonMin
	for _, c := range r.Coords[1:] {
		latMin = min(latMin, c.Lat)
		latMax = max(latMax, c.Lat)
		lonMin = min(lonMin, c.Lon)
		lonMax = max(lonMax, c.Lon)
	}
	return latMin, latMax, lonMin, lonMax
}

// Key returns a deterministic region fragment for artifact keys. Point and
// box keys embed the coordinates directly; polygon vertices are hashed so
// large rings keep keys short while staying replay-stable.
func (r Region) Key() string {
	switch r.Kind {
	case RegionPoint:
		return fmt.Sprintf("%.4f_%.4f", r.Coords[0].Lat, r.Coords[0].Lon)
	case RegionBoundingBox:
		latMin, latMax, lonMin, lonMax := r.Envelope()
		return fmt.Sprintf("%.4f-%.4f_%.4f-%.4f", latMin, latMax, lonMin, lonMax)
	default:
		var sb strings.Builder
		for _, c := range r.Coords {
			fmt.Fprintf(&sb, "%.6f,%.6f|", c.Lat, c.Lon)
		}
		sum := sha256.Sum256([]byte(sb.String()))
		return "poly" + hex.EncodeToString(sum[:8])
	}
}
