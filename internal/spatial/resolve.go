// Package spatial resolves analysis regions against source grids: nearest
// lookup for points, subsetting for bounding boxes, center-in-polygon masking
// for polygons, and nearest-neighbor regridding between non-matching grids.
package spatial

import (
	"math"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// NearestIndex returns the index of the axis value closest to v. Equidistant
// candidates break to the lower index, so lookups stay deterministic on
// non-matching grids.
func NearestIndex(axis []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, a := range axis {
		if d := math.Abs(a - v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Resolve extracts the subset of a source dataset matching the region. The
// result keeps the source's native resolution; combiner-driven regridding
// happens separately via Regrid.
func Resolve(ds domain.RawDataset, region domain.Region) domain.RawDataset {
	switch region.Kind {
	case domain.RegionPoint:
		return atPoint(ds, region.Coords[0])
	case domain.RegionBoundingBox:
		latMin, latMax, lonMin, lonMax := region.Envelope()
		return subset(ds, latMin, latMax, lonMin, lonMax)
	default:
		return maskPolygon(ds, region.Coords)
	}
}

// atPoint reduces a gridded dataset to the single nearest cell, degenerating
// the grid to a point series. No interpolation between cells and no distance
// cutoff: the nearest sample wins however far its center is.
func atPoint(ds domain.RawDataset, p domain.Geo) domain.RawDataset {
	if ds.Grid.IsPoint() {
		return ds
	}
	ci := ds.Grid.CellIndex(NearestIndex(ds.Grid.Lats, p.Lat), NearestIndex(ds.Grid.Lons, p.Lon))

	values := make([][]float64, len(ds.Times))
	for ti := range ds.Times {
		values[ti] = []float64{ds.Values[ti][ci]}
	}
	return domain.RawDataset{Variable: ds.Variable, Times: ds.Times, Values: values}
}

// subset trims the grid to the inclusive coordinate range.
func subset(ds domain.RawDataset, latMin, latMax, lonMin, lonMax float64) domain.RawDataset {
	if ds.Grid.IsPoint() {
		return ds
	}
	lats, latIdx := within(ds.Grid.Lats, latMin, latMax)
	lons, lonIdx := within(ds.Grid.Lons, lonMin, lonMax)

	grid := domain.Grid{Lats: lats, Lons: lons}
	values := make([][]float64, len(ds.Times))
	for ti := range ds.Times {
		row := make([]float64, 0, len(latIdx)*len(lonIdx))
		for _, li := range latIdx {
			for _, lj := range lonIdx {
				row = append(row, ds.Values[ti][ds.Grid.CellIndex(li, lj)])
			}
		}
		values[ti] = row
	}
	return domain.RawDataset{Variable: ds.Variable, Times: ds.Times, Grid: grid, Values: values}
}

func within(axis []float64, lo, hi float64) ([]float64, []int) {
	var vals []float64
	var idx []int
	for i, a := range axis {
		if a >= lo && a <= hi {
			vals = append(vals, a)
			idx = append(idx, i)
		}
	}
	return vals, idx
}

// maskPolygon subsets to the polygon's bounding envelope, then sets cells
// whose center falls outside the ring to the outside-area sentinel. The
// sentinel is distinct from missing so downstream consumers can filter
// masked cells without losing genuine gaps.
func maskPolygon(ds domain.RawDataset, ring []domain.Geo) domain.RawDataset {
	region := domain.Region{Kind: domain.RegionPolygon, Coords: ring}
	latMin, latMax, lonMin, lonMax := region.Envelope()
	out := subset(ds, latMin, latMax, lonMin, lonMax)
	if out.Grid.IsPoint() {
		return out
	}

	outside := make([]bool, out.Grid.NumCells())
	for ci := range outside {
		outside[ci] = !pointInRing(out.Grid.CellCenter(ci), ring)
	}
	for ti := range out.Times {
		for ci, o := range outside {
			if o {
				out.Values[ti][ci] = domain.OutsideArea
			}
		}
	}
	return out
}

// pointInRing is a standard even-odd ray cast over the polygon edges.
// Boundary points count as inside.
func pointInRing(p domain.Geo, ring []domain.Geo) bool {
	in := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			cross := (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lon
			if p.Lon < cross {
				in = !in
			} else if p.Lon == cross {
				return true
			}
		}
		if a.Lat == p.Lat && a.Lon == p.Lon {
			return true
		}
	}
	return in
}

// Regrid resamples an aligned series onto the target coordinate axes using
// nearest-neighbor interpolation. Used by the combiner to bring constituents
// onto the shared grid; resampling a series onto its own grid is a no-op.
func Regrid(s domain.GriddedSeries, target domain.Grid) domain.GriddedSeries {
	if s.Grid.Equal(target) {
		return s
	}

	cells := target.NumCells()
	lookup := make([]int, cells)
	for ci := 0; ci < cells; ci++ {
		c := target.CellCenter(ci)
		lookup[ci] = nearestCell(s.Grid, c)
	}

	values := make([][]float64, len(s.Times))
	for ti := range s.Times {
		row := make([]float64, cells)
		for ci := 0; ci < cells; ci++ {
			if lookup[ci] < 0 {
				row[ci] = math.NaN()
				continue
			}
			row[ci] = s.Values[ti][lookup[ci]]
		}
		values[ti] = row
	}
	return domain.GriddedSeries{Variable: s.Variable, Times: s.Times, Grid: target, Values: values}
}

func nearestCell(g domain.Grid, p domain.Geo) int {
	if g.IsPoint() {
		return 0
	}
	if len(g.Lats) == 0 || len(g.Lons) == 0 {
		return -1
	}
	return g.CellIndex(NearestIndex(g.Lats, p.Lat), NearestIndex(g.Lons, p.Lon))
}

// SharedGrid picks the combiner's output grid: the highest-resolution native
// grid among the constituents (smallest mean cell spacing). Ties break to the
// earliest argument, a fixed policy rather than a per-cell negotiation. A
// single-cell grid has no measurable spacing but still carries a real
// coordinate, so when no grid has one, the first non-point grid wins over the
// degenerate point grid. If every constituent is a point series the shared
// grid is the point grid.
func SharedGrid(grids ...domain.Grid) domain.Grid {
	best := domain.Grid{}
	bestRes := math.Inf(1)
	for _, g := range grids {
		if r := g.Resolution(); r < bestRes {
			best, bestRes = g, r
		}
	}
	if math.IsInf(bestRes, 1) {
		for _, g := range grids {
			if !g.IsPoint() {
				return g
			}
		}
	}
	return best
}
