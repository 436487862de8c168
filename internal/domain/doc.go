// Package domain models drought indicator data and the dekad calendar used to
// align it.
//
// # Data Sources
//
// Two kinds of source feed the indicators:
//
//   - ERA5 reanalysis (precipitation, volumetric soil water), retrieved over
//     HTTP from a Climate Data Store style endpoint as gridded JSON. Monthly
//     means are used for baseline statistics, hourly samples for the analysis
//     window.
//   - Global Drought Observatory (GDO) pre-computed products, read from local
//     archive files. An upstream collector fetches the GDO NetCDF releases,
//     converts each to flat gridded JSON, and drops them under the input
//     directory, one subdirectory per product code:
//
//     spg03  three-month Standardized Precipitation Index
//     smant  soil moisture anomaly (long-term ensemble)
//     smand  soil moisture anomaly (recent modelled, fills smant gaps)
//     fpanv  fAPAR anomaly (vegetation productivity)
//
// This service never parses NetCDF itself.
//
// # Dekad Calendar
//
// All indicator output is indexed by dekads, three per calendar month:
//
//	days 1-10, 11-20, 21-end of month
//
// Each dekad is identified by its first day at midnight UTC. Sources finer
// than a dekad (hourly, daily) are averaged into their bucket; coarser or
// missing dekads stay as gaps. See [DekadStart] and [Align].
//
// # Missing Data Conventions
//
// Two markers are deliberately distinct:
//
//	NaN          no data available for this (time, cell)
//	OutsideArea  cell center falls outside the requested polygon (-9999)
//
// The outside-area sentinel is filterable by consumers and must never be
// folded into missing: a polygon analysis over a sparse source produces both,
// with different meanings. Arithmetic skips both.
//
// # Anomalies
//
// An anomaly is the deviation of an observed value from its long-term baseline
// statistic. SPI and SMA are standardized (mean removed, scaled by the
// baseline deviation, clipped to ±3.09); GDO products arrive already
// standardized and pass through unchanged.
//
// # CDI Classification
//
// The Combined Drought Indicator derives a categorical status from the three
// anomalies at each (time, cell), most specific rule first:
//
//	Alert 1   SPI < -1, SMA < -1, fAPAR < -1
//	Alert 2   SPI < -1, SMA >= -1 or missing, fAPAR < -1
//	Warning   SPI < -1, SMA < -1, fAPAR >= -1 or missing
//	Watch     SPI < -1, others >= -1 or missing
//	Normal    SPI >= -1 or missing
//
// A missing SPI gates classification at Normal; a cell with all three inputs
// absent is dropped rather than reported as Normal. See [Classify].
//
// # Artifact Keys
//
// Output artifacts are keyed deterministically by product, region, and date
// range. Identical analysis arguments always map to the same key, which makes
// recomputation skippable and concurrent invocations safe: distinct analyses
// never share a key. Polygon regions contribute a SHA-256 digest of their
// vertices to keep keys short. See [AnalysisArgs.Key].
package domain
