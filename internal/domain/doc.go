// Package domain models gridded environmental surfaces interpolated from
// irregular point observations.
//
// # Data Source
//
// Observations arrive as wide CSV files: one row per monitoring site and
// sampling date, one column per measured variable (e.g. pm2_5 concentration,
// NO2, rainfall). Rows carry WGS-84 latitude/longitude and an optional
// day-first date. The loader in internal/adapter/csvio turns each file into a
// [Dataset]; everything downstream works on in-memory values only.
//
// # Interpolation Conventions
//
// Units of work:
//
//	A unit is one (variable, date) pair. Undated rows collapse into a single
//	unit per variable with the zero time as its date. Each unit is
//	interpolated independently and either yields one raster band or a
//	recorded failure; units never affect each other.
//
// Methods:
//
//	"kriging"  ordinary kriging with a fitted variogram model. Produces a
//	           prediction surface and a matching variance surface.
//	"idw"      inverse distance weighting with configurable power. Also the
//	           automatic fallback when the kriging system cannot be solved;
//	           a fallback surface records "idw" as its method.
//
// Grid geometry:
//
//	Grids are regular lon/lat node grids in EPSG:4326. Bounds come from the
//	sample's bounding box padded by a buffer fraction of each axis range;
//	an axis with zero extent is widened by a small epsilon first. Column and
//	row counts derive from the requested cell size and are clamped to a
//	maximum dimension, recomputing the effective cell size so the padded
//	extent is preserved exactly. Row 0 is the northernmost row, matching the
//	GDAL north-up raster convention.
//
// Band naming:
//
//	Each band is described as "<variable> - <date>" with the date formatted
//	as 2006-01-02, or "<variable> - all" for undated units. Catalogs index
//	bands starting at 1, the convention raster tooling expects.
//
// Stack ordering:
//
//	Bands in a geostack sort by date ascending, then variable name ascending.
//	The order is deterministic regardless of completion order upstream.
//
// # Failure Model
//
// Units fail soft: too few points is [InsufficientDataError], an unsolvable
// kriging system that IDW also cannot rescue is [NumericalError]. Both become
// terminal [UnitOutcome] records rather than run failures. Only a missing or
// unreadable dataset, an empty variable list, or mismatched band shapes at
// assembly abort a run.
package domain
