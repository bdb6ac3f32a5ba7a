// Package domain models the gridded snapshots the service consumes and the
// front events it publishes.
//
// # Data Source
//
// An upstream model post-processor publishes one [Snapshot] per valid time
// to the Kafka source topic. Each snapshot carries a regular latitude/longitude
// mesh and the 850 hPa fields the detectors need, flattened row-major:
//
//	rows × cols values per grid; rows run along latitude, columns along
//	longitude. Longitude is periodic: the last column neighbors the first.
//
// # Field Conventions
//
// Units:
//
//	lat, lon        degrees
//	theta           potential temperature, K
//	temperature     K, with pressure (grid) or pressure_level (scalar) in hPa
//	h850            geopotential height, m
//	u850, v850      wind components, m/s (u eastward, v northward)
//	*_prior         the same winds one time step earlier
//
// Missing values:
//
//	JSON null marks a missing cell. In memory it becomes NaN and propagates
//	through the detectors; output masks are null where a cell's own inputs
//	were missing.
//
// Potential temperature:
//
//	When theta is absent it is derived as θ = T·(1000/P)^(2/7) from
//	temperature and pressure. A snapshot with temperature but neither
//	pressure form is rejected.
//
// # Output
//
// A [FrontEvent] holds one [MethodResult] per detection method that could
// run: the warm and cold masks, their cell counts, and the coordinates of
// every flagged cell. Methods whose inputs are absent are listed in Skipped.
//
// # ID Generation
//
// Event IDs are name-based (SHA-1, version 5) UUIDs of
// snapshot_id|valid_time|methods. Replaying a snapshot yields the same ID, so
// downstream consumers can upsert idempotently. See [NewFrontEvent].
package domain
