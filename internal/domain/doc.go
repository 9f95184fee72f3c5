// Package domain models restricted hunting zones, user routes and the
// notifications raised when the two conflict.
//
// # Zones
//
// A zone is a polygon with an active interval [start, end] and a safety buffer
// in meters. The buffered polygon is derived once, when the zone is created or
// its geometry or buffer distance changes, and stored next to the raw one.
// Meters are converted to degrees with a fixed equatorial factor
// ([MetersPerDegree]); no latitude correction is applied, so buffers are
// narrower in real distance the further a zone is from the equator.
//
// # Classification
//
// [Classifier] compares one route with one zone and picks the first rule that
// matches, in this order:
//
//	contained   route inside the raw or buffered polygon, overlap 100
//	intersects  route touches the raw polygon, overlap against raw
//	buffer      route touches only the buffered polygon, overlap against buffered
//	none        otherwise, overlap 0
//
// Overlap is the clipped length over the route length (floored at 1 for
// zero-length routes), as a percentage rounded to one decimal and clamped to
// [0, 100].
//
// # Time
//
// Zone intervals are compared as canonical UTC strings ([TimestampLayout]),
// which sort the same as the instants they encode. The same strings are used
// as SQL columns so range queries can run in the store.
//
// # Trigger events
//
// The upstream application publishes zone, route and favorite changes as JSON
// trigger events. [ParseTriggerEvent] validates them once and returns typed
// records; nothing downstream handles raw maps.
package domain
