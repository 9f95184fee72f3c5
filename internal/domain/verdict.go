package domain

// Classification is how a route relates to a zone.
type Classification string

const (
	Contained  Classification = "contained"
	Intersects Classification = "intersects"
	BufferOnly Classification = "buffer"
	None       Classification = "none"
)

// Severity orders classifications from harmless (0) to worst (3).
func (c Classification) Severity() int {
	switch c {
	case Contained:
		return 3
	case Intersects:
		return 2
	case BufferOnly:
		return 1
	default:
		return 0
	}
}

// Notifies reports whether a verdict with this classification raises a
// notification on fan-out. Buffer-only contact never does.
func (c Classification) Notifies() bool {
	return c == Contained || c == Intersects
}

// Verdict is the outcome of classifying one route against one zone.
type Verdict struct {
	ZoneID            string         `json:"zone_id"`
	RouteID           string         `json:"route_id"`
	Classification    Classification `json:"conflict_type"`
	OverlapPercentage float64        `json:"overlap_percentage"`
}

// Conflicting reports whether the verdict is anything but None.
func (v Verdict) Conflicting() bool {
	return v.Classification != None && v.Classification != ""
}
