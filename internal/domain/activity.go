package domain

import "time"

// TimestampLayout is the canonical, lexicographically sortable form of a zone
// boundary instant. Fixed width with microsecond precision, always UTC.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// ActiveAt returns the zones whose interval covers at, bounds included.
func ActiveAt(zones []Zone, at time.Time) []Zone {
	now := FormatTimestamp(at)
	var out []Zone
	for _, z := range zones {
		if FormatTimestamp(z.Start) <= now && now <= FormatTimestamp(z.End) {
			out = append(out, z)
		}
	}
	return out
}

// Upcoming returns the zones that have not ended by at: the active ones and
// those starting later.
func Upcoming(zones []Zone, at time.Time) []Zone {
	now := FormatTimestamp(at)
	var out []Zone
	for _, z := range zones {
		if FormatTimestamp(z.End) >= now {
			out = append(out, z)
		}
	}
	return out
}
