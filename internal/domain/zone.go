package domain

import (
	"errors"
	"time"

	"github.com/paulmach/orb"
)

// AnonymousOwner marks routes uploaded without an account.
const AnonymousOwner = "anonymous"

// Zone is a time-bounded restricted area.
type Zone struct {
	ID              string
	Name            string
	Description     string
	AssociationName string
	CreatedBy       string

	Boundary     orb.Ring
	Buffered     orb.Ring
	BufferMeters int

	Start     time.Time
	End       time.Time
	CreatedAt time.Time
}

// BufferedOrBoundary returns the buffered polygon, or the raw one when no
// buffer has been built.
func (z Zone) BufferedOrBoundary() orb.Ring {
	if len(z.Buffered) == 0 {
		return z.Boundary
	}
	return z.Buffered
}

// Route is an uploaded track.
type Route struct {
	ID        string
	Name      string
	OwnerID   string
	Public    bool
	FileName  string
	Path      orb.LineString
	CreatedAt time.Time
}

// Anonymous reports whether the route has no owning user.
func (r Route) Anonymous() bool {
	return r.OwnerID == "" || r.OwnerID == AnonymousOwner
}

// ErrNotFound is returned by repositories when a zone, route or notification
// does not exist.
var ErrNotFound = errors.New("not found")
