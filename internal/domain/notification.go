package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Category groups notifications by the event that raised them.
type Category string

const (
	// CategoryZoneConflict is raised when a new zone conflicts with an
	// existing route.
	CategoryZoneConflict Category = "zone_conflict"
	// CategoryRouteWarning is raised when a new route conflicts with an
	// active or upcoming zone.
	CategoryRouteWarning Category = "route_warning"
)

// intervalLayout is how zone bounds appear in notification bodies.
const intervalLayout = "2006-01-02T15:04"

// DraftPayload is the structured part of a notification.
type DraftPayload struct {
	RouteID           string         `json:"route_id"`
	RouteName         string         `json:"route_name"`
	ZoneID            string         `json:"zone_id"`
	ZoneName          string         `json:"zone_name"`
	ConflictType      Classification `json:"conflict_type"`
	OverlapPercentage float64        `json:"overlap_percentage"`
	ZoneStart         time.Time      `json:"zone_start"`
	ZoneEnd           time.Time      `json:"zone_end"`
}

// NotificationDraft is a rendered notification addressed to one user, not
// yet stored or sent.
type NotificationDraft struct {
	RecipientID string       `json:"user_id"`
	Category    Category     `json:"type"`
	Title       string       `json:"title"`
	Body        string       `json:"message"`
	Payload     DraftPayload `json:"data"`
}

// Notification is a draft once accepted by a sink.
type Notification struct {
	ID string `json:"id"`
	NotificationDraft
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification stamps d with a fresh id and the current time.
func NewNotification(d NotificationDraft) Notification {
	return Notification{
		ID:                uuid.NewString(),
		NotificationDraft: d,
		CreatedAt:         Now(),
	}
}

// ZoneConflictDraft renders the notification for an existing route that a new
// zone conflicts with. owner selects between the owner and favoriter wording.
func ZoneConflictDraft(recipientID string, owner bool, route Route, zone Zone, v Verdict) NotificationDraft {
	who := "Favorite"
	if owner {
		who = "Your"
	}
	start, end := zone.Start.UTC().Format(intervalLayout), zone.End.UTC().Format(intervalLayout)

	var title, body string
	if v.Classification == Contained {
		title = fmt.Sprintf("CRITICAL: %s route '%s' inside new zone", who, route.Name)
		body = fmt.Sprintf("%s route '%s' is completely inside the new hunting zone '%s' (%s).\nActive: %s - %s.\nDo NOT use this route during hunting hours.",
			who, route.Name, zone.Name, zone.AssociationName, start, end)
	} else {
		title = fmt.Sprintf("WARNING: %s route '%s' crosses new zone", who, route.Name)
		body = fmt.Sprintf("%s route '%s' intersects (%s%%) with the new hunting zone '%s' (%s).\nActive: %s - %s.\nReview this route before heading out.",
			who, route.Name, formatPercent(v.OverlapPercentage), zone.Name, zone.AssociationName, start, end)
	}

	return NotificationDraft{
		RecipientID: recipientID,
		Category:    CategoryZoneConflict,
		Title:       title,
		Body:        body,
		Payload:     payloadFor(route, zone, v),
	}
}

// RouteWarningDraft renders the notification for the uploader of a route that
// conflicts with an active or upcoming zone.
func RouteWarningDraft(recipientID string, route Route, zone Zone, v Verdict) NotificationDraft {
	start, end := zone.Start.UTC().Format(intervalLayout), zone.End.UTC().Format(intervalLayout)

	var title, body string
	if v.Classification == Contained {
		title = fmt.Sprintf("CRITICAL: '%s' is inside hunting zone '%s'", route.Name, zone.Name)
		body = fmt.Sprintf("Your newly uploaded route '%s' is completely inside the hunting zone '%s' (%s).\nActive period: %s - %s.\nDo NOT use this route during hunting hours.",
			route.Name, zone.Name, zone.AssociationName, start, end)
	} else {
		title = fmt.Sprintf("WARNING: '%s' crosses hunting zone '%s'", route.Name, zone.Name)
		body = fmt.Sprintf("Your route '%s' intersects (%s%%) with the hunting zone '%s' (%s).\nActive period: %s - %s.\nAvoid this area during hunting hours.",
			route.Name, formatPercent(v.OverlapPercentage), zone.Name, zone.AssociationName, start, end)
	}

	return NotificationDraft{
		RecipientID: recipientID,
		Category:    CategoryRouteWarning,
		Title:       title,
		Body:        body,
		Payload:     payloadFor(route, zone, v),
	}
}

func payloadFor(route Route, zone Zone, v Verdict) DraftPayload {
	return DraftPayload{
		RouteID:           route.ID,
		RouteName:         route.Name,
		ZoneID:            zone.ID,
		ZoneName:          zone.Name,
		ConflictType:      v.Classification,
		OverlapPercentage: v.OverlapPercentage,
		ZoneStart:         zone.Start.UTC(),
		ZoneEnd:           zone.End.UTC(),
	}
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}
