package emergency

import (
	"sort"

	"safecircle/geo"
	"safecircle/models"
)

// ResolveAudience returns who must be told about an alert raised by raiserID
// at the given point: users within radiusKm plus accepted friends in either
// direction, never the raiser. The result is sorted and free of duplicates.
func ResolveAudience(raiserID string, at geo.Point, users []models.UserLocation, edges []models.Friendship, radiusKm float64) []string {
	set := make(map[string]struct{})

	for _, u := range users {
		if u.UserID == raiserID {
			continue
		}
		if geo.IsNearby(geo.Point{Lat: u.Lat, Lng: u.Lng}, at, radiusKm) {
			set[u.UserID] = struct{}{}
		}
	}

	for i := range edges {
		e := &edges[i]
		if e.Status != models.FriendAccepted || !e.Touches(raiserID) {
			continue
		}
		set[e.Other(raiserID)] = struct{}{}
	}

	delete(set, raiserID)

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
