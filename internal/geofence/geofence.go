// Package geofence validates GPS coordinates against project area polygons.
package geofence

import (
	"github.com/evidencecheck/attest/internal/models"
)

// Contains reports whether the point lies inside the polygon using ray
// casting. The polygon is a single ring without holes, closed implicitly:
// the edge from the last vertex back to the first is assumed. Points exactly
// on an edge may land on either side; geofences are drawn with margin, so
// boundary cases are not significant here.
func Contains(polygon models.Polygon, point models.GeoPoint) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := polygon[i], polygon[j]
		if (vi.Lat > point.Lat) != (vj.Lat > point.Lat) {
			cross := (vj.Lon-vi.Lon)*(point.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lon
			if point.Lon < cross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
