// Package geometry renders apartment locations as GeoJSON for map clients.
package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Marker is one located apartment on a map.
type Marker struct {
	ID         uint
	Point      orb.Point
	Properties map[string]any
}

// Collection returns one point feature per marker. With three or more
// distinct locations a "coverage" polygon enclosing them is appended.
func Collection(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	points := make([]orb.Point, 0, len(markers))

	for _, m := range markers {
		f := geojson.NewFeature(m.Point)
		f.ID = m.ID
		f.Properties["kind"] = "apartment"
		for k, v := range m.Properties {
			f.Properties[k] = v
		}
		fc.Append(f)
		points = append(points, m.Point)
	}

	if hull := Coverage(points); hull != nil {
		f := geojson.NewFeature(orb.Polygon{hull})
		f.Properties["kind"] = "coverage"
		f.Properties["count"] = len(markers)
		fc.Append(f)
	}
	if len(points) > 0 {
		fc.BBox = geojson.NewBBox(orb.MultiPoint(points).Bound())
	}
	return fc
}

// Coverage returns the closed convex hull of points, or nil when fewer than
// three distinct points are given or all of them are collinear.
func Coverage(points []orb.Point) orb.Ring {
	pts := dedupe(points)
	if len(pts) < 3 {
		return nil
	}

	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	// Andrew's monotone chain, counter-clockwise
	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// hull ends with its first point, so a triangle has four entries
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func dedupe(points []orb.Point) []orb.Point {
	seen := make(map[orb.Point]bool, len(points))
	out := make([]orb.Point, 0, len(points))
	for _, p := range points {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
