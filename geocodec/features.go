package geocodec

import (
	"math"

	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/maths"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// DefaultCircleVertices is the number of vertices approximating a small circle
// boundary.
const DefaultCircleVertices = 64

// MeshFeatureCollection returns one feature per mesh triangle. Triangles
// crossing the antimeridian are multipolygons split at ±180.
func MeshFeatureCollection(m *coverage.Mesh) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, m.Len())
	for i, t := range m.Triangles {
		vertices := t.Vertices()
		polygons := sphericalPolygons(vertices[:], t.Contains(maths.ZAxis), t.Contains(maths.ZAxis.Negate()))

		features = append(features, &geojson.Feature{
			Geometry: polygonsGeometry(polygons),
			Properties: map[string]interface{}{
				"index": i,
				"depth": m.Depth,
			},
		})
	}

	return &geojson.FeatureCollection{
		Features: features,
	}
}

// GeometryFeature returns g as a feature with the given properties.
func GeometryFeature(g maths.GeometryOnSphere, properties map[string]interface{}) (*geojson.Feature, error) {
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}
	return &geojson.Feature{
		Geometry:   t,
		Properties: properties,
	}, nil
}

// BoundFeature returns a cap as a polygon whose boundary has numVertices
// vertices, with the cap parameters as properties. properties are merged into
// the feature's. Caps around a pole are closed along the pole's latitude and
// caps crossing the antimeridian are split at ±180.
func BoundFeature(b bounds.BoundingSmallCircle, numVertices int, properties map[string]interface{}) *geojson.Feature {
	if numVertices < 3 {
		numVertices = DefaultCircleVertices
	}

	lat, lon := b.Centre().LatLon()
	props := map[string]interface{}{
		"centre_lat":     lat,
		"centre_lon":     lon,
		"radius_degrees": b.AngularRadius() * 180 / math.Pi,
	}
	for k, v := range properties {
		props[k] = v
	}

	polygons := sphericalPolygons(
		SmallCircleVertices(b, numVertices),
		b.Test(maths.ZAxis) == bounds.InsideBounds,
		b.Test(maths.ZAxis.Negate()) == bounds.InsideBounds,
	)
	return &geojson.Feature{
		Geometry:   polygonsGeometry(polygons),
		Properties: props,
	}
}

// SmallCircleVertices returns n points evenly spaced on the boundary of b,
// counter clockwise around its centre.
func SmallCircleVertices(b bounds.BoundingSmallCircle, n int) []maths.UnitVector3D {
	centre := b.Centre()
	edge := maths.NewFiniteRotation(centre.Perpendicular(), b.AngularRadius()).RotateVector(centre)

	vertices := make([]maths.UnitVector3D, n)
	for i := range vertices {
		r := maths.NewFiniteRotation(centre, 2*math.Pi*float64(i)/float64(n))
		vertices[i] = r.RotateVector(edge)
	}
	return vertices
}
