package geocodec

import (
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/maths"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name         string
		format       Format
		data         string
		expectedType maths.GeometryType
		check        func(t *testing.T, g maths.GeometryOnSphere)
	}{
		{
			name:         "geojson point",
			format:       FormatGeoJSON,
			data:         `{"type":"Point","coordinates":[18.4,-33.9]}`,
			expectedType: maths.GeometryTypePoint,
			check: func(t *testing.T, g maths.GeometryOnSphere) {
				lat, lon := g.(maths.PointOnSphere).Position().LatLon()
				require.InDelta(t, -33.9, lat, 1e-9)
				require.InDelta(t, 18.4, lon, 1e-9)
			},
		},
		{
			name:         "geojson multipoint",
			format:       FormatGeoJSON,
			data:         `{"type":"MultiPoint","coordinates":[[0,0],[10,10],[20,0]]}`,
			expectedType: maths.GeometryTypeMultiPoint,
			check: func(t *testing.T, g maths.GeometryOnSphere) {
				require.Len(t, g.(*maths.MultiPointOnSphere).Points(), 3)
			},
		},
		{
			name:         "geojson linestring",
			format:       FormatGeoJSON,
			data:         `{"type":"LineString","coordinates":[[0,0],[10,10],[20,0]]}`,
			expectedType: maths.GeometryTypePolyline,
			check: func(t *testing.T, g maths.GeometryOnSphere) {
				require.Len(t, g.(*maths.PolylineOnSphere).Arcs(), 2)
			},
		},
		{
			name:   "geojson polygon with hole",
			format: FormatGeoJSON,
			data: `{"type":"Polygon","coordinates":[
				[[-10,-10],[10,-10],[10,10],[-10,10],[-10,-10]],
				[[-2,-2],[2,-2],[2,2],[-2,2],[-2,-2]]
			]}`,
			expectedType: maths.GeometryTypePolygon,
			check: func(t *testing.T, g maths.GeometryOnSphere) {
				pg := g.(*maths.PolygonOnSphere)
				require.Len(t, pg.ExteriorRingVertices(), 4)
				require.Equal(t, 1, pg.NumberOfInteriorRings())
				require.False(t, pg.IsPointInPolygon(maths.UnitVectorFromLatLon(0, 0)))
				require.True(t, pg.IsPointInPolygon(maths.UnitVectorFromLatLon(5, 5)))
			},
		},
		{
			name:         "geojson feature",
			format:       FormatGeoJSON,
			data:         `{"type":"Feature","properties":{"name":"cape town"},"geometry":{"type":"Point","coordinates":[18.4,-33.9]}}`,
			expectedType: maths.GeometryTypePoint,
		},
		{
			name:         "wkt polygon",
			format:       FormatWKT,
			data:         "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))",
			expectedType: maths.GeometryTypePolygon,
			check: func(t *testing.T, g maths.GeometryOnSphere) {
				require.True(t, g.(*maths.PolygonOnSphere).IsPointInPolygon(maths.UnitVectorFromLatLon(5, 5)))
			},
		},
		{
			name:         "wkt linestring",
			format:       FormatWKT,
			data:         "LINESTRING (0 0, 45 45)",
			expectedType: maths.GeometryTypePolyline,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g, err := Decode(test.format, []byte(test.data))
			require.NoError(t, err)
			require.Equal(t, test.expectedType, g.Type())
			if test.check != nil {
				test.check(t, g)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name         string
		format       Format
		data         string
		expectedType string
	}{
		{
			name:         "unknown format",
			format:       "kml",
			data:         "<kml/>",
			expectedType: ErrTypeUnsupportedFormat,
		},
		{
			name:         "invalid json",
			format:       FormatGeoJSON,
			data:         `{"type":`,
			expectedType: ErrTypeMalformedGeometry,
		},
		{
			name:         "invalid wkt",
			format:       FormatWKT,
			data:         "POLYGON ((0 0, 10",
			expectedType: ErrTypeMalformedGeometry,
		},
		{
			name:         "latitude out of range",
			format:       FormatGeoJSON,
			data:         `{"type":"Point","coordinates":[0,91]}`,
			expectedType: ErrTypeMalformedGeometry,
		},
		{
			name:         "degenerate polygon",
			format:       FormatGeoJSON,
			data:         `{"type":"Polygon","coordinates":[[[0,0],[10,0],[0,0]]]}`,
			expectedType: ErrTypeMalformedGeometry,
		},
		{
			name:         "multipolygon",
			format:       FormatWKT,
			data:         "MULTIPOLYGON (((0 0, 10 0, 10 10, 0 0)))",
			expectedType: ErrTypeUnsupportedGeometry,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(test.format, []byte(test.data))
			require.Error(t, err)
			require.True(t, errors.IsType(err, test.expectedType), "error type: %s", errors.Type(err))
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	square := []maths.UnitVector3D{
		maths.UnitVectorFromLatLon(-10, -10),
		maths.UnitVectorFromLatLon(-10, 10),
		maths.UnitVectorFromLatLon(10, 10),
		maths.UnitVectorFromLatLon(10, -10),
	}
	pg, err := maths.NewPolygonOnSphere(square)
	require.NoError(t, err)

	for _, format := range []Format{FormatGeoJSON, FormatWKT, FormatWKB} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(format, pg)
			require.NoError(t, err)

			g, err := Decode(format, data)
			require.NoError(t, err)

			decoded := g.(*maths.PolygonOnSphere)
			require.Len(t, decoded.ExteriorRingVertices(), len(square))
			for i, v := range decoded.ExteriorRingVertices() {
				require.True(t, v.EqualWithEpsilon(pg.ExteriorRingVertices()[i], 1e-9))
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatGeoJSON, f)

	f, err = ParseFormat(" WKT ")
	require.NoError(t, err)
	require.Equal(t, FormatWKT, f)

	_, err = ParseFormat("shp")
	require.True(t, errors.IsType(err, ErrTypeUnsupportedFormat))
}

func TestFormatFromContentType(t *testing.T) {
	require.Equal(t, FormatGeoJSON, FormatFromContentType("application/geo+json"))
	require.Equal(t, FormatGeoJSON, FormatFromContentType(""))
	require.Equal(t, FormatWKT, FormatFromContentType("text/plain; charset=utf-8"))
	require.Equal(t, FormatWKB, FormatFromContentType("application/octet-stream"))
}

func TestMeshFeatureCollection(t *testing.T) {
	b := bounds.NewBoundingSmallCircleFromAngle(maths.UnitVectorFromLatLon(10, 10), 5*math.Pi/180)
	mesh, err := coverage.Generate(b, 4)
	require.NoError(t, err)

	data, err := json.Marshal(MeshFeatureCollection(mesh))
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string        `json:"type"`
				Coordinates [][][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, mesh.Len())

	for _, f := range fc.Features {
		require.Equal(t, "Polygon", f.Geometry.Type)
		require.Len(t, f.Geometry.Coordinates, 1)
		require.Len(t, f.Geometry.Coordinates[0], 4)
		require.Equal(t, float64(4), f.Properties["depth"])
	}
}

func TestBoundFeature(t *testing.T) {
	b := bounds.NewBoundingSmallCircleFromAngle(maths.UnitVectorFromLatLon(45, 90), 10*math.Pi/180)

	for _, v := range SmallCircleVertices(b, 32) {
		require.InDelta(t, b.SmallCircleBoundaryCosine(), maths.Dot(v, b.Centre()), 1e-12)
	}

	f := BoundFeature(b, 0, map[string]interface{}{"region_id": 7})
	require.Equal(t, 7, f.Properties["region_id"])
	require.InDelta(t, 10, f.Properties["radius_degrees"], 1e-9)
	require.InDelta(t, 45, f.Properties["centre_lat"], 1e-9)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	require.Contains(t, string(data), `"Polygon"`)
}

func polygonsOf(t *testing.T, g geom.T) [][][]geom.Coord {
	switch g := g.(type) {
	case *geom.Polygon:
		return [][][]geom.Coord{g.Coords()}
	case *geom.MultiPolygon:
		return g.Coords()
	}
	require.FailNow(t, "unexpected geometry", "%T", g)
	return nil
}

func requireInRange(t *testing.T, polygons [][][]geom.Coord) {
	for _, polygon := range polygons {
		for _, ring := range polygon {
			require.True(t, equalCoord(ring[0], ring[len(ring)-1]), "ring is not closed")
			for _, c := range ring {
				require.GreaterOrEqual(t, c[0], -180.0)
				require.LessOrEqual(t, c[0], 180.0)
				require.GreaterOrEqual(t, c[1], -90.0)
				require.LessOrEqual(t, c[1], 90.0)
			}
		}
	}
}

func polygonsArea(polygons [][][]geom.Coord) float64 {
	var area float64
	for _, polygon := range polygons {
		area += math.Abs(signedArea(polygon[0]))
		for _, hole := range polygon[1:] {
			area -= math.Abs(signedArea(hole))
		}
	}
	return area
}

func TestBoundFeatureAntimeridian(t *testing.T) {
	b := bounds.NewBoundingSmallCircleFromAngle(maths.UnitVectorFromLatLon(-17, 179.9), 0.02)

	polygons := polygonsOf(t, BoundFeature(b, 0, nil).Geometry)
	require.Len(t, polygons, 2)
	requireInRange(t, polygons)

	for _, polygon := range polygons {
		require.Len(t, polygon, 1)
		require.Positive(t, signedArea(polygon[0]))

		minLon, maxLon := longitudeRange(polygon[0])
		require.Less(t, maxLon-minLon, 5.0)
	}

	// Cutting at the antimeridian keeps the area of the unwrapped ring.
	ring, winding := planarRing(SmallCircleVertices(b, DefaultCircleVertices))
	require.Zero(t, winding)
	require.InDelta(t, math.Abs(signedArea(ring)), polygonsArea(polygons), 1e-9)
}

func TestBoundFeaturePoles(t *testing.T) {
	tests := []struct {
		name    string
		centre  maths.UnitVector3D
		poleLat float64
	}{
		{
			name:    "north pole",
			centre:  maths.ZAxis,
			poleLat: 90,
		},
		{
			name:    "south pole",
			centre:  maths.ZAxis.Negate(),
			poleLat: -90,
		},
		{
			name:    "off centre north",
			centre:  maths.UnitVectorFromLatLon(85, 170),
			poleLat: 90,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := bounds.NewBoundingSmallCircleFromAngle(test.centre, 10*math.Pi/180)

			polygons := polygonsOf(t, BoundFeature(b, 128, nil).Geometry)
			requireInRange(t, polygons)

			var touchesPole bool
			var minLon, maxLon = math.Inf(1), math.Inf(-1)
			for _, polygon := range polygons {
				require.Len(t, polygon, 1)
				require.Positive(t, signedArea(polygon[0]))

				for _, c := range polygon[0] {
					touchesPole = touchesPole || c[1] == test.poleLat
					minLon = math.Min(minLon, c[0])
					maxLon = math.Max(maxLon, c[0])
				}
			}
			require.True(t, touchesPole)
			require.Equal(t, -180.0, minLon)
			require.Equal(t, 180.0, maxLon)
		})
	}

	t.Run("centred on the pole", func(t *testing.T) {
		b := bounds.NewBoundingSmallCircleFromAngle(maths.ZAxis, 10*math.Pi/180)
		polygons := polygonsOf(t, BoundFeature(b, 128, nil).Geometry)

		// The ring lies on latitude 80 and closes along latitude 90.
		require.InDelta(t, 360*10, polygonsArea(polygons), 1e-6)
	})
}

func TestBoundFeatureBothPoles(t *testing.T) {
	t.Run("hole inside the world", func(t *testing.T) {
		b := bounds.NewBoundingSmallCircleFromAngle(maths.UnitVectorFromLatLon(0, 90), 120*math.Pi/180)

		polygons := polygonsOf(t, BoundFeature(b, 0, nil).Geometry)
		require.Len(t, polygons, 1)
		require.Len(t, polygons[0], 2)
		requireInRange(t, polygons)
		require.Positive(t, signedArea(polygons[0][0]))
		require.Negative(t, signedArea(polygons[0][1]))

		hole := sphericalPolygons(SmallCircleVertices(b, DefaultCircleVertices), false, false)
		require.Len(t, hole, 1)
		require.InDelta(t, 360*180-polygonsArea(hole), polygonsArea(polygons), 1e-6)
	})

	t.Run("hole across the antimeridian", func(t *testing.T) {
		b := bounds.NewBoundingSmallCircleFromAngle(maths.UnitVectorFromLatLon(0, 0), 120*math.Pi/180)

		polygons := polygonsOf(t, BoundFeature(b, 0, nil).Geometry)
		require.Len(t, polygons, 1)
		require.Len(t, polygons[0], 1)
		requireInRange(t, polygons)
		require.Positive(t, signedArea(polygons[0][0]))

		hole := sphericalPolygons(SmallCircleVertices(b, DefaultCircleVertices), false, false)
		require.Len(t, hole, 2)
		require.InDelta(t, 360*180-polygonsArea(hole), polygonsArea(polygons), 1e-6)
	})
}

func TestMeshFeatureCollectionAntimeridian(t *testing.T) {
	tests := []struct {
		name  string
		bound bounds.BoundingSmallCircle
		depth int
	}{
		{
			name:  "dateline",
			bound: bounds.NewBoundingSmallCircleFromAngle(maths.UnitVectorFromLatLon(-17, 179.9), 0.02),
			depth: 6,
		},
		{
			name:  "north pole",
			bound: bounds.NewBoundingSmallCircleFromAngle(maths.ZAxis, 5*math.Pi/180),
			depth: 4,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mesh, err := coverage.Generate(test.bound, test.depth)
			require.NoError(t, err)

			fc := MeshFeatureCollection(mesh)
			require.Len(t, fc.Features, mesh.Len())

			for _, f := range fc.Features {
				polygons := polygonsOf(t, f.Geometry)
				requireInRange(t, polygons)

				for _, polygon := range polygons {
					minLon, maxLon := longitudeRange(polygon[0])
					require.Less(t, maxLon-minLon, 91.0)
					require.Positive(t, signedArea(polygon[0]))
				}
			}
		})
	}
}

func TestSphericalPolygonsSplit(t *testing.T) {
	vertices := []maths.UnitVector3D{
		maths.UnitVectorFromLatLon(-17, 179.5),
		maths.UnitVectorFromLatLon(-17, -179.5),
		maths.UnitVectorFromLatLon(-16, 179.9),
	}

	polygons := sphericalPolygons(vertices, false, false)
	require.Len(t, polygons, 2)
	requireInRange(t, polygons)

	west, _ := longitudeRange(polygons[0][0])
	_, east := longitudeRange(polygons[1][0])
	require.InDelta(t, 179.5, west, 1e-9)
	require.InDelta(t, -179.5, east, 1e-9)
	require.InDelta(t, 0.5, polygonsArea(polygons), 1e-9)
}

func TestPlanarRingPoleVertex(t *testing.T) {
	ring, winding := planarRing([]maths.UnitVector3D{
		maths.ZAxis,
		maths.UnitVectorFromLatLon(80, 0),
		maths.UnitVectorFromLatLon(80, 90),
	})
	require.Zero(t, winding)
	require.Len(t, ring, 4)
	require.InDelta(t, 900, math.Abs(signedArea(ring)), 1e-9)
}

func TestGeometryFeature(t *testing.T) {
	pl, err := maths.NewPolylineOnSphere([]maths.UnitVector3D{
		maths.UnitVectorFromLatLon(0, 0),
		maths.UnitVectorFromLatLon(10, 10),
	})
	require.NoError(t, err)

	f, err := GeometryFeature(pl, map[string]interface{}{"role": "geometry"})
	require.NoError(t, err)
	require.Equal(t, "geometry", f.Properties["role"])

	ls, ok := f.Geometry.(*geom.LineString)
	require.True(t, ok)
	require.Equal(t, 2, ls.NumCoords())
	require.InDelta(t, 10, ls.Coord(1)[0], 1e-9)
	require.InDelta(t, 10, ls.Coord(1)[1], 1e-9)
}
