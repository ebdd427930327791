// Package geocodec converts between the usual geometry encodings (GeoJSON,
// WKT, WKB) and geometries on the unit sphere. Coordinates are longitude and
// latitude in degrees.
package geocodec

import (
	"encoding/binary"
	"fmt"
	"math"
	"mime"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/maths"
	"github.com/segmentio/encoding/json"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
)

const (
	ErrTypeUnsupportedFormat   = "unsupported_format"
	ErrTypeUnsupportedGeometry = "unsupported_geometry"
	ErrTypeMalformedGeometry   = "malformed_geometry"
)

// Format is a geometry encoding.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatWKT     Format = "wkt"
	FormatWKB     Format = "wkb"
)

// ParseFormat returns the format named s. An empty name is GeoJSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatGeoJSON, nil

	case FormatGeoJSON, FormatWKT, FormatWKB:
		return f, nil

	default:
		return "", errors.New("unsupported geometry format").
			WithType(ErrTypeUnsupportedFormat).
			WithTag("format", s)
	}
}

// FormatFromContentType maps an HTTP content type to a format. Unknown and
// JSON content types are GeoJSON.
func FormatFromContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatGeoJSON
	}

	switch mediaType {
	case "text/plain", "application/wkt":
		return FormatWKT

	case "application/octet-stream", "application/wkb":
		return FormatWKB

	default:
		return FormatGeoJSON
	}
}

// Decode parses data in the given format. GeoJSON input may be a bare
// geometry or a Feature.
func Decode(format Format, data []byte) (maths.GeometryOnSphere, error) {
	var g geom.T
	var err error

	switch format {
	case FormatGeoJSON:
		g, err = decodeGeoJSON(data)

	case FormatWKT:
		g, err = wkt.Unmarshal(string(data))

	case FormatWKB:
		g, err = wkb.Unmarshal(data)

	default:
		return nil, errors.New("unsupported geometry format").
			WithType(ErrTypeUnsupportedFormat).
			WithTag("format", format)
	}
	if err != nil {
		return nil, errors.New("decoding geometry failed").
			WithType(ErrTypeMalformedGeometry).
			WithTag("format", format).
			Wrap(err)
	}

	return FromGeom(g)
}

func decodeGeoJSON(data []byte) (geom.T, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	if header.Type == "Feature" {
		var f geojson.Feature
		if err := f.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return f.Geometry, nil
	}

	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return g, nil
}

// Encode writes g in the given format.
func Encode(format Format, g maths.GeometryOnSphere) ([]byte, error) {
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatGeoJSON:
		return geojson.Marshal(t)

	case FormatWKT:
		s, err := wkt.Marshal(t)
		return []byte(s), err

	case FormatWKB:
		return wkb.Marshal(t, binary.LittleEndian)

	default:
		return nil, errors.New("unsupported geometry format").
			WithType(ErrTypeUnsupportedFormat).
			WithTag("format", format)
	}
}

// FromGeom converts a planar lon/lat geometry to a geometry on the sphere.
// Line strings become polylines. Polygon rings may repeat their first vertex.
func FromGeom(g geom.T) (maths.GeometryOnSphere, error) {
	switch g := g.(type) {
	case *geom.Point:
		p, err := coordToUnitVector(g.Coords())
		if err != nil {
			return nil, err
		}
		return maths.NewPointOnSphere(p), nil

	case *geom.MultiPoint:
		points, err := coordsToUnitVectors(g.Coords())
		if err != nil {
			return nil, err
		}
		mp, err := maths.NewMultiPointOnSphere(points)
		if err != nil {
			return nil, malformedGeometry(err)
		}
		return mp, nil

	case *geom.LineString:
		vertices, err := coordsToUnitVectors(g.Coords())
		if err != nil {
			return nil, err
		}
		pl, err := maths.NewPolylineOnSphere(vertices)
		if err != nil {
			return nil, malformedGeometry(err)
		}
		return pl, nil

	case *geom.Polygon:
		if g.NumLinearRings() == 0 {
			return nil, errors.New("polygon has no ring").
				WithType(ErrTypeMalformedGeometry)
		}

		rings := make([][]maths.UnitVector3D, g.NumLinearRings())
		for i := range rings {
			vertices, err := coordsToUnitVectors(g.LinearRing(i).Coords())
			if err != nil {
				return nil, err
			}
			rings[i] = openRing(vertices)
		}
		pg, err := maths.NewPolygonOnSphere(rings[0], rings[1:]...)
		if err != nil {
			return nil, malformedGeometry(err)
		}
		return pg, nil

	default:
		return nil, errors.New("unsupported geometry type").
			WithType(ErrTypeUnsupportedGeometry).
			WithTag("type", typeName(g))
	}
}

// ToGeom converts a geometry on the sphere to a planar lon/lat geometry.
func ToGeom(g maths.GeometryOnSphere) (geom.T, error) {
	switch g := g.(type) {
	case maths.PointOnSphere:
		return geom.NewPoint(geom.XY).SetCoords(unitVectorToCoord(g.Position()))

	case *maths.MultiPointOnSphere:
		coords := make([]geom.Coord, 0, len(g.Points()))
		for _, p := range g.Points() {
			coords = append(coords, unitVectorToCoord(p.Position()))
		}
		return geom.NewMultiPoint(geom.XY).SetCoords(coords)

	case *maths.PolylineOnSphere:
		return geom.NewLineString(geom.XY).SetCoords(unitVectorsToCoords(g.Vertices(), false))

	case *maths.PolygonOnSphere:
		rings := [][]geom.Coord{unitVectorsToCoords(g.ExteriorRingVertices(), true)}
		for i := 0; i < g.NumberOfInteriorRings(); i++ {
			rings = append(rings, unitVectorsToCoords(g.InteriorRingVertices(i), true))
		}
		return geom.NewPolygon(geom.XY).SetCoords(rings)

	default:
		return nil, errors.New("unsupported geometry type").
			WithType(ErrTypeUnsupportedGeometry).
			WithTag("type", typeName(g))
	}
}

func coordToUnitVector(c geom.Coord) (maths.UnitVector3D, error) {
	if len(c) < 2 {
		return maths.UnitVector3D{}, errors.New("coordinate has less than 2 dimensions").
			WithType(ErrTypeMalformedGeometry)
	}

	lon, lat := c[0], c[1]
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return maths.UnitVector3D{}, errors.New("coordinate out of range").
			WithType(ErrTypeMalformedGeometry).
			WithTag("lon", lon).
			WithTag("lat", lat)
	}
	return maths.UnitVectorFromLatLon(lat, lon), nil
}

func coordsToUnitVectors(coords []geom.Coord) ([]maths.UnitVector3D, error) {
	vertices := make([]maths.UnitVector3D, len(coords))
	for i, c := range coords {
		v, err := coordToUnitVector(c)
		if err != nil {
			return nil, err
		}
		vertices[i] = v
	}
	return vertices, nil
}

func unitVectorToCoord(u maths.UnitVector3D) geom.Coord {
	lat, lon := u.LatLon()
	return geom.Coord{lon, lat}
}

func unitVectorsToCoords(vertices []maths.UnitVector3D, closed bool) []geom.Coord {
	coords := make([]geom.Coord, 0, len(vertices)+1)
	for _, v := range vertices {
		coords = append(coords, unitVectorToCoord(v))
	}
	if closed && len(vertices) != 0 {
		coords = append(coords, unitVectorToCoord(vertices[0]))
	}
	return coords
}

// openRing drops the closing vertex of a ring.
func openRing(vertices []maths.UnitVector3D) []maths.UnitVector3D {
	if n := len(vertices); n > 1 && vertices[0].Equal(vertices[n-1]) {
		return vertices[:n-1]
	}
	return vertices
}

func malformedGeometry(err error) error {
	return errors.New("invalid geometry").
		WithType(ErrTypeMalformedGeometry).
		Wrap(err)
}

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}
