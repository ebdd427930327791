package maths

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/s2"
)

// GeometryType identifies the concrete type behind a GeometryOnSphere.
type GeometryType string

const (
	GeometryTypePoint      GeometryType = "point"
	GeometryTypeMultiPoint GeometryType = "multipoint"
	GeometryTypePolyline   GeometryType = "polyline"
	GeometryTypePolygon    GeometryType = "polygon"
)

// GeometryOnSphere is implemented by PointOnSphere, *MultiPointOnSphere,
// *PolylineOnSphere and *PolygonOnSphere.
type GeometryOnSphere interface {
	// Returns the geometry type.
	Type() GeometryType

	// Returns the normalized sum of the geometry's vertices, or its first
	// vertex when the sum vanishes.
	Centroid() UnitVector3D
}

// PointOnSphere is a single point geometry.
type PointOnSphere struct {
	position UnitVector3D
}

func NewPointOnSphere(position UnitVector3D) PointOnSphere {
	return PointOnSphere{position: position}
}

func (p PointOnSphere) Position() UnitVector3D { return p.position }
func (p PointOnSphere) Type() GeometryType     { return GeometryTypePoint }
func (p PointOnSphere) Centroid() UnitVector3D { return p.position }

// MultiPointOnSphere is an unordered, non-empty set of points.
type MultiPointOnSphere struct {
	points []PointOnSphere
}

func NewMultiPointOnSphere(points []UnitVector3D) (*MultiPointOnSphere, error) {
	if len(points) == 0 {
		return nil, errors.New("multipoint requires at least one point").
			WithType(ErrTypeInvalidGeometry)
	}

	mp := &MultiPointOnSphere{points: make([]PointOnSphere, len(points))}
	for i, p := range points {
		mp.points[i] = NewPointOnSphere(p)
	}
	return mp, nil
}

func (mp *MultiPointOnSphere) Points() []PointOnSphere { return mp.points }
func (mp *MultiPointOnSphere) Type() GeometryType      { return GeometryTypeMultiPoint }

func (mp *MultiPointOnSphere) Centroid() UnitVector3D {
	vertices := make([]UnitVector3D, len(mp.points))
	for i, p := range mp.points {
		vertices[i] = p.position
	}
	return centroid(vertices)
}

// PolylineOnSphere is a connected sequence of great circle arcs.
type PolylineOnSphere struct {
	vertices []UnitVector3D
	arcs     []GreatCircleArc
}

// NewPolylineOnSphere returns the polyline joining the given vertices. A single
// vertex yields a degenerate polyline made of one zero length arc.
func NewPolylineOnSphere(vertices []UnitVector3D) (*PolylineOnSphere, error) {
	if len(vertices) == 0 {
		return nil, errors.New("polyline requires at least one vertex").
			WithType(ErrTypeInvalidGeometry)
	}

	if len(vertices) == 1 {
		return &PolylineOnSphere{
			vertices: vertices,
			arcs:     []GreatCircleArc{{start: vertices[0], end: vertices[0], zeroLength: true}},
		}, nil
	}

	arcs, err := arcsFromVertices(vertices, false)
	if err != nil {
		return nil, err
	}

	return &PolylineOnSphere{
		vertices: vertices,
		arcs:     arcs,
	}, nil
}

func (pl *PolylineOnSphere) Vertices() []UnitVector3D { return pl.vertices }
func (pl *PolylineOnSphere) Arcs() []GreatCircleArc   { return pl.arcs }
func (pl *PolylineOnSphere) Type() GeometryType       { return GeometryTypePolyline }
func (pl *PolylineOnSphere) Centroid() UnitVector3D   { return centroid(pl.vertices) }

// PolygonOnSphere is an exterior ring with optional interior rings (holes).
// Each ring is implicitly closed by an arc from its last vertex back to its
// first. The interior of a ring is the smaller of the two regions it bounds.
type PolygonOnSphere struct {
	exterior      ring
	interiorRings []ring
}

type ring struct {
	vertices []UnitVector3D
	arcs     []GreatCircleArc
	loop     *s2.Loop
}

// NewPolygonOnSphere returns a polygon. Each ring needs at least three
// vertices and must not repeat its first vertex at the end.
func NewPolygonOnSphere(exterior []UnitVector3D, interiors ...[]UnitVector3D) (*PolygonOnSphere, error) {
	ext, err := newRing(exterior)
	if err != nil {
		return nil, errors.New("invalid exterior ring").
			WithType(ErrTypeInvalidGeometry).
			Wrap(err)
	}

	pg := &PolygonOnSphere{
		exterior:      ext,
		interiorRings: make([]ring, 0, len(interiors)),
	}

	for i, vertices := range interiors {
		r, err := newRing(vertices)
		if err != nil {
			return nil, errors.New("invalid interior ring").
				WithType(ErrTypeInvalidGeometry).
				WithTag("index", i).
				Wrap(err)
		}
		pg.interiorRings = append(pg.interiorRings, r)
	}

	return pg, nil
}

func newRing(vertices []UnitVector3D) (ring, error) {
	if len(vertices) < 3 {
		return ring{}, errors.New("polygon ring requires at least three vertices").
			WithType(ErrTypeInvalidGeometry).
			WithTag("vertex_count", len(vertices))
	}

	arcs, err := arcsFromVertices(vertices, true)
	if err != nil {
		return ring{}, err
	}

	points := make([]s2.Point, len(vertices))
	for i, v := range vertices {
		points[i] = v.S2Point()
	}
	loop := s2.LoopFromPoints(points)
	loop.Normalize()

	return ring{
		vertices: vertices,
		arcs:     arcs,
		loop:     loop,
	}, nil
}

func (pg *PolygonOnSphere) ExteriorRingVertices() []UnitVector3D { return pg.exterior.vertices }
func (pg *PolygonOnSphere) ExteriorRingArcs() []GreatCircleArc   { return pg.exterior.arcs }
func (pg *PolygonOnSphere) NumberOfInteriorRings() int           { return len(pg.interiorRings) }

func (pg *PolygonOnSphere) InteriorRingVertices(i int) []UnitVector3D {
	return pg.interiorRings[i].vertices
}

func (pg *PolygonOnSphere) InteriorRingArcs(i int) []GreatCircleArc {
	return pg.interiorRings[i].arcs
}

// Rings returns the arcs of the exterior ring followed by those of each
// interior ring. Each ring is a connected arc sequence.
func (pg *PolygonOnSphere) Rings() [][]GreatCircleArc {
	rings := make([][]GreatCircleArc, 0, 1+len(pg.interiorRings))
	rings = append(rings, pg.exterior.arcs)
	for _, r := range pg.interiorRings {
		rings = append(rings, r.arcs)
	}
	return rings
}

// IsPointInPolygon reports whether p lies inside the exterior ring and outside
// every interior ring.
func (pg *PolygonOnSphere) IsPointInPolygon(p UnitVector3D) bool {
	sp := p.S2Point()
	if !pg.exterior.loop.ContainsPoint(sp) {
		return false
	}

	for _, r := range pg.interiorRings {
		if r.loop.ContainsPoint(sp) {
			return false
		}
	}
	return true
}

func (pg *PolygonOnSphere) Type() GeometryType     { return GeometryTypePolygon }
func (pg *PolygonOnSphere) Centroid() UnitVector3D { return centroid(pg.exterior.vertices) }

func arcsFromVertices(vertices []UnitVector3D, closed bool) ([]GreatCircleArc, error) {
	n := len(vertices) - 1
	if closed {
		n = len(vertices)
	}

	arcs := make([]GreatCircleArc, n)
	for i := 0; i < n; i++ {
		arc, err := NewGreatCircleArc(vertices[i], vertices[(i+1)%len(vertices)])
		if err != nil {
			return nil, errors.New("invalid segment").
				WithType(ErrTypeInvalidGeometry).
				WithTag("index", i).
				Wrap(err)
		}
		arcs[i] = arc
	}
	return arcs, nil
}

func centroid(vertices []UnitVector3D) UnitVector3D {
	var sum Vector3D
	for _, v := range vertices {
		sum = sum.Add(v.Vector3D())
	}

	c, err := sum.Normalize()
	if err != nil || sum.MagnitudeSquared() < parallelCrossProductThreshold {
		return vertices[0]
	}
	return c
}
