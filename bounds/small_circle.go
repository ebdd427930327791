package bounds

import (
	"math"

	"github.com/aukilabs/globe/maths"
)

// DefaultExpandEpsilon is the dot product decrease applied by builders when no
// other epsilon is given. On an Earth sized sphere it expands a bound by
// roughly 9 km.
const DefaultExpandEpsilon = 1e-6

// Result is the classification of a geometry against a BoundingSmallCircle.
type Result int

const (
	OutsideBounds Result = iota
	IntersectingBounds
	InsideBounds
)

func (r Result) String() string {
	switch r {
	case OutsideBounds:
		return "outside"

	case IntersectingBounds:
		return "intersecting"

	case InsideBounds:
		return "inside"

	default:
		return "unknown"
	}
}

// BoundingSmallCircle is a closed spherical cap: the points whose dot product
// with the centre is at least the boundary cosine.
//
// Values are immutable apart from SetCentre and can be read concurrently.
type BoundingSmallCircle struct {
	centre    maths.UnitVector3D
	cosRadius float64
	sinRadius float64
}

// NewBoundingSmallCircle returns the cap around centre whose boundary has the
// given cosine. The cosine is clamped to [-1, 1].
func NewBoundingSmallCircle(centre maths.UnitVector3D, cosRadius float64) BoundingSmallCircle {
	cosRadius = maths.ClampDotProduct(cosRadius)
	return BoundingSmallCircle{
		centre:    centre,
		cosRadius: cosRadius,
		sinRadius: maths.SineFromCosine(cosRadius),
	}
}

// NewBoundingSmallCircleFromAngle returns the cap around centre with the given
// angular radius, in radians.
func NewBoundingSmallCircleFromAngle(centre maths.UnitVector3D, radius float64) BoundingSmallCircle {
	return NewBoundingSmallCircle(centre, math.Cos(radius))
}

func (b BoundingSmallCircle) Centre() maths.UnitVector3D {
	return b.centre
}

// SmallCircleBoundaryCosine returns the minimum dot product with the centre of
// any bounded point.
func (b BoundingSmallCircle) SmallCircleBoundaryCosine() float64 {
	return b.cosRadius
}

// SmallCircleBoundarySine returns the sine of the angular radius. It is 0 when
// rounding pushes the squared cosine to 1 or more.
func (b BoundingSmallCircle) SmallCircleBoundarySine() float64 {
	return b.sinRadius
}

// AngularRadius returns the angular radius in radians.
func (b BoundingSmallCircle) AngularRadius() float64 {
	return math.Acos(b.cosRadius)
}

// SetCentre moves the cap without changing its radius.
func (b *BoundingSmallCircle) SetCentre(centre maths.UnitVector3D) {
	b.centre = centre
}

// Rotate returns the cap with its centre rotated.
func (b BoundingSmallCircle) Rotate(r maths.FiniteRotation) BoundingSmallCircle {
	b.centre = r.RotateVector(b.centre)
	return b
}

// Test classifies a point. A point on the boundary is inside.
func (b BoundingSmallCircle) Test(p maths.UnitVector3D) Result {
	if maths.Dot(p, b.centre) >= b.cosRadius {
		return InsideBounds
	}
	return OutsideBounds
}

func (b BoundingSmallCircle) TestPoint(p maths.PointOnSphere) Result {
	return b.Test(p.Position())
}

// TestArc classifies an arc using the extrema of its dot product with the
// centre rather than its end points only.
func (b BoundingSmallCircle) TestArc(arc maths.GreatCircleArc) Result {
	min, max := arc.MinMaxDotProduct(b.centre)
	return b.classify(min, max)
}

// TestArcs classifies a connected sequence of arcs, each arc starting where
// the previous one ends.
func (b BoundingSmallCircle) TestArcs(arcs []maths.GreatCircleArc) Result {
	if len(arcs) == 0 {
		return OutsideBounds
	}

	res := b.TestArc(arcs[0])
	switch res {
	case OutsideBounds:
		// The chain stays outside unless an arc reaches the boundary.
		for _, arc := range arcs[1:] {
			if arc.MaxDotProduct(b.centre) >= b.cosRadius {
				return IntersectingBounds
			}
		}

	case InsideBounds:
		for _, arc := range arcs[1:] {
			if arc.MinDotProduct(b.centre) <= b.cosRadius {
				return IntersectingBounds
			}
		}
	}
	return res
}

// TestMultiPoint returns inside or outside when all points agree and
// intersecting otherwise.
func (b BoundingSmallCircle) TestMultiPoint(mp *maths.MultiPointOnSphere) Result {
	points := mp.Points()
	res := b.TestPoint(points[0])
	for _, p := range points[1:] {
		if b.TestPoint(p) != res {
			return IntersectingBounds
		}
	}
	return res
}

func (b BoundingSmallCircle) TestPolyline(pl *maths.PolylineOnSphere) Result {
	return b.TestArcs(pl.Arcs())
}

// TestPolygon classifies the boundary of a polygon, exterior and interior
// rings included. The polygon interior is ignored; see TestFilledPolygon.
func (b BoundingSmallCircle) TestPolygon(pg *maths.PolygonOnSphere) Result {
	rings := pg.Rings()
	res := b.TestArcs(rings[0])
	if res == IntersectingBounds {
		return res
	}

	for _, ring := range rings[1:] {
		if b.TestArcs(ring) != res {
			return IntersectingBounds
		}
	}
	return res
}

// TestFilledPolygon is like TestPolygon but treats the polygon as a filled
// region: a boundary entirely outside the cap still intersects it when the
// polygon surrounds the cap centre.
func (b BoundingSmallCircle) TestFilledPolygon(pg *maths.PolygonOnSphere) Result {
	res := b.TestPolygon(pg)
	if res == OutsideBounds && pg.IsPointInPolygon(b.centre) {
		return IntersectingBounds
	}
	return res
}

// TestGeometry dispatches on the geometry type. Polygons are tested by
// boundary.
func (b BoundingSmallCircle) TestGeometry(g maths.GeometryOnSphere) Result {
	switch g := g.(type) {
	case maths.PointOnSphere:
		return b.TestPoint(g)

	case *maths.MultiPointOnSphere:
		return b.TestMultiPoint(g)

	case *maths.PolylineOnSphere:
		return b.TestPolyline(g)

	case *maths.PolygonOnSphere:
		return b.TestPolygon(g)

	default:
		return OutsideBounds
	}
}

func (b BoundingSmallCircle) classify(min, max float64) Result {
	if max < b.cosRadius {
		return OutsideBounds
	}
	if min > b.cosRadius {
		return InsideBounds
	}
	return IntersectingBounds
}

// Intersect reports whether two caps share at least one point: the angle
// between their centres is at most the sum of their angular radii.
func Intersect(a, b BoundingSmallCircle) bool {
	// The radii sum to at least pi.
	if a.cosRadius+b.cosRadius <= 0 {
		return true
	}

	// cos(ra + rb) = cos(ra)cos(rb) - sin(ra)sin(rb)
	return maths.Dot(a.centre, b.centre) >= a.cosRadius*b.cosRadius-a.sinRadius*b.sinRadius
}
