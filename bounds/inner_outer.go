package bounds

import (
	"github.com/aukilabs/globe/maths"
)

// Added to the containment threshold of IsInsideInnerBoundingSmallCircle so
// that rounding never reports a cap as inside the inner bound when it touches
// the annulus.
const insideInnerTolerance = 1e-9

// InnerOuterResult is the classification of a geometry against an
// InnerOuterBoundingSmallCircle.
type InnerOuterResult int

const (
	// Entirely outside the outer cap.
	OutsideOuterBounds InnerOuterResult = iota

	// Crossing the outer or the inner boundary.
	IntersectingInnerOuterBounds

	// Entirely within the annulus between the inner and outer boundaries.
	InsideInnerOuterBounds

	// Entirely inside the inner cap, the hole of the annulus.
	InsideInnerBounds
)

func (r InnerOuterResult) String() string {
	switch r {
	case OutsideOuterBounds:
		return "outside_outer"

	case IntersectingInnerOuterBounds:
		return "intersecting"

	case InsideInnerOuterBounds:
		return "inside_annulus"

	case InsideInnerBounds:
		return "inside_inner"

	default:
		return "unknown"
	}
}

// InnerOuterBoundingSmallCircle is an annulus made of two concentric caps.
// Bounded points satisfy cosOuterRadius <= dot(p, centre) <= cosInnerRadius.
// The inner cosine is the larger one since the inner cap is the smaller cap.
type InnerOuterBoundingSmallCircle struct {
	outer          BoundingSmallCircle
	cosInnerRadius float64
	sinInnerRadius float64
}

// NewInnerOuterBoundingSmallCircle returns the annulus around centre. The
// inner cosine is raised to the outer cosine when smaller.
func NewInnerOuterBoundingSmallCircle(centre maths.UnitVector3D, cosOuterRadius, cosInnerRadius float64) InnerOuterBoundingSmallCircle {
	outer := NewBoundingSmallCircle(centre, cosOuterRadius)

	cosInnerRadius = maths.ClampDotProduct(cosInnerRadius)
	if cosInnerRadius < outer.cosRadius {
		cosInnerRadius = outer.cosRadius
	}

	return InnerOuterBoundingSmallCircle{
		outer:          outer,
		cosInnerRadius: cosInnerRadius,
		sinInnerRadius: maths.SineFromCosine(cosInnerRadius),
	}
}

func (b InnerOuterBoundingSmallCircle) Centre() maths.UnitVector3D {
	return b.outer.centre
}

// OuterBoundingSmallCircle returns the outer cap.
func (b InnerOuterBoundingSmallCircle) OuterBoundingSmallCircle() BoundingSmallCircle {
	return b.outer
}

// InnerBoundingSmallCircle returns the inner cap, the hole of the annulus.
func (b InnerOuterBoundingSmallCircle) InnerBoundingSmallCircle() BoundingSmallCircle {
	return BoundingSmallCircle{
		centre:    b.outer.centre,
		cosRadius: b.cosInnerRadius,
		sinRadius: b.sinInnerRadius,
	}
}

func (b InnerOuterBoundingSmallCircle) CosOuterRadius() float64 { return b.outer.cosRadius }
func (b InnerOuterBoundingSmallCircle) SinOuterRadius() float64 { return b.outer.sinRadius }
func (b InnerOuterBoundingSmallCircle) CosInnerRadius() float64 { return b.cosInnerRadius }
func (b InnerOuterBoundingSmallCircle) SinInnerRadius() float64 { return b.sinInnerRadius }

// SetCentre moves both caps.
func (b *InnerOuterBoundingSmallCircle) SetCentre(centre maths.UnitVector3D) {
	b.outer.SetCentre(centre)
}

func (b InnerOuterBoundingSmallCircle) Rotate(r maths.FiniteRotation) InnerOuterBoundingSmallCircle {
	b.outer = b.outer.Rotate(r)
	return b
}

// Test classifies a point. Points on either boundary are in the annulus.
func (b InnerOuterBoundingSmallCircle) Test(p maths.UnitVector3D) InnerOuterResult {
	d := maths.Dot(p, b.outer.centre)
	if d < b.outer.cosRadius {
		return OutsideOuterBounds
	}
	if d > b.cosInnerRadius {
		return InsideInnerBounds
	}
	return InsideInnerOuterBounds
}

func (b InnerOuterBoundingSmallCircle) TestPoint(p maths.PointOnSphere) InnerOuterResult {
	return b.Test(p.Position())
}

func (b InnerOuterBoundingSmallCircle) TestArc(arc maths.GreatCircleArc) InnerOuterResult {
	min, max := arc.MinMaxDotProduct(b.outer.centre)
	return b.classify(min, max)
}

// TestArcs classifies a connected sequence of arcs. Once the first arc is
// classified only the extrema that could change the classification are
// computed for the remaining arcs.
func (b InnerOuterBoundingSmallCircle) TestArcs(arcs []maths.GreatCircleArc) InnerOuterResult {
	if len(arcs) == 0 {
		return OutsideOuterBounds
	}

	centre := b.outer.centre
	res := b.TestArc(arcs[0])
	switch res {
	case OutsideOuterBounds:
		for _, arc := range arcs[1:] {
			if arc.MaxDotProduct(centre) >= b.outer.cosRadius {
				return IntersectingInnerOuterBounds
			}
		}

	case InsideInnerBounds:
		for _, arc := range arcs[1:] {
			if arc.MinDotProduct(centre) <= b.cosInnerRadius {
				return IntersectingInnerOuterBounds
			}
		}

	case InsideInnerOuterBounds:
		for _, arc := range arcs[1:] {
			min, max := arc.MinMaxDotProduct(centre)
			if min < b.outer.cosRadius || max > b.cosInnerRadius {
				return IntersectingInnerOuterBounds
			}
		}
	}
	return res
}

func (b InnerOuterBoundingSmallCircle) TestMultiPoint(mp *maths.MultiPointOnSphere) InnerOuterResult {
	points := mp.Points()
	res := b.TestPoint(points[0])
	for _, p := range points[1:] {
		if b.TestPoint(p) != res {
			return IntersectingInnerOuterBounds
		}
	}
	return res
}

func (b InnerOuterBoundingSmallCircle) TestPolyline(pl *maths.PolylineOnSphere) InnerOuterResult {
	return b.TestArcs(pl.Arcs())
}

// TestPolygon classifies the boundary of a polygon, all rings included.
func (b InnerOuterBoundingSmallCircle) TestPolygon(pg *maths.PolygonOnSphere) InnerOuterResult {
	rings := pg.Rings()
	res := b.TestArcs(rings[0])
	if res == IntersectingInnerOuterBounds {
		return res
	}

	for _, ring := range rings[1:] {
		if b.TestArcs(ring) != res {
			return IntersectingInnerOuterBounds
		}
	}
	return res
}

func (b InnerOuterBoundingSmallCircle) TestGeometry(g maths.GeometryOnSphere) InnerOuterResult {
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
		return OutsideOuterBounds
	}
}

func (b InnerOuterBoundingSmallCircle) classify(min, max float64) InnerOuterResult {
	switch {
	case max < b.outer.cosRadius:
		return OutsideOuterBounds

	case min > b.cosInnerRadius:
		return InsideInnerBounds

	case min >= b.outer.cosRadius && max <= b.cosInnerRadius:
		return InsideInnerOuterBounds

	default:
		return IntersectingInnerOuterBounds
	}
}

// IntersectInnerOuter reports whether a cap overlaps the annulus: it is
// neither entirely outside the outer cap nor entirely inside the inner cap.
func IntersectInnerOuter(io InnerOuterBoundingSmallCircle, c BoundingSmallCircle) bool {
	return Intersect(io.outer, c) && !IsInsideInnerBoundingSmallCircle(io, c)
}

// IsInsideInnerBoundingSmallCircle reports whether the cap c lies entirely
// inside the inner cap of io.
func IsInsideInnerBoundingSmallCircle(io InnerOuterBoundingSmallCircle, c BoundingSmallCircle) bool {
	// c is larger than the inner cap.
	if c.cosRadius < io.cosInnerRadius {
		return false
	}

	// The angle between centres plus the radius of c must not exceed the
	// inner radius: cos(ri - rc) = cos(ri)cos(rc) + sin(ri)sin(rc).
	threshold := io.cosInnerRadius*c.cosRadius + io.sinInnerRadius*c.sinRadius
	return maths.Dot(io.outer.centre, c.centre) >= threshold+insideInnerTolerance
}
