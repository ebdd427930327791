package bounds

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/maths"
)

// InnerOuterBoundingSmallCircleBuilder accumulates geometry into the tightest
// annulus around a fixed centre: the outer cap contains all the geometry and
// the inner cap contains none of it.
type InnerOuterBoundingSmallCircleBuilder struct {
	outer         *BoundingSmallCircleBuilder
	maxDotProduct float64
}

func NewInnerOuterBoundingSmallCircleBuilder(centre maths.UnitVector3D) *InnerOuterBoundingSmallCircleBuilder {
	return &InnerOuterBoundingSmallCircleBuilder{
		outer:         NewBoundingSmallCircleBuilder(centre),
		maxDotProduct: -1,
	}
}

func (b *InnerOuterBoundingSmallCircleBuilder) Centre() maths.UnitVector3D {
	return b.outer.centre
}

func (b *InnerOuterBoundingSmallCircleBuilder) IsEmpty() bool {
	return b.outer.empty
}

func (b *InnerOuterBoundingSmallCircleBuilder) AddPoint(p maths.UnitVector3D) {
	d := maths.Dot(p, b.outer.centre)
	b.update(d, d)
}

func (b *InnerOuterBoundingSmallCircleBuilder) AddPointOnSphere(p maths.PointOnSphere) {
	b.AddPoint(p.Position())
}

func (b *InnerOuterBoundingSmallCircleBuilder) AddArc(arc maths.GreatCircleArc) {
	b.update(arc.MinMaxDotProduct(b.outer.centre))
}

func (b *InnerOuterBoundingSmallCircleBuilder) AddMultiPoint(mp *maths.MultiPointOnSphere) {
	for _, p := range mp.Points() {
		b.AddPointOnSphere(p)
	}
}

func (b *InnerOuterBoundingSmallCircleBuilder) AddPolyline(pl *maths.PolylineOnSphere) {
	for _, arc := range pl.Arcs() {
		b.AddArc(arc)
	}
}

// AddPolygon adds the arcs of every ring. Only the boundary shapes the
// annulus, so a polygon surrounding the centre still leaves an inner hole.
func (b *InnerOuterBoundingSmallCircleBuilder) AddPolygon(pg *maths.PolygonOnSphere) {
	for _, ring := range pg.Rings() {
		for _, arc := range ring {
			b.AddArc(arc)
		}
	}
}

func (b *InnerOuterBoundingSmallCircleBuilder) AddGeometry(g maths.GeometryOnSphere) {
	switch g := g.(type) {
	case maths.PointOnSphere:
		b.AddPointOnSphere(g)

	case *maths.MultiPointOnSphere:
		b.AddMultiPoint(g)

	case *maths.PolylineOnSphere:
		b.AddPolyline(g)

	case *maths.PolygonOnSphere:
		b.AddPolygon(g)
	}
}

// AddBoundingSmallCircle adds an entire cap: its farthest point grows the
// outer bound and its nearest point shrinks the inner bound.
func (b *InnerOuterBoundingSmallCircleBuilder) AddBoundingSmallCircle(c BoundingSmallCircle) {
	b.update(
		farthestDotProduct(b.outer.centre, c),
		nearestDotProduct(b.outer.centre, c),
	)
}

// AddInnerOuterBoundingSmallCircle adds an entire annulus. Unlike adding its
// outer cap, the hole of io is kept out of the inner bound when the builder
// centre lies inside it.
func (b *InnerOuterBoundingSmallCircleBuilder) AddInnerOuterBoundingSmallCircle(io InnerOuterBoundingSmallCircle) {
	b.update(
		farthestDotProduct(b.outer.centre, io.outer),
		nearestAnnulusDotProduct(b.outer.centre, io),
	)
}

// InnerOuterBoundingSmallCircle returns the accumulated annulus. The outer
// cosine is decreased by outerEpsilon and the inner cosine increased by
// innerEpsilon, widening the annulus on both sides. It panics when nothing has
// been added.
func (b *InnerOuterBoundingSmallCircleBuilder) InnerOuterBoundingSmallCircle(innerEpsilon, outerEpsilon float64) InnerOuterBoundingSmallCircle {
	if b.outer.empty {
		panic(errors.New("inner outer bounding small circle builder is empty").
			WithType(maths.ErrTypePreconditionViolation))
	}

	return NewInnerOuterBoundingSmallCircle(
		b.outer.centre,
		math.Max(b.outer.minDotProduct-outerEpsilon, -1),
		math.Min(b.maxDotProduct+innerEpsilon, 1),
	)
}

// OuterBoundingSmallCircle returns the outer cap alone, as a
// BoundingSmallCircleBuilder would.
func (b *InnerOuterBoundingSmallCircleBuilder) OuterBoundingSmallCircle(expandEpsilon float64) BoundingSmallCircle {
	return b.outer.BoundingSmallCircle(expandEpsilon)
}

// nearestAnnulusDotProduct returns the dot product with centre of the point of
// the annulus io nearest to centre.
func nearestAnnulusDotProduct(centre maths.UnitVector3D, io InnerOuterBoundingSmallCircle) float64 {
	cosTheta := maths.Dot(centre, io.outer.centre)
	if cosTheta <= io.cosInnerRadius {
		return nearestDotProduct(centre, io.outer)
	}

	// centre is in the hole: the nearest point is on the inner circle, at
	// angle innerRadius - theta.
	sinTheta := maths.SineFromCosine(cosTheta)
	return maths.ClampDotProduct(cosTheta*io.cosInnerRadius + sinTheta*io.sinInnerRadius)
}

func (b *InnerOuterBoundingSmallCircleBuilder) update(min, max float64) {
	b.outer.update(min)
	if max > b.maxDotProduct {
		b.maxDotProduct = max
	}
}
