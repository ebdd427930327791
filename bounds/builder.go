package bounds

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/maths"
)

// BoundingSmallCircleBuilder accumulates geometry into the smallest cap around
// a fixed centre that contains all of it. The centre is chosen by the caller;
// the builder only grows the radius.
//
// A builder is not safe for concurrent use. Independent builders can run in
// parallel and be merged with AddBoundingSmallCircle.
type BoundingSmallCircleBuilder struct {
	centre        maths.UnitVector3D
	minDotProduct float64
	empty         bool
}

func NewBoundingSmallCircleBuilder(centre maths.UnitVector3D) *BoundingSmallCircleBuilder {
	return &BoundingSmallCircleBuilder{
		centre:        centre,
		minDotProduct: 1,
		empty:         true,
	}
}

func (b *BoundingSmallCircleBuilder) Centre() maths.UnitVector3D {
	return b.centre
}

// IsEmpty reports whether nothing has been added yet.
func (b *BoundingSmallCircleBuilder) IsEmpty() bool {
	return b.empty
}

func (b *BoundingSmallCircleBuilder) AddPoint(p maths.UnitVector3D) {
	b.update(maths.Dot(p, b.centre))
}

func (b *BoundingSmallCircleBuilder) AddPointOnSphere(p maths.PointOnSphere) {
	b.AddPoint(p.Position())
}

func (b *BoundingSmallCircleBuilder) AddArc(arc maths.GreatCircleArc) {
	b.update(arc.MinDotProduct(b.centre))
}

func (b *BoundingSmallCircleBuilder) AddMultiPoint(mp *maths.MultiPointOnSphere) {
	for _, p := range mp.Points() {
		b.AddPointOnSphere(p)
	}
}

func (b *BoundingSmallCircleBuilder) AddPolyline(pl *maths.PolylineOnSphere) {
	for _, arc := range pl.Arcs() {
		b.AddArc(arc)
	}
}

// AddPolygon adds the arcs of every ring of the polygon.
func (b *BoundingSmallCircleBuilder) AddPolygon(pg *maths.PolygonOnSphere) {
	for _, ring := range pg.Rings() {
		for _, arc := range ring {
			b.AddArc(arc)
		}
	}
}

func (b *BoundingSmallCircleBuilder) AddGeometry(g maths.GeometryOnSphere) {
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

// AddBoundingSmallCircle grows the bound to contain an entire cap, which may
// have a different centre.
func (b *BoundingSmallCircleBuilder) AddBoundingSmallCircle(c BoundingSmallCircle) {
	b.update(farthestDotProduct(b.centre, c))
}

// BoundingSmallCircle returns the accumulated cap with its boundary cosine
// decreased by expandEpsilon, so geometry on the boundary is never reported
// outside because of rounding. It panics when nothing has been added.
func (b *BoundingSmallCircleBuilder) BoundingSmallCircle(expandEpsilon float64) BoundingSmallCircle {
	if b.empty {
		panic(errors.New("bounding small circle builder is empty").
			WithType(maths.ErrTypePreconditionViolation))
	}
	return NewBoundingSmallCircle(b.centre, math.Max(b.minDotProduct-expandEpsilon, -1))
}

func (b *BoundingSmallCircleBuilder) update(d float64) {
	b.empty = false
	if d < b.minDotProduct {
		b.minDotProduct = d
	}
}

// farthestDotProduct returns the dot product with centre of the point of c
// farthest from centre.
func farthestDotProduct(centre maths.UnitVector3D, c BoundingSmallCircle) float64 {
	cosTheta := maths.Dot(centre, c.centre)

	// The angle to c's centre plus c's radius reaches pi.
	if cosTheta+c.cosRadius <= 0 {
		return -1
	}

	sinTheta := maths.SineFromCosine(cosTheta)
	return maths.ClampDotProduct(cosTheta*c.cosRadius - sinTheta*c.sinRadius)
}

// nearestDotProduct returns the dot product with centre of the point of c
// nearest to centre.
func nearestDotProduct(centre maths.UnitVector3D, c BoundingSmallCircle) float64 {
	cosTheta := maths.Dot(centre, c.centre)

	// centre lies inside c.
	if cosTheta >= c.cosRadius {
		return 1
	}

	sinTheta := maths.SineFromCosine(cosTheta)
	return maths.ClampDotProduct(cosTheta*c.cosRadius + sinTheta*c.sinRadius)
}
