package models

import (
	"sync"
	"time"

	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/maths"
)

const (
	// The maximum number of points or arcs bounded by a single builder when
	// bounds are built in parallel.
	maxPartSize = 256
)

// A region is a named geometry with the bounds used to test other geometries
// against it. Regions are never modified once stored.
type Region struct {
	ID        uint32
	UUID      string
	Name      string
	Geometry  maths.GeometryOnSphere
	Centre    maths.UnitVector3D
	Bound     bounds.BoundingSmallCircle
	CreatedAt time.Time

	// The annulus containing the boundary of the region. Only set for
	// polylines and polygons.
	InnerOuterBound *bounds.InnerOuterBoundingSmallCircle
}

// Kind returns the type of the region geometry.
func (r *Region) Kind() maths.GeometryType {
	return r.Geometry.Type()
}

// RegionTestResult is the classification of a geometry against a region.
type RegionTestResult struct {
	Bound      bounds.Result
	InnerOuter *bounds.InnerOuterResult

	// Set when the tested geometry is a polygon, considering its interior.
	FilledPolygon *bounds.Result
}

// Test classifies g against the region bounds.
func (r *Region) Test(g maths.GeometryOnSphere) RegionTestResult {
	res := RegionTestResult{
		Bound: r.Bound.TestGeometry(g),
	}

	if r.InnerOuterBound != nil {
		io := r.InnerOuterBound.TestGeometry(g)
		res.InnerOuter = &io
	}

	if pg, ok := g.(*maths.PolygonOnSphere); ok {
		filled := r.Bound.TestFilledPolygon(pg)
		res.FilledPolygon = &filled
	}

	instrumentBoundTest(r.Kind(), g.Type(), res.Bound)
	return res
}

// Intersects reports whether the bounds of two regions overlap.
func (r *Region) Intersects(other *Region) bool {
	return bounds.Intersect(r.Bound, other.Bound)
}

// Coverage returns the coverage mesh of the region bound at the given depth.
func (r *Region) Coverage(depth int) (*coverage.Mesh, error) {
	start := time.Now()

	mesh, err := coverage.Generate(r.Bound, depth)
	if err != nil {
		return nil, err
	}

	instrumentCoverage(depth, mesh.Len(), time.Since(start))
	return mesh, nil
}

// rotated returns a copy of the region rotated by rot. The bounds are carried
// along with the geometry.
func (r *Region) rotated(rot maths.FiniteRotation) *Region {
	rotated := *r
	rotated.Geometry = rot.RotateGeometry(r.Geometry)
	rotated.Centre = rot.RotateVector(r.Centre)
	rotated.Bound = r.Bound.Rotate(rot)

	if r.InnerOuterBound != nil {
		io := r.InnerOuterBound.Rotate(rot)
		rotated.InnerOuterBound = &io
	}
	return &rotated
}

// BoundsOptions configures how region bounds are built.
type BoundsOptions struct {
	// The epsilon the outer bounds are expanded by.
	ExpandEpsilon float64

	// The epsilon the inner bounds are shrunk by.
	InnerEpsilon float64

	// Build the bounds of the geometry parts in parallel.
	Parallel bool
}

// buildBounds returns the bounds of g around its centroid. Parallel builds
// bound each part of g with its own builder and merge the results.
func buildBounds(g maths.GeometryOnSphere, opts BoundsOptions) (maths.UnitVector3D, bounds.BoundingSmallCircle, *bounds.InnerOuterBoundingSmallCircle) {
	centre := g.Centroid()
	withInnerOuter := g.Type() == maths.GeometryTypePolyline || g.Type() == maths.GeometryTypePolygon

	parts := splitParts(g)
	if !opts.Parallel || len(parts) == 1 {
		outer := bounds.NewBoundingSmallCircleBuilder(centre)
		outer.AddGeometry(g)
		bound := outer.BoundingSmallCircle(opts.ExpandEpsilon)
		if !withInnerOuter {
			return centre, bound, nil
		}

		innerOuter := bounds.NewInnerOuterBoundingSmallCircleBuilder(centre)
		innerOuter.AddGeometry(g)
		io := innerOuter.InnerOuterBoundingSmallCircle(opts.InnerEpsilon, opts.ExpandEpsilon)
		return centre, bound, &io
	}

	partBounds := make([]bounds.BoundingSmallCircle, len(parts))
	partInnerOuters := make([]bounds.InnerOuterBoundingSmallCircle, len(parts))

	var wg sync.WaitGroup
	for i, p := range parts {
		wg.Add(1)
		go func(i int, p geometryPart) {
			defer wg.Done()

			outer := bounds.NewBoundingSmallCircleBuilder(p.centre())
			p.addTo(outer)
			partBounds[i] = outer.BoundingSmallCircle(opts.ExpandEpsilon)

			if withInnerOuter {
				innerOuter := bounds.NewInnerOuterBoundingSmallCircleBuilder(centre)
				p.addTo(innerOuter)
				partInnerOuters[i] = innerOuter.InnerOuterBoundingSmallCircle(opts.InnerEpsilon, opts.ExpandEpsilon)
			}
		}(i, p)
	}
	wg.Wait()

	outer := bounds.NewBoundingSmallCircleBuilder(centre)
	for _, b := range partBounds {
		outer.AddBoundingSmallCircle(b)
	}
	bound := outer.BoundingSmallCircle(0)
	if !withInnerOuter {
		return centre, bound, nil
	}

	innerOuter := bounds.NewInnerOuterBoundingSmallCircleBuilder(centre)
	for _, io := range partInnerOuters {
		innerOuter.AddInnerOuterBoundingSmallCircle(io)
	}
	io := innerOuter.InnerOuterBoundingSmallCircle(0, 0)
	return centre, bound, &io
}

type partBuilder interface {
	AddPoint(maths.UnitVector3D)
	AddArc(maths.GreatCircleArc)
}

// geometryPart is a subset of the points and arcs of a geometry that can be
// bounded on its own.
type geometryPart struct {
	points []maths.UnitVector3D
	arcs   []maths.GreatCircleArc
}

func (p geometryPart) addTo(b partBuilder) {
	for _, pt := range p.points {
		b.AddPoint(pt)
	}
	for _, arc := range p.arcs {
		b.AddArc(arc)
	}
}

func (p geometryPart) centre() maths.UnitVector3D {
	var sum maths.Vector3D
	for _, pt := range p.points {
		sum = sum.Add(pt.Vector3D())
	}
	for _, arc := range p.arcs {
		sum = sum.Add(arc.Start().Vector3D()).Add(arc.End().Vector3D())
	}

	c, err := sum.Normalize()
	if err != nil {
		if len(p.points) != 0 {
			return p.points[0]
		}
		return p.arcs[0].Start()
	}
	return c
}

// splitParts splits g into parts: one per polygon ring, chunks of at most
// maxPartSize points or arcs otherwise.
func splitParts(g maths.GeometryOnSphere) []geometryPart {
	switch g := g.(type) {
	case maths.PointOnSphere:
		return []geometryPart{{points: []maths.UnitVector3D{g.Position()}}}

	case *maths.MultiPointOnSphere:
		points := make([]maths.UnitVector3D, 0, len(g.Points()))
		for _, p := range g.Points() {
			points = append(points, p.Position())
		}

		var parts []geometryPart
		for len(points) > maxPartSize {
			parts = append(parts, geometryPart{points: points[:maxPartSize]})
			points = points[maxPartSize:]
		}
		return append(parts, geometryPart{points: points})

	case *maths.PolylineOnSphere:
		arcs := g.Arcs()

		var parts []geometryPart
		for len(arcs) > maxPartSize {
			parts = append(parts, geometryPart{arcs: arcs[:maxPartSize]})
			arcs = arcs[maxPartSize:]
		}
		return append(parts, geometryPart{arcs: arcs})

	case *maths.PolygonOnSphere:
		rings := g.Rings()
		parts := make([]geometryPart, 0, len(rings))
		for _, ring := range rings {
			parts = append(parts, geometryPart{arcs: ring})
		}
		return parts

	default:
		return nil
	}
}
