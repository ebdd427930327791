// Package htm traverses the hierarchical triangular mesh: the eight spherical
// triangles of an octahedron, recursively split into four children.
package htm

import (
	"github.com/aukilabs/globe/maths"
)

// Triangle is a spherical triangle. Vertices are counter clockwise when seen
// from outside the sphere.
type Triangle struct {
	Vertex0 maths.UnitVector3D
	Vertex1 maths.UnitVector3D
	Vertex2 maths.UnitVector3D
}

func (t Triangle) Vertices() [3]maths.UnitVector3D {
	return [3]maths.UnitVector3D{t.Vertex0, t.Vertex1, t.Vertex2}
}

// Arcs returns the edges v0-v1, v1-v2 and v2-v0.
func (t Triangle) Arcs() []maths.GreatCircleArc {
	return []maths.GreatCircleArc{
		maths.MustGreatCircleArc(t.Vertex0, t.Vertex1),
		maths.MustGreatCircleArc(t.Vertex1, t.Vertex2),
		maths.MustGreatCircleArc(t.Vertex2, t.Vertex0),
	}
}

// Contains reports whether p lies inside the triangle or on its boundary.
func (t Triangle) Contains(p maths.UnitVector3D) bool {
	pv := p.Vector3D()
	return maths.Cross(t.Vertex0, t.Vertex1).Dot(pv) >= 0 &&
		maths.Cross(t.Vertex1, t.Vertex2).Dot(pv) >= 0 &&
		maths.Cross(t.Vertex2, t.Vertex0).Dot(pv) >= 0
}

// Centroid returns the normalized sum of the vertices.
func (t Triangle) Centroid() maths.UnitVector3D {
	c, _ := t.Vertex0.Vector3D().
		Add(t.Vertex1.Vector3D()).
		Add(t.Vertex2.Vector3D()).
		Normalize()
	return c
}

// Children returns the four sub triangles: the three corner triangles then the
// central one. Edge midpoints are the normalized sums of the edge end points.
func (t Triangle) Children() [4]Triangle {
	w0 := midpoint(t.Vertex1, t.Vertex2)
	w1 := midpoint(t.Vertex0, t.Vertex2)
	w2 := midpoint(t.Vertex0, t.Vertex1)

	return [4]Triangle{
		{Vertex0: t.Vertex0, Vertex1: w2, Vertex2: w1},
		{Vertex0: t.Vertex1, Vertex1: w0, Vertex2: w2},
		{Vertex0: t.Vertex2, Vertex1: w1, Vertex2: w0},
		{Vertex0: w0, Vertex1: w1, Vertex2: w2},
	}
}

// Visitor is called for each visited triangle with a caller defined context.
// Implementations recurse by calling VisitChildren.
type Visitor[C any] interface {
	Visit(t Triangle, ctx C)
}

// VisitorFunc adapts a function to a Visitor.
type VisitorFunc[C any] func(t Triangle, ctx C)

func (f VisitorFunc[C]) Visit(t Triangle, ctx C) {
	f(t, ctx)
}

// VisitChildren calls the visitor on each child of t, in Children order.
func VisitChildren[C any](t Triangle, visitor Visitor[C], ctx C) {
	for _, child := range t.Children() {
		visitor.Visit(child, ctx)
	}
}

func midpoint(a, b maths.UnitVector3D) maths.UnitVector3D {
	// Triangle vertices are never antipodal so the sum never vanishes.
	m, _ := a.Vector3D().Add(b.Vector3D()).Normalize()
	return m
}
