package htm

import (
	"github.com/aukilabs/globe/maths"
)

// NumRootTriangles is the number of octahedron faces the mesh starts from.
const NumRootTriangles = 8

// Traversal owns the six octahedron vertices and the eight root triangles built
// from them.
type Traversal struct {
	vertices [6]maths.UnitVector3D
	roots    [NumRootTriangles]Triangle
}

// NewTraversal returns the traversal seeded by the octahedron whose vertices
// are the positive and negative axes.
func NewTraversal() *Traversal {
	v := [6]maths.UnitVector3D{
		maths.ZAxis,
		maths.XAxis,
		maths.YAxis,
		maths.XAxis.Negate(),
		maths.YAxis.Negate(),
		maths.ZAxis.Negate(),
	}

	return &Traversal{
		vertices: v,
		roots: [NumRootTriangles]Triangle{
			// Southern hemisphere.
			{Vertex0: v[1], Vertex1: v[5], Vertex2: v[2]},
			{Vertex0: v[2], Vertex1: v[5], Vertex2: v[3]},
			{Vertex0: v[3], Vertex1: v[5], Vertex2: v[4]},
			{Vertex0: v[4], Vertex1: v[5], Vertex2: v[1]},

			// Northern hemisphere.
			{Vertex0: v[1], Vertex1: v[0], Vertex2: v[4]},
			{Vertex0: v[4], Vertex1: v[0], Vertex2: v[3]},
			{Vertex0: v[3], Vertex1: v[0], Vertex2: v[2]},
			{Vertex0: v[2], Vertex1: v[0], Vertex2: v[1]},
		},
	}
}

// RootTriangles returns the eight root triangles, southern ones first.
func (t *Traversal) RootTriangles() [NumRootTriangles]Triangle {
	return t.roots
}

// Visit calls the visitor on each root triangle with the same context.
// Descending further is up to the visitor.
func Visit[C any](t *Traversal, visitor Visitor[C], ctx C) {
	for _, root := range t.roots {
		visitor.Visit(root, ctx)
	}
}
