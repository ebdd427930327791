// Package coverage generates triangle meshes covering spherical caps.
package coverage

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/htm"
	"github.com/aukilabs/globe/maths"
)

const (
	// MaxDepth caps the subdivision depth. A root triangle yields up to 4^depth
	// triangles.
	MaxDepth = 15

	// ErrTypeInvalidDepth is the error type returned for a depth outside
	// [0, MaxDepth].
	ErrTypeInvalidDepth = "invalid_depth"
)

// Triangle is a mesh triangle. Vertices are not shared between triangles.
type Triangle struct {
	Vertex0 maths.UnitVector3D
	Vertex1 maths.UnitVector3D
	Vertex2 maths.UnitVector3D
}

func (t Triangle) Vertices() [3]maths.UnitVector3D {
	return [3]maths.UnitVector3D{t.Vertex0, t.Vertex1, t.Vertex2}
}

// Coordinates returns the x, y, z coordinates of the vertices.
func (t Triangle) Coordinates() [3][3]float64 {
	var coords [3][3]float64
	for i, v := range t.Vertices() {
		coords[i] = [3]float64{v.X(), v.Y(), v.Z()}
	}
	return coords
}

// Contains reports whether p lies inside the triangle or on its boundary.
func (t Triangle) Contains(p maths.UnitVector3D) bool {
	return htm.Triangle(t).Contains(p)
}

// Mesh is a flat list of triangles whose union covers a cap.
type Mesh struct {
	Triangles []Triangle

	// The subdivision depth of the triangles.
	Depth int
}

// Len returns the number of triangles.
func (m *Mesh) Len() int {
	return len(m.Triangles)
}

// Contains reports whether any triangle of the mesh contains p.
func (m *Mesh) Contains(p maths.UnitVector3D) bool {
	for _, t := range m.Triangles {
		if t.Contains(p) {
			return true
		}
	}
	return false
}

// Builder appends the triangles covering a cap to a mesh.
type Builder struct {
	mesh  *Mesh
	bound bounds.BoundingSmallCircle
	depth int
}

// NewBuilder returns a builder emitting the triangles of depth
// depthToGenerateMesh that touch bound into mesh.
func NewBuilder(mesh *Mesh, bound bounds.BoundingSmallCircle, depthToGenerateMesh int) (*Builder, error) {
	if depthToGenerateMesh < 0 || depthToGenerateMesh > MaxDepth {
		return nil, errors.New("invalid coverage mesh depth").
			WithType(ErrTypeInvalidDepth).
			WithTag("depth", depthToGenerateMesh).
			WithTag("max_depth", MaxDepth)
	}

	mesh.Depth = depthToGenerateMesh
	return &Builder{
		mesh:  mesh,
		bound: bound,
		depth: depthToGenerateMesh,
	}, nil
}

type visitContext struct {
	depth            int
	testAgainstBound bool
}

// AddCoverageTriangles traverses the mesh hierarchy from the root triangles,
// pruning subtrees outside the bound.
func (b *Builder) AddCoverageTriangles(traversal *htm.Traversal) {
	htm.Visit[visitContext](traversal, b, visitContext{testAgainstBound: true})
}

// Visit implements htm.Visitor.
func (b *Builder) Visit(t htm.Triangle, ctx visitContext) {
	if ctx.testAgainstBound {
		switch b.testTriangle(t) {
		case bounds.OutsideBounds:
			return

		case bounds.InsideBounds:
			// Descendants are inside too.
			ctx.testAgainstBound = false
		}
	}

	if ctx.depth == b.depth {
		b.mesh.Triangles = append(b.mesh.Triangles, Triangle(t))
		return
	}

	ctx.depth++
	htm.VisitChildren[visitContext](t, b, ctx)
}

// testTriangle classifies the filled triangle against the bound. A triangle
// whose edges miss the cap can still surround it.
func (b *Builder) testTriangle(t htm.Triangle) bounds.Result {
	res := b.bound.TestArcs(t.Arcs())
	if res == bounds.OutsideBounds && t.Contains(b.bound.Centre()) {
		return bounds.IntersectingBounds
	}
	return res
}

// Generate returns the coverage mesh of bound at the given depth.
func Generate(bound bounds.BoundingSmallCircle, depth int) (*Mesh, error) {
	mesh := &Mesh{}
	builder, err := NewBuilder(mesh, bound, depth)
	if err != nil {
		return nil, err
	}

	builder.AddCoverageTriangles(htm.NewTraversal())
	return mesh, nil
}
