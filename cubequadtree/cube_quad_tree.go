// Package cubequadtree implements a fixed depth quad tree over each face of the
// cube enclosing the unit sphere.
package cubequadtree

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/maths"
)

const (
	// MaxNumLevels is the largest number of levels a tree can be built with.
	// Memory grows with 6 * 4^(numLevels-1) nodes at the deepest level.
	MaxNumLevels = 11

	// ErrTypeInvalidNumLevels is the error type returned when a tree is built
	// with a level count outside [1, MaxNumLevels].
	ErrTypeInvalidNumLevels = "invalid_num_levels"
)

// NodeKey addresses a node by face, level and (u, v) indices within the level.
type NodeKey struct {
	Face  Face
	Level int
	U     int
	V     int
}

// Parent returns the key of the node one level up. ok is false at level 0.
func (k NodeKey) Parent() (NodeKey, bool) {
	if k.Level == 0 {
		return NodeKey{}, false
	}
	return NodeKey{
		Face:  k.Face,
		Level: k.Level - 1,
		U:     k.U / 2,
		V:     k.V / 2,
	}, true
}

// Children returns the keys of the four nodes one level down.
func (k NodeKey) Children() [4]NodeKey {
	u, v, level := 2*k.U, 2*k.V, k.Level+1
	return [4]NodeKey{
		{Face: k.Face, Level: level, U: u, V: v},
		{Face: k.Face, Level: level, U: u + 1, V: v},
		{Face: k.Face, Level: level, U: u, V: v + 1},
		{Face: k.Face, Level: level, U: u + 1, V: v + 1},
	}
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Face, k.Level, k.U, k.V)
}

// QuadTreeNode holds the caller payload of a node.
type QuadTreeNode[T any] struct {
	Element T
}

// QuadTreeLevel is a square grid of 2^level x 2^level nodes.
type QuadTreeLevel[T any] struct {
	level     int
	dimension int
	nodes     []QuadTreeNode[T]
}

func (l *QuadTreeLevel[T]) Level() int {
	return l.level
}

// NodeDimension returns the number of nodes along each side of the level.
func (l *QuadTreeLevel[T]) NodeDimension() int {
	return l.dimension
}

func (l *QuadTreeLevel[T]) NumNodes() int {
	return len(l.nodes)
}

// Node returns the node at (u, v). It panics when an index is out of range.
func (l *QuadTreeLevel[T]) Node(u, v int) *QuadTreeNode[T] {
	if u < 0 || u >= l.dimension || v < 0 || v >= l.dimension {
		panic(errors.New("quad tree node index out of range").
			WithType(maths.ErrTypePreconditionViolation).
			WithTag("level", l.level).
			WithTag("u", u).
			WithTag("v", v))
	}
	return &l.nodes[v*l.dimension+u]
}

// QuadTree is the hierarchy of levels covering one cube face.
type QuadTree[T any] struct {
	face   Face
	levels []*QuadTreeLevel[T]
}

func (q *QuadTree[T]) Face() Face {
	return q.face
}

func (q *QuadTree[T]) NumLevels() int {
	return len(q.levels)
}

// Level returns the given level. It panics when the level does not exist.
func (q *QuadTree[T]) Level(level int) *QuadTreeLevel[T] {
	if level < 0 || level >= len(q.levels) {
		panic(errors.New("quad tree level out of range").
			WithType(maths.ErrTypePreconditionViolation).
			WithTag("level", level).
			WithTag("num_levels", len(q.levels)))
	}
	return q.levels[level]
}

// NumNodes returns the number of nodes across all levels.
func (q *QuadTree[T]) NumNodes() int {
	count := 0
	for _, l := range q.levels {
		count += l.NumNodes()
	}
	return count
}

// CubeQuadTree holds one quad tree per cube face. All levels are allocated up
// front; nodes are addressed directly and never subdivided.
type CubeQuadTree[T any] struct {
	numLevels int
	faces     [NumFaces]*QuadTree[T]
}

// New returns a tree with numLevels levels per face, every node holding the
// zero value of T.
func New[T any](numLevels int) (*CubeQuadTree[T], error) {
	return NewWithElements[T](numLevels, nil)
}

// NewWithElements is like New but initializes each node element with init.
func NewWithElements[T any](numLevels int, init func(NodeKey) T) (*CubeQuadTree[T], error) {
	if numLevels < 1 || numLevels > MaxNumLevels {
		return nil, errors.New("invalid number of quad tree levels").
			WithType(ErrTypeInvalidNumLevels).
			WithTag("num_levels", numLevels).
			WithTag("max_num_levels", MaxNumLevels)
	}

	c := &CubeQuadTree[T]{numLevels: numLevels}
	for _, face := range Faces {
		q := &QuadTree[T]{
			face:   face,
			levels: make([]*QuadTreeLevel[T], numLevels),
		}

		for level := 0; level < numLevels; level++ {
			dim := 1 << level
			l := &QuadTreeLevel[T]{
				level:     level,
				dimension: dim,
				nodes:     make([]QuadTreeNode[T], dim*dim),
			}

			if init != nil {
				for v := 0; v < dim; v++ {
					for u := 0; u < dim; u++ {
						l.nodes[v*dim+u].Element = init(NodeKey{
							Face:  face,
							Level: level,
							U:     u,
							V:     v,
						})
					}
				}
			}
			q.levels[level] = l
		}
		c.faces[face] = q
	}
	return c, nil
}

func (c *CubeQuadTree[T]) NumLevels() int {
	return c.numLevels
}

// QuadTree returns the tree of a face.
func (c *CubeQuadTree[T]) QuadTree(face Face) *QuadTree[T] {
	if !face.IsValid() {
		panic(errors.New("invalid cube face").
			WithType(maths.ErrTypePreconditionViolation).
			WithTag("face", int(face)))
	}
	return c.faces[face]
}

// Node returns the node addressed by key. It panics when the key is out of
// range.
func (c *CubeQuadTree[T]) Node(key NodeKey) *QuadTreeNode[T] {
	return c.QuadTree(key.Face).Level(key.Level).Node(key.U, key.V)
}

// Contains reports whether key addresses a node of the tree.
func (c *CubeQuadTree[T]) Contains(key NodeKey) bool {
	if !key.Face.IsValid() || key.Level < 0 || key.Level >= c.numLevels {
		return false
	}
	dim := 1 << key.Level
	return key.U >= 0 && key.U < dim && key.V >= 0 && key.V < dim
}

// NumNodes returns the number of nodes across all faces and levels.
func (c *CubeQuadTree[T]) NumNodes() int {
	count := 0
	for _, q := range c.faces {
		count += q.NumNodes()
	}
	return count
}
