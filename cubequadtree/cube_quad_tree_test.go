package cubequadtree

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/maths"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("three levels", func(t *testing.T) {
		c, err := New[int](3)
		require.NoError(t, err)
		require.Equal(t, 3, c.NumLevels())

		q := c.QuadTree(PositiveZ)
		require.Equal(t, PositiveZ, q.Face())
		require.Equal(t, 3, q.NumLevels())
		require.Equal(t, 1, q.Level(0).NodeDimension())
		require.Equal(t, 2, q.Level(1).NodeDimension())
		require.Equal(t, 4, q.Level(2).NodeDimension())
		require.Equal(t, 21, q.NumNodes())
		require.Equal(t, 6*21, c.NumNodes())
	})

	t.Run("invalid number of levels", func(t *testing.T) {
		for _, numLevels := range []int{0, -1, MaxNumLevels + 1} {
			_, err := New[int](numLevels)
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeInvalidNumLevels))
		}
	})
}

func TestNewWithElements(t *testing.T) {
	c, err := NewWithElements(3, func(k NodeKey) NodeKey { return k })
	require.NoError(t, err)

	for _, face := range Faces {
		for level := 0; level < c.NumLevels(); level++ {
			l := c.QuadTree(face).Level(level)
			for v := 0; v < l.NodeDimension(); v++ {
				for u := 0; u < l.NodeDimension(); u++ {
					key := NodeKey{Face: face, Level: level, U: u, V: v}
					require.Equal(t, key, l.Node(u, v).Element)
					require.Equal(t, key, c.Node(key).Element)
				}
			}
		}
	}
}

func TestNodeAddressing(t *testing.T) {
	c, err := New[string](2)
	require.NoError(t, err)

	key := NodeKey{Face: NegativeY, Level: 1, U: 1, V: 0}
	c.Node(key).Element = "tile"
	require.Equal(t, "tile", c.QuadTree(NegativeY).Level(1).Node(1, 0).Element)
	require.Empty(t, c.QuadTree(NegativeY).Level(1).Node(0, 1).Element)

	require.True(t, c.Contains(key))
	require.False(t, c.Contains(NodeKey{Face: NegativeY, Level: 2}))
	require.False(t, c.Contains(NodeKey{Face: NegativeY, Level: 1, U: 2}))
	require.False(t, c.Contains(NodeKey{Face: Face(6)}))

	require.Panics(t, func() { c.QuadTree(PositiveX).Level(1).Node(2, 0) })
	require.Panics(t, func() { c.QuadTree(PositiveX).Level(2) })
	require.Panics(t, func() { c.QuadTree(Face(-1)) })
}

func TestNodeKey(t *testing.T) {
	key := NodeKey{Face: PositiveX, Level: 2, U: 3, V: 2}
	require.Equal(t, "+x/2/3/2", key.String())

	parent, ok := key.Parent()
	require.True(t, ok)
	require.Equal(t, NodeKey{Face: PositiveX, Level: 1, U: 1, V: 1}, parent)

	for _, child := range parent.Children() {
		p, ok := child.Parent()
		require.True(t, ok)
		require.Equal(t, parent, p)
	}

	_, ok = NodeKey{Face: PositiveX}.Parent()
	require.False(t, ok)
}

func TestFaceFrames(t *testing.T) {
	for _, face := range Faces {
		t.Run(face.String(), func(t *testing.T) {
			u, v, n := face.UDirection(), face.VDirection(), face.Normal()
			require.Zero(t, u.Dot(v))
			require.Zero(t, u.Dot(n))
			require.Zero(t, v.Dot(n))

			inward, err := maths.Cross(u, v).Normalize()
			require.NoError(t, err)
			require.True(t, inward.Equal(n.Negate()))
		})
	}
}
