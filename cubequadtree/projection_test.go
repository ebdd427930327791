package cubequadtree

import (
	"math/rand"
	"testing"

	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/maths"
	"github.com/stretchr/testify/require"
)

func randomUnitVector(rnd *rand.Rand) maths.UnitVector3D {
	for {
		v := maths.NewVector3D(rnd.NormFloat64(), rnd.NormFloat64(), rnd.NormFloat64())
		if u, err := v.Normalize(); err == nil {
			return u
		}
	}
}

func TestFaceAndUV(t *testing.T) {
	for _, face := range Faces {
		f, u, v := FaceAndUV(face.Normal())
		require.Equal(t, face, f)
		require.Zero(t, u)
		require.Zero(t, v)
	}

	t.Run("round trip", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(21))
		for i := 0; i < 1000; i++ {
			p := randomUnitVector(rnd)
			face, u, v := FaceAndUV(p)
			require.GreaterOrEqual(t, u, -1.0)
			require.LessOrEqual(t, u, 1.0)
			require.GreaterOrEqual(t, v, -1.0)
			require.LessOrEqual(t, v, 1.0)
			require.True(t, UVToUnitVector(face, u, v).EqualWithEpsilon(p, 1e-12))
		}
	})
}

func TestNodeGeometry(t *testing.T) {
	root := NodeKey{Face: PositiveZ}
	require.True(t, NodeCentre(root).EqualWithEpsilon(maths.ZAxis, 1e-15))

	corners := NodeCorners(root)
	for _, c := range corners {
		require.InDelta(t, 1/1.7320508075688772, c.Z(), 1e-12)
	}

	uMin, vMin, uMax, vMax := NodeUVBounds(NodeKey{Face: PositiveZ, Level: 2, U: 1, V: 3})
	require.Equal(t, -0.5, uMin)
	require.Equal(t, 0.5, vMin)
	require.Equal(t, 0.0, uMax)
	require.Equal(t, 1.0, vMax)
}

func TestLocateNode(t *testing.T) {
	rnd := rand.New(rand.NewSource(22))
	for i := 0; i < 500; i++ {
		p := randomUnitVector(rnd)
		for level := 0; level < 6; level++ {
			key := LocateNode(p, level)
			require.Equal(t, level, key.Level)

			_, u, v := FaceAndUV(p)
			uMin, vMin, uMax, vMax := NodeUVBounds(key)
			require.True(t, u >= uMin && u <= uMax)
			require.True(t, v >= vMin && v <= vMax)

			if level > 0 {
				parent, _ := key.Parent()
				require.Equal(t, LocateNode(p, level-1), parent)
			}
		}
	}
}

func TestNodeBoundingSmallCircle(t *testing.T) {
	rnd := rand.New(rand.NewSource(23))
	for i := 0; i < 2000; i++ {
		p := randomUnitVector(rnd)
		level := rnd.Intn(5)
		key := LocateNode(p, level)

		b := NodeBoundingSmallCircle(key, bounds.DefaultExpandEpsilon)
		require.Equal(t, bounds.InsideBounds, b.Test(p), key.String())
	}
}
