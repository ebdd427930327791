package maths

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewGreatCircleArc(t *testing.T) {
	t.Run("regular arc", func(t *testing.T) {
		arc, err := NewGreatCircleArc(XAxis, YAxis)
		require.NoError(t, err)
		require.False(t, arc.IsZeroLength())
		require.True(t, arc.RotationAxis().EqualWithEpsilon(ZAxis, 1e-15))
		require.InDelta(t, math.Pi/2, arc.Length(), 1e-12)
	})

	t.Run("zero length arc", func(t *testing.T) {
		arc, err := NewGreatCircleArc(XAxis, XAxis)
		require.NoError(t, err)
		require.True(t, arc.IsZeroLength())
		require.Zero(t, arc.Length())
		require.Panics(t, func() {
			arc.RotationAxis()
		})
	})

	t.Run("antipodal arc", func(t *testing.T) {
		_, err := NewGreatCircleArc(XAxis, XAxis.Negate())
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeAntipodalArc))
	})
}

func TestArcMinMaxDotProduct(t *testing.T) {
	t.Run("extremum at end points", func(t *testing.T) {
		arc := MustGreatCircleArc(UnitVectorFromLatLon(10, 0), UnitVectorFromLatLon(20, 0))
		min, max := arc.MinMaxDotProduct(ZAxis)
		require.InDelta(t, math.Sin(10*math.Pi/180), min, 1e-12)
		require.InDelta(t, math.Sin(20*math.Pi/180), max, 1e-12)
	})

	t.Run("arc bulges towards the axis", func(t *testing.T) {
		// Two points on latitude 10 far apart in longitude: the great circle
		// between them rises above that latitude.
		arc := MustGreatCircleArc(UnitVectorFromLatLon(10, -60), UnitVectorFromLatLon(10, 60))
		max := arc.MaxDotProduct(ZAxis)
		require.Greater(t, max, math.Sin(10*math.Pi/180)+1e-3)

		mid, err := arc.Start().Vector3D().Add(arc.End().Vector3D()).Normalize()
		require.NoError(t, err)
		require.InDelta(t, mid.Z(), max, 1e-12)
	})

	t.Run("axis perpendicular to the arc plane", func(t *testing.T) {
		arc := MustGreatCircleArc(XAxis, YAxis)
		min, max := arc.MinMaxDotProduct(ZAxis)
		require.InDelta(t, 0, min, 1e-15)
		require.InDelta(t, 0, max, 1e-15)
	})

	t.Run("zero length arc", func(t *testing.T) {
		p := UnitVectorFromLatLon(30, 40)
		arc := MustGreatCircleArc(p, p)
		min, max := arc.MinMaxDotProduct(ZAxis)
		require.Equal(t, min, max)
		require.InDelta(t, p.Z(), max, 1e-15)
	})

	t.Run("sampled arcs", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(42))
		for i := 0; i < 500; i++ {
			a := randomUnitVector(rnd)
			b := randomUnitVector(rnd)
			axis := randomUnitVector(rnd)

			arc, err := NewGreatCircleArc(a, b)
			if err != nil {
				continue
			}

			min, max := arc.MinMaxDotProduct(axis)
			require.Equal(t, min, arc.MinDotProduct(axis))
			require.Equal(t, max, arc.MaxDotProduct(axis))

			for _, p := range sampleArc(arc, 64) {
				d := p.Dot(axis)
				require.GreaterOrEqual(t, d, min-1e-12)
				require.LessOrEqual(t, d, max+1e-12)
			}
		}
	})
}

func TestArcReversed(t *testing.T) {
	arc := MustGreatCircleArc(XAxis, YAxis)
	r := arc.Reversed()
	require.True(t, r.Start().Equal(YAxis))
	require.True(t, r.End().Equal(XAxis))
	require.True(t, r.RotationAxis().EqualWithEpsilon(ZAxis.Negate(), 1e-15))
}

func randomUnitVector(rnd *rand.Rand) UnitVector3D {
	for {
		v := NewVector3D(rnd.NormFloat64(), rnd.NormFloat64(), rnd.NormFloat64())
		if u, err := v.Normalize(); err == nil {
			return u
		}
	}
}

func sampleArc(arc GreatCircleArc, n int) []UnitVector3D {
	if arc.IsZeroLength() {
		return []UnitVector3D{arc.Start()}
	}

	samples := make([]UnitVector3D, 0, n+1)
	angle := arc.Length()
	for i := 0; i <= n; i++ {
		r := NewFiniteRotation(arc.RotationAxis(), angle*float64(i)/float64(n))
		samples = append(samples, r.RotateVector(arc.Start()))
	}
	return samples
}
