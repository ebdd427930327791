package bounds

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/maths"
	"github.com/stretchr/testify/require"
)

func TestBoundingSmallCircleBuilderEmpty(t *testing.T) {
	b := NewBoundingSmallCircleBuilder(maths.ZAxis)
	require.True(t, b.IsEmpty())

	defer func() {
		r := recover()
		require.NotNil(t, r)

		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.IsType(err, maths.ErrTypePreconditionViolation))
	}()
	b.BoundingSmallCircle(DefaultExpandEpsilon)
}

func TestBoundingSmallCircleBuilder(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		b := NewBoundingSmallCircleBuilder(maths.ZAxis)
		b.AddPoint(maths.MustUnitVector3D(math.Sin(degrees(30)), 0, math.Cos(degrees(30))))
		require.False(t, b.IsEmpty())

		c := b.BoundingSmallCircle(0)
		require.InDelta(t, math.Cos(degrees(30)), c.SmallCircleBoundaryCosine(), 1e-15)

		c = b.BoundingSmallCircle(DefaultExpandEpsilon)
		require.InDelta(t, math.Cos(degrees(30))-DefaultExpandEpsilon, c.SmallCircleBoundaryCosine(), 1e-15)
	})

	t.Run("arc extremum beyond end points", func(t *testing.T) {
		b := NewBoundingSmallCircleBuilder(maths.ZAxis.Negate())
		arc := maths.MustGreatCircleArc(
			maths.UnitVectorFromLatLon(10, -60),
			maths.UnitVectorFromLatLon(10, 60),
		)
		b.AddArc(arc)

		c := b.BoundingSmallCircle(DefaultExpandEpsilon)
		mid, err := arc.Start().Vector3D().Add(arc.End().Vector3D()).Normalize()
		require.NoError(t, err)
		require.Equal(t, InsideBounds, c.Test(mid))
		require.Less(t, c.SmallCircleBoundaryCosine(), maths.Dot(arc.Start(), maths.ZAxis.Negate()))
	})

	t.Run("expansion clamps to the whole sphere", func(t *testing.T) {
		b := NewBoundingSmallCircleBuilder(maths.ZAxis)
		b.AddPoint(maths.ZAxis.Negate())
		require.Equal(t, -1.0, b.BoundingSmallCircle(DefaultExpandEpsilon).SmallCircleBoundaryCosine())
	})

	t.Run("geometry", func(t *testing.T) {
		pg, err := maths.NewPolygonOnSphere(square(0, 0, 10))
		require.NoError(t, err)

		b := NewBoundingSmallCircleBuilder(pg.Centroid())
		b.AddGeometry(pg)
		c := b.BoundingSmallCircle(DefaultExpandEpsilon)

		require.Equal(t, InsideBounds, c.TestPolygon(pg))
		for _, v := range pg.ExteriorRingVertices() {
			require.Equal(t, InsideBounds, c.Test(v))
		}
	})
}

func TestBoundingSmallCircleBuilderEpsilonSafety(t *testing.T) {
	rnd := rand.New(rand.NewSource(10000))
	centre := maths.UnitVectorFromLatLon(-33.9, 18.4)

	points := make([]maths.UnitVector3D, 10000)
	b := NewBoundingSmallCircleBuilder(centre)
	for i := range points {
		points[i] = randomPointInCap(rnd, centre, degrees(20))
		b.AddPoint(points[i])
	}

	c := b.BoundingSmallCircle(DefaultExpandEpsilon)
	for _, p := range points {
		require.NotEqual(t, OutsideBounds, c.Test(p))
	}

	// The same points rotated far away, checked against the rotated bound.
	r := maths.NewFiniteRotation(maths.UnitVectorFromLatLon(10, 20), 2.5)
	rotated := c.Rotate(r)
	for _, p := range points {
		require.NotEqual(t, OutsideBounds, rotated.Test(r.RotateVector(p)))
	}
}

func TestBoundingSmallCircleBuilderMonotonicity(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	centre := randomUnitVector(rnd)
	b := NewBoundingSmallCircleBuilder(centre)

	previous := math.Inf(1)
	for i := 0; i < 500; i++ {
		b.AddPoint(randomUnitVector(rnd))
		current := b.BoundingSmallCircle(0).SmallCircleBoundaryCosine()
		require.LessOrEqual(t, current, previous)
		previous = current
	}
}

func TestBoundingSmallCircleBuilderMerge(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	centre := maths.UnitVectorFromLatLon(48.8, 2.3)

	all := NewBoundingSmallCircleBuilder(centre)
	merged := NewBoundingSmallCircleBuilder(centre)

	for part := 0; part < 4; part++ {
		partCentre := randomPointInCap(rnd, centre, degrees(30))
		partBuilder := NewBoundingSmallCircleBuilder(partCentre)

		for i := 0; i < 100; i++ {
			p := randomPointInCap(rnd, partCentre, degrees(5))
			partBuilder.AddPoint(p)
			all.AddPoint(p)
		}
		merged.AddBoundingSmallCircle(partBuilder.BoundingSmallCircle(DefaultExpandEpsilon))
	}

	direct := all.BoundingSmallCircle(DefaultExpandEpsilon)
	fanIn := merged.BoundingSmallCircle(DefaultExpandEpsilon)

	// Merging caps is conservative: the merged bound contains the direct one.
	require.LessOrEqual(t, fanIn.SmallCircleBoundaryCosine(), direct.SmallCircleBoundaryCosine())
}

func TestBoundingSmallCircleBuilderAddCap(t *testing.T) {
	t.Run("cap reaching past the antipode", func(t *testing.T) {
		b := NewBoundingSmallCircleBuilder(maths.ZAxis)
		b.AddBoundingSmallCircle(NewBoundingSmallCircleFromAngle(maths.XAxis, degrees(100)))
		require.Equal(t, -1.0, b.BoundingSmallCircle(0).SmallCircleBoundaryCosine())
	})

	t.Run("cap away from the centre", func(t *testing.T) {
		b := NewBoundingSmallCircleBuilder(maths.ZAxis)
		b.AddBoundingSmallCircle(NewBoundingSmallCircleFromAngle(maths.UnitVectorFromLatLon(60, 0), degrees(10)))
		require.InDelta(t, math.Cos(degrees(40)), b.BoundingSmallCircle(0).SmallCircleBoundaryCosine(), 1e-12)
	})
}
