package maths

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func square(lat, lon, halfSize float64) []UnitVector3D {
	return []UnitVector3D{
		UnitVectorFromLatLon(lat-halfSize, lon-halfSize),
		UnitVectorFromLatLon(lat-halfSize, lon+halfSize),
		UnitVectorFromLatLon(lat+halfSize, lon+halfSize),
		UnitVectorFromLatLon(lat+halfSize, lon-halfSize),
	}
}

func TestNewMultiPointOnSphere(t *testing.T) {
	_, err := NewMultiPointOnSphere(nil)
	require.True(t, errors.IsType(err, ErrTypeInvalidGeometry))

	mp, err := NewMultiPointOnSphere([]UnitVector3D{XAxis, YAxis})
	require.NoError(t, err)
	require.Len(t, mp.Points(), 2)
	require.Equal(t, GeometryTypeMultiPoint, mp.Type())
}

func TestNewPolylineOnSphere(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := NewPolylineOnSphere(nil)
		require.True(t, errors.IsType(err, ErrTypeInvalidGeometry))
	})

	t.Run("single vertex", func(t *testing.T) {
		pl, err := NewPolylineOnSphere([]UnitVector3D{XAxis})
		require.NoError(t, err)
		require.Len(t, pl.Arcs(), 1)
		require.True(t, pl.Arcs()[0].IsZeroLength())
	})

	t.Run("antipodal segment", func(t *testing.T) {
		_, err := NewPolylineOnSphere([]UnitVector3D{XAxis, XAxis.Negate()})
		require.Error(t, err)
	})

	t.Run("arcs", func(t *testing.T) {
		pl, err := NewPolylineOnSphere([]UnitVector3D{XAxis, YAxis, ZAxis})
		require.NoError(t, err)
		require.Len(t, pl.Arcs(), 2)
		require.True(t, pl.Arcs()[1].Start().Equal(YAxis))
	})
}

func TestNewPolygonOnSphere(t *testing.T) {
	t.Run("too few vertices", func(t *testing.T) {
		_, err := NewPolygonOnSphere([]UnitVector3D{XAxis, YAxis})
		require.True(t, errors.IsType(err, ErrTypeInvalidGeometry))
	})

	t.Run("invalid hole", func(t *testing.T) {
		_, err := NewPolygonOnSphere(square(0, 0, 10), []UnitVector3D{XAxis})
		require.Error(t, err)
	})

	t.Run("rings are closed", func(t *testing.T) {
		pg, err := NewPolygonOnSphere(square(0, 0, 10), square(0, 0, 2))
		require.NoError(t, err)
		require.Len(t, pg.ExteriorRingArcs(), 4)
		require.Equal(t, 1, pg.NumberOfInteriorRings())
		require.Len(t, pg.Rings(), 2)

		arcs := pg.ExteriorRingArcs()
		require.True(t, arcs[3].End().Equal(arcs[0].Start()))
	})
}

func TestIsPointInPolygon(t *testing.T) {
	pg, err := NewPolygonOnSphere(square(0, 0, 10), square(0, 0, 2))
	require.NoError(t, err)

	require.True(t, pg.IsPointInPolygon(UnitVectorFromLatLon(5, 5)))
	require.False(t, pg.IsPointInPolygon(UnitVectorFromLatLon(0, 0)))
	require.False(t, pg.IsPointInPolygon(UnitVectorFromLatLon(30, 0)))

	t.Run("orientation does not matter", func(t *testing.T) {
		ring := square(0, 0, 10)
		reversed := make([]UnitVector3D, len(ring))
		for i, v := range ring {
			reversed[len(ring)-1-i] = v
		}

		pg, err := NewPolygonOnSphere(reversed)
		require.NoError(t, err)
		require.True(t, pg.IsPointInPolygon(UnitVectorFromLatLon(0, 0)))
	})
}

func TestCentroid(t *testing.T) {
	pg, err := NewPolygonOnSphere(square(20, 30, 5))
	require.NoError(t, err)

	lat, lon := pg.Centroid().LatLon()
	require.InDelta(t, 20, lat, 0.5)
	require.InDelta(t, 30, lon, 1e-9)

	mp, err := NewMultiPointOnSphere([]UnitVector3D{XAxis, XAxis.Negate()})
	require.NoError(t, err)
	require.True(t, mp.Centroid().Equal(XAxis))
}
