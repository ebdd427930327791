package maths

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Cross products with a squared magnitude below this are treated as parallel
// end points.
const parallelCrossProductThreshold = 1e-24

// GreatCircleArc is the shortest path between two points on the sphere.
type GreatCircleArc struct {
	start UnitVector3D
	end   UnitVector3D

	// Unit rotation axis, start x end normalized. Unset for zero length arcs.
	axis       UnitVector3D
	zeroLength bool
}

// NewGreatCircleArc returns the arc from start to end. Antipodal end points
// do not define a unique arc and return an error.
func NewGreatCircleArc(start, end UnitVector3D) (GreatCircleArc, error) {
	cross := Cross(start, end)
	if cross.MagnitudeSquared() <= parallelCrossProductThreshold {
		if start.Dot(end) < 0 {
			return GreatCircleArc{}, errors.New("great circle arc end points are antipodal").
				WithType(ErrTypeAntipodalArc).
				WithTag("start", start.String()).
				WithTag("end", end.String())
		}

		return GreatCircleArc{
			start:      start,
			end:        end,
			zeroLength: true,
		}, nil
	}

	axis, _ := cross.Normalize()
	return GreatCircleArc{
		start: start,
		end:   end,
		axis:  axis,
	}, nil
}

// MustGreatCircleArc is like NewGreatCircleArc but panics on antipodal end
// points.
func MustGreatCircleArc(start, end UnitVector3D) GreatCircleArc {
	arc, err := NewGreatCircleArc(start, end)
	if err != nil {
		panic(err)
	}
	return arc
}

func (a GreatCircleArc) Start() UnitVector3D { return a.start }
func (a GreatCircleArc) End() UnitVector3D   { return a.end }

// IsZeroLength reports whether the start and end points coincide.
func (a GreatCircleArc) IsZeroLength() bool {
	return a.zeroLength
}

// RotationAxis returns the unit axis of the arc's great circle. It must not be
// called on a zero length arc.
func (a GreatCircleArc) RotationAxis() UnitVector3D {
	if a.zeroLength {
		panic(errors.New("zero length arc has no rotation axis").
			WithType(ErrTypePreconditionViolation))
	}
	return a.axis
}

// Length returns the angular length of the arc, in radians.
func (a GreatCircleArc) Length() float64 {
	if a.zeroLength {
		return 0
	}
	return a.start.AngleTo(a.end)
}

// MinMaxDotProduct returns the minimum and maximum dot product of any point on
// the arc with the given axis. The extrema are not necessarily at the end
// points since the arc can bulge towards or away from the axis.
func (a GreatCircleArc) MinMaxDotProduct(axis UnitVector3D) (float64, float64) {
	d0 := Dot(a.start, axis)
	d1 := Dot(a.end, axis)
	min, max := math.Min(d0, d1), math.Max(d0, d1)
	if a.zeroLength {
		return min, max
	}

	p, mag, ok := a.projectOntoGreatCircle(axis)
	if !ok {
		return min, max
	}

	if a.containsGreatCirclePoint(p) {
		max = ClampDotProduct(mag)
	}
	if a.containsGreatCirclePoint(p.Negate()) {
		min = ClampDotProduct(-mag)
	}
	return min, max
}

// MaxDotProduct returns the maximum dot product of any point on the arc with
// the given axis.
func (a GreatCircleArc) MaxDotProduct(axis UnitVector3D) float64 {
	max := math.Max(Dot(a.start, axis), Dot(a.end, axis))
	if a.zeroLength {
		return max
	}

	if p, mag, ok := a.projectOntoGreatCircle(axis); ok && a.containsGreatCirclePoint(p) {
		return ClampDotProduct(mag)
	}
	return max
}

// MinDotProduct returns the minimum dot product of any point on the arc with
// the given axis.
func (a GreatCircleArc) MinDotProduct(axis UnitVector3D) float64 {
	min := math.Min(Dot(a.start, axis), Dot(a.end, axis))
	if a.zeroLength {
		return min
	}

	if p, mag, ok := a.projectOntoGreatCircle(axis); ok && a.containsGreatCirclePoint(p.Negate()) {
		return ClampDotProduct(-mag)
	}
	return min
}

// Reversed returns the arc going from end to start.
func (a GreatCircleArc) Reversed() GreatCircleArc {
	r := GreatCircleArc{
		start:      a.end,
		end:        a.start,
		zeroLength: a.zeroLength,
	}
	if !a.zeroLength {
		r.axis = a.axis.Negate()
	}
	return r
}

// projectOntoGreatCircle returns the point of the arc's great circle closest
// to axis along with its dot product with axis. ok is false when axis is
// perpendicular to the great circle plane, in which case the dot product is
// constant along the circle.
func (a GreatCircleArc) projectOntoGreatCircle(axis UnitVector3D) (UnitVector3D, float64, bool) {
	n := a.axis.Vector3D()
	proj := axis.Vector3D().Sub(n.Scale(n.Dot(axis.Vector3D())))
	if proj.MagnitudeSquared() <= parallelCrossProductThreshold {
		return UnitVector3D{}, 0, false
	}

	p, err := proj.Normalize()
	if err != nil {
		return UnitVector3D{}, 0, false
	}
	return p, proj.Magnitude(), true
}

// containsGreatCirclePoint reports whether p, a point on the arc's great
// circle, lies between the arc's end points.
func (a GreatCircleArc) containsGreatCirclePoint(p UnitVector3D) bool {
	n := a.axis.Vector3D()
	return Cross(a.start, p).Dot(n) >= 0 && Cross(p, a.end).Dot(n) >= 0
}
