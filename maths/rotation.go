package maths

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// FiniteRotation is a rotation of the sphere about an axis through its
// centre, stored as a unit quaternion.
type FiniteRotation struct {
	q quat.Number
}

// IdentityRotation returns the rotation that leaves every point in place.
func IdentityRotation() FiniteRotation {
	return FiniteRotation{q: quat.Number{Real: 1}}
}

// NewFiniteRotation returns the right-handed rotation of angle radians about
// axis.
func NewFiniteRotation(axis UnitVector3D, angle float64) FiniteRotation {
	s, c := math.Sincos(angle / 2)
	return FiniteRotation{q: quat.Number{
		Real: c,
		Imag: axis.X() * s,
		Jmag: axis.Y() * s,
		Kmag: axis.Z() * s,
	}}
}

// NewFiniteRotationBetween returns the shortest rotation taking from onto to.
func NewFiniteRotationBetween(from, to UnitVector3D) FiniteRotation {
	axis, err := Cross(from, to).Normalize()
	if err != nil || Cross(from, to).MagnitudeSquared() <= parallelCrossProductThreshold {
		if from.Dot(to) > 0 {
			return IdentityRotation()
		}
		return NewFiniteRotation(from.Perpendicular(), math.Pi)
	}
	return NewFiniteRotation(axis, from.AngleTo(to))
}

// Quaternion returns the unit quaternion representing the rotation.
func (r FiniteRotation) Quaternion() quat.Number {
	return r.q
}

// Axis returns the rotation axis and the angle in radians. The identity
// rotation reports the z axis with a zero angle.
func (r FiniteRotation) Axis() (UnitVector3D, float64) {
	angle := 2 * math.Acos(ClampDotProduct(r.q.Real))
	axis, err := NewVector3D(r.q.Imag, r.q.Jmag, r.q.Kmag).Normalize()
	if err != nil {
		return ZAxis, 0
	}
	return axis, angle
}

// Compose returns the rotation applying other first, then r.
func (r FiniteRotation) Compose(other FiniteRotation) FiniteRotation {
	return FiniteRotation{q: normalizeQuat(quat.Mul(r.q, other.q))}
}

// Inverse returns the rotation undoing r.
func (r FiniteRotation) Inverse() FiniteRotation {
	return FiniteRotation{q: quat.Conj(r.q)}
}

// RotateVector rotates a unit vector. The result is renormalized to absorb
// rounding.
func (r FiniteRotation) RotateVector(u UnitVector3D) UnitVector3D {
	p := quat.Number{Imag: u.X(), Jmag: u.Y(), Kmag: u.Z()}
	rotated := quat.Mul(quat.Mul(r.q, p), quat.Conj(r.q))

	v, err := NewVector3D(rotated.Imag, rotated.Jmag, rotated.Kmag).Normalize()
	if err != nil {
		return u
	}
	return v
}

func (r FiniteRotation) RotatePoint(p PointOnSphere) PointOnSphere {
	return NewPointOnSphere(r.RotateVector(p.position))
}

func (r FiniteRotation) RotateArc(a GreatCircleArc) GreatCircleArc {
	rotated := GreatCircleArc{
		start:      r.RotateVector(a.start),
		end:        r.RotateVector(a.end),
		zeroLength: a.zeroLength,
	}
	if !a.zeroLength {
		rotated.axis = r.RotateVector(a.axis)
	}
	return rotated
}

func (r FiniteRotation) RotateMultiPoint(mp *MultiPointOnSphere) *MultiPointOnSphere {
	rotated := &MultiPointOnSphere{points: make([]PointOnSphere, len(mp.points))}
	for i, p := range mp.points {
		rotated.points[i] = r.RotatePoint(p)
	}
	return rotated
}

func (r FiniteRotation) RotatePolyline(pl *PolylineOnSphere) *PolylineOnSphere {
	rotated := &PolylineOnSphere{
		vertices: r.rotateVertices(pl.vertices),
		arcs:     make([]GreatCircleArc, len(pl.arcs)),
	}
	for i, a := range pl.arcs {
		rotated.arcs[i] = r.RotateArc(a)
	}
	return rotated
}

func (r FiniteRotation) RotatePolygon(pg *PolygonOnSphere) *PolygonOnSphere {
	rotated := &PolygonOnSphere{
		exterior:      r.rotateRing(pg.exterior),
		interiorRings: make([]ring, len(pg.interiorRings)),
	}
	for i, ir := range pg.interiorRings {
		rotated.interiorRings[i] = r.rotateRing(ir)
	}
	return rotated
}

// RotateGeometry rotates any geometry, preserving its concrete type.
func (r FiniteRotation) RotateGeometry(g GeometryOnSphere) GeometryOnSphere {
	switch g := g.(type) {
	case PointOnSphere:
		return r.RotatePoint(g)

	case *MultiPointOnSphere:
		return r.RotateMultiPoint(g)

	case *PolylineOnSphere:
		return r.RotatePolyline(g)

	case *PolygonOnSphere:
		return r.RotatePolygon(g)

	default:
		return g
	}
}

func (r FiniteRotation) rotateVertices(vertices []UnitVector3D) []UnitVector3D {
	rotated := make([]UnitVector3D, len(vertices))
	for i, v := range vertices {
		rotated[i] = r.RotateVector(v)
	}
	return rotated
}

func (r FiniteRotation) rotateRing(rg ring) ring {
	// Rebuilding from rotated vertices keeps the s2 loop consistent. The
	// rotated vertices of a valid ring always form a valid ring.
	rotated, err := newRing(r.rotateVertices(rg.vertices))
	if err != nil {
		panic(err)
	}
	return rotated
}

func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
