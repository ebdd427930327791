package maths

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// The maximum deviation of |v|^2 from 1 accepted for a unit vector.
const unitLengthTolerance = 1e-6

var (
	XAxis = UnitVector3D{r3.Vector{X: 1}}
	YAxis = UnitVector3D{r3.Vector{Y: 1}}
	ZAxis = UnitVector3D{r3.Vector{Z: 1}}
)

// Vector3D is an arbitrary three dimensional vector.
type Vector3D struct {
	v r3.Vector
}

func NewVector3D(x, y, z float64) Vector3D {
	return Vector3D{r3.Vector{X: x, Y: y, Z: z}}
}

func (a Vector3D) X() float64 { return a.v.X }
func (a Vector3D) Y() float64 { return a.v.Y }
func (a Vector3D) Z() float64 { return a.v.Z }

// R3 returns the vector as a golang/geo r3 vector.
func (a Vector3D) R3() r3.Vector {
	return a.v
}

func (a Vector3D) Add(b Vector3D) Vector3D {
	return Vector3D{a.v.Add(b.v)}
}

func (a Vector3D) Sub(b Vector3D) Vector3D {
	return Vector3D{a.v.Sub(b.v)}
}

func (a Vector3D) Scale(s float64) Vector3D {
	return Vector3D{a.v.Mul(s)}
}

func (a Vector3D) Dot(b Vector3D) float64 {
	return a.v.Dot(b.v)
}

func (a Vector3D) Cross(b Vector3D) Vector3D {
	return Vector3D{a.v.Cross(b.v)}
}

func (a Vector3D) Magnitude() float64 {
	return a.v.Norm()
}

func (a Vector3D) MagnitudeSquared() float64 {
	return a.v.Norm2()
}

// Normalize returns the unit vector pointing in the same direction. An error
// is returned when the vector has zero magnitude.
func (a Vector3D) Normalize() (UnitVector3D, error) {
	mag := a.v.Norm()
	if mag == 0 || math.IsNaN(mag) {
		return UnitVector3D{}, errors.New("cannot normalize a zero magnitude vector").
			WithType(ErrTypeZeroVector)
	}
	return UnitVector3D{a.v.Mul(1 / mag)}, nil
}

// UnitVector3D is a vector of unit length. It is used both as a point on the
// unit sphere and as a direction. The zero value is not a valid unit vector;
// use the constructors.
type UnitVector3D struct {
	v r3.Vector
}

// NewUnitVector3D returns the unit vector (x, y, z). An error is returned if
// the triple is not of unit length.
func NewUnitVector3D(x, y, z float64) (UnitVector3D, error) {
	v := r3.Vector{X: x, Y: y, Z: z}
	if dev := math.Abs(v.Norm2() - 1); !(dev <= unitLengthTolerance) {
		return UnitVector3D{}, errors.New("vector is not of unit length").
			WithType(ErrTypeNonUnitVector).
			WithTag("x", x).
			WithTag("y", y).
			WithTag("z", z)
	}
	return UnitVector3D{v}, nil
}

// MustUnitVector3D is like NewUnitVector3D but panics when the triple is not
// of unit length.
func MustUnitVector3D(x, y, z float64) UnitVector3D {
	u, err := NewUnitVector3D(x, y, z)
	if err != nil {
		panic(err)
	}
	return u
}

// UnitVectorFromLatLon returns the point at the given latitude and longitude,
// in degrees.
func UnitVectorFromLatLon(lat, lon float64) UnitVector3D {
	return UnitVectorFromS2Point(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}

// UnitVectorFromS2Point converts a golang/geo s2 point.
func UnitVectorFromS2Point(p s2.Point) UnitVector3D {
	return UnitVector3D{p.Vector.Normalize()}
}

func (u UnitVector3D) X() float64 { return u.v.X }
func (u UnitVector3D) Y() float64 { return u.v.Y }
func (u UnitVector3D) Z() float64 { return u.v.Z }

func (u UnitVector3D) Vector3D() Vector3D {
	return Vector3D{u.v}
}

func (u UnitVector3D) R3() r3.Vector {
	return u.v
}

func (u UnitVector3D) S2Point() s2.Point {
	return s2.Point{Vector: u.v}
}

// LatLon returns the latitude and longitude of the point, in degrees.
func (u UnitVector3D) LatLon() (float64, float64) {
	ll := s2.LatLngFromPoint(u.S2Point())
	return ll.Lat.Degrees(), ll.Lng.Degrees()
}

func (u UnitVector3D) Negate() UnitVector3D {
	return UnitVector3D{u.v.Mul(-1)}
}

func (u UnitVector3D) Dot(o UnitVector3D) float64 {
	return u.v.Dot(o.v)
}

func (u UnitVector3D) Cross(o UnitVector3D) Vector3D {
	return Vector3D{u.v.Cross(o.v)}
}

func (u UnitVector3D) Equal(o UnitVector3D) bool {
	return u.v == o.v
}

func (u UnitVector3D) EqualWithEpsilon(o UnitVector3D, epsilon float64) bool {
	return math.Abs(u.v.X-o.v.X) <= epsilon &&
		math.Abs(u.v.Y-o.v.Y) <= epsilon &&
		math.Abs(u.v.Z-o.v.Z) <= epsilon
}

// Perpendicular returns a unit vector perpendicular to u.
func (u UnitVector3D) Perpendicular() UnitVector3D {
	return UnitVector3D{u.v.Ortho()}
}

// AngleTo returns the angle between two unit vectors, in radians.
func (u UnitVector3D) AngleTo(o UnitVector3D) float64 {
	return u.v.Angle(o.v).Radians()
}

func (u UnitVector3D) String() string {
	return u.v.String()
}

// Dot returns the dot product of two unit vectors, clamped to [-1, 1].
func Dot(a, b UnitVector3D) float64 {
	return ClampDotProduct(a.v.Dot(b.v))
}

func Cross(a, b UnitVector3D) Vector3D {
	return Vector3D{a.v.Cross(b.v)}
}

// ClampDotProduct clamps a cosine to [-1, 1].
func ClampDotProduct(d float64) float64 {
	if d > 1 {
		return 1
	}
	if d < -1 {
		return -1
	}
	return d
}

// SineFromCosine returns sqrt(1 - c^2), returning 0 when rounding pushes c^2
// to or beyond 1.
func SineFromCosine(c float64) float64 {
	c2 := c * c
	if c2 >= 1 {
		return 0
	}
	return math.Sqrt(1 - c2)
}
