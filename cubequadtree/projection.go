package cubequadtree

import (
	"math"

	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/maths"
)

// FaceAndUV projects a point of the sphere onto the cube. It returns the face
// hit and the (u, v) coordinates on that face, both in [-1, 1].
func FaceAndUV(p maths.UnitVector3D) (Face, float64, float64) {
	x, y, z := math.Abs(p.X()), math.Abs(p.Y()), math.Abs(p.Z())

	var face Face
	switch {
	case x >= y && x >= z:
		face = PositiveX
		if p.X() < 0 {
			face = NegativeX
		}

	case y >= z:
		face = PositiveY
		if p.Y() < 0 {
			face = NegativeY
		}

	default:
		face = PositiveZ
		if p.Z() < 0 {
			face = NegativeZ
		}
	}

	frame := faceFrames[face]
	d := p.Dot(frame.normal)
	u := clampUV(p.Dot(frame.u) / d)
	v := clampUV(p.Dot(frame.v) / d)
	return face, u, v
}

// UVToUnitVector returns the point of the sphere projecting to (u, v) on face.
func UVToUnitVector(face Face, u, v float64) maths.UnitVector3D {
	frame := faceFrames[face]
	p := frame.normal.Vector3D().
		Add(frame.u.Vector3D().Scale(u)).
		Add(frame.v.Vector3D().Scale(v))

	// The normal component is 1, so p is never the zero vector.
	unit, _ := p.Normalize()
	return unit
}

// NodeUVBounds returns the (u, v) extent of a node on its face.
func NodeUVBounds(key NodeKey) (uMin, vMin, uMax, vMax float64) {
	size := 2 / float64(int(1)<<key.Level)
	uMin = -1 + float64(key.U)*size
	vMin = -1 + float64(key.V)*size
	return uMin, vMin, uMin + size, vMin + size
}

// NodeCorners returns the corners of a node projected onto the sphere, in
// (uMin, vMin), (uMax, vMin), (uMax, vMax), (uMin, vMax) order.
func NodeCorners(key NodeKey) [4]maths.UnitVector3D {
	uMin, vMin, uMax, vMax := NodeUVBounds(key)
	return [4]maths.UnitVector3D{
		UVToUnitVector(key.Face, uMin, vMin),
		UVToUnitVector(key.Face, uMax, vMin),
		UVToUnitVector(key.Face, uMax, vMax),
		UVToUnitVector(key.Face, uMin, vMax),
	}
}

// NodeCentre returns the centre of a node projected onto the sphere.
func NodeCentre(key NodeKey) maths.UnitVector3D {
	uMin, vMin, uMax, vMax := NodeUVBounds(key)
	return UVToUnitVector(key.Face, (uMin+uMax)/2, (vMin+vMax)/2)
}

// LocateNode returns the key of the node at level containing p.
func LocateNode(p maths.UnitVector3D, level int) NodeKey {
	face, u, v := FaceAndUV(p)
	dim := 1 << level
	return NodeKey{
		Face:  face,
		Level: level,
		U:     uvToIndex(u, dim),
		V:     uvToIndex(v, dim),
	}
}

// NodeBoundingSmallCircle returns a cap around the node centre containing the
// whole node. Node edges lie in planes through the origin so they are great
// circle arcs.
func NodeBoundingSmallCircle(key NodeKey, expandEpsilon float64) bounds.BoundingSmallCircle {
	corners := NodeCorners(key)
	builder := bounds.NewBoundingSmallCircleBuilder(NodeCentre(key))
	for i := range corners {
		builder.AddArc(maths.MustGreatCircleArc(corners[i], corners[(i+1)%len(corners)]))
	}
	return builder.BoundingSmallCircle(expandEpsilon)
}

func uvToIndex(uv float64, dim int) int {
	i := int(math.Floor((uv + 1) / 2 * float64(dim)))
	if i < 0 {
		return 0
	}
	if i >= dim {
		return dim - 1
	}
	return i
}

func clampUV(uv float64) float64 {
	return math.Max(-1, math.Min(1, uv))
}
