package cubequadtree

import (
	"github.com/aukilabs/globe/maths"
)

// Face is one of the six faces of the cube enclosing the unit sphere.
type Face int

const (
	PositiveX Face = iota
	NegativeX
	PositiveY
	NegativeY
	PositiveZ
	NegativeZ
)

// NumFaces is the number of cube faces.
const NumFaces = 6

// Faces lists the faces in index order.
var Faces = [NumFaces]Face{
	PositiveX,
	NegativeX,
	PositiveY,
	NegativeY,
	PositiveZ,
	NegativeZ,
}

type faceFrame struct {
	normal maths.UnitVector3D
	u      maths.UnitVector3D
	v      maths.UnitVector3D
}

// Cube map face frames. U x V is the inward normal of each face.
var faceFrames = [NumFaces]faceFrame{
	PositiveX: {
		normal: maths.MustUnitVector3D(1, 0, 0),
		u:      maths.MustUnitVector3D(0, 0, -1),
		v:      maths.MustUnitVector3D(0, -1, 0),
	},
	NegativeX: {
		normal: maths.MustUnitVector3D(-1, 0, 0),
		u:      maths.MustUnitVector3D(0, 0, 1),
		v:      maths.MustUnitVector3D(0, -1, 0),
	},
	PositiveY: {
		normal: maths.MustUnitVector3D(0, 1, 0),
		u:      maths.MustUnitVector3D(1, 0, 0),
		v:      maths.MustUnitVector3D(0, 0, 1),
	},
	NegativeY: {
		normal: maths.MustUnitVector3D(0, -1, 0),
		u:      maths.MustUnitVector3D(1, 0, 0),
		v:      maths.MustUnitVector3D(0, 0, -1),
	},
	PositiveZ: {
		normal: maths.MustUnitVector3D(0, 0, 1),
		u:      maths.MustUnitVector3D(1, 0, 0),
		v:      maths.MustUnitVector3D(0, -1, 0),
	},
	NegativeZ: {
		normal: maths.MustUnitVector3D(0, 0, -1),
		u:      maths.MustUnitVector3D(-1, 0, 0),
		v:      maths.MustUnitVector3D(0, -1, 0),
	},
}

func (f Face) IsValid() bool {
	return f >= PositiveX && f <= NegativeZ
}

// Normal returns the outward normal of the face, which is also the point of
// the sphere at the face centre.
func (f Face) Normal() maths.UnitVector3D {
	return faceFrames[f].normal
}

// UDirection returns the direction of increasing u on the face.
func (f Face) UDirection() maths.UnitVector3D {
	return faceFrames[f].u
}

// VDirection returns the direction of increasing v on the face.
func (f Face) VDirection() maths.UnitVector3D {
	return faceFrames[f].v
}

func (f Face) String() string {
	switch f {
	case PositiveX:
		return "+x"

	case NegativeX:
		return "-x"

	case PositiveY:
		return "+y"

	case NegativeY:
		return "-y"

	case PositiveZ:
		return "+z"

	case NegativeZ:
		return "-z"

	default:
		return "unknown"
	}
}
