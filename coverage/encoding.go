package coverage

import (
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/maths"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ErrTypeMalformedMesh is the error type returned when a binary mesh cannot be
// decoded.
const ErrTypeMalformedMesh = "malformed_mesh"

// Binary mesh layout, protobuf wire compatible:
//
//	message Mesh {
//	  repeated Triangle triangles = 1;
//	  uint32 depth = 2;
//	  google.protobuf.Timestamp generated_at = 3;
//	}
//
//	message Triangle {
//	  Vertex vertex0 = 1;
//	  Vertex vertex1 = 2;
//	  Vertex vertex2 = 3;
//	}
//
//	message Vertex {
//	  double x = 1;
//	  double y = 2;
//	  double z = 3;
//	}
const (
	meshTrianglesField   protowire.Number = 1
	meshDepthField       protowire.Number = 2
	meshGeneratedAtField protowire.Number = 3

	vertexXField protowire.Number = 1
	vertexYField protowire.Number = 2
	vertexZField protowire.Number = 3
)

// MarshalProto encodes a mesh in its binary form.
func MarshalProto(m *Mesh, generatedAt time.Time) ([]byte, error) {
	var b []byte
	for _, t := range m.Triangles {
		b = protowire.AppendTag(b, meshTrianglesField, protowire.BytesType)
		b = protowire.AppendBytes(b, appendTriangle(nil, t))
	}

	b = protowire.AppendTag(b, meshDepthField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Depth))

	ts, err := proto.Marshal(timestamppb.New(generatedAt))
	if err != nil {
		return nil, errors.New("marshaling mesh timestamp failed").Wrap(err)
	}
	b = protowire.AppendTag(b, meshGeneratedAtField, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	return b, nil
}

// UnmarshalProto decodes a mesh encoded by MarshalProto. Unknown fields are
// skipped.
func UnmarshalProto(b []byte) (*Mesh, time.Time, error) {
	m := &Mesh{}
	var generatedAt time.Time

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == meshTrianglesField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			t, err := consumeTriangle(v)
			if err != nil {
				return 0, err
			}
			m.Triangles = append(m.Triangles, t)
			return n, nil

		case num == meshDepthField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Depth = int(v)
			return n, nil

		case num == meshGeneratedAtField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return 0, errors.New("unmarshaling mesh timestamp failed").
					WithType(ErrTypeMalformedMesh).
					Wrap(err)
			}
			generatedAt = ts.AsTime()
			return n, nil

		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	return m, generatedAt, nil
}

func appendTriangle(b []byte, t Triangle) []byte {
	for i, v := range t.Vertices() {
		b = protowire.AppendTag(b, protowire.Number(i+1), protowire.BytesType)
		b = protowire.AppendBytes(b, appendVertex(nil, v))
	}
	return b
}

func appendVertex(b []byte, v maths.UnitVector3D) []byte {
	b = protowire.AppendTag(b, vertexXField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(v.X()))
	b = protowire.AppendTag(b, vertexYField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(v.Y()))
	b = protowire.AppendTag(b, vertexZField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(v.Z()))
	return b
}

func consumeTriangle(b []byte) (Triangle, error) {
	var vertices [3]maths.UnitVector3D
	var seen [3]bool

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < 1 || num > 3 || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		vertex, err := consumeVertex(v)
		if err != nil {
			return 0, err
		}
		vertices[num-1] = vertex
		seen[num-1] = true
		return n, nil
	})
	if err != nil {
		return Triangle{}, err
	}

	if !seen[0] || !seen[1] || !seen[2] {
		return Triangle{}, errors.New("mesh triangle is missing a vertex").
			WithType(ErrTypeMalformedMesh)
	}
	return Triangle{
		Vertex0: vertices[0],
		Vertex1: vertices[1],
		Vertex2: vertices[2],
	}, nil
}

func consumeVertex(b []byte) (maths.UnitVector3D, error) {
	var xyz [3]float64

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < vertexXField || num > vertexZField || typ != protowire.Fixed64Type {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}

		v, n := protowire.ConsumeFixed64(b)
		xyz[num-1] = math.Float64frombits(v)
		return n, nil
	})
	if err != nil {
		return maths.UnitVector3D{}, err
	}

	u, err := maths.NewUnitVector3D(xyz[0], xyz[1], xyz[2])
	if err != nil {
		return maths.UnitVector3D{}, errors.New("mesh vertex is not a unit vector").
			WithType(ErrTypeMalformedMesh).
			Wrap(err)
	}
	return u, nil
}

// consumeFields walks the fields of a message, calling fn with the bytes that
// follow each tag. fn returns the number of bytes it consumed, negative for a
// protowire parse error.
func consumeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]
	}
	return nil
}

func malformed(n int) error {
	return errors.New("malformed mesh").
		WithType(ErrTypeMalformedMesh).
		Wrap(protowire.ParseError(n))
}
