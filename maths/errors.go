package maths

const (
	// ErrTypeNonUnitVector is the error type returned when a unit vector is
	// built from a triple that is not of unit length.
	ErrTypeNonUnitVector = "non_unit_vector"

	// ErrTypeZeroVector is the error type returned when normalizing a vector
	// of zero magnitude.
	ErrTypeZeroVector = "zero_vector"

	// ErrTypeAntipodalArc is the error type returned when a great circle arc
	// is built from antipodal end points.
	ErrTypeAntipodalArc = "antipodal_arc"

	// ErrTypeInvalidGeometry is the error type returned when a geometry does
	// not have enough vertices.
	ErrTypeInvalidGeometry = "invalid_geometry"

	// ErrTypePreconditionViolation is the error type carried by panics that
	// signal a misuse of an API contract.
	ErrTypePreconditionViolation = "precondition_violation"
)
