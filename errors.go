package prms

import "github.com/cockroachdb/errors"

// Definition errors: the caller misused the API before any data existed.
var (
	ErrNoDimensions         = errors.New("prms: no dimensions defined")
	ErrInvalidDatatype      = errors.New("prms: invalid datatype")
	ErrParameterExists      = errors.New("prms: parameter already exists")
	ErrEmptyName            = errors.New("prms: empty name is not a valid parameter name")
	ErrInvalidDimensionName = errors.New("prms: invalid dimension name")
)

// Shape and size errors.
var (
	ErrNegativeSize = errors.New("prms: dimension size must be non-negative")
	ErrOutOfRange   = errors.New("prms: index out of range")
	ErrRankMismatch = errors.New("prms: number of dimensions does not match")
	ErrSizeMismatch = errors.New("prms: data size does not match dimensions")
)

// Data and lookup errors.
var (
	// ErrConcat is returned when a value is concatenated onto a parameter
	// with dimension "one" that already holds a different value.
	ErrConcat       = errors.New("prms: concatenation conflict")
	ErrNotFound     = errors.New("prms: not found")
	ErrNoData       = errors.New("prms: parameter has no data")
	ErrInvalidValue = errors.New("prms: invalid value")
	ErrUnsupported  = errors.New("prms: unsupported operation")
)
