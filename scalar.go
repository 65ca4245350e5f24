package prms

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

type scalarKind uint8

const (
	scalarUnset scalarKind = iota
	scalarInt
	scalarFloat
	scalarText
)

// Scalar is a parameter bound or default: an integer, a float, or text
// kept as given. Text bounds occur on "bounded" parameters whose limits
// name another dimension instead of a number.
type Scalar struct {
	kind scalarKind
	i    int64
	f    float64
	raw  string
}

func IntScalar(v int64) Scalar     { return Scalar{kind: scalarInt, i: v, raw: strconv.FormatInt(v, 10)} }
func FloatScalar(v float64) Scalar { return Scalar{kind: scalarFloat, f: v, raw: strconv.FormatFloat(v, 'f', -1, 64)} }
func TextScalar(v string) Scalar   { return Scalar{kind: scalarText, raw: v} }

// IsSet reports whether the scalar holds a value.
func (s Scalar) IsSet() bool { return s.kind != scalarUnset }

// IsNumeric reports whether the scalar holds a number.
func (s Scalar) IsNumeric() bool { return s.kind == scalarInt || s.kind == scalarFloat }

// Float returns the numeric value.
func (s Scalar) Float() (float64, bool) {
	switch s.kind {
	case scalarInt:
		return float64(s.i), true
	case scalarFloat:
		return s.f, true
	}
	return 0, false
}

// Int returns the integer value.
func (s Scalar) Int() (int64, bool) {
	return s.i, s.kind == scalarInt
}

// String returns the scalar as text; unset scalars are empty.
func (s Scalar) String() string { return s.raw }

// parseBound coerces a minimum or maximum. Values that do not parse as a
// number for a numeric datatype are kept as text.
func parseBound(dt DataType, raw string) Scalar {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Scalar{}
	}
	switch dt {
	case DataTypeInteger:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return IntScalar(n)
		}
	case DataTypeFloat, DataTypeDouble:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return FloatScalar(f)
		}
	}
	return TextScalar(raw)
}

// parseDefault coerces a default value; numeric datatypes require a number.
func parseDefault(dt DataType, raw string) (Scalar, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Scalar{}, nil
	}
	switch dt {
	case DataTypeInteger:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return IntScalar(n), nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return IntScalar(int64(f)), nil
		}
		return Scalar{}, errors.Wrapf(ErrInvalidValue, "integer default %q", raw)
	case DataTypeFloat, DataTypeDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Scalar{}, errors.Wrapf(ErrInvalidValue, "float default %q", raw)
		}
		return FloatScalar(f), nil
	}
	return TextScalar(raw), nil
}
