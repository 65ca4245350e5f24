package prms

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Order is the element order used to flatten or fill an array.
type Order string

const (
	// OrderC is row-major: the last axis varies fastest.
	OrderC Order = "C"
	// OrderF is column-major (Fortran): the first axis varies fastest.
	// Parameter files are written in this order.
	OrderF Order = "F"
)

// Array is a dense, typed, shaped block of values. Integer data is held
// as []int64, Float and Double as []float64 and String as []string,
// always in row-major order internally.
type Array struct {
	dtype  DataType
	shape  []int
	values any
}

// NewArray wraps values, given in row-major order, as an array of the
// given shape. values must be []int64, []float64 or []string matching dtype.
func NewArray(dtype DataType, shape []int, values any) (*Array, error) {
	return FromFlat(dtype, shape, values, OrderC)
}

// FromFlat builds an array of the given shape from a flat list in the
// given order. A single -1 in shape is inferred from the value count.
func FromFlat(dtype DataType, shape []int, values any, order Order) (*Array, error) {
	if !dtype.Valid() {
		return nil, errors.Wrapf(ErrInvalidDatatype, "%d", int(dtype))
	}
	n, err := valuesLen(dtype, values)
	if err != nil {
		return nil, err
	}
	shape, err = resolveShape(shape, n)
	if err != nil {
		return nil, err
	}
	a := &Array{dtype: dtype, shape: shape}
	switch v := values.(type) {
	case []int64:
		a.values = reorder(v, shape, order, OrderC)
	case []float64:
		a.values = reorder(v, shape, order, OrderC)
	case []string:
		a.values = reorder(v, shape, order, OrderC)
	}
	return a, nil
}

func valuesLen(dtype DataType, values any) (int, error) {
	switch v := values.(type) {
	case []int64:
		if dtype == DataTypeInteger {
			return len(v), nil
		}
	case []float64:
		if dtype == DataTypeFloat || dtype == DataTypeDouble {
			return len(v), nil
		}
	case []string:
		if dtype == DataTypeString {
			return len(v), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidDatatype, "%T values for %s data", values, dtype)
}

// resolveShape fills in a -1 axis and checks the element count.
func resolveShape(shape []int, n int) ([]int, error) {
	out := slices.Clone(shape)
	infer := -1
	known := 1
	for i, s := range out {
		switch {
		case s == -1 && infer == -1:
			infer = i
		case s < 0:
			return nil, errors.Wrapf(ErrSizeMismatch, "invalid shape %v", shape)
		default:
			known *= s
		}
	}
	if infer >= 0 {
		if known == 0 || n%known != 0 {
			return nil, errors.Wrapf(ErrSizeMismatch, "cannot reshape %d values into %v", n, shape)
		}
		out[infer] = n / known
		return out, nil
	}
	if shapeSize(out) != n {
		return nil, errors.Wrapf(ErrSizeMismatch, "cannot reshape %d values into %v", n, shape)
	}
	return out, nil
}

func (a *Array) DataType() DataType { return a.dtype }
func (a *Array) Shape() []int       { return slices.Clone(a.shape) }
func (a *Array) Rank() int          { return len(a.shape) }
func (a *Array) Size() int          { return shapeSize(a.shape) }

// Ints returns the row-major values of an Integer array, or nil.
func (a *Array) Ints() []int64 {
	v, _ := a.values.([]int64)
	return v
}

// Floats returns the row-major values of a Float or Double array, or nil.
func (a *Array) Floats() []float64 {
	v, _ := a.values.([]float64)
	return v
}

// Strings returns the row-major values of a String array, or nil.
func (a *Array) Strings() []string {
	v, _ := a.values.([]string)
	return v
}

// Float64s returns the numeric values as float64 in row-major order.
func (a *Array) Float64s() ([]float64, bool) {
	switch v := a.values.(type) {
	case []float64:
		return v, true
	case []int64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	}
	return nil, false
}

// Flatten returns a copy of the values in the given order, typed as the
// array's backing slice.
func (a *Array) Flatten(order Order) any {
	switch v := a.values.(type) {
	case []int64:
		return reorder(v, a.shape, OrderC, order)
	case []float64:
		return reorder(v, a.shape, OrderC, order)
	case []string:
		return reorder(v, a.shape, OrderC, order)
	}
	return nil
}

// List returns the values flattened in the given order as a generic list.
func (a *Array) List(order Order) []any {
	switch v := a.Flatten(order).(type) {
	case []int64:
		return toAny(v)
	case []float64:
		return toAny(v)
	case []string:
		return toAny(v)
	}
	return nil
}

// Format renders every value, flattened in the given order.
func (a *Array) Format(order Order) []string {
	switch v := a.Flatten(order).(type) {
	case []int64:
		out := make([]string, len(v))
		for i, x := range v {
			out[i] = strconv.FormatInt(x, 10)
		}
		return out
	case []float64:
		out := make([]string, len(v))
		for i, x := range v {
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		}
		return out
	case []string:
		return v
	}
	return nil
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{dtype: a.dtype, shape: slices.Clone(a.shape), values: a.Flatten(OrderC)}
}

// Equal reports whether a and b have the same type, shape and values.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.dtype != b.dtype || !slices.Equal(a.shape, b.shape) {
		return false
	}
	switch v := a.values.(type) {
	case []int64:
		return slices.Equal(v, b.Ints())
	case []float64:
		return slices.Equal(v, b.Floats())
	case []string:
		return slices.Equal(v, b.Strings())
	}
	return false
}

// At returns the value at the given multi-index.
func (a *Array) At(idx ...int) (any, error) {
	if len(idx) != len(a.shape) {
		return nil, errors.Wrapf(ErrRankMismatch, "index %v for shape %v", idx, a.shape)
	}
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			return nil, errors.Wrapf(ErrOutOfRange, "index %v for shape %v", idx, a.shape)
		}
	}
	off := offset(idx, strides(a.shape, OrderC))
	switch v := a.values.(type) {
	case []int64:
		return v[off], nil
	case []float64:
		return v[off], nil
	case []string:
		return v[off], nil
	}
	return nil, nil
}

// flatAt returns the i-th value in row-major order.
func (a *Array) flatAt(i int) (any, bool) {
	if i < 0 || i >= a.Size() {
		return nil, false
	}
	switch v := a.values.(type) {
	case []int64:
		return v[i], true
	case []float64:
		return v[i], true
	case []string:
		return v[i], true
	}
	return nil, false
}

// first returns the leading value as an array of the given rank with every
// axis of size one.
func (a *Array) first(rank int) *Array {
	shape := make([]int, rank)
	for i := range shape {
		shape[i] = 1
	}
	out := &Array{dtype: a.dtype, shape: shape}
	switch v := a.values.(type) {
	case []int64:
		out.values = slices.Clone(v[:1])
	case []float64:
		out.values = slices.Clone(v[:1])
	case []string:
		out.values = slices.Clone(v[:1])
	}
	return out
}

// Reshape returns the array with a new shape, keeping row-major order.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	s, err := resolveShape(shape, a.Size())
	if err != nil {
		return nil, err
	}
	out := a.Clone()
	out.shape = s
	return out, nil
}

// Take selects positions idx along axis, in the order given.
func (a *Array) Take(axis int, idx []int) (*Array, error) {
	if err := a.checkAxis(axis, idx); err != nil {
		return nil, err
	}
	out := &Array{dtype: a.dtype, shape: slices.Clone(a.shape)}
	out.shape[axis] = len(idx)
	switch v := a.values.(type) {
	case []int64:
		out.values = takeAxis(v, a.shape, axis, idx)
	case []float64:
		out.values = takeAxis(v, a.shape, axis, idx)
	case []string:
		out.values = takeAxis(v, a.shape, axis, idx)
	}
	return out, nil
}

// Delete removes positions idx along axis. Repeated positions are removed once.
func (a *Array) Delete(axis int, idx []int) (*Array, error) {
	if err := a.checkAxis(axis, idx); err != nil {
		return nil, err
	}
	drop := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		drop[i] = struct{}{}
	}
	keep := make([]int, 0, a.shape[axis])
	for i := 0; i < a.shape[axis]; i++ {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}
	return a.Take(axis, keep)
}

func (a *Array) checkAxis(axis int, idx []int) error {
	if axis < 0 || axis >= len(a.shape) {
		return errors.Wrapf(ErrOutOfRange, "axis %d for shape %v", axis, a.shape)
	}
	for _, i := range idx {
		if i < 0 || i >= a.shape[axis] {
			return errors.Wrapf(ErrOutOfRange, "position %d on axis %d of size %d", i, axis, a.shape[axis])
		}
	}
	return nil
}

// BroadcastTo repeats the array into shape, aligning trailing axes. Each
// source axis must equal the target axis or be 1.
func (a *Array) BroadcastTo(shape ...int) (*Array, error) {
	if len(a.shape) > len(shape) {
		return nil, errors.Wrapf(ErrRankMismatch, "cannot broadcast %v to %v", a.shape, shape)
	}
	lead := len(shape) - len(a.shape)
	for i, s := range a.shape {
		if s != 1 && s != shape[lead+i] {
			return nil, errors.Wrapf(ErrSizeMismatch, "cannot broadcast %v to %v", a.shape, shape)
		}
	}
	out := &Array{dtype: a.dtype, shape: slices.Clone(shape)}
	switch v := a.values.(type) {
	case []int64:
		out.values = broadcast(v, a.shape, shape)
	case []float64:
		out.values = broadcast(v, a.shape, shape)
	case []string:
		out.values = broadcast(v, a.shape, shape)
	}
	return out, nil
}

// Transpose reverses the axes.
func (a *Array) Transpose() *Array {
	shape := slices.Clone(a.shape)
	slices.Reverse(shape)
	// The row-major layout of the reversed shape is the column-major layout
	// of the original.
	return &Array{dtype: a.dtype, shape: shape, values: a.Flatten(OrderF)}
}

// Concat appends b along the leading axis.
func (a *Array) Concat(b *Array) (*Array, error) {
	if a.dtype != b.dtype {
		return nil, errors.Wrapf(ErrInvalidDatatype, "concat %s with %s", a.dtype, b.dtype)
	}
	if len(a.shape) != len(b.shape) || len(a.shape) == 0 || !slices.Equal(a.shape[1:], b.shape[1:]) {
		return nil, errors.Wrapf(ErrSizeMismatch, "concat %v with %v", a.shape, b.shape)
	}
	out := &Array{dtype: a.dtype, shape: slices.Clone(a.shape)}
	out.shape[0] += b.shape[0]
	// Row-major storage makes the leading axis outermost.
	switch v := a.values.(type) {
	case []int64:
		out.values = slices.Concat(v, b.Ints())
	case []float64:
		out.values = slices.Concat(v, b.Floats())
	case []string:
		out.values = slices.Concat(v, b.Strings())
	}
	return out, nil
}

// Unique returns the sorted distinct values as a 1-D array.
func (a *Array) Unique() *Array {
	out := &Array{dtype: a.dtype}
	switch v := a.values.(type) {
	case []int64:
		out.values = sortedUnique(v)
	case []float64:
		out.values = sortedUnique(v)
	case []string:
		out.values = sortedUnique(v)
	}
	n, _ := valuesLen(out.dtype, out.values)
	out.shape = []int{n}
	return out
}

// Range returns the smallest and largest numeric value, ignoring NaN.
func (a *Array) Range() (lo, hi float64, ok bool) {
	vals, numeric := a.Float64s()
	if !numeric {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(%s, shape=%v, values=[%s])", a.dtype, a.shape, strings.Join(a.Format(OrderC), " "))
}

// coerce converts raw input values to the backing slice for dtype.
// Integer input that does not parse as an integer is parsed as a float and
// truncated.
func coerce(dtype DataType, values any) (any, error) {
	switch dtype {
	case DataTypeInteger:
		switch v := values.(type) {
		case []string:
			return parseInts(v)
		case []int64:
			return slices.Clone(v), nil
		case []int:
			return convert[int, int64](v), nil
		case []float64:
			return convert[float64, int64](v), nil
		}
	case DataTypeFloat, DataTypeDouble:
		switch v := values.(type) {
		case []string:
			return parseFloats(v)
		case []float64:
			return slices.Clone(v), nil
		case []int64:
			return convert[int64, float64](v), nil
		case []int:
			return convert[int, float64](v), nil
		}
	case DataTypeString:
		if v, ok := values.([]string); ok {
			return slices.Clone(v), nil
		}
	default:
		return nil, errors.Wrapf(ErrInvalidDatatype, "%d", int(dtype))
	}
	return nil, errors.Wrapf(ErrInvalidValue, "cannot convert %T to %s", values, dtype)
}

func parseInts(raw []string) ([]int64, error) {
	out := make([]int64, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			floats, ferr := parseFloats(raw)
			if ferr != nil {
				return nil, ferr
			}
			return convert[float64, int64](floats), nil
		}
		out[i] = n
	}
	return out, nil
}

func parseFloats(raw []string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidValue, "%q at position %d", s, i)
		}
		out[i] = f
	}
	return out, nil
}

func convert[S, D int | int64 | float64](src []S) []D {
	out := make([]D, len(src))
	for i, v := range src {
		out[i] = D(v)
	}
	return out
}

func toAny[T any](src []T) []any {
	out := make([]any, len(src))
	for i, v := range src {
		out[i] = v
	}
	return out
}

func sortedUnique[T cmp.Ordered](src []T) []T {
	out := slices.Clone(src)
	slices.Sort(out)
	return slices.Compact(out)
}

func shapeSize(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// strides computes element strides for shape in the given order.
func strides(shape []int, order Order) []int {
	s := make([]int, len(shape))
	stride := 1
	if order == OrderF {
		for i := 0; i < len(shape); i++ {
			s[i] = stride
			stride *= shape[i]
		}
		return s
	}
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}

func offset(idx, strides []int) int {
	off := 0
	for i, x := range idx {
		off += x * strides[i]
	}
	return off
}

// iterateGrid calls fn for every index in [0, shape) with the last axis
// varying fastest.
func iterateGrid(shape []int, fn func(idx []int)) {
	if shapeSize(shape) == 0 {
		return
	}
	idx := make([]int, len(shape))
	for {
		fn(idx)
		i := len(shape) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < shape[i] {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

// reorder copies a flat list laid out in order from into order to.
func reorder[T any](src []T, shape []int, from, to Order) []T {
	if from == to || len(shape) < 2 {
		return slices.Clone(src)
	}
	srcStrides, dstStrides := strides(shape, from), strides(shape, to)
	out := make([]T, len(src))
	iterateGrid(shape, func(idx []int) {
		out[offset(idx, dstStrides)] = src[offset(idx, srcStrides)]
	})
	return out
}

// takeAxis gathers positions idx along axis of a row-major block.
func takeAxis[T any](src []T, shape []int, axis int, idx []int) []T {
	outer := shapeSize(shape[:axis])
	inner := shapeSize(shape[axis+1:])
	n := shape[axis]
	out := make([]T, 0, outer*len(idx)*inner)
	for o := 0; o < outer; o++ {
		base := o * n * inner
		for _, i := range idx {
			out = append(out, src[base+i*inner:base+(i+1)*inner]...)
		}
	}
	return out
}

func broadcast[T any](src []T, from, to []int) []T {
	lead := len(to) - len(from)
	srcStrides := strides(from, OrderC)
	out := make([]T, 0, shapeSize(to))
	iterateGrid(to, func(idx []int) {
		off := 0
		for i, s := range from {
			if s != 1 {
				off += idx[lead+i] * srcStrides[i]
			}
		}
		out = append(out, src[off])
	})
	return out
}
