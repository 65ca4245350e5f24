package prms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorder(t *testing.T) {
	src := []int64{1, 2, 3, 4, 5, 6}
	f := reorder(src, []int{2, 3}, OrderC, OrderF)
	assert.Equal(t, []int64{1, 4, 2, 5, 3, 6}, f)
	assert.Equal(t, src, reorder(f, []int{2, 3}, OrderF, OrderC))
	assert.Equal(t, src, reorder(src, []int{6}, OrderC, OrderF))
}

func TestResolveShape(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		n       int
		want    []int
		wantErr bool
	}{
		{"exact", []int{2, 3}, 6, []int{2, 3}, false},
		{"infer leading", []int{-1, 11}, 33, []int{3, 11}, false},
		{"infer trailing", []int{4, -1}, 8, []int{4, 2}, false},
		{"not divisible", []int{-1, 11}, 12, nil, true},
		{"two unknowns", []int{-1, -1}, 4, nil, true},
		{"wrong count", []int{2, 2}, 5, nil, true},
		{"zero known", []int{0, -1}, 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveShape(tt.shape, tt.n)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrSizeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArrayFromFlat(t *testing.T) {
	a, err := FromFlat(DataTypeInteger, []int{-1, 3}, []int64{1, 2, 3, 4, 5, 6}, OrderF)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, a.Shape())
	assert.Equal(t, []int64{1, 3, 5, 2, 4, 6}, a.Ints())

	v, err := a.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)
	_, err = a.At(2, 0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = a.At(0)
	require.ErrorIs(t, err, ErrRankMismatch)

	_, err = FromFlat(DataTypeFloat, []int{2}, []int64{1, 2}, OrderC)
	require.ErrorIs(t, err, ErrInvalidDatatype)
}

func TestArrayTakeDelete(t *testing.T) {
	a, err := NewArray(DataTypeInteger, []int{2, 3}, []int64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	cols, err := a.Take(1, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, cols.Shape())
	assert.Equal(t, []int64{3, 1, 6, 4}, cols.Ints())

	rest, err := a.Delete(1, []int{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 6}, rest.Ints())

	rows, err := a.Delete(0, []int{0})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, rows.Shape())
	assert.Equal(t, []int64{4, 5, 6}, rows.Ints())

	_, err = a.Take(2, []int{0})
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = a.Take(0, []int{2})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestArrayBroadcastTranspose(t *testing.T) {
	col, err := NewArray(DataTypeFloat, []int{3}, []float64{1, 2, 3})
	require.NoError(t, err)

	b, err := col.BroadcastTo(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, b.Floats())

	tr := b.Transpose()
	assert.Equal(t, []int{3, 2}, tr.Shape())
	assert.Equal(t, []float64{1, 1, 2, 2, 3, 3}, tr.Floats())

	_, err = col.BroadcastTo(3, 2)
	require.ErrorIs(t, err, ErrSizeMismatch)
	_, err = b.BroadcastTo(6)
	require.ErrorIs(t, err, ErrRankMismatch)
}

func TestArrayConcatUnique(t *testing.T) {
	a, err := NewArray(DataTypeString, []int{2}, []string{"b", "a"})
	require.NoError(t, err)
	b, err := NewArray(DataTypeString, []int{1}, []string{"b"})
	require.NoError(t, err)

	c, err := a.Concat(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "b"}, c.Strings())
	assert.Equal(t, []string{"a", "b"}, c.Unique().Strings())

	n, err := NewArray(DataTypeInteger, []int{1}, []int64{1})
	require.NoError(t, err)
	_, err = a.Concat(n)
	require.ErrorIs(t, err, ErrInvalidDatatype)

	m, err := NewArray(DataTypeString, []int{1, 1}, []string{"x"})
	require.NoError(t, err)
	_, err = a.Concat(m)
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestArrayRange(t *testing.T) {
	a, err := NewArray(DataTypeDouble, []int{3}, []float64{2, -1, 7})
	require.NoError(t, err)
	lo, hi, ok := a.Range()
	require.True(t, ok)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)

	s, err := NewArray(DataTypeString, []int{1}, []string{"x"})
	require.NoError(t, err)
	_, _, ok = s.Range()
	assert.False(t, ok)
}
