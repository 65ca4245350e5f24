package prms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// DataFrame is a labelled two-dimensional view of parameter data: one row
// per index label and one column per entry of Columns. Data has shape
// (len(Index), len(Columns)) in row-major order.
type DataFrame struct {
	IndexName string
	Index     []int64
	Columns   []string
	Data      *Array
}

// Rows returns the number of rows.
func (df *DataFrame) Rows() int { return len(df.Index) }

// Row returns the values of row i.
func (df *DataFrame) Row(i int) ([]any, error) {
	if i < 0 || i >= len(df.Index) {
		return nil, errors.Wrapf(ErrOutOfRange, "row %d of %d", i, len(df.Index))
	}
	row, err := df.Data.Take(0, []int{i})
	if err != nil {
		return nil, err
	}
	return row.List(OrderC), nil
}

// Lookup returns the row labelled id.
func (df *DataFrame) Lookup(id int64) ([]any, error) {
	for i, x := range df.Index {
		if x == id {
			return df.Row(i)
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%s %d", df.IndexName, id)
}

// String renders the frame as whitespace-separated text with a header row.
func (df *DataFrame) String() string {
	var sb strings.Builder
	name := df.IndexName
	if name == "" {
		name = "index"
	}
	fmt.Fprintf(&sb, "%s\t%s\n", name, strings.Join(df.Columns, "\t"))
	cells := df.Data.Format(OrderC)
	width := len(df.Columns)
	for i, id := range df.Index {
		fmt.Fprintf(&sb, "%d\t%s\n", id, strings.Join(cells[i*width:(i+1)*width], "\t"))
	}
	return sb.String()
}

// AsDataFrame returns the data as a table indexed by position from 0.
// A 1-D parameter has a single column named after it; a 2-D parameter has
// columns <name>_1 .. <name>_n.
func (p *Parameter) AsDataFrame() (*DataFrame, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	var data *Array
	var cols []string
	switch p.data.Rank() {
	case 1:
		var err error
		data, err = p.data.Reshape(-1, 1)
		if err != nil {
			return nil, err
		}
		cols = []string{p.name}
	case 2:
		data = p.data.Clone()
		n := p.data.shape[1]
		cols = make([]string, n)
		for i := range cols {
			cols[i] = p.name + "_" + strconv.Itoa(i+1)
		}
	default:
		return nil, errors.Wrapf(ErrRankMismatch, "parameter %s has rank %d", p.name, p.data.Rank())
	}
	index := make([]int64, data.shape[0])
	for i := range index {
		index[i] = int64(i)
	}
	return &DataFrame{Index: index, Columns: cols, Data: data}, nil
}

// reindex replaces the index of a frame, which must have one label per row.
func (df *DataFrame) reindex(name string, ids []int64) error {
	if len(ids) != df.Rows() {
		return errors.Wrapf(ErrSizeMismatch, "%d %s labels for %d rows", len(ids), name, df.Rows())
	}
	df.IndexName = name
	df.Index = ids
	return nil
}
