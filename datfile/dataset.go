package datfile

import (
	"bufio"
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/TuSKan/go-prms"
	"github.com/cockroachdb/errors"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// DefaultNoData is the value that marks a missing observation.
const DefaultNoData = -999

// dateFields leads every data row: year month day hours minutes seconds.
const dateFields = 6

var (
	ErrFormat   = errors.New("datfile: malformed data file")
	ErrVariable = errors.New("datfile: unknown variable")
)

// Variable is one declared variable and its columns within a row.
type Variable struct {
	Name   string
	Count  int
	Offset int
}

// Dataset is a station/time-series data file held in memory. Rows are
// time steps; columns are the declared variable instances in declaration
// order, numbered from 1 within each variable.
type Dataset struct {
	Header       string
	CurrentIndex int

	noData    float64
	variables []Variable
	times     []time.Time
	values    []float64
	width     int
}

// Option configures reading.
type Option func(*Dataset)

// WithNoData sets the missing-value sentinel; matching values become NaN.
func WithNoData(v float64) Option {
	return func(d *Dataset) { d.noData = v }
}

// Open reads the data file key from the bucket at url.
func Open(ctx context.Context, url, key string, opts ...Option) (*Dataset, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", url)
	}
	defer bucket.Close()

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(prms.ErrNotFound, "data file %s", key)
		}
		return nil, errors.Wrapf(err, "failed to open %s", key)
	}
	defer r.Close()

	d, err := Read(r, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "data file %s", key)
	}
	prms.Logger().Debug("read data file",
		zap.String("key", key),
		zap.Int("variables", len(d.variables)),
		zap.Int("rows", len(d.times)))
	return d, nil
}

// Read parses a data file: a header line, "//" comments and "<name> <count>"
// declarations up to a "####" line, then one whitespace-separated row per
// time step.
func Read(r io.Reader, opts ...Option) (*Dataset, error) {
	d := &Dataset{noData: DefaultNoData}
	for _, opt := range opts {
		opt(d)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64<<20)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read header")
		}
		return nil, errors.Wrap(ErrFormat, "empty file")
	}
	d.Header = strings.TrimSpace(sc.Text())

	line := 1
	delimited := false
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(text, "//"), text == "":
			continue
		case strings.Contains(text, "####"):
			delimited = true
		default:
			if err := d.declare(text, line); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if !delimited {
		return nil, errors.Wrap(ErrFormat, "missing #### delimiter")
	}

	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if err := d.appendRow(fields, line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read data")
	}
	return d, nil
}

func (d *Dataset) declare(text string, line int) error {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return errors.Wrapf(ErrFormat, "line %d: expected \"<name> <count>\"", line)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return errors.Wrapf(ErrFormat, "line %d: invalid count %q", line, fields[1])
	}
	d.variables = append(d.variables, Variable{Name: fields[0], Count: n, Offset: d.width})
	d.width += n
	return nil
}

func (d *Dataset) appendRow(fields []string, line int) error {
	if len(fields) != dateFields+d.width {
		return errors.Wrapf(ErrFormat, "line %d: %d fields, expected %d", line, len(fields), dateFields+d.width)
	}
	var date [dateFields]int
	for i := range date {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return errors.Wrapf(ErrFormat, "line %d: date field %q", line, fields[i])
		}
		date[i] = n
	}
	d.times = append(d.times,
		time.Date(date[0], time.Month(date[1]), date[2], date[3], date[4], date[5], 0, time.UTC))
	for _, f := range fields[dateFields:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return errors.Wrapf(ErrFormat, "line %d: value %q", line, f)
		}
		if v == d.noData {
			v = math.NaN()
		}
		d.values = append(d.values, v)
	}
	return nil
}

// Variables returns the declared variables in file order.
func (d *Dataset) Variables() []Variable {
	return append([]Variable(nil), d.variables...)
}

// Times returns the timestamp of every row.
func (d *Dataset) Times() []time.Time {
	return append([]time.Time(nil), d.times...)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.times) }

// Width returns the number of value columns in a row.
func (d *Dataset) Width() int { return d.width }

func (d *Dataset) variable(name string) (Variable, error) {
	for _, v := range d.variables {
		if v.Name == name {
			return v, nil
		}
	}
	return Variable{}, errors.Wrapf(ErrVariable, "%q", name)
}

// Frame returns the columns of one variable as a table indexed by Unix
// time, with columns numbered from 1.
func (d *Dataset) Frame(name string) (*prms.DataFrame, error) {
	v, err := d.variable(name)
	if err != nil {
		return nil, err
	}
	rows := len(d.times)
	vals := make([]float64, 0, rows*v.Count)
	for i := 0; i < rows; i++ {
		start := i*d.width + v.Offset
		vals = append(vals, d.values[start:start+v.Count]...)
	}
	data, err := prms.NewArray(prms.DataTypeDouble, []int{rows, v.Count}, vals)
	if err != nil {
		return nil, err
	}
	index := make([]int64, rows)
	for i, t := range d.times {
		index[i] = t.Unix()
	}
	cols := make([]string, v.Count)
	for i := range cols {
		cols[i] = strconv.Itoa(i + 1)
	}
	return &prms.DataFrame{IndexName: "time", Index: index, Columns: cols, Data: data}, nil
}

// NextBatch returns the next batchSize rows as a [rows, width] tensor.
// Returns io.EOF if there is no more data.
func (d *Dataset) NextBatch(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, errors.Wrapf(prms.ErrOutOfRange, "batch size %d", batchSize)
	}
	if d.CurrentIndex >= len(d.times) {
		return nil, io.EOF
	}
	start := d.CurrentIndex
	end := min(start+batchSize, len(d.times))
	batch := append([]float64(nil), d.values[start*d.width:end*d.width]...)
	d.CurrentIndex = end
	return tensors.FromFlatDataAndDimensions(batch, end-start, d.width), nil
}

// Reset rewinds batch iteration to the first row.
func (d *Dataset) Reset() { d.CurrentIndex = 0 }
