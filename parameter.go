package prms

import (
	"encoding/xml"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Metadata describes a parameter independent of its dimensions and data.
// Bounds and default are given as text and coerced by datatype.
type Metadata struct {
	Datatype    DataType
	Units       string
	Model       string
	Description string
	Help        string
	Modules     []string
	Minimum     string
	Maximum     string
	Default     string
}

// Parameter is a named, typed, dimensioned array of model configuration
// values. Dimensions must be declared before data is set; the data shape is
// always the declared dimension sizes in declaration order, rank 1 or 2.
type Parameter struct {
	name     string
	datatype DataType

	Units       string
	Model       string
	Description string
	Help        string
	Modules     []string

	minimum Scalar
	maximum Scalar
	def     Scalar

	dimensions *Dimensions
	data       *Array
}

// NewParameter returns a parameter with no dimensions and no data.
func NewParameter(name string, meta Metadata) (*Parameter, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	p := &Parameter{
		name:        name,
		Units:       meta.Units,
		Model:       meta.Model,
		Description: meta.Description,
		Help:        meta.Help,
		Modules:     slices.Clone(meta.Modules),
		dimensions:  NewDimensions(),
	}
	if err := p.SetDatatype(meta.Datatype); err != nil {
		return nil, err
	}
	p.SetMinimum(meta.Minimum)
	p.SetMaximum(meta.Maximum)
	if err := p.SetDefault(meta.Default); err != nil {
		return nil, errors.Wrapf(err, "parameter %s", name)
	}
	return p, nil
}

func (p *Parameter) Name() string            { return p.name }
func (p *Parameter) Datatype() DataType      { return p.datatype }
func (p *Parameter) Minimum() Scalar         { return p.minimum }
func (p *Parameter) Maximum() Scalar         { return p.maximum }
func (p *Parameter) Default() Scalar         { return p.def }
func (p *Parameter) Dimensions() *Dimensions { return p.dimensions }
func (p *Parameter) NDims() int              { return p.dimensions.Len() }
func (p *Parameter) HasData() bool           { return p.data != nil }

// Metadata returns the parameter's metadata, suitable for creating a
// parameter with the same definition.
func (p *Parameter) Metadata() Metadata {
	return Metadata{
		Datatype:    p.datatype,
		Units:       p.Units,
		Model:       p.Model,
		Description: p.Description,
		Help:        p.Help,
		Modules:     slices.Clone(p.Modules),
		Minimum:     p.minimum.String(),
		Maximum:     p.maximum.String(),
		Default:     p.def.String(),
	}
}

// SetDatatype sets the datatype. DataTypeUnset is accepted.
func (p *Parameter) SetDatatype(dt DataType) error {
	if dt != DataTypeUnset && !dt.Valid() {
		return errors.Wrapf(ErrInvalidDatatype, "parameter %s: %d", p.name, int(dt))
	}
	p.datatype = dt
	return nil
}

func (p *Parameter) SetMinimum(raw string) { p.minimum = parseBound(p.datatype, raw) }
func (p *Parameter) SetMaximum(raw string) { p.maximum = parseBound(p.datatype, raw) }

func (p *Parameter) SetDefault(raw string) error {
	s, err := parseDefault(p.datatype, raw)
	if err != nil {
		return err
	}
	p.def = s
	return nil
}

// Data returns the parameter's data.
func (p *Parameter) Data() (*Array, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	return p.data, nil
}

// fromFlat coerces a flat column-major list into an array of the declared
// rank. Rank-2 data is filled as (-1, size of the second dimension).
func (p *Parameter) fromFlat(values any) (*Array, error) {
	if p.NDims() == 0 {
		return nil, errors.Wrapf(ErrNoDimensions, "parameter %s", p.name)
	}
	if !p.datatype.Valid() {
		return nil, errors.Wrapf(ErrInvalidDatatype, "parameter %s: %s", p.name, p.datatype)
	}
	flat, err := coerce(p.datatype, values)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %s", p.name)
	}
	var shape []int
	switch p.NDims() {
	case 1:
		shape = []int{-1}
	case 2:
		second, _ := p.dimensions.At(1)
		shape = []int{-1, second.Size()}
	default:
		return nil, errors.Wrapf(ErrRankMismatch, "parameter %s: %d dimensions are not supported", p.name, p.NDims())
	}
	arr, err := FromFlat(p.datatype, shape, flat, OrderF)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %s", p.name)
	}
	return arr, nil
}

// SetData replaces the data with a flat list of values in column-major
// order: []string (coerced by datatype), []int64, []int or []float64.
// A parameter dimensioned by "one" keeps only the first value.
func (p *Parameter) SetData(values any) (Diagnostics, error) {
	arr, err := p.fromFlat(values)
	if err != nil {
		return nil, err
	}
	var diags Diagnostics
	if p.dimensions.Exists("one") {
		if arr.Size() == 0 {
			return nil, errors.Wrapf(ErrSizeMismatch, "parameter %s with dimension one has no value", p.name)
		}
		if arr.Size() > 1 {
			diags = diags.report(LevelWarning, CodeScalarTruncated, p.name,
				"dimension \"one\" has %d values; using first value only", arr.Size())
		}
		arr = arr.first(p.NDims())
	}
	p.data = arr
	return diags, nil
}

// SetArray replaces the data with an already shaped array. Its rank must
// equal the number of declared dimensions.
func (p *Parameter) SetArray(a *Array) error {
	if p.NDims() == 0 {
		return errors.Wrapf(ErrNoDimensions, "parameter %s", p.name)
	}
	if a.Rank() != p.NDims() {
		return errors.Wrapf(ErrRankMismatch, "parameter %s: new data has %d dimensions, declared %d",
			p.name, a.Rank(), p.NDims())
	}
	if a.DataType() != p.datatype {
		return errors.Wrapf(ErrInvalidDatatype, "parameter %s: %s data for %s parameter",
			p.name, a.DataType(), p.datatype)
	}
	p.data = a
	return nil
}

// Concat appends a chunk of flat data along the leading axis, as when a
// parameter is assembled region by region. Without existing data it
// behaves as SetData. A parameter dimensioned by "one" accepts only its
// current value.
func (p *Parameter) Concat(values any) (Diagnostics, error) {
	if p.NDims() == 0 {
		return nil, errors.Wrapf(ErrNoDimensions, "parameter %s", p.name)
	}
	if p.data == nil {
		return p.SetData(values)
	}
	arr, err := p.fromFlat(values)
	if err != nil {
		return nil, err
	}
	if p.dimensions.Exists("one") {
		if arr.Size() == 0 {
			return nil, nil
		}
		have, _ := p.data.flatAt(0)
		got, _ := arr.flatAt(0)
		if have != got {
			return nil, errors.Wrapf(ErrConcat,
				"parameter %s with dimension \"one\" already has value %v; cannot concatenate %v", p.name, have, got)
		}
		return nil, nil
	}
	out, err := p.data.Concat(arr)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %s", p.name)
	}
	p.data = out
	return nil, nil
}

// HasCorrectSize reports whether the element count equals the product of
// the declared dimension sizes.
func (p *Parameter) HasCorrectSize() bool {
	if p.data == nil {
		return false
	}
	return p.data.Size() == p.dimensions.TotalSize()
}

// Check returns "<name>: OK" or "<name>: BAD" from HasCorrectSize.
func (p *Parameter) Check() string {
	if p.HasCorrectSize() {
		return p.name + ": OK"
	}
	return p.name + ": BAD"
}

// CheckValues reports whether all values lie within [minimum, maximum].
// NaN is out of range. Without two numeric bounds there is nothing to
// check and it passes.
func (p *Parameter) CheckValues() bool {
	lo, okLo := p.minimum.Float()
	hi, okHi := p.maximum.Float()
	if !okLo || !okHi || p.data == nil {
		return true
	}
	vals, ok := p.data.Float64s()
	if !ok {
		return true
	}
	for _, v := range vals {
		if math.IsNaN(v) || v < lo || v > hi {
			return false
		}
	}
	return true
}

// Reshape changes the dimensionality of the parameter, broadcasting the
// existing data. Two transitions are handled: from "one" to one or two
// dimensions, and from a single dimension to two dimensions that include
// it. Any other request is reported and leaves the parameter unchanged.
func (p *Parameter) Reshape(newDims *Dimensions) (Diagnostics, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	var diags Diagnostics
	if p.NDims() != 1 || newDims.Len() == 0 || newDims.Len() > 2 {
		return diags.report(LevelError, CodeUnsupportedReshape, p.name,
			"cannot reshape %v to %v", p.dimensions.Names(), newDims.Names()), nil
	}
	shape := newDims.Shape()
	old := p.dimensions.Names()[0]

	var arr *Array
	var err error
	switch {
	case old == "one":
		arr, err = p.data.BroadcastTo(shape...)
	case !newDims.Exists(old):
		return diags.report(LevelError, CodeUnsupportedReshape, p.name,
			"new dimensions %v do not include %s", newDims.Names(), old), nil
	case newDims.Len() == 1:
		return diags.report(LevelError, CodeUnsupportedReshape, p.name,
			"cannot reshape from 1D array to 1D array"), nil
	default:
		pos, _ := newDims.Position(old)
		if pos == 1 {
			arr, err = p.data.BroadcastTo(shape...)
		} else {
			var rev *Array
			rev, err = p.data.BroadcastTo(shape[1], shape[0])
			if err == nil {
				arr = rev.Transpose()
			}
		}
	}
	if err != nil {
		return diags, errors.Wrapf(err, "parameter %s", p.name)
	}

	p.dimensions.Remove(old)
	for _, name := range newDims.Names() {
		d, _ := newDims.Get(name)
		added, err := p.dimensions.Add(name, d.Size())
		diags = append(diags, added...)
		if err != nil {
			return diags, err
		}
	}
	p.data = arr
	return diags, nil
}

// SubsetByIndex keeps the positions idx, in the given order, along the
// axis bound to dim and updates that dimension's size. A one-element
// parameter cannot be subset; the request is reported and ignored. Axes
// of fixed-size dimensions cannot be reduced.
func (p *Parameter) SubsetByIndex(dim string, idx []int) (Diagnostics, error) {
	return p.reduce(dim, idx, (*Array).Take)
}

// RemoveByIndex deletes the positions idx along the axis bound to dim and
// updates that dimension's size.
func (p *Parameter) RemoveByIndex(dim string, idx []int) (Diagnostics, error) {
	return p.reduce(dim, idx, (*Array).Delete)
}

func (p *Parameter) reduce(dim string, idx []int, op func(*Array, int, []int) (*Array, error)) (Diagnostics, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	var diags Diagnostics
	if p.data.Size() == 1 {
		return diags.report(LevelWarning, CodeScalarSubset, p.name, "cannot reduce array of size one"), nil
	}
	pos, err := p.dimensions.Position(dim)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %s", p.name)
	}
	d, _ := p.dimensions.At(pos)
	if d.Reserved() {
		return nil, errors.Wrapf(ErrUnsupported, "parameter %s: dimension %s has a fixed size", p.name, dim)
	}
	arr, err := op(p.data, pos, idx)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %s", p.name)
	}
	p.data = arr
	return d.SetSize(arr.shape[pos])
}

// Unique returns the sorted distinct values of the data.
func (p *Parameter) Unique() (*Array, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	return p.data.Unique(), nil
}

// IndexMap maps each value of an identifier parameter to its position.
func (p *Parameter) IndexMap() (map[int64]int, error) {
	ids, err := p.ids()
	if err != nil {
		return nil, err
	}
	m := make(map[int64]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m, nil
}

// ids returns the flattened values of a numeric parameter as int64.
func (p *Parameter) ids() ([]int64, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	switch v := p.data.Flatten(OrderF).(type) {
	case []int64:
		return v, nil
	case []float64:
		return convert[float64, int64](v), nil
	}
	return nil, errors.Wrapf(ErrInvalidDatatype, "parameter %s is not numeric", p.name)
}

// ToList returns the data flattened in column-major order, the inverse of
// SetData.
func (p *Parameter) ToList() ([]any, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	return p.data.List(OrderF), nil
}

// ToParamDB renders the paramDb format: "$id,<name>" then one
// "<1-based index>,<value>" line per value.
func (p *Parameter) ToParamDB() (string, error) {
	if p.data == nil {
		return "", errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "$id,%s\n", p.name)
	for i, v := range p.data.Format(OrderF) {
		fmt.Fprintf(&sb, "%d,%s\n", i+1, v)
	}
	return sb.String(), nil
}

type xmlParameter struct {
	XMLName    xml.Name    `xml:"parameter"`
	Name       string      `xml:"name,attr"`
	Version    string      `xml:"version,attr"`
	Dimensions *Dimensions `xml:"dimensions"`
}

// MarshalXML writes <parameter name=".." version="ver"> with its dimensions.
func (p *Parameter) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.Encode(xmlParameter{Name: p.name, Version: "ver", Dimensions: p.dimensions})
}

func (p *Parameter) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name: %s\ndatatype: %s\nunits: %s\nndims: %d\ndescription: %s\nhelp: %s\n",
		p.name, p.datatype, p.Units, p.NDims(), p.Description, p.Help)
	if p.minimum.IsSet() {
		fmt.Fprintf(&sb, "Minimum value: %s\n", p.minimum)
	}
	if p.maximum.IsSet() {
		fmt.Fprintf(&sb, "Maximum value: %s\n", p.maximum)
	}
	if p.def.IsSet() {
		fmt.Fprintf(&sb, "Default value: %s\n", p.def)
	}
	sb.WriteString("Size of data: ")
	if p.data != nil {
		fmt.Fprintf(&sb, "%d\n", p.data.Size())
	} else {
		sb.WriteString("<empty>\n")
	}
	if len(p.Modules) > 0 {
		fmt.Fprintf(&sb, "Modules: %s\n", strings.Join(p.Modules, " "))
	}
	if p.NDims() > 0 {
		sb.WriteString("Dimensions:\n")
		sb.WriteString(p.dimensions.String())
	}
	return sb.String()
}
