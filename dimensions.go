package prms

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Dimensions is an ordered, unique-keyed collection of Dimension values.
// Declaration order is axis order: the dimension at position k is array
// axis k of any parameter bound to the collection.
type Dimensions struct {
	dims        []*Dimension
	index       map[string]int
	skipInvalid bool
}

// DimensionsOption configures a Dimensions collection.
type DimensionsOption func(*Dimensions)

// SkipInvalidNames makes Add and Grow report an unrecognized dimension
// name as a warning and skip it instead of failing.
func SkipInvalidNames() DimensionsOption {
	return func(ds *Dimensions) { ds.skipInvalid = true }
}

// NewDimensions returns an empty collection.
func NewDimensions(opts ...DimensionsOption) *Dimensions {
	ds := &Dimensions{index: make(map[string]int)}
	for _, opt := range opts {
		opt(ds)
	}
	return ds
}

// Len returns the number of declared dimensions.
func (ds *Dimensions) Len() int {
	return len(ds.dims)
}

// Add appends a dimension. Adding a name that already exists is a no-op.
// A size of zero for a reserved name means "use the reserved size".
func (ds *Dimensions) Add(name string, size int) (Diagnostics, error) {
	if ds.Exists(name) {
		return nil, nil
	}
	if ds.skipInvalid && !ValidDimensionName(name) {
		var diags Diagnostics
		return diags.report(LevelWarning, CodeInvalidDimension, name, "unrecognized dimension name; skipped"), nil
	}
	if fixed, ok := reservedSizes[name]; ok && size == 0 {
		size = fixed
	}
	d, diags, err := NewDimension(name, size)
	if err != nil {
		return diags, err
	}
	ds.append(d)
	return diags, nil
}

func (ds *Dimensions) append(d *Dimension) {
	if ds.index == nil {
		ds.index = make(map[string]int)
	}
	ds.index[d.name] = len(ds.dims)
	ds.dims = append(ds.dims, d)
}

// Grow adds the dimension if absent; otherwise a non-reserved dimension
// accumulates size. This builds a combined size from regional sources.
func (ds *Dimensions) Grow(name string, size int) (Diagnostics, error) {
	d, err := ds.Get(name)
	if err != nil {
		return ds.Add(name, size)
	}
	if d.Reserved() {
		return nil, nil
	}
	return d.Increment(size)
}

// Remove deletes the named dimension if it exists.
func (ds *Dimensions) Remove(name string) {
	pos, ok := ds.index[name]
	if !ok {
		return
	}
	ds.dims = append(ds.dims[:pos], ds.dims[pos+1:]...)
	delete(ds.index, name)
	for i := pos; i < len(ds.dims); i++ {
		ds.index[ds.dims[i].name] = i
	}
}

// Exists reports whether the named dimension is declared.
func (ds *Dimensions) Exists(name string) bool {
	_, ok := ds.index[name]
	return ok
}

// Get returns the named dimension.
func (ds *Dimensions) Get(name string) (*Dimension, error) {
	pos, ok := ds.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "dimension %s", name)
	}
	return ds.dims[pos], nil
}

// At returns the dimension at the 0-based position pos.
func (ds *Dimensions) At(pos int) (*Dimension, error) {
	if pos < 0 || pos >= len(ds.dims) {
		return nil, errors.Wrapf(ErrOutOfRange, "no dimension at position %d of %d", pos, len(ds.dims))
	}
	return ds.dims[pos], nil
}

// Position returns the axis position of the named dimension.
func (ds *Dimensions) Position(name string) (int, error) {
	pos, ok := ds.index[name]
	if !ok {
		return -1, errors.Wrapf(ErrNotFound, "dimension %s", name)
	}
	return pos, nil
}

// Names returns the dimension names in declaration order.
func (ds *Dimensions) Names() []string {
	names := make([]string, len(ds.dims))
	for i, d := range ds.dims {
		names[i] = d.name
	}
	return names
}

// Shape returns the dimension sizes in declaration order.
func (ds *Dimensions) Shape() []int {
	shape := make([]int, len(ds.dims))
	for i, d := range ds.dims {
		shape[i] = d.size
	}
	return shape
}

// TotalSize returns the product of all dimension sizes.
func (ds *Dimensions) TotalSize() int {
	return shapeSize(ds.Shape())
}

// Intersect returns the names from candidates that are declared, in
// candidate order.
func (ds *Dimensions) Intersect(candidates ...string) []string {
	var out []string
	for _, c := range candidates {
		if ds.Exists(c) {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy.
func (ds *Dimensions) Clone() *Dimensions {
	out := NewDimensions()
	out.skipInvalid = ds.skipInvalid
	for _, d := range ds.dims {
		cp := *d
		out.append(&cp)
	}
	return out
}

// ToStructure returns the size-keyed serialization of the collection.
func (ds *Dimensions) ToStructure() DimensionsStructure {
	out := make(DimensionsStructure, len(ds.dims))
	for i, d := range ds.dims {
		out[i] = DimensionEntry{Name: d.name, Size: d.size}
	}
	return out
}

func (ds *Dimensions) String() string {
	var sb strings.Builder
	for _, d := range ds.dims {
		sb.WriteString("    ")
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

type xmlDimension struct {
	Name     string `xml:"name,attr"`
	SizeAttr string `xml:"size,attr,omitempty"`
	SizeElem string `xml:"size,omitempty"`
}

type xmlDimensions struct {
	XMLName    xml.Name       `xml:"dimensions"`
	Dimensions []xmlDimension `xml:"dimension"`
}

// MarshalXML writes <dimensions><dimension name=".." size=".."/>...</dimensions>.
func (ds *Dimensions) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	out := xmlDimensions{Dimensions: make([]xmlDimension, len(ds.dims))}
	for i, d := range ds.dims {
		out.Dimensions[i] = xmlDimension{Name: d.name, SizeAttr: strconv.Itoa(d.size)}
	}
	return e.Encode(out)
}

// AddFromXML merges every <dimension> found inside a <dimensions> element
// of r. Existing non-reserved dimensions grow by the fragment's size.
func (ds *Dimensions) AddFromXML(r io.Reader) (Diagnostics, error) {
	var diags Diagnostics
	dec := xml.NewDecoder(r)
	var parents []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return diags, nil
		}
		if err != nil {
			return diags, errors.Wrap(err, "failed to read dimensions xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "dimension" || len(parents) == 0 || parents[len(parents)-1] != "dimensions" {
				parents = append(parents, t.Name.Local)
				continue
			}
			var xd xmlDimension
			if err := dec.DecodeElement(&xd, &t); err != nil {
				return diags, errors.Wrap(err, "failed to decode dimension")
			}
			size, err := xd.size()
			if err != nil {
				return diags, err
			}
			d, err := ds.Grow(xd.Name, size)
			diags = append(diags, d...)
			if err != nil {
				return diags, err
			}
		case xml.EndElement:
			if len(parents) > 0 {
				parents = parents[:len(parents)-1]
			}
		}
	}
}

func (xd xmlDimension) size() (int, error) {
	raw := strings.TrimSpace(xd.SizeAttr)
	if raw == "" {
		raw = strings.TrimSpace(xd.SizeElem)
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidValue, "dimension %s size %q", xd.Name, raw)
	}
	return n, nil
}
