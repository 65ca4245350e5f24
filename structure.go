package prms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
)

// DimensionEntry is one dimension of a serialized parameter.
type DimensionEntry struct {
	Name string
	Size int
}

// DimensionsStructure is the serialized form of a Dimensions collection.
// It encodes as a JSON object {"<name>": {"size": n}, ...} whose key order
// is the axis order.
type DimensionsStructure []DimensionEntry

type dimensionSize struct {
	Size int `json:"size"`
}

func (s DimensionsStructure) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, `:{"size":%d}`, e.Size)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object token by token to keep key order.
func (s *DimensionsStructure) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Wrapf(ErrInvalidValue, "dimensions: expected object, got %v", tok)
	}
	var out DimensionsStructure
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Wrapf(ErrInvalidValue, "dimensions: unexpected key %v", tok)
		}
		var ds dimensionSize
		if err := dec.Decode(&ds); err != nil {
			return errors.Wrapf(err, "dimension %s", name)
		}
		out = append(out, DimensionEntry{Name: name, Size: ds.Size})
	}
	*s = out
	return nil
}

// Dimensions builds a collection from the structure.
func (s DimensionsStructure) Dimensions() (*Dimensions, Diagnostics, error) {
	ds := NewDimensions()
	var diags Diagnostics
	for _, e := range s {
		d, err := ds.Add(e.Name, e.Size)
		diags = append(diags, d...)
		if err != nil {
			return nil, diags, err
		}
	}
	return ds, diags, nil
}

// Structure is the nested serialization of one parameter. Data is
// flattened in column-major order.
type Structure struct {
	Name       string              `json:"name"`
	Datatype   DataType            `json:"datatype"`
	Dimensions DimensionsStructure `json:"dimensions"`
	Data       []any               `json:"data"`
}

// ToStructure returns the parameter as a Structure. A parameter without
// data has a nil Data list.
func (p *Parameter) ToStructure() Structure {
	s := Structure{
		Name:       p.name,
		Datatype:   p.datatype,
		Dimensions: p.dimensions.ToStructure(),
	}
	if p.data != nil {
		s.Data = p.data.List(OrderF)
	}
	return s
}

// ParameterFromStructure rebuilds a parameter from s. Metadata other than
// the datatype is taken from meta.
func ParameterFromStructure(s Structure, meta Metadata) (*Parameter, Diagnostics, error) {
	meta.Datatype = s.Datatype
	p, err := NewParameter(s.Name, meta)
	if err != nil {
		return nil, nil, err
	}
	dims, diags, err := s.Dimensions.Dimensions()
	if err != nil {
		return nil, diags, errors.Wrapf(err, "parameter %s", s.Name)
	}
	p.dimensions = dims
	if s.Data == nil {
		return p, diags, nil
	}
	raw, err := anyStrings(s.Data)
	if err != nil {
		return nil, diags, errors.Wrapf(err, "parameter %s", s.Name)
	}
	d, err := p.SetData(raw)
	return p, append(diags, d...), err
}

// anyStrings renders decoded JSON values as text for datatype coercion.
func anyStrings(values []any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case int64:
			out[i] = strconv.FormatInt(x, 10)
		case int:
			out[i] = strconv.Itoa(x)
		case json.Number:
			out[i] = x.String()
		default:
			return nil, errors.Wrapf(ErrInvalidValue, "%T at position %d", v, i)
		}
	}
	return out, nil
}
