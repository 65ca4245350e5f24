package prms

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Dimension is a named, sized axis. Names come from a fixed registry and
// the reserved names one, nmonths and ndays are pinned to 1, 12 and 366.
type Dimension struct {
	name        string
	size        int
	Description string
}

// NewDimension returns a dimension with the given name and size. A size
// request that disagrees with a reserved size is reported in the returned
// diagnostics and the reserved size is used.
func NewDimension(name string, size int) (*Dimension, Diagnostics, error) {
	if !ValidDimensionName(name) {
		return nil, nil, errors.Wrapf(ErrInvalidDimensionName, "%q", name)
	}
	d := &Dimension{name: name}
	diags, err := d.SetSize(size)
	if err != nil {
		return nil, diags, err
	}
	return d, diags, nil
}

func (d *Dimension) Name() string { return d.name }
func (d *Dimension) Size() int    { return d.size }

// Reserved reports whether the dimension has a fixed size.
func (d *Dimension) Reserved() bool {
	_, ok := reservedSizes[d.name]
	return ok
}

// SetSize sets the size of the dimension.
func (d *Dimension) SetSize(size int) (Diagnostics, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrNegativeSize, "dimension %s: %d", d.name, size)
	}
	fixed, ok := reservedSizes[d.name]
	if !ok {
		d.size = size
		return nil, nil
	}
	d.size = fixed
	if size != fixed {
		var diags Diagnostics
		return diags.report(LevelWarning, CodeReservedSize, d.name,
			"dimension has fixed size %d; requested size %d ignored", fixed, size), nil
	}
	return nil, nil
}

// Increment grows the dimension by delta.
func (d *Dimension) Increment(delta int) (Diagnostics, error) {
	return d.SetSize(d.size + delta)
}

// Decrement shrinks the dimension by delta. Going below zero fails and
// leaves the size unchanged.
func (d *Dimension) Decrement(delta int) (Diagnostics, error) {
	if d.size-delta < 0 {
		return nil, errors.Wrapf(ErrNegativeSize, "dimension %s: %d - %d", d.name, d.size, delta)
	}
	return d.SetSize(d.size - delta)
}

func (d *Dimension) String() string {
	return fmt.Sprintf("Dimension(name=%s, size=%d)", d.name, d.size)
}
