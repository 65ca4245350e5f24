package prms

import (
	"github.com/cockroachdb/errors"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Tensor returns the numeric data as a tensor of the declared shape.
// Integer data becomes int64 and Float or Double data float64.
func (a *Array) Tensor() (*tensors.Tensor, error) {
	switch v := a.values.(type) {
	case []int64:
		return tensors.FromFlatDataAndDimensions(v, a.Shape()...), nil
	case []float64:
		return tensors.FromFlatDataAndDimensions(v, a.Shape()...), nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "no tensor for %s data", a.dtype)
}

// Tensor returns the parameter data as a tensor shaped by its dimensions,
// axis k being the k-th declared dimension.
func (p *Parameter) Tensor() (*tensors.Tensor, error) {
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", p.name)
	}
	t, err := p.data.Tensor()
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %s", p.name)
	}
	return t, nil
}
