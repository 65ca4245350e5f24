package prms

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Parameters is an ordered, unique-keyed collection of parameters. Some
// members act as identifier tables (nhm_id, nhm_seg) for the others; the
// collection resolves those references when exporting or subsetting.
type Parameters struct {
	params  []*Parameter
	index   map[string]int
	catalog *Catalog
}

// Option configures a Parameters collection.
type Option func(*Parameters)

// WithCatalog attaches the catalog used by AddFromCatalog and Validate.
func WithCatalog(c *Catalog) Option {
	return func(ps *Parameters) { ps.catalog = c }
}

// NewParameters returns an empty collection.
func NewParameters(opts ...Option) *Parameters {
	ps := &Parameters{index: make(map[string]int)}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Catalog returns the attached catalog, or nil.
func (ps *Parameters) Catalog() *Catalog { return ps.catalog }

func (ps *Parameters) Len() int { return len(ps.params) }

// Add creates an empty parameter. It fails if the name is empty or taken.
func (ps *Parameters) Add(name string, meta Metadata) (*Parameter, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if ps.Exists(name) {
		return nil, errors.Wrapf(ErrParameterExists, "parameter %s", name)
	}
	p, err := NewParameter(name, meta)
	if err != nil {
		return nil, err
	}
	ps.insert(p)
	return p, nil
}

// AddFrom creates an empty parameter with the metadata of info. Dimensions
// and data are not copied.
func (ps *Parameters) AddFrom(name string, info *Parameter) (*Parameter, error) {
	return ps.Add(name, info.Metadata())
}

// AddFromCatalog creates a parameter from its catalog definition, with the
// catalog's default dimensions declared.
func (ps *Parameters) AddFromCatalog(name string) (*Parameter, Diagnostics, error) {
	if ps.catalog == nil {
		return nil, nil, errors.Wrapf(ErrNotFound, "no catalog for parameter %s", name)
	}
	if ps.Exists(name) {
		return nil, nil, errors.Wrapf(ErrParameterExists, "parameter %s", name)
	}
	p, diags, err := ps.catalog.NewParameter(name)
	if err != nil {
		return nil, diags, err
	}
	ps.insert(p)
	return p, diags, nil
}

func (ps *Parameters) insert(p *Parameter) {
	if ps.index == nil {
		ps.index = make(map[string]int)
	}
	ps.index[p.name] = len(ps.params)
	ps.params = append(ps.params, p)
}

// Get returns the named parameter.
func (ps *Parameters) Get(name string) (*Parameter, error) {
	pos, ok := ps.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "parameter %s", name)
	}
	return ps.params[pos], nil
}

func (ps *Parameters) Exists(name string) bool {
	_, ok := ps.index[name]
	return ok
}

// Remove deletes the named parameters. Names that do not exist are ignored.
func (ps *Parameters) Remove(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := ps.params[:0]
	for _, p := range ps.params {
		if _, ok := drop[p.name]; !ok {
			kept = append(kept, p)
		}
	}
	clear(ps.params[len(kept):])
	ps.params = kept
	ps.index = make(map[string]int, len(kept))
	for i, p := range kept {
		ps.index[p.name] = i
	}
}

// Names returns the parameter names in insertion order.
func (ps *Parameters) Names() []string {
	names := make([]string, len(ps.params))
	for i, p := range ps.params {
		names[i] = p.name
	}
	return names
}

// List returns the parameters in insertion order.
func (ps *Parameters) List() []*Parameter {
	return slices.Clone(ps.params)
}

// Check reports, in name order, the size check of every parameter and any
// values outside their bounds. It also compares the rows of snarea_curve
// with the curves referenced by hru_deplcrv. The report is one line per
// finding.
func (ps *Parameters) Check() (string, Diagnostics) {
	var sb strings.Builder
	var diags Diagnostics
	names := ps.Names()
	slices.Sort(names)
	for _, name := range names {
		p, _ := ps.Get(name)
		sb.WriteString(p.Check())
		sb.WriteString("\n")
		if !p.CheckValues() {
			lo, hi, _ := p.data.Range()
			diags = diags.report(LevelWarning, CodeOutOfRange, name,
				"value(s) (range: %v, %v) outside the valid range of (%s, %s)", lo, hi, p.minimum, p.maximum)
			fmt.Fprintf(&sb, "    WARNING: %s\n", diags[len(diags)-1].Message)
		}
		if name == SnowAreaCurve {
			if d := ps.checkCurveTable(p); d != nil {
				diags = append(diags, d...)
				fmt.Fprintf(&sb, "    WARNING: %s\n", d[0].Message)
			}
		}
	}
	return sb.String(), diags
}

func (ps *Parameters) checkCurveTable(curve *Parameter) Diagnostics {
	deplcrv, err := ps.Get(HRUDeplCurve)
	if err != nil || curve.data == nil || deplcrv.data == nil {
		return nil
	}
	rows := curve.data.Size() / SnowCurveWidth
	used := deplcrv.data.Unique().Size()
	var diags Diagnostics
	switch {
	case rows > used:
		return diags.report(LevelWarning, CodeCurveTable, SnowAreaCurve,
			"%d curves defined but only %d referenced by %s", rows, used, HRUDeplCurve)
	case rows < used:
		return diags.report(LevelWarning, CodeCurveTable, SnowAreaCurve,
			"%d curves defined but %d referenced by %s", rows, used, HRUDeplCurve)
	}
	return nil
}

// Validate reports parameters that the attached catalog does not define
// or defines with another datatype.
func (ps *Parameters) Validate() Diagnostics {
	if ps.catalog == nil {
		return nil
	}
	var diags Diagnostics
	for _, p := range ps.params {
		e, err := ps.catalog.Get(p.name)
		if err != nil {
			diags = diags.report(LevelWarning, CodeUnknownParameter, p.name, "parameter is not in the catalog")
			continue
		}
		if p.datatype != e.Metadata.Datatype {
			diags = diags.report(LevelWarning, CodeUnknownParameter, p.name,
				"datatype %s differs from catalog datatype %s", p.datatype, e.Metadata.Datatype)
		}
	}
	return diags
}

// GetDataFrame returns the parameter as a table. Per-HRU parameters are
// indexed by nhm_id, or by a 1-based "hru" index when nhm_id is absent.
// Per-segment parameters are indexed by nhm_seg, which must exist.
// snarea_curve is laid out as one row of 11 values per curve.
func (ps *Parameters) GetDataFrame(name string) (*DataFrame, error) {
	p, err := ps.Get(name)
	if err != nil {
		return nil, err
	}
	df, err := p.AsDataFrame()
	if err != nil {
		return nil, err
	}
	switch {
	case len(p.dimensions.Intersect(hruDimensions...)) > 0:
		if name == HRUIDParam {
			return df, nil
		}
		idp, err := ps.Get(HRUIDParam)
		if err != nil {
			ids := make([]int64, df.Rows())
			for i := range ids {
				ids[i] = int64(i + 1)
			}
			return df, df.reindex(hruIndexName, ids)
		}
		ids, err := idp.ids()
		if err != nil {
			return nil, err
		}
		if err := df.reindex(HRUIDParam, ids); err != nil {
			return nil, errors.Wrapf(err, "parameter %s", name)
		}
	case p.dimensions.Exists(SegmentDimension):
		segp, err := ps.Get(SegmentIDParam)
		if err != nil {
			return nil, errors.Wrapf(err, "index for parameter %s", name)
		}
		ids, err := segp.ids()
		if err != nil {
			return nil, err
		}
		if err := df.reindex(SegmentIDParam, ids); err != nil {
			return nil, errors.Wrapf(err, "parameter %s", name)
		}
	case name == SnowAreaCurve:
		return curveFrame(p)
	}
	return df, nil
}

func curveFrame(p *Parameter) (*DataFrame, error) {
	table, err := p.data.Reshape(-1, SnowCurveWidth)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %s", p.name)
	}
	cols := make([]string, SnowCurveWidth)
	for i := range cols {
		cols[i] = strconv.Itoa(i + 1)
	}
	index := make([]int64, table.shape[0])
	for i := range index {
		index[i] = int64(i + 1)
	}
	return &DataFrame{IndexName: curveIndexName, Index: index, Columns: cols, Data: table}, nil
}

// GetSubset returns the rows of a parameter for the given global
// identifiers, in the order requested. Identifiers are nhm_id values for
// per-HRU parameters and nhm_seg values for per-segment parameters.
func (ps *Parameters) GetSubset(name string, globalIDs []int64) (*Array, error) {
	p, err := ps.Get(name)
	if err != nil {
		return nil, err
	}
	if p.data == nil {
		return nil, errors.Wrapf(ErrNoData, "parameter %s", name)
	}
	dims := p.dimensions.Intersect(append(slices.Clone(hruDimensions), SegmentDimension)...)
	if len(dims) == 0 {
		return nil, errors.Wrapf(ErrUnsupported, "parameter %s has no global identifier dimension", name)
	}
	dim := dims[0]
	idName := HRUIDParam
	if dim == SegmentDimension {
		idName = SegmentIDParam
	}
	idp, err := ps.Get(idName)
	if err != nil {
		return nil, errors.Wrapf(err, "index for parameter %s", name)
	}
	lookup, err := idp.IndexMap()
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(globalIDs))
	for i, id := range globalIDs {
		pos, ok := lookup[id]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "%s %d", idName, id)
		}
		idx[i] = pos
	}
	axis, _ := p.dimensions.Position(dim)
	return p.data.Take(axis, idx)
}

// RemoveByGlobalID removes the HRUs with the given nhm_id values from
// every per-HRU parameter and keeps the cross-references consistent:
//
//   - hru_segment_nhm keeps values still present in nhm_seg, keeps 0 and
//     marks any other value -1.
//   - hru_segment is recomputed from hru_segment_nhm as the 1-based position
//     in nhm_seg, 0 or -1.
//   - hru_deplcrv is renumbered densely from 1 and snarea_curve is compacted
//     to the curves still referenced.
//
// Removing segments is not supported; a request with segs is reported
// and the segments are left in place.
func (ps *Parameters) RemoveByGlobalID(hrus, segs []int64) (Diagnostics, error) {
	var diags Diagnostics
	if len(segs) > 0 {
		diags = diags.report(LevelWarning, CodeSegmentRemoval, SegmentIDParam,
			"removal of %d segment(s) by global id is not supported", len(segs))
	}
	if len(hrus) == 0 {
		return diags, nil
	}

	idp, err := ps.Get(HRUIDParam)
	if err != nil {
		return diags, err
	}
	segp, err := ps.Get(SegmentIDParam)
	if err != nil {
		return diags, err
	}
	ids, err := idp.ids()
	if err != nil {
		return diags, err
	}
	segIDs, err := segp.ids()
	if err != nil {
		return diags, err
	}

	// Every per-HRU parameter must be bound to a single HRU axis before
	// anything is changed.
	axes := make(map[string]string, len(ps.params))
	for _, p := range ps.params {
		dims := p.dimensions.Intersect(hruDimensions...)
		switch len(dims) {
		case 0:
			continue
		case 1:
			axes[p.name] = dims[0]
		default:
			return diags, errors.Wrapf(ErrUnsupported, "parameter %s has more than one HRU dimension %v", p.name, dims)
		}
	}

	drop := make(map[int64]struct{}, len(hrus))
	for _, id := range hrus {
		drop[id] = struct{}{}
	}
	keep := make([]int, 0, len(ids))
	for pos, id := range ids {
		if _, ok := drop[id]; !ok {
			keep = append(keep, pos)
		}
	}
	if err := ps.checkRemoval(axes, len(ids), keep); err != nil {
		return diags, err
	}

	segPos := make(map[int64]int, len(segIDs))
	for i := len(segIDs) - 1; i >= 0; i-- {
		segPos[segIDs[i]] = i
	}

	subset := func(p *Parameter) error {
		d, err := p.SubsetByIndex(axes[p.name], keep)
		diags = append(diags, d...)
		return err
	}

	if err := subset(idp); err != nil {
		return diags, err
	}

	var drainsTo []int64
	if p, err := ps.Get(HRUSegmentNHM); err == nil {
		if err := subset(p); err != nil {
			return diags, err
		}
		if drainsTo, err = p.ids(); err != nil {
			return diags, err
		}
		for i, seg := range drainsTo {
			if _, ok := segPos[seg]; !ok && seg != 0 {
				drainsTo[i] = -1
			}
		}
		if _, err := p.SetData(drainsTo); err != nil {
			return diags, err
		}
	}

	if p, err := ps.Get(HRUSegment); err == nil {
		if err := subset(p); err != nil {
			return diags, err
		}
		if drainsTo != nil {
			local := make([]int64, len(drainsTo))
			for i, seg := range drainsTo {
				switch pos, ok := segPos[seg]; {
				case ok:
					local[i] = int64(pos + 1)
				case seg == 0:
					local[i] = 0
				default:
					local[i] = -1
				}
			}
			if _, err := p.SetData(local); err != nil {
				return diags, err
			}
		}
	}

	for _, p := range ps.params {
		switch p.name {
		case HRUIDParam, HRUSegmentNHM, HRUSegment:
			continue
		}
		if _, ok := axes[p.name]; !ok || p.data == nil {
			continue
		}
		if err := subset(p); err != nil {
			return diags, err
		}
		if p.name == HRUDeplCurve {
			d, err := ps.compactCurves(p)
			diags = append(diags, d...)
			if err != nil {
				return diags, err
			}
		}
	}

	logger.Info("removed HRUs by global id",
		zap.Int("requested", len(hrus)),
		zap.Int("remaining", len(keep)))
	return diags, nil
}

// checkRemoval verifies that every per-HRU parameter can be subset to keep
// and that the surviving curve indices address rows of snarea_curve, so
// that RemoveByGlobalID fails before it changes anything.
func (ps *Parameters) checkRemoval(axes map[string]string, n int, keep []int) error {
	for _, p := range ps.params {
		axis, ok := axes[p.name]
		if !ok || p.data == nil || p.data.Size() == 1 {
			continue
		}
		pos, _ := p.dimensions.Position(axis)
		if p.data.shape[pos] != n {
			return errors.Wrapf(ErrSizeMismatch, "parameter %s: %s axis has %d entries, %s has %d",
				p.name, axis, p.data.shape[pos], HRUIDParam, n)
		}
	}

	deplcrv, err := ps.Get(HRUDeplCurve)
	if err != nil || deplcrv.data == nil {
		return nil
	}
	curve, err := ps.Get(SnowAreaCurve)
	if err != nil || curve.data == nil || curve.NDims() != 1 {
		return nil
	}
	if curve.data.Size()%SnowCurveWidth != 0 {
		return errors.Wrapf(ErrSizeMismatch, "parameter %s: %d values is not a table of %d columns",
			SnowAreaCurve, curve.data.Size(), SnowCurveWidth)
	}
	rows := int64(curve.data.Size() / SnowCurveWidth)
	values, err := deplcrv.ids()
	if err != nil {
		return err
	}
	for _, pos := range keep {
		if pos >= len(values) {
			continue
		}
		if v := values[pos]; v < 1 || v > rows {
			return errors.Wrapf(ErrOutOfRange, "parameter %s: curve %d at position %d, %s has %d curves",
				HRUDeplCurve, v, pos, SnowAreaCurve, rows)
		}
	}
	return nil
}

// compactCurves renumbers the curve indices of hru_deplcrv densely from 1
// in first-seen order and keeps only the referenced rows of snarea_curve.
func (ps *Parameters) compactCurves(deplcrv *Parameter) (Diagnostics, error) {
	var diags Diagnostics
	values, err := deplcrv.ids()
	if err != nil {
		return diags, err
	}
	renumber := make(map[int64]int64)
	var rows []int
	for _, v := range values {
		if _, ok := renumber[v]; !ok {
			renumber[v] = int64(len(rows) + 1)
			rows = append(rows, int(v-1))
		}
	}
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = renumber[v]
	}
	if _, err := deplcrv.SetData(out); err != nil {
		return diags, err
	}

	curve, err := ps.Get(SnowAreaCurve)
	if err != nil {
		return diags.report(LevelWarning, CodeMissingParameter, SnowAreaCurve,
			"%s renumbered but %s is missing", HRUDeplCurve, SnowAreaCurve), nil
	}
	if curve.data == nil || curve.NDims() != 1 {
		return diags.report(LevelWarning, CodeCurveTable, SnowAreaCurve,
			"cannot compact curve table of shape %v", curve.dimensions.Shape()), nil
	}
	table, err := curve.data.Reshape(-1, SnowCurveWidth)
	if err != nil {
		return diags, errors.Wrapf(err, "parameter %s", SnowAreaCurve)
	}
	table, err = table.Take(0, rows)
	if err != nil {
		return diags, errors.Wrapf(err, "parameter %s", SnowAreaCurve)
	}
	flat, err := table.Reshape(table.Size())
	if err != nil {
		return diags, err
	}
	dim, _ := curve.dimensions.At(0)
	d, err := dim.SetSize(flat.Size())
	diags = append(diags, d...)
	if err != nil {
		return diags, err
	}
	return diags, curve.SetArray(flat)
}

// ToStructure returns every parameter in insertion order.
func (ps *Parameters) ToStructure() []Structure {
	out := make([]Structure, len(ps.params))
	for i, p := range ps.params {
		out[i] = p.ToStructure()
	}
	return out
}

// FromStructure adds the serialized parameters to the collection. When a
// catalog is attached, metadata is taken from its definitions.
func (ps *Parameters) FromStructure(structs []Structure) (Diagnostics, error) {
	var diags Diagnostics
	for _, s := range structs {
		if s.Name == "" {
			return diags, ErrEmptyName
		}
		if ps.Exists(s.Name) {
			return diags, errors.Wrapf(ErrParameterExists, "parameter %s", s.Name)
		}
		var meta Metadata
		if ps.catalog != nil {
			if e, err := ps.catalog.Get(s.Name); err == nil {
				meta = e.Metadata
			}
		}
		p, d, err := ParameterFromStructure(s, meta)
		diags = append(diags, d...)
		if err != nil {
			return diags, err
		}
		ps.insert(p)
	}
	return diags, nil
}
