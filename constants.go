package prms

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// DataType is the storage type of a parameter.
type DataType int

const (
	DataTypeUnset   DataType = 0
	DataTypeInteger DataType = 1
	DataTypeFloat   DataType = 2
	DataTypeDouble  DataType = 3
	DataTypeString  DataType = 4
)

// Valid reports whether dt is one of the four storage types.
func (dt DataType) Valid() bool {
	return dt >= DataTypeInteger && dt <= DataTypeString
}

// Numeric reports whether dt stores numbers.
func (dt DataType) Numeric() bool {
	return dt == DataTypeInteger || dt == DataTypeFloat || dt == DataTypeDouble
}

func (dt DataType) String() string {
	switch dt {
	case DataTypeUnset:
		return "unset"
	case DataTypeInteger:
		return "integer"
	case DataTypeFloat:
		return "float"
	case DataTypeDouble:
		return "double"
	case DataTypeString:
		return "string"
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}

// ParseDataType maps a catalog type code (I, F, D, S) or a datatype name
// to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i", "integer", "1":
		return DataTypeInteger, nil
	case "f", "float", "2":
		return DataTypeFloat, nil
	case "d", "double", "3":
		return DataTypeDouble, nil
	case "s", "string", "4":
		return DataTypeString, nil
	default:
		return DataTypeUnset, errors.Wrapf(ErrInvalidDatatype, "%q", s)
	}
}

// Reserved dimensions carry a fixed size regardless of what is requested.
var reservedSizes = map[string]int{
	"one":     1,
	"nmonths": 12,
	"ndays":   366,
}

// ReservedSize returns the fixed size of a reserved dimension name.
func ReservedSize(name string) (int, bool) {
	n, ok := reservedSizes[name]
	return n, ok
}

// dimensionNames is the registry of legal dimension names.
var dimensionNames = map[string]struct{}{
	"one": {}, "nmonths": {}, "ndays": {},
	"nhru": {}, "nssr": {}, "ngw": {}, "nsegment": {},
	"nobs": {}, "npoigages": {}, "ndepl": {}, "ndeplval": {},
	"nsub": {}, "nlake": {}, "nlake_hrus": {}, "nlakeelev": {},
	"nrain": {}, "ntemp": {}, "nsol": {}, "nhumid": {}, "nwind": {},
	"nevap": {}, "nsnow": {}, "nratetbl": {}, "ngate": {}, "nstage": {},
	"nhrucell": {}, "ngwcell": {}, "nreach": {}, "ncascade": {},
	"ncascdgw": {}, "nexternal": {}, "nconsumed": {}, "npoigages_nhm": {},
	"nwateruse": {}, "nmonths_ndays": {},
}

// ValidDimensionName reports whether name is a recognized dimension name.
func ValidDimensionName(name string) bool {
	_, ok := dimensionNames[name]
	return ok
}

// Global identifier spaces and the parameters that carry them.
const (
	HRUIDParam       = "nhm_id"
	SegmentIDParam   = "nhm_seg"
	HRUSegmentNHM    = "hru_segment_nhm"
	HRUSegment       = "hru_segment"
	HRUDeplCurve     = "hru_deplcrv"
	SnowAreaCurve    = "snarea_curve"
	SnowAreaCurveDim = "ndeplval"
	SnowCurveWidth   = 11
	SegmentDimension = "nsegment"
	hruIndexName     = "hru"
	curveIndexName   = "curve_index"
)

// hruDimensions share the per-unit global identifier space.
var hruDimensions = []string{"nhru", "nssr", "ngw"}

func isHRUDimension(name string) bool {
	for _, d := range hruDimensions {
		if d == name {
			return true
		}
	}
	return false
}
