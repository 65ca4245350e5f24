package prms

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Level is the severity of a Diagnostic.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Diagnostic codes.
const (
	CodeReservedSize       = "reserved-size"
	CodeInvalidDimension   = "invalid-dimension"
	CodeScalarTruncated    = "scalar-truncated"
	CodeOutOfRange         = "out-of-range"
	CodeUnsupportedReshape = "unsupported-reshape"
	CodeScalarSubset       = "scalar-subset"
	CodeSegmentRemoval     = "segment-removal"
	CodeMissingParameter   = "missing-parameter"
	CodeCurveTable         = "curve-table"
	CodeUnknownParameter   = "unknown-parameter"
)

// Diagnostic is an advisory outcome of an operation that did not abort it.
type Diagnostic struct {
	Level   Level
	Code    string
	Subject string // parameter or dimension name
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Level, d.Subject, d.Message)
}

// Diagnostics is a list of advisory outcomes. A nil Diagnostics means the
// operation completed without anything to report.
type Diagnostics []Diagnostic

// Has reports whether any diagnostic carries the given code.
func (ds Diagnostics) Has(code string) bool {
	for _, d := range ds {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Filter returns the diagnostics carrying the given code.
func (ds Diagnostics) Filter(code string) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the diagnostics at LevelWarning or above.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Level >= LevelWarning {
			out = append(out, d)
		}
	}
	return out
}

func (ds Diagnostics) String() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// report logs the diagnostic and returns it appended to ds.
func (ds Diagnostics) report(level Level, code, subject, format string, args ...any) Diagnostics {
	d := Diagnostic{
		Level:   level,
		Code:    code,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	}
	fields := []zap.Field{zap.String(subjectKey(code), subject), zap.String("code", code)}
	switch level {
	case LevelError:
		logger.Error(d.Message, fields...)
	case LevelWarning:
		logger.Warn(d.Message, fields...)
	default:
		logger.Info(d.Message, fields...)
	}
	return append(ds, d)
}

// subjectKey names the log field holding a diagnostic's subject.
func subjectKey(code string) string {
	switch code {
	case CodeReservedSize, CodeInvalidDimension:
		return "dimension"
	}
	return "parameter"
}
