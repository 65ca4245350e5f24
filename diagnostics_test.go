package prms_test

import (
	"testing"

	"github.com/TuSKan/go-prms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prms.SetLogger(zap.New(core))
	t.Cleanup(func() { prms.SetLogger(nil) })
	return logs
}

func TestDiagnosticsAreLogged(t *testing.T) {
	logs := observeLogs(t)

	_, diags, err := prms.NewDimension("nmonths", 5)
	require.NoError(t, err)
	require.Len(t, diags, 1)

	p := newParameter(t, "basin_solsta", prms.DataTypeInteger, dim{"one", 1})
	diags, err = p.SetData([]int64{4, 5})
	require.NoError(t, err)
	require.True(t, diags.Has(prms.CodeScalarTruncated))

	entries := logs.FilterLevelExact(zapcore.WarnLevel).AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"dimension": "nmonths", "code": prms.CodeReservedSize}, entries[0].ContextMap())
	assert.Equal(t, map[string]any{"parameter": "basin_solsta", "code": prms.CodeScalarTruncated}, entries[1].ContextMap())
}
