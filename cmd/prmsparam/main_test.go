package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/TuSKan/go-prms"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so commands can run more
// than once in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSnapshot(t *testing.T, dir, key string) {
	t.Helper()
	ps := prms.NewParameters()
	add := func(name string, dt prms.DataType, dim string, size int, values any) {
		p, err := ps.Add(name, prms.Metadata{Datatype: dt})
		require.NoError(t, err)
		_, err = p.Dimensions().Add(dim, size)
		require.NoError(t, err)
		_, err = p.SetData(values)
		require.NoError(t, err)
	}
	add("nhm_id", prms.DataTypeInteger, "nhru", 3, []int64{1, 2, 3})
	add("nhm_seg", prms.DataTypeInteger, "nsegment", 2, []int64{10, 20})
	add("hru_segment_nhm", prms.DataTypeInteger, "nhru", 3, []int64{10, 20, 20})
	add("hru_area", prms.DataTypeFloat, "nhru", 3, []float64{1.5, 2.5, 3.5})

	ctx := context.Background()
	store, err := prms.OpenStore(ctx, "file://"+dir)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.WriteSnapshot(ctx, key, ps))
}

func TestConfigBinding(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prmsparam.toml"), []byte(`
[store]
url = "file:///srv/prms"

[log]
level = "warn"
`), 0644))

	out, err := execute(t, "modules", "snowcomp")
	require.NoError(t, err)
	assert.Equal(t, "hru_deplcrv\nsnarea_curve\nsnarea_thresh\n", out)
	assert.Equal(t, "file:///srv/prms", cfg.Store.URL)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = execute(t, "--store", "file:///data/prms", "--log-level", "error", "modules", "snowcomp")
	require.NoError(t, err)
	assert.Equal(t, "file:///data/prms", cfg.Store.URL)
	assert.Equal(t, "error", cfg.Log.Level)

	t.Setenv("PRMS_LOG_LEVEL", "debug")
	_, err = execute(t, "modules", "snowcomp")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "file:///srv/prms", cfg.Store.URL)

	_, err = execute(t, "--log-level", "loud", "modules", "snowcomp")
	require.Error(t, err)
}

func TestSubsetCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeSnapshot(t, dir, "in.json.zst")

	_, err := execute(t, "--store", "file://"+dir, "subset", "in.json.zst", "out.json.zst", "--hru", "2")
	require.NoError(t, err)

	ctx := context.Background()
	store, err := prms.OpenStore(ctx, "file://"+dir)
	require.NoError(t, err)
	defer store.Close()
	ps, _, err := store.ReadSnapshot(ctx, "out.json.zst")
	require.NoError(t, err)

	for name, want := range map[string][]int64{
		"nhm_id":          {1, 3},
		"hru_segment_nhm": {10, 20},
		"nhm_seg":         {10, 20},
	} {
		p, err := ps.Get(name)
		require.NoError(t, err)
		data, err := p.Data()
		require.NoError(t, err)
		assert.Equal(t, want, data.Ints(), name)
	}

	_, err = execute(t, "--store", "file://"+dir, "subset", "missing.json.zst", "out.json.zst", "--hru", "2")
	require.ErrorIs(t, err, prms.ErrNotFound)
}

func TestParamDBCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeSnapshot(t, dir, "in.json.zst")
	const want = "$id,hru_area\n1,1.5\n2,2.5\n3,3.5\n"

	out, err := execute(t, "--store", "file://"+dir, "paramdb", "in.json.zst", "hru_area")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	_, err = execute(t, "--store", "file://"+dir, "paramdb", "in.json.zst", "hru_area", "--out", "paramdb")
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "paramdb", "hru_area.csv"))
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	_, err = execute(t, "--store", "file://"+dir, "paramdb", "in.json.zst", "tosegment")
	require.ErrorIs(t, err, prms.ErrNotFound)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeSnapshot(t, dir, "in.json.zst")

	out, err := execute(t, "--store", "file://"+dir, "check", "in.json.zst")
	require.NoError(t, err)
	assert.Equal(t, "hru_area: OK\nhru_segment_nhm: OK\nnhm_id: OK\nnhm_seg: OK\n", out)
}
