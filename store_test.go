package prms_test

import (
	"context"
	"strings"
	"testing"

	"github.com/TuSKan/go-prms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
)

func memStore(t *testing.T) (*prms.Store, *blob.Bucket) {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	s := prms.NewStore(bucket)
	t.Cleanup(func() { s.Close() })
	return s, bucket
}

func TestStoreSnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := prms.OpenStore(ctx, "file://"+t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	catalog, err := prms.DefaultCatalog()
	require.NoError(t, err)

	ps := hruFixture(t)
	gages, err := ps.Add("poi_gage_id", prms.Metadata{Datatype: prms.DataTypeString})
	require.NoError(t, err)
	declare(t, gages, dim{"npoigages", 2})
	_, err = gages.SetData([]string{"01013500", "01015800"})
	require.NoError(t, err)

	require.NoError(t, s.WriteSnapshot(ctx, "snapshots/region_01.json.zst", ps))

	back, diags, err := s.ReadSnapshot(ctx, "snapshots/region_01.json.zst", prms.WithCatalog(catalog))
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Same(t, catalog, back.Catalog())
	assert.Equal(t, ps.Names(), back.Names())
	for _, name := range ps.Names() {
		want, err := ps.Get(name)
		require.NoError(t, err)
		got, err := back.Get(name)
		require.NoError(t, err)
		assert.Equal(t, want.ToStructure(), got.ToStructure(), name)
	}

	area, err := back.Get("hru_area")
	require.NoError(t, err)
	assert.Equal(t, "acres", area.Units)

	ids, err := back.Get("poi_gage_id")
	require.NoError(t, err)
	data, err := ids.Data()
	require.NoError(t, err)
	assert.Equal(t, []string{"01013500", "01015800"}, data.Strings())

	_, _, err = s.ReadSnapshot(ctx, "snapshots/missing.json.zst")
	require.ErrorIs(t, err, prms.ErrNotFound)
}

func TestStoreMergeDimensions(t *testing.T) {
	ctx := context.Background()
	s, bucket := memStore(t)

	fragments := map[string]string{
		"regions/r01/dimensions.xml": `<dimensions><dimension name="nhru" size="10"/><dimension name="nmonths" size="12"/></dimensions>`,
		"regions/r02/dimensions.xml": `<dimensions><dimension name="nhru" size="5"/><dimension name="nmonths" size="12"/></dimensions>`,
		"regions/r03/dimensions.xml": `<dimensions><dimension name="nhru" size="7"/><dimension name="one" size="2"/></dimensions>`,
		"regions/r01/params.xml":     `<parameters/>`,
	}
	for key, body := range fragments {
		require.NoError(t, bucket.WriteAll(ctx, key, []byte(body), nil))
	}

	keys, err := s.RegionKeys(ctx, "regions/", "dimensions.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"regions/r01/dimensions.xml",
		"regions/r02/dimensions.xml",
		"regions/r03/dimensions.xml",
	}, keys)

	dims := prms.NewDimensions()
	diags, err := s.MergeDimensions(ctx, dims, keys...)
	require.NoError(t, err)
	assert.True(t, diags.Has(prms.CodeReservedSize))
	assert.Equal(t, []string{"nhru", "nmonths", "one"}, dims.Names())
	assert.Equal(t, []int{22, 12, 1}, dims.Shape())

	_, err = s.MergeDimensions(ctx, dims, "regions/r04/dimensions.xml")
	require.ErrorIs(t, err, prms.ErrNotFound)
}

func TestStoreWriteParamDB(t *testing.T) {
	ctx := context.Background()
	s, bucket := memStore(t)

	p := newParameter(t, "hru_area", prms.DataTypeFloat, dim{"nhru", 3})
	_, err := p.SetData([]float64{1.5, 2, 3.25})
	require.NoError(t, err)
	require.NoError(t, s.WriteParamDB(ctx, "paramdb/hru_area.csv", p))

	got, err := bucket.ReadAll(ctx, "paramdb/hru_area.csv")
	require.NoError(t, err)
	want, err := p.ToParamDB()
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
	assert.True(t, strings.HasPrefix(string(got), "$id,hru_area\n"))

	empty := newParameter(t, "hru_elev", prms.DataTypeFloat, dim{"nhru", 3})
	require.ErrorIs(t, s.WriteParamDB(ctx, "paramdb/hru_elev.csv", empty), prms.ErrNoData)
}

func TestStoreLoadCatalog(t *testing.T) {
	ctx := context.Background()
	s, bucket := memStore(t)
	require.NoError(t, bucket.WriteAll(ctx, "catalog.xml", []byte(testCatalog), nil))

	c, err := s.LoadCatalog(ctx, "catalog.xml")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	_, err = s.LoadCatalog(ctx, "other.xml")
	require.ErrorIs(t, err, prms.ErrNotFound)
}
