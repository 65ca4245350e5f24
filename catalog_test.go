package prms_test

import (
	"strings"
	"testing"

	"github.com/TuSKan/go-prms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `<?xml version="1.0"?>
<parameters>
  <parameter name="tmax_allsnow">
    <type>F</type>
    <desc>Maximum air temperature when precipitation is snow</desc>
    <units>temp_units</units>
    <minimum>-10.0</minimum>
    <maximum>40.0</maximum>
    <default>32.0</default>
    <dimensions>
      <dimension name="nhru"><default>1</default></dimension>
      <dimension name="nmonths"><default>12</default></dimension>
    </dimensions>
    <modules>
      <module>precip_module</module>
      <module>climate_hru</module>
    </modules>
  </parameter>
  <parameter name="hru_area">
    <type>F</type>
    <desc>HRU area</desc>
    <units>acres</units>
    <dimensions>
      <dimension name="nhru"/>
    </dimensions>
    <modules>
      <module>basin</module>
    </modules>
  </parameter>
  <parameter name="adjmix_rain">
    <type>F</type>
    <desc>Adjustment factor for rain in a rain/snow mix</desc>
    <units>decimal fraction</units>
    <dimensions>
      <dimension name="nhru"><default>1</default></dimension>
    </dimensions>
    <modules>
      <module>precip_module</module>
    </modules>
  </parameter>
  <parameter name="hru_area">
    <type>I</type>
    <desc>duplicate definition</desc>
    <units>none</units>
  </parameter>
  <parameter name="basin_solsta">
    <type>I</type>
    <desc>Index of main solar radiation station</desc>
    <units>none</units>
    <maximum>nsol</maximum>
    <dimensions>
      <dimension name="one"/>
    </dimensions>
  </parameter>
</parameters>`

func TestLoadCatalog(t *testing.T) {
	c, err := prms.LoadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	assert.Equal(t, []string{"tmax_allsnow", "hru_area", "adjmix_rain", "basin_solsta"}, c.Names())

	e, err := c.Get("hru_area")
	require.NoError(t, err)
	assert.Equal(t, prms.DataTypeFloat, e.Metadata.Datatype)
	assert.Equal(t, "HRU area", e.Metadata.Description)
	assert.Equal(t, []string{"basin"}, e.Metadata.Modules)

	e, err = c.Get("tmax_allsnow")
	require.NoError(t, err)
	assert.Equal(t, prms.DimensionsStructure{{Name: "nhru", Size: 1}, {Name: "nmonths", Size: 12}}, e.Dimensions)
	assert.Equal(t, "32.0", e.Metadata.Default)

	_, err = c.Get("missing")
	require.ErrorIs(t, err, prms.ErrNotFound)
}

func TestParamsForModules(t *testing.T) {
	c, err := prms.LoadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)

	assert.Equal(t, []string{"adjmix_rain", "tmax_allsnow"}, c.ParamsForModules("precip_module"))
	assert.Equal(t, []string{"adjmix_rain", "hru_area", "tmax_allsnow"}, c.ParamsForModules("basin", "precip_module"))
	assert.Empty(t, c.ParamsForModules("muskingum"))
}

func TestCatalogNewParameter(t *testing.T) {
	c, err := prms.LoadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)

	p, diags, err := c.NewParameter("tmax_allsnow")
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, []string{"nhru", "nmonths"}, p.Dimensions().Names())
	assert.Equal(t, []int{1, 12}, p.Dimensions().Shape())
	lo, ok := p.Minimum().Float()
	require.True(t, ok)
	assert.Equal(t, -10.0, lo)
	def, ok := p.Default().Float()
	require.True(t, ok)
	assert.Equal(t, 32.0, def)

	p, _, err = c.NewParameter("basin_solsta")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, p.Dimensions().Shape())
	assert.False(t, p.Maximum().IsNumeric())
}

func TestCatalogReload(t *testing.T) {
	c, err := prms.LoadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)

	require.NoError(t, c.Reload(strings.NewReader(`<parameters>
		<parameter name="gwflow_coef"><type>F</type><desc>x</desc><units>none</units></parameter>
	</parameters>`)))
	assert.Equal(t, []string{"gwflow_coef"}, c.Names())
	assert.False(t, c.Exists("hru_area"))

	err = c.Reload(strings.NewReader(`<parameters><parameter name="x"><type>Q</type></parameter></parameters>`))
	require.ErrorIs(t, err, prms.ErrInvalidDatatype)
	assert.Equal(t, []string{"gwflow_coef"}, c.Names())
}

func TestDefaultCatalog(t *testing.T) {
	c, err := prms.DefaultCatalog()
	require.NoError(t, err)
	again, err := prms.DefaultCatalog()
	require.NoError(t, err)
	assert.Same(t, c, again)

	for _, name := range []string{"nhm_id", "nhm_seg", "hru_segment", "hru_segment_nhm", "hru_deplcrv", "snarea_curve"} {
		assert.True(t, c.Exists(name), name)
	}
	assert.Equal(t, []string{"hru_deplcrv", "snarea_curve", "snarea_thresh"}, c.ParamsForModules("snowcomp"))
}

func TestAddFromCatalogAndValidate(t *testing.T) {
	c, err := prms.LoadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	ps := prms.NewParameters(prms.WithCatalog(c))

	p, _, err := ps.AddFromCatalog("tmax_allsnow")
	require.NoError(t, err)
	assert.Equal(t, "temp_units", p.Units)
	assert.Equal(t, 2, p.NDims())

	_, _, err = ps.AddFromCatalog("tmax_allsnow")
	require.ErrorIs(t, err, prms.ErrParameterExists)
	_, _, err = ps.AddFromCatalog("nope")
	require.ErrorIs(t, err, prms.ErrNotFound)

	_, err = ps.Add("hru_area", prms.Metadata{Datatype: prms.DataTypeInteger})
	require.NoError(t, err)
	_, err = ps.Add("my_param", prms.Metadata{Datatype: prms.DataTypeFloat})
	require.NoError(t, err)

	diags := ps.Validate()
	require.Len(t, diags, 2)
	assert.Equal(t, "hru_area", diags[0].Subject)
	assert.Equal(t, "my_param", diags[1].Subject)
	assert.True(t, diags.Has(prms.CodeUnknownParameter))

	assert.Nil(t, prms.NewParameters().Validate())
}
