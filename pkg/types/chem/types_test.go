package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignMode_IsValid(t *testing.T) {
	assert.True(t, ModeStrict.IsValid())
	assert.True(t, ModeRelaxed.IsValid())
	assert.True(t, ModeRelaxedStereo.IsValid())
	assert.False(t, AlignMode("loose").IsValid())
	assert.False(t, AlignMode("").IsValid())
}

func TestParseAlignMode(t *testing.T) {
	m, err := ParseAlignMode("relaxed-stereo")
	require.NoError(t, err)
	assert.Equal(t, ModeRelaxedStereo, m)

	_, err = ParseAlignMode("approximate")
	assert.Error(t, err)
}

func TestVariantType_Rank(t *testing.T) {
	assert.Equal(t, 0, VariantCanonical.Rank())
	assert.Equal(t, 1, VariantTautomerProtomer.Rank())
	assert.Less(t, VariantCanonical.Rank(), VariantTautomerProtomer.Rank())
}

func TestDescriptorSet_MissingRequired(t *testing.T) {
	full := DescriptorSet{
		DescriptorSMILES:       "CCO",
		DescriptorSMILESStereo: "CCO",
		DescriptorInChI:        "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3",
		DescriptorInChIKey:     "LFQSCWFLJHTTHZ-UHFFFAOYSA-N",
	}
	assert.Empty(t, full.MissingRequired())

	partial := DescriptorSet{DescriptorSMILES: "CCO"}
	missing := partial.MissingRequired()
	assert.Equal(t, []DescriptorType{DescriptorSMILESStereo, DescriptorInChI, DescriptorInChIKey}, missing)

	// Empty values count as missing; Formula is never required.
	blank := DescriptorSet{
		DescriptorSMILES:  "",
		DescriptorFormula: "C2 H6 O",
	}
	assert.Len(t, blank.MissingRequired(), 4)
}
