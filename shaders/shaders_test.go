package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulesCompile(t *testing.T) {
	modules := map[string]string{
		"advect":          Advect(),
		"pseudo_instance": PseudoInstance(),
	}
	for name, src := range modules {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Validate(name, src))
		})
	}
}

func TestEntryPointsPresent(t *testing.T) {
	assert.Contains(t, AdvectWGSL, "fn "+AdvectParticles+"(")
	assert.Contains(t, PseudoInstanceWGSL, "fn "+ConstructFromInstArray+"(")
	assert.Contains(t, PseudoInstanceWGSL, "fn "+ConstructInstIndex+"(")
	assert.Equal(t, 3, strings.Count(AdvectWGSL+PseudoInstanceWGSL, "@workgroup_size(32)"))
}

func TestComposePrependsTypes(t *testing.T) {
	src := Advect()
	assert.True(t, strings.HasPrefix(src, InstanceTypesWGSL))
	assert.Less(t, strings.Index(src, "struct ParticleContext"), strings.Index(src, "var<storage, read> ctx"))
}

func TestValidateReportsErrors(t *testing.T) {
	err := Validate("broken", "fn main( {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
