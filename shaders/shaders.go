package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:generate go run ../cmd/layoutgen -o instance_types.wgsl

//go:embed instance_types.wgsl
var InstanceTypesWGSL string

//go:embed advect.wgsl
var AdvectWGSL string

//go:embed pseudo_instance.wgsl
var PseudoInstanceWGSL string

// Entry points.
const (
	AdvectParticles        = "advect_particles"
	ConstructFromInstArray = "construct_from_inst_array"
	ConstructInstIndex     = "construct_inst_index"
)

// WorkgroupSize is the x workgroup size of every kernel.
const WorkgroupSize = 32

// Compose prepends the shared struct declarations to a kernel.
func Compose(kernel string) string {
	return InstanceTypesWGSL + "\n" + kernel
}

// Advect is the complete advection module.
func Advect() string { return Compose(AdvectWGSL) }

// PseudoInstance is the complete splat module.
func PseudoInstance() string { return Compose(PseudoInstanceWGSL) }

// Validate compiles a module to SPIR-V to surface WGSL errors before a
// device is involved.
func Validate(name, source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("shader %s: %w", name, err)
	}
	return nil
}
