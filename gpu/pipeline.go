package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ziticore/ziti/shaders"
)

// ComputeFunction is a kernel entry point with its pipeline.
type ComputeFunction struct {
	Name     string
	Pipeline *wgpu.ComputePipeline
}

// NewComputeFunction compiles source and builds the pipeline of one entry point.
func (c *Context) NewComputeFunction(label, source, entry string) (*ComputeFunction, error) {
	if err := shaders.Validate(label, source); err != nil {
		return nil, err
	}
	shaderModule, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", label, err)
	}
	defer shaderModule.Release()

	pipeline, err := c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label + ":" + entry,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shaderModule,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", entry, err)
	}
	return &ComputeFunction{Name: entry, Pipeline: pipeline}, nil
}

// BindBuffers builds group 0 of the function from buffers keyed by binding.
func (c *Context) BindBuffers(f *ComputeFunction, buffers map[uint32]*wgpu.Buffer) (*wgpu.BindGroup, error) {
	layout := f.Pipeline.GetBindGroupLayout(0)
	defer layout.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(buffers))
	for binding, buf := range buffers {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: binding,
			Buffer:  buf,
			Size:    wgpu.WholeSize,
		})
	}
	bg, err := c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   f.Name,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", f.Name, err)
	}
	return bg, nil
}

func (f *ComputeFunction) Release() {
	if f != nil && f.Pipeline != nil {
		f.Pipeline.Release()
		f.Pipeline = nil
	}
}

// NextMultipleOf rounds value up to a multiple.
func NextMultipleOf(value, multiple uint32) uint32 {
	if multiple == 0 {
		return value
	}
	return (value + multiple - 1) / multiple * multiple
}

// WorkgroupCount is the number of workgroups covering threads invocations.
// Kernels bounds-check the tail.
func WorkgroupCount(threads uint32) uint32 {
	return NextMultipleOf(threads, shaders.WorkgroupSize) / shaders.WorkgroupSize
}

// Dispatch1D records a one dimensional dispatch.
func Dispatch1D(pass *wgpu.ComputePassEncoder, f *ComputeFunction, bg *wgpu.BindGroup, threads uint32) {
	if threads == 0 {
		return
	}
	pass.SetPipeline(f.Pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(WorkgroupCount(threads), 1, 1)
}
