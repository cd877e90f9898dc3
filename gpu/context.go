// Package gpu runs the advection and pseudo instancing kernels on a
// headless WebGPU device.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Logger is the subset of the scene logger used here.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

// Context owns the device and queue shared by every kernel.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	log Logger
}

// NewContext requests a high performance adapter without a surface.
func NewContext(log Logger) (*Context, error) {
	if log == nil {
		log = nopLogger{}
	}
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Advection Device",
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}

	log.Debugf("gpu: device ready")

	return &Context{
		Instance: instance,
		Adapter:  adapter,
		Device:   device,
		Queue:    device.GetQueue(),
		log:      log,
	}, nil
}

// Idle polls the device and reports whether all submitted work finished.
func (c *Context) Idle() bool {
	return c.Device.Poll(false, nil)
}

// Wait blocks until submitted work is done.
func (c *Context) Wait() {
	c.Device.Poll(true, nil)
}

func (c *Context) Release() {
	if c.Queue != nil {
		c.Queue.Release()
	}
	if c.Device != nil {
		c.Device.Release()
	}
	if c.Adapter != nil {
		c.Adapter.Release()
	}
	if c.Instance != nil {
		c.Instance.Release()
	}
	*c = Context{}
}
