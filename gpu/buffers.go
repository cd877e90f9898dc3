package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// AlignedSize pads n up to the 4 byte copy alignment. Zero sized buffers
// are not bindable so the minimum is 4.
func AlignedSize(n int) uint64 {
	size := uint64(n)
	if size%4 != 0 {
		size += 4 - size%4
	}
	return max(size, 4)
}

// ensureBuffer (re)creates buf when it is too small for data and uploads data.
// Returns true when a new buffer was created, bind groups are then stale.
func (c *Context) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, size int, usage wgpu.BufferUsage) (bool, error) {
	needed := AlignedSize(max(len(data), size))

	created := false
	if *buf == nil || (*buf).GetSize() < needed {
		if *buf != nil {
			(*buf).Release()
		}
		nb, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  needed,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return false, fmt.Errorf("failed to create %s buffer: %w", name, err)
		}
		*buf = nb
		created = true
	}

	if len(data) > 0 {
		if len(data)%4 != 0 {
			data = append(append([]byte(nil), data...), make([]byte, 4-len(data)%4)...)
		}
		if err := c.Queue.WriteBuffer(*buf, 0, data); err != nil {
			return created, fmt.Errorf("failed to write %s buffer: %w", name, err)
		}
	}
	return created, nil
}

// ReadBuffer copies size bytes of src back to the host and waits for them.
func (c *Context) ReadBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	size = AlignedSize(int(size))
	staging, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readback buffer: %w", err)
	}
	defer staging.Release()

	s, err := c.NewSession("Readback")
	if err != nil {
		return nil, err
	}
	if err := s.Copy(src, staging, size); err != nil {
		_ = s.Submit()
		return nil, err
	}
	if err := s.Submit(); err != nil {
		return nil, err
	}

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(st wgpu.BufferMapAsyncStatus) {
		status = st
	}); err != nil {
		return nil, fmt.Errorf("failed to map readback buffer: %w", err)
	}
	c.Wait()
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errors.New("gpu: readback map was not successful")
	}
	defer staging.Unmap()

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	return out, nil
}
