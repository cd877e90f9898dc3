package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Session records compute passes into one command buffer.
type Session struct {
	ctx     *Context
	encoder *wgpu.CommandEncoder
}

// NewSession starts a command encoder.
func (c *Context) NewSession(label string) (*Session, error) {
	encoder, err := c.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	return &Session{ctx: c, encoder: encoder}, nil
}

// WithPass records f inside a compute pass.
func (s *Session) WithPass(f func(pass *wgpu.ComputePassEncoder)) error {
	pass := s.encoder.BeginComputePass(nil)
	defer pass.Release()
	f(pass)
	if err := pass.End(); err != nil {
		return fmt.Errorf("failed to end compute pass: %w", err)
	}
	return nil
}

// Copy records a buffer to buffer copy.
func (s *Session) Copy(src, dst *wgpu.Buffer, size uint64) error {
	if err := s.encoder.CopyBufferToBuffer(src, 0, dst, 0, size); err != nil {
		return fmt.Errorf("failed to record buffer copy: %w", err)
	}
	return nil
}

// Submit finishes the encoder and queues it.
func (s *Session) Submit() error {
	defer s.encoder.Release()
	cmdBuf, err := s.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command buffer: %w", err)
	}
	defer cmdBuf.Release()
	s.ctx.Queue.Submit(cmdBuf)
	return nil
}
