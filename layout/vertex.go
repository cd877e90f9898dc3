package layout

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
)

func parseFormat(name string) (wgpu.VertexFormat, error) {
	switch name {
	case "float2":
		return wgpu.VertexFormatFloat32x2, nil
	case "float3":
		return wgpu.VertexFormatFloat32x3, nil
	case "float4":
		return wgpu.VertexFormatFloat32x4, nil
	default:
		return 0, fmt.Errorf("unsupported vertex layout format: %s", name)
	}
}

// VertexBufferLayoutOf builds the vertex buffer layout of a struct from its
// `ziti:"layout"` tagged fields. Offsets come from the Go layout so the two
// cannot disagree.
func VertexBufferLayoutOf(vertexType any) (wgpu.VertexBufferLayout, error) {
	t := reflect.TypeOf(vertexType)
	if t.Kind() != reflect.Struct {
		return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex must be a struct, got %s", t.Kind())
	}

	var attributes []wgpu.VertexAttribute
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("ziti") != "layout" {
			continue
		}
		format, err := parseFormat(field.Tag.Get("format"))
		if err != nil {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("field %s: %w", field.Name, err)
		}
		location, err := strconv.Atoi(field.Tag.Get("location"))
		if err != nil {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("field %s: bad location: %w", field.Name, err)
		}
		attributes = append(attributes, wgpu.VertexAttribute{
			ShaderLocation: uint32(location),
			Offset:         uint64(field.Offset),
			Format:         format,
		})
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(t.Size()),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attributes,
	}, nil
}

// ParticleVertexLayout is the vertex buffer layout of the splatted mesh.
func ParticleVertexLayout() wgpu.VertexBufferLayout {
	l, err := VertexBufferLayoutOf(ParticleVertex{})
	if err != nil {
		panic(err)
	}
	return l
}
