package schema

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Member is a struct member as laid out by the shader compiler.
type Member struct {
	Name   string
	Offset uint32
}

// CompiledStruct is a struct layout as laid out by the shader compiler.
type CompiledStruct struct {
	Name    string
	Members []Member
	Span    uint32
}

// CompileLayouts lowers WGSL source through naga and returns the layout of
// every named struct it declares.
func CompileLayouts(source string) (map[string]CompiledStruct, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	mod, err := naga.Lower(ast)
	if err != nil {
		return nil, fmt.Errorf("schema: lower: %w", err)
	}

	out := make(map[string]CompiledStruct)
	for _, ty := range mod.Types {
		st, ok := ty.Inner.(ir.StructType)
		if !ok || ty.Name == "" {
			continue
		}
		cs := CompiledStruct{Name: ty.Name, Span: st.Span}
		for _, m := range st.Members {
			cs.Members = append(cs.Members, Member{Name: m.Name, Offset: m.Offset})
		}
		out[ty.Name] = cs
	}
	return out, nil
}

// CheckCompiled compares the compiler layout c with the host layout of s.
func (s Struct) CheckCompiled(c CompiledStruct) error {
	if len(c.Members) != len(s.Fields) {
		return fmt.Errorf("%w: %s has %d members on device, %d on host",
			ErrLayoutMismatch, s.Name, len(c.Members), len(s.Fields))
	}
	for i, f := range s.Fields {
		m := c.Members[i]
		if m.Name != f.Name {
			return fmt.Errorf("%w: %s member %d is %s on device, %s on host",
				ErrLayoutMismatch, s.Name, i, m.Name, f.Name)
		}
		if uintptr(m.Offset) != f.HostOffset {
			return fmt.Errorf("%w: %s.%s at device offset %d, host offset %d",
				ErrLayoutMismatch, s.Name, f.Name, m.Offset, f.HostOffset)
		}
	}
	if uintptr(c.Span) != s.HostSize {
		return fmt.Errorf("%w: %s is %d bytes on device, %d on host", ErrLayoutMismatch, s.Name, c.Span, s.HostSize)
	}
	return nil
}

// CheckSource compiles source and checks every struct of structs against it.
func CheckSource(source string, structs ...Struct) error {
	compiled, err := CompileLayouts(source)
	if err != nil {
		return err
	}
	for _, s := range structs {
		c, ok := compiled[s.Name]
		if !ok {
			return fmt.Errorf("%w: %s is not declared on device", ErrLayoutMismatch, s.Name)
		}
		if err := s.CheckCompiled(c); err != nil {
			return err
		}
	}
	return nil
}
