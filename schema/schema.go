// Package schema derives the device-side declarations of the layout structs
// from their Go definitions, so the host structs are the only hand-written
// copy. Declarations are emitted with WGSL storage address space rules, then
// lowered through the shader compiler and checked against what the Go
// compiler laid out.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ziticore/ziti/layout"
)

var (
	ErrLayoutMismatch  = errors.New("schema: host and device layouts differ")
	ErrUnsupportedType = errors.New("schema: unsupported field type")
)

// Field is one member of a device struct.
type Field struct {
	Name       string // WGSL member name
	GoName     string
	Type       string // WGSL type
	Offset     uintptr
	Size       uintptr
	Align      uintptr
	HostOffset uintptr
}

// Struct is the device view of a host struct.
type Struct struct {
	Name     string
	Fields   []Field
	Size     uintptr
	Align    uintptr
	HostSize uintptr
}

// scalar describes a WGSL type as laid out in storage buffers.
type scalar struct {
	name  string
	size  uintptr
	align uintptr
}

// Target maps host types onto device types. Packed vectors have no native
// WGSL equivalent (vec3 aligns to 16), so they are emitted as structs of scalars.
type Target struct {
	Name    string
	scalars map[reflect.Kind]scalar
	packed  map[reflect.Type]Packed
}

// Packed is a packed vector declaration.
type Packed struct {
	Name       string
	Components []string
	Elem       string
}

// WGSLTarget is the storage-buffer WGSL target used by the kernels.
var WGSLTarget = Target{
	Name: "wgsl",
	scalars: map[reflect.Kind]scalar{
		reflect.Float32: {"f32", 4, 4},
		reflect.Uint32:  {"u32", 4, 4},
		reflect.Int32:   {"i32", 4, 4},
	},
	packed: map[reflect.Type]Packed{
		reflect.TypeOf(layout.PackedFloat3{}): {"PackedFloat3", []string{"x", "y", "z"}, "f32"},
		reflect.TypeOf(layout.PackedInt3{}):   {"PackedInt3", []string{"x", "y", "z"}, "i32"},
		reflect.TypeOf(layout.PackedFloat2{}): {"PackedFloat2", []string{"x", "y"}, "f32"},
	},
}

func roundUp(k, n uintptr) uintptr { return (n + k - 1) / k * k }

func (tg Target) fieldType(t reflect.Type) (string, uintptr, uintptr, error) {
	if p, ok := tg.packed[t]; ok {
		// a struct of 4-byte scalars: align 4, no tail padding
		return p.Name, uintptr(len(p.Components)) * 4, 4, nil
	}
	if s, ok := tg.scalars[t.Kind()]; ok && t.PkgPath() == "" {
		return s.name, s.size, s.align, nil
	}
	return "", 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// Describe computes the device layout of a struct value.
func (tg Target) Describe(v any) (Struct, error) {
	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Struct {
		return Struct{}, fmt.Errorf("%w: %T is not a struct", ErrUnsupportedType, v)
	}
	s := Struct{Name: t.Name(), HostSize: t.Size(), Align: 1}
	var offset uintptr
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "_" || f.Type.Size() == 0 {
			continue
		}
		name := f.Tag.Get("wgsl")
		if name == "" {
			name = snake(f.Name)
		}
		typ, size, align, err := tg.fieldType(f.Type)
		if err != nil {
			return Struct{}, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
		}
		offset = roundUp(align, offset)
		s.Fields = append(s.Fields, Field{
			Name:       name,
			GoName:     f.Name,
			Type:       typ,
			Offset:     offset,
			Size:       size,
			Align:      align,
			HostOffset: f.Offset,
		})
		offset += size
		s.Align = max(s.Align, align)
	}
	s.Size = roundUp(s.Align, offset)
	return s, nil
}

// Check compiles the declaration of s and fails when the compiler layout
// disagrees with the host layout.
func (s Struct) Check() error {
	return CheckSource(WGSLTarget.WGSL(s), s)
}

// Describe uses the WGSL target.
func Describe(v any) (Struct, error) { return WGSLTarget.Describe(v) }

// Check describes v and checks it in one go.
func Check(v any) error {
	s, err := Describe(v)
	if err != nil {
		return err
	}
	return s.Check()
}

// Shared lists the structs that cross the host/device boundary, in
// declaration order.
func Shared() []any {
	return []any{
		layout.ParticleVertex{},
		layout.InstanceDescriptor{},
		layout.ParticleContext{},
		layout.AParticle{},
	}
}

// DescribeShared describes and checks every shared struct.
func DescribeShared() ([]Struct, error) {
	var out []Struct
	for _, v := range Shared() {
		s, err := Describe(v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := CheckSource(WGSLTarget.WGSL(out...), out...); err != nil {
		return nil, err
	}
	return out, nil
}

// Header marks generated files.
const Header = "// Code generated by layoutgen. DO NOT EDIT.\n"

// WGSL renders the packed vector declarations used by structs followed by
// the structs themselves.
func (tg Target) WGSL(structs ...Struct) string {
	var b strings.Builder
	b.WriteString(Header)

	used := map[string]Packed{}
	for _, s := range structs {
		for _, f := range s.Fields {
			for _, p := range tg.packed {
				if p.Name == f.Type {
					used[p.Name] = p
				}
			}
		}
	}
	names := make([]string, 0, len(used))
	for n := range used {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		p := used[n]
		fmt.Fprintf(&b, "\nstruct %s {\n", p.Name)
		for _, c := range p.Components {
			fmt.Fprintf(&b, "    %s: %s,\n", c, p.Elem)
		}
		b.WriteString("}\n")
	}

	for _, s := range structs {
		fmt.Fprintf(&b, "\n// size %d\nstruct %s {\n", s.Size, s.Name)
		for _, f := range s.Fields {
			fmt.Fprintf(&b, "    %s: %s, // offset %d\n", f.Name, f.Type, f.Offset)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

// Generate returns the WGSL declarations of every shared struct.
func Generate() (string, error) {
	structs, err := DescribeShared()
	if err != nil {
		return "", err
	}
	return WGSLTarget.WGSL(structs...), nil
}

func snake(s string) string {
	isUpper := func(c byte) bool { return c >= 'A' && c <= 'Z' }
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUpper(c) {
			if i > 0 && (!isUpper(s[i-1]) || (i+1 < len(s) && !isUpper(s[i+1]))) {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
