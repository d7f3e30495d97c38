package main

// MachineType is one of WebAssembly's four numeric value types.
type MachineType string

const (
	MachineNone MachineType = ""
	MachineI32  MachineType = "i32"
	MachineI64  MachineType = "i64"
	MachineF32  MachineType = "f32"
	MachineF64  MachineType = "f64"
)

// TypeKind discriminates the four sorts of source types.
type TypeKind string

const (
	TypeIntrinsic TypeKind = "TypeIntrinsic"
	TypePointer   TypeKind = "TypePointer"
	TypeArray     TypeKind = "TypeArray"
	TypeStruct    TypeKind = "TypeStruct"
)

// StructField is a named field with a precomputed byte offset.
type StructField struct {
	Name   string
	Spec   *TypeSpec
	Offset int
}

// TypeSpec represents a source-language type.
type TypeSpec struct {
	Kind  TypeKind
	Name  string    // intrinsic name (i8..f64) or struct name
	Inner *TypeSpec // pointee for TypePointer, item for TypeArray
	Count int       // item count for TypeArray
	// TypeStruct:
	Fields   []StructField
	ByteSize int // total struct size, filled in by LayoutStruct
}

// intrinsicNames maps every intrinsic to its underlying machine type.
var intrinsicNames = map[string]MachineType{
	"i8":  MachineI32,
	"u8":  MachineI32,
	"i16": MachineI32,
	"u16": MachineI32,
	"i32": MachineI32,
	"u32": MachineI32,
	"i64": MachineI64,
	"u64": MachineI64,
	"f32": MachineF32,
	"f64": MachineF64,
}

var intrinsicWidths = map[string]int{
	"i8":  1,
	"u8":  1,
	"i16": 2,
	"u16": 2,
	"i32": 4,
	"u32": 4,
	"i64": 8,
	"u64": 8,
	"f32": 4,
	"f64": 8,
}

// intrinsicSpecs caches one TypeSpec per intrinsic so the emitter can
// return them without allocating.
var intrinsicSpecs = func() map[string]*TypeSpec {
	m := make(map[string]*TypeSpec)
	for name := range intrinsicNames {
		m[name] = &TypeSpec{Kind: TypeIntrinsic, Name: name}
	}
	return m
}()

// IsIntrinsicName reports whether name is one of the ten intrinsic types.
func IsIntrinsicName(name string) bool {
	_, ok := intrinsicNames[name]
	return ok
}

// IntrinsicSpec returns the shared TypeSpec for an intrinsic name.
func IntrinsicSpec(name string) *TypeSpec {
	spec, ok := intrinsicSpecs[name]
	if !ok {
		panic("not an intrinsic type: " + name)
	}
	return spec
}

// MachineTypeOf maps an intrinsic name to its machine type.
func MachineTypeOf(name string) MachineType {
	mt, ok := intrinsicNames[name]
	if !ok {
		panic("not an intrinsic type: " + name)
	}
	return mt
}

// IsFloatName reports whether the intrinsic is f32 or f64.
func IsFloatName(name string) bool {
	return name == "f32" || name == "f64"
}

// IsSignedName reports whether the intrinsic is a signed integer type.
func IsSignedName(name string) bool {
	return len(name) > 0 && name[0] == 'i'
}

// Is64BitName reports whether the intrinsic occupies 8 bytes.
func Is64BitName(name string) bool {
	return intrinsicWidths[name] == 8
}

func (s *TypeSpec) IsIntrinsic() bool {
	return s != nil && s.Kind == TypeIntrinsic
}

func (s *TypeSpec) IsPointer() bool {
	return s != nil && s.Kind == TypePointer
}

// MachineType returns the machine representation of a type. Pointers are
// always I32 addresses.
func (s *TypeSpec) MachineType() MachineType {
	switch s.Kind {
	case TypeIntrinsic:
		return MachineTypeOf(s.Name)
	case TypePointer:
		return MachineI32
	}
	panic("no machine type for " + string(s.Kind))
}

// String renders the type the way it is written in source.
func (s *TypeSpec) String() string {
	if s == nil {
		return "<nil>"
	}
	switch s.Kind {
	case TypeIntrinsic:
		return s.Name
	case TypePointer:
		return s.Inner.String() + "*"
	case TypeArray:
		return s.Inner.String() + "[" + intToString(int64(s.Count)) + "]"
	case TypeStruct:
		return s.Name
	}
	return "<unknown>"
}

// TypesEqual reports structural equality of two type specs.
func TypesEqual(a, b *TypeSpec) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case TypeIntrinsic, TypeStruct:
		return a.Name == b.Name
	case TypePointer:
		return TypesEqual(a.Inner, b.Inner)
	case TypeArray:
		return a.Count == b.Count && TypesEqual(a.Inner, b.Inner)
	}
	return false
}

// SizeOf is the size oracle: byte size of a fully-resolved type spec.
func SizeOf(s *TypeSpec) (int, bool) {
	switch s.Kind {
	case TypeIntrinsic:
		return intrinsicWidths[s.Name], true
	case TypePointer:
		return 4, true
	case TypeArray:
		item, ok := SizeOf(s.Inner)
		if !ok {
			return 0, false
		}
		return item * s.Count, true
	case TypeStruct:
		if len(s.Fields) == 0 && s.ByteSize == 0 {
			return 0, false
		}
		return s.ByteSize, true
	}
	return 0, false
}

// LayoutStruct assigns sequential field offsets and the total byte size.
// Fields are packed in declaration order with no padding.
func LayoutStruct(s *TypeSpec) bool {
	if s.Kind != TypeStruct {
		return false
	}
	offset := 0
	for i := range s.Fields {
		size, ok := SizeOf(s.Fields[i].Spec)
		if !ok {
			return false
		}
		s.Fields[i].Offset = offset
		offset += size
	}
	s.ByteSize = offset
	return true
}

// FindField looks up a struct field by name.
func (s *TypeSpec) FindField(name string) *StructField {
	if s.Kind != TypeStruct {
		return nil
	}
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}
