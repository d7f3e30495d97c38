package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestMachineTypeMapping(t *testing.T) {
	tests := []struct {
		name     string
		expected MachineType
	}{
		{"i8", MachineI32},
		{"u8", MachineI32},
		{"i16", MachineI32},
		{"u16", MachineI32},
		{"i32", MachineI32},
		{"u32", MachineI32},
		{"i64", MachineI64},
		{"u64", MachineI64},
		{"f32", MachineF32},
		{"f64", MachineF64},
	}

	for _, test := range tests {
		be.Equal(t, MachineTypeOf(test.name), test.expected)
	}
}

func TestIntrinsicPredicates(t *testing.T) {
	be.Equal(t, IsSignedName("i16"), true)
	be.Equal(t, IsSignedName("u16"), false)
	be.Equal(t, IsFloatName("f32"), true)
	be.Equal(t, IsFloatName("i32"), false)
	be.Equal(t, Is64BitName("u64"), true)
	be.Equal(t, Is64BitName("f64"), true)
	be.Equal(t, Is64BitName("i32"), false)
	be.Equal(t, IsIntrinsicName("i128"), false)
}

func TestTypesEqual(t *testing.T) {
	i32 := IntrinsicSpec("i32")
	i64 := IntrinsicSpec("i64")
	tests := []struct {
		name     string
		a, b     *TypeSpec
		expected bool
	}{
		{
			name:     "same intrinsic types",
			a:        i32,
			b:        IntrinsicSpec("i32"),
			expected: true,
		},
		{
			name:     "different intrinsic types",
			a:        i32,
			b:        i64,
			expected: false,
		},
		{
			name:     "intrinsic vs pointer",
			a:        i32,
			b:        &TypeSpec{Kind: TypePointer, Inner: i32},
			expected: false,
		},
		{
			name:     "same pointer types",
			a:        &TypeSpec{Kind: TypePointer, Inner: i32},
			b:        &TypeSpec{Kind: TypePointer, Inner: i32},
			expected: true,
		},
		{
			name:     "different pointee",
			a:        &TypeSpec{Kind: TypePointer, Inner: i32},
			b:        &TypeSpec{Kind: TypePointer, Inner: i64},
			expected: false,
		},
		{
			name:     "same array types",
			a:        &TypeSpec{Kind: TypeArray, Inner: i32, Count: 4},
			b:        &TypeSpec{Kind: TypeArray, Inner: i32, Count: 4},
			expected: true,
		},
		{
			name:     "different array lengths",
			a:        &TypeSpec{Kind: TypeArray, Inner: i32, Count: 4},
			b:        &TypeSpec{Kind: TypeArray, Inner: i32, Count: 5},
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			be.Equal(t, TypesEqual(test.a, test.b), test.expected)
		})
	}
}

func TestSizeOf(t *testing.T) {
	i16 := IntrinsicSpec("i16")
	tests := []struct {
		spec     *TypeSpec
		expected int
	}{
		{IntrinsicSpec("i8"), 1},
		{IntrinsicSpec("u16"), 2},
		{IntrinsicSpec("f32"), 4},
		{IntrinsicSpec("u64"), 8},
		{&TypeSpec{Kind: TypePointer, Inner: IntrinsicSpec("f64")}, 4},
		{&TypeSpec{Kind: TypeArray, Inner: i16, Count: 4}, 8},
		{&TypeSpec{Kind: TypeArray, Inner: &TypeSpec{Kind: TypeArray, Inner: i16, Count: 3}, Count: 2}, 12},
	}

	for _, test := range tests {
		size, ok := SizeOf(test.spec)
		be.True(t, ok)
		be.Equal(t, size, test.expected)
	}
}

func TestLayoutStruct(t *testing.T) {
	s := &TypeSpec{Kind: TypeStruct, Name: "Mixed", Fields: []StructField{
		{Name: "a", Spec: IntrinsicSpec("i8")},
		{Name: "b", Spec: IntrinsicSpec("i16")},
		{Name: "c", Spec: IntrinsicSpec("f64")},
		{Name: "d", Spec: &TypeSpec{Kind: TypePointer, Inner: IntrinsicSpec("i32")}},
	}}
	be.True(t, LayoutStruct(s))

	be.Equal(t, s.Fields[0].Offset, 0)
	be.Equal(t, s.Fields[1].Offset, 1)
	be.Equal(t, s.Fields[2].Offset, 3)
	be.Equal(t, s.Fields[3].Offset, 11)
	be.Equal(t, s.ByteSize, 15)

	size, ok := SizeOf(s)
	be.True(t, ok)
	be.Equal(t, size, 15)
}

func TestFindField(t *testing.T) {
	s := &TypeSpec{Kind: TypeStruct, Name: "P", Fields: []StructField{
		{Name: "x", Spec: IntrinsicSpec("i32")},
	}}
	LayoutStruct(s)

	be.Equal(t, s.FindField("x") != nil, true)
	be.Equal(t, s.FindField("nope") == nil, true)
}

func TestTypeSpecString(t *testing.T) {
	i16 := IntrinsicSpec("i16")
	tests := []struct {
		spec     *TypeSpec
		expected string
	}{
		{i16, "i16"},
		{&TypeSpec{Kind: TypePointer, Inner: i16}, "i16*"},
		{&TypeSpec{Kind: TypeArray, Inner: i16, Count: 4}, "i16[4]"},
		{&TypeSpec{Kind: TypeStruct, Name: "S"}, "S"},
	}

	for _, test := range tests {
		be.Equal(t, test.spec.String(), test.expected)
	}
}
