package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestAddressStructField(t *testing.T) {
	ctx := NewCompilation()
	defineStructVar(t, ctx)

	// Field a sits at offset zero: no add is emitted.
	text, resultType := compileExpr(t, "s.a", ctx, nil)
	be.Equal(t, text, "i32.const 100; i32.load")
	be.Equal(t, resultType.Name, "i32")

	text, resultType = compileExpr(t, "s.b", ctx, nil)
	be.Equal(t, text, "i32.const 100; i32.const 4; i32.add; i32.load")
	be.Equal(t, resultType.Name, "i32")
}

func TestAddressArrayItem(t *testing.T) {
	ctx := NewCompilation()
	arr := &TypeSpec{Kind: TypeArray, Inner: IntrinsicSpec("i32"), Count: 4}
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "arr", Spec: arr, Address: 200}), nil)

	text, resultType := compileExpr(t, "arr[i]", ctx, [][2]string{{"i", "i32"}})
	be.Equal(t, text, "i32.const 200; local.get $i; i32.const 4; i32.mul; i32.add; i32.load")
	be.Equal(t, resultType.Name, "i32")

	// A constant index folds into the load's static offset after optimization.
	optimized := compileExprOptimized(t, "arr[2]", ctx, nil)
	be.Equal(t, optimized, "i32.const 200; i32.load offset=8")
}

func TestAddressArrayItemCastsIndex(t *testing.T) {
	ctx := NewCompilation()
	arr := &TypeSpec{Kind: TypeArray, Inner: IntrinsicSpec("i16"), Count: 8}
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "arr", Spec: arr, Address: 64}), nil)

	text, _ := compileExpr(t, "arr[i]", ctx, [][2]string{{"i", "i64"}})
	be.Equal(t, text, "i32.const 64; local.get $i; i32.wrap_i64; i32.const 2; i32.mul; i32.add; i32.load16_s")
}

func TestAddressDereference(t *testing.T) {
	ctx := NewCompilation()
	ptr := &TypeSpec{Kind: TypePointer, Inner: IntrinsicSpec("i32")}
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "p", Spec: ptr, Address: 300}), nil)

	text, resultType := compileExpr(t, "*p", ctx, nil)
	be.Equal(t, text, "i32.const 300; i32.load; i32.load")
	be.Equal(t, resultType.Name, "i32")
}

func TestAddressOf(t *testing.T) {
	ctx := NewCompilation()
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "m", Spec: IntrinsicSpec("f64"), Address: 48}), nil)

	text, resultType := compileExpr(t, "&m", ctx, nil)
	be.Equal(t, text, "i32.const 48")
	be.Equal(t, resultType.Name, "i32")
}

func TestAddressRoundTrips(t *testing.T) {
	ctx := NewCompilation()
	ptr := &TypeSpec{Kind: TypePointer, Inner: IntrinsicSpec("i32")}
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "p", Spec: ptr, Address: 300}), nil)
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "m", Spec: IntrinsicSpec("i32"), Address: 32}), nil)

	// &(*p) is the value of p.
	addrOfDeref := compileExprOptimized(t, "&(*p)", ctx, nil)
	valueOfP := compileExprOptimized(t, "p", ctx, nil)
	be.Equal(t, addrOfDeref, valueOfP)

	// *&(m) is m.
	derefOfAddr := compileExprOptimized(t, "*&(m)", ctx, nil)
	valueOfM := compileExprOptimized(t, "m", ctx, nil)
	be.Equal(t, derefOfAddr, valueOfM)
}

func TestAddressNestedAggregates(t *testing.T) {
	ctx := NewCompilation()
	point := &TypeSpec{Kind: TypeStruct, Name: "Point", Fields: []StructField{
		{Name: "x", Spec: IntrinsicSpec("i32")},
		{Name: "y", Spec: IntrinsicSpec("i32")},
	}}
	be.True(t, LayoutStruct(point))
	grid := &TypeSpec{Kind: TypeArray, Inner: point, Count: 10}
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclTypeAlias, Name: "Point", Spec: point}), nil)
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "grid", Spec: grid, Address: 400}), nil)

	text, resultType := compileExpr(t, "grid[3].y", ctx, nil)
	be.Equal(t, text,
		"i32.const 400; i32.const 3; i32.const 8; i32.mul; i32.add; i32.const 4; i32.add; i32.load")
	be.Equal(t, resultType.Name, "i32")
}

func TestAddressShapeErrors(t *testing.T) {
	ctx := NewCompilation()
	defineStructVar(t, ctx)
	be.Err(t, ctx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "m", Spec: IntrinsicSpec("i32"), Address: 32}), nil)

	tests := []struct {
		input string
		code  ErrorCode
	}{
		{"*m", ErrDerefNonPointer},
		{"m.field", ErrMemberMisuse},
		{"s.missing", ErrMemberMisuse},
		{"m[0]", ErrItemAccessNotArray},
		{"&x", ErrNotAddressable}, // locals have no memory address
		{"&(1 + 2)", ErrNotAddressable},
	}

	for _, test := range tests {
		testCtx := NewCompilation()
		defineStructVar(t, testCtx)
		be.Err(t, testCtx.Decls.Define(&Declaration{Kind: DeclVariable, Name: "m", Spec: IntrinsicSpec("i32"), Address: 32}), nil)
		_, resultType := compileExpr(t, test.input, testCtx, [][2]string{{"x", "i32"}})
		be.Equal(t, resultType == nil, true)
		be.Equal(t, firstErrorCode(testCtx), test.code)
	}
}
