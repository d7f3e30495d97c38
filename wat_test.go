package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestInstrText(t *testing.T) {
	tests := []struct {
		ins      *Instruction
		expected string
	}{
		{ConstInt(MachineI32, 11), "i32.const 11"},
		{ConstInt(MachineI64, -1), "i64.const -1"},
		{ConstFloat(MachineF64, 2.5), "f64.const 2.5"},
		{ConstFloat(MachineF32, 1), "f32.const 1"},
		{&Instruction{Op: OpAdd, Type: MachineI32}, "i32.add"},
		{&Instruction{Op: OpShrU, Type: MachineI64}, "i64.shr_u"},
		{&Instruction{Op: OpEqz, Type: MachineI64}, "i64.eqz"},
		{&Instruction{Op: OpWrap64, Type: MachineI32}, "i32.wrap_i64"},
		{&Instruction{Op: OpExtend32S, Type: MachineI64}, "i64.extend_i32_s"},
		{&Instruction{Op: OpPromote32, Type: MachineF64}, "f64.promote_f32"},
		{&Instruction{Op: OpLocalGet, Sym: "$x"}, "local.get $x"},
		{&Instruction{Op: OpLocalTee, Sym: "$.tmp.i32"}, "local.tee $.tmp.i32"},
		{&Instruction{Op: OpGlobalSet, Sym: "$g"}, "global.set $g"},
		{&Instruction{Op: OpCall, Sym: "$f"}, "call $f"},
		{&Instruction{Op: OpBr, Label: "$L"}, "br $L"},
		{&Instruction{Op: OpBrIf, Label: "$L"}, "br_if $L"},
		{&Instruction{Op: OpSelect}, "select"},
		{&Instruction{Op: OpDrop}, "drop"},
		{&Instruction{Op: OpReturn}, "return"},
		{&Instruction{Op: OpLoad, Type: MachineI32, Width: 32}, "i32.load"},
		{&Instruction{Op: OpLoad, Type: MachineI32, Width: 8, Signed: true}, "i32.load8_s"},
		{&Instruction{Op: OpLoad, Type: MachineI32, Width: 16}, "i32.load16_u"},
		{&Instruction{Op: OpLoad, Type: MachineI64, Width: 64, Signed: true}, "i64.load"},
		{&Instruction{Op: OpLoad, Type: MachineF64, Width: 64, Offset: 8}, "f64.load offset=8"},
		{&Instruction{Op: OpStore, Type: MachineI32, Width: 8}, "i32.store8"},
		{&Instruction{Op: OpStore, Type: MachineI32, Width: 32, Offset: 4}, "i32.store offset=4"},
		{&Instruction{Op: OpBlock, Label: "$B"}, "block $B"},
		{&Instruction{Op: OpLoop, Label: "$L", Result: MachineI32}, "loop $L (result i32)"},
		{&Instruction{Op: OpIf, Result: MachineI64}, "if (result i64)"},
	}

	for _, test := range tests {
		be.Equal(t, instrText(test.ins), test.expected)
	}
}

func TestRenderFunctionShape(t *testing.T) {
	b := NewFunctionBuilder("add")
	_, err := b.AddLocal("a", IntrinsicSpec("i32"), true)
	be.Err(t, err, nil)
	_, err = b.AddLocal("b", IntrinsicSpec("i32"), true)
	be.Err(t, err, nil)
	_, err = b.AddLocal("sum", IntrinsicSpec("i64"), false)
	be.Err(t, err, nil)
	b.Result = MachineI64
	b.Body = []*Instruction{
		{Op: OpLocalGet, Sym: "$a"},
		{Op: OpLocalGet, Sym: "$b"},
		{Op: OpAdd, Type: MachineI32},
		{Op: OpExtend32S, Type: MachineI64},
		{Op: OpLocalSet, Sym: "$sum"},
		{Op: OpLocalGet, Sym: "$sum"},
	}

	be.Equal(t, RenderFunction(b), `(func $add (param $a i32) (param $b i32) (result i64)
  (local $sum i64)
  local.get $a
  local.get $b
  i32.add
  i64.extend_i32_s
  local.set $sum
  local.get $sum
)`)
}

func TestRenderNestedControl(t *testing.T) {
	b := NewFunctionBuilder("f")
	b.Body = []*Instruction{
		{
			Op:    OpBlock,
			Label: "$exit",
			Body: []*Instruction{
				{
					Op:   OpIf,
					Then: []*Instruction{{Op: OpBr, Label: "$exit"}},
					Else: []*Instruction{{Op: OpNop}},
				},
			},
		},
	}

	be.Equal(t, RenderFunction(b), `(func $f
  block $exit
    if
      br $exit
    else
      nop
    end
  end
)`)
}

func TestRenderFlatNesting(t *testing.T) {
	instrs := []*Instruction{
		{
			Op:    OpLoop,
			Label: "$L",
			Body: []*Instruction{
				{Op: OpLocalGet, Sym: "$c"},
				{Op: OpBrIf, Label: "$L"},
			},
		},
	}
	be.Equal(t, RenderFlat(instrs), "loop $L; local.get $c; br_if $L; end")
}
