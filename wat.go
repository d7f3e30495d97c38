package main

import (
	"strconv"
	"strings"
)

// untypedOps render without a machine-type prefix.
var untypedOps = map[Op]bool{
	OpLocalGet: true, OpLocalSet: true, OpLocalTee: true,
	OpGlobalGet: true, OpGlobalSet: true,
	OpSelect: true, OpDrop: true, OpReturn: true,
	OpBr: true, OpBrIf: true, OpIf: true, OpBlock: true, OpLoop: true,
	OpCall: true, OpNop: true, OpUnreachable: true,
}

func machineBits(mt MachineType) int {
	if mt == MachineI64 || mt == MachineF64 {
		return 64
	}
	return 32
}

// instrText renders a single instruction (the header line for control
// instructions).
func instrText(ins *Instruction) string {
	switch ins.Op {
	case OpConst:
		if ins.Type == MachineF32 || ins.Type == MachineF64 {
			return string(ins.Type) + ".const " + strconv.FormatFloat(ins.Float, 'g', -1, 64)
		}
		return string(ins.Type) + ".const " + strconv.FormatInt(ins.Int, 10)

	case OpLoad:
		text := string(ins.Type) + ".load"
		if ins.Width < machineBits(ins.Type) {
			text += strconv.Itoa(ins.Width)
			if ins.Signed {
				text += "_s"
			} else {
				text += "_u"
			}
		}
		return text + offsetText(ins.Offset)

	case OpStore:
		text := string(ins.Type) + ".store"
		if ins.Width < machineBits(ins.Type) {
			text += strconv.Itoa(ins.Width)
		}
		return text + offsetText(ins.Offset)

	case OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet, OpGlobalSet:
		return string(ins.Op) + " " + ins.Sym

	case OpCall:
		return "call " + ins.Sym

	case OpBr, OpBrIf:
		return string(ins.Op) + " " + ins.Label

	case OpBlock, OpLoop:
		text := string(ins.Op)
		if ins.Label != "" {
			text += " " + ins.Label
		}
		return text + resultText(ins.Result)

	case OpIf:
		return "if" + resultText(ins.Result)
	}

	if untypedOps[ins.Op] {
		return string(ins.Op)
	}
	return string(ins.Type) + "." + string(ins.Op)
}

func offsetText(offset int) string {
	if offset == 0 {
		return ""
	}
	return " offset=" + strconv.Itoa(offset)
}

func resultText(mt MachineType) string {
	if mt == MachineNone {
		return ""
	}
	return " (result " + string(mt) + ")"
}

func indentTo(b *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

func renderInstructions(b *strings.Builder, instrs []*Instruction, level int) {
	for _, ins := range instrs {
		indentTo(b, level)
		b.WriteString(instrText(ins))
		b.WriteString("\n")
		switch ins.Op {
		case OpIf:
			renderInstructions(b, ins.Then, level+1)
			if len(ins.Else) > 0 {
				indentTo(b, level)
				b.WriteString("else\n")
				renderInstructions(b, ins.Else, level+1)
			}
			indentTo(b, level)
			b.WriteString("end\n")
		case OpBlock, OpLoop:
			renderInstructions(b, ins.Body, level+1)
			indentTo(b, level)
			b.WriteString("end\n")
		}
	}
}

// RenderFlat joins an instruction list (recursing into control bodies)
// with "; ". Handy for compact assertions.
func RenderFlat(instrs []*Instruction) string {
	var parts []string
	var walk func(list []*Instruction)
	walk = func(list []*Instruction) {
		for _, ins := range list {
			parts = append(parts, instrText(ins))
			switch ins.Op {
			case OpIf:
				walk(ins.Then)
				if len(ins.Else) > 0 {
					parts = append(parts, "else")
					walk(ins.Else)
				}
				parts = append(parts, "end")
			case OpBlock, OpLoop:
				walk(ins.Body)
				parts = append(parts, "end")
			}
		}
	}
	walk(instrs)
	return strings.Join(parts, "; ")
}

// RenderFunction renders one compiled function.
func RenderFunction(fn *FunctionBuilder) string {
	var b strings.Builder
	b.WriteString("(func $")
	b.WriteString(fn.Name)
	for _, local := range fn.Locals {
		if local.Param {
			b.WriteString(" (param " + local.MachineName + " " + string(local.Machine) + ")")
		}
	}
	if fn.Result != MachineNone {
		b.WriteString(" (result " + string(fn.Result) + ")")
	}
	b.WriteString("\n")
	for _, local := range fn.Locals {
		if !local.Param {
			indentTo(&b, 1)
			b.WriteString("(local " + local.MachineName + " " + string(local.Machine) + ")\n")
		}
	}
	renderInstructions(&b, fn.Body, 1)
	b.WriteString(")")
	return b.String()
}

// RenderModule renders the whole compilation: memory, globals, and the
// compiled functions.
func RenderModule(ctx *Compilation, fns []*FunctionBuilder) string {
	var b strings.Builder
	b.WriteString("(module\n")
	indentTo(&b, 1)
	b.WriteString("(memory 1)\n")

	for _, name := range ctx.Decls.Order {
		d := ctx.Decls.Lookup(name)
		if d.Kind != DeclGlobal {
			continue
		}
		mt := d.Spec.MachineType()
		zero := string(mt) + ".const 0"
		indentTo(&b, 1)
		b.WriteString("(global " + mangleLocal(d.Name) + " (mut " + string(mt) + ") (" + zero + "))\n")
	}

	for _, fn := range fns {
		for _, line := range strings.Split(RenderFunction(fn), "\n") {
			indentTo(&b, 1)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString(")")
	return b.String()
}
