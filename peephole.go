package main

// The peephole optimizer reruns every rule until a full pass makes no
// change. Each rule scans an instruction list, recursing into if/block/
// loop bodies, and reports the number of rewrites performed.

type rewriteFn func(instrs []*Instruction, depth int) ([]*Instruction, int)

// Optimize runs the peephole rules on a function body to a fixed point,
// then sweeps unreferenced locals.
func Optimize(b *FunctionBuilder) {
	for {
		total := 0
		total += applyRule(b, dropDeadCode)
		total += applyRule(b, ifToBrIf)
		total += applyRule(b, constBrIf)
		total += applyRule(b, redundantBranchPair)
		total += applyRule(b, absorbOffsets)
		total += applyRule(b, absorbNarrowMask)
		total += applyRule(b, foldConstInstrs)
		total += applyRule(b, removeIdentities)
		total += applyRule(b, collapseDoubleEqz)
		total += applyRule(b, formTee)
		total += removeSingleUseTees(b)
		total += applyRule(b, duplicateTeeConst)
		total += applyRule(b, simplifyEmptyConstructs)
		total += applyRule(b, peelLoops)
		total += applyRule(b, peelBlocks)
		if total == 0 {
			break
		}
	}
	sweepLocals(b)
}

func applyRule(b *FunctionBuilder, fn rewriteFn) int {
	body, n := rewriteBodies(b.Body, 0, fn)
	b.Body = body
	return n
}

// rewriteBodies recurses into nested instruction lists first, then
// applies fn to the list itself.
func rewriteBodies(instrs []*Instruction, depth int, fn rewriteFn) ([]*Instruction, int) {
	count := 0
	for _, ins := range instrs {
		var n int
		ins.Then, n = rewriteBodies(ins.Then, depth+1, fn)
		count += n
		ins.Else, n = rewriteBodies(ins.Else, depth+1, fn)
		count += n
		ins.Body, n = rewriteBodies(ins.Body, depth+1, fn)
		count += n
	}
	out, n := fn(instrs, depth)
	return out, count + n
}

func isTerminator(ins *Instruction) bool {
	return ins.Op == OpReturn || ins.Op == OpBr
}

// Rule 1: instructions following a return or an unconditional branch are
// dead.
func dropDeadCode(instrs []*Instruction, depth int) ([]*Instruction, int) {
	for i, ins := range instrs {
		if isTerminator(ins) && i+1 < len(instrs) {
			return instrs[:i+1], len(instrs) - i - 1
		}
	}
	return instrs, 0
}

// Rule 2: if (...) { br L } with an empty else becomes br_if L.
func ifToBrIf(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i, ins := range instrs {
		if ins.Op == OpIf && len(ins.Else) == 0 && len(ins.Then) == 1 && ins.Then[0].Op == OpBr {
			instrs[i] = &Instruction{Op: OpBrIf, Label: ins.Then[0].Label}
			count++
		}
	}
	return instrs, count
}

// Rule 3: a br_if with a constant condition is a br or nothing.
func constBrIf(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+1 < len(instrs); i++ {
		if instrs[i].IsIntConst() && instrs[i].Type == MachineI32 && instrs[i+1].Op == OpBrIf {
			if instrs[i].Int != 0 {
				instrs[i] = &Instruction{Op: OpBr, Label: instrs[i+1].Label}
				instrs = splice(instrs, i+1, 1)
			} else {
				instrs = splice(instrs, i, 2)
			}
			count++
		}
	}
	return instrs, count
}

// Rule 4: two consecutive unconditional branches to the same label.
func redundantBranchPair(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+1 < len(instrs); i++ {
		if instrs[i].Op == OpBr && instrs[i+1].Op == OpBr && instrs[i].Label == instrs[i+1].Label {
			instrs = splice(instrs, i+1, 1)
			count++
		}
	}
	return instrs, count
}

// foldableBinaries are the binary operations folded at instruction level.
var foldableBinaries = map[Op]bool{
	OpMul: true, OpAdd: true, OpAnd: true, OpOr: true, OpXor: true,
	OpShl: true, OpShrS: true, OpShrU: true,
}

// Rule 5: constant arithmetic at instruction level.
func foldConstInstrs(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i < len(instrs); i++ {
		// const a; <unary conversion>
		if i+1 < len(instrs) && instrs[i].Op == OpConst {
			next := instrs[i+1]
			if instrs[i].Type == MachineI32 && next.Op == OpExtend32S {
				instrs[i] = ConstInt(MachineI64, int64(int32(instrs[i].Int)))
				instrs = splice(instrs, i+1, 1)
				count++
				continue
			}
			if instrs[i].Type == MachineI32 && next.Op == OpExtend32U {
				instrs[i] = ConstInt(MachineI64, int64(uint32(instrs[i].Int)))
				instrs = splice(instrs, i+1, 1)
				count++
				continue
			}
			if instrs[i].Type == MachineF64 && next.Op == OpDemote64 {
				instrs[i] = ConstFloat(MachineF32, float64(float32(instrs[i].Float)))
				instrs = splice(instrs, i+1, 1)
				count++
				continue
			}
		}

		// const a; const b; <binary>
		if i+2 < len(instrs) &&
			instrs[i].IsIntConst() && instrs[i+1].IsIntConst() &&
			instrs[i].Type == instrs[i+1].Type &&
			foldableBinaries[instrs[i+2].Op] && instrs[i+2].Type == instrs[i].Type {
			folded := foldBinaryConst(instrs[i+2].Op, instrs[i].Type, instrs[i].Int, instrs[i+1].Int)
			instrs[i] = folded
			instrs = splice(instrs, i+1, 2)
			count++
			continue
		}

		// const a; add; const b; add  fuses the constants.
		if i+3 < len(instrs) &&
			instrs[i].IsIntConst() && instrs[i+1].Op == OpAdd &&
			instrs[i+2].IsIntConst() && instrs[i+3].Op == OpAdd &&
			instrs[i].Type == instrs[i+2].Type &&
			instrs[i+1].Type == instrs[i].Type && instrs[i+3].Type == instrs[i].Type {
			instrs[i] = foldBinaryConst(OpAdd, instrs[i].Type, instrs[i].Int, instrs[i+2].Int)
			instrs = splice(instrs, i+1, 2)
			count++
			continue
		}
	}
	return instrs, count
}

func foldBinaryConst(op Op, mt MachineType, a, b int64) *Instruction {
	var v int64
	switch op {
	case OpMul:
		v = a * b
	case OpAdd:
		v = a + b
	case OpAnd:
		v = a & b
	case OpOr:
		v = a | b
	case OpXor:
		v = a ^ b
	case OpShl:
		v = a << uint(b&63)
	case OpShrS:
		v = a >> uint(b&63)
	case OpShrU:
		if mt == MachineI32 {
			v = int64(uint32(a) >> uint(b&31))
		} else {
			v = int64(uint64(a) >> uint(b&63))
		}
	}
	if mt == MachineI32 {
		v = int64(int32(v))
	}
	return ConstInt(mt, v)
}

// Rule 6: adding zero or multiplying by one does nothing.
func removeIdentities(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+1 < len(instrs); i++ {
		c, next := instrs[i], instrs[i+1]
		if !c.IsIntConst() || next.Type != c.Type {
			continue
		}
		if c.Int == 0 && (next.Op == OpAdd || next.Op == OpSub) {
			instrs = splice(instrs, i, 2)
			count++
			i--
		} else if c.Int == 1 && (next.Op == OpMul || next.Op == OpDivS || next.Op == OpDivU) {
			instrs = splice(instrs, i, 2)
			count++
			i--
		}
	}
	return instrs, count
}

// Rule 7: const c; eqz; eqz is just the boolean value of c.
func collapseDoubleEqz(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+2 < len(instrs); i++ {
		if instrs[i].IsIntConst() && instrs[i+1].Op == OpEqz && instrs[i+2].Op == OpEqz {
			v := int64(0)
			if instrs[i].Int != 0 {
				v = 1
			}
			instrs[i] = ConstInt(MachineI32, v)
			instrs = splice(instrs, i+1, 2)
			count++
		}
	}
	return instrs, count
}

// Rule 8: masking before a narrow store is redundant; the store already
// truncates.
func absorbNarrowMask(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+2 < len(instrs); i++ {
		c, and, store := instrs[i], instrs[i+1], instrs[i+2]
		if !c.IsIntConst() || and.Op != OpAnd || store.Op != OpStore {
			continue
		}
		if (c.Int == 0xff && store.Width == 8) || (c.Int == 0xffff && store.Width == 16) {
			instrs = splice(instrs, i, 2)
			count++
		}
	}
	return instrs, count
}

// Rule 9: local.set x; local.get x is local.tee x.
func formTee(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+1 < len(instrs); i++ {
		if instrs[i].Op == OpLocalSet && instrs[i+1].Op == OpLocalGet && instrs[i].Sym == instrs[i+1].Sym {
			instrs[i] = &Instruction{Op: OpLocalTee, Sym: instrs[i].Sym}
			instrs = splice(instrs, i+1, 1)
			count++
		}
	}
	return instrs, count
}

// Rule 10: a tee whose local has no other reference in the whole body is
// a no-op on the stack.
func removeSingleUseTees(b *FunctionBuilder) int {
	counts := make(map[string]int)
	countLocalRefs(b.Body, counts)
	body, n := rewriteBodies(b.Body, 0, func(instrs []*Instruction, depth int) ([]*Instruction, int) {
		count := 0
		for i := 0; i < len(instrs); i++ {
			if instrs[i].Op == OpLocalTee && counts[instrs[i].Sym] == 1 {
				instrs = splice(instrs, i, 1)
				count++
				i--
			}
		}
		return instrs, count
	})
	b.Body = body
	return n
}

func countLocalRefs(instrs []*Instruction, counts map[string]int) {
	for _, ins := range instrs {
		switch ins.Op {
		case OpLocalGet, OpLocalSet, OpLocalTee:
			counts[ins.Sym]++
		}
		countLocalRefs(ins.Then, counts)
		countLocalRefs(ins.Else, counts)
		countLocalRefs(ins.Body, counts)
	}
}

// Rule 11: a constant added to an address folds into the memory
// operation's offset field. Only non-negative constants are absorbable.
func absorbOffsets(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+2 < len(instrs); i++ {
		c, add := instrs[i], instrs[i+1]
		if !c.IsIntConst() || c.Type != MachineI32 || c.Int <= 0 || add.Op != OpAdd || add.Type != MachineI32 {
			continue
		}
		// const k; add; <load>
		if instrs[i+2].Op == OpLoad {
			instrs[i+2].Offset += int(c.Int)
			instrs = splice(instrs, i, 2)
			count++
			continue
		}
		// const k; add; (local.get|global.get); <store>
		if i+3 < len(instrs) &&
			(instrs[i+2].Op == OpLocalGet || instrs[i+2].Op == OpGlobalGet) &&
			instrs[i+3].Op == OpStore {
			instrs[i+3].Offset += int(c.Int)
			instrs = splice(instrs, i, 2)
			count++
		}
	}
	return instrs, count
}

// Rule 12: const k; local.tee x; local.get x duplicates the constant
// instead of round-tripping through the local.
func duplicateTeeConst(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i+2 < len(instrs); i++ {
		c, tee, get := instrs[i], instrs[i+1], instrs[i+2]
		if c.Op == OpConst && tee.Op == OpLocalTee && get.Op == OpLocalGet && tee.Sym == get.Sym {
			dup := *c
			instrs[i+1] = &dup
			instrs = splice(instrs, i+2, 1)
			count++
		}
	}
	return instrs, count
}

// Rule 13: empty or branch-only blocks and loops.
func simplifyEmptyConstructs(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i < len(instrs); i++ {
		ins := instrs[i]
		switch ins.Op {
		case OpLoop:
			if len(ins.Body) == 0 {
				instrs = splice(instrs, i, 1)
				count++
				i--
			} else if len(ins.Body) == 1 &&
				(ins.Body[0].Op == OpBr || ins.Body[0].Op == OpBrIf) &&
				ins.Body[0].Label != ins.Label {
				instrs[i] = ins.Body[0]
				count++
			}
		case OpBlock:
			if len(ins.Body) == 0 {
				instrs = splice(instrs, i, 1)
				count++
				i--
			} else if len(ins.Body) == 1 && ins.Body[0].Op == OpBr && ins.Body[0].Label == ins.Label {
				instrs = splice(instrs, i, 1)
				count++
				i--
			}
		}
	}
	return instrs, count
}

// branchesTo reports whether any br/br_if in the list targets label.
func branchesTo(instrs []*Instruction, label string) bool {
	for _, ins := range instrs {
		if (ins.Op == OpBr || ins.Op == OpBrIf) && ins.Label == label {
			return true
		}
		if branchesTo(ins.Then, label) || branchesTo(ins.Else, label) || branchesTo(ins.Body, label) {
			return true
		}
	}
	return false
}

func containsBrIf(instrs []*Instruction) bool {
	for _, ins := range instrs {
		if ins.Op == OpBrIf {
			return true
		}
		if containsBrIf(ins.Then) || containsBrIf(ins.Else) || containsBrIf(ins.Body) {
			return true
		}
	}
	return false
}

// Rule 14: a loop nothing branches back to is straight-line code.
func peelLoops(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i < len(instrs); i++ {
		ins := instrs[i]
		if ins.Op == OpLoop && len(ins.Body) > 0 && !branchesTo(ins.Body, ins.Label) {
			instrs = spliceIn(instrs, i, ins.Body)
			count++
			i--
		}
	}
	return instrs, count
}

// Rule 15: a block whose label is only branched to from its own top
// level (a plain forward exit) is inlined; the top-level branches to it
// are dropped.
func peelBlocks(instrs []*Instruction, depth int) ([]*Instruction, int) {
	count := 0
	for i := 0; i < len(instrs); i++ {
		ins := instrs[i]
		if ins.Op != OpBlock || len(ins.Body) == 0 || containsBrIf(ins.Body) {
			continue
		}
		nested := false
		for _, inner := range ins.Body {
			if branchesTo(inner.Then, ins.Label) || branchesTo(inner.Else, ins.Label) || branchesTo(inner.Body, ins.Label) {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		var body []*Instruction
		for _, inner := range ins.Body {
			if inner.Op == OpBr && inner.Label == ins.Label {
				continue
			}
			body = append(body, inner)
		}
		instrs = spliceIn(instrs, i, body)
		count++
		i--
	}
	return instrs, count
}

// sweepLocals drops declared locals with no remaining reference.
// Parameters are part of the signature and always stay.
func sweepLocals(b *FunctionBuilder) {
	counts := make(map[string]int)
	countLocalRefs(b.Body, counts)
	kept := b.Locals[:0]
	for _, local := range b.Locals {
		if local.Param || counts[local.MachineName] > 0 {
			kept = append(kept, local)
		} else {
			delete(b.byName, local.Name)
			delete(b.temps, local.Machine)
		}
	}
	b.Locals = kept
}

// absorbInlineParam is the inline-call-site shortcut: when the final
// argument is a const/local.get/global.get immediately stored to the
// inline parameter, and the parameter has exactly one read in the body,
// the read is replaced by the source instruction and both the set and
// the source are removed. Reports whether the rewrite happened.
func absorbInlineParam(b *FunctionBuilder, param string) bool {
	machine := mangleLocal(param)

	setAt := -1
	for i := 0; i+1 < len(b.Body); i++ {
		src := b.Body[i]
		if (src.Op == OpConst || src.Op == OpLocalGet || src.Op == OpGlobalGet) &&
			b.Body[i+1].Op == OpLocalSet && b.Body[i+1].Sym == machine {
			setAt = i
			break
		}
	}
	if setAt < 0 {
		return false
	}

	gets := 0
	var countGets func(instrs []*Instruction)
	countGets = func(instrs []*Instruction) {
		for _, ins := range instrs {
			if ins.Op == OpLocalGet && ins.Sym == machine {
				gets++
			}
			countGets(ins.Then)
			countGets(ins.Else)
			countGets(ins.Body)
		}
	}
	countGets(b.Body)
	if gets != 1 {
		return false
	}

	src := b.Body[setAt]
	replaced := false
	var replace func(instrs []*Instruction)
	replace = func(instrs []*Instruction) {
		for i, ins := range instrs {
			if ins.Op == OpLocalGet && ins.Sym == machine {
				instrs[i] = src
				replaced = true
				return
			}
			replace(ins.Then)
			replace(ins.Else)
			replace(ins.Body)
			if replaced {
				return
			}
		}
	}
	b.Body = append(b.Body[:setAt], b.Body[setAt+2:]...)
	replace(b.Body)
	return replaced
}

// splice removes n instructions starting at i.
func splice(instrs []*Instruction, i, n int) []*Instruction {
	return append(instrs[:i], instrs[i+n:]...)
}

// spliceIn replaces the instruction at i with a list.
func spliceIn(instrs []*Instruction, i int, body []*Instruction) []*Instruction {
	out := make([]*Instruction, 0, len(instrs)-1+len(body))
	out = append(out, instrs[:i]...)
	out = append(out, body...)
	out = append(out, instrs[i+1:]...)
	return out
}
