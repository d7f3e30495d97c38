package main

// emitCast appends the conversion from one intrinsic to another.
// litOperand, when non-nil, is the source expression: a literal provably
// inside the target's representable range skips the tightening pass.
func emitCast(b *FunctionBuilder, from, to string, litOperand *ASTNode) {
	if from == to {
		return
	}

	// 8- and 16-bit targets: produce a 32-bit value, then tighten.
	if !IsFloatName(to) && intrinsicWidths[to] <= 2 {
		emitCastScalar(b, from, widenName(to))
		if !literalInRange(litOperand, to) {
			emitTighten(b, to)
		}
		return
	}

	emitCastScalar(b, from, to)
}

// widenName maps an 8/16-bit integer name to its 32-bit carrier.
func widenName(name string) string {
	if IsSignedName(name) {
		return "i32"
	}
	return "u32"
}

// emitCastScalar handles the casts between 32/64-bit shapes. Unknown
// combinations are internal invariant violations.
func emitCastScalar(b *FunctionBuilder, from, to string) {
	fm := MachineTypeOf(from)
	tm := MachineTypeOf(to)

	if fm == tm {
		// Same machine shape; at most the signedness differs.
		return
	}

	switch {
	case fm == MachineI64 && tm == MachineI32:
		b.EmitOp(MachineI32, OpWrap64)

	case fm == MachineI32 && tm == MachineI64:
		if IsSignedName(to) {
			b.EmitOp(MachineI64, OpExtend32S)
		} else {
			b.EmitOp(MachineI64, OpExtend32U)
		}

	case !IsFloatName(from) && IsFloatName(to):
		signed := IsSignedName(from)
		var op Op
		if fm == MachineI32 {
			op = OpConvertI32U
			if signed {
				op = OpConvertI32S
			}
		} else {
			op = OpConvertI64U
			if signed {
				op = OpConvertI64S
			}
		}
		b.EmitOp(tm, op)

	case IsFloatName(from) && !IsFloatName(to):
		signed := IsSignedName(to)
		var op Op
		if fm == MachineF32 {
			op = OpTruncF32U
			if signed {
				op = OpTruncF32S
			}
		} else {
			op = OpTruncF64U
			if signed {
				op = OpTruncF64S
			}
		}
		b.EmitOp(tm, op)

	case fm == MachineF32 && tm == MachineF64:
		b.EmitOp(MachineF64, OpPromote32)

	case fm == MachineF64 && tm == MachineF32:
		b.EmitOp(MachineF32, OpDemote64)

	default:
		panic("unreachable cast " + from + " -> " + to)
	}
}

// emitTighten masks a 32-bit value down to an 8- or 16-bit range and
// sign-extends for signed targets.
func emitTighten(b *FunctionBuilder, to string) {
	width := intrinsicWidths[to] * 8
	mask := int64(1)<<uint(width) - 1
	b.Emit(ConstInt(MachineI32, mask))
	b.EmitOp(MachineI32, OpAnd)
	if IsSignedName(to) {
		shift := int64(32 - width)
		b.Emit(ConstInt(MachineI32, shift))
		b.EmitOp(MachineI32, OpShl)
		b.Emit(ConstInt(MachineI32, shift))
		b.EmitOp(MachineI32, OpShrS)
	}
}

// literalInRange reports whether the node is a literal provably inside
// the representable range of an 8/16-bit target.
func literalInRange(node *ASTNode, to string) bool {
	if node == nil || !node.IsLiteral() || node.Lit != LitInt {
		return false
	}
	width := intrinsicWidths[to] * 8
	v := node.Int
	if IsSignedName(to) {
		lo := -(int64(1) << uint(width-1))
		hi := int64(1)<<uint(width-1) - 1
		return v >= lo && v <= hi
	}
	return v >= 0 && v <= int64(1)<<uint(width)-1
}

// storageCast casts the value on the stack to a storage location's type.
// Pointer storage accepts a pointer or any non-float intrinsic; 64-bit
// integers are narrowed before storage. Returns false when the
// combination is invalid (the caller reports W141).
func storageCast(b *FunctionBuilder, value *TypeSpec, storage *TypeSpec, litOperand *ASTNode) bool {
	switch storage.Kind {
	case TypeIntrinsic:
		if !value.IsIntrinsic() {
			return false
		}
		emitCast(b, value.Name, storage.Name, litOperand)
		return true

	case TypePointer:
		if value.IsPointer() {
			return true
		}
		if !value.IsIntrinsic() || IsFloatName(value.Name) {
			return false
		}
		if Is64BitName(value.Name) {
			b.EmitOp(MachineI32, OpWrap64)
		}
		return true
	}
	return false
}

// loadInstr builds the typed load for a storage type: explicit byte
// widths for narrow integers, the sign-extend flag set exactly for
// signed intrinsics.
func loadInstr(spec *TypeSpec) *Instruction {
	if spec.IsPointer() {
		return &Instruction{Op: OpLoad, Type: MachineI32, Width: 32}
	}
	name := spec.Name
	mt := MachineTypeOf(name)
	switch mt {
	case MachineF32:
		return &Instruction{Op: OpLoad, Type: MachineF32, Width: 32}
	case MachineF64:
		return &Instruction{Op: OpLoad, Type: MachineF64, Width: 64}
	case MachineI64:
		return &Instruction{Op: OpLoad, Type: MachineI64, Width: 64, Signed: IsSignedName(name)}
	}
	return &Instruction{
		Op:     OpLoad,
		Type:   MachineI32,
		Width:  intrinsicWidths[name] * 8,
		Signed: IsSignedName(name),
	}
}

// storeInstr builds the typed store for a storage type.
func storeInstr(spec *TypeSpec) *Instruction {
	if spec.IsPointer() {
		return &Instruction{Op: OpStore, Type: MachineI32, Width: 32}
	}
	name := spec.Name
	mt := MachineTypeOf(name)
	switch mt {
	case MachineF32:
		return &Instruction{Op: OpStore, Type: MachineF32, Width: 32}
	case MachineF64:
		return &Instruction{Op: OpStore, Type: MachineF64, Width: 64}
	case MachineI64:
		return &Instruction{Op: OpStore, Type: MachineI64, Width: 64}
	}
	return &Instruction{Op: OpStore, Type: MachineI32, Width: intrinsicWidths[name] * 8}
}
