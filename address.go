package main

// compileAddress computes the effective byte address of an lvalue
// expression, emitting the arithmetic as it recurses when emit is true.
// It returns the storage type found at that address, or nil after
// reporting the shape mismatch.
func (fc *funcCompiler) compileAddress(node *ASTNode, emit bool) *TypeSpec {
	switch node.Kind {
	case NodeIdent:
		d := fc.ctx.Decls.Lookup(node.String)
		if d == nil || d.Kind != DeclVariable {
			fc.ctx.Errors.Report(ErrNotAddressable, node, "%q is not an addressable variable", node.String)
			return nil
		}
		if emit {
			fc.b.Emit(ConstInt(MachineI32, int64(d.Address)))
		}
		return fc.ctx.Resolve(d.Spec)

	case NodeDeref:
		if inner := node.Children[0]; inner.Kind == NodeUnary && inner.Op == "&" {
			// *&x cancels; the operand's own address is the answer.
			return fc.compileAddress(inner.Children[0], emit)
		}
		storage := fc.compileAddress(node.Children[0], emit)
		if storage == nil {
			return nil
		}
		if !storage.IsPointer() {
			fc.ctx.Errors.Report(ErrDerefNonPointer, node, "cannot dereference non-pointer type %s", storage)
			return nil
		}
		if emit {
			// Fetch the pointee's address stored at this location.
			fc.b.Emit(&Instruction{Op: OpLoad, Type: MachineI32, Width: 32})
		}
		return fc.ctx.Resolve(storage.Inner)

	case NodeMember:
		storage := fc.compileAddress(node.Children[0], emit)
		if storage == nil {
			return nil
		}
		if storage.Kind != TypeStruct {
			fc.ctx.Errors.Report(ErrMemberMisuse, node, "member access on non-struct type %s", storage)
			return nil
		}
		field := storage.FindField(node.String)
		if field == nil {
			fc.ctx.Errors.Report(ErrMemberMisuse, node, "no member %q in struct %s", node.String, storage.Name)
			return nil
		}
		if emit && field.Offset != 0 {
			fc.b.Emit(ConstInt(MachineI32, int64(field.Offset)))
			fc.b.EmitOp(MachineI32, OpAdd)
		}
		return fc.ctx.Resolve(field.Spec)

	case NodeItem:
		storage := fc.compileAddress(node.Children[0], emit)
		if storage == nil {
			return nil
		}
		if storage.Kind != TypeArray {
			fc.ctx.Errors.Report(ErrItemAccessNotArray, node, "item access on non-array type %s", storage)
			return nil
		}
		itemSize, ok := fc.ctx.SizeOf(storage.Inner)
		if !ok {
			fc.ctx.Errors.Report(ErrItemAccessNotArray, node, "unknown item size for %s", storage)
			return nil
		}
		indexType := fc.compileExpression(node.Children[1], emit)
		if indexType == nil {
			return nil
		}
		if !indexType.IsIntrinsic() {
			fc.ctx.Errors.Report(ErrNonIntrinsicOperand, node.Children[1], "array index must be intrinsic, got %s", indexType)
			return nil
		}
		if emit {
			emitCast(fc.b, indexType.Name, "i32", node.Children[1])
			fc.b.Emit(ConstInt(MachineI32, int64(itemSize)))
			fc.b.EmitOp(MachineI32, OpMul)
			fc.b.EmitOp(MachineI32, OpAdd)
		}
		return fc.ctx.Resolve(storage.Inner)
	}

	fc.ctx.Errors.Report(ErrNotAddressable, node, "expression has no address")
	return nil
}
