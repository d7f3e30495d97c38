package main

// funcCompiler compiles one function body against the shared
// compilation context. One instance per function.
type funcCompiler struct {
	ctx *Compilation
	b   *FunctionBuilder
}

// CompileFunction is the compile-function entry point: it produces a
// builder containing the final locals and instruction list after
// peephole optimization.
func CompileFunction(fn *FunctionDecl, ctx *Compilation) *FunctionBuilder {
	b := NewFunctionBuilder(fn.Name)
	if fn.Result != "" {
		b.Result = MachineTypeOf(fn.Result)
	}

	for _, param := range fn.Params {
		spec := ctx.Resolve(param.Spec)
		if !spec.IsIntrinsic() && !spec.IsPointer() {
			ctx.Errors.ReportLine(ErrNotIntrinsic, 0, "parameter %q of %s has non-intrinsic type %s", param.Name, fn.Name, spec)
			continue
		}
		if _, err := b.AddLocal(param.Name, spec, true); err != nil {
			ctx.Errors.ReportLine(ErrDuplicateLocal, 0, "duplicate parameter %q in %s", param.Name, fn.Name)
		}
	}

	fc := &funcCompiler{ctx: ctx, b: b}
	for _, stmt := range fn.Body {
		fc.compileStatement(stmt)
	}

	Optimize(b)
	traceInstructions(ctx.Trace, b.Body, 0)
	return b
}

func traceInstructions(t *TraceSink, instrs []*Instruction, depth int) {
	for _, ins := range instrs {
		t.Emit("inject", depth, instrText(ins))
		traceInstructions(t, ins.Then, depth+1)
		traceInstructions(t, ins.Else, depth+1)
		traceInstructions(t, ins.Body, depth+1)
	}
}

// compileStatement dispatches one statement. Only local-variable
// declarations and expression statements generate code; the remaining
// statement forms are unsupported in this compiler core.
func (fc *funcCompiler) compileStatement(stmt *ASTNode) {
	switch stmt.Kind {
	case NodeVar:
		fc.compileLocalDeclaration(stmt)

	case NodeBlock:
		for _, child := range stmt.Children {
			fc.compileStatement(child)
		}

	case NodeIf, NodeWhile, NodeDo, NodeBreak, NodeContinue, NodeReturn:
		fc.ctx.Errors.Report(ErrUnsupportedStatement, stmt, "%s statements are not supported", stmt.Kind)

	case NodeBinary:
		if stmt.Op == "=" {
			fc.ctx.Errors.Report(ErrUnsupportedStatement, stmt, "assignment statements are not supported")
			return
		}
		fc.compileExpressionStatement(stmt)

	default:
		fc.compileExpressionStatement(stmt)
	}
}

func (fc *funcCompiler) compileExpressionStatement(stmt *ASTNode) {
	stmt = fc.simplifyTraced(stmt)
	if t := fc.compileExpression(stmt, true); t != nil {
		// An expression statement may not leave its value behind.
		fc.b.Emit(&Instruction{Op: OpDrop})
	}
}

func (fc *funcCompiler) simplifyTraced(expr *ASTNode) *ASTNode {
	fc.ctx.Trace.Emit("pExpr", 0, ToSExpr(expr))
	expr = Simplify(expr, fc.ctx)
	fc.ctx.Trace.Emit("pExpr", 1, ToSExpr(expr))
	return expr
}

// compileLocalDeclaration handles `var name type [= init];`.
func (fc *funcCompiler) compileLocalDeclaration(stmt *ASTNode) {
	if fc.b.LookupLocal(stmt.String) != nil {
		fc.ctx.Errors.Report(ErrDuplicateLocal, stmt, "duplicate local %q", stmt.String)
		return
	}
	declared := fc.ctx.Resolve(stmt.TypeSpec)
	if !declared.IsIntrinsic() && !declared.IsPointer() {
		fc.ctx.Errors.Report(ErrNotIntrinsic, stmt, "local %q has non-intrinsic type %s", stmt.String, declared)
		return
	}

	if len(stmt.Children) > 0 {
		init := fc.simplifyTraced(stmt.Children[0])
		valueType := fc.compileExpression(init, true)
		if valueType != nil {
			if !storageCast(fc.b, valueType, declared, init) {
				fc.ctx.Errors.Report(ErrInvalidStorageCast, stmt, "cannot store %s into %s", valueType, declared)
			}
			info, err := fc.b.AddLocal(stmt.String, declared, false)
			if err != nil {
				fc.ctx.Errors.Report(ErrDuplicateLocal, stmt, "duplicate local %q", stmt.String)
				return
			}
			fc.b.Emit(&Instruction{Op: OpLocalSet, Sym: info.MachineName})
			fc.ctx.Trace.Emit("local", 0, stmt.String+" "+declared.String())
			return
		}
	}

	if _, err := fc.b.AddLocal(stmt.String, declared, false); err != nil {
		fc.ctx.Errors.Report(ErrDuplicateLocal, stmt, "duplicate local %q", stmt.String)
		return
	}
	fc.ctx.Trace.Emit("local", 0, stmt.String+" "+declared.String())
}

// resultLattice picks the common type of two intrinsic operands:
// floats win over everything, then 64-bit integers, then i32.
func resultLattice(a, b string) string {
	if IsFloatName(a) || IsFloatName(b) {
		return "f64"
	}
	if Is64BitName(a) || Is64BitName(b) {
		return "i64"
	}
	return "i32"
}

// integerOnlyOps reject a float result type.
var integerOnlyOps = map[string]bool{
	"%": true, "&": true, "|": true, "^": true, "<<": true, ">>": true, ">>>": true,
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

// compileExpression walks an expression, returning its result type and
// appending code when emit is true. Operand types are probed with
// emit=false first so the operation's result type can direct the casts.
// A nil return means a diagnostic was reported; parents propagate it
// without emitting.
func (fc *funcCompiler) compileExpression(node *ASTNode, emit bool) *TypeSpec {
	switch node.Kind {
	case NodeLiteral:
		return fc.compileLiteral(node, emit)

	case NodeIdent:
		return fc.compileIdentifier(node, emit)

	case NodeUnary:
		return fc.compileUnary(node, emit)

	case NodeBinary:
		return fc.compileBinary(node, emit)

	case NodeConditional:
		return fc.compileConditional(node, emit)

	case NodeCast:
		operandType := fc.compileExpression(node.Children[0], false)
		if operandType == nil {
			return nil
		}
		if !operandType.IsIntrinsic() {
			fc.ctx.Errors.Report(ErrNotIntrinsic, node, "cannot cast non-intrinsic type %s", operandType)
			return nil
		}
		if emit {
			fc.compileExpression(node.Children[0], true)
			emitCast(fc.b, operandType.Name, node.String, node.Children[0])
		}
		return IntrinsicSpec(node.String)

	case NodeMember, NodeItem, NodeDeref:
		storage := fc.compileAddress(node, emit)
		if storage == nil {
			return nil
		}
		if storage.IsIntrinsic() || storage.IsPointer() {
			if emit {
				fc.b.Emit(loadInstr(storage))
			}
		}
		// Aggregates leave their address on the stack for further
		// indexing.
		return storage

	case NodeBuiltin:
		return fc.compileBuiltin(node, emit)

	case NodeCall:
		fc.ctx.Errors.Report(ErrUnsupportedStatement, node, "function invocation is not implemented")
		return nil

	case NodeSizeOf:
		size, ok := fc.ctx.SizeOf(node.TypeSpec)
		if !ok {
			fc.ctx.Errors.Report(ErrUnknownIdentifier, node, "unknown size for type %s", node.TypeSpec)
			return nil
		}
		if emit {
			fc.b.Emit(ConstInt(MachineI32, int64(size)))
		}
		return IntrinsicSpec("i32")
	}

	fc.ctx.Errors.Report(ErrUnknownIdentifier, node, "cannot compile %s node", node.Kind)
	return nil
}

func (fc *funcCompiler) compileLiteral(node *ASTNode, emit bool) *TypeSpec {
	switch node.Lit {
	case LitInt:
		if emit {
			fc.b.Emit(ConstInt(MachineI32, node.Int))
		}
		return IntrinsicSpec("i32")
	case LitReal:
		if emit {
			fc.b.Emit(ConstFloat(MachineF64, node.Real))
		}
		return IntrinsicSpec("f64")
	case LitBig:
		if emit {
			fc.b.Emit(ConstInt(MachineI64, modReduce(node.Big, 64, true).Int64()))
		}
		return IntrinsicSpec("i64")
	}
	panic("unknown literal kind")
}

func (fc *funcCompiler) compileIdentifier(node *ASTNode, emit bool) *TypeSpec {
	if local := fc.b.LookupLocal(node.String); local != nil {
		if emit {
			fc.b.Emit(&Instruction{Op: OpLocalGet, Sym: local.MachineName})
		}
		return local.SourceType
	}

	d := fc.ctx.Decls.Lookup(node.String)
	if d == nil {
		fc.ctx.Errors.Report(ErrUnknownIdentifier, node, "unknown identifier %q", node.String)
		return nil
	}
	switch d.Kind {
	case DeclGlobal:
		if emit {
			fc.b.Emit(&Instruction{Op: OpGlobalGet, Sym: mangleLocal(d.Name)})
		}
		return d.Spec

	case DeclVariable:
		storage := fc.compileAddress(node, emit)
		if storage == nil {
			return nil
		}
		if storage.IsIntrinsic() || storage.IsPointer() {
			if emit {
				fc.b.Emit(loadInstr(storage))
			}
		}
		return storage

	case DeclConst:
		return fc.compileExpression(d.Const, emit)
	}

	fc.ctx.Errors.Report(ErrUnknownIdentifier, node, "%q cannot be used as a value", node.String)
	return nil
}

func (fc *funcCompiler) compileUnary(node *ASTNode, emit bool) *TypeSpec {
	if node.Op == "&" {
		if fc.compileAddress(node.Children[0], emit) == nil {
			return nil
		}
		return IntrinsicSpec("i32")
	}

	operand := node.Children[0]
	operandType := fc.compileExpression(operand, false)
	if operandType == nil {
		return nil
	}
	if !operandType.IsIntrinsic() {
		fc.ctx.Errors.Report(ErrNonIntrinsicOperand, node, "unary %s on non-intrinsic type %s", node.Op, operandType)
		return nil
	}
	name := operandType.Name
	mt := MachineTypeOf(name)

	switch node.Op {
	case "+":
		if emit {
			fc.compileExpression(operand, true)
			emitCast(fc.b, name, "i32", operand)
		}
		return IntrinsicSpec("i32")

	case "-":
		if emit {
			fc.compileExpression(operand, true)
			if IsFloatName(name) {
				fc.b.Emit(ConstFloat(mt, -1))
			} else {
				fc.b.Emit(ConstInt(mt, -1))
			}
			fc.b.EmitOp(mt, OpMul)
		}
		return operandType

	case "!":
		if IsFloatName(name) {
			fc.ctx.Errors.Report(ErrIntegerOperatorOnFloat, node, "! requires an integer operand, got %s", name)
			return nil
		}
		if emit {
			fc.compileExpression(operand, true)
			fc.b.EmitOp(mt, OpEqz)
		}
		return IntrinsicSpec("i32")

	case "~":
		if IsFloatName(name) {
			fc.ctx.Errors.Report(ErrIntegerOperatorOnFloat, node, "~ requires an integer operand, got %s", name)
			return nil
		}
		if emit {
			fc.compileExpression(operand, true)
			fc.b.Emit(ConstInt(mt, -1))
			fc.b.EmitOp(mt, OpXor)
		}
		return operandType
	}

	panic("unknown unary operator " + node.Op)
}

func (fc *funcCompiler) compileBinary(node *ASTNode, emit bool) *TypeSpec {
	if node.Op == "=" {
		fc.ctx.Errors.Report(ErrUnsupportedStatement, node, "assignment expressions are not supported")
		return nil
	}
	left, right := node.Children[0], node.Children[1]
	leftType := fc.compileExpression(left, false)
	rightType := fc.compileExpression(right, false)
	if leftType == nil || rightType == nil {
		return nil
	}
	if !leftType.IsIntrinsic() || !rightType.IsIntrinsic() {
		fc.ctx.Errors.Report(ErrNonIntrinsicOperand, node, "operator %s requires intrinsic operands", node.Op)
		return nil
	}

	resultName := resultLattice(leftType.Name, rightType.Name)
	signed := IsSignedName(leftType.Name) || IsSignedName(rightType.Name)

	if integerOnlyOps[node.Op] && resultName == "f64" {
		fc.ctx.Errors.Report(ErrIntegerOperatorOnFloat, node, "operator %s requires integer operands", node.Op)
		return nil
	}

	op, ok := mapBinaryOp(node.Op, resultName == "f64", signed)
	if !ok {
		panic("unknown binary operator " + node.Op)
	}

	if emit {
		fc.compileExpression(left, true)
		emitCast(fc.b, leftType.Name, resultName, left)
		fc.compileExpression(right, true)
		emitCast(fc.b, rightType.Name, resultName, right)
		fc.b.EmitOp(MachineTypeOf(resultName), op)
	}

	if comparisonOps[node.Op] {
		return IntrinsicSpec("i32")
	}
	return IntrinsicSpec(resultName)
}

// mapBinaryOp selects the machine operation for a source operator.
func mapBinaryOp(op string, float bool, signed bool) (Op, bool) {
	if float {
		switch op {
		case "+":
			return OpAdd, true
		case "-":
			return OpSub, true
		case "*":
			return OpMul, true
		case "/":
			return OpDiv, true
		case "==":
			return OpEq, true
		case "!=":
			return OpNe, true
		case "<":
			return OpLt, true
		case ">":
			return OpGt, true
		case "<=":
			return OpLe, true
		case ">=":
			return OpGe, true
		}
		return "", false
	}

	pick := func(s, u Op) Op {
		if signed {
			return s
		}
		return u
	}
	switch op {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return pick(OpDivS, OpDivU), true
	case "%":
		return pick(OpRemS, OpRemU), true
	case "&":
		return OpAnd, true
	case "|":
		return OpOr, true
	case "^":
		return OpXor, true
	case "<<":
		return OpShl, true
	case ">>":
		return pick(OpShrS, OpShrU), true
	case ">>>":
		return OpShrU, true
	case "==":
		return OpEq, true
	case "!=":
		return OpNe, true
	case "<":
		return pick(OpLtS, OpLtU), true
	case ">":
		return pick(OpGtS, OpGtU), true
	case "<=":
		return pick(OpLeS, OpLeU), true
	case ">=":
		return pick(OpGeS, OpGeU), true
	}
	return "", false
}

func (fc *funcCompiler) compileConditional(node *ASTNode, emit bool) *TypeSpec {
	cond, cons, alt := node.Children[0], node.Children[1], node.Children[2]
	condType := fc.compileExpression(cond, false)
	consType := fc.compileExpression(cons, false)
	altType := fc.compileExpression(alt, false)
	if condType == nil || consType == nil || altType == nil {
		return nil
	}
	if !condType.IsIntrinsic() || !consType.IsIntrinsic() || !altType.IsIntrinsic() {
		fc.ctx.Errors.Report(ErrNonIntrinsicOperand, node, "conditional requires intrinsic operands")
		return nil
	}

	resultName := resultLattice(consType.Name, altType.Name)
	if emit {
		// select consumes (value1, value2, condition), condition topmost.
		fc.compileExpression(cons, true)
		emitCast(fc.b, consType.Name, resultName, cons)
		fc.compileExpression(alt, true)
		emitCast(fc.b, altType.Name, resultName, alt)
		fc.compileExpression(cond, true)
		emitCast(fc.b, condType.Name, "i32", cond)
		fc.b.Emit(&Instruction{Op: OpSelect})
	}
	return IntrinsicSpec(resultName)
}

// floatOnlyBuiltins and integerOnlyBuiltins gate argument types.
var floatOnlyBuiltins = map[string]bool{
	"ceil": true, "floor": true, "trunc": true, "nearest": true,
	"sqrt": true, "neg": true, "copysign": true,
}

var integerOnlyBuiltins = map[string]bool{
	"clz": true, "ctz": true, "popcnt": true,
}

func (fc *funcCompiler) compileBuiltin(node *ASTNode, emit bool) *TypeSpec {
	name := node.String
	args := node.Children

	argTypes := make([]*TypeSpec, len(args))
	for i, arg := range args {
		t := fc.compileExpression(arg, false)
		if t == nil {
			return nil
		}
		if !t.IsIntrinsic() {
			fc.ctx.Errors.Report(ErrNotIntrinsic, arg, "%s requires intrinsic arguments", name)
			return nil
		}
		argTypes[i] = t
	}

	switch name {
	case "min", "max":
		if len(args) < 2 {
			fc.ctx.Errors.Report(ErrNotIntrinsic, node, "%s needs at least two arguments", name)
			return nil
		}
		resultName := "f32"
		for _, t := range argTypes {
			if t.Name == "f64" {
				resultName = "f64"
			}
		}
		op := OpMin
		if name == "max" {
			op = OpMax
		}
		if emit {
			mt := MachineTypeOf(resultName)
			fc.compileExpression(args[0], true)
			emitCast(fc.b, argTypes[0].Name, resultName, args[0])
			for i := 1; i < len(args); i++ {
				fc.compileExpression(args[i], true)
				emitCast(fc.b, argTypes[i].Name, resultName, args[i])
				fc.b.EmitOp(mt, op)
			}
		}
		return IntrinsicSpec(resultName)

	case "copysign":
		if len(args) != 2 {
			fc.ctx.Errors.Report(ErrNotIntrinsic, node, "copysign needs two arguments")
			return nil
		}
		for _, t := range argTypes {
			if !IsFloatName(t.Name) {
				fc.ctx.Errors.Report(ErrFloatBuiltinOnInteger, node, "copysign requires float arguments, got %s", t.Name)
				return nil
			}
		}
		resultName := resultCopysign(argTypes)
		if emit {
			fc.compileExpression(args[0], true)
			emitCast(fc.b, argTypes[0].Name, resultName, args[0])
			fc.compileExpression(args[1], true)
			emitCast(fc.b, argTypes[1].Name, resultName, args[1])
			fc.b.EmitOp(MachineTypeOf(resultName), OpCopysign)
		}
		return IntrinsicSpec(resultName)

	case "abs":
		if len(args) != 1 {
			fc.ctx.Errors.Report(ErrNotIntrinsic, node, "abs needs one argument")
			return nil
		}
		argName := argTypes[0].Name
		mt := MachineTypeOf(argName)
		if IsFloatName(argName) {
			if emit {
				fc.compileExpression(args[0], true)
				fc.b.EmitOp(mt, OpAbs)
			}
			return argTypes[0]
		}
		if emit {
			fc.compileExpression(args[0], true)
			tmp := fc.b.TempLocal(mt)
			fc.b.Emit(&Instruction{Op: OpLocalTee, Sym: tmp.MachineName})
			fc.b.Emit(ConstInt(mt, 0))
			fc.b.EmitOp(mt, OpLtS)
			fc.b.Emit(&Instruction{
				Op:     OpIf,
				Result: mt,
				Then: []*Instruction{
					{Op: OpLocalGet, Sym: tmp.MachineName},
					ConstInt(mt, -1),
					{Op: OpMul, Type: mt},
				},
				Else: []*Instruction{
					{Op: OpLocalGet, Sym: tmp.MachineName},
				},
			})
		}
		return argTypes[0]
	}

	if len(args) != 1 {
		fc.ctx.Errors.Report(ErrNotIntrinsic, node, "%s needs one argument", name)
		return nil
	}
	argName := argTypes[0].Name
	mt := MachineTypeOf(argName)

	if floatOnlyBuiltins[name] {
		if !IsFloatName(argName) {
			fc.ctx.Errors.Report(ErrFloatBuiltinOnInteger, node, "%s requires a float argument, got %s", name, argName)
			return nil
		}
		if emit {
			fc.compileExpression(args[0], true)
			fc.b.EmitOp(mt, floatUnaryOp(name))
		}
		return argTypes[0]
	}

	if integerOnlyBuiltins[name] {
		if IsFloatName(argName) {
			fc.ctx.Errors.Report(ErrIntegerBuiltinOnFloat, node, "%s requires an integer argument, got %s", name, argName)
			return nil
		}
		if emit {
			fc.compileExpression(args[0], true)
			fc.b.EmitOp(mt, integerUnaryOp(name))
		}
		return argTypes[0]
	}

	fc.ctx.Errors.Report(ErrUnknownIdentifier, node, "unknown built-in %q", name)
	return nil
}

func resultCopysign(argTypes []*TypeSpec) string {
	for _, t := range argTypes {
		if t.Name == "f64" {
			return "f64"
		}
	}
	return "f32"
}

func floatUnaryOp(name string) Op {
	switch name {
	case "ceil":
		return OpCeil
	case "floor":
		return OpFloor
	case "trunc":
		return OpTrunc
	case "nearest":
		return OpNearest
	case "sqrt":
		return OpSqrt
	case "neg":
		return OpNeg
	}
	panic("not a float unary builtin: " + name)
}

func integerUnaryOp(name string) Op {
	switch name {
	case "clz":
		return OpClz
	case "ctz":
		return OpCtz
	case "popcnt":
		return OpPopcnt
	}
	panic("not an integer unary builtin: " + name)
}
