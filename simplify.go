package main

import (
	"math"
	"math/big"
	"math/bits"
)

// Simplify rewrites an expression tree until a full pass causes no
// change. Passes run in a fixed order: trivial-literal identities,
// literal reordering, additive re-folding, constant folding. Nodes are
// replaced rather than mutated where convenient; callers must use the
// returned node.
func Simplify(node *ASTNode, ctx *Compilation) *ASTNode {
	for {
		changed := 0
		node = rewrite(node, &changed, identityStep)
		node = rewrite(node, &changed, orderStep)
		node = rewrite(node, &changed, refoldStep)
		node = rewrite(node, &changed, func(n *ASTNode, c *int) *ASTNode {
			return foldStep(n, ctx, c)
		})
		if changed == 0 {
			return node
		}
	}
}

// rewrite applies fn post-order: children first, then the node itself.
// Every child slot, the conditional alternate included, receives its own
// rewritten value back.
func rewrite(node *ASTNode, changed *int, fn func(*ASTNode, *int) *ASTNode) *ASTNode {
	for i, child := range node.Children {
		node.Children[i] = rewrite(child, changed, fn)
	}
	return fn(node, changed)
}

// commutativeOps are the operators whose literal operand is ordered to
// the right.
var commutativeOps = map[string]bool{
	"==": true, "!=": true, "&": true, "*": true, "+": true, "^": true, "|": true,
}

// identityStep removes trivial literals from binary operations.
func identityStep(n *ASTNode, changed *int) *ASTNode {
	if n.Kind != NodeBinary {
		return n
	}
	l, r := n.Children[0], n.Children[1]
	switch n.Op {
	case "+", "|", "^":
		if literalIs(l, 0) {
			*changed++
			return r
		}
		if literalIs(r, 0) {
			*changed++
			return l
		}
	case "-":
		if literalIs(l, 0) {
			*changed++
			return &ASTNode{Kind: NodeUnary, Op: "-", Children: []*ASTNode{r}, Line: n.Line}
		}
		if literalIs(r, 0) {
			*changed++
			return l
		}
		if r.IsLiteral() && literalNegative(r) {
			// x - (-k) becomes x + k
			*changed++
			n.Op = "+"
			n.Children[1] = negateLiteral(r)
			return n
		}
	case ">>", ">>>", "<<":
		if literalIs(r, 0) {
			*changed++
			return l
		}
	case "*":
		if literalIs(l, 1) {
			*changed++
			return r
		}
		if literalIs(r, 1) {
			*changed++
			return l
		}
	case "/":
		if literalIs(r, 1) {
			*changed++
			return l
		}
	case "%":
		if literalIs(r, 1) {
			*changed++
			lit := IntLiteral(0)
			lit.Line = n.Line
			return lit
		}
	case "&":
		if literalIs(l, 0) || literalIs(r, 0) {
			*changed++
			lit := IntLiteral(0)
			lit.Line = n.Line
			return lit
		}
	}
	return n
}

// orderStep swaps a left-hand literal to the right for commutative
// operators.
func orderStep(n *ASTNode, changed *int) *ASTNode {
	if n.Kind != NodeBinary || !commutativeOps[n.Op] {
		return n
	}
	if n.Children[0].IsLiteral() && !n.Children[1].IsLiteral() {
		n.Children[0], n.Children[1] = n.Children[1], n.Children[0]
		*changed++
	}
	return n
}

// refoldStep collapses (X op2 L2) op1 L1 into X op2 L' for additive
// operators.
func refoldStep(n *ASTNode, changed *int) *ASTNode {
	if n.Kind != NodeBinary || (n.Op != "+" && n.Op != "-") {
		return n
	}
	l, r := n.Children[0], n.Children[1]
	if !r.IsLiteral() || l.Kind != NodeBinary || (l.Op != "+" && l.Op != "-") {
		return n
	}
	if !l.Children[1].IsLiteral() {
		return n
	}
	l1, l2 := r, l.Children[1]
	var combined *ASTNode
	if n.Op == l.Op {
		combined = evalBinaryLit("+", l2, l1)
	} else {
		combined = evalBinaryLit("-", l2, l1)
	}
	if combined == nil {
		return n
	}
	*changed++
	l.Children[1] = combined
	return l
}

// foldStep evaluates nodes whose relevant children are all literals.
func foldStep(n *ASTNode, ctx *Compilation, changed *int) *ASTNode {
	switch n.Kind {
	case NodeConditional:
		cond, cons, alt := n.Children[0], n.Children[1], n.Children[2]
		if cond.IsLiteral() && cons.IsLiteral() && alt.IsLiteral() {
			*changed++
			if cond.LiteralTruthy() {
				return cons
			}
			return alt
		}

	case NodeBinary:
		if n.Children[0].IsLiteral() && n.Children[1].IsLiteral() {
			if folded := evalBinaryLit(n.Op, n.Children[0], n.Children[1]); folded != nil {
				*changed++
				folded.Line = n.Line
				return folded
			}
		}

	case NodeUnary:
		if n.Op != "&" && n.Children[0].IsLiteral() {
			if folded := evalUnaryLit(n.Op, n.Children[0]); folded != nil {
				*changed++
				folded.Line = n.Line
				return folded
			}
		}

	case NodeBuiltin:
		all := true
		for _, arg := range n.Children {
			if !arg.IsLiteral() {
				all = false
				break
			}
		}
		if all && len(n.Children) > 0 {
			if folded := evalBuiltin(n.String, n.Children); folded != nil {
				*changed++
				folded.Line = n.Line
				return folded
			}
		}

	case NodeCast:
		if n.Children[0].IsLiteral() {
			if folded := applyCastLit(n.String, n.Children[0]); folded != nil {
				*changed++
				folded.Line = n.Line
				return folded
			}
		}

	case NodeSizeOf:
		if size, ok := ctx.SizeOf(n.TypeSpec); ok {
			*changed++
			lit := IntLiteral(int64(size))
			lit.Line = n.Line
			return lit
		}

	case NodeIdent:
		if d := ctx.Decls.Lookup(n.String); d != nil && d.Kind == DeclConst && d.Const.IsLiteral() {
			*changed++
			lit := d.Const.CloneLiteral()
			lit.Line = n.Line
			return lit
		}
	}
	return n
}

func literalNegative(n *ASTNode) bool {
	switch n.Lit {
	case LitInt:
		return n.Int < 0
	case LitReal:
		return n.Real < 0
	case LitBig:
		return n.Big.Sign() < 0
	}
	return false
}

func negateLiteral(n *ASTNode) *ASTNode {
	switch n.Lit {
	case LitInt:
		return IntLiteral(-n.Int)
	case LitReal:
		return RealLiteral(-n.Real)
	case LitBig:
		return BigLiteral(new(big.Int).Neg(n.Big))
	}
	return nil
}

func literalFloat(n *ASTNode) float64 {
	switch n.Lit {
	case LitInt:
		return float64(n.Int)
	case LitReal:
		return n.Real
	case LitBig:
		f, _ := new(big.Float).SetInt(n.Big).Float64()
		return f
	}
	return 0
}

func literalBig(n *ASTNode) *big.Int {
	if n.Lit == LitBig {
		return n.Big
	}
	return big.NewInt(n.Int)
}

func boolLiteral(b bool) *ASTNode {
	if b {
		return IntLiteral(1)
	}
	return IntLiteral(0)
}

// evalBinaryLit folds a binary operation over two literals. Arithmetic
// uses arbitrary precision when either operand is a big integer, int64
// when both are bounded integers, and host doubles otherwise. Returns
// nil when the operation cannot be folded (division by zero, bitwise on
// reals, oversized shifts).
func evalBinaryLit(op string, l, r *ASTNode) *ASTNode {
	anyReal := l.Lit == LitReal || r.Lit == LitReal
	anyBig := l.Lit == LitBig || r.Lit == LitBig

	if anyBig && !anyReal {
		return evalBinaryBig(op, literalBig(l), literalBig(r))
	}
	if anyReal {
		return evalBinaryReal(op, literalFloat(l), literalFloat(r))
	}
	return evalBinaryInt(op, l.Int, r.Int)
}

func evalBinaryInt(op string, l, r int64) *ASTNode {
	switch op {
	case "+":
		return IntLiteral(l + r)
	case "-":
		return IntLiteral(l - r)
	case "*":
		return IntLiteral(l * r)
	case "/":
		if r == 0 {
			return nil
		}
		if l%r == 0 {
			return IntLiteral(l / r)
		}
		return RealLiteral(float64(l) / float64(r))
	case "%":
		if r == 0 {
			return nil
		}
		return IntLiteral(l % r)
	case "&":
		return IntLiteral(l & r)
	case "|":
		return IntLiteral(l | r)
	case "^":
		return IntLiteral(l ^ r)
	case "<<":
		if r < 0 || r > 63 {
			return nil
		}
		return IntLiteral(l << uint(r))
	case ">>":
		if r < 0 || r > 63 {
			return nil
		}
		return IntLiteral(l >> uint(r))
	case ">>>":
		if r < 0 || r > 63 {
			return nil
		}
		return IntLiteral(int64(uint64(l) >> uint(r)))
	case "==":
		return boolLiteral(l == r)
	case "!=":
		return boolLiteral(l != r)
	case "<":
		return boolLiteral(l < r)
	case ">":
		return boolLiteral(l > r)
	case "<=":
		return boolLiteral(l <= r)
	case ">=":
		return boolLiteral(l >= r)
	}
	return nil
}

func evalBinaryReal(op string, l, r float64) *ASTNode {
	switch op {
	case "+":
		return RealLiteral(l + r)
	case "-":
		return RealLiteral(l - r)
	case "*":
		return RealLiteral(l * r)
	case "/":
		if r == 0 {
			return nil
		}
		return RealLiteral(l / r)
	case "%":
		if r == 0 {
			return nil
		}
		return RealLiteral(math.Mod(l, r))
	case "==":
		return boolLiteral(l == r)
	case "!=":
		return boolLiteral(l != r)
	case "<":
		return boolLiteral(l < r)
	case ">":
		return boolLiteral(l > r)
	case "<=":
		return boolLiteral(l <= r)
	case ">=":
		return boolLiteral(l >= r)
	}
	// Bitwise operators are left for the emitter, which rejects float
	// operands with a diagnostic.
	return nil
}

func evalBinaryBig(op string, l, r *big.Int) *ASTNode {
	switch op {
	case "+":
		return BigLiteral(new(big.Int).Add(l, r))
	case "-":
		return BigLiteral(new(big.Int).Sub(l, r))
	case "*":
		return BigLiteral(new(big.Int).Mul(l, r))
	case "/":
		if r.Sign() == 0 {
			return nil
		}
		quo, rem := new(big.Int).QuoRem(l, r, new(big.Int))
		if rem.Sign() == 0 {
			return BigLiteral(quo)
		}
		lf, _ := new(big.Float).SetInt(l).Float64()
		rf, _ := new(big.Float).SetInt(r).Float64()
		return RealLiteral(lf / rf)
	case "%":
		if r.Sign() == 0 {
			return nil
		}
		return BigLiteral(new(big.Int).Rem(l, r))
	case "&":
		return BigLiteral(new(big.Int).And(l, r))
	case "|":
		return BigLiteral(new(big.Int).Or(l, r))
	case "^":
		return BigLiteral(new(big.Int).Xor(l, r))
	case "<<":
		if !r.IsInt64() || r.Int64() < 0 || r.Int64() > 63 {
			return nil
		}
		return BigLiteral(new(big.Int).Lsh(l, uint(r.Int64())))
	case ">>":
		if !r.IsInt64() || r.Int64() < 0 || r.Int64() > 63 {
			return nil
		}
		return BigLiteral(new(big.Int).Rsh(l, uint(r.Int64())))
	case ">>>":
		if !r.IsInt64() || r.Int64() < 0 || r.Int64() > 63 {
			return nil
		}
		unsigned := modReduce(l, 64, false)
		return BigLiteral(unsigned.Rsh(unsigned, uint(r.Int64())))
	case "==":
		return boolLiteral(l.Cmp(r) == 0)
	case "!=":
		return boolLiteral(l.Cmp(r) != 0)
	case "<":
		return boolLiteral(l.Cmp(r) < 0)
	case ">":
		return boolLiteral(l.Cmp(r) > 0)
	case "<=":
		return boolLiteral(l.Cmp(r) <= 0)
	case ">=":
		return boolLiteral(l.Cmp(r) >= 0)
	}
	return nil
}

func evalUnaryLit(op string, operand *ASTNode) *ASTNode {
	switch op {
	case "+":
		return operand
	case "-":
		return negateLiteral(operand)
	case "!":
		return boolLiteral(!operand.LiteralTruthy())
	case "~":
		switch operand.Lit {
		case LitInt:
			return IntLiteral(^operand.Int)
		case LitBig:
			return BigLiteral(new(big.Int).Not(operand.Big))
		}
	}
	return nil
}

func evalBuiltin(name string, args []*ASTNode) *ASTNode {
	anyReal := false
	anyBig := false
	for _, arg := range args {
		if arg.Lit == LitReal {
			anyReal = true
		}
		if arg.Lit == LitBig {
			anyBig = true
		}
	}

	switch name {
	case "abs":
		if len(args) != 1 {
			return nil
		}
		switch args[0].Lit {
		case LitInt:
			if args[0].Int < 0 {
				return IntLiteral(-args[0].Int)
			}
			return IntLiteral(args[0].Int)
		case LitReal:
			return RealLiteral(math.Abs(args[0].Real))
		case LitBig:
			return BigLiteral(new(big.Int).Abs(args[0].Big))
		}

	case "min", "max":
		if len(args) < 2 {
			return nil
		}
		if anyReal {
			acc := literalFloat(args[0])
			for _, arg := range args[1:] {
				v := literalFloat(arg)
				if name == "min" {
					acc = math.Min(acc, v)
				} else {
					acc = math.Max(acc, v)
				}
			}
			return RealLiteral(acc)
		}
		if anyBig {
			acc := literalBig(args[0])
			for _, arg := range args[1:] {
				v := literalBig(arg)
				if (name == "min") == (v.Cmp(acc) < 0) {
					acc = v
				}
			}
			return BigLiteral(new(big.Int).Set(acc))
		}
		acc := args[0].Int
		for _, arg := range args[1:] {
			if (name == "min") == (arg.Int < acc) {
				acc = arg.Int
			}
		}
		return IntLiteral(acc)

	case "floor", "ceil", "trunc", "nearest", "sqrt", "neg":
		if len(args) != 1 || args[0].Lit != LitReal {
			return nil
		}
		v := args[0].Real
		switch name {
		case "floor":
			return RealLiteral(math.Floor(v))
		case "ceil":
			return RealLiteral(math.Ceil(v))
		case "trunc":
			return RealLiteral(math.Trunc(v))
		case "nearest":
			return RealLiteral(math.RoundToEven(v))
		case "sqrt":
			return RealLiteral(math.Sqrt(v))
		case "neg":
			return RealLiteral(-v)
		}

	case "copysign":
		if len(args) != 2 || args[0].Lit != LitReal || args[1].Lit != LitReal {
			return nil
		}
		return RealLiteral(math.Copysign(args[0].Real, args[1].Real))

	case "clz", "ctz", "popcnt":
		if len(args) != 1 || anyReal {
			return nil
		}
		if args[0].Lit == LitBig {
			v := modReduce(args[0].Big, 64, false).Uint64()
			switch name {
			case "clz":
				return IntLiteral(int64(bits.LeadingZeros64(v)))
			case "ctz":
				return IntLiteral(int64(bits.TrailingZeros64(v)))
			case "popcnt":
				return IntLiteral(int64(bits.OnesCount64(v)))
			}
		}
		v := uint32(args[0].Int)
		switch name {
		case "clz":
			return IntLiteral(int64(bits.LeadingZeros32(v)))
		case "ctz":
			return IntLiteral(int64(bits.TrailingZeros32(v)))
		case "popcnt":
			return IntLiteral(int64(bits.OnesCount32(v)))
		}
	}
	return nil
}

// modReduce reduces v modulo 2^width, interpreting the result as signed
// or unsigned two's complement.
func modReduce(v *big.Int, width int, signed bool) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	out := new(big.Int).Mod(v, mod) // non-negative
	if signed {
		half := new(big.Int).Rsh(mod, 1)
		if out.Cmp(half) >= 0 {
			out.Sub(out, mod)
		}
	}
	return out
}

// applyCastLit folds a type cast of a literal. Returns nil when the
// runtime cast would trap (float-to-integer overflow or NaN); the node
// is then left as a run-time operation.
func applyCastLit(target string, lit *ASTNode) *ASTNode {
	if !IsIntrinsicName(target) {
		return nil
	}
	if IsFloatName(target) {
		v := literalFloat(lit)
		if target == "f32" {
			return RealLiteral(float64(float32(v)))
		}
		return RealLiteral(v)
	}

	width := intrinsicWidths[target] * 8
	signed := IsSignedName(target)

	var v *big.Int
	switch lit.Lit {
	case LitReal:
		f := lit.Real
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		t := math.Trunc(f)
		if !floatFitsWidth(t, width, signed) {
			return nil
		}
		v, _ = new(big.Float).SetFloat64(t).Int(nil)
	default:
		v = literalBig(lit)
	}

	out := modReduce(v, width, signed)
	if width == 64 {
		return BigLiteral(out)
	}
	return IntLiteral(out.Int64())
}

// floatFitsWidth checks that a truncated float is representable in the
// target integer type, matching WebAssembly's trapping trunc.
func floatFitsWidth(t float64, width int, signed bool) bool {
	if signed {
		lo := -math.Pow(2, float64(width-1))
		hi := math.Pow(2, float64(width-1))
		return t >= lo && t < hi
	}
	return t >= 0 && t < math.Pow(2, float64(width))
}
