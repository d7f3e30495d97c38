package main

// builtinFunctions are the compiler intrinsic functions recognized by
// the expression compiler.
var builtinFunctions = map[string]bool{
	"abs":      true,
	"min":      true,
	"max":      true,
	"floor":    true,
	"ceil":     true,
	"trunc":    true,
	"nearest":  true,
	"sqrt":     true,
	"clz":      true,
	"ctz":      true,
	"popcnt":   true,
	"neg":      true,
	"copysign": true,
}

// precedence returns the precedence level for a given token type
func precedence(tokenType TokenType) int {
	switch tokenType {
	case ASSIGN:
		return 1 // assignment has very low precedence
	case QUESTION:
		return 2
	case EQ, NOT_EQ:
		return 3
	case LT, GT, LE, GE:
		return 4
	case BIT_OR:
		return 5
	case XOR:
		return 6
	case BIT_AND:
		return 7
	case SHL, SHR, SHR_U:
		return 8
	case PLUS, MINUS:
		return 9
	case ASTERISK, SLASH, PERCENT:
		return 10
	case LBRACKET, LPAREN, DOT: // subscript, call, and member operators
		return 12 // highest precedence (postfix)
	default:
		return 0 // not an operator
	}
}

// unaryPrecedence binds tighter than any binary operator but looser than
// the postfix operators.
const unaryPrecedence = 11

// isOperator returns true if the token is a binary or postfix operator
func isOperator(tokenType TokenType) bool {
	return precedence(tokenType) > 0
}

// ParseExpression parses an expression and returns an AST node
func ParseExpression() *ASTNode {
	return parseExpressionWithPrecedence(0)
}

// parseExpressionWithPrecedence implements precedence climbing
func parseExpressionWithPrecedence(minPrec int) *ASTNode {
	var left *ASTNode

	// Handle prefix operators first
	switch CurrTokenType {
	case BANG, TILDE, PLUS, MINUS:
		op := CurrLiteral
		ln := CurrLine
		NextToken()
		operand := parseExpressionWithPrecedence(unaryPrecedence)
		left = &ASTNode{Kind: NodeUnary, Op: op, Children: []*ASTNode{operand}, Line: ln}
	case BIT_AND:
		ln := CurrLine
		SkipToken(BIT_AND)
		operand := parseExpressionWithPrecedence(unaryPrecedence)
		left = &ASTNode{Kind: NodeUnary, Op: "&", Children: []*ASTNode{operand}, Line: ln}
	case ASTERISK:
		ln := CurrLine
		SkipToken(ASTERISK)
		operand := parseExpressionWithPrecedence(unaryPrecedence)
		left = &ASTNode{Kind: NodeDeref, Children: []*ASTNode{operand}, Line: ln}
	default:
		left = parsePrimary()
	}

	for {
		if !isOperator(CurrTokenType) || precedence(CurrTokenType) < minPrec {
			break
		}

		if CurrTokenType == LBRACKET {
			// Handle subscript operator
			SkipToken(LBRACKET)
			index := parseExpressionWithPrecedence(0)
			if CurrTokenType == RBRACKET {
				SkipToken(RBRACKET)
			}
			left = &ASTNode{
				Kind:     NodeItem,
				Children: []*ASTNode{left, index},
				Line:     left.Line,
			}
		} else if CurrTokenType == DOT {
			SkipToken(DOT)
			memberName := CurrLiteral
			SkipToken(IDENT)
			left = &ASTNode{
				Kind:     NodeMember,
				String:   memberName,
				Children: []*ASTNode{left},
				Line:     left.Line,
			}
		} else if CurrTokenType == LPAREN {
			left = parseInvocation(left)
		} else if CurrTokenType == QUESTION {
			// Conditional operator, right-associative
			prec := precedence(QUESTION)
			SkipToken(QUESTION)
			consequent := parseExpressionWithPrecedence(0)
			SkipToken(COLON)
			alternate := parseExpressionWithPrecedence(prec)
			left = &ASTNode{
				Kind:     NodeConditional,
				Children: []*ASTNode{left, consequent, alternate},
				Line:     left.Line,
			}
		} else {
			// Handle binary operators
			op := CurrLiteral
			prec := precedence(CurrTokenType)
			NextToken()

			// For assignment (right-associative), use prec instead of prec + 1
			// For other operators (left-associative), use prec + 1
			var right *ASTNode
			if op == "=" {
				right = parseExpressionWithPrecedence(prec) // right-associative
			} else {
				right = parseExpressionWithPrecedence(prec + 1) // left-associative
			}

			left = &ASTNode{
				Kind:     NodeBinary,
				Op:       op,
				Children: []*ASTNode{left, right},
				Line:     left.Line,
			}
		}
	}

	return left
}

// parseInvocation parses the argument list after a callee and classifies
// the node: a cast for intrinsic type names, a built-in invocation for
// compiler intrinsics, a plain call otherwise.
func parseInvocation(callee *ASTNode) *ASTNode {
	SkipToken(LPAREN)

	var args []*ASTNode
	for CurrTokenType != RPAREN && CurrTokenType != EOF {
		args = append(args, parseExpressionWithPrecedence(0))
		if CurrTokenType == COMMA {
			SkipToken(COMMA)
		} else if CurrTokenType != RPAREN {
			break
		}
	}
	if CurrTokenType == RPAREN {
		SkipToken(RPAREN)
	}

	if callee.Kind == NodeIdent {
		if IsIntrinsicName(callee.String) && len(args) == 1 {
			return &ASTNode{
				Kind:     NodeCast,
				String:   callee.String,
				Children: []*ASTNode{args[0]},
				Line:     callee.Line,
			}
		}
		if builtinFunctions[callee.String] {
			return &ASTNode{
				Kind:     NodeBuiltin,
				String:   callee.String,
				Children: args,
				Line:     callee.Line,
			}
		}
	}

	return &ASTNode{
		Kind:     NodeCall,
		Children: append([]*ASTNode{callee}, args...),
		Line:     callee.Line,
	}
}

// parsePrimary handles primary expressions (literals, identifiers, parentheses)
func parsePrimary() *ASTNode {
	switch CurrTokenType {
	case INT:
		node := IntLiteral(CurrIntValue)
		node.Line = CurrLine
		SkipToken(INT)
		return node

	case REAL:
		node := RealLiteral(CurrRealValue)
		node.Line = CurrLine
		SkipToken(REAL)
		return node

	case BIGINT:
		node := BigLiteral(CurrBigValue)
		node.Line = CurrLine
		SkipToken(BIGINT)
		return node

	case SIZEOF:
		ln := CurrLine
		SkipToken(SIZEOF)
		SkipToken(LPAREN)
		spec := ParseTypeSpec()
		if CurrTokenType == RPAREN {
			SkipToken(RPAREN)
		}
		return &ASTNode{Kind: NodeSizeOf, TypeSpec: spec, Line: ln}

	case IDENT:
		node := &ASTNode{
			Kind:   NodeIdent,
			String: CurrLiteral,
			Line:   CurrLine,
		}
		SkipToken(IDENT)
		return node

	case LPAREN:
		SkipToken(LPAREN) // consume '('
		expr := parseExpressionWithPrecedence(0)
		if CurrTokenType == RPAREN {
			SkipToken(RPAREN)
		}
		return expr

	default:
		// Return empty node for error case
		return &ASTNode{}
	}
}

// ParseTypeSpec parses a type: an intrinsic or struct name, optionally
// followed by pointer and array suffixes. "i16[4]*" is a pointer to an
// array of four i16.
func ParseTypeSpec() *TypeSpec {
	if CurrTokenType != IDENT {
		return nil
	}
	name := CurrLiteral
	SkipToken(IDENT)

	var spec *TypeSpec
	if IsIntrinsicName(name) {
		spec = IntrinsicSpec(name)
	} else {
		spec = &TypeSpec{Kind: TypeStruct, Name: name}
	}

	for {
		if CurrTokenType == ASTERISK {
			SkipToken(ASTERISK)
			spec = &TypeSpec{Kind: TypePointer, Inner: spec}
		} else if CurrTokenType == LBRACKET {
			SkipToken(LBRACKET)
			count := int(CurrIntValue)
			SkipToken(INT)
			if CurrTokenType == RBRACKET {
				SkipToken(RBRACKET)
			}
			spec = &TypeSpec{Kind: TypeArray, Inner: spec, Count: count}
		} else {
			return spec
		}
	}
}

// ParseStatement parses a statement and returns an AST node
func ParseStatement() *ASTNode {
	switch CurrTokenType {
	case VAR:
		ln := CurrLine
		SkipToken(VAR)
		varName := CurrLiteral
		SkipToken(IDENT)
		spec := ParseTypeSpec()
		node := &ASTNode{Kind: NodeVar, String: varName, TypeSpec: spec, Line: ln}
		if CurrTokenType == ASSIGN {
			SkipToken(ASSIGN)
			init := ParseExpression()
			node.Children = []*ASTNode{init}
		}
		if CurrTokenType == SEMICOLON {
			SkipToken(SEMICOLON)
		}
		return node

	case LBRACE:
		SkipToken(LBRACE)
		var statements []*ASTNode
		for CurrTokenType != RBRACE && CurrTokenType != EOF {
			statements = append(statements, ParseStatement())
		}
		if CurrTokenType == RBRACE {
			SkipToken(RBRACE)
		}
		return &ASTNode{Kind: NodeBlock, Children: statements}

	case IF:
		ln := CurrLine
		SkipToken(IF)
		cond := ParseExpression()
		then := ParseStatement()
		children := []*ASTNode{cond, then}
		if CurrTokenType == ELSE {
			SkipToken(ELSE)
			children = append(children, ParseStatement())
		}
		return &ASTNode{Kind: NodeIf, Children: children, Line: ln}

	case WHILE:
		ln := CurrLine
		SkipToken(WHILE)
		cond := ParseExpression()
		body := ParseStatement()
		return &ASTNode{Kind: NodeWhile, Children: []*ASTNode{cond, body}, Line: ln}

	case DO:
		ln := CurrLine
		SkipToken(DO)
		body := ParseStatement()
		SkipToken(WHILE)
		cond := ParseExpression()
		if CurrTokenType == SEMICOLON {
			SkipToken(SEMICOLON)
		}
		return &ASTNode{Kind: NodeDo, Children: []*ASTNode{body, cond}, Line: ln}

	case BREAK:
		ln := CurrLine
		SkipToken(BREAK)
		if CurrTokenType == SEMICOLON {
			SkipToken(SEMICOLON)
		}
		return &ASTNode{Kind: NodeBreak, Line: ln}

	case CONTINUE:
		ln := CurrLine
		SkipToken(CONTINUE)
		if CurrTokenType == SEMICOLON {
			SkipToken(SEMICOLON)
		}
		return &ASTNode{Kind: NodeContinue, Line: ln}

	case RETURN:
		ln := CurrLine
		SkipToken(RETURN)
		var children []*ASTNode
		if CurrTokenType != SEMICOLON && CurrTokenType != RBRACE {
			children = append(children, ParseExpression())
		}
		if CurrTokenType == SEMICOLON {
			SkipToken(SEMICOLON)
		}
		return &ASTNode{Kind: NodeReturn, Children: children, Line: ln}

	default:
		// Expression statement
		expr := ParseExpression()
		if CurrTokenType == SEMICOLON {
			SkipToken(SEMICOLON)
		}
		return expr
	}
}
