package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"42", "(int 42)"},
		{"3.25", "(real 3.25)"},
		{"0xff", "(int 255)"},
		{"0xffffffffffffffff", "(bigint 18446744073709551615)"},
		{"myVar", `(ident "myVar")`},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}

func TestParseBinaryOperations(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2", `(binary "+" (int 1) (int 2))`},
		{"x == y", `(binary "==" (ident "x") (ident "y"))`},
		{"x >>> 2", `(binary ">>>" (ident "x") (int 2))`},
		{"a & b", `(binary "&" (ident "a") (ident "b"))`},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", `(binary "+" (int 1) (binary "*" (int 2) (int 3)))`},
		{"(1 + 2) * 3", `(binary "*" (binary "+" (int 1) (int 2)) (int 3))`},
		{"1 | 2 & 3", `(binary "|" (int 1) (binary "&" (int 2) (int 3)))`},
		{"1 & 2 ^ 3", `(binary "^" (binary "&" (int 1) (int 2)) (int 3))`},
		{"x << 2 + 1", `(binary "<<" (ident "x") (binary "+" (int 2) (int 1)))`},
		{"a < b == c", `(binary "==" (binary "<" (ident "a") (ident "b")) (ident "c"))`},
		{"a - b - c", `(binary "-" (binary "-" (ident "a") (ident "b")) (ident "c"))`},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}

func TestParseUnaryOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"-x", `(unary "-" (ident "x"))`},
		{"+x", `(unary "+" (ident "x"))`},
		{"!x", `(unary "!" (ident "x"))`},
		{"~x", `(unary "~" (ident "x"))`},
		{"&x", `(unary "&" (ident "x"))`},
		{"*p", `(deref (ident "p"))`},
		{"-x + y", `(binary "+" (unary "-" (ident "x")) (ident "y"))`},
		{"!x == y", `(binary "==" (unary "!" (ident "x")) (ident "y"))`},
		{"&p.x", `(unary "&" (member (ident "p") "x"))`},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}

func TestParseConditional(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a ? b : c", `(cond (ident "a") (ident "b") (ident "c"))`},
		{
			"a == 1 ? b : c",
			`(cond (binary "==" (ident "a") (int 1)) (ident "b") (ident "c"))`,
		},
		{
			"a ? b : c ? d : e",
			`(cond (ident "a") (ident "b") (cond (ident "c") (ident "d") (ident "e")))`,
		},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}

func TestParseCastsAndInvocations(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"i64(x)", `(cast "i64" (ident "x"))`},
		{"u8(x + 1)", `(cast "u8" (binary "+" (ident "x") (int 1)))`},
		{"min(a, b)", `(builtin "min" (ident "a") (ident "b"))`},
		{"max(a, b, c)", `(builtin "max" (ident "a") (ident "b") (ident "c"))`},
		{"sqrt(2.0)", `(builtin "sqrt" (real 2))`},
		{"foo(1, 2)", `(call (ident "foo") (int 1) (int 2))`},
		{"foo()", `(call (ident "foo"))`},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}

func TestParseMemberAndItemAccess(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"p.x", `(member (ident "p") "x")`},
		{"p.x.y", `(member (member (ident "p") "x") "y")`},
		{"a[0]", `(idx (ident "a") (int 0))`},
		{"a[i + 1]", `(idx (ident "a") (binary "+" (ident "i") (int 1)))`},
		{"p.x[2]", `(idx (member (ident "p") "x") (int 2))`},
		{"(*p).x", `(member (deref (ident "p")) "x")`},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}

func TestParseSizeof(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sizeof(i32)", `(sizeof "i32")`},
		{"sizeof(i16[4])", `(sizeof "i16[4]")`},
		{"sizeof(f64*)", `(sizeof "f64*")`},
		{"sizeof(Point)", `(sizeof "Point")`},
	}

	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExprString(test.input)), test.expected)
	}
}
