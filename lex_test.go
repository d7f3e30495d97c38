package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func lexAll(src string) []TokenType {
	Init([]byte(src + "\x00"))
	var tokens []TokenType
	for {
		NextToken()
		if CurrTokenType == EOF {
			return tokens
		}
		tokens = append(tokens, CurrTokenType)
	}
}

func TestLexOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"+ - * / %", []TokenType{PLUS, MINUS, ASTERISK, SLASH, PERCENT}},
		{"== != < > <= >=", []TokenType{EQ, NOT_EQ, LT, GT, LE, GE}},
		{"& | ^ ~ !", []TokenType{BIT_AND, BIT_OR, XOR, TILDE, BANG}},
		{"<< >> >>>", []TokenType{SHL, SHR, SHR_U}},
		{"? : = ;", []TokenType{QUESTION, COLON, ASSIGN, SEMICOLON}},
		{". , [ ] ( ) { }", []TokenType{DOT, COMMA, LBRACKET, RBRACKET, LPAREN, RPAREN, LBRACE, RBRACE}},
	}

	for _, test := range tests {
		be.Equal(t, lexAll(test.input), test.expected)
	}
}

func TestLexKeywords(t *testing.T) {
	be.Equal(t,
		lexAll("var const struct func if else while do break continue return sizeof"),
		[]TokenType{VAR, CONST, STRUCT, FUNC, IF, ELSE, WHILE, DO, BREAK, CONTINUE, RETURN, SIZEOF})
}

func TestLexIdentifiers(t *testing.T) {
	Init([]byte("main foo _bar x9\x00"))
	for _, expected := range []string{"main", "foo", "_bar", "x9"} {
		NextToken()
		be.Equal(t, CurrTokenType, TokenType(IDENT))
		be.Equal(t, CurrLiteral, expected)
	}
}

func TestLexIntegerLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"0", 0},
		{"12345", 12345},
		{"0xff", 255},
		{"0xFF", 255},
		{"0b1010", 10},
		{"0x7fffffff", 2147483647},
		{"1_000_000", 1000000},
	}

	for _, test := range tests {
		Init([]byte(test.input + "\x00"))
		NextToken()
		be.Equal(t, CurrTokenType, TokenType(INT))
		be.Equal(t, CurrIntValue, test.expected)
	}
}

func TestLexRealLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"3.25", 3.25},
		{"0.5", 0.5},
		{"1e9", 1e9},
		{"2.5e-3", 2.5e-3},
	}

	for _, test := range tests {
		Init([]byte(test.input + "\x00"))
		NextToken()
		be.Equal(t, CurrTokenType, TokenType(REAL))
		be.Equal(t, CurrRealValue, test.expected)
	}
}

func TestLexBigIntegerLiterals(t *testing.T) {
	// Everything above the double-safe range rides as a big integer.
	tests := []string{
		"0xffffffffffffffff",
		"9007199254740992", // 2^53
		"18446744073709551615",
	}

	for _, input := range tests {
		Init([]byte(input + "\x00"))
		NextToken()
		be.Equal(t, CurrTokenType, TokenType(BIGINT))
		be.Equal(t, CurrBigValue.String(), normalizeDecimal(input))
	}
}

func normalizeDecimal(lit string) string {
	if len(lit) > 2 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
		return "18446744073709551615"
	}
	return lit
}

func TestLexSafeBoundary(t *testing.T) {
	Init([]byte("9007199254740991\x00")) // 2^53 - 1 still fits
	NextToken()
	be.Equal(t, CurrTokenType, TokenType(INT))
	be.Equal(t, CurrIntValue, int64(9007199254740991))
}

func TestLexComments(t *testing.T) {
	be.Equal(t,
		lexAll("1 // line comment\n+ /* block\ncomment */ 2"),
		[]TokenType{INT, PLUS, INT})
}

func TestLexLineTracking(t *testing.T) {
	Init([]byte("1\n2\n\n3\x00"))
	NextToken()
	be.Equal(t, CurrLine, 1)
	NextToken()
	be.Equal(t, CurrLine, 2)
	NextToken()
	be.Equal(t, CurrLine, 4)
}

func TestLexPeekDoesNotAdvance(t *testing.T) {
	Init([]byte("1 + 2\x00"))
	NextToken()
	be.Equal(t, PeekToken(), TokenType(PLUS))
	be.Equal(t, CurrTokenType, TokenType(INT))
	be.Equal(t, CurrIntValue, int64(1))
}
