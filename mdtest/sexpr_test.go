package mdtest

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseAtoms(t *testing.T) {
	tests := []struct {
		input    string
		nodeType NodeType
		text     string
	}{
		{"foo", NodeSymbol, "foo"},
		{"local.get", NodeSymbol, "local.get"},
		{"42", NodeNumber, "42"},
		{"-3", NodeNumber, "-3"},
		{`"hello"`, NodeString, "hello"},
	}

	for _, test := range tests {
		node, err := Parse(test.input)
		be.Err(t, err, nil)
		be.Equal(t, node.Type, test.nodeType)
		be.Equal(t, node.Text, test.text)
	}
}

func TestParseWildcard(t *testing.T) {
	node, err := Parse("_")
	be.Err(t, err, nil)
	be.Equal(t, node.Type, NodeWildcard)

	// An underscore-prefixed symbol is not a wildcard.
	node, err = Parse("_bar")
	be.Err(t, err, nil)
	be.Equal(t, node.Type, NodeSymbol)
	be.Equal(t, node.Text, "_bar")
}

func TestParseLists(t *testing.T) {
	node, err := Parse(`(binary "+" (int 1) (int 2))`)
	be.Err(t, err, nil)
	be.Equal(t, node.Type, NodeList)
	be.Equal(t, len(node.Items), 4)
	be.Equal(t, node.Items[0].Text, "binary")
	be.Equal(t, node.Items[1].Type, NodeString)
	be.Equal(t, node.Items[2].Type, NodeList)
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "(unclosed", `"unterminated`, "a b"} {
		_, err := Parse(input)
		be.Equal(t, err != nil, true)
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		`(binary "+" (int 1) (int 2))`,
		`(ident "x")`,
		"(cond _ (int 1) _)",
	}

	for _, input := range inputs {
		node, err := Parse(input)
		be.Err(t, err, nil)
		be.Equal(t, node.String(), input)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		pattern  string
		actual   string
		expected bool
	}{
		{"(int 1)", "(int 1)", true},
		{"(int 1)", "(int 2)", false},
		{"(int _)", "(int 99)", true},
		{"_", `(binary "+" (int 1) (int 2))`, true},
		{`(binary "+" _ _)`, `(binary "+" (int 1) (ident "x"))`, true},
		{`(binary "-" _ _)`, `(binary "+" (int 1) (ident "x"))`, false},
		{"(a b)", "(a b c)", false},
	}

	for _, test := range tests {
		pattern, err := Parse(test.pattern)
		be.Err(t, err, nil)
		actual, err := Parse(test.actual)
		be.Err(t, err, nil)
		be.Equal(t, pattern.Matches(actual), test.expected)
	}
}
