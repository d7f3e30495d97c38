package mdtest

import (
	"fmt"
	"strings"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeNumber
	NodeWildcard
	NodeList
)

// Node is one parsed s-expression value: an atom or a list.
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeNumber
	Items []*Node // NodeList
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeNumber:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeWildcard:
		return "_"
	case NodeList:
		var parts []string
		for _, item := range n.Items {
			parts = append(parts, item.String())
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
}

// Matches reports whether an actual s-expression satisfies this pattern.
// A wildcard atom "_" in the pattern matches any single node.
func (n *Node) Matches(actual *Node) bool {
	if n.Type == NodeWildcard {
		return true
	}
	if n.Type != actual.Type {
		return false
	}
	if n.Type != NodeList {
		return n.Text == actual.Text
	}
	if len(n.Items) != len(actual.Items) {
		return false
	}
	for i, item := range n.Items {
		if !item.Matches(actual.Items[i]) {
			return false
		}
	}
	return true
}

type sexprParser struct {
	input []rune
	pos   int
}

// Parse parses one s-expression from the input.
func Parse(input string) (*Node, error) {
	p := &sexprParser{input: []rune(input)}
	p.skipSpace()
	node, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing content at position %d", p.pos)
	}
	return node, nil
}

func (p *sexprParser) skipSpace() {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
		} else {
			return
		}
	}
}

func (p *sexprParser) parseValue() (*Node, error) {
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch c := p.input[p.pos]; {
	case c == '(':
		return p.parseList()
	case c == '"':
		return p.parseString()
	case c == '_' && p.atomEndsAt(p.pos+1):
		p.pos++
		return &Node{Type: NodeWildcard}, nil
	default:
		return p.parseAtom()
	}
}

func (p *sexprParser) atomEndsAt(i int) bool {
	if i >= len(p.input) {
		return true
	}
	c := p.input[i]
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')'
}

func (p *sexprParser) parseList() (*Node, error) {
	p.pos++ // consume '('
	node := &Node{Type: NodeList}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated list")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			return node, nil
		}
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, item)
	}
}

func (p *sexprParser) parseString() (*Node, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '"' {
			p.pos++
			return &Node{Type: NodeString, Text: sb.String()}, nil
		}
		if c == '\\' && p.pos+1 < len(p.input) {
			p.pos++
			c = p.input[p.pos]
		}
		sb.WriteRune(c)
		p.pos++
	}
	return nil, fmt.Errorf("unterminated string")
}

func (p *sexprParser) parseAtom() (*Node, error) {
	start := p.pos
	for !p.atomEndsAt(p.pos) {
		p.pos++
	}
	text := string(p.input[start:p.pos])
	if text == "" {
		return nil, fmt.Errorf("empty atom at position %d", start)
	}
	c := text[0]
	if c == '-' && len(text) > 1 {
		c = text[1]
	}
	if c >= '0' && c <= '9' {
		return &Node{Type: NodeNumber, Text: text}, nil
	}
	return &Node{Type: NodeSymbol, Text: text}, nil
}
