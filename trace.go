package main

import (
	"fmt"
	"io"
	"strings"
)

// TraceSink is an optional diagnostic stream. The compiler emits pExpr
// traces around simplification, local traces on local declaration, and
// inject traces per optimized instruction. A nil sink discards all of it.
type TraceSink struct {
	W io.Writer
}

// Emit writes one (category, depth, payload) triple.
func (t *TraceSink) Emit(category string, depth int, payload string) {
	if t == nil || t.W == nil {
		return
	}
	fmt.Fprintf(t.W, "[%s] %s%s\n", category, strings.Repeat("  ", depth), payload)
}
