// Package mdtest extracts compiler test cases from Markdown documents.
// A test case is a heading starting with "Test: ", followed by one input
// code fence (cwa-expr or cwa-program) and one or more assertion fences
// (ast, wat, compile-error).
package mdtest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType represents the type of input code fence in a test
type InputType string

const (
	InputTypeExpr    InputType = "cwa-expr"
	InputTypeProgram InputType = "cwa-program"
)

// AssertionType represents the type of assertion code fence in a test
type AssertionType string

const (
	AssertionTypeAST          AssertionType = "ast"
	AssertionTypeWAT          AssertionType = "wat"
	AssertionTypeCompileError AssertionType = "compile-error"
)

// Assertion represents a single assertion in a test
type Assertion struct {
	Type    AssertionType // The type of assertion (ast, wat, compile-error)
	Content string        // The raw content of the assertion code fence
	Parsed  *Node         // The parsed s-expression for ast assertions
}

// TestCase represents a complete test case extracted from Markdown
type TestCase struct {
	Name       string      // The test name from the heading (after "Test: ")
	Input      string      // The raw input code from the input fence
	InputType  InputType   // The type of input fence
	Assertions []Assertion // All assertions for this test case
}

// ExtractTestCases parses a Markdown document and extracts all test cases
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdownContent)

	doc := md.Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var currentTestCase *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractTextFromNode(n, source)
			if strings.HasPrefix(headingText, "Test: ") {
				if currentTestCase != nil {
					if err := validateTestCase(currentTestCase); err != nil {
						return ast.WalkStop, err
					}
					testCases = append(testCases, *currentTestCase)
				}
				currentTestCase = &TestCase{
					Name: strings.TrimPrefix(headingText, "Test: "),
				}
			}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := extractCodeBlockContent(n, source)

			if currentTestCase == nil {
				if isInputFence(language) || isAssertionFence(language) {
					return ast.WalkStop, fmt.Errorf("%s fence found outside of test case", language)
				}
				return ast.WalkContinue, nil
			}

			if language != "" && !isInputFence(language) && !isAssertionFence(language) {
				return ast.WalkStop, fmt.Errorf("unknown fence language %q in test %q", language, currentTestCase.Name)
			}

			if isInputFence(language) {
				if currentTestCase.Input != "" {
					return ast.WalkStop, fmt.Errorf("multiple input fences in test %q", currentTestCase.Name)
				}
				currentTestCase.Input = strings.TrimRight(content, "\n")
				currentTestCase.InputType = InputType(language)
			} else if isAssertionFence(language) {
				assertion := Assertion{
					Type:    AssertionType(language),
					Content: strings.TrimRight(content, "\n"),
				}
				if assertion.Type == AssertionTypeAST {
					parsed, parseErr := Parse(assertion.Content)
					if parseErr != nil {
						return ast.WalkStop, fmt.Errorf("bad s-expression in test %q: %w", currentTestCase.Name, parseErr)
					}
					assertion.Parsed = parsed
				}
				currentTestCase.Assertions = append(currentTestCase.Assertions, assertion)
			}
		}

		return ast.WalkContinue, nil
	})

	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if currentTestCase != nil {
		if err := validateTestCase(currentTestCase); err != nil {
			return nil, err
		}
		testCases = append(testCases, *currentTestCase)
	}

	return testCases, nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer

	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if text, ok := n.(*ast.Text); ok {
				buf.Write(text.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}

// extractCodeBlockContent extracts the content from a fenced code block
func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer

	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}

	return buf.String()
}

func isInputFence(language string) bool {
	return language == string(InputTypeExpr) || language == string(InputTypeProgram)
}

func isAssertionFence(language string) bool {
	return language == string(AssertionTypeAST) ||
		language == string(AssertionTypeWAT) ||
		language == string(AssertionTypeCompileError)
}

// validateTestCase ensures a test case has both input and at least one assertion
func validateTestCase(testCase *TestCase) error {
	if testCase.Input == "" {
		return fmt.Errorf("test %q has no input fence", testCase.Name)
	}
	if len(testCase.Assertions) == 0 {
		return fmt.Errorf("test %q has no assertion fences", testCase.Name)
	}
	return nil
}
