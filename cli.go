package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `cwa - A C-like systems language that compiles to WebAssembly text

Usage:
    cwa <command> [arguments]

Commands:
    build <file>    Compile a .cwa file to WebAssembly text
    eval <expr>     Compile an inline expression and print its instructions
    check <file>    Parse and check a .cwa file
    help            Show this help message

Examples:
    cwa build -o program.wat hello.cwa
    cwa eval '3 + 4 * 2'
    cwa check myfile.cwa

Use "cwa <command> -h" for more information about a command.
`)
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.wat)")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cwa build [-o output] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .cwa file to WebAssembly text\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)

	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, ".cwa") + ".wat"
	}

	if *verbose {
		fmt.Printf("Compiling %s to %s...\n", filename, outputFile)
	}

	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	// Add null terminator as required by lexer
	input := append(sourceBytes, '\x00')

	watText, err := compileProgram(input, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed:\n%v\n", err)
		os.Exit(1)
	}

	err = os.WriteFile(outputFile, []byte(watText+"\n"), 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file %s: %v\n", outputFile, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(watText)+1)
}

func evalCommand(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cwa eval [-v] <expr>\n")
		fmt.Fprintf(os.Stderr, "Compile an inline expression and print its instructions\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one expression argument\n")
		fs.Usage()
		os.Exit(1)
	}

	code := fs.Arg(0)
	input := []byte(code + "\x00")

	ctx := NewCompilation()
	if *verbose {
		ctx.Trace = &TraceSink{W: os.Stderr}
	}

	Init(input)
	NextToken()
	expr := ParseExpression()

	if *verbose {
		fmt.Printf("AST: %s\n", ToSExpr(expr))
	}

	expr = Simplify(expr, ctx)
	fc := &funcCompiler{ctx: ctx, b: NewFunctionBuilder("eval")}
	resultType := fc.compileExpression(expr, true)

	if ctx.Errors.HasErrors() {
		for _, d := range ctx.Errors.Diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
		os.Exit(1)
	}

	Optimize(fc.b)
	fmt.Println(RenderFlat(fc.b.Body))
	if *verbose && resultType != nil {
		fmt.Printf("Result type: %s\n", resultType)
	}
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose checking details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cwa check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Parse and check a .cwa file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)

	if *verbose {
		fmt.Printf("Checking %s...\n", filename)
	}

	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	input := append(sourceBytes, '\x00')

	ctx := NewCompilation()
	fns := ParseProgram(input, ctx)
	for _, fn := range fns {
		CompileFunction(fn, ctx)
	}

	if ctx.Errors.HasErrors() {
		fmt.Printf("Errors in %s:\n", filename)
		for _, d := range ctx.Errors.Diagnostics {
			fmt.Println(d)
		}
		os.Exit(1)
	}

	fmt.Printf("%s: no errors found\n", filename)
}

// compileProgram compiles a whole source file to WebAssembly text.
func compileProgram(input []byte, verbose bool) (string, error) {
	ctx := NewCompilation()
	if verbose {
		ctx.Trace = &TraceSink{W: os.Stderr}
	}

	fns := ParseProgram(input, ctx)

	var builders []*FunctionBuilder
	for _, fn := range fns {
		builders = append(builders, CompileFunction(fn, ctx))
	}

	if ctx.Errors.HasErrors() {
		var lines []string
		for _, d := range ctx.Errors.Diagnostics {
			lines = append(lines, d.String())
		}
		return "", fmt.Errorf("%s", strings.Join(lines, "\n"))
	}

	return RenderModule(ctx, builders), nil
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "eval":
		evalCommand(args)
	case "check":
		checkCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
