package main

import "fmt"

// DeclKind discriminates the entries of the declaration table.
type DeclKind string

const (
	DeclConst     DeclKind = "DeclConst"
	DeclGlobal    DeclKind = "DeclGlobal"
	DeclVariable  DeclKind = "DeclVariable"
	DeclFunc      DeclKind = "DeclFunc"
	DeclTypeAlias DeclKind = "DeclTypeAlias"
)

// ParamDecl is one function parameter.
type ParamDecl struct {
	Name string
	Spec *TypeSpec
}

// FunctionDecl is a function header plus its parsed body statements.
type FunctionDecl struct {
	Name   string
	Params []ParamDecl
	Result string // intrinsic result type name, "" for none
	Body   []*ASTNode
}

// Declaration is one module-level name.
type Declaration struct {
	Kind DeclKind
	Name string

	Const   *ASTNode  // DeclConst: the literal value
	Spec    *TypeSpec // DeclGlobal/DeclVariable/DeclTypeAlias: the type
	Address int       // DeclVariable: linear-memory byte address
	Func    *FunctionDecl
}

// DeclTable is the module-level name table. It is read-only during
// function compilation.
type DeclTable struct {
	decls map[string]*Declaration
	Order []string
}

func NewDeclTable() *DeclTable {
	return &DeclTable{decls: make(map[string]*Declaration)}
}

// Lookup returns the declaration for a name, or nil.
func (t *DeclTable) Lookup(name string) *Declaration {
	return t.decls[name]
}

// Define adds a declaration; redefinition is an error.
func (t *DeclTable) Define(d *Declaration) error {
	if _, exists := t.decls[d.Name]; exists {
		return fmt.Errorf("duplicate declaration of %s", d.Name)
	}
	t.decls[d.Name] = d
	t.Order = append(t.Order, d.Name)
	return nil
}

// Compilation is the shared per-module state handed to every function
// compilation: the declaration table, the size oracle, and the sinks.
type Compilation struct {
	Decls  *DeclTable
	Errors *ErrorSink
	Trace  *TraceSink
}

func NewCompilation() *Compilation {
	return &Compilation{
		Decls:  NewDeclTable(),
		Errors: &ErrorSink{},
		Trace:  nil,
	}
}

// SizeOf is the size oracle, resolving named struct types through the
// declaration table first.
func (c *Compilation) SizeOf(spec *TypeSpec) (int, bool) {
	return SizeOf(c.Resolve(spec))
}

// Resolve replaces a bare struct-name placeholder with the declared
// struct layout. Other specs pass through unchanged.
func (c *Compilation) Resolve(spec *TypeSpec) *TypeSpec {
	if spec == nil {
		return nil
	}
	switch spec.Kind {
	case TypeStruct:
		if len(spec.Fields) == 0 {
			if d := c.Decls.Lookup(spec.Name); d != nil && d.Kind == DeclTypeAlias {
				return d.Spec
			}
		}
		return spec
	case TypePointer:
		return &TypeSpec{Kind: TypePointer, Inner: c.Resolve(spec.Inner)}
	case TypeArray:
		return &TypeSpec{Kind: TypeArray, Inner: c.Resolve(spec.Inner), Count: spec.Count}
	}
	return spec
}

// memoryBase is the first byte handed to module-level memory variables.
const memoryBase = 16

// ParseProgram parses a whole source file into a compilation: struct
// declarations, named constants, module variables, and functions.
// Intrinsic-typed module variables become WASM globals; pointers and
// aggregates are placed in linear memory at sequential addresses.
func ParseProgram(source []byte, ctx *Compilation) []*FunctionDecl {
	Init(source)
	NextToken()

	var funcs []*FunctionDecl
	nextAddress := memoryBase

	for CurrTokenType != EOF {
		switch CurrTokenType {
		case STRUCT:
			SkipToken(STRUCT)
			name := CurrLiteral
			SkipToken(IDENT)
			spec := &TypeSpec{Kind: TypeStruct, Name: name}
			SkipToken(LBRACE)
			for CurrTokenType != RBRACE && CurrTokenType != EOF {
				SkipToken(VAR)
				fieldName := CurrLiteral
				SkipToken(IDENT)
				fieldSpec := ctx.Resolve(ParseTypeSpec())
				if CurrTokenType == SEMICOLON {
					SkipToken(SEMICOLON)
				}
				spec.Fields = append(spec.Fields, StructField{Name: fieldName, Spec: fieldSpec})
			}
			if CurrTokenType == RBRACE {
				SkipToken(RBRACE)
			}
			LayoutStruct(spec)
			if err := ctx.Decls.Define(&Declaration{Kind: DeclTypeAlias, Name: name, Spec: spec}); err != nil {
				ctx.Errors.ReportLine(ErrDuplicateLocal, CurrLine, err.Error())
			}

		case CONST:
			SkipToken(CONST)
			name := CurrLiteral
			SkipToken(IDENT)
			SkipToken(ASSIGN)
			value := Simplify(ParseExpression(), ctx)
			if CurrTokenType == SEMICOLON {
				SkipToken(SEMICOLON)
			}
			if err := ctx.Decls.Define(&Declaration{Kind: DeclConst, Name: name, Const: value}); err != nil {
				ctx.Errors.ReportLine(ErrDuplicateLocal, CurrLine, err.Error())
			}

		case VAR:
			SkipToken(VAR)
			name := CurrLiteral
			SkipToken(IDENT)
			spec := ctx.Resolve(ParseTypeSpec())
			if CurrTokenType == SEMICOLON {
				SkipToken(SEMICOLON)
			}
			d := &Declaration{Name: name, Spec: spec}
			if spec.IsIntrinsic() {
				d.Kind = DeclGlobal
			} else {
				d.Kind = DeclVariable
				d.Address = nextAddress
				if size, ok := ctx.SizeOf(spec); ok {
					nextAddress += size
				}
			}
			if err := ctx.Decls.Define(d); err != nil {
				ctx.Errors.ReportLine(ErrDuplicateLocal, CurrLine, err.Error())
			}

		case FUNC:
			fn := parseFunction(ctx)
			funcs = append(funcs, fn)
			if err := ctx.Decls.Define(&Declaration{Kind: DeclFunc, Name: fn.Name, Func: fn}); err != nil {
				ctx.Errors.ReportLine(ErrDuplicateLocal, CurrLine, err.Error())
			}

		default:
			// Not a declaration; skip the offending token so parsing
			// can continue.
			NextToken()
		}
	}
	return funcs
}

func parseFunction(ctx *Compilation) *FunctionDecl {
	SkipToken(FUNC)
	fn := &FunctionDecl{Name: CurrLiteral}
	SkipToken(IDENT)
	SkipToken(LPAREN)
	for CurrTokenType != RPAREN && CurrTokenType != EOF {
		paramName := CurrLiteral
		SkipToken(IDENT)
		spec := ctx.Resolve(ParseTypeSpec())
		fn.Params = append(fn.Params, ParamDecl{Name: paramName, Spec: spec})
		if CurrTokenType == COMMA {
			SkipToken(COMMA)
		}
	}
	SkipToken(RPAREN)
	if CurrTokenType == IDENT && IsIntrinsicName(CurrLiteral) {
		fn.Result = CurrLiteral
		SkipToken(IDENT)
	}
	SkipToken(LBRACE)
	for CurrTokenType != RBRACE && CurrTokenType != EOF {
		fn.Body = append(fn.Body, ParseStatement())
	}
	if CurrTokenType == RBRACE {
		SkipToken(RBRACE)
	}
	return fn
}
