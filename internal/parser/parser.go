// Package parser implements a recursive-descent parser for EAC.
//
// It turns a token stream into a Program AST using one token of
// lookahead (cur/peek), the same shape as a hand-written SQL parser:
// expectPunct/expectKeyword helpers and a located errf. Expression
// parsing is a classic precedence-climbing ladder, one level per
// precedence row (or, and, not, comparisons, additive, multiplicative,
// unary, primary), generalized from a token-to-precedence table into
// explicit per-level parse functions since EAC's operator set is small
// enough not to need a table. One-token lookahead keeps the grammar
// easy to extend statement-by-statement, one sentence template per
// parseXxx method.
package parser

import (
	"fmt"
	"strings"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/lexer"
	"github.com/englishascode/eac/internal/token"
)

// Error is a located parse error.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

// Parser holds the token stream and current/peek tokens.
type Parser struct {
	toks []token.Token
	idx  int
	cur  token.Token
	pk   token.Token
}

// Parse lexes and parses src into a Program, or returns the first
// located error (lexical or syntactic).
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := New(toks)
	return p.ParseProgram()
}

// New creates a Parser over an already-lexed token stream.
func New(toks []token.Token) *Parser {
	p := &Parser{toks: toks}
	if len(toks) > 0 {
		p.cur = toks[0]
	}
	if len(toks) > 1 {
		p.pk = toks[1]
	}
	return p
}

func (p *Parser) next() {
	p.idx++
	p.cur = p.pk
	if p.idx+1 < len(p.toks) {
		p.pk = p.toks[p.idx+1]
	} else {
		p.pk = token.Token{Kind: token.EOF, Pos: p.cur.Pos}
	}
}

func (p *Parser) errf(format string, a ...any) error {
	return &Error{Pos: p.cur.Pos, Msg: fmt.Sprintf(format, a...)}
}

func (p *Parser) expectPunct(sym string) error {
	if p.cur.Kind == token.PUNCT && p.cur.Lexeme == sym {
		p.next()
		return nil
	}
	return &Error{Pos: p.cur.Pos, Msg: fmt.Sprintf("Expected %s, got %s '%s'", sym, p.cur.Kind, p.cur.Lexeme)}
}

func (p *Parser) expectKeyword(kw string) error {
	if p.cur.Kind == token.KEYWORD && p.cur.Lexeme == kw {
		p.next()
		return nil
	}
	return &Error{Pos: p.cur.Pos, Msg: fmt.Sprintf("Expected %s, got %s '%s'", kw, p.cur.Kind, p.cur.Lexeme)}
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur.Kind == token.KEYWORD && p.cur.Lexeme == kw
}

func (p *Parser) isPunct(sym string) bool {
	return p.cur.Kind == token.PUNCT && p.cur.Lexeme == sym
}

func (p *Parser) expectIdent() (string, token.Position, error) {
	if p.cur.Kind == token.IDENT {
		name := p.cur.Lexeme
		pos := p.cur.Pos
		p.next()
		return name, pos, nil
	}
	return "", p.cur.Pos, &Error{Pos: p.cur.Pos, Msg: fmt.Sprintf("Expected identifier, got %s '%s'", p.cur.Kind, p.cur.Lexeme)}
}

func (p *Parser) expectString() (string, error) {
	if p.cur.Kind == token.STRING {
		s := p.cur.Value.(string)
		p.next()
		return s, nil
	}
	return "", &Error{Pos: p.cur.Pos, Msg: fmt.Sprintf("Expected string literal, got %s '%s'", p.cur.Kind, p.cur.Lexeme)}
}

func (p *Parser) expectPeriod() error {
	if p.isPunct(".") {
		p.next()
		return nil
	}
	return &Error{Pos: p.cur.Pos, Msg: fmt.Sprintf("Expected ., got %s '%s'", p.cur.Kind, p.cur.Lexeme)}
}

// ParseProgram parses Statement* until EOF.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *Parser) parseBlock() ([]ast.Statement, error) {
	var stmts []ast.Statement
	for !p.isKeyword("end") && !p.isKeyword("Otherwise") && p.cur.Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	pos := p.cur.Pos
	switch {
	case p.isKeyword("Open"):
		return p.parseOpenWorkbook(pos)
	case p.isKeyword("In"):
		return p.parseTreatRange(pos)
	case p.isKeyword("Set"):
		return p.parseSetVar(pos)
	case p.isKeyword("Add"):
		return p.parseAddColumn(pos)
	case p.isKeyword("Filter"):
		return p.parseFilter(pos)
	case p.isKeyword("Sort"):
		return p.parseSort(pos)
	case p.isKeyword("Group"):
		return p.parseGroup(pos)
	case p.isKeyword("Join"):
		return p.parseJoin(pos)
	case p.isKeyword("Export"):
		return p.parseExport(pos)
	case p.isKeyword("For"):
		return p.parseForEach(pos)
	case p.isKeyword("If"):
		return p.parseIf(pos)
	case p.isKeyword("Use"):
		return p.parseUseSystem(pos)
	case p.isKeyword("Log"):
		return p.parseLog(pos)
	case p.isKeyword("Go"):
		return p.parseGoToPage(pos)
	case p.isKeyword("Enter"):
		return p.parseEnterField(pos)
	case p.isKeyword("Click"):
		return p.parseClick(pos)
	case p.isKeyword("Extract"):
		return p.parseExtract(pos)
	case p.isKeyword("Define"):
		return p.parseDefine(pos)
	case p.isKeyword("Call"):
		return p.parseCall(pos)
	case p.isKeyword("On"):
		return p.parseOnError(pos)
	default:
		return nil, p.errf("unexpected token starting statement: %s '%s'", p.cur.Kind, p.cur.Lexeme)
	}
}

func (p *Parser) parseOpenWorkbook(pos token.Position) (ast.Statement, error) {
	p.next() // Open
	if err := p.expectKeyword("workbook"); err != nil {
		return nil, err
	}
	path, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.OpenWorkbook{Node: ast.Node{Pos: pos}, Path: path}, nil
}

func (p *Parser) parseTreatRange(pos token.Position) (ast.Statement, error) {
	p.next() // In
	if err := p.expectKeyword("sheet"); err != nil {
		return nil, err
	}
	sheet, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(","); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("treat"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("range"); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.RANGE {
		return nil, p.errf("Expected range literal, got %s '%s'", p.cur.Kind, p.cur.Lexeme)
	}
	rv := p.cur.Value.(token.RangeValue)
	p.next()
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("table"); err != nil {
		return nil, err
	}
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.TreatRange{Node: ast.Node{Pos: pos}, Sheet: sheet, Range: rv, TableName: name}, nil
}

func (p *Parser) parseSetVar(pos token.Position) (ast.Statement, error) {
	p.next() // Set
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.SetVar{Node: ast.Node{Pos: pos}, Name: name, Expr: expr}, nil
}

func (p *Parser) parseAddColumn(pos token.Position) (ast.Statement, error) {
	p.next() // Add
	if err := p.expectKeyword("column"); err != nil {
		return nil, err
	}
	col, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	table, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.AddColumn{Node: ast.Node{Pos: pos}, Column: col, Table: table, Expr: expr}, nil
}

func (p *Parser) parseFilter(pos token.Position) (ast.Statement, error) {
	p.next() // Filter
	table, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("where"); err != nil {
		return nil, err
	}
	pred, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Filter{Node: ast.Node{Pos: pos}, Table: table, Predicate: pred}, nil
}

func (p *Parser) parseSort(pos token.Position) (ast.Statement, error) {
	p.next() // Sort
	table, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("by"); err != nil {
		return nil, err
	}
	key, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	asc := true
	if p.isKeyword("ascending") {
		p.next()
	} else if p.isKeyword("descending") {
		asc = false
		p.next()
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Sort{Node: ast.Node{Pos: pos}, Table: table, Key: key, Ascending: asc}, nil
}

// parseGroup parses: Group T by K1, K2 with name = func(expr), ... .
func (p *Parser) parseGroup(pos token.Position) (ast.Statement, error) {
	p.next() // Group
	table, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("by"); err != nil {
		return nil, err
	}
	var keys []string
	for {
		k, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	var aggs []ast.Aggregation
	if p.cur.Kind == token.IDENT && p.cur.Lexeme == "with" {
		p.next()
		for {
			name, _, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			fn, _, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			aggs = append(aggs, ast.Aggregation{Name: name, Func: fn, Arg: arg})
			if p.isPunct(",") {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Group{Node: ast.Node{Pos: pos}, Table: table, Keys: keys, Aggregations: aggs}, nil
}

// splitJoinQualifiedRef splits a Join ON-clause operand into its table
// qualifier and column. The lexer hands dotted identifiers back as a
// single IDENT token (e.g. "Accounts.ID"), so there is no separate "."
// punct to consume here, unlike a freestanding qualified reference.
func splitJoinQualifiedRef(name string, pos token.Position) (qualifier, column string, err error) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &Error{Pos: pos, Msg: fmt.Sprintf("Expected a qualified Table.Column reference, got '%s'", name)}
	}
	return parts[0], parts[1], nil
}

// parseJoin parses: Join L to R as table Result where L.Col = R.Col [and ...].
func (p *Parser) parseJoin(pos token.Position) (ast.Statement, error) {
	p.next() // Join
	left, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	right, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("table"); err != nil {
		return nil, err
	}
	result, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("where"); err != nil {
		return nil, err
	}
	var ons []ast.JoinOn
	for {
		lref, lpos, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		lq, lc, err := splitJoinQualifiedRef(lref, lpos)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		rref, rpos, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		rq, rc, err := splitJoinQualifiedRef(rref, rpos)
		if err != nil {
			return nil, err
		}
		if lq != left {
			return nil, &Error{Pos: lpos, Msg: fmt.Sprintf("join condition table '%s' does not match left table '%s'", lq, left)}
		}
		if rq != right {
			return nil, &Error{Pos: rpos, Msg: fmt.Sprintf("join condition table '%s' does not match right table '%s'", rq, right)}
		}
		ons = append(ons, ast.JoinOn{LeftCol: lc, RightCol: rc})
		if p.isKeyword("and") {
			p.next()
			continue
		}
		break
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Join{Node: ast.Node{Pos: pos}, Left: left, Right: right, ResultName: result, On: ons}, nil
}

func (p *Parser) parseExport(pos token.Position) (ast.Statement, error) {
	p.next() // Export
	src, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	path, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Export{Node: ast.Node{Pos: pos}, Source: src, Path: path}, nil
}

func (p *Parser) parseForEach(pos token.Position) (ast.Statement, error) {
	p.next() // For
	if err := p.expectKeyword("each"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("row"); err != nil {
		return nil, err
	}
	rowVar, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	table, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.ForEach{Node: ast.Node{Pos: pos}, RowVar: rowVar, Table: table, Body: body}, nil
}

func (p *Parser) parseIf(pos token.Position) (ast.Statement, error) {
	p.next() // If
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Statement
	if p.isKeyword("Otherwise") {
		p.next()
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		elseBody, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.If{Node: ast.Node{Pos: pos}, Cond: cond, Then: thenBody, Else: elseBody}, nil
}

func (p *Parser) parseUseSystem(pos token.Position) (ast.Statement, error) {
	p.next() // Use
	if err := p.expectKeyword("system"); err != nil {
		return nil, err
	}
	name, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("version"); err != nil {
		return nil, err
	}
	version, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.UseSystem{Node: ast.Node{Pos: pos}, Name: name, Version: version}, nil
}

func (p *Parser) parseLog(pos token.Position) (ast.Statement, error) {
	p.next() // Log
	switch {
	case p.isKeyword("in"):
		p.next()
		cred := ""
		if p.isKeyword("as") {
			p.next()
			if err := p.expectKeyword("credential"); err != nil {
				return nil, err
			}
			s, err := p.expectString()
			if err != nil {
				return nil, err
			}
			cred = s
		}
		if err := p.expectPeriod(); err != nil {
			return nil, err
		}
		return &ast.LogIn{Node: ast.Node{Pos: pos}, Credential: cred}, nil
	case p.isKeyword("out"):
		p.next()
		if err := p.expectPeriod(); err != nil {
			return nil, err
		}
		return &ast.LogOut{Node: ast.Node{Pos: pos}}, nil
	default:
		return nil, p.errf("Expected 'in' or 'out' after Log, got %s '%s'", p.cur.Kind, p.cur.Lexeme)
	}
}

func (p *Parser) parseGoToPage(pos token.Position) (ast.Statement, error) {
	p.next() // Go
	if err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("page"); err != nil {
		return nil, err
	}
	name, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.GoToPage{Node: ast.Node{Pos: pos}, Name: name}, nil
}

func (p *Parser) parseEnterField(pos token.Position) (ast.Statement, error) {
	p.next() // Enter
	selector, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.EnterField{Node: ast.Node{Pos: pos}, Selector: selector, Expr: expr}, nil
}

func (p *Parser) parseClick(pos token.Position) (ast.Statement, error) {
	p.next() // Click
	selector, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Click{Node: ast.Node{Pos: pos}, Selector: selector}, nil
}

func (p *Parser) parseExtract(pos token.Position) (ast.Statement, error) {
	p.next() // Extract
	v, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("field"); err != nil {
		return nil, err
	}
	selector, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Extract{Node: ast.Node{Pos: pos}, Var: v, Selector: selector}, nil
}

func (p *Parser) parseDefine(pos token.Position) (ast.Statement, error) {
	p.next() // Define
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	typeName, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Define{Node: ast.Node{Pos: pos}, Name: name, TypeName: typeName}, nil
}

func (p *Parser) parseCall(pos token.Position) (ast.Statement, error) {
	p.next() // Call
	if err := p.expectKeyword("result"); err != nil {
		return nil, err
	}
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeriod(); err != nil {
		return nil, err
	}
	return &ast.Call{Node: ast.Node{Pos: pos}, ResultName: name}, nil
}

func (p *Parser) parseOnError(pos token.Position) (ast.Statement, error) {
	p.next() // On
	if err := p.expectKeyword("error"); err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	action, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.OnError{Node: ast.Node{Pos: pos}, Action: action}, nil
}

// ---- Expressions ----
//
// Precedence, lowest to highest: or, and, not, comparisons
// (non-associative), additive, multiplicative, unary -, primary.

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		pos := p.cur.Pos
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Node: ast.Node{Pos: pos}, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		pos := p.cur.Pos
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Node: ast.Node{Pos: pos}, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.isKeyword("not") {
		pos := p.cur.Pos
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Node: ast.Node{Pos: pos}, Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == token.PUNCT && comparisonOps[p.cur.Lexeme] {
		op := p.cur.Lexeme
		pos := p.cur.Pos
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Node: ast.Node{Pos: pos}, Op: op, Left: left, Right: right}
		// Comparisons are non-associative: chaining is a syntax error.
		if p.cur.Kind == token.PUNCT && comparisonOps[p.cur.Lexeme] {
			return nil, p.errf("comparison operators do not chain: unexpected %q", p.cur.Lexeme)
		}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.PUNCT && (p.cur.Lexeme == "+" || p.cur.Lexeme == "-") {
		op := p.cur.Lexeme
		pos := p.cur.Pos
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Node: ast.Node{Pos: pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.PUNCT && (p.cur.Lexeme == "*" || p.cur.Lexeme == "/") {
		op := p.cur.Lexeme
		pos := p.cur.Pos
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Node: ast.Node{Pos: pos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.cur.Kind == token.PUNCT && p.cur.Lexeme == "-" {
		pos := p.cur.Pos
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Node: ast.Node{Pos: pos}, Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.STRING:
		s := p.cur.Value.(string)
		p.next()
		return &ast.StringLit{Node: ast.Node{Pos: pos}, Value: s}, nil
	case token.NUMBER:
		f := p.cur.Value.(float64)
		raw := p.cur.Lexeme
		p.next()
		return &ast.NumberLit{Node: ast.Node{Pos: pos}, Value: f, Raw: raw}, nil
	case token.MONEY:
		mv := p.cur.Value.(token.MoneyValue)
		p.next()
		return &ast.MoneyLit{Node: ast.Node{Pos: pos}, Currency: mv.Currency, Amount: mv.Amount}, nil
	case token.DATE:
		iso := p.cur.Value.(string)
		p.next()
		return &ast.DateLit{Node: ast.Node{Pos: pos}, ISO: iso}, nil
	case token.KEYWORD:
		switch p.cur.Lexeme {
		case "true":
			p.next()
			return &ast.BoolLit{Node: ast.Node{Pos: pos}, Value: true}, nil
		case "false":
			p.next()
			return &ast.BoolLit{Node: ast.Node{Pos: pos}, Value: false}, nil
		}
		return nil, p.errf("unexpected keyword %q in expression", p.cur.Lexeme)
	case token.IDENT:
		return p.parseIdentOrCall(pos)
	case token.PUNCT:
		if p.cur.Lexeme == "(" {
			p.next()
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
		return nil, p.errf("unexpected punctuation %q in expression", p.cur.Lexeme)
	default:
		return nil, p.errf("unexpected %s '%s' in expression", p.cur.Kind, p.cur.Lexeme)
	}
}

func (p *Parser) parseIdentOrCall(pos token.Position) (ast.Expr, error) {
	name := p.cur.Lexeme
	p.next()

	if p.isPunct("(") {
		p.next()
		var args []ast.Expr
		for !p.isPunct(")") {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.isPunct(",") {
				p.next()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.BuiltinCall{Node: ast.Node{Pos: pos}, Name: name, Args: args}, nil
	}

	if p.isPunct(".") {
		p.next()
		if p.cur.Kind != token.IDENT {
			return nil, p.errf("Expected identifier after '.', got %s '%s'", p.cur.Kind, p.cur.Lexeme)
		}
		col := p.cur.Lexeme
		p.next()
		return &ast.QualifiedRef{Node: ast.Node{Pos: pos}, Qualifier: name, Column: col}, nil
	}

	// The lexer may also hand back a single dotted IDENT — split eagerly.
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		return &ast.QualifiedRef{Node: ast.Node{Pos: pos}, Qualifier: parts[0], Column: parts[1]}, nil
	}

	return &ast.Ident{Node: ast.Node{Pos: pos}, Name: name}, nil
}
